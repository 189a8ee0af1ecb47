package api

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureHeader carries the hex secp256k1 signature of an admin request.
	SignatureHeader = "X-Registry-Signature"

	// TimestampHeader carries the signing time in unix seconds.
	TimestampHeader = "X-Registry-Timestamp"

	// MaxClockSkew bounds how far a request timestamp may be from server time.
	MaxClockSkew = 5 * time.Minute
)

var (
	// ErrMissingSignature is returned for admin requests without auth headers.
	ErrMissingSignature = errors.New("missing request signature")

	// ErrInvalidSignature is returned when no caller can be recovered.
	ErrInvalidSignature = errors.New("invalid request signature")

	// ErrExpiredSignature is returned when the timestamp is outside the window.
	ErrExpiredSignature = errors.New("request signature expired")
)

// AdminDigest is the hash signed by admin requests.
func AdminDigest(method, path, timestamp string, body []byte) common.Hash {
	return crypto.Keccak256Hash([]byte(method), []byte(path), []byte(timestamp), body)
}

// SignAdminRequest sets the auth headers on req for the given body.
func SignAdminRequest(req *http.Request, body []byte, key *ecdsa.PrivateKey, now time.Time) error {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	digest := AdminDigest(req.Method, req.URL.Path, timestamp, body)

	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return fmt.Errorf("could not sign request: %w", err)
	}

	req.Header.Set(TimestampHeader, timestamp)
	req.Header.Set(SignatureHeader, hexutil.Encode(sig))
	return nil
}

// RecoverAdmin authenticates an admin request and returns the signer. The
// request body is read and replaced so handlers can decode it again.
func RecoverAdmin(r *http.Request, now time.Time) (common.Address, error) {
	sigHex := r.Header.Get(SignatureHeader)
	timestamp := r.Header.Get(TimestampHeader)
	if sigHex == "" || timestamp == "" {
		return common.Address{}, ErrMissingSignature
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidSignature, timestamp)
	}
	if skew := now.Sub(time.Unix(unix, 0)); skew > MaxClockSkew || skew < -MaxClockSkew {
		return common.Address{}, fmt.Errorf("%w: timestamp is %s off", ErrExpiredSignature, skew.Round(time.Second))
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: expected %d hex-encoded bytes", ErrInvalidSignature, crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return common.Address{}, fmt.Errorf("could not read request body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	digest := AdminDigest(r.Method, r.URL.Path, timestamp, body)
	pubkey, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

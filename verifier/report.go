package verifier

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// ReportDomain separates report digests from any other signed payload.
const ReportDomain = "reserve-attestation-report/v1"

var (
	// ErrQuorumNotReached is returned when fewer trusted signers than required signed a report.
	ErrQuorumNotReached = errors.New("quorum not reached")

	// ErrUnknownFeed is returned for feeds with no signer configuration or no published report.
	ErrUnknownFeed = errors.New("unknown feed")

	// ErrStaleReport is returned when the latest report is older than the feed allows.
	ErrStaleReport = errors.New("stale report")

	// ErrMalformedReport is returned for reports that cannot be decoded or hashed.
	ErrMalformedReport = errors.New("malformed report")

	// ErrFutureReport is returned for reports observed later than now plus MaxClockSkew.
	ErrFutureReport = errors.New("report observed in the future")
)

// MaxClockSkew is how far ahead of the local clock a report's observation
// time may be.
const MaxClockSkew = time.Minute

// SignedReport is a feed observation signed by the feed's reporters.
type SignedReport struct {
	FeedID     interfaces.FeedID `json:"feed_id"`
	Value      string            `json:"value"`
	ObservedAt uint64            `json:"observed_at"`
	Signatures []hexutil.Bytes   `json:"signatures"`
}

// ParsedValue decodes the report value as a non-negative integer below 2^256.
func (r *SignedReport) ParsedValue() (*big.Int, error) {
	value, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return nil, fmt.Errorf("%w: value %q is not a decimal integer", ErrMalformedReport, r.Value)
	}
	if value.Sign() < 0 || value.BitLen() > 256 {
		return nil, fmt.Errorf("%w: value %s does not fit uint256", ErrMalformedReport, value)
	}
	return value, nil
}

// Digest returns the hash every reporter signs:
// keccak256(domain || feed_id || uint256(value) || uint64(observed_at)).
func (r *SignedReport) Digest() (common.Hash, error) {
	value, err := r.ParsedValue()
	if err != nil {
		return common.Hash{}, err
	}

	msg := make([]byte, 0, len(ReportDomain)+32+32+8)
	msg = append(msg, ReportDomain...)
	msg = append(msg, r.FeedID[:]...)
	msg = append(msg, common.LeftPadBytes(value.Bytes(), 32)...)
	msg = binary.BigEndian.AppendUint64(msg, r.ObservedAt)
	return crypto.Keccak256Hash(msg), nil
}

// ReportSigner signs reports on behalf of one reporter key.
type ReportSigner struct {
	key *ecdsa.PrivateKey
}

// NewReportSigner wraps a secp256k1 private key.
func NewReportSigner(key *ecdsa.PrivateKey) *ReportSigner {
	return &ReportSigner{key: key}
}

// Address returns the reporter's account.
func (s *ReportSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// Sign appends the reporter's signature to the report.
func (s *ReportSigner) Sign(report *SignedReport) error {
	digest, err := report.Digest()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return fmt.Errorf("could not sign report: %w", err)
	}
	report.Signatures = append(report.Signatures, sig)
	return nil
}

// recoverSigner returns the account that produced sig over digest.
// Both 0/1 and 27/28 recovery ids are accepted.
func recoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d, expected %d", len(sig), crypto.SignatureLength)
	}
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// checkObservedAt rejects reports observed after now plus MaxClockSkew.
func checkObservedAt(report *SignedReport, now time.Time) error {
	limit := now.Add(MaxClockSkew).Unix()
	if limit < 0 || report.ObservedAt > uint64(limit) {
		return fmt.Errorf("%w: feed %s observed at %d, local time is %d", ErrFutureReport, report.FeedID, report.ObservedAt, now.Unix())
	}
	return nil
}

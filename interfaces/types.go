// Package interfaces defines the core interfaces and types for the reserve
// attestation registry. It provides the contract between components without
// implementation details.
package interfaces

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AssetCode is the fixed-width identity of an asset record, the keccak256 hash
// of the human-readable code.
type AssetCode [32]byte

// NewAssetCode derives the registry identity of a human-readable asset code.
func NewAssetCode(humanCode string) AssetCode {
	return AssetCode(crypto.Keccak256Hash([]byte(humanCode)))
}

// NewAssetCodeFromHex parses an already-hashed asset code.
func NewAssetCodeFromHex(source string) (AssetCode, error) {
	raw, err := decodeHex32(source)
	if err != nil {
		return AssetCode{}, fmt.Errorf("invalid asset code: %w", err)
	}
	return AssetCode(raw), nil
}

// String returns hex representation with 0x prefix.
func (c AssetCode) String() string {
	return "0x" + hex.EncodeToString(c[:])
}

// MarshalText implements encoding.TextMarshaler.
func (c AssetCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *AssetCode) UnmarshalText(text []byte) error {
	parsed, err := NewAssetCodeFromHex(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DocumentHash is the 256-bit content fingerprint of a source document.
type DocumentHash [32]byte

// NewDocumentHashFromHex parses a 64 character hex string, 0x prefix optional.
func NewDocumentHashFromHex(source string) (DocumentHash, error) {
	raw, err := decodeHex32(source)
	if err != nil {
		return DocumentHash{}, fmt.Errorf("invalid document hash: %w", err)
	}
	return DocumentHash(raw), nil
}

// String returns hex representation with 0x prefix.
func (h DocumentHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zero bytes.
func (h DocumentHash) IsZero() bool {
	return h == DocumentHash{}
}

// Equal compares two fingerprints.
func (h DocumentHash) Equal(other DocumentHash) bool {
	return bytes.Equal(h[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h DocumentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *DocumentHash) UnmarshalText(text []byte) error {
	parsed, err := NewDocumentHashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// FeedID identifies an attestation feed at the verifier.
type FeedID [32]byte

// NewFeedID derives a feed identifier from a human-readable feed name.
func NewFeedID(name string) FeedID {
	return FeedID(crypto.Keccak256Hash([]byte(name)))
}

// NewFeedIDFromHex parses a 32-byte feed identifier.
func NewFeedIDFromHex(source string) (FeedID, error) {
	raw, err := decodeHex32(source)
	if err != nil {
		return FeedID{}, fmt.Errorf("invalid feed id: %w", err)
	}
	return FeedID(raw), nil
}

// String returns hex representation with 0x prefix.
func (f FeedID) String() string {
	return "0x" + hex.EncodeToString(f[:])
}

// MarshalText implements encoding.TextMarshaler.
func (f FeedID) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FeedID) UnmarshalText(text []byte) error {
	parsed, err := NewFeedIDFromHex(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func decodeHex32(source string) ([32]byte, error) {
	var out [32]byte
	clean := strings.TrimPrefix(strings.TrimPrefix(source, "0x"), "0X")
	if len(clean) != 64 {
		return out, errors.New("hex string must be 64 characters")
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return out, fmt.Errorf("invalid hex format: %w", err)
	}
	copy(out[:], raw)
	return out, nil
}

// ReportingStandard is the resource reporting code a record was prepared under.
type ReportingStandard uint8

const (
	StandardUnknown ReportingStandard = iota
	StandardNI43101
	StandardJORC
	StandardGIA
	StandardLBMA
)

var standardNames = map[ReportingStandard]string{
	StandardNI43101: "NI43-101",
	StandardJORC:    "JORC",
	StandardGIA:     "GIA",
	StandardLBMA:    "LBMA",
}

// ParseReportingStandard maps a standard name to its value. Names outside the
// closed set are rejected.
func ParseReportingStandard(name string) (ReportingStandard, error) {
	for std, stdName := range standardNames {
		if strings.EqualFold(stdName, strings.TrimSpace(name)) {
			return std, nil
		}
	}
	return StandardUnknown, fmt.Errorf("unsupported reporting standard: %q", name)
}

// String returns the canonical standard name.
func (s ReportingStandard) String() string {
	if name, ok := standardNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is one of the supported standards.
func (s ReportingStandard) Valid() bool {
	_, ok := standardNames[s]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (s ReportingStandard) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ReportingStandard) UnmarshalText(text []byte) error {
	parsed, err := ParseReportingStandard(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AssetStatus is the lifecycle state of a registered asset.
type AssetStatus uint8

const (
	StatusUnregistered AssetStatus = iota
	StatusActive
	StatusInactive
)

// String returns the lowercase status name.
func (s AssetStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "unregistered"
	}
}

// RegisterParams carries everything needed to create an asset record.
type RegisterParams struct {
	Code             AssetCode
	Name             string
	Standard         ReportingStandard
	Jurisdiction     string
	Value            *big.Int
	ResourceQuantity *big.Int
	InSituQuantity   *big.Int
	DocumentHash     DocumentHash
	Holder           common.Address
}

// AssetRecord is the canonical stored description of one tokenized reserve.
// Value is a fixed-point quantity with ValueDecimals fractional digits.
type AssetRecord struct {
	Code             AssetCode         `json:"asset_code"`
	Name             string            `json:"name"`
	Standard         ReportingStandard `json:"reporting_standard"`
	Jurisdiction     string            `json:"jurisdiction"`
	Value            *big.Int          `json:"value"`
	ResourceQuantity *big.Int          `json:"resource_quantity"`
	InSituQuantity   *big.Int          `json:"in_situ_quantity"`
	DocumentHash     DocumentHash      `json:"document_hash"`
	LastUpdated      uint64            `json:"last_updated"`
	Holder           common.Address    `json:"holder"`
	Active           bool              `json:"active"`
}

// ValueDecimals is the number of fractional digits carried by AssetRecord.Value.
const ValueDecimals = 18

// Clone returns a deep copy so callers never share big.Int state with the store.
func (r AssetRecord) Clone() AssetRecord {
	r.Value = cloneInt(r.Value)
	r.ResourceQuantity = cloneInt(r.ResourceQuantity)
	r.InSituQuantity = cloneInt(r.InSituQuantity)
	return r
}

// ProofRecord is the latest attestation folded into an asset's value.
// A zero Timestamp means no proof has been submitted yet.
type ProofRecord struct {
	Value     *big.Int `json:"value"`
	Timestamp uint64   `json:"timestamp"`
	FeedID    FeedID   `json:"feed_id"`
}

// Exists reports whether the record holds a submitted proof.
func (p ProofRecord) Exists() bool {
	return p.Timestamp != 0
}

// MarshalJSON renders a missing value as 0 rather than null.
func (p ProofRecord) MarshalJSON() ([]byte, error) {
	type alias ProofRecord
	if p.Value == nil {
		p.Value = new(big.Int)
	}
	return json.Marshal(alias(p))
}

// VerifiedValue is the output of a successful quorum verification.
type VerifiedValue struct {
	FeedID     FeedID           `json:"feed_id"`
	Value      *big.Int         `json:"value"`
	ObservedAt uint64           `json:"observed_at"`
	Signers    []common.Address `json:"signers"`
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

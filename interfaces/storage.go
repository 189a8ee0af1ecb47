package interfaces

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
)

// ContentID is the SHA-256 digest of archived content. For source documents
// it is the fingerprint stored as an asset's DocumentHash.
type ContentID [32]byte

// ComputeID calculates content ID from data.
func ComputeID(data []byte) ContentID {
	return ContentID(sha256.Sum256(data))
}

// NewContentIDFromHex parses a hex content ID, 0x prefix optional.
func NewContentIDFromHex(source string) (ContentID, error) {
	raw, err := decodeHex32(source)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid content ID: %w", err)
	}
	return ContentID(raw), nil
}

// String returns hex representation.
func (id ContentID) String() string {
	return fmt.Sprintf("%x", id[:])
}

// DocumentHash returns the fingerprint view of the content ID.
func (id ContentID) DocumentHash() DocumentHash {
	return DocumentHash(id)
}

// ContentType indicates storage namespace.
type ContentType int

const (
	// DocumentType for source reserve reports
	DocumentType ContentType = iota
	// ReportType for signed attestation reports kept for audit
	ReportType
)

// String returns type name.
func (ct ContentType) String() string {
	switch ct {
	case DocumentType:
		return "documents"
	case ReportType:
		return "reports"
	default:
		return "unknown"
	}
}

// StorageBackendLocation is a backend URI: [scheme]://[auth@]host[:port][/path][?params]
type StorageBackendLocation string

// Validate checks the URI parses and uses a supported scheme.
func (loc StorageBackendLocation) Validate() error {
	parsed, err := url.Parse(string(loc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}
	switch parsed.Scheme {
	case "file", "s3", "vault", "github":
		return nil
	default:
		return fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}
}

var (
	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrReadOnlyBackend is returned by backends that cannot store content.
	ErrReadOnlyBackend = errors.New("storage backend is read-only")
)

// StorageBackend provides content-addressed data storage.
type StorageBackend interface {
	// Fetch retrieves data by content ID and type.
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)

	// Store saves data and returns its content ID.
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, s3://, vault://, github://
	StorageBackendFor(locationURI StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locationURIs []StorageBackendLocation) (StorageBackend, error)
}

package ingestion

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// Fingerprint returns the SHA-256 digest of a source document.
func Fingerprint(document []byte) interfaces.DocumentHash {
	return interfaces.DocumentHash(sha256.Sum256(document))
}

// FingerprintReader hashes a document without buffering it.
func FingerprintReader(r io.Reader) (interfaces.DocumentHash, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return interfaces.DocumentHash{}, fmt.Errorf("could not read document: %w", err)
	}
	var out interfaces.DocumentHash
	copy(out[:], h.Sum(nil))
	return out, nil
}

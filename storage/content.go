package storage

import (
	"errors"
	"fmt"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// ErrContentMismatch is returned when fetched bytes do not hash to the requested content ID.
var ErrContentMismatch = errors.New("content does not match its fingerprint")

// verifyContent checks that data is the content addressed by id.
func verifyContent(id interfaces.ContentID, data []byte) error {
	if actual := interfaces.ComputeID(data); actual != id {
		return fmt.Errorf("%w: expected %s, got %s", ErrContentMismatch, id, actual)
	}
	return nil
}

// objectName is the backend-relative name of a piece of content: "<type>/<id>".
func objectName(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return contentType.String() + "/" + id.String()
}

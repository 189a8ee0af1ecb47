package interfaces

import "errors"

// Registry and coordinator failures. Implementations wrap these with a reason,
// e.g. fmt.Errorf("%w: asset %s", ErrNotFound, code), so callers match with errors.Is.
var (
	// ErrUnauthorized is returned when the caller is not the privileged identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a code has no active record.
	ErrNotFound = errors.New("asset not found")

	// ErrAlreadyExists is returned on a duplicate registration attempt, including
	// re-registration of a deactivated code.
	ErrAlreadyExists = errors.New("asset already exists")

	// ErrInvalidValue is returned for a non-positive monetary value.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidHolder is returned for a zero holder or owner identity.
	ErrInvalidHolder = errors.New("invalid holder")

	// ErrInvalidReference is returned for a nil registry reference.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrIndexOutOfRange is returned when an enumeration index is beyond bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidOracleValue is returned when a verified attestation is non-positive.
	ErrInvalidOracleValue = errors.New("invalid oracle value")

	// ErrAttestationFailed marks failures raised by the attestation verifier.
	// The verifier's own error is kept in the chain.
	ErrAttestationFailed = errors.New("attestation failed")

	// ErrUpdatePending is returned when a mutation was sent to the ledger but
	// its inclusion could not be confirmed in time. It may still take effect.
	ErrUpdatePending = errors.New("registry update pending")
)

package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetRegistry is the authoritative store of asset records. Every mutating
// operation takes the caller's account explicitly and is rejected with
// ErrUnauthorized unless the caller is the current owner.
type AssetRegistry interface {
	// Address returns the ledger identity of this registry instance.
	Address() common.Address

	// Owner returns the current privileged account.
	Owner(ctx context.Context) (common.Address, error)

	// Register creates an active record and appends its code to the enumeration sequence.
	Register(ctx context.Context, caller common.Address, params RegisterParams) error

	// UpdateValue sets the value of an active record.
	UpdateValue(ctx context.Context, caller common.Address, code AssetCode, newValue *big.Int) error

	// Deactivate soft-deletes an active record. There is no way back.
	Deactivate(ctx context.Context, caller common.Address, code AssetCode) error

	// Get returns an active record.
	Get(ctx context.Context, code AssetCode) (AssetRecord, error)

	// VerifyHash compares a candidate fingerprint against an active record's document hash.
	VerifyHash(ctx context.Context, code AssetCode, candidate DocumentHash) (bool, error)

	// Count returns the number of codes ever registered.
	Count(ctx context.Context) (uint64, error)

	// CodeAt returns the code at an enumeration position.
	CodeAt(ctx context.Context, index uint64) (AssetCode, error)

	// TransferOwnership replaces the owner, effective for the next call.
	TransferOwnership(ctx context.Context, caller common.Address, newOwner common.Address) error
}

// AttestationVerifier yields a trusted value for a feed or fails closed.
// Callers must treat any error as opaque and non-retryable.
type AttestationVerifier interface {
	Verify(ctx context.Context, feed FeedID) (VerifiedValue, error)
}

// ProofCoordinator folds verified attestations into a registry.
type ProofCoordinator interface {
	Owner() common.Address
	Registry() AssetRegistry

	SubmitProof(ctx context.Context, caller common.Address, code AssetCode, feed FeedID) (ProofRecord, error)
	GetLatestProof(code AssetCode) ProofRecord
	GetOracleValue(ctx context.Context, feed FeedID) (VerifiedValue, error)

	Register(ctx context.Context, caller common.Address, params RegisterParams) error
	Deactivate(ctx context.Context, caller common.Address, code AssetCode) error
	UpdateRegistryReference(ctx context.Context, caller common.Address, registry AssetRegistry) error
	TransferOwnership(ctx context.Context, caller common.Address, newOwner common.Address) error
}

// Package interfaces defines the core interfaces and types for the reserve
// attestation registry.
//
// This package provides the contracts between components of the system
// without including implementation details:
//
//   - AssetRegistry: the authoritative, owner-gated store of asset records,
//     implemented in memory (registry.MemoryRegistry) and against a deployed
//     registry contract (registry.OnchainRegistryClient)
//   - AttestationVerifier: the quorum verification primitive consumed by the
//     coordinator, which either yields a trusted value or fails closed
//   - ProofCoordinator: folds a verified attestation into the registry together
//     with a proof record, as one all-or-nothing unit
//   - EventSink: receives registry and coordinator events in commit order
//   - StorageBackend: content-addressed archive of source documents
//
// # Type Definitions
//
//   - AssetCode: keccak256 of a human-readable asset code
//   - DocumentHash / ContentID: SHA-256 fingerprint of a source document
//   - FeedID: 32-byte attestation feed identifier
//   - AssetRecord / ProofRecord: registry and coordinator state
//
// # Error Types
//
// Failures are reported with the sentinel errors in errors.go, wrapped with a
// human-readable reason. Match them with errors.Is:
//
//	if errors.Is(err, interfaces.ErrNotFound) {
//	    // ...
//	}
package interfaces

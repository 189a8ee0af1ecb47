// Package coordinator implements the attestation submission coordinator.
//
// A Coordinator holds its own owner, the identity it uses on the registry and
// a reference to one interfaces.AssetRegistry. Once installed as the
// registry's owner it is the only path through which asset values change:
//
//	SubmitProof(caller, code, feed)
//	    check caller is owner          -> ErrUnauthorized
//	    verifier.Verify(feed)          -> ErrAttestationFailed (wrapping the verifier error)
//	    verified value <= 0            -> ErrInvalidOracleValue
//	    registry.UpdateValue(self, ..) -> registry error, proof not recorded
//	    record proof, emit ProofSubmitted
//
// All mutating calls are serialized by a single lock held across the whole
// verify, update and record sequence. Only the latest proof per asset is kept.
package coordinator

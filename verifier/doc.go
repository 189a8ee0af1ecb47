// Package verifier provides the reference quorum attestation verifier.
//
// Reporters observe an external value for a feed and each sign the report
// digest
//
//	keccak256("reserve-attestation-report/v1" || feed_id || uint256(value) || uint64(observed_at))
//
// with their secp256k1 key. QuorumVerifier accepts the latest report of a feed
// only if at least Threshold distinct trusted signers are recovered from its
// signatures, and optionally only if it is younger than MaxAge. Duplicate,
// untrusted or unrecoverable signatures are ignored rather than rejected.
//
// Reports are read from a ReportSource: ReportBoard keeps published reports in
// memory, HTTPReportSource reads them from a remote board.
package verifier

// Package storage implements the content-addressed document archive.
//
// Source documents (reserve reports) and signed attestation reports are kept
// under their SHA-256 content ID. For documents the content ID is the same
// 32-byte fingerprint recorded as an asset's DocumentHash, so an auditor can
// fetch the archived document by the hash read from the registry and check it
// with VerifyHash. Every backend re-hashes content on Fetch and rejects bytes
// that do not match with ErrContentMismatch.
//
// # Backends
//
//   - FileBackend: local directory, <base>/<type>/<id[:2]>/<id>
//   - S3Backend: S3 or S3-compatible bucket, <prefix>/<type>/<id>; read-only without credentials
//   - VaultBackend: HashiCorp Vault KV v2 for documents that must stay private
//   - GitHubBackend: read-only, files committed to a repository
//   - MultiStorageBackend: fetch from the first backend holding the content, store to all
//
// # Location URIs
//
//	file:///var/lib/reserve-registry/archive
//	s3://AKIA...:secret@reserve-docs/archive?region=eu-west-1
//	vault://s.token@vault.internal:8200/secret/reserve-documents
//	github://owner/reserve-documents/archive?ref=main
//
// StorageBackendFactory builds backends from these URIs.
package storage

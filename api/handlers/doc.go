/*
Package handlers implements request processing for the reserve attestation
registry API.

# Public routes

  - GET  /api/assets - count and codes in enumeration order
  - GET  /api/assets/{code} - active asset record
  - GET  /api/assets/{code}/verify?hash= - compare a fingerprint with the record
  - GET  /api/assets/{code}/verify-document - fingerprint the archived document and compare
  - GET  /api/proofs/{code} - latest proof, empty when none was submitted
  - GET  /api/feeds/{feed}/value - run the verifier for a feed
  - GET  /api/documents/{hash} - download an archived document
  - POST /api/reports - publish a signed feed report to the board
  - GET  /api/reports/feeds/{feed}/latest - latest report on the board

Codes and feeds are given either as 0x-prefixed 32-byte ids or as the
human-readable name they are derived from.

# Admin routes

Admin routes require a signed request (see package api). The recovered
address is passed to the coordinator as the caller.

  - POST /api/admin/assets - register an asset from an ingestion payload
  - POST /api/admin/assets/{code}/deactivate
  - POST /api/admin/proofs/{code} - apply a feed's verified value
  - POST /api/admin/owner - transfer coordinator ownership
  - POST /api/admin/registry - point the coordinator at another registry contract
  - POST /api/admin/documents - archive a source document

Errors map to 401 (bad signature), 403 (not the owner), 404, 409, 400 and 502
(attestation failures), see StatusFor.
*/
package handlers

/*
Package api exposes the reserve attestation registry over HTTP.

It is organized into three subpackages:

 1. handlers - request processing: public reads, report publication and
    signature-authenticated admin operations
 2. servers - HTTP server lifecycle, health and drain endpoints, metrics
 3. clients - a Go client for the API, including admin request signing

This package holds what the three share: wire types, header names and the
admin request signature scheme.

# Admin authentication

Admin requests carry two headers. X-Registry-Timestamp holds the unix time in
seconds and X-Registry-Signature a 65-byte secp256k1 signature, hex encoded,
over

	keccak256(method || path || timestamp || body)

The recovered address is the caller passed to the coordinator, which decides
whether it is the owner. Timestamps outside a five minute window are rejected.
*/
package api

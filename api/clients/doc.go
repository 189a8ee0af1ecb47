/*
Package clients provides a Go client for the reserve attestation registry API.

RegistryClient covers the public read routes without configuration. Admin
methods need a signing key; each request is signed with api.SignAdminRequest
and the server treats the key's address as the caller.
*/
package clients

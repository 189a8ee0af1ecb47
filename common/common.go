// Package common holds process-wide helpers shared by the binaries: build
// version information and logger setup.
package common

// PackageName is used as the service tag and metrics namespace.
const PackageName = "reserve-attestation-registry"

// Version is set at build time with -ldflags "-X .../common.Version=..."
var Version = "dev"

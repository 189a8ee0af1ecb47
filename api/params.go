package api

import (
	"strings"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// ParseAssetCode accepts either a 0x-prefixed 32-byte code or a human-readable
// code, which is hashed into its registry identity.
func ParseAssetCode(source string) (interfaces.AssetCode, error) {
	if isHex32(source) {
		return interfaces.NewAssetCodeFromHex(source)
	}
	return interfaces.NewAssetCode(source), nil
}

// ParseFeedID accepts either a 0x-prefixed 32-byte feed id or a feed name.
func ParseFeedID(source string) (interfaces.FeedID, error) {
	if isHex32(source) {
		return interfaces.NewFeedIDFromHex(source)
	}
	return interfaces.NewFeedID(source), nil
}

func isHex32(source string) bool {
	return len(source) == 66 && strings.HasPrefix(strings.ToLower(source), "0x")
}

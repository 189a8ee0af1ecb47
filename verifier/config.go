package verifier

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/samber/lo"
)

// feedEntry is one element of a feed trust file:
//
//	[{"feed": "XAU/USD", "signers": ["0x..."], "threshold": 2, "max_age": "1h"}]
//
// feed is either a feed name or a 0x-prefixed feed id.
type feedEntry struct {
	Feed      string   `json:"feed"`
	Signers   []string `json:"signers"`
	Threshold int      `json:"threshold"`
	MaxAge    string   `json:"max_age"`
}

// LoadFeedConfigs reads a feed trust file. Every entry is validated and
// duplicate signers are collapsed.
func LoadFeedConfigs(r io.Reader) (map[interfaces.FeedID]FeedConfig, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var entries []feedEntry
	if err := decoder.Decode(&entries); err != nil {
		return nil, fmt.Errorf("could not decode feed configuration: %w", err)
	}

	configs := make(map[interfaces.FeedID]FeedConfig, len(entries))
	for i, entry := range entries {
		feed, err := parseFeed(entry.Feed)
		if err != nil {
			return nil, fmt.Errorf("feed entry %d: %w", i, err)
		}
		if _, dup := configs[feed]; dup {
			return nil, fmt.Errorf("feed entry %d: %q configured twice", i, entry.Feed)
		}

		for _, signer := range entry.Signers {
			if !common.IsHexAddress(signer) {
				return nil, fmt.Errorf("feed entry %d: %q is not an account address", i, signer)
			}
		}
		signers := lo.Uniq(lo.Map(entry.Signers, func(signer string, _ int) common.Address {
			return common.HexToAddress(signer)
		}))

		var maxAge time.Duration
		if entry.MaxAge != "" {
			maxAge, err = time.ParseDuration(entry.MaxAge)
			if err != nil || maxAge < 0 {
				return nil, fmt.Errorf("feed entry %d: invalid max_age %q", i, entry.MaxAge)
			}
		}

		config := FeedConfig{Signers: signers, Threshold: entry.Threshold, MaxAge: maxAge}
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("feed entry %d (%s): %w", i, entry.Feed, err)
		}
		configs[feed] = config
	}
	return configs, nil
}

// Configure installs every feed configuration on the verifier.
func (v *QuorumVerifier) Configure(configs map[interfaces.FeedID]FeedConfig) error {
	for feed, config := range configs {
		if err := v.SetFeed(feed, config); err != nil {
			return err
		}
	}
	return nil
}

func parseFeed(source string) (interfaces.FeedID, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return interfaces.FeedID{}, fmt.Errorf("feed must not be empty")
	case len(source) == 66 && strings.HasPrefix(strings.ToLower(source), "0x"):
		return interfaces.NewFeedIDFromHex(source)
	default:
		return interfaces.NewFeedID(source), nil
	}
}

package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// FeedConfig is the trust configuration of a single feed.
type FeedConfig struct {
	// Signers is the set of trusted reporter accounts.
	Signers []common.Address `json:"signers"`

	// Threshold is the minimum number of distinct trusted signatures.
	Threshold int `json:"threshold"`

	// MaxAge rejects reports observed longer ago than this. Zero disables the check.
	MaxAge time.Duration `json:"max_age"`
}

// Validate checks the threshold can be met by the signer set.
func (c FeedConfig) Validate() error {
	if c.Threshold < 1 {
		return fmt.Errorf("threshold must be at least 1, got %d", c.Threshold)
	}
	if c.Threshold > len(c.Signers) {
		return fmt.Errorf("threshold %d exceeds %d signers", c.Threshold, len(c.Signers))
	}
	return nil
}

type feedTrust struct {
	signers   map[common.Address]struct{}
	threshold int
	maxAge    time.Duration
}

// QuorumVerifier accepts a feed's latest report only when at least the
// configured number of trusted reporters signed it. It implements
// interfaces.AttestationVerifier and fails closed on any doubt.
type QuorumVerifier struct {
	mutex  sync.RWMutex
	source ReportSource
	board  *ReportBoard
	feeds  map[interfaces.FeedID]feedTrust
	now    func() time.Time
	log    *slog.Logger
}

// NewQuorumVerifier creates a verifier reading reports from source. With a
// nil source the verifier reads from its own ReportBoard, which only accepts
// reports that pass CheckReport; see Board.
func NewQuorumVerifier(source ReportSource, log *slog.Logger) *QuorumVerifier {
	if log == nil {
		log = slog.Default()
	}
	v := &QuorumVerifier{
		source: source,
		feeds:  make(map[interfaces.FeedID]feedTrust),
		now:    time.Now,
		log:    log,
	}
	if source == nil {
		v.board = NewReportBoard(v)
		v.source = v.board
	}
	return v
}

// Board returns the verifier's own report board, or nil when it reads from
// an external source.
func (v *QuorumVerifier) Board() *ReportBoard {
	return v.board
}

// SetFeed installs or replaces the trust configuration of a feed.
func (v *QuorumVerifier) SetFeed(feed interfaces.FeedID, config FeedConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration for feed %s: %w", feed, err)
	}

	signers := make(map[common.Address]struct{}, len(config.Signers))
	for _, signer := range config.Signers {
		signers[signer] = struct{}{}
	}
	if len(signers) < config.Threshold {
		return fmt.Errorf("invalid configuration for feed %s: threshold %d exceeds %d distinct signers", feed, config.Threshold, len(signers))
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.feeds[feed] = feedTrust{signers: signers, threshold: config.Threshold, maxAge: config.MaxAge}
	return nil
}

// Verify fetches and checks the latest report for feed.
func (v *QuorumVerifier) Verify(ctx context.Context, feed interfaces.FeedID) (interfaces.VerifiedValue, error) {
	if _, err := v.trustFor(feed); err != nil {
		return interfaces.VerifiedValue{}, err
	}

	report, err := v.source.LatestReport(ctx, feed)
	if err != nil {
		return interfaces.VerifiedValue{}, err
	}
	if report.FeedID != feed {
		return interfaces.VerifiedValue{}, fmt.Errorf("%w: requested feed %s, report is for %s", ErrMalformedReport, feed, report.FeedID)
	}
	return v.CheckReport(report)
}

// CheckReport applies the feed's trust configuration to a single report:
// well-formed value, observed neither in the future nor beyond MaxAge, and
// signed by at least threshold distinct trusted reporters.
func (v *QuorumVerifier) CheckReport(report *SignedReport) (interfaces.VerifiedValue, error) {
	feed := report.FeedID
	trust, err := v.trustFor(feed)
	if err != nil {
		return interfaces.VerifiedValue{}, err
	}

	value, err := report.ParsedValue()
	if err != nil {
		return interfaces.VerifiedValue{}, err
	}
	digest, err := report.Digest()
	if err != nil {
		return interfaces.VerifiedValue{}, err
	}

	now := v.now()
	if err := checkObservedAt(report, now); err != nil {
		return interfaces.VerifiedValue{}, err
	}
	if trust.maxAge > 0 {
		observed := time.Unix(int64(report.ObservedAt), 0)
		if age := now.Sub(observed); age > trust.maxAge {
			return interfaces.VerifiedValue{}, fmt.Errorf("%w: feed %s observed %s ago, limit %s", ErrStaleReport, feed, age.Truncate(time.Second), trust.maxAge)
		}
	}

	seen := make(map[common.Address]struct{}, len(report.Signatures))
	signers := make([]common.Address, 0, trust.threshold)
	for i, sig := range report.Signatures {
		signer, err := recoverSigner(digest, sig)
		if err != nil {
			v.log.Debug("Discarding unrecoverable signature", slog.String("feed", feed.String()), slog.Int("index", i), "err", err)
			continue
		}
		if _, trusted := trust.signers[signer]; !trusted {
			v.log.Debug("Discarding untrusted signature", slog.String("feed", feed.String()), slog.String("signer", signer.Hex()))
			continue
		}
		if _, dup := seen[signer]; dup {
			continue
		}
		seen[signer] = struct{}{}
		signers = append(signers, signer)
	}

	if len(signers) < trust.threshold {
		return interfaces.VerifiedValue{}, fmt.Errorf("%w: feed %s has %d of %d required signatures", ErrQuorumNotReached, feed, len(signers), trust.threshold)
	}

	return interfaces.VerifiedValue{
		FeedID:     feed,
		Value:      value,
		ObservedAt: report.ObservedAt,
		Signers:    signers,
	}, nil
}

func (v *QuorumVerifier) trustFor(feed interfaces.FeedID) (feedTrust, error) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()
	trust, configured := v.feeds[feed]
	if !configured {
		return feedTrust{}, fmt.Errorf("%w: %s has no signer configuration", ErrUnknownFeed, feed)
	}
	return trust, nil
}

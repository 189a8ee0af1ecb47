package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// ReportSource yields the most recent signed report for a feed.
type ReportSource interface {
	LatestReport(ctx context.Context, feed interfaces.FeedID) (*SignedReport, error)
}

// ReportChecker decides whether a report may be held by a ReportBoard.
// QuorumVerifier implements it.
type ReportChecker interface {
	CheckReport(report *SignedReport) (interfaces.VerifiedValue, error)
}

// ReportBoard is an in-memory ReportSource that reporters publish to.
// Only the newest report per feed is kept.
type ReportBoard struct {
	mutex   sync.RWMutex
	reports map[interfaces.FeedID]*SignedReport
	checker ReportChecker
	now     func() time.Time
}

// NewReportBoard creates an empty board. Published reports must pass checker
// before they replace the held one. A nil checker only checks the value and
// the observation time, leaving signatures to whoever reads the board.
func NewReportBoard(checker ReportChecker) *ReportBoard {
	return &ReportBoard{
		reports: make(map[interfaces.FeedID]*SignedReport),
		checker: checker,
		now:     time.Now,
	}
}

// Publish stores report as the latest for its feed. Reports observed before
// the currently held one are rejected with ErrStaleReport, and reports the
// checker rejects never replace it.
func (b *ReportBoard) Publish(report *SignedReport) error {
	if b.checker != nil {
		if _, err := b.checker.CheckReport(report); err != nil {
			return err
		}
	} else {
		if _, err := report.ParsedValue(); err != nil {
			return err
		}
		if err := checkObservedAt(report, b.now()); err != nil {
			return err
		}
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if current, ok := b.reports[report.FeedID]; ok && current.ObservedAt > report.ObservedAt {
		return fmt.Errorf("%w: feed %s already has a report observed at %d", ErrStaleReport, report.FeedID, current.ObservedAt)
	}
	b.reports[report.FeedID] = cloneReport(report)
	return nil
}

// LatestReport implements ReportSource.
func (b *ReportBoard) LatestReport(_ context.Context, feed interfaces.FeedID) (*SignedReport, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	report, ok := b.reports[feed]
	if !ok {
		return nil, fmt.Errorf("%w: no report published for %s", ErrUnknownFeed, feed)
	}
	return cloneReport(report), nil
}

func cloneReport(report *SignedReport) *SignedReport {
	clone := *report
	clone.Signatures = make([]hexutil.Bytes, len(report.Signatures))
	for i, sig := range report.Signatures {
		clone.Signatures[i] = append(hexutil.Bytes(nil), sig...)
	}
	return &clone
}

// HTTPReportSource reads reports from a remote report board at
// <BaseURL>/feeds/<feed>/latest.
type HTTPReportSource struct {
	BaseURL string
	Client  *http.Client
}

// LatestReport implements ReportSource.
func (s *HTTPReportSource) LatestReport(ctx context.Context, feed interfaces.FeedID) (*SignedReport, error) {
	url := fmt.Sprintf("%s/feeds/%s/latest", strings.TrimRight(s.BaseURL, "/"), feed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request report for feed %s: %w", feed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: report board has no report for %s", ErrUnknownFeed, feed)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("report board returned error %d: %s", resp.StatusCode, string(body))
	}

	var report SignedReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	return &report, nil
}

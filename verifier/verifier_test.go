package verifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFeed = interfaces.NewFeedID("XAU-KIBALI-RESERVE")

func newSigners(t *testing.T, n int) []*ReportSigner {
	t.Helper()
	signers := make([]*ReportSigner, n)
	for i := range signers {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		signers[i] = NewReportSigner(key)
	}
	return signers
}

func addresses(signers []*ReportSigner) []common.Address {
	out := make([]common.Address, len(signers))
	for i, s := range signers {
		out[i] = s.Address()
	}
	return out
}

func signedReport(t *testing.T, value string, observedAt uint64, signers ...*ReportSigner) *SignedReport {
	t.Helper()
	report := &SignedReport{FeedID: testFeed, Value: value, ObservedAt: observedAt}
	for _, s := range signers {
		require.NoError(t, s.Sign(report))
	}
	return report
}

// setupVerifier pairs a verifier with an unchecked board so reports the
// verifier must refuse can still be published.
func setupVerifier(t *testing.T, trusted []*ReportSigner, threshold int) (*QuorumVerifier, *ReportBoard) {
	t.Helper()
	board := NewReportBoard(nil)
	v := NewQuorumVerifier(board, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(trusted), Threshold: threshold}))
	return v, board
}

type staticSource struct {
	report *SignedReport
}

func (s staticSource) LatestReport(context.Context, interfaces.FeedID) (*SignedReport, error) {
	return s.report, nil
}

func TestSignedReport_Digest(t *testing.T) {
	report := &SignedReport{FeedID: testFeed, Value: "7000000000", ObservedAt: 1_700_000_000}
	digest, err := report.Digest()
	require.NoError(t, err)

	again, err := report.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest, again)

	report.Value = "7000000001"
	changed, err := report.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, digest, changed)

	for _, bad := range []string{"", "7e9", "-1", "0x10", "1.5"} {
		report.Value = bad
		_, err := report.Digest()
		assert.ErrorIs(t, err, ErrMalformedReport, "value %q", bad)
	}
}

func TestQuorumVerifier_ReachesQuorum(t *testing.T) {
	signers := newSigners(t, 3)
	v, board := setupVerifier(t, signers, 2)

	require.NoError(t, board.Publish(signedReport(t, "7000000000", 1_700_000_000, signers[0], signers[2])))

	verified, err := v.Verify(context.Background(), testFeed)
	require.NoError(t, err)
	assert.Equal(t, testFeed, verified.FeedID)
	assert.Equal(t, "7000000000", verified.Value.String())
	assert.Equal(t, uint64(1_700_000_000), verified.ObservedAt)
	assert.ElementsMatch(t, []common.Address{signers[0].Address(), signers[2].Address()}, verified.Signers)
}

func TestQuorumVerifier_FailsClosed(t *testing.T) {
	signers := newSigners(t, 3)
	outsiders := newSigners(t, 2)

	tests := []struct {
		name    string
		report  func() *SignedReport
		wantErr error
	}{
		{
			name:    "below threshold",
			report:  func() *SignedReport { return signedReport(t, "7000000000", 1, signers[0]) },
			wantErr: ErrQuorumNotReached,
		},
		{
			name:    "duplicate signatures count once",
			report:  func() *SignedReport { return signedReport(t, "7000000000", 1, signers[1], signers[1]) },
			wantErr: ErrQuorumNotReached,
		},
		{
			name:    "untrusted signers ignored",
			report:  func() *SignedReport { return signedReport(t, "7000000000", 1, signers[0], outsiders[0], outsiders[1]) },
			wantErr: ErrQuorumNotReached,
		},
		{
			name: "signature over a different value",
			report: func() *SignedReport {
				report := signedReport(t, "7000000000", 1, signers[0], signers[1])
				report.Value = "9000000000"
				return report
			},
			wantErr: ErrQuorumNotReached,
		},
		{
			name: "garbage signatures",
			report: func() *SignedReport {
				report := signedReport(t, "7000000000", 1, signers[0])
				report.Signatures = append(report.Signatures, []byte{0x01, 0x02})
				return report
			},
			wantErr: ErrQuorumNotReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, board := setupVerifier(t, signers, 2)
			require.NoError(t, board.Publish(tt.report()))

			_, err := v.Verify(context.Background(), testFeed)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuorumVerifier_UnknownFeed(t *testing.T) {
	signers := newSigners(t, 1)
	v, _ := setupVerifier(t, signers, 1)

	_, err := v.Verify(context.Background(), interfaces.NewFeedID("UNCONFIGURED"))
	assert.ErrorIs(t, err, ErrUnknownFeed)

	// configured, nothing published yet
	_, err = v.Verify(context.Background(), testFeed)
	assert.ErrorIs(t, err, ErrUnknownFeed)
}

func TestQuorumVerifier_FeedMismatch(t *testing.T) {
	signers := newSigners(t, 1)
	report := signedReport(t, "7000000000", 1, signers[0])
	report.FeedID = interfaces.NewFeedID("OTHER")

	v := NewQuorumVerifier(staticSource{report: report}, nil)
	require.NoError(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(signers), Threshold: 1}))

	_, err := v.Verify(context.Background(), testFeed)
	assert.ErrorIs(t, err, ErrMalformedReport)
}

func TestQuorumVerifier_StaleReport(t *testing.T) {
	signers := newSigners(t, 1)
	board := NewReportBoard(nil)
	v := NewQuorumVerifier(board, nil)
	v.now = func() time.Time { return time.Unix(1_700_010_000, 0) }
	require.NoError(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(signers), Threshold: 1, MaxAge: time.Hour}))

	require.NoError(t, board.Publish(signedReport(t, "7000000000", 1_700_000_000, signers[0])))
	_, err := v.Verify(context.Background(), testFeed)
	assert.ErrorIs(t, err, ErrStaleReport)

	require.NoError(t, board.Publish(signedReport(t, "7000000000", 1_700_009_000, signers[0])))
	_, err = v.Verify(context.Background(), testFeed)
	assert.NoError(t, err)
}

func TestQuorumVerifier_AcceptsLegacyRecoveryID(t *testing.T) {
	signers := newSigners(t, 1)
	v, board := setupVerifier(t, signers, 1)

	report := signedReport(t, "7000000000", 1, signers[0])
	report.Signatures[0][crypto.RecoveryIDOffset] += 27
	require.NoError(t, board.Publish(report))

	verified, err := v.Verify(context.Background(), testFeed)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{signers[0].Address()}, verified.Signers)
}

func TestQuorumVerifier_ZeroValuePassesThrough(t *testing.T) {
	// Rejecting non-positive values is the coordinator's job.
	signers := newSigners(t, 1)
	v, board := setupVerifier(t, signers, 1)
	require.NoError(t, board.Publish(signedReport(t, "0", 1, signers[0])))

	verified, err := v.Verify(context.Background(), testFeed)
	require.NoError(t, err)
	assert.Equal(t, 0, verified.Value.Sign())
}

func TestQuorumVerifier_SetFeedValidation(t *testing.T) {
	signers := newSigners(t, 2)
	v := NewQuorumVerifier(NewReportBoard(nil), nil)

	assert.Error(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(signers), Threshold: 0}))
	assert.Error(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(signers), Threshold: 3}))

	same := []common.Address{signers[0].Address(), signers[0].Address()}
	assert.Error(t, v.SetFeed(testFeed, FeedConfig{Signers: same, Threshold: 2}))

	assert.NoError(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(signers), Threshold: 2}))
}

func TestReportBoard_Publish(t *testing.T) {
	signers := newSigners(t, 1)
	board := NewReportBoard(nil)

	require.NoError(t, board.Publish(signedReport(t, "100", 20, signers[0])))
	err := board.Publish(signedReport(t, "90", 10, signers[0]))
	assert.ErrorIs(t, err, ErrStaleReport)

	err = board.Publish(&SignedReport{FeedID: testFeed, Value: "abc", ObservedAt: 30})
	assert.ErrorIs(t, err, ErrMalformedReport)

	latest, err := board.LatestReport(context.Background(), testFeed)
	require.NoError(t, err)
	assert.Equal(t, "100", latest.Value)

	// returned reports are copies
	latest.Signatures[0][0] ^= 0xff
	again, err := board.LatestReport(context.Background(), testFeed)
	require.NoError(t, err)
	assert.NotEqual(t, latest.Signatures[0], again.Signatures[0])
}

func TestReportBoard_GuardedByQuorum(t *testing.T) {
	signers := newSigners(t, 2)
	v := NewQuorumVerifier(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(signers), Threshold: 2}))
	board := v.Board()
	require.NotNil(t, board)

	now := uint64(time.Now().Unix())

	err := board.Publish(&SignedReport{FeedID: testFeed, Value: "1", ObservedAt: math.MaxUint64})
	assert.ErrorIs(t, err, ErrFutureReport)

	err = board.Publish(signedReport(t, "1", now, signers[0]))
	assert.ErrorIs(t, err, ErrQuorumNotReached)

	err = board.Publish(&SignedReport{FeedID: interfaces.NewFeedID("UNCONFIGURED"), Value: "1", ObservedAt: now})
	assert.ErrorIs(t, err, ErrUnknownFeed)

	_, err = board.LatestReport(context.Background(), testFeed)
	assert.ErrorIs(t, err, ErrUnknownFeed)

	require.NoError(t, board.Publish(signedReport(t, "7000000000", now, signers...)))
	verified, err := v.Verify(context.Background(), testFeed)
	require.NoError(t, err)
	assert.Equal(t, "7000000000", verified.Value.String())
}

func TestReportBoard_RejectsFutureReports(t *testing.T) {
	signers := newSigners(t, 1)
	board := NewReportBoard(nil)
	board.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	err := board.Publish(signedReport(t, "1", math.MaxUint64, signers[0]))
	assert.ErrorIs(t, err, ErrFutureReport)

	err = board.Publish(signedReport(t, "1", 1_700_000_000+uint64(2*MaxClockSkew/time.Second), signers[0]))
	assert.ErrorIs(t, err, ErrFutureReport)

	require.NoError(t, board.Publish(signedReport(t, "1", 1_700_000_030, signers[0])))
}

func TestQuorumVerifier_RejectsFutureReports(t *testing.T) {
	signers := newSigners(t, 1)
	report := signedReport(t, "7000000000", 1_700_003_600, signers[0])

	v := NewQuorumVerifier(staticSource{report: report}, nil)
	v.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	require.NoError(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(signers), Threshold: 1}))

	_, err := v.Verify(context.Background(), testFeed)
	assert.ErrorIs(t, err, ErrFutureReport)

	v.now = func() time.Time { return time.Unix(1_700_003_600, 0) }
	_, err = v.Verify(context.Background(), testFeed)
	assert.NoError(t, err)
}

func TestHTTPReportSource(t *testing.T) {
	signers := newSigners(t, 2)
	report := signedReport(t, "7000000000", 1_700_000_000, signers...)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds/"+testFeed.String()+"/latest" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}))
	defer server.Close()

	source := &HTTPReportSource{BaseURL: server.URL + "/"}
	fetched, err := source.LatestReport(context.Background(), testFeed)
	require.NoError(t, err)
	assert.Equal(t, report.Value, fetched.Value)
	assert.Equal(t, report.ObservedAt, fetched.ObservedAt)
	require.Len(t, fetched.Signatures, 2)

	v := NewQuorumVerifier(source, nil)
	require.NoError(t, v.SetFeed(testFeed, FeedConfig{Signers: addresses(signers), Threshold: 2}))
	verified, err := v.Verify(context.Background(), testFeed)
	require.NoError(t, err)
	assert.Equal(t, "7000000000", verified.Value.String())

	_, err = source.LatestReport(context.Background(), interfaces.NewFeedID("MISSING"))
	assert.ErrorIs(t, err, ErrUnknownFeed)
}

func TestReportSigner_Address(t *testing.T) {
	key, err := crypto.HexToECDSA("289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032")
	require.NoError(t, err)
	signer := NewReportSigner(key)
	assert.Equal(t, common.HexToAddress("0x970e8128ab834e8eac17ab8e3812f010678cf791"), signer.Address())
}

package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/reserve-attestation-registry/api/handlers"
	"github.com/ruteri/reserve-attestation-registry/coordinator"
	"github.com/ruteri/reserve-attestation-registry/ingestion"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/ruteri/reserve-attestation-registry/registry"
	"github.com/ruteri/reserve-attestation-registry/storage"
	"github.com/ruteri/reserve-attestation-registry/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeed = "XAU/USD"

func generateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

// startRegistryServer runs the full API over a memory registry and returns
// its URL, the admin key and a single trusted reporter.
func startRegistryServer(t *testing.T) (string, *ecdsa.PrivateKey, *verifier.ReportSigner) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adminKey := generateKey(t)
	reporter := verifier.NewReportSigner(generateKey(t))
	self := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	quorum := verifier.NewQuorumVerifier(nil, logger)
	require.NoError(t, quorum.SetFeed(interfaces.NewFeedID(testFeed), verifier.FeedConfig{
		Signers:   []common.Address{reporter.Address()},
		Threshold: 1,
		MaxAge:    time.Hour,
	}))

	reg, err := registry.NewMemoryRegistry(common.HexToAddress("0xaa"), self, registry.WithLogger(logger))
	require.NoError(t, err)
	coord, err := coordinator.NewCoordinator(self, crypto.PubkeyToAddress(adminKey.PublicKey), reg, quorum, coordinator.WithLogger(logger))
	require.NoError(t, err)
	archive, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)

	router := chi.NewRouter()
	handlers.NewHandler(coord, quorum.Board(), archive, nil, logger).RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server.URL, adminKey, reporter
}

func TestRegistryClient_EndToEnd(t *testing.T) {
	serverURL, adminKey, reporter := startRegistryServer(t)
	client := NewRegistryClient(serverURL+"/", adminKey)
	ctx := context.Background()

	document := []byte("JORC 2012 resource statement, Kibali, effective 31 December 2024")
	uploaded, err := client.UploadDocument(ctx, document)
	require.NoError(t, err)
	assert.Equal(t, ingestion.Fingerprint(document), uploaded.DocumentHash)

	registered, err := client.RegisterAsset(ctx, &ingestion.Payload{
		AssetCode:        "AU-KIBALI",
		Name:             "Kibali gold resource",
		Standard:         "JORC",
		Jurisdiction:     "CD",
		ValueUSD:         "1250000000.5",
		ResourceQuantity: "1000",
		InSituQuantity:   "900",
		DocumentHash:     uploaded.DocumentHash.String(),
		Holder:           "0x3000000000000000000000000000000000000003",
		EffectiveDate:    "2024-12-31",
	})
	require.NoError(t, err)
	assert.Equal(t, interfaces.NewAssetCode("AU-KIBALI"), registered.AssetCode)

	list, err := client.ListAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), list.Count)

	asset, err := client.GetAsset(ctx, "AU-KIBALI")
	require.NoError(t, err)
	assert.Equal(t, "1250000000.5", asset.ValueDecimal)
	assert.Equal(t, interfaces.StandardJORC, asset.Standard)

	match, err := client.VerifyHash(ctx, "AU-KIBALI", uploaded.DocumentHash)
	require.NoError(t, err)
	assert.True(t, match.Match)

	verified, err := client.VerifyDocument(ctx, registered.AssetCode.String())
	require.NoError(t, err)
	assert.True(t, verified.Match)

	fetched, err := client.FetchDocument(ctx, uploaded.DocumentHash)
	require.NoError(t, err)
	assert.Equal(t, document, fetched)

	report := &verifier.SignedReport{
		FeedID:     interfaces.NewFeedID(testFeed),
		Value:      "1300000000000000000000000000",
		ObservedAt: uint64(time.Now().Unix()),
	}
	require.NoError(t, reporter.Sign(report))
	require.NoError(t, client.PublishReport(ctx, report))

	oracle, err := client.GetOracleValue(ctx, testFeed)
	require.NoError(t, err)
	assert.Equal(t, report.Value, oracle.Value.String())

	proof, err := client.SubmitProof(ctx, "AU-KIBALI", testFeed)
	require.NoError(t, err)
	assert.True(t, proof.Exists)

	latest, err := client.GetLatestProof(ctx, "AU-KIBALI")
	require.NoError(t, err)
	assert.Equal(t, proof.Proof.Timestamp, latest.Proof.Timestamp)

	asset, err = client.GetAsset(ctx, "AU-KIBALI")
	require.NoError(t, err)
	assert.Equal(t, "1300000000", asset.ValueDecimal)

	require.NoError(t, client.Deactivate(ctx, "AU-KIBALI"))
	_, err = client.GetAsset(ctx, "AU-KIBALI")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	newOwner := generateKey(t)
	require.NoError(t, client.TransferOwnership(ctx, crypto.PubkeyToAddress(newOwner.PublicKey)))
	err = client.TransferOwnership(ctx, crypto.PubkeyToAddress(adminKey.PublicKey))
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	err = client.UpdateRegistry(ctx, common.HexToAddress("0xcc"))
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotImplemented, apiErr.StatusCode)
}

func TestRegistryClient_ReadOnly(t *testing.T) {
	serverURL, _, _ := startRegistryServer(t)
	client := NewRegistryClient(serverURL, nil)
	ctx := context.Background()

	_, err := client.UploadDocument(ctx, []byte("doc"))
	assert.ErrorIs(t, err, ErrNoSigningKey)
	assert.ErrorIs(t, client.Deactivate(ctx, "AU-KIBALI"), ErrNoSigningKey)

	_, err = client.FetchDocument(ctx, ingestion.Fingerprint([]byte("missing")))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestRegistryClient_FetchDocumentChecksFingerprint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("substituted content"))
	}))
	defer server.Close()

	client := NewRegistryClient(server.URL, nil)
	_, err := client.FetchDocument(context.Background(), ingestion.Fingerprint([]byte("original content")))
	assert.ErrorContains(t, err, "does not match")
}

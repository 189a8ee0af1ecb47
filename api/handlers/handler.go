package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/reserve-attestation-registry/api"
	"github.com/ruteri/reserve-attestation-registry/ingestion"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/ruteri/reserve-attestation-registry/storage"
	"github.com/ruteri/reserve-attestation-registry/verifier"
)

const (
	maxJSONBody     = 1 << 20
	maxDocumentBody = 32 << 20

	// maxListPrealloc caps the slice capacity reserved from an untrusted count.
	maxListPrealloc = 1024
)

var errNoBoard = fmt.Errorf("%w: no report board configured", interfaces.ErrBackendUnavailable)

// RegistryResolver opens a registry by its ledger address. It is satisfied by
// registry.RegistryFactory.
type RegistryResolver interface {
	RegistryFor(address common.Address) (interfaces.AssetRegistry, error)
}

// Handler serves the registry API on top of a coordinator.
//
// Reads go to the coordinator's current registry. Admin operations are signed
// by the caller and forwarded with the recovered address; the coordinator
// decides whether that address is its owner.
type Handler struct {
	coordinator interfaces.ProofCoordinator
	board       *verifier.ReportBoard
	archive     interfaces.StorageBackend
	registries  RegistryResolver
	log         *slog.Logger
	now         func() time.Time
}

// NewHandler creates a new HTTP request handler.
//
// Parameters:
//   - coordinator: Attestation submission coordinator owning the registry
//   - board: Report board signed feed reports are published to, may be nil to disable report routes
//   - archive: Document archive, may be nil to disable document routes
//   - registries: Resolver for registry reference updates, may be nil
//   - log: Structured logger for operational insights
func NewHandler(coordinator interfaces.ProofCoordinator, board *verifier.ReportBoard, archive interfaces.StorageBackend, registries RegistryResolver, log *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		board:       board,
		archive:     archive,
		registries:  registries,
		log:         log,
		now:         time.Now,
	}
}

// RegisterRoutes configures the HTTP router with the registry API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/assets", h.HandleListAssets)
		r.Get("/assets/{code}", h.HandleGetAsset)
		r.Get("/assets/{code}/verify", h.HandleVerifyHash)
		r.Get("/assets/{code}/verify-document", h.HandleVerifyDocument)
		r.Get("/proofs/{code}", h.HandleGetProof)
		r.Get("/feeds/{feed}/value", h.HandleOracleValue)
		r.Get("/documents/{hash}", h.HandleGetDocument)
		r.Post("/reports", h.HandlePublishReport)
		r.Get("/reports/feeds/{feed}/latest", h.HandleLatestReport)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/assets", h.HandleRegisterAsset)
			r.Post("/assets/{code}/deactivate", h.HandleDeactivate)
			r.Post("/proofs/{code}", h.HandleSubmitProof)
			r.Post("/owner", h.HandleTransferOwnership)
			r.Post("/registry", h.HandleUpdateRegistry)
			r.Post("/documents", h.HandleUploadDocument)
		})
	})
}

// HandleListAssets returns the number of registered codes and the codes in
// enumeration order, deactivated ones included.
//
// URL format: GET /api/assets
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	registry := h.coordinator.Registry()

	count, err := registry.Count(r.Context())
	if err != nil {
		h.writeError(w, "Failed to count assets", err)
		return
	}

	codes := make([]interfaces.AssetCode, 0, min(count, maxListPrealloc))
	for i := uint64(0); i < count; i++ {
		code, err := registry.CodeAt(r.Context(), i)
		if err != nil {
			h.writeError(w, "Failed to enumerate assets", err)
			return
		}
		codes = append(codes, code)
	}

	writeJSON(w, http.StatusOK, api.AssetListResponse{Count: count, Codes: codes})
}

// HandleGetAsset returns an active asset record.
//
// URL format: GET /api/assets/{code}
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	code, ok := h.assetCodeParam(w, r)
	if !ok {
		return
	}

	record, err := h.coordinator.Registry().Get(r.Context(), code)
	if err != nil {
		h.writeError(w, "Failed to get asset", err)
		return
	}

	writeJSON(w, http.StatusOK, api.AssetResponse{
		AssetRecord:  record,
		ValueDecimal: ingestion.FormatValue(record.Value),
	})
}

// HandleVerifyHash compares a candidate fingerprint with the recorded one.
//
// URL format: GET /api/assets/{code}/verify?hash=0x...
func (h *Handler) HandleVerifyHash(w http.ResponseWriter, r *http.Request) {
	code, ok := h.assetCodeParam(w, r)
	if !ok {
		return
	}

	candidate, err := interfaces.NewDocumentHashFromHex(r.URL.Query().Get("hash"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	match, err := h.coordinator.Registry().VerifyHash(r.Context(), code, candidate)
	if err != nil {
		h.writeError(w, "Failed to verify hash", err)
		return
	}

	writeJSON(w, http.StatusOK, api.VerifyHashResponse{AssetCode: code, DocumentHash: candidate, Match: match})
}

// HandleVerifyDocument fingerprints the archived source document of an asset
// and checks it against the registry.
//
// URL format: GET /api/assets/{code}/verify-document
func (h *Handler) HandleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	code, ok := h.assetCodeParam(w, r)
	if !ok || !h.requireArchive(w) {
		return
	}

	registry := h.coordinator.Registry()
	record, err := registry.Get(r.Context(), code)
	if err != nil {
		h.writeError(w, "Failed to get asset", err)
		return
	}

	document, err := h.archive.Fetch(r.Context(), interfaces.ContentID(record.DocumentHash), interfaces.DocumentType)
	if err != nil {
		h.writeError(w, "Failed to fetch archived document", err)
		return
	}

	fingerprint := ingestion.Fingerprint(document)
	match, err := registry.VerifyHash(r.Context(), code, fingerprint)
	if err != nil {
		h.writeError(w, "Failed to verify hash", err)
		return
	}

	writeJSON(w, http.StatusOK, api.VerifyHashResponse{AssetCode: code, DocumentHash: fingerprint, Match: match})
}

// HandleGetProof returns the latest proof of an asset, or an empty one.
//
// URL format: GET /api/proofs/{code}
func (h *Handler) HandleGetProof(w http.ResponseWriter, r *http.Request) {
	code, ok := h.assetCodeParam(w, r)
	if !ok {
		return
	}

	proof := h.coordinator.GetLatestProof(code)
	writeJSON(w, http.StatusOK, api.ProofResponse{AssetCode: code, Exists: proof.Exists(), Proof: proof})
}

// HandleOracleValue runs the verifier for a feed without touching the registry.
//
// URL format: GET /api/feeds/{feed}/value
func (h *Handler) HandleOracleValue(w http.ResponseWriter, r *http.Request) {
	feed, ok := h.feedParam(w, r)
	if !ok {
		return
	}

	value, err := h.coordinator.GetOracleValue(r.Context(), feed)
	if err != nil {
		h.writeError(w, "Failed to verify feed", err)
		return
	}

	writeJSON(w, http.StatusOK, value)
}

// HandleGetDocument downloads an archived source document by fingerprint.
//
// URL format: GET /api/documents/{hash}
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchive(w) {
		return
	}

	hash, err := interfaces.NewDocumentHashFromHex(pathParam(r, "hash"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	document, err := h.archive.Fetch(r.Context(), interfaces.ContentID(hash), interfaces.DocumentType)
	if err != nil {
		h.writeError(w, "Failed to fetch document", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(document)
}

// HandlePublishReport accepts a signed feed report onto the board. The board
// refuses reports its checker rejects, so an unsigned or future-dated report
// cannot displace a genuine one.
//
// URL format: POST /api/reports
func (h *Handler) HandlePublishReport(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		h.writeError(w, "Failed to publish report", errNoBoard)
		return
	}

	var report verifier.SignedReport
	if !decodeJSON(w, r, &report) {
		return
	}

	if err := h.board.Publish(&report); err != nil {
		h.writeError(w, "Failed to publish report", err)
		return
	}

	h.log.Info("Report published",
		slog.String("feed_id", report.FeedID.String()),
		slog.Uint64("observed_at", report.ObservedAt),
		slog.Int("signatures", len(report.Signatures)))

	writeJSON(w, http.StatusAccepted, api.StatusResponse{Status: "published"})
}

// HandleLatestReport serves the board's latest report for a feed, in the
// format verifier.HTTPReportSource reads.
//
// URL format: GET /api/reports/feeds/{feed}/latest
func (h *Handler) HandleLatestReport(w http.ResponseWriter, r *http.Request) {
	feed, ok := h.feedParam(w, r)
	if !ok {
		return
	}

	if h.board == nil {
		h.writeError(w, "Failed to get report", errNoBoard)
		return
	}

	report, err := h.board.LatestReport(r.Context(), feed)
	if err != nil {
		h.writeError(w, "Failed to get report", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleRegisterAsset validates an ingestion payload and registers the asset
// through the coordinator.
//
// URL format: POST /api/admin/assets
// Body: ingestion payload JSON
func (h *Handler) HandleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	payload, err := ingestion.DecodePayload(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		h.writeError(w, "Failed to decode payload", err)
		return
	}

	registration, err := payload.Validate()
	if err != nil {
		h.writeError(w, "Invalid payload", err)
		return
	}

	caller := callerFrom(r.Context())
	if err := h.coordinator.Register(r.Context(), caller, registration.Params); err != nil {
		h.writeError(w, "Failed to register asset", err)
		return
	}

	h.log.Info("Asset registered",
		slog.String("asset_code", registration.Params.Code.String()),
		slog.String("human_code", registration.HumanCode),
		slog.String("caller", caller.Hex()))

	writeJSON(w, http.StatusCreated, api.RegisterAssetResponse{
		AssetCode:     registration.Params.Code,
		HumanCode:     registration.HumanCode,
		EffectiveDate: registration.EffectiveDate.String(),
	})
}

// HandleDeactivate soft-deletes an asset through the coordinator.
//
// URL format: POST /api/admin/assets/{code}/deactivate
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	code, ok := h.assetCodeParam(w, r)
	if !ok {
		return
	}

	if err := h.coordinator.Deactivate(r.Context(), callerFrom(r.Context()), code); err != nil {
		h.writeError(w, "Failed to deactivate asset", err)
		return
	}

	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "deactivated"})
}

// HandleSubmitProof applies the latest verified attestation of a feed to an asset.
//
// URL format: POST /api/admin/proofs/{code}
// Body: {"feed": "<name or 0x id>"}
func (h *Handler) HandleSubmitProof(w http.ResponseWriter, r *http.Request) {
	code, ok := h.assetCodeParam(w, r)
	if !ok {
		return
	}

	var req api.SubmitProofRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	feed, err := api.ParseFeedID(req.Feed)
	if err != nil || req.Feed == "" {
		http.Error(w, fmt.Sprintf("invalid feed %q", req.Feed), http.StatusBadRequest)
		return
	}

	proof, err := h.coordinator.SubmitProof(r.Context(), callerFrom(r.Context()), code, feed)
	if err != nil {
		h.writeError(w, "Failed to submit proof", err)
		return
	}

	writeJSON(w, http.StatusOK, api.ProofResponse{AssetCode: code, Exists: true, Proof: proof})
}

// HandleTransferOwnership hands the coordinator to a new owner.
//
// URL format: POST /api/admin/owner
// Body: {"new_owner": "0x..."}
func (h *Handler) HandleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req api.TransferOwnershipRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.coordinator.TransferOwnership(r.Context(), callerFrom(r.Context()), req.NewOwner); err != nil {
		h.writeError(w, "Failed to transfer ownership", err)
		return
	}

	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "transferred"})
}

// HandleUpdateRegistry points the coordinator at another registry contract.
//
// URL format: POST /api/admin/registry
// Body: {"registry": "0x..."}
func (h *Handler) HandleUpdateRegistry(w http.ResponseWriter, r *http.Request) {
	if h.registries == nil {
		http.Error(w, "registry references cannot be resolved by this server", http.StatusNotImplemented)
		return
	}

	var req api.UpdateRegistryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Registry == (common.Address{}) {
		h.writeError(w, "Invalid registry", fmt.Errorf("%w: zero registry address", interfaces.ErrInvalidReference))
		return
	}

	registry, err := h.registries.RegistryFor(req.Registry)
	if err != nil {
		h.writeError(w, "Failed to open registry", err)
		return
	}

	if err := h.coordinator.UpdateRegistryReference(r.Context(), callerFrom(r.Context()), registry); err != nil {
		h.writeError(w, "Failed to update registry reference", err)
		return
	}

	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "updated"})
}

// HandleUploadDocument archives a source document and returns its fingerprint,
// the value to put in an ingestion payload's document_hash.
//
// URL format: POST /api/admin/documents
// Body: raw document bytes
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchive(w) {
		return
	}
	if caller := callerFrom(r.Context()); caller != h.coordinator.Owner() {
		h.writeError(w, "Failed to archive document", fmt.Errorf("%w: %s is not the owner", interfaces.ErrUnauthorized, caller.Hex()))
		return
	}

	document, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBody))
	if err != nil {
		http.Error(w, "Failed to read document", http.StatusBadRequest)
		return
	}
	if len(document) == 0 {
		http.Error(w, "Document is empty", http.StatusBadRequest)
		return
	}

	id, err := h.archive.Store(r.Context(), document, interfaces.DocumentType)
	if err != nil {
		h.writeError(w, "Failed to archive document", err)
		return
	}

	writeJSON(w, http.StatusCreated, api.DocumentResponse{DocumentHash: id.DocumentHash(), Size: len(document)})
}

func (h *Handler) assetCodeParam(w http.ResponseWriter, r *http.Request) (interfaces.AssetCode, bool) {
	code, err := api.ParseAssetCode(pathParam(r, "code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return interfaces.AssetCode{}, false
	}
	return code, true
}

func (h *Handler) feedParam(w http.ResponseWriter, r *http.Request) (interfaces.FeedID, bool) {
	feed, err := api.ParseFeedID(pathParam(r, "feed"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return interfaces.FeedID{}, false
	}
	return feed, true
}

// pathParam returns an unescaped URL parameter. Feed names such as
// "XAU/USD" arrive escaped.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

func (h *Handler) requireArchive(w http.ResponseWriter) bool {
	if h.archive == nil {
		http.Error(w, "document archive is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, "err", err)
	} else {
		h.log.Debug(msg, "err", err)
	}
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(into); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type callerKey struct{}

func withCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func callerFrom(ctx context.Context) common.Address {
	caller, _ := ctx.Value(callerKey{}).(common.Address)
	return caller
}

// authenticate recovers the signer of an admin request and stores it as the caller.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBody)
		}
		caller, err := api.RecoverAdmin(r, h.now())
		if err != nil {
			h.log.Warn("Admin authentication failed", slog.String("path", r.URL.Path), "err", err)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
	})
}

var errorStatuses = []struct {
	target error
	status int
}{
	{api.ErrMissingSignature, http.StatusUnauthorized},
	{api.ErrInvalidSignature, http.StatusUnauthorized},
	{api.ErrExpiredSignature, http.StatusUnauthorized},
	{interfaces.ErrUnauthorized, http.StatusForbidden},
	{interfaces.ErrAttestationFailed, http.StatusBadGateway},
	{interfaces.ErrInvalidOracleValue, http.StatusBadGateway},
	{storage.ErrContentMismatch, http.StatusBadGateway},
	{interfaces.ErrNotFound, http.StatusNotFound},
	{interfaces.ErrContentNotFound, http.StatusNotFound},
	{verifier.ErrUnknownFeed, http.StatusNotFound},
	{interfaces.ErrAlreadyExists, http.StatusConflict},
	{verifier.ErrStaleReport, http.StatusConflict},
	{interfaces.ErrInvalidValue, http.StatusBadRequest},
	{interfaces.ErrInvalidHolder, http.StatusBadRequest},
	{interfaces.ErrInvalidReference, http.StatusBadRequest},
	{interfaces.ErrIndexOutOfRange, http.StatusBadRequest},
	{ingestion.ErrInvalidPayload, http.StatusBadRequest},
	{verifier.ErrMalformedReport, http.StatusBadRequest},
	{verifier.ErrFutureReport, http.StatusBadRequest},
	{verifier.ErrQuorumNotReached, http.StatusUnprocessableEntity},
	{interfaces.ErrReadOnlyBackend, http.StatusServiceUnavailable},
	{interfaces.ErrBackendUnavailable, http.StatusServiceUnavailable},
	{interfaces.ErrUpdatePending, http.StatusGatewayTimeout},
}

// StatusFor maps registry, coordinator, verifier and archive errors to HTTP
// status codes. Attestation failures are checked before the verifier errors
// they wrap.
func StatusFor(err error) int {
	for _, candidate := range errorStatuses {
		if errors.Is(err, candidate.target) {
			return candidate.status
		}
	}
	return http.StatusInternalServerError
}

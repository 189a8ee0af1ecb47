package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/reserve-attestation-registry/api"
	"github.com/ruteri/reserve-attestation-registry/ingestion"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/ruteri/reserve-attestation-registry/verifier"
)

// ErrNoSigningKey is returned by admin methods on a client without a key.
var ErrNoSigningKey = errors.New("admin request requires a signing key")

// APIError is a non-2xx response from the registry API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry API returned error %d: %s", e.StatusCode, e.Message)
}

// RegistryClient talks to a registry API server.
type RegistryClient struct {
	// ServerAddr is the base URL of the registry server
	ServerAddr string

	// Key signs admin requests; may be nil for read-only use
	Key *ecdsa.PrivateKey

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client
}

// NewRegistryClient creates a client for serverAddr. key may be nil.
func NewRegistryClient(serverAddr string, key *ecdsa.PrivateKey) *RegistryClient {
	return &RegistryClient{
		ServerAddr: strings.TrimRight(serverAddr, "/"),
		Key:        key,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *RegistryClient) ListAssets(ctx context.Context) (*api.AssetListResponse, error) {
	var resp api.AssetListResponse
	return &resp, c.get(ctx, "/api/assets", &resp)
}

func (c *RegistryClient) GetAsset(ctx context.Context, code string) (*api.AssetResponse, error) {
	var resp api.AssetResponse
	return &resp, c.get(ctx, "/api/assets/"+url.PathEscape(code), &resp)
}

func (c *RegistryClient) VerifyHash(ctx context.Context, code string, hash interfaces.DocumentHash) (*api.VerifyHashResponse, error) {
	var resp api.VerifyHashResponse
	path := fmt.Sprintf("/api/assets/%s/verify?hash=%s", url.PathEscape(code), hash)
	return &resp, c.get(ctx, path, &resp)
}

func (c *RegistryClient) VerifyDocument(ctx context.Context, code string) (*api.VerifyHashResponse, error) {
	var resp api.VerifyHashResponse
	return &resp, c.get(ctx, "/api/assets/"+url.PathEscape(code)+"/verify-document", &resp)
}

func (c *RegistryClient) GetLatestProof(ctx context.Context, code string) (*api.ProofResponse, error) {
	var resp api.ProofResponse
	return &resp, c.get(ctx, "/api/proofs/"+url.PathEscape(code), &resp)
}

func (c *RegistryClient) GetOracleValue(ctx context.Context, feed string) (*interfaces.VerifiedValue, error) {
	var resp interfaces.VerifiedValue
	return &resp, c.get(ctx, "/api/feeds/"+url.PathEscape(feed)+"/value", &resp)
}

// FetchDocument downloads an archived document and checks its fingerprint.
func (c *RegistryClient) FetchDocument(ctx context.Context, hash interfaces.DocumentHash) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServerAddr+"/api/documents/"+hash.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if fingerprint := ingestion.Fingerprint(body); fingerprint != hash {
		return nil, fmt.Errorf("document fingerprint %s does not match requested %s", fingerprint, hash)
	}
	return body, nil
}

// PublishReport posts a signed feed report to the server's board.
func (c *RegistryClient) PublishReport(ctx context.Context, report *verifier.SignedReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerAddr+"/api/reports", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

// RegisterAsset submits an ingestion payload.
func (c *RegistryClient) RegisterAsset(ctx context.Context, payload *ingestion.Payload) (*api.RegisterAssetResponse, error) {
	var resp api.RegisterAssetResponse
	return &resp, c.admin(ctx, "/api/admin/assets", payload, &resp)
}

func (c *RegistryClient) Deactivate(ctx context.Context, code string) error {
	return c.admin(ctx, "/api/admin/assets/"+url.PathEscape(code)+"/deactivate", struct{}{}, nil)
}

func (c *RegistryClient) SubmitProof(ctx context.Context, code, feed string) (*api.ProofResponse, error) {
	var resp api.ProofResponse
	return &resp, c.admin(ctx, "/api/admin/proofs/"+url.PathEscape(code), api.SubmitProofRequest{Feed: feed}, &resp)
}

func (c *RegistryClient) TransferOwnership(ctx context.Context, newOwner common.Address) error {
	return c.admin(ctx, "/api/admin/owner", api.TransferOwnershipRequest{NewOwner: newOwner}, nil)
}

func (c *RegistryClient) UpdateRegistry(ctx context.Context, registry common.Address) error {
	return c.admin(ctx, "/api/admin/registry", api.UpdateRegistryRequest{Registry: registry}, nil)
}

// UploadDocument archives a source document and returns its fingerprint.
func (c *RegistryClient) UploadDocument(ctx context.Context, document []byte) (*api.DocumentResponse, error) {
	req, err := c.signedRequest(ctx, "/api/admin/documents", document, "application/octet-stream")
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp api.DocumentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("could not parse response: %w", err)
	}
	return &resp, nil
}

func (c *RegistryClient) get(ctx context.Context, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServerAddr+path, nil)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

func (c *RegistryClient) admin(ctx context.Context, path string, payload, into any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := c.signedRequest(ctx, path, body, "application/json")
	if err != nil {
		return err
	}

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if into == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, into); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

func (c *RegistryClient) signedRequest(ctx context.Context, path string, body []byte, contentType string) (*http.Request, error) {
	if c.Key == nil {
		return nil, ErrNoSigningKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerAddr+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	if err := api.SignAdminRequest(req, body, c.Key, time.Now()); err != nil {
		return nil, err
	}
	return req, nil
}

func (c *RegistryClient) do(req *http.Request) ([]byte, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubBackend is a read-only archive backed by files committed to a GitHub
// repository at <dir>/<type>/<id>, fetched through the contents API.
type GitHubBackend struct {
	owner       string
	repo        string
	dir         string
	ref         string
	token       string
	apiBase     string
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// NewGitHubBackend creates a backend reading from owner/repo. dir and ref may
// be empty for the repository root and default branch.
func NewGitHubBackend(owner, repo, dir, ref, token string, log *slog.Logger) *GitHubBackend {
	dir = strings.Trim(dir, "/")
	uri := fmt.Sprintf("github://%s/%s", owner, repo)
	if dir != "" {
		uri += "/" + dir
	}
	if ref != "" {
		uri += "?ref=" + url.QueryEscape(ref)
	}

	return &GitHubBackend{
		owner:       owner,
		repo:        repo,
		dir:         dir,
		ref:         ref,
		token:       token,
		apiBase:     defaultGitHubAPI,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		locationURI: uri,
	}
}

// Fetch downloads the raw file and checks it against its ID.
func (b *GitHubBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	filePath := objectName(id, contentType)
	if b.dir != "" {
		filePath = b.dir + "/" + filePath
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", b.apiBase, b.owner, b.repo, filePath)
	if b.ref != "" {
		endpoint += "?ref=" + url.QueryEscape(b.ref)
	}

	req, err := b.newRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.raw+json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrContentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GitHub response: %w", err)
	}
	if err := verifyContent(id, data); err != nil {
		b.log.Warn("GitHub content hash mismatch", slog.String("path", filePath), "err", err)
		return nil, err
	}

	b.log.Debug("Fetched content from GitHub",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store always fails; documents are published to the repository by commit.
func (b *GitHubBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	return interfaces.ComputeID(data), fmt.Errorf("%w: %s", interfaces.ErrReadOnlyBackend, b.Name())
}

// Available checks the repository is reachable.
func (b *GitHubBackend) Available(ctx context.Context) bool {
	req, err := b.newRequest(ctx, fmt.Sprintf("%s/repos/%s/%s", b.apiBase, b.owner, b.repo))
	if err != nil {
		return false
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Debug("GitHub backend unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Debug("GitHub backend unavailable", slog.String("status", resp.Status))
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *GitHubBackend) Name() string {
	return fmt.Sprintf("github-%s-%s", b.owner, b.repo)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *GitHubBackend) LocationURI() string {
	return b.locationURI
}

func (b *GitHubBackend) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return req, nil
}

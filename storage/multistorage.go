package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// MultiStorageBackend fans an archive out over several backends. Fetch reads
// from the first available backend holding the content; Store writes to every
// available writable backend concurrently and succeeds if at least one did.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend with fallback
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch tries backends in order.
func (m *MultiStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	var errs []error
	notFound := 0

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		data, err := backend.Fetch(ctx, id, contentType)
		if err == nil {
			m.log.Debug("Fetched content",
				slog.String("backend_name", backend.Name()),
				slog.String("content_id", id.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if errors.Is(err, interfaces.ErrContentNotFound) {
			notFound++
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backend available", interfaces.ErrBackendUnavailable)
	}
	if notFound == len(errs) {
		return nil, interfaces.ErrContentNotFound
	}

	m.log.Error("All backends failed to fetch content",
		slog.String("content_id", id.String()),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all backends failed to fetch %s: %w", id, errors.Join(errs...))
}

// Store writes to all available backends in parallel.
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	start := time.Now()
	id := interfaces.ComputeID(data)

	available := lo.Filter(m.backends, func(backend interfaces.StorageBackend, _ int) bool {
		return backend.Available(ctx)
	})
	if len(available) == 0 {
		return id, fmt.Errorf("%w: no backend available", interfaces.ErrBackendUnavailable)
	}

	var (
		mu     sync.Mutex
		errs   []error
		stored []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, backend := range available {
		g.Go(func() error {
			backendID, err := backend.Store(gctx, data, contentType)
			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			case backendID != id:
				errs = append(errs, fmt.Errorf("%s: stored under %s, expected %s", backend.Name(), backendID, id))
			default:
				stored = append(stored, backend.Name())
			}
			// A failing backend must not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	if len(stored) == 0 {
		m.log.Error("All backends failed to store data",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return id, fmt.Errorf("all backends failed to store data: %w", errors.Join(errs...))
	}

	for _, err := range errs {
		m.log.Warn("Backend failed to store data", "err", err)
	}
	m.log.Info("Stored content",
		slog.String("content_id", id.String()),
		slog.Any("backends", stored),
		slog.Duration("duration", time.Since(start)))

	return id, nil
}

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	return lo.SomeBy(m.backends, func(backend interfaces.StorageBackend) bool {
		return backend.Available(ctx)
	})
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the URI of this backend
func (m *MultiStorageBackend) LocationURI() string {
	locations := lo.Map(m.backends, func(backend interfaces.StorageBackend, _ int) string {
		return backend.LocationURI()
	})
	return "multi:[" + strings.Join(locations, ",") + "]"
}

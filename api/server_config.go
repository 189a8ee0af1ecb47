package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the registry API listener and its metrics
// listener.
type HTTPServerConfig struct {
	// ListenAddr serves the registry API.
	ListenAddr string

	// MetricsAddr serves /metrics. Empty disables the metrics listener;
	// collectors are still registered.
	MetricsAddr string

	// EnablePprof mounts the pprof API under /debug on the API listener.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain keeps reporting not-ready before the
	// drain is logged as complete.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds how long Shutdown waits for in-flight
	// requests on each listener.
	GracefulShutdownDuration time.Duration

	// ReadHeaderTimeout bounds reading request headers; zero falls back to
	// ReadTimeout.
	ReadHeaderTimeout time.Duration

	// ReadTimeout covers the whole request, including document uploads.
	ReadTimeout time.Duration

	WriteTimeout time.Duration
}

// Package metrics serves Prometheus metrics on a dedicated listener and
// provides the HTTP request instrumentation used by the API server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	namespace string
	registry  *prometheus.Registry
	srv       *http.Server
}

// New creates a metrics server with its own registry. Go runtime and process
// collectors are always registered.
func New(namespace, listenAddr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, errors.New("metrics namespace is required")
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		namespace: Namespace(namespace),
		registry:  registry,
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Namespace turns a service name into a valid metric namespace.
func Namespace(service string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(service)
}

// Namespace returns the prefix for metrics registered on this server.
func (m *MetricsServer) Namespace() string {
	return m.namespace
}

// Registerer returns the registry collectors should register with.
func (m *MetricsServer) Registerer() prometheus.Registerer {
	return m.registry
}

// Gatherer exposes the registry for tests and embedded exposition.
func (m *MetricsServer) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler returns the /metrics exposition handler.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

/*
Package servers implements the HTTP server lifecycle for the reserve
attestation registry.

A Server mounts a handler's routes on a chi router behind access logging and
Prometheus request metrics, and adds the operational endpoints:

  - GET /livez - liveness
  - GET /readyz - readiness, 503 while draining
  - GET /drain and /undrain - toggle readiness for load balancer rotation
  - /debug/* - pprof, when enabled

Metrics are exposed on a separate listener (MetricsAddr) so they are never
reachable through the public API address.
*/
package servers

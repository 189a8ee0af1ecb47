// Package events provides interfaces.EventSink implementations for the
// registry and the coordinator.
//
// Sinks are called synchronously from inside the mutating call after the state
// change committed, so every sink observes events in the ledger's total order.
// Emit has no error return: a sink that cannot deliver logs the failure and
// the committed state change stands.
//
//   - LogSink writes one structured audit line per event
//   - Recorder keeps events in memory for tests and indexer queries
//   - MetricsSink counts events per name in Prometheus
//   - KafkaSink publishes JSON envelopes keyed by asset code
//   - Fanout delivers to several sinks in order
package events

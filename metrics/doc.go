// Package metrics wraps github.com/prometheus/client_golang to expose the
// process-wide counters and histograms the session actor reports against.
// A nil *Recorder is valid and every method on it is a no-op, so metrics
// are never on the critical path of protocol correctness.
package metrics

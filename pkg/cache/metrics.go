package cache

import "time"

// Metrics provides observability for cache operations. Implementations
// must be safe for concurrent use. A Prometheus-backed implementation
// lives in pkg/metrics; nil selects the built-in no-op.
type Metrics interface {
	// RecordHit records a lookup served from the published map.
	RecordHit()

	// RecordMiss records a lookup that scheduled a new store read.
	RecordMiss()

	// RecordCoalesced records a lookup that joined an in-flight read.
	RecordCoalesced()

	// ObserveFetch records one store read and its outcome.
	ObserveFetch(duration time.Duration, err error)

	// RecordEntry records a newly published entry and its size.
	RecordEntry(bytes int)
}

type noopMetrics struct{}

func (noopMetrics) RecordHit()                        {}
func (noopMetrics) RecordMiss()                       {}
func (noopMetrics) RecordCoalesced()                  {}
func (noopMetrics) ObserveFetch(time.Duration, error) {}
func (noopMetrics) RecordEntry(int)                   {}

package ollama

import (
	"sync/atomic"
	"time"
)

// Metrics tracks relay call metrics
type Metrics struct {
	calls   atomic.Int64
	errors  atomic.Int64
	latency atomic.Int64 // total latency in nanoseconds
}

// Stats is a point-in-time copy of Metrics.
type Stats struct {
	Calls        int64   `json:"calls"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

func (m *Metrics) record(duration time.Duration, err error) {
	m.calls.Add(1)
	m.latency.Add(duration.Nanoseconds())
	if err != nil {
		m.errors.Add(1)
	}
}

// Snapshot returns the current counters
func (m *Metrics) Snapshot() Stats {
	calls := m.calls.Load()
	s := Stats{Calls: calls, Errors: m.errors.Load()}
	if calls > 0 {
		s.AvgLatencyMs = float64(m.latency.Load()) / float64(calls) / 1e6
	}
	return s
}

// ErrorRate returns the error rate as a percentage
func (s Stats) ErrorRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Calls) * 100
}

package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	sessionOutcomes map[string]int64
	latencyTotal    time.Duration
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Requests        map[string]int64 `json:"requests"`
	Errors          map[string]int64 `json:"errors"`
	SessionOutcomes map[string]int64 `json:"session_outcomes"`
	AvgLatencyMs    float64          `json:"avg_latency_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		sessionOutcomes: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSessionOutcome counts session checks by status and internal reason.
func (m *Metrics) RecordSessionOutcome(status, reason string) {
	if m == nil {
		return
	}
	key := status
	if reason != "" {
		key += "|" + reason
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionOutcomes[key]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Requests:        copyCounts(m.requestCount),
		Errors:          copyCounts(m.errorCount),
		SessionOutcomes: copyCounts(m.sessionOutcomes),
	}
	var total int64
	for _, n := range m.requestCount {
		total += n
	}
	if total > 0 {
		snap.AvgLatencyMs = float64(m.latencyTotal.Microseconds()) / 1000 / float64(total)
	}
	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

package observability

import "sync"

// Metrics provides counters, gauges, and histogram recording primitives.
type Metrics interface {
	IncCounter(name string, value float64, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

var defaultMetrics Metrics = noopMetrics{}

// SetMetrics overrides the global metrics implementation used by the system.
func SetMetrics(metrics Metrics) {
	if metrics == nil {
		defaultMetrics = noopMetrics{}
		return
	}
	defaultMetrics = metrics
}

// Telemetry returns the current global metrics collector.
func Telemetry() Metrics {
	return defaultMetrics
}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, float64, map[string]string)       {}
func (noopMetrics) ObserveHistogram(string, float64, map[string]string) {}
func (noopMetrics) SetGauge(string, float64, map[string]string)         {}

// KernelMetricsSnapshot captures the reactive kernel's headline counters at
// a point in time, suitable for periodic export alongside the live OTel
// stream (see internal/telemetry).
type KernelMetricsSnapshot struct {
	LiveVariables int            `json:"live_variables"`
	Creates       int64          `json:"creates"`
	Reads         int64          `json:"reads"`
	Updates       int64          `json:"updates"`
	Deletes       int64          `json:"deletes"`
	Cancellations map[string]int `json:"cancellations"`
	Aborts        map[string]int `json:"aborts"`
}

// RuntimeMetrics accumulates kernel operation counters in-memory for
// periodic export, independent of whichever Metrics sink (if any) the
// host's System was configured with.
type RuntimeMetrics struct {
	mu   sync.Mutex
	snap KernelMetricsSnapshot
}

// NewRuntimeMetrics constructs a metrics accumulator with empty maps.
func NewRuntimeMetrics() *RuntimeMetrics {
	m := new(RuntimeMetrics)
	m.snap = KernelMetricsSnapshot{
		Cancellations: make(map[string]int),
		Aborts:        make(map[string]int),
	}
	return m
}

// SetLiveVariables records the current live-variable gauge reading.
func (m *RuntimeMetrics) SetLiveVariables(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.LiveVariables = n
}

// IncCreates, IncReads, IncUpdates, IncDeletes bump the corresponding
// operation counters.
func (m *RuntimeMetrics) IncCreates() { m.mu.Lock(); m.snap.Creates++; m.mu.Unlock() }
func (m *RuntimeMetrics) IncReads()   { m.mu.Lock(); m.snap.Reads++; m.mu.Unlock() }
func (m *RuntimeMetrics) IncUpdates() { m.mu.Lock(); m.snap.Updates++; m.mu.Unlock() }
func (m *RuntimeMetrics) IncDeletes() { m.mu.Lock(); m.snap.Deletes++; m.mu.Unlock() }

// RecordCancellation tallies a cancelled dispatch by event type.
func (m *RuntimeMetrics) RecordCancellation(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Cancellations[eventType]++
}

// RecordAbort tallies an aborted dispatch by event type.
func (m *RuntimeMetrics) RecordAbort(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Aborts[eventType]++
}

// Snapshot copies the current counters for reporting.
func (m *RuntimeMetrics) Snapshot() KernelMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := KernelMetricsSnapshot{
		LiveVariables: m.snap.LiveVariables,
		Creates:       m.snap.Creates,
		Reads:         m.snap.Reads,
		Updates:       m.snap.Updates,
		Deletes:       m.snap.Deletes,
		Cancellations: make(map[string]int, len(m.snap.Cancellations)),
		Aborts:        make(map[string]int, len(m.snap.Aborts)),
	}
	for k, v := range m.snap.Cancellations {
		snap.Cancellations[k] = v
	}
	for k, v := range m.snap.Aborts {
		snap.Aborts[k] = v
	}
	return snap
}

package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts meeting operations per channel.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	meetingsTotal atomic.Int64

	channelMetrics map[string]*ChannelMetrics

	// Ring of recent durations, oldest first.
	durations    []time.Duration
	maxDurations int
}

// ChannelMetrics holds the counters of a single channel.
type ChannelMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		channelMetrics: make(map[string]*ChannelMetrics),
		durations:      make([]time.Duration, 0, maxDurations),
		maxDurations:   maxDurations,
	}
}

var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordRequest records a request on channel.
func (m *Metrics) RecordRequest(channel string) {
	m.requestTotal.Add(1)
	m.channel(channel).requestCount.Add(1)
}

// RecordFailure records a failed request on channel.
func (m *Metrics) RecordFailure(channel string) {
	m.requestFailed.Add(1)
	m.channel(channel).errorCount.Add(1)
}

// RecordMeeting records a successfully created meeting.
func (m *Metrics) RecordMeeting() {
	m.meetingsTotal.Add(1)
}

// RecordDuration records a request duration.
func (m *Metrics) RecordDuration(channel string, duration time.Duration) {
	cm := m.channel(channel)
	cm.totalDuration.Add(duration.Milliseconds())

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// GetRequestTotal returns the total number of requests.
func (m *Metrics) GetRequestTotal() int64 {
	return m.requestTotal.Load()
}

// GetRequestFailed returns the total number of failed requests.
func (m *Metrics) GetRequestFailed() int64 {
	return m.requestFailed.Load()
}

// GetMeetingsTotal returns the number of meetings created.
func (m *Metrics) GetMeetingsTotal() int64 {
	return m.meetingsTotal.Load()
}

func (m *Metrics) channel(name string) *ChannelMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	cm, ok := m.channelMetrics[name]
	if !ok {
		cm = &ChannelMetrics{}
		m.channelMetrics[name] = cm
	}
	return cm
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.meetingsTotal.Store(0)

	m.mu.Lock()
	m.channelMetrics = make(map[string]*ChannelMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	channels := make(map[string]*ChannelMetricsSnapshot, len(m.channelMetrics))
	for name, cm := range m.channelMetrics {
		count := cm.requestCount.Load()
		total := cm.totalDuration.Load()
		var avg int64
		if count > 0 {
			avg = total / count
		}
		channels[name] = &ChannelMetricsSnapshot{
			RequestCount:    count,
			TotalDuration:   total,
			ErrorCount:      cm.errorCount.Load(),
			AverageDuration: avg,
		}
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		MeetingsTotal: m.meetingsTotal.Load(),
		Channels:      channels,
		DurationCount: len(m.durations),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                              `json:"request_total"`
	RequestFailed int64                              `json:"request_failed"`
	MeetingsTotal int64                              `json:"meetings_total"`
	Channels      map[string]*ChannelMetricsSnapshot `json:"channels"`
	DurationCount int                                `json:"duration_count"`
}

// ChannelMetricsSnapshot represents metrics for a single channel.
type ChannelMetricsSnapshot struct {
	RequestCount    int64 `json:"request_count"`
	TotalDuration   int64 `json:"total_duration_ms"`
	ErrorCount      int64 `json:"error_count"`
	AverageDuration int64 `json:"average_duration_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}

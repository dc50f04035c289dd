package helper

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
)

// MetricsCollectorSpy captures metrics calls.
type MetricsCollectorSpy struct {
	durationRecords []SpyMetricRecord
	counterRecords  []SpyMetricRecord
	valueRecords    []SpyMetricRecord
	mu              sync.Mutex
	recordCalls     bool
}

// SpyMetricRecord is one captured call. Duration is set for durations, Value for values.
type SpyMetricRecord struct {
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string
}

// NewMetricsCollectorSpy creates a MetricsCollectorSpy. Calls are only captured with recordCalls.
func NewMetricsCollectorSpy(recordCalls bool) *MetricsCollectorSpy {
	return &MetricsCollectorSpy{recordCalls: recordCalls}
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.record(&s.durationRecords, SpyMetricRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.record(&s.counterRecords, SpyMetricRecord{Metric: metric, Labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.record(&s.valueRecords, SpyMetricRecord{Metric: metric, Value: value, Labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) record(into *[]SpyMetricRecord, record SpyMetricRecord) {
	if !s.recordCalls {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	*into = append(*into, record)
}

func (s *MetricsCollectorSpy) snapshot(records []SpyMetricRecord) []SpyMetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SpyMetricRecord, len(records))
	copy(out, records)

	return out
}

func (s *MetricsCollectorSpy) GetDurationRecords() []SpyMetricRecord {
	return s.snapshot(s.durationRecords)
}

func (s *MetricsCollectorSpy) GetCounterRecords() []SpyMetricRecord {
	return s.snapshot(s.counterRecords)
}

func (s *MetricsCollectorSpy) GetValueRecords() []SpyMetricRecord {
	return s.snapshot(s.valueRecords)
}

func (s *MetricsCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durationRecords, s.counterRecords, s.valueRecords = nil, nil, nil
}

// MetricRecordMatcher narrows captured records by label.
type MetricRecordMatcher struct {
	records []SpyMetricRecord
}

func matchMetric(records []SpyMetricRecord, metric string) *MetricRecordMatcher {
	var matches []SpyMetricRecord
	for _, record := range records {
		if record.Metric == metric {
			matches = append(matches, record)
		}
	}

	return &MetricRecordMatcher{records: matches}
}

func (s *MetricsCollectorSpy) HasDurationRecordForMetric(metric string) *MetricRecordMatcher {
	return matchMetric(s.GetDurationRecords(), metric)
}

func (s *MetricsCollectorSpy) HasCounterRecordForMetric(metric string) *MetricRecordMatcher {
	return matchMetric(s.GetCounterRecords(), metric)
}

func (s *MetricsCollectorSpy) HasValueRecordForMetric(metric string) *MetricRecordMatcher {
	return matchMetric(s.GetValueRecords(), metric)
}

func (m *MetricRecordMatcher) WithLabel(key, value string) *MetricRecordMatcher {
	var kept []SpyMetricRecord
	for _, record := range m.records {
		if record.Labels[key] == value {
			kept = append(kept, record)
		}
	}

	return &MetricRecordMatcher{records: kept}
}

func (m *MetricRecordMatcher) WithOperation(operation string) *MetricRecordMatcher {
	return m.WithLabel("operation", operation)
}

func (m *MetricRecordMatcher) WithStatus(status string) *MetricRecordMatcher {
	return m.WithLabel("status", status)
}

func (m *MetricRecordMatcher) WithErrorType(errorType string) *MetricRecordMatcher {
	return m.WithLabel("error_type", errorType)
}

func (m *MetricRecordMatcher) Assert() bool {
	return len(m.records) > 0
}

func (m *MetricRecordMatcher) Count() int {
	return len(m.records)
}

// ContextualMetricsCollectorSpy also captures the context-aware calls; contextCalls counts them.
type ContextualMetricsCollectorSpy struct {
	*MetricsCollectorSpy
	contextCalls int
}

func NewContextualMetricsCollectorSpy(recordCalls bool) *ContextualMetricsCollectorSpy {
	return &ContextualMetricsCollectorSpy{MetricsCollectorSpy: NewMetricsCollectorSpy(recordCalls)}
}

func (s *ContextualMetricsCollectorSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.countContextCall()
	s.RecordDuration(metric, duration, labels)
}

func (s *ContextualMetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.countContextCall()
	s.IncrementCounter(metric, labels)
}

func (s *ContextualMetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.countContextCall()
	s.RecordValue(metric, value, labels)
}

func (s *ContextualMetricsCollectorSpy) countContextCall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextCalls++
}

func (s *ContextualMetricsCollectorSpy) ContextCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.contextCalls
}

var (
	_ catalog.MetricsCollector           = (*MetricsCollectorSpy)(nil)
	_ catalog.ContextualMetricsCollector = (*ContextualMetricsCollectorSpy)(nil)
)

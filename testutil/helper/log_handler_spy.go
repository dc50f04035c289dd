package helper

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// LogHandlerSpy is a slog.Handler that captures log records.
type LogHandlerSpy struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewLogHandlerSpy creates a LogHandlerSpy. With logToStdOut, records are also printed as JSON.
func NewLogHandlerSpy(logToStdOut bool) *LogHandlerSpy {
	return &LogHandlerSpy{logToStdout: logToStdOut}
}

func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record.Clone())

	if s.logToStdout {
		_ = slog.NewJSONHandler(os.Stdout, nil).Handle(ctx, record)
	}

	return nil
}

func (s *LogHandlerSpy) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (s *LogHandlerSpy) WithAttrs(_ []slog.Attr) slog.Handler {
	return s
}

func (s *LogHandlerSpy) WithGroup(_ string) slog.Handler {
	return s
}

// GetRecords returns a copy of all captured records.
func (s *LogHandlerSpy) GetRecords() []slog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]slog.Record, len(s.records))
	copy(records, s.records)

	return records
}

func (s *LogHandlerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// LogRecordMatcher narrows the captured records down step by step.
type LogRecordMatcher struct {
	records []slog.Record
}

// HasLog matches records with the given level whose message starts with message.
func (s *LogHandlerSpy) HasLog(level slog.Level, message string) *LogRecordMatcher {
	var matches []slog.Record
	for _, record := range s.GetRecords() {
		if record.Level == level && len(record.Message) >= len(message) && record.Message[:len(message)] == message {
			matches = append(matches, record)
		}
	}

	return &LogRecordMatcher{records: matches}
}

func (s *LogHandlerSpy) HasDebugLog(message string) *LogRecordMatcher {
	return s.HasLog(slog.LevelDebug, message)
}

func (s *LogHandlerSpy) HasInfoLog(message string) *LogRecordMatcher {
	return s.HasLog(slog.LevelInfo, message)
}

func (s *LogHandlerSpy) HasWarnLog(message string) *LogRecordMatcher {
	return s.HasLog(slog.LevelWarn, message)
}

func (s *LogHandlerSpy) HasErrorLog(message string) *LogRecordMatcher {
	return s.HasLog(slog.LevelError, message)
}

// WithAttr keeps records that carry the attribute key.
func (m *LogRecordMatcher) WithAttr(key string) *LogRecordMatcher {
	return m.filter(func(a slog.Attr) bool { return a.Key == key })
}

// WithAttrValue keeps records where the attribute key renders as value.
func (m *LogRecordMatcher) WithAttrValue(key, value string) *LogRecordMatcher {
	return m.filter(func(a slog.Attr) bool { return a.Key == key && a.Value.String() == value })
}

func (m *LogRecordMatcher) filter(match func(slog.Attr) bool) *LogRecordMatcher {
	var kept []slog.Record
	for _, record := range m.records {
		found := false
		record.Attrs(func(a slog.Attr) bool {
			found = match(a)
			return !found
		})

		if found {
			kept = append(kept, record)
		}
	}

	return &LogRecordMatcher{records: kept}
}

func (m *LogRecordMatcher) Assert() bool {
	return len(m.records) > 0
}

func (m *LogRecordMatcher) Count() int {
	return len(m.records)
}

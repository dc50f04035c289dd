package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntonStoeckl/library-catalog-go/catalog/oteladapters"
)

type recordingLogger struct {
	noop.Logger
	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.records = append(l.records, record)
}

func attrsOf(record log.Record) map[string]log.Value {
	attrs := map[string]log.Value{}
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	return attrs
}

func Test_OTelLogger_EmitsTypedAttributes(t *testing.T) {
	// arrange
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)

	// act
	logger.WarnContext(context.Background(), "loan rejected",
		"book_edition_id", int64(7),
		"open_loans", 3,
		"error", errors.New("capacity exceeded"),
		"dangling",
	)

	// assert
	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, "loan rejected", record.Body().AsString())
	assert.Equal(t, log.SeverityWarn, record.Severity())

	attrs := attrsOf(record)
	assert.Len(t, attrs, 3)
	assert.Equal(t, int64(7), attrs["book_edition_id"].AsInt64())
	assert.Equal(t, int64(3), attrs["open_loans"].AsInt64())
	assert.Equal(t, "capacity exceeded", attrs["error"].AsString())
}

func Test_OTelLogger_Severities(t *testing.T) {
	// arrange
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "d")
	logger.InfoContext(ctx, "i")
	logger.WarnContext(ctx, "w")
	logger.ErrorContext(ctx, "e")

	// assert
	require.Len(t, recorder.records, 4)
	want := []log.Severity{log.SeverityDebug, log.SeverityInfo, log.SeverityWarn, log.SeverityError}
	for i, record := range recorder.records {
		assert.Equal(t, want[i], record.Severity())
	}
}

func Test_SlogBridgeLoggerWithHandler_WritesThroughHandler(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	ctx, span := provider.Tracer("test").Start(context.Background(), "catalog.reader.add")
	defer span.End()

	// act
	logger.InfoContext(ctx, "reader added", "library_card_number", "LC-0001")

	// assert
	assert.Contains(t, buf.String(), "reader added")
	assert.Contains(t, buf.String(), "library_card_number=LC-0001")
}

func Test_SlogBridgeLogger_DoesNotPanicWithoutProvider(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("test")
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug", "key", "value")
		logger.InfoContext(ctx, "info", "key", "value")
		logger.WarnContext(ctx, "warn", "key", "value")
		logger.ErrorContext(ctx, "error", "key", "value")
	})
}

package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
)

const (
	logMsgBuildQueryFailed   = "failed to build query"
	logMsgDBQueryFailed      = "database query execution failed"
	logMsgDBExecFailed       = "database execution failed"
	logMsgRowsAffectedFailed = "failed to get rows affected count"
	logMsgCloseRowsFailed    = "failed to close database rows"
	logMsgScanRowFailed      = "failed to scan database row"
	logMsgBeginTxFailed      = "failed to begin transaction"
	logMsgCommitFailed       = "failed to commit transaction"
	logMsgRollbackFailed     = "failed to roll back transaction"
	logMsgPingFailed         = "database ping failed"
	logMsgCapacityExceeded   = "capacity exceeded"
	logMsgOperationFailed    = "catalog operation failed: "
	logMsgSQLExecuted        = "executed sql for: "
	logMsgOperation          = "catalog operation: "
	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrOperation         = "operation"
	logAttrEntityCount       = "entity_count"
	logAttrDurationMS        = "duration_ms"
	logAttrEditionID         = "book_edition_id"
	logAttrOpenLoans         = "open_loans"
	logAttrTotalCopies       = "total_copies"
)

const (
	metricOperationDuration    = "catalog_operation_duration_seconds"
	metricDatabaseErrors       = "catalog_database_errors_total"
	metricCapacityRejections   = "catalog_capacity_rejections_total"
	metricMaterializedEntities = "catalog_materialized_entities"
	spanNamePrefix             = "catalog."
	spanAttrOperation          = "operation"
	spanAttrErrorType          = "error_type"
	spanAttrEntityCount        = "entity_count"
	spanAttrDurationMS         = "duration_ms"
	labelStatus                = "status"
	statusSuccess              = "success"
	statusError                = "error"
)

const (
	errorTypeNotFound     = "not_found"
	errorTypeUnique       = "unique_violation"
	errorTypeForeignKey   = "foreign_key_violation"
	errorTypeCheck        = "check_violation"
	errorTypeNotNull      = "not_null_violation"
	errorTypeCapacity     = "capacity_exceeded"
	errorTypeConnection   = "connection"
	errorTypeCanceled     = "canceled"
	errorTypeInvalidInput = "invalid_input"
	errorTypeDatabase     = "database"
)

// errorType classifies an error for metric labels and span attributes.
func errorType(err error) string {
	switch {
	case errors.Is(err, catalog.ErrCapacityExceeded):
		return errorTypeCapacity
	case errors.Is(err, catalog.ErrNotFound):
		return errorTypeNotFound
	case errors.Is(err, catalog.ErrUniqueConstraintViolation):
		return errorTypeUnique
	case errors.Is(err, catalog.ErrForeignKeyViolation):
		return errorTypeForeignKey
	case errors.Is(err, catalog.ErrCheckConstraintViolation):
		return errorTypeCheck
	case errors.Is(err, catalog.ErrNullConstraintViolation):
		return errorTypeNotNull
	case errors.Is(err, catalog.ErrConnectionFailed):
		return errorTypeConnection
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCanceled
	case errors.Is(err, catalog.ErrInvalidPageRequest):
		return errorTypeInvalidInput
	default:
		return errorTypeDatabase
	}
}

// observe wraps one repository operation with a tracing span, metrics and an info/error log line.
// fn returns the number of entities it read or wrote.
func (e *Engine) observe(ctx context.Context, operation string, fn func(ctx context.Context) (int, error)) error {
	ctx, span := e.startSpan(ctx, operation)
	start := time.Now()

	count, err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		errType := errorType(err)
		e.recordDuration(ctx, operation, statusError, duration)
		e.recordError(ctx, operation, errType)
		e.finishSpan(span, statusError, map[string]string{
			spanAttrErrorType:  errType,
			spanAttrDurationMS: formatMilliseconds(duration),
		})

		if errType == errorTypeCapacity {
			e.recordCapacityRejection(ctx, operation)
		} else {
			e.logErrorContext(ctx, logMsgOperationFailed+operation, err)
		}

		return err
	}

	e.recordDuration(ctx, operation, statusSuccess, duration)
	e.recordValue(ctx, metricMaterializedEntities, float64(count), operation)
	e.finishSpan(span, statusSuccess, map[string]string{
		spanAttrEntityCount: strconv.Itoa(count),
		spanAttrDurationMS:  formatMilliseconds(duration),
	})
	e.logOperation(ctx, operation,
		logAttrEntityCount, count,
		logAttrDurationMS, toMilliseconds(duration))

	return nil
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Nanoseconds())/1e6)
}

// === Logging ===

func (e *Engine) logQueryWithDuration(ctx context.Context, operation string, duration time.Duration, sqlQuery string) {
	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+operation, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	case e.logger != nil:
		e.logger.Debug(logMsgSQLExecuted+operation, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

func (e *Engine) logOperation(ctx context.Context, action string, args ...any) {
	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	case e.logger != nil:
		e.logger.Info(logMsgOperation+action, args...)
	}
}

func (e *Engine) logWarnContext(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.WarnContext(ctx, message, allArgs...)
	case e.logger != nil:
		e.logger.Warn(message, allArgs...)
	}
}

func (e *Engine) logErrorContext(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
	case e.logger != nil:
		e.logger.Error(message, allArgs...)
	}
}

// === Metrics ===

func (e *Engine) recordDuration(ctx context.Context, operation, status string, duration time.Duration) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: status}

	if contextual, ok := e.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

func (e *Engine) recordError(ctx context.Context, operation, errType string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: statusError, spanAttrErrorType: errType}

	if contextual, ok := e.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
}

func (e *Engine) recordCapacityRejection(ctx context.Context, operation string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation}

	if contextual, ok := e.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricCapacityRejections, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metricCapacityRejections, labels)
}

func (e *Engine) recordValue(ctx context.Context, metric string, value float64, operation string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: statusSuccess}

	if contextual, ok := e.metricsCollector.(catalog.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	e.metricsCollector.RecordValue(metric, value, labels)
}

// === Tracing ===

func (e *Engine) startSpan(ctx context.Context, operation string) (context.Context, catalog.SpanContext) {
	if e.tracingCollector == nil {
		return ctx, nil
	}

	return e.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{spanAttrOperation: operation})
}

func (e *Engine) finishSpan(span catalog.SpanContext, status string, attrs map[string]string) {
	if e.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(status)
	for key, value := range attrs {
		span.AddAttribute(key, value)
	}

	e.tracingCollector.FinishSpan(span, status, attrs)
}

package postgresengine

import (
	"context"
	"math"
	"time"

	"github.com/askard/lendingstore-go/lendingstore"
)

// logQueryWithDuration logs SQL statements with execution time at debug level if a logger is configured.
func (ls *LendingStore) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if ls.contextualLogger != nil {
		ls.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, ls.toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if ls.logger != nil {
		ls.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, ls.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (ls *LendingStore) logOperation(ctx context.Context, action string, args ...any) {
	if ls.contextualLogger != nil {
		ls.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if ls.logger != nil {
		ls.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (ls *LendingStore) logWarn(ctx context.Context, message string, args ...any) {
	if ls.contextualLogger != nil {
		ls.contextualLogger.WarnContext(ctx, message, args...)
		return
	}

	if ls.logger != nil {
		ls.logger.Warn(message, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (ls *LendingStore) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if ls.contextualLogger != nil {
		ls.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if ls.logger != nil {
		ls.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (ls *LendingStore) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDurationMetric records an operation duration if the metrics collector is configured.
func (ls *LendingStore) recordDurationMetric(ctx context.Context, metricName string, duration time.Duration, operation, status string) {
	if ls.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation: operation,
		labelStatus:    status,
	}

	if contextualCollector, ok := ls.metricsCollector.(lendingstore.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
	} else {
		ls.metricsCollector.RecordDuration(metricName, duration, labels)
	}
}

// incrementCounterMetric increments an operation counter if the metrics collector is configured.
func (ls *LendingStore) incrementCounterMetric(ctx context.Context, metricName string, operation, reason string) {
	if ls.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation: operation,
		labelReason:    reason,
	}

	if contextualCollector, ok := ls.metricsCollector.(lendingstore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricName, labels)
	} else {
		ls.metricsCollector.IncrementCounter(metricName, labels)
	}
}

// startSpan starts a tracing span if the tracing collector is configured.
// The returned SpanContext may be nil; finishSpan handles that.
func (ls *LendingStore) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, lendingstore.SpanContext) {
	if ls.tracingCollector == nil {
		return ctx, nil
	}

	return ls.tracingCollector.StartSpan(ctx, name, attrs)
}

// finishSpan finishes a tracing span if one was started.
func (ls *LendingStore) finishSpan(spanCtx lendingstore.SpanContext, status string) {
	if ls.tracingCollector == nil || spanCtx == nil {
		return
	}

	ls.tracingCollector.FinishSpan(spanCtx, status, nil)
}

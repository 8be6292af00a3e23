package httpclient

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Meter name for client instrumentation
	clientMeterName = "go-curl/httpclient"

	metricAttempts        = "http.client.attempts"
	metricAttemptDuration = "http.client.attempt.duration"
	metricRetries         = "http.client.retries"
	metricBatchRequests   = "http.client.batch.requests"

	attrMethod    = "http.request.method"
	attrStatus    = "http.response.status_code"
	attrErrorCode = "error.code"
	attrError     = "error"
)

var (
	clientMeter metric.Meter
	meterOnce   sync.Once

	attemptsCounter   metric.Int64Counter
	durationHistogram metric.Float64Histogram
	retriesCounter    metric.Int64Counter
	batchCounter      metric.Int64Counter
)

// logMetricError reports instrument creation failures on stderr. Metrics are
// best effort and never fail a request.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", metricName, err)
	}
}

func initClientMeter() {
	clientMeter = otel.Meter(clientMeterName)

	var err error
	attemptsCounter, err = clientMeter.Int64Counter(
		metricAttempts,
		metric.WithDescription("Total number of HTTP client attempts"),
	)
	logMetricError(metricAttempts, err)

	durationHistogram, err = clientMeter.Float64Histogram(
		metricAttemptDuration,
		metric.WithDescription("Duration of HTTP client attempts in milliseconds"),
		metric.WithUnit("ms"),
	)
	logMetricError(metricAttemptDuration, err)

	retriesCounter, err = clientMeter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of retries scheduled by the retry policy"),
	)
	logMetricError(metricRetries, err)

	batchCounter, err = clientMeter.Int64Counter(
		metricBatchRequests,
		metric.WithDescription("Number of requests dispatched by batch calls"),
	)
	logMetricError(metricBatchRequests, err)
}

func ensureMeter() {
	meterOnce.Do(initClientMeter)
}

// recordAttempt counts one attempt and records its duration
func recordAttempt(ctx context.Context, method string, status, errCode int, d time.Duration) {
	ensureMeter()

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.Int(attrStatus, status),
		attribute.Int(attrErrorCode, errCode),
		attribute.Bool(attrError, errCode != 0),
	)
	if attemptsCounter != nil {
		attemptsCounter.Add(ctx, 1, attrs)
	}
	if durationHistogram != nil {
		durationHistogram.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
	}
}

func recordRetry(ctx context.Context, method string) {
	ensureMeter()
	if retriesCounter != nil {
		retriesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMethod, method)))
	}
}

func recordBatch(ctx context.Context, errCode int) {
	ensureMeter()
	if batchCounter != nil {
		batchCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Int(attrErrorCode, errCode),
			attribute.Bool(attrError, errCode != 0),
		))
	}
}

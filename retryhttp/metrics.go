package retryhttp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments shared by the retry decorators.
// All record methods are nil-safe so instrument creation failures degrade
// to uninstrumented (but fully functional) retrying.
type metrics struct {
	// retryAttempts counts retries, attributed with the attempt ordinal
	// and the triggering status code.
	retryAttempts metric.Int64Counter

	// retryExhausted counts chains that stopped because the backoff
	// strategy ran out of budget while the response was still retryable.
	retryExhausted metric.Int64Counter

	// retryDuration measures wall time of a whole chain that performed at
	// least one retry, waits included.
	retryDuration metric.Float64Histogram

	// serverDelay measures accepted Retry-After delays in seconds.
	serverDelay metric.Float64Histogram

	// tokenRefreshes counts credential acquisitions by the token-refresh
	// decorator, both the initial injection and 401-triggered renewals.
	tokenRefreshes metric.Int64Counter
}

// newMetrics creates and registers the metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.retryAttempts, err = meter.Int64Counter(
		"http.client.retry.attempts",
		metric.WithDescription("Number of HTTP client retry attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m.retryExhausted, err = meter.Int64Counter(
		"http.client.retry.exhausted",
		metric.WithDescription("Number of call chains that exhausted their retry budget"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.retryDuration, err = meter.Float64Histogram(
		"http.client.retry.duration",
		metric.WithDescription("Total wall time of retried call chains in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
		),
	)
	if err != nil {
		return nil, err
	}

	m.serverDelay, err = meter.Float64Histogram(
		"http.client.retry.server_delay",
		metric.WithDescription("Accepted Retry-After delays in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0, 1, 5, 10, 30, 60, 300, 900, 3600,
		),
	)
	if err != nil {
		return nil, err
	}

	m.tokenRefreshes, err = meter.Int64Counter(
		"http.client.auth.token_refreshes",
		metric.WithDescription("Number of credential acquisitions performed by the token-refresh decorator"),
		metric.WithUnit("{acquisition}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// recordRetryAttempt records one retry, tagged with its ordinal and the
// status code that triggered it.
func (m *metrics) recordRetryAttempt(
	ctx context.Context,
	attrs []attribute.KeyValue,
	attempt int,
	status int,
) {
	if m == nil || m.retryAttempts == nil {
		return
	}
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs,
		attribute.Int("retry.attempt", attempt),
		attribute.Int("http.response.status_code", status),
	)
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(allAttrs...))
}

// recordRetryExhausted records a chain whose strategy ran out of budget.
func (m *metrics) recordRetryExhausted(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.retryExhausted == nil {
		return
	}
	m.retryExhausted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// recordRetryDuration records the wall time of a chain that retried.
func (m *metrics) recordRetryDuration(
	ctx context.Context,
	attrs []attribute.KeyValue,
	duration time.Duration,
) {
	if m == nil || m.retryDuration == nil {
		return
	}
	m.retryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// recordServerDelay records an accepted Retry-After delay.
func (m *metrics) recordServerDelay(
	ctx context.Context,
	attrs []attribute.KeyValue,
	delay time.Duration,
) {
	if m == nil || m.serverDelay == nil {
		return
	}
	m.serverDelay.Record(ctx, delay.Seconds(), metric.WithAttributes(attrs...))
}

// recordTokenRefresh records one credential acquisition.
func (m *metrics) recordTokenRefresh(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.tokenRefreshes == nil {
		return
	}
	m.tokenRefreshes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

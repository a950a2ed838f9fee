package retryhttp

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/replay-go/retryhttp"
)

// =============================================================================
// Defaults
// =============================================================================

// DefaultRetryAfterStatuses returns the status codes the server-directed
// decorator retries by default: 429 Too Many Requests and 503 Service
// Unavailable, the two statuses whose Retry-After header carries deferral
// semantics.
func DefaultRetryAfterStatuses() []int {
	return []int{
		http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
	}
}

// DefaultRetryStatuses returns the status codes the client-policy
// decorator retries by default: the transient request/gateway failures
// 408, 429, 500, 502, 503 and 504.
func DefaultRetryStatuses() []int {
	return []int{
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
}

// defaultTokenRefreshRetries is the 401 retry budget used when the
// token-refresh decorator is given no strategy: one immediate retry with
// a freshly acquired credential.
const defaultTokenRefreshRetries = 1

// =============================================================================
// Internal Configuration
// =============================================================================

// config holds the immutable per-decorator configuration. It is shared by
// every call chain going through one decorator instance and is never
// mutated after construction; per-chain state (the backoff policy, the
// attempt counter) lives on the stack of each RoundTrip call.
type config struct {
	// === Retry Semantics ===

	// strategy is the backoff policy factory, invoked once per chain.
	strategy Strategy

	// statuses is the retryable-status set. A nil map means "use the
	// variant default"; an empty map disables retrying entirely.
	statuses map[int]struct{}

	// maxRetryAfter is the ceiling on server-declared delays. Negative
	// means unlimited.
	maxRetryAfter time.Duration

	// tokenProvider supplies credentials for the token-refresh decorator.
	tokenProvider TokenProvider

	// === Observability ===

	// serviceName identifies the client in spans, metrics and logs.
	serviceName string

	// tracerProvider/meterProvider default to the OTel globals.
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer  trace.Tracer
	meter   metric.Meter
	metrics *metrics

	// logger receives debug-level retry decisions. Defaults to a no-op
	// logger so logging is strictly opt-in.
	logger zerolog.Logger
}

// newConfig builds a config with defaults and applies the options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		maxRetryAfter:  -1, // unlimited
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.tracer = cfg.tracerProvider.Tracer(scope)
	cfg.meter = cfg.meterProvider.Meter(scope)

	// Instrument creation failures degrade to uninstrumented retrying.
	cfg.metrics, _ = newMetrics(cfg.meter)

	return cfg
}

// retryable reports whether a status code is in the configured set,
// falling back to the given variant default when no set was configured.
func (cfg *config) retryable(status int, variantDefault []int) bool {
	if cfg.statuses != nil {
		_, ok := cfg.statuses[status]
		return ok
	}
	for _, s := range variantDefault {
		if s == status {
			return true
		}
	}
	return false
}

// baseAttributes returns common attributes for spans and metrics.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.serviceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.serviceName))
	}
	return attrs
}

// =============================================================================
// Options
// =============================================================================

// Option configures a retry decorator.
type Option func(*config)

// WithStrategy sets the backoff policy factory.
//
// The factory runs once per top-level call chain, so each chain gets a
// private policy instance; never return a shared BackOff from it. The
// policy's Stop sentinel ends the chain with the last response.
//
// NewRetry and NewRetryAfter require a strategy and return the base
// transport unchanged without one. NewTokenRefresh defaults to a single
// immediate retry.
//
// Example:
//
//	retryhttp.WithStrategy(func() backoff.BackOff {
//	    return retryhttp.StopAfter(backoff.NewExponentialBackOff(), 3)
//	})
func WithStrategy(s Strategy) Option {
	return func(cfg *config) {
		cfg.strategy = s
	}
}

// WithRetryableStatuses replaces the variant's default retryable-status
// set. Calling it with no codes disables retrying entirely: every
// response passes through after a single transport call.
//
// Example:
//
//	// Retry only on 503
//	retryhttp.WithRetryableStatuses(http.StatusServiceUnavailable)
func WithRetryableStatuses(codes ...int) Option {
	return func(cfg *config) {
		set := make(map[int]struct{}, len(codes))
		for _, code := range codes {
			set[code] = struct{}{}
		}
		cfg.statuses = set
	}
}

// WithMaxRetryAfter caps the delay a server may demand via Retry-After.
// A server delay above the ceiling fails the chain with
// ErrRetryAfterExceedsMax instead of waiting; the delay is never clamped.
// A negative ceiling means unlimited, which is also the default.
//
// Only NewRetryAfter consults this option.
func WithMaxRetryAfter(d time.Duration) Option {
	return func(cfg *config) {
		cfg.maxRetryAfter = d
	}
}

// WithTokenProvider sets the credential source for NewTokenRefresh.
//
// The provider is called once before the first attempt when the request
// carries no Authorization header, and once before every 401-triggered
// retry regardless of the original header. Both Token fields must be
// non-empty or the chain fails with ErrInvalidToken.
func WithTokenProvider(p TokenProvider) Option {
	return func(cfg *config) {
		cfg.tokenProvider = p
	}
}

// WithServiceName sets an identifier for this client in spans, metrics
// and log lines, as the "http.client.name" attribute.
func WithServiceName(name string) Option {
	return func(cfg *config) {
		cfg.serviceName = name
	}
}

// WithLogger sets the zerolog logger that receives debug-level retry
// decisions (waits, passthroughs, token refreshes). The default is a
// no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. Every chain
// that performs at least one retry records a client span ("HTTP <method>
// retry") from it, with one "http.retry" event per wait; chains that
// never retry record nothing. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		if tp != nil {
			cfg.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		if mp != nil {
			cfg.meterProvider = mp
		}
	}
}

// Package retryhttp provides a family of retrying http.RoundTripper
// decorators with OpenTelemetry instrumentation.
//
// Each decorator wraps a base transport, inspects the response of every
// attempt, and re-issues the call after a cancellable wait. Three variants
// are provided, all driven by the same attempt loop:
//
//   - NewRetryAfter: retries 429/503 responses, waiting as long as the
//     server's Retry-After header dictates (delta-seconds or HTTP-date),
//     plus whatever the caller's backoff strategy adds on top. The
//     strategy's Stop sentinel bounds the attempt count even when the
//     server keeps asking for retries.
//
//   - NewRetry: retries 408/429/500/502/503/504 responses purely on the
//     caller's backoff strategy, stopping when the strategy is exhausted.
//
//   - NewTokenRefresh: retries 401 responses after re-acquiring a
//     credential from a TokenProvider and rebuilding the Authorization
//     header for the next attempt.
//
// # Quick Start
//
//	transport := retryhttp.NewRetry(http.DefaultTransport,
//	    retryhttp.WithStrategy(func() backoff.BackOff {
//	        return retryhttp.StopAfter(backoff.NewExponentialBackOff(), 3)
//	    }),
//	)
//	client := &http.Client{Transport: transport}
//
// Honoring server-directed delays with a bounded budget:
//
//	transport := retryhttp.NewRetryAfter(http.DefaultTransport,
//	    retryhttp.WithStrategy(func() backoff.BackOff {
//	        return retryhttp.StopAfter(retryhttp.ConstantDelay(0), 5)
//	    }),
//	    retryhttp.WithMaxRetryAfter(30*time.Second),
//	)
//
// Refreshing credentials on 401:
//
//	transport := retryhttp.NewTokenRefresh(http.DefaultTransport,
//	    retryhttp.WithTokenProvider(func(ctx context.Context) (retryhttp.Token, error) {
//	        return retryhttp.Token{Scheme: "Bearer", Value: fetchToken(ctx)}, nil
//	    }),
//	)
//
// Decorators compose by nesting, innermost first:
//
//	rt := retryhttp.NewTokenRefresh(
//	    retryhttp.NewRetryAfter(base, retryAfterOpts...),
//	    authOpts...,
//	)
//
// # Semantics
//
// A non-retryable status always returns the response unchanged; a 2xx
// short-circuits even when a Retry-After header is present. An exhausted
// strategy is not an error either: the last response is handed back as-is.
// Errors are reserved for genuine failures: a server delay above the
// configured ceiling (ErrRetryAfterExceedsMax), a total wait beyond the
// representable timer maximum (ErrDelayOutOfRange), an unusable credential
// (ErrInvalidToken), a request body that cannot be re-sent
// (ErrBodyNotRewindable), and context cancellation.
//
// The decorators never buffer request bodies. A request that may be
// retried must either have no body or carry a GetBody callback (as
// requests built by http.NewRequest from byte readers do); a single-use
// body stream is refused rather than silently replayed.
//
// Each top-level call owns its backoff strategy instance and its own
// attempt state, so a single decorator is safe for concurrent use; the
// only shared state is the immutable configuration.
package retryhttp

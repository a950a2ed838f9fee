package retryhttp

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryAfterTransport retries responses whose Retry-After header tells the
// client how long to defer the next attempt.
type retryAfterTransport struct {
	next http.RoundTripper
	cfg  *config
}

// NewRetryAfter wraps a transport with server-directed retrying.
//
// Responses with a retryable status (429 and 503 by default) are retried
// after the delay the server declares in its Retry-After header, in
// delta-seconds or HTTP-date form. A response without a parseable header
// is returned as-is: an unreadable deferral means "do not retry", never
// "retry immediately".
//
// The caller's strategy is consulted before every retry. Its Stop
// sentinel is authoritative for the attempt count even when the server
// still supplies a valid delay; its delay value is added on top of the
// server's, and the sum is slept in a single wait. Use
// StopAfter(ConstantDelay(0), n) to respect the server's timing exactly
// while bounding attempts. A strategy is required; without one the base
// transport is returned unchanged.
//
// A server delay above the WithMaxRetryAfter ceiling fails the chain with
// ErrRetryAfterExceedsMax. Any total wait beyond the representable timer
// maximum fails with ErrDelayOutOfRange.
func NewRetryAfter(next http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := newConfig(opts...)
	if cfg.strategy == nil {
		return next
	}
	return &retryAfterTransport{next: next, cfg: cfg}
}

// RoundTrip implements http.RoundTripper.
func (t *retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	pol := t.cfg.strategy()

	loop := &retryLoop{
		next: t.next,
		cfg:  t.cfg,
		decide: func(resp *http.Response) (decision, error) {
			if !t.cfg.retryable(resp.StatusCode, DefaultRetryAfterStatuses()) {
				return decision{}, nil
			}

			server, err := parseRetryAfter(resp.Header.Get(headerRetryAfter), time.Now())
			if errors.Is(err, errRetryAfterMalformed) {
				t.cfg.logger.Debug().
					Str("client", t.cfg.serviceName).
					Int("status", resp.StatusCode).
					Msg("retry-after header absent or malformed, returning response")
				return decision{}, nil
			}
			if err != nil {
				return decision{}, err
			}

			if t.cfg.maxRetryAfter >= 0 && server > t.cfg.maxRetryAfter {
				return decision{}, fmt.Errorf("%w: server requested %s, ceiling is %s",
					ErrRetryAfterExceedsMax, server, t.cfg.maxRetryAfter)
			}

			// The client budget bounds attempts; the server value drives
			// the wait. The policy's own delay is padding on top.
			padding := pol.NextBackOff()
			if padding == backoff.Stop {
				return decision{exhausted: true}, nil
			}

			total := server + padding
			if total > maxTimerDelay {
				return decision{}, fmt.Errorf("%w: total wait %s", ErrDelayOutOfRange, total)
			}

			// Recorded only once the chain commits to sleeping it.
			t.cfg.metrics.recordServerDelay(ctx, t.cfg.baseAttributes(), server)
			return decision{retry: true, delay: total, reason: "server retry-after"}, nil
		},
	}

	return loop.run(req)
}

package retryhttp

import (
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v5"
)

// retryTransport retries transient failure statuses on a purely
// client-side backoff schedule.
type retryTransport struct {
	next http.RoundTripper
	cfg  *config
}

// NewRetry wraps a transport with client-policy retrying.
//
// Responses with a retryable status (408, 429, 500, 502, 503 and 504 by
// default) are retried after whatever delay the caller's strategy yields;
// the strategy's Stop sentinel ends the chain and the last response is
// returned unchanged. There is no server-directed timing in this variant;
// a Retry-After header, if present, is ignored.
//
// A strategy is required; without one the base transport is returned
// unchanged. An empty status set (WithRetryableStatuses with no codes)
// disables retrying: every response passes through after one call.
func NewRetry(next http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := newConfig(opts...)
	if cfg.strategy == nil {
		return next
	}
	return &retryTransport{next: next, cfg: cfg}
}

// RoundTrip implements http.RoundTripper.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	pol := t.cfg.strategy()

	loop := &retryLoop{
		next: t.next,
		cfg:  t.cfg,
		decide: func(resp *http.Response) (decision, error) {
			if !t.cfg.retryable(resp.StatusCode, DefaultRetryStatuses()) {
				return decision{}, nil
			}

			delay := pol.NextBackOff()
			if delay == backoff.Stop {
				return decision{exhausted: true}, nil
			}
			if delay > maxTimerDelay {
				return decision{}, fmt.Errorf("%w: policy wait %s", ErrDelayOutOfRange, delay)
			}
			return decision{retry: true, delay: delay, reason: "backoff policy"}, nil
		},
	}

	return loop.run(req)
}

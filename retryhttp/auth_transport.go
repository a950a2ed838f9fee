package retryhttp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v5"
)

// headerAuthorization is the request header rebuilt on every
// 401-triggered retry.
const headerAuthorization = "Authorization"

// Token is a credential pair used to build an Authorization header.
type Token struct {
	// Value is the credential itself (an OAuth access token, an API key).
	Value string

	// Scheme is the authorization scheme the value is presented under,
	// such as "Bearer" or "Basic".
	Scheme string
}

// header renders the token as an Authorization header value.
func (t Token) header() string {
	return t.Scheme + " " + t.Value
}

// TokenProvider supplies a credential on demand. It is called once before
// the first attempt when the request carries no Authorization header, and
// once before every 401-triggered retry. Provider errors fail the chain
// immediately; the acquisition itself is never retried.
type TokenProvider func(ctx context.Context) (Token, error)

// tokenRefreshTransport retries 401 responses with freshly acquired
// credentials.
type tokenRefreshTransport struct {
	next http.RoundTripper
	cfg  *config
}

// NewTokenRefresh wraps a transport with credential-refresh retrying.
//
// A 401 response triggers a retry whose Authorization header is rebuilt
// from a fresh TokenProvider acquisition. The refresh is unconditional on
// every retry: a caller-supplied Authorization header is honored only on
// the very first attempt, where it also suppresses the initial
// acquisition. When the first attempt carries no such header, one
// acquisition populates it before any call is made.
//
// The strategy governs only the 401 retry cadence; it defaults to a
// single immediate retry. Tokens with an empty value or scheme fail the
// chain with ErrInvalidToken before any further attempt.
//
// A TokenProvider is required; without one the base transport is returned
// unchanged.
func NewTokenRefresh(next http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := newConfig(opts...)
	if cfg.tokenProvider == nil {
		return next
	}
	return &tokenRefreshTransport{next: next, cfg: cfg}
}

// RoundTrip implements http.RoundTripper.
func (t *tokenRefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	first := req
	if req.Header.Get(headerAuthorization) == "" {
		tok, err := t.acquire(ctx)
		if err != nil {
			return nil, err
		}
		first = req.Clone(ctx)
		first.Header.Set(headerAuthorization, tok.header())
	}

	// A fresh policy per chain, a fresh token per attempt.
	pol := t.strategy()

	loop := &retryLoop{
		next: t.next,
		cfg:  t.cfg,
		decide: func(resp *http.Response) (decision, error) {
			if !t.cfg.retryable(resp.StatusCode, []int{http.StatusUnauthorized}) {
				return decision{}, nil
			}

			delay := pol.NextBackOff()
			if delay == backoff.Stop {
				return decision{exhausted: true}, nil
			}
			if delay > maxTimerDelay {
				return decision{}, fmt.Errorf("%w: policy wait %s", ErrDelayOutOfRange, delay)
			}
			return decision{retry: true, delay: delay, reason: "unauthorized"}, nil
		},
		rearm: func(next *http.Request) error {
			tok, err := t.acquire(ctx)
			if err != nil {
				return err
			}
			next.Header.Set(headerAuthorization, tok.header())
			return nil
		},
	}

	return loop.run(first)
}

// strategy returns the configured retry cadence, defaulting to a single
// immediate retry.
func (t *tokenRefreshTransport) strategy() backoff.BackOff {
	if t.cfg.strategy != nil {
		return t.cfg.strategy()
	}
	return StopAfter(ConstantDelay(0), defaultTokenRefreshRetries)
}

// acquire fetches a token and validates it. Both fields must be non-empty
// or the chain fails closed with a configuration error.
func (t *tokenRefreshTransport) acquire(ctx context.Context) (Token, error) {
	tok, err := t.cfg.tokenProvider(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("retryhttp: acquire token: %w", err)
	}
	if tok.Value == "" || tok.Scheme == "" {
		return Token{}, fmt.Errorf("%w: value and scheme must be non-empty", ErrInvalidToken)
	}

	t.cfg.metrics.recordTokenRefresh(ctx, t.cfg.baseAttributes())
	t.cfg.logger.Debug().
		Str("client", t.cfg.serviceName).
		Str("scheme", tok.Scheme).
		Msg("acquired credential")

	return tok, nil
}

package retryhttp

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// decision is the outcome of evaluating one attempt's response.
//
// The zero value means "done: hand the response back unchanged". A retry
// carries the total wait to perform before the next attempt; exhausted
// marks a stop forced by the backoff policy's Stop sentinel (recorded in
// metrics, still not an error).
type decision struct {
	retry     bool
	delay     time.Duration
	exhausted bool
	reason    string
}

// decider evaluates the response of one attempt. Returning an error fails
// the whole chain before the stale response is disposed of: a rejected
// delay (ceiling or range violation) never reaches disposal.
type decider func(resp *http.Response) (decision, error)

// rearmer prepares the next attempt's request after the wait has elapsed.
// The token-refresh decorator uses it to rebuild the Authorization header;
// the other variants resend the attempt context verbatim.
type rearmer func(req *http.Request) error

// retryLoop drives the attempt cycle shared by all decorators:
// attempt, evaluate, dispose, wait, rearm, attempt again.
//
// One retryLoop instance serves exactly one call chain; the decider owns
// the chain's private backoff policy through its closure. The loop keeps
// at most one transport call outstanding and observes cancellation at its
// two suspension points: the transport call (forwarded through the request
// context) and the cancellable wait (observed here).
type retryLoop struct {
	next   http.RoundTripper
	cfg    *config
	decide decider
	rearm  rearmer
}

func (l *retryLoop) run(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	ambient := trace.SpanFromContext(ctx)
	start := time.Now()

	// chain is the retry span started from the configured tracer once the
	// first retry is due; chains that never retry never open a span.
	var chain trace.Span

	attempt := 0
	cur := req

	for {
		resp, err := l.next.RoundTrip(cur)
		if err != nil {
			l.finish(req, ambient, chain, attempt, start)
			return nil, err
		}

		dec, err := l.decide(resp)
		if err != nil {
			// A rejected delay never reaches disposal.
			l.finish(req, ambient, chain, attempt, start)
			return nil, err
		}

		if !dec.retry {
			if dec.exhausted {
				l.cfg.metrics.recordRetryExhausted(ctx, l.cfg.baseAttributes())
				l.cfg.logger.Debug().
					Str("client", l.cfg.serviceName).
					Int("status", resp.StatusCode).
					Int("attempts", attempt+1).
					Msg("retry budget exhausted, returning last response")
			}
			l.finish(req, ambient, chain, attempt, start)
			return resp, nil
		}

		// The next attempt's request is built before anything is torn
		// down, so a non-rewindable body fails the chain without a wait.
		nxt, err := l.nextRequest(req)
		if err != nil {
			discardBody(resp)
			l.finish(req, ambient, chain, attempt, start)
			return nil, err
		}

		status := resp.StatusCode
		discardBody(resp)

		attempt++
		if chain == nil {
			_, chain = l.cfg.tracer.Start(ctx, "HTTP "+req.Method+" retry",
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(l.cfg.baseAttributes()...),
			)
		}
		l.observeRetry(ambient, chain, attempt, status, dec)
		l.cfg.metrics.recordRetryAttempt(ctx, l.cfg.baseAttributes(), attempt, status)

		if err := sleepContext(ctx, dec.delay); err != nil {
			l.finish(req, ambient, chain, attempt, start)
			return nil, err
		}

		if l.rearm != nil {
			if err := l.rearm(nxt); err != nil {
				l.finish(req, ambient, chain, attempt, start)
				return nil, err
			}
		}

		cur = nxt
	}
}

// nextRequest builds the request for a retry attempt. The attempt context
// is resent verbatim: a clone of the original request with a fresh body
// obtained from GetBody. A body the loop cannot regenerate is refused.
func (l *retryLoop) nextRequest(orig *http.Request) (*http.Request, error) {
	clone := orig.Clone(orig.Context())

	if orig.Body == nil || orig.Body == http.NoBody {
		return clone, nil
	}
	if orig.GetBody == nil {
		return nil, fmt.Errorf("%w: single-use body without GetBody", ErrBodyNotRewindable)
	}

	body, err := orig.GetBody()
	if err != nil {
		return nil, fmt.Errorf("%w: GetBody failed: %v", ErrBodyNotRewindable, err)
	}
	clone.Body = body

	return clone, nil
}

// observeRetry adds a span event and a debug log line for one retry. The
// event goes to both the retry span and the caller's ambient span, so the
// retry shows up whichever provider the reader is looking at.
func (l *retryLoop) observeRetry(ambient, chain trace.Span, attempt, status int, dec decision) {
	l.cfg.logger.Debug().
		Str("client", l.cfg.serviceName).
		Int("status", status).
		Int("attempt", attempt).
		Dur("wait", dec.delay).
		Str("reason", dec.reason).
		Msg("retrying request")

	for _, span := range []trace.Span{ambient, chain} {
		if span == nil || !span.IsRecording() {
			continue
		}
		span.AddEvent("http.retry", trace.WithAttributes(
			attribute.Int("retry.attempt", attempt),
			attribute.Int64("retry.delay_ms", dec.delay.Milliseconds()),
			attribute.Int("http.response.status_code", status),
			attribute.String("retry.reason", dec.reason),
		))
	}
}

// finish ends the retry span and records chain-level metrics once the
// loop exits, but only for chains that actually retried.
func (l *retryLoop) finish(req *http.Request, ambient, chain trace.Span, attempt int, start time.Time) {
	if attempt == 0 {
		return
	}
	if ambient.IsRecording() {
		ambient.SetAttributes(attribute.Int("http.retry_count", attempt))
	}
	if chain != nil {
		chain.SetAttributes(attribute.Int("http.retry_count", attempt))
		chain.End()
	}
	l.cfg.metrics.recordRetryDuration(req.Context(), l.cfg.baseAttributes(), time.Since(start))
}

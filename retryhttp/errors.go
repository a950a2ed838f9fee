package retryhttp

import (
	"errors"
	"math"
	"time"
)

// maxTimerDelay is the largest wait any decorator will schedule:
// 2^31-1 milliseconds (roughly 24.8 days). Delays beyond it are rejected
// with ErrDelayOutOfRange rather than clamped, so a misbehaving server can
// never park a call chain for an unbounded time.
const maxTimerDelay = time.Duration(math.MaxInt32) * time.Millisecond

var (
	// ErrRetryAfterExceedsMax is returned when a server-declared delay is
	// larger than the ceiling configured with WithMaxRetryAfter. The delay
	// is rejected outright; it is never clamped to the ceiling.
	ErrRetryAfterExceedsMax = errors.New("retryhttp: server retry delay exceeds configured maximum")

	// ErrDelayOutOfRange is returned when a computed total wait exceeds the
	// representable timer maximum, independent of any configured ceiling.
	ErrDelayOutOfRange = errors.New("retryhttp: retry delay out of range")

	// ErrInvalidToken is returned when a TokenProvider yields a credential
	// with an empty value or scheme. The call chain fails closed; the
	// acquisition is not retried.
	ErrInvalidToken = errors.New("retryhttp: token provider returned an invalid token")

	// ErrBodyNotRewindable is returned when a retry is due but the request
	// body is a single-use stream without a GetBody callback. The decorator
	// refuses to replay a body it did not originate.
	ErrBodyNotRewindable = errors.New("retryhttp: request body cannot be re-sent")
)

// errRetryAfterMalformed marks a Retry-After value that matches neither
// the delta-seconds nor the HTTP-date grammar. It never escapes the
// package: a malformed value means "do not retry", not "fail".
var errRetryAfterMalformed = errors.New("retryhttp: malformed retry-after value")

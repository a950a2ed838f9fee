package retryhttp

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// headerRetryAfter is the response header carrying the server's deferral
// request, in either delta-seconds or HTTP-date form (RFC 9110 §10.2.3).
const headerRetryAfter = "Retry-After"

// maxRetryAfterSeconds is the largest delta-seconds value that still fits
// under maxTimerDelay once converted to a duration.
const maxRetryAfterSeconds = uint64(maxTimerDelay / time.Second)

// parseRetryAfter interprets a Retry-After header value relative to now.
//
// Exactly two grammars are recognized:
//
//   - delta-seconds: one or more ASCII digits, interpreted as whole
//     seconds ("120" means two minutes);
//   - HTTP-date: the fixed RFC 1123 layout with a literal GMT zone
//     ("Wed, 21 Oct 2026 07:28:00 GMT"), yielding max(0, instant-now).
//
// Everything else - an absent value, fractional or signed numbers,
// ISO 8601 dates, non-GMT zones - returns errRetryAfterMalformed, which
// callers treat as "return the response as-is, do not retry".
//
// A value that parses but whose delay exceeds maxTimerDelay returns
// ErrDelayOutOfRange instead: magnitude violations are hard failures,
// not silent passthroughs.
func parseRetryAfter(value string, now time.Time) (time.Duration, error) {
	if value == "" {
		return 0, errRetryAfterMalformed
	}

	if isDigits(value) {
		secs, err := strconv.ParseUint(value, 10, 64)
		if err != nil || secs > maxRetryAfterSeconds {
			// All-digit values are grammatically valid; only their
			// magnitude is wrong.
			return 0, fmt.Errorf("%w: %q", ErrDelayOutOfRange, value)
		}
		return time.Duration(secs) * time.Second, nil
	}

	instant, err := time.Parse(http.TimeFormat, value)
	if err != nil {
		return 0, errRetryAfterMalformed
	}

	delay := instant.Sub(now)
	if delay < 0 {
		delay = 0
	}
	if delay > maxTimerDelay {
		return 0, fmt.Errorf("%w: %q", ErrDelayOutOfRange, value)
	}
	return delay, nil
}

// isDigits reports whether s consists solely of ASCII digits.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

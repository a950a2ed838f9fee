package retryhttp

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Strategy produces a fresh backoff policy for one top-level call chain.
//
// The factory is invoked once per RoundTrip, so policy state (attempt
// counters, growing intervals) is never shared between concurrent calls.
// A policy signals exhaustion by returning backoff.Stop from NextBackOff;
// the decorators treat that sentinel as "hand back the last response",
// never as an error.
type Strategy func() backoff.BackOff

// Ensure the package strategies implement the backoff.BackOff interface.
var (
	_ backoff.BackOff = (*constantDelay)(nil)
	_ backoff.BackOff = (*stopAfter)(nil)
)

// ConstantDelay returns a policy that always yields d, without jitter.
//
// Use it with a zero duration on NewRetryAfter when the server's declared
// delay should be respected exactly, with no client-side padding:
//
//	retryhttp.WithStrategy(func() backoff.BackOff {
//	    return retryhttp.StopAfter(retryhttp.ConstantDelay(0), 5)
//	})
//
// Deterministic cadence also makes it the policy of choice in tests.
func ConstantDelay(d time.Duration) backoff.BackOff {
	return &constantDelay{interval: d}
}

type constantDelay struct {
	interval time.Duration
}

func (b *constantDelay) NextBackOff() time.Duration { return b.interval }

// Reset is a no-op for a constant policy.
func (b *constantDelay) Reset() {}

// StopAfter wraps a policy so that it emits backoff.Stop after n values,
// bounding the number of retries a chain may perform.
//
// cenkalti/backoff v5 moved attempt limits out of the BackOff interface
// and into its Retry helper; the decorators here drive NextBackOff
// directly, so the limit is reintroduced as a policy wrapper:
//
//	// at most 3 retries, exponentially spaced
//	retryhttp.StopAfter(backoff.NewExponentialBackOff(), 3)
//
// Reset restores the full budget along with the wrapped policy's state.
func StopAfter(b backoff.BackOff, n uint) backoff.BackOff {
	return &stopAfter{next: b, budget: n, remaining: n}
}

type stopAfter struct {
	next      backoff.BackOff
	budget    uint
	remaining uint
}

func (b *stopAfter) NextBackOff() time.Duration {
	if b.remaining == 0 {
		return backoff.Stop
	}
	b.remaining--

	d := b.next.NextBackOff()
	if d == backoff.Stop {
		return backoff.Stop
	}
	return d
}

func (b *stopAfter) Reset() {
	b.remaining = b.budget
	b.next.Reset()
}

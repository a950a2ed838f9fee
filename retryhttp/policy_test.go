package retryhttp

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
)

func TestConstantDelay(t *testing.T) {
	t.Run("given interval, then every value is the interval", func(t *testing.T) {
		pol := ConstantDelay(250 * time.Millisecond)

		for i := 0; i < 5; i++ {
			assert.Equal(t, 250*time.Millisecond, pol.NextBackOff())
		}
	})

	t.Run("given zero interval, then yields zero forever", func(t *testing.T) {
		pol := ConstantDelay(0)

		assert.Equal(t, time.Duration(0), pol.NextBackOff())
		pol.Reset()
		assert.Equal(t, time.Duration(0), pol.NextBackOff())
	})
}

func TestStopAfter(t *testing.T) {
	t.Run("given budget of n, then emits n values before stop", func(t *testing.T) {
		pol := StopAfter(ConstantDelay(time.Second), 3)

		for i := 0; i < 3; i++ {
			assert.Equal(t, time.Second, pol.NextBackOff())
		}
		assert.Equal(t, backoff.Stop, pol.NextBackOff())
		assert.Equal(t, backoff.Stop, pol.NextBackOff())
	})

	t.Run("given zero budget, then stops immediately", func(t *testing.T) {
		pol := StopAfter(ConstantDelay(time.Second), 0)

		assert.Equal(t, backoff.Stop, pol.NextBackOff())
	})

	t.Run("given reset, then budget is restored", func(t *testing.T) {
		pol := StopAfter(ConstantDelay(time.Second), 1)

		assert.Equal(t, time.Second, pol.NextBackOff())
		assert.Equal(t, backoff.Stop, pol.NextBackOff())

		pol.Reset()
		assert.Equal(t, time.Second, pol.NextBackOff())
	})

	t.Run("given wrapped policy that stops early, then stop passes through", func(t *testing.T) {
		pol := StopAfter(StopAfter(ConstantDelay(time.Second), 1), 5)

		assert.Equal(t, time.Second, pol.NextBackOff())
		assert.Equal(t, backoff.Stop, pol.NextBackOff())
	})

	t.Run("given exponential policy, then delays grow until stop", func(t *testing.T) {
		exp := &backoff.ExponentialBackOff{
			InitialInterval:     10 * time.Millisecond,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         time.Second,
		}

		pol := StopAfter(exp, 3)

		assert.Equal(t, 10*time.Millisecond, pol.NextBackOff())
		assert.Equal(t, 20*time.Millisecond, pol.NextBackOff())
		assert.Equal(t, 40*time.Millisecond, pol.NextBackOff())
		assert.Equal(t, backoff.Stop, pol.NextBackOff())
	})
}

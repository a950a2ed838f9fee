package retryhttp

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTransport(t *testing.T) {
	t.Run("given scripted responses, then served in order", func(t *testing.T) {
		mock := NewMockTransport()
		mock.Enqueue(http.StatusServiceUnavailable, nil, "first")
		mock.Enqueue(http.StatusOK, nil, "second")

		req := newRequest(t, http.MethodGet, "http://example.com/", nil)

		resp1, err := mock.RoundTrip(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp1.StatusCode)

		resp2, err := mock.RoundTrip(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp2.StatusCode)

		body, err := io.ReadAll(resp2.Body)
		require.NoError(t, err)
		assert.Equal(t, "second", string(body))
	})

	t.Run("given scripted error, then returned in order", func(t *testing.T) {
		mock := NewMockTransport()
		wantErr := errors.New("connection reset")
		mock.EnqueueError(wantErr)

		_, err := mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/", nil))

		require.ErrorIs(t, err, wantErr)
	})

	t.Run("given drained script with a fallback, then fallback served with fresh bodies", func(t *testing.T) {
		mock := NewMockTransport()
		mock.Stub(http.StatusOK, nil, "fallback")

		req := newRequest(t, http.MethodGet, "http://example.com/", nil)

		for i := 0; i < 2; i++ {
			resp, err := mock.RoundTrip(req)
			require.NoError(t, err)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, "fallback", string(body))
		}
	})

	t.Run("given drained script without fallback, then error", func(t *testing.T) {
		mock := NewMockTransport()

		_, err := mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/", nil))

		require.Error(t, err)
	})

	t.Run("given requests, then they are recorded in order", func(t *testing.T) {
		mock := NewMockTransport()
		mock.Stub(http.StatusOK, nil, "")

		assert.Nil(t, mock.LastRequest())

		first := newRequest(t, http.MethodGet, "http://example.com/a", nil)
		second := newRequest(t, http.MethodPost, "http://example.com/b", nil)
		_, _ = mock.RoundTrip(first)
		_, _ = mock.RoundTrip(second)

		assert.Equal(t, 2, mock.RequestCount())
		assert.Equal(t, second, mock.LastRequest())
		assert.Equal(t, []*http.Request{first, second}, mock.Requests())
	})

	t.Run("given reset, then script and recordings are cleared", func(t *testing.T) {
		mock := NewMockTransport()
		mock.Enqueue(http.StatusOK, nil, "")
		mock.Stub(http.StatusOK, nil, "")
		_, _ = mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/", nil))

		mock.Reset()

		assert.Zero(t, mock.RequestCount())
		_, err := mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/", nil))
		require.Error(t, err)
	})
}

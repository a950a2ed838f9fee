package retryhttp

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestRetryTransport_RecordsConfiguredProviderSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mock := NewMockTransport()
	mock.Enqueue(http.StatusServiceUnavailable, nil, "unavailable")
	mock.Enqueue(http.StatusServiceUnavailable, nil, "unavailable")
	mock.Enqueue(http.StatusOK, nil, "OK")

	rt := NewRetry(mock,
		WithStrategy(immediateStrategy(2)),
		WithTracerProvider(tp),
	)

	resp, err := rt.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/resource", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Without any caller-started span, the configured provider alone must
	// still see the retried chain.
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET retry", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Len(t, retryEvents(spans[0]), 2, "one event per retry wait")

	count, ok := findIntAttribute(spans[0].Attributes(), "http.retry_count")
	require.True(t, ok)
	assert.EqualValues(t, 2, count)
}

func TestRetryTransport_AnnotatesAmbientSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mock := NewMockTransport()
	mock.Enqueue(http.StatusServiceUnavailable, nil, "unavailable")
	mock.Enqueue(http.StatusServiceUnavailable, nil, "unavailable")
	mock.Enqueue(http.StatusOK, nil, "OK")

	rt := NewRetry(mock,
		WithStrategy(immediateStrategy(2)),
		WithTracerProvider(tp),
	)

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "call")

	req := newRequest(t, http.MethodGet, "http://example.com/resource", nil)
	resp, err := rt.RoundTrip(req.WithContext(ctx))
	span.End()

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	spans := recorder.Ended()
	require.Len(t, spans, 2, "the retry span plus the caller's span")

	caller := spanByName(t, spans, "call")
	assert.Len(t, retryEvents(caller), 2, "one event per retry wait")

	count, ok := findIntAttribute(caller.Attributes(), "http.retry_count")
	require.True(t, ok, "retried chains annotate the caller's span")
	assert.EqualValues(t, 2, count)

	retry := spanByName(t, spans, "HTTP GET retry")
	assert.Len(t, retryEvents(retry), 2)
}

func TestRetryTransport_NoSpanWithoutRetries(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mock := NewMockTransport()
	mock.Enqueue(http.StatusOK, nil, "OK")

	rt := NewRetry(mock, WithStrategy(immediateStrategy(2)), WithTracerProvider(tp))

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "call")

	req := newRequest(t, http.MethodGet, "http://example.com/resource", nil)
	resp, err := rt.RoundTrip(req.WithContext(ctx))
	span.End()

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	spans := recorder.Ended()
	require.Len(t, spans, 1, "clean first attempts open no retry span")
	assert.Empty(t, spans[0].Events())

	_, ok := findIntAttribute(spans[0].Attributes(), "http.retry_count")
	assert.False(t, ok, "clean first attempts leave the caller's span untouched")
}

// retryEvents filters a recorded span's events down to the retry ones.
func retryEvents(span sdktrace.ReadOnlySpan) []sdktrace.Event {
	var events []sdktrace.Event
	for _, ev := range span.Events() {
		if ev.Name == "http.retry" {
			events = append(events, ev)
		}
	}
	return events
}

// spanByName finds a recorded span by name, failing the test if absent.
func spanByName(t *testing.T, spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range spans {
		if span.Name() == name {
			return span
		}
	}
	t.Fatalf("no span named %q recorded", name)
	return nil
}

// findIntAttribute scans a recorded span's attributes for an int64 value.
func findIntAttribute(attrs []attribute.KeyValue, key string) (int64, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsInt64(), true
		}
	}
	return 0, false
}

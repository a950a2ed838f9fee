package retryhttp

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
)

// MockTransport is a scriptable http.RoundTripper for testing retry
// behavior. Responses are enqueued and served in order, one per attempt,
// which is the natural shape for exercising retry loops ("first a 503
// with Retry-After, then a 200"). When the script is drained, the
// fallback response or error configured with Stub/StubError is served.
//
// All methods are safe for concurrent use and return the transport for
// chaining.
type MockTransport struct {
	mu          sync.Mutex
	script      []scripted
	fallback    *http.Response
	fallbackErr error
	requests    []*http.Request
}

type scripted struct {
	resp *http.Response
	err  error
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Enqueue appends a response with the given status, headers and body to
// the script. A nil header is allowed.
func (m *MockTransport) Enqueue(statusCode int, header http.Header, body string) *MockTransport {
	return m.EnqueueResponse(makeResponse(statusCode, header, body))
}

// EnqueueResponse appends a pre-built response to the script. Use this
// when the test needs control over the body reader, e.g. one whose Close
// fails.
func (m *MockTransport) EnqueueResponse(resp *http.Response) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{resp: resp})
	return m
}

// EnqueueError appends a transport error to the script.
func (m *MockTransport) EnqueueError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// Stub sets the fallback response served once the script is drained.
// Each attempt gets a fresh copy with its own body reader.
func (m *MockTransport) Stub(statusCode int, header http.Header, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = makeResponse(statusCode, header, body)
	return m
}

// StubError sets the fallback error served once the script is drained.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackErr = err
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		if next.err != nil {
			return nil, next.err
		}
		resp := next.resp
		resp.Request = req
		return resp, nil
	}

	if m.fallbackErr != nil {
		return nil, m.fallbackErr
	}
	if m.fallback != nil {
		resp := copyResponse(m.fallback)
		resp.Request = req
		return resp, nil
	}

	return nil, errors.New("retryhttp: mock transport script exhausted: " +
		req.Method + " " + req.URL.String())
}

// Requests returns all requests seen by the transport, in order.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestCount returns the number of attempts performed.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if none was made.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears the script, fallbacks and recorded requests.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = nil
	m.fallback = nil
	m.fallbackErr = nil
	m.requests = nil
}

func makeResponse(statusCode int, header http.Header, body string) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode:    statusCode,
		Status:        http.StatusText(statusCode),
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(body)),
		ContentLength: int64(len(body)),
	}
}

func copyResponse(resp *http.Response) *http.Response {
	var bodyBytes []byte
	if resp.Body != nil {
		bodyBytes, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}
	return &http.Response{
		Status:        resp.Status,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header.Clone(),
		Body:          io.NopCloser(bytes.NewBuffer(bodyBytes)),
		ContentLength: resp.ContentLength,
	}
}

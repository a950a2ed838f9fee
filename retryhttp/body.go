package retryhttp

import (
	"io"
	"net/http"
)

// discardBody drains and closes the body of a response that is about to
// be superseded by a retry. Draining lets the underlying connection be
// reused for the next attempt instead of being torn down.
//
// Disposal is strictly best-effort: a body that was already consumed,
// already closed, or whose reader fails mid-drain must never prevent the
// retry, so every error is swallowed. A response without a body is a
// no-op.
func discardBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

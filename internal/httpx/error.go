package httpx

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// HTTPError is a non-2xx response from the remote endpoint.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("httpx: status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("httpx: status %d: %s", e.StatusCode, truncate(e.Body, 256))
}

// Message extracts a human readable message from a JSON error body, trying
// the common "error.message", "message" and "error" members.
func (e *HTTPError) Message() string {
	if e == nil || !gjson.ValidBytes(e.Body) {
		return ""
	}
	for _, path := range []string{"error.message", "message", "error"} {
		if v := gjson.GetBytes(e.Body, path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

// Retryable reports whether the status is considered transient.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	return retryableStatus(e.StatusCode)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout ||
		(code >= 500 && code <= 599)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Package transport builds the shared HTTP client used by every LLM
// adapter registered in internal/llm.
package transport

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns an http.Client with an explicit timeout and a
// connection-pooled transport tuned for many short-lived chat-completion
// round-trips.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

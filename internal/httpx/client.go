// Package httpx provides shared HTTP clients for the relay's outbound calls.
package httpx

import (
	"net"
	"net/http"
	"time"
)

// NewClient returns a pooled HTTP client bounded by the given timeout.
// The relay keeps one client per timeout class (notify 10s, download 30s,
// upload 60s) instead of creating clients per request.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// SPDX-License-Identifier: MIT

// Package fetch implements the HTTP collaborator used to download playlist
// documents and to probe stream URLs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// UserAgent mimics the Android player the upstream servers expect.
const UserAgent = "Mozilla/5.0 (Linux; Android 10; SM-G950F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.120 Mobile Safari/537.36"

// DefaultTimeout bounds connect+read for a single request.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much playlist text a single fetch may return.
const maxBodyBytes = 32 << 20

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// Client fetches playlist documents with a fixed header set and a per-host
// circuit breaker.
type Client struct {
	http *http.Client

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// New builds a Client with the given request timeout. A zero timeout means
// DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get downloads the document at rawURL and returns its body as text.
// Non-2xx statuses and transport failures are errors; repeated failures for
// one host open that host's breaker.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	cb, err := c.breakerFor(rawURL)
	if err != nil {
		return "", err
	}

	var body string
	err = cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		setHeaders(req)

		res, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode > 299 {
			return &StatusError{Code: res.StatusCode}
		}

		data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if err != nil {
			return err
		}
		body = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

// Head issues a header-only existence check against rawURL. It returns an
// error for any transport failure or non-success status; no body is read.
// Probe requests bypass the circuit breaker: availability is advisory and a
// dead stream host must not block playlist fetches.
func (c *Client) Head(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return err
	}
	setHeaders(req)

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Code: res.StatusCode}
	}
	return nil
}

func (c *Client) breakerFor(rawURL string) (*CircuitBreaker, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	host := u.Host
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[host]
	if !ok {
		cb = NewCircuitBreaker(host, defaultFailureThreshold, defaultResetTimeout)
		c.breakers[host] = cb
	}
	return cb, nil
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Connection", "keep-alive")
}

package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/domain"
)

// maxResponseBody caps how much of a gateway response is read.
const maxResponseBody = 4 * 1024 * 1024

// Pool sizing for a single gateway host.
const (
	defaultMaxIdleConns    = 10
	defaultMaxConnsPerHost = 10
	defaultIdleConnTimeout = 90 * time.Second
)

// NewPooledTransport creates an http.Transport tuned for one gateway host.
func NewPooledTransport(connTimeout, respTimeout time.Duration) *http.Transport {
	if connTimeout <= 0 {
		connTimeout = 10 * time.Second
	}
	if respTimeout <= 0 {
		respTimeout = 30 * time.Second
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConns,
		MaxConnsPerHost:       defaultMaxConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		ForceAttemptHTTP2:     true,
	}
}

// HTTPError is a non-2xx gateway answer.
type HTTPError struct {
	Status  int
	Message string
	Body    []byte
	kind    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%v: gateway status %d: %s", e.kind, e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.kind }

// mapHTTPError maps a status code and body to a domain sentinel. The
// envelope message is preferred over the raw body.
func mapHTTPError(status int, body []byte) *HTTPError {
	msg := strings.TrimSpace(string(body))
	var env gatewayapi.Envelope
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		msg = env.Message
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	var kind error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = domain.ErrGatewayAuthFailed
	case status == http.StatusNotFound:
		kind = domain.ErrNotFound
	case status == http.StatusConflict:
		kind = domain.ErrDuplicate
	case status == http.StatusTooManyRequests:
		kind = domain.ErrRateLimit
	case status >= 500:
		kind = domain.ErrProviderError
	default:
		kind = domain.ErrGatewayRejected
	}
	return &HTTPError{Status: status, Message: msg, Body: body, kind: kind}
}

// rejection returns the envelope of a 4xx answer that the gateway used to
// report a business failure (validation, duplicate name) rather than a
// protocol problem.
func rejection(err error) (gatewayapi.Envelope, bool) {
	var he *HTTPError
	if !errors.As(err, &he) {
		return gatewayapi.Envelope{}, false
	}
	switch he.Status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
	default:
		return gatewayapi.Envelope{}, false
	}
	var env gatewayapi.Envelope
	if json.Unmarshal(he.Body, &env) != nil || env.Message == "" {
		return gatewayapi.Envelope{}, false
	}
	return env, true
}

// tripsBreaker reports whether err says the gateway itself is unhealthy.
// Client-side rejections and caller cancellation do not count.
func tripsBreaker(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status >= 500 || he.Status == http.StatusTooManyRequests
	}
	return true
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", domain.ErrInvalidInput, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrTimeout, method, path, err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrProviderError, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrProviderError, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mapHTTPError(resp.StatusCode, data)
	}
	return data, nil
}

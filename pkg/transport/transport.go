// Package transport carries the vendor HTTP plumbing shared by both
// adapters: JSON calls, streaming calls, error surfacing, and the one-shot
// credential refresh-and-retry around auth-classified failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// StatusError is returned for non-2xx vendor responses. It carries enough
// for the refresh classifier and for callers to surface the failure.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vendor returned status %d: %s", e.Status, truncate(e.Body, 256))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// TokenSource supplies the running credential. Refresh mutates the source
// in place so the next Token call sees the new value; refresh-and-retry is
// performed sequentially within one logical request, so no locking beyond
// the source's own is required here.
type TokenSource interface {
	Token() string
	Refresh(ctx context.Context) (string, error)
}

// ShouldRefreshFunc classifies a failed response as auth-expired. The
// vendor adapters supply their own; the default treats HTTP 401 as expired.
type ShouldRefreshFunc func(status int, body []byte) bool

// DefaultShouldRefresh is the vendor-agnostic classifier.
func DefaultShouldRefresh(status int, _ []byte) bool {
	return status == http.StatusUnauthorized
}

// Client wraps an http.Client with token attachment and the retry-once
// contract.
type Client struct {
	http          *http.Client
	tokens        TokenSource
	shouldRefresh ShouldRefreshFunc
	log           *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithShouldRefresh installs the vendor's auth-expiry classifier.
func WithShouldRefresh(fn ShouldRefreshFunc) Option {
	return func(c *Client) { c.shouldRefresh = fn }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client. tokens may be nil for unauthenticated vendors, in
// which case no Authorization header is attached and no retry happens.
func New(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		tokens:        tokens,
		shouldRefresh: DefaultShouldRefresh,
		log:           slog.Default(),
		http: &http.Client{
			// Chat completions can be slow; streams stay open far longer
			// than a typical API call.
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoJSON performs a JSON request/response round trip. A non-2xx response
// yields a *StatusError; when the classifier marks it auth-expired the
// credential is refreshed once and the call replayed exactly once.
func (c *Client) DoJSON(ctx context.Context, method, url string, in, out any) error {
	body, err := c.withAuthRetry(ctx, func(ctx context.Context) ([]byte, error) {
		return c.roundTrip(ctx, method, url, in)
	})
	if err != nil {
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding vendor response: %w", err)
	}
	return nil
}

// OpenStream performs a request whose response body is consumed as a
// stream. The caller owns the returned ReadCloser. The retry-once contract
// applies to the request itself; once the stream is open, transport
// failures surface through the reader.
func (c *Client) OpenStream(ctx context.Context, method, url string, in any) (io.ReadCloser, error) {
	var stream io.ReadCloser
	_, err := c.withAuthRetry(ctx, func(ctx context.Context) ([]byte, error) {
		resp, err := c.send(ctx, method, url, in, true)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &StatusError{Status: resp.StatusCode, Body: body}
		}
		stream = resp.Body
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// withAuthRetry runs call; on an auth-classified *StatusError it refreshes
// the credential once and replays the call once. A refresh failure
// propagates the original error; a retry failure propagates the retry's
// error. Never more than one refresh and one replay per logical call.
func (c *Client) withAuthRetry(ctx context.Context, call func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	body, err := call(ctx)
	if err == nil {
		return body, nil
	}

	statusErr, ok := asStatusError(err)
	if !ok || c.tokens == nil || !c.shouldRefresh(statusErr.Status, statusErr.Body) {
		return nil, err
	}

	c.log.Debug("credential classified expired, refreshing once", "status", statusErr.Status)
	if _, rerr := c.tokens.Refresh(ctx); rerr != nil {
		c.log.Warn("credential refresh failed", "error", rerr)
		return nil, err
	}

	return call(ctx)
}

func asStatusError(err error) (*StatusError, bool) {
	statusErr, ok := err.(*StatusError)
	return statusErr, ok
}

// roundTrip sends the request and fully reads the response.
func (c *Client) roundTrip(ctx context.Context, method, url string, in any) ([]byte, error) {
	resp, err := c.send(ctx, method, url, in, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading vendor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, Body: body}
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, method, url string, in any, streaming bool) (*http.Response, error) {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vendor request failed: %w", err)
	}
	return resp, nil
}

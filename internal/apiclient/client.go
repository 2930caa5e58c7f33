// Package apiclient is the JSON-over-HTTP transport shared by the issue tracker,
// board and test-case manager adapters. Every request gets its own timeout and a
// transient failure is retried once after a fixed delay.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryDelay time.Duration
	// Auth decorates each outgoing request with credentials
	Auth       func(*http.Request)
	HTTPClient *http.Client
	Log        *zap.SugaredLogger
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	retryDelay time.Duration
	auth       func(*http.Request)
	http       *http.Client
	log        *zap.SugaredLogger
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    timeout,
		retryDelay: opts.RetryDelay,
		auth:       opts.Auth,
		http:       hc,
		log:        log,
	}
}

// BasicAuth returns an Auth func setting HTTP basic credentials
func BasicAuth(user, password string) func(*http.Request) {
	return func(req *http.Request) {
		req.SetBasicAuth(user, password)
	}
}

// QueryAuth returns an Auth func adding credentials as query parameters
func QueryAuth(params map[string]string) func(*http.Request) {
	return func(req *http.Request) {
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
}

// StatusError is returned for any non-2xx response
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 response
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// IsTransient reports whether a failed call is worth repeating
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == http.StatusTooManyRequests
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Do sends body (JSON encoded when non-nil) and decodes a JSON response into out
// (ignored when nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, method, path, query, body, out, true)
}

// DoOnce is Do without the retry. Use it for creating calls: a request that timed out
// may still have been applied, and only the caller can check before repeating it.
func (c *Client) DoOnce(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, method, path, query, body, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, retry bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	err := c.once(ctx, method, path, query, payload, out)
	if !retry || !IsTransient(err) || ctx.Err() != nil {
		return err
	}

	c.log.Warnw("transient failure, retrying once", "method", method, "path", path, "error", err)
	select {
	case <-ctx.Done():
		return err
	case <-time.After(c.retryDelay):
	}
	return c.once(ctx, method, path, query, payload, out)
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Method: method,
			URL:    req.URL.Path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// url joins the base URL, path and query. Paths may already carry a query string.
func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + query.Encode()
}

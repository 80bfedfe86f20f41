// Package fduhole implements the remote API ports against the FDU Hole auth,
// forum and curriculum HTTP services.
package fduhole

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.AuthAPI         = (*Client)(nil)
	_ driven.NotificationAPI = (*Client)(nil)
	_ driven.ForumAPI        = (*Client)(nil)
	_ driven.CurriculumAPI   = (*Client)(nil)
)

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// TokenSource supplies the access token attached to authenticated requests.
// An empty token sends no Authorization header.
type TokenSource interface {
	AccessToken() string
}

// Endpoints holds the base URLs of the three backend services.
type Endpoints struct {
	Auth       string
	Forum      string
	Curriculum string
}

// Client implements the AuthAPI, NotificationAPI, ForumAPI and CurriculumAPI ports.
type Client struct {
	http       *http.Client
	auth       *url.URL
	forum      *url.URL
	curriculum *url.URL
	tokens     TokenSource
}

// NewClient creates a Client with the following transport stack:
//  1. httpcache (ETag/Last-Modified conditional requests, keyed per access token)
//  2. net/http default transport
func NewClient(endpoints Endpoints, tokens TokenSource, timeout time.Duration) (*Client, error) {
	cacheTransport := httpcache.NewTransport(newTokenScopedCache(httpcache.NewMemoryCache(), tokens))
	cacheTransport.Transport = http.DefaultTransport

	return NewClientWithHTTPClient(&http.Client{
		Transport: cacheTransport,
		Timeout:   timeout,
	}, endpoints, tokens)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Tests use it to point every service at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, endpoints Endpoints, tokens TokenSource) (*Client, error) {
	auth, err := parseBase(endpoints.Auth)
	if err != nil {
		return nil, fmt.Errorf("parsing auth URL: %w", err)
	}
	forum, err := parseBase(endpoints.Forum)
	if err != nil {
		return nil, fmt.Errorf("parsing forum URL: %w", err)
	}
	curriculum, err := parseBase(endpoints.Curriculum)
	if err != nil {
		return nil, fmt.Errorf("parsing curriculum URL: %w", err)
	}

	return &Client{
		http:       httpClient,
		auth:       auth,
		forum:      forum,
		curriculum: curriculum,
		tokens:     tokens,
	}, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}

// APIError is returned for any non-2xx response. It unwraps to
// driven.ErrUnauthorized for 401/403 and driven.ErrTransport otherwise.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server-provided explanation, shown to users verbatim.
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Unwrap maps the status code onto the port's error taxonomy.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return driven.ErrUnauthorized
	}
	return driven.ErrTransport
}

// call describes a single JSON request.
type call struct {
	method string
	base   *url.URL
	path   string
	query  url.Values
	body   any
	out    any
	// bearer overrides the TokenSource; anonymous sends no token at all.
	bearer    string
	anonymous bool
}

// do performs c and decodes a successful response into c.out.
func (c *Client) do(ctx context.Context, req call) error {
	u := req.base.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearerFor(req); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", req.method, req.path, driven.ErrTransport, err)
	}
	defer resp.Body.Close()

	slog.Debug("fduhole api call",
		"method", req.method,
		"url", u.Redacted(),
		"status", resp.StatusCode,
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(req, resp)
	}

	if req.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(req.out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w: %w", req.method, req.path, driven.ErrTransport, err)
		}
		return fmt.Errorf("decoding %s %s: %w: %w", req.method, req.path, driven.ErrDecode, err)
	}
	return nil
}

func (c *Client) bearerFor(req call) string {
	switch {
	case req.anonymous:
		return ""
	case req.bearer != "":
		return req.bearer
	case c.tokens != nil:
		return c.tokens.AccessToken()
	default:
		return ""
	}
}

// newAPIError builds an APIError, extracting the server's "message" or
// "detail" field when the body is JSON.
func newAPIError(req call, resp *http.Response) error {
	apiErr := &APIError{
		Method:     req.method,
		Path:       req.path,
		StatusCode: resp.StatusCode,
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Detail
		}
	}
	return apiErr
}

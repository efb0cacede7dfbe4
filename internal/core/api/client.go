// Package api is the single place outbound requests to the RAG service are built.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neilberkman/docchat/internal/core/routes"
	"go.uber.org/zap"
)

// Session supplies the bearer token and is told when the server rejects it.
type Session interface {
	Token() string
	Expire()
}

// Navigator moves the presentation layer to another view.
type Navigator func(path string)

// Client talks to the RAG API.
type Client struct {
	baseURL  string
	http     *http.Client
	session  Session
	navigate Navigator
	log      *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithSession attaches the session that provides tokens
func WithSession(s Session) Option {
	return func(c *Client) { c.session = s }
}

// WithNavigator sets the hook called with the login path after a 401
func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigate = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client talks to
func (c *Client) BaseURL() string { return c.baseURL }

// SetSession attaches a session after construction. The session store and
// the client refer to each other, so one of them has to be wired late.
func (c *Client) SetSession(s Session) { c.session = s }

// SetNavigator replaces the 401 navigation hook.
func (c *Client) SetNavigator(n Navigator) { c.navigate = n }

type requestConfig struct {
	query         url.Values
	token         *string
	contentType   string
	contentLength int64
	noExpire      bool
}

// RequestOption adjusts one call
type RequestOption func(*requestConfig)

// WithQuery adds query parameters
func WithQuery(q url.Values) RequestOption {
	return func(rc *requestConfig) { rc.query = q }
}

// WithToken overrides the session token for this call. An empty token sends
// the request anonymously.
func WithToken(token string) RequestOption {
	return func(rc *requestConfig) { rc.token = &token }
}

// WithoutExpiry keeps a 401 on this call from clearing the session. Use it
// when checking a token that is not the session's yet.
func WithoutExpiry() RequestOption {
	return func(rc *requestConfig) { rc.noExpire = true }
}

// WithContentType sets the content type when body is an io.Reader
func WithContentType(ct string) RequestOption {
	return func(rc *requestConfig) { rc.contentType = ct }
}

// WithContentLength declares the size of an io.Reader body so it is not sent chunked
func WithContentLength(n int64) RequestOption {
	return func(rc *requestConfig) { rc.contentLength = n }
}

// Do performs a request and decodes a JSON response into out (if non-nil).
//
// body may be nil, url.Values (sent form-encoded), an io.Reader (sent as is,
// see WithContentType) or any other value (sent as JSON).
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	rc := requestConfig{}
	for _, opt := range opts {
		opt(&rc)
	}

	reader, contentType, err := encodeBody(body)
	if err != nil {
		return &Error{Kind: KindServer, Message: "invalid request body", Err: err}
	}
	if rc.contentType != "" {
		contentType = rc.contentType
	}

	endpoint := c.baseURL + path
	if len(rc.query) > 0 {
		endpoint += "?" + rc.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "invalid request", Err: err}
	}
	if rc.contentLength > 0 {
		req.ContentLength = rc.contentLength
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	token := ""
	if rc.token != nil {
		token = *rc.token
	} else if c.session != nil {
		token = c.session.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &Error{Kind: KindNetwork, Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized && token != "" && !rc.noExpire && c.ownsToken(token) {
		c.expire(path)
		return &Error{Kind: KindSessionExpired, Status: resp.StatusCode, Message: "session expired"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: serverMessage(resp.StatusCode, data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "unexpected response from server", Err: err}
	}
	return nil
}

// ownsToken reports whether token is the one the session holds now. A 401 for
// any other token says nothing about the current session.
func (c *Client) ownsToken(token string) bool {
	if c.session == nil {
		return true
	}
	return c.session.Token() == token
}

// expire clears the session and sends the user to the login view. It runs
// before Do returns so every call site observes the same side effect.
func (c *Client) expire(path string) {
	c.log.Info("authorization rejected, clearing session", zap.String("path", path))
	if c.session != nil {
		c.session.Expire()
	}
	if c.navigate != nil {
		c.navigate(routes.Login)
	}
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		return b, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func pageQuery(skip, limit int) url.Values {
	q := url.Values{}
	q.Set("skip", fmt.Sprint(skip))
	q.Set("limit", fmt.Sprint(limit))
	return q
}

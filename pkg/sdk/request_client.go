package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderSessionID carries the server-side session bound to the access token.
	HeaderSessionID = "X-Session-ID"
	// HeaderRequestID correlates a request with backend audit entries.
	HeaderRequestID = "X-Request-ID"

	defaultUserAgent = "biomind-nexus-sdk"
	maxResponseBytes = 64 << 20
)

// RequestClient sends JSON requests to the backend, attaching the credential
// currently held by the TokenStore. The token is re-read on every call so a
// cleared or replaced credential takes effect on the next request.
type RequestClient struct {
	base      *url.URL
	tokens    *TokenStore
	http      *http.Client
	logger    zerolog.Logger
	userAgent string
	maxBody   int64

	mu       sync.RWMutex
	onUnauth []func()
}

// ClientOptions configures RequestClient construction.
type ClientOptions struct {
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	UserAgent  string
}

// ClientOption mutates ClientOptions.
type ClientOption func(*ClientOptions)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(opts *ClientOptions) {
		opts.Logger = &logger
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(opts *ClientOptions) {
		opts.UserAgent = ua
	}
}

// NewRequestClient creates a client for the API rooted at baseURL
// (e.g. http://localhost:8000/api/v1).
func NewRequestClient(baseURL string, tokens *TokenStore, optFns ...ClientOption) (*RequestClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}

	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &RequestClient{
		base:      base,
		tokens:    tokens,
		http:      opts.HTTPClient,
		logger:    logger,
		userAgent: opts.UserAgent,
		maxBody:   maxResponseBytes,
	}, nil
}

// BaseURL returns the API root the client targets.
func (c *RequestClient) BaseURL() string {
	return c.base.String()
}

// Tokens returns the TokenStore the client reads credentials from.
func (c *RequestClient) Tokens() *TokenStore {
	return c.tokens
}

// OnUnauthenticated registers fn to run after a 401 has cleared the
// credential.
func (c *RequestClient) OnUnauthenticated(fn func()) {
	c.mu.Lock()
	c.onUnauth = append(c.onUnauth, fn)
	c.mu.Unlock()
}

// Send performs an authenticated JSON request. body is encoded when non-nil;
// a 2xx response is decoded into out when out is non-nil.
func (c *RequestClient) Send(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, c.resolve(path), path, body, true, "application/json")
	if err != nil {
		return err
	}
	return decodeBody(method, path, resp.body, out)
}

// SendUnauthenticated behaves like Send but never attaches credentials.
func (c *RequestClient) SendUnauthenticated(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, c.resolve(path), path, body, false, "application/json")
	if err != nil {
		return err
	}
	return decodeBody(method, path, resp.body, out)
}

// Download performs an authenticated GET and returns the raw body and its
// content type.
func (c *RequestClient) Download(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.resolve(path), path, nil, true, "*/*")
	if err != nil {
		return nil, "", err
	}
	return resp.body, resp.contentType, nil
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (c *RequestClient) do(ctx context.Context, method, endpoint, path string, body any, authenticated bool, accept string) (*response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)

	var sent *Credential
	if authenticated {
		cred, err := c.tokens.Read()
		if err != nil {
			return nil, err
		}
		if cred != nil {
			bearerToken(cred).SetAuthHeader(req)
			req.Header.Set(HeaderSessionID, cred.SessionID)
			sent = cred
		}
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: reading response: %w", method, path, ErrNetwork, err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%s %s: %w (limit %d bytes)", method, path, ErrResponseTooLarge, c.maxBody)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		reqErr := parseRequestError(method, path, httpResp.StatusCode, data)
		if reqErr.RequestID == "" {
			reqErr.RequestID = requestID
		}
		if authenticated && httpResp.StatusCode == http.StatusUnauthorized {
			c.handleUnauthenticated(reqErr, sent)
		}
		return nil, reqErr
	}

	return &response{
		status:      httpResp.StatusCode,
		contentType: httpResp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

// handleUnauthenticated clears the credential the rejected request carried
// and notifies subscribers. Nothing happens when the request went out
// without a credential or the credential has since been replaced.
func (c *RequestClient) handleUnauthenticated(reqErr *RequestError, sent *Credential) {
	if sent == nil {
		return
	}
	cleared, err := c.tokens.ClearIf(sent)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to clear rejected credential")
		return
	}
	if !cleared {
		c.logger.Debug().
			Str("path", reqErr.Path).
			Str("request_id", reqErr.RequestID).
			Msg("stale credential rejected; keeping replacement")
		return
	}

	c.logger.Info().
		Str("method", reqErr.Method).
		Str("path", reqErr.Path).
		Str("request_id", reqErr.RequestID).
		Msg("credential rejected by backend; cleared local session")

	c.mu.RLock()
	hooks := append([]func(){}, c.onUnauth...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

// resolve joins path (which may carry a query string) onto the API root.
func (c *RequestClient) resolve(path string) string {
	u := *c.base
	rel, err := url.Parse(path)
	if err != nil {
		u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
		return u.String()
	}
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/")
	u.RawPath = ""
	u.RawQuery = rel.RawQuery
	return u.String()
}

// rootURL returns scheme://host with path, used for endpoints mounted outside
// the API prefix.
func (c *RequestClient) rootURL(path string) string {
	u := url.URL{Scheme: c.base.Scheme, Host: c.base.Host, Path: path}
	return u.String()
}

func decodeBody(method, path string, data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

type errorEnvelope struct {
	Detail    json.RawMessage `json:"detail"`
	ErrorCode string          `json:"error_code"`
	RequestID string          `json:"request_id"`
}

func parseRequestError(method, path string, status int, data []byte) *RequestError {
	reqErr := &RequestError{
		Method:     method,
		Path:       path,
		StatusCode: status,
	}

	var env errorEnvelope
	if len(data) > 0 && json.Unmarshal(data, &env) == nil {
		reqErr.Message = detailMessage(env.Detail)
		reqErr.ErrorCode = env.ErrorCode
		reqErr.RequestID = env.RequestID
	}
	if reqErr.Message == "" {
		reqErr.Message = genericMessage(status)
	}
	return reqErr
}

// detailMessage extracts a display string from a "detail" value, which is a
// plain string for HTTPException and a list of {msg, loc} objects for
// request validation failures.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func genericMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return "request failed: " + strings.ToLower(text)
	}
	return fmt.Sprintf("request failed with status %d", status)
}

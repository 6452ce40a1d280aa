// Package ncbi provides the shared base HTTP client for NCBI E-utilities.
// The eutils, pmc, and mesh clients all reference this to share rate
// limiting, credential parameters, retry, and response size guards.
package ncbi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the NCBI E-utilities base URL.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	// DefaultTool identifies this library to NCBI.
	DefaultTool = "entrez-go"

	// Rate limits per NCBI policy.
	RateWithoutKey = 3.0  // requests per second without API key
	RateWithKey    = 10.0 // requests per second with API key

	// DefaultTimeout is the per-request wall-clock timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseBytes is the maximum response body size (50 MB).
	DefaultMaxResponseBytes int64 = 50 * 1024 * 1024
)

// BaseClient is a shared HTTP client for NCBI E-utilities with rate
// limiting, credential parameter injection, retry, and response size guards.
type BaseClient struct {
	BaseURL    string
	APIKey     string
	Tool       string
	Email      string
	RateLimit  float64 // explicit override; 0 means derive from APIKey
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	MaxBytes   int64
	Retry      RetryConfig
}

// Option configures a BaseClient.
type Option func(*BaseClient)

// WithBaseURL sets the base URL for requests (tests point this at a mock).
func WithBaseURL(u string) Option {
	return func(c *BaseClient) { c.BaseURL = u }
}

// WithAPIKey sets the NCBI API key, which raises the request rate to 10/s.
func WithAPIKey(key string) Option {
	return func(c *BaseClient) { c.APIKey = key }
}

// WithTool sets the tool identification parameter.
func WithTool(tool string) Option {
	return func(c *BaseClient) { c.Tool = tool }
}

// WithEmail sets the email identification parameter.
func WithEmail(email string) Option {
	return func(c *BaseClient) { c.Email = email }
}

// WithTimeout sets the per-request wall-clock timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *BaseClient) { c.HTTPClient.Timeout = d }
}

// WithRateLimit overrides the computed request rate (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *BaseClient) { c.RateLimit = rps }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *BaseClient) { c.HTTPClient = hc }
}

// WithMaxResponseBytes sets the maximum allowed response body size.
func WithMaxResponseBytes(n int64) Option {
	return func(c *BaseClient) { c.MaxBytes = n }
}

// WithRetry sets the retry policy.
func WithRetry(rc RetryConfig) Option {
	return func(c *BaseClient) { c.Retry = rc }
}

// NewBaseClient creates a new NCBI base client with the given options.
func NewBaseClient(opts ...Option) *BaseClient {
	c := &BaseClient{
		BaseURL:  DefaultBaseURL,
		Tool:     DefaultTool,
		MaxBytes: DefaultMaxResponseBytes,
		Retry:    DefaultRetryConfig(),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	r := c.EffectiveRate()
	c.Limiter = rate.NewLimiter(rate.Limit(r), burstFor(r))
	return c
}

// EffectiveRate returns the steady-state request rate in requests/second:
// the explicit override if set, 10/s with an API key, 3/s without.
func (c *BaseClient) EffectiveRate() float64 {
	if c.RateLimit > 0 {
		return c.RateLimit
	}
	if c.APIKey != "" {
		return RateWithKey
	}
	return RateWithoutKey
}

func burstFor(r float64) int {
	b := int(math.Ceil(r))
	if b < 1 {
		b = 1
	}
	return b
}

// credentials returns the configured identification parameters.
func (c *BaseClient) credentials() url.Values {
	v := url.Values{}
	if c.APIKey != "" {
		v.Set("api_key", c.APIKey)
	}
	if c.Tool != "" {
		v.Set("tool", c.Tool)
	}
	if c.Email != "" {
		v.Set("email", c.Email)
	}
	return v
}

// DoGet performs a rate-limited, retried GET request against an E-utilities
// endpoint. Credential parameters are appended to params. Returns the body.
func (c *BaseClient) DoGet(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	for k, vs := range c.credentials() {
		params[k] = vs
	}

	u, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	return c.execute(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	})
}

// DoGetRaw performs a GET with a caller-assembled query string. The query is
// sent verbatim apart from appended credentials, for endpoints such as
// ECitMatch whose bdata parameter carries its own percent escapes.
func (c *BaseClient) DoGetRaw(ctx context.Context, endpoint, rawQuery string) ([]byte, error) {
	creds := c.credentials().Encode()
	if creds != "" {
		if rawQuery == "" {
			rawQuery = creds
		} else {
			rawQuery += "&" + creds
		}
	}

	u, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	full := u
	if rawQuery != "" {
		full += "?" + rawQuery
	}
	return c.execute(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	})
}

// DoPost performs a rate-limited, retried POST with a form-encoded body.
// Used by EPost, whose ID lists exceed URL length limits on GET.
func (c *BaseClient) DoPost(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	if form == nil {
		form = url.Values{}
	}
	for k, vs := range c.credentials() {
		form[k] = vs
	}
	body := form.Encode()

	u, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	return c.execute(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

// execute runs one logical request through the rate limiter and retry
// driver. Each attempt re-acquires a rate-limit token before sending.
func (c *BaseClient) execute(ctx context.Context, endpoint string, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	var body []byte
	attempts := 0

	op := func() error {
		attempts++
		if err := c.Limiter.Wait(ctx); err != nil {
			return permanent(&RequestError{Op: "rate limit wait", Err: err})
		}

		req, err := build(ctx)
		if err != nil {
			return permanent(fmt.Errorf("creating request: %w", err))
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return retryOrHalt(classifyTransportError(endpoint, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return c.classifyStatus(ctx, resp, endpoint)
		}

		r := io.LimitReader(resp.Body, c.MaxBytes+1)
		b, err := io.ReadAll(r)
		if err != nil {
			return retryOrHalt(&RequestError{Op: "reading response", Err: err, Timeout: isTimeout(err)})
		}
		if int64(len(b)) > c.MaxBytes {
			return permanent(fmt.Errorf("response exceeds maximum size of %d bytes", c.MaxBytes))
		}
		body = b
		return nil
	}

	if err := c.retryOp(ctx, op); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
			return nil, &RateLimitError{Attempts: attempts}
		}
		return nil, err
	}
	return body, nil
}

// classifyStatus converts a non-2xx response into an APIError. For 429
// responses carrying Retry-After, the server-requested delay is waited out
// before the next attempt is admitted.
func (c *BaseClient) classifyStatus(ctx context.Context, resp *http.Response, endpoint string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: msg}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = retryAfterDuration(resp.Header.Get("Retry-After"))
		if apiErr.RetryAfter > 0 {
			if err := sleepWithContext(ctx, apiErr.RetryAfter); err != nil {
				return permanent(err)
			}
		}
	}
	if !IsRetryable(apiErr) {
		return permanent(apiErr)
	}
	return apiErr
}

// retryOrHalt hands retryable errors to the retry driver and marks
// everything else permanent, so the executor and IsRetryable agree.
func retryOrHalt(err error) error {
	if IsRetryable(err) {
		return err
	}
	return permanent(err)
}

func classifyTransportError(endpoint string, err error) error {
	return &RequestError{
		Op:      "request to " + endpoint,
		Err:     err,
		Timeout: isTimeout(err),
		Connect: isConnect(err),
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func isConnect(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func retryAfterDuration(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return 0
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package ncbi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// fastRetry keeps retry tests quick.
func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

func TestNewBaseClient_Defaults(t *testing.T) {
	c := NewBaseClient()
	if c.BaseURL != DefaultBaseURL {
		t.Errorf("expected base URL %q, got %q", DefaultBaseURL, c.BaseURL)
	}
	if c.Tool != DefaultTool {
		t.Errorf("expected tool %q, got %q", DefaultTool, c.Tool)
	}
	if c.MaxBytes != DefaultMaxResponseBytes {
		t.Errorf("expected max bytes %d, got %d", DefaultMaxResponseBytes, c.MaxBytes)
	}
	if c.Limiter == nil {
		t.Fatal("expected non-nil limiter")
	}
	if got := c.EffectiveRate(); got != RateWithoutKey {
		t.Errorf("expected rate %v without key, got %v", RateWithoutKey, got)
	}
}

func TestEffectiveRate(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want float64
	}{
		{"no key", nil, 3.0},
		{"with key", []Option{WithAPIKey("k")}, 10.0},
		{"override wins", []Option{WithAPIKey("k"), WithRateLimit(5.5)}, 5.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBaseClient(tt.opts...)
			if got := c.EffectiveRate(); got != tt.want {
				t.Errorf("EffectiveRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBurstFor(t *testing.T) {
	if got := burstFor(3.0); got != 3 {
		t.Errorf("burstFor(3.0) = %d, want 3", got)
	}
	if got := burstFor(0.5); got != 1 {
		t.Errorf("burstFor(0.5) = %d, want 1", got)
	}
	if got := burstFor(2.3); got != 3 {
		t.Errorf("burstFor(2.3) = %d, want 3", got)
	}
}

func TestDoGet_CredentialParams(t *testing.T) {
	var received url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.URL.Query()
		w.Write([]byte(`OK`))
	}))
	defer srv.Close()

	c := NewBaseClient(
		WithBaseURL(srv.URL),
		WithAPIKey("my-api-key"),
		WithTool("entrez-go"),
		WithEmail("user@example.com"),
	)

	if _, err := c.DoGet(context.Background(), "test.fcgi", url.Values{"db": {"pubmed"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Get("api_key") != "my-api-key" {
		t.Errorf("expected api_key to be injected, got %q", received.Get("api_key"))
	}
	if received.Get("tool") != "entrez-go" {
		t.Errorf("expected tool to be injected, got %q", received.Get("tool"))
	}
	if received.Get("email") != "user@example.com" {
		t.Errorf("expected email to be injected, got %q", received.Get("email"))
	}
	if received.Get("db") != "pubmed" {
		t.Errorf("expected caller params preserved, got db=%q", received.Get("db"))
	}
}

func TestDoGetRaw_PreservesEscapes(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`OK`))
	}))
	defer srv.Close()

	c := NewBaseClient(WithBaseURL(srv.URL), WithAPIKey("k"))
	bdata := "bdata=proc+natl+acad+sci%7C1991%7C88%7C3248%7Cmann+bj%7CArt1%7C%0D"
	if _, err := c.DoGetRaw(context.Background(), "ecitmatch.cgi", bdata); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(rawQuery, bdata) {
		t.Errorf("raw query was re-encoded: %q", rawQuery)
	}
	if !strings.Contains(rawQuery, "api_key=k") {
		t.Errorf("credentials not appended to raw query: %q", rawQuery)
	}
}

func TestDoPost_FormBody(t *testing.T) {
	var gotMethod, gotContentType string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`OK`))
	}))
	defer srv.Close()

	c := NewBaseClient(WithBaseURL(srv.URL), WithAPIKey("k"))
	form := url.Values{"db": {"pubmed"}, "id": {"1,2,3"}}
	if _, err := c.DoPost(context.Background(), "epost.fcgi", form); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
	if gotForm.Get("id") != "1,2,3" {
		t.Errorf("expected id form field, got %q", gotForm.Get("id"))
	}
	if gotForm.Get("api_key") != "k" {
		t.Errorf("expected api_key in form body, got %q", gotForm.Get("api_key"))
	}
}

func TestDoGet_RateLimitSequential(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping rate limit test in short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`OK`))
	}))
	defer srv.Close()

	// rate=3/s, burst=3: eight sequential calls drain the bucket and then
	// pace at 3/s, so the total must be >= ~1.6s.
	c := NewBaseClient(WithBaseURL(srv.URL), WithRateLimit(3))

	start := time.Now()
	for i := 0; i < 8; i++ {
		if _, err := c.DoGet(context.Background(), "test.fcgi", nil); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 1500*time.Millisecond {
		t.Errorf("rate limiting too fast: 8 requests completed in %v", elapsed)
	}
}

func TestDoGet_ConcurrentRateLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrent rate limit test in short mode")
	}

	var mu sync.Mutex
	var timestamps []time.Time

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		timestamps = append(timestamps, time.Now())
		mu.Unlock()
		w.Write([]byte(`OK`))
	}))
	defer srv.Close()

	c := NewBaseClient(WithBaseURL(srv.URL), WithRateLimit(3))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.DoGet(context.Background(), "test.fcgi", nil)
		}()
	}
	wg.Wait()

	if len(timestamps) != 10 {
		t.Fatalf("expected 10 requests, got %d", len(timestamps))
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	// With rate=3/s and burst=3, no more than 7 requests should land in any
	// 1-second sliding window (3 burst + 3 refill + timing slack).
	for i := 0; i < len(timestamps); i++ {
		count := 1
		for j := i + 1; j < len(timestamps); j++ {
			if timestamps[j].Sub(timestamps[i]) < time.Second {
				count++
			}
		}
		if count > 7 {
			t.Errorf("rate limit violated: %d requests within 1 second starting at index %d", count, i)
			break
		}
	}
}

func TestDoGet_Retries500ThenSurfacesAPIError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewBaseClient(WithBaseURL(srv.URL), WithAPIKey("k"), WithRetry(fastRetry()))
	_, err := c.DoGet(context.Background(), "test.fcgi", nil)
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", apiErr.Status)
	}
}

func TestDoGet_404NotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBaseClient(WithBaseURL(srv.URL), WithAPIKey("k"), WithRetry(fastRetry()))
	_, err := c.DoGet(context.Background(), "test.fcgi", nil)
	if err == nil {
		t.Fatal("expected error for HTTP 404")
	}
	if calls != 1 {
		t.Errorf("404 should not be retried; got %d attempts", calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected *APIError with status 404, got %v", err)
	}
}

func TestDoGet_429SurfacesRateLimitError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewBaseClient(WithBaseURL(srv.URL), WithAPIKey("k"), WithRetry(fastRetry()))
	_, err := c.DoGet(context.Background(), "test.fcgi", nil)
	if err == nil {
		t.Fatal("expected error for HTTP 429")
	}
	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected *RateLimitError after exhausted retries, got %T: %v", err, err)
	}
	if rlErr.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", rlErr.Attempts)
	}
}

func TestDoGet_429HonorsRetryAfter(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`OK`))
	}))
	defer srv.Close()

	c := NewBaseClient(WithBaseURL(srv.URL), WithAPIKey("k"), WithRetry(fastRetry()))
	start := time.Now()
	body, err := c.DoGet(context.Background(), "test.fcgi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "OK" {
		t.Errorf("unexpected body %q", body)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("Retry-After not honored: completed in %v", elapsed)
	}
}

func TestDoGet_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("X", 2048)))
	}))
	defer srv.Close()

	c := NewBaseClient(
		WithBaseURL(srv.URL),
		WithAPIKey("k"),
		WithMaxResponseBytes(1024),
	)

	_, err := c.DoGet(context.Background(), "test.fcgi", nil)
	if err == nil {
		t.Fatal("expected error for oversized response")
	}
	if !strings.Contains(err.Error(), "exceeds maximum size") {
		t.Errorf("expected size error, got: %v", err)
	}
}

func TestDoGet_ContextCancellation(t *testing.T) {
	c := NewBaseClient(WithBaseURL("http://127.0.0.1:1"), WithAPIKey("k"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.DoGet(ctx, "test.fcgi", nil); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestDoGet_ConnectFailureIsRetryableRequestError(t *testing.T) {
	c := NewBaseClient(
		WithBaseURL("http://127.0.0.1:1"),
		WithAPIKey("k"),
		WithRetry(RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, Jitter: 0}),
	)
	_, err := c.DoGet(context.Background(), "test.fcgi", nil)
	if err == nil {
		t.Fatal("expected connect error")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if !reqErr.Connect {
		t.Error("expected Connect flag on refused connection")
	}
	if !IsRetryable(reqErr) {
		t.Error("connect failure should be retryable")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestDoGet_NonRetryableTransportErrorNotRetried(t *testing.T) {
	var attempts int
	transport := roundTripFunc(func(*http.Request) (*http.Response, error) {
		attempts++
		// Neither a timeout nor a connect failure (e.g. a protocol error).
		return nil, errors.New("malformed HTTP response")
	})
	c := NewBaseClient(
		WithBaseURL("http://example.invalid"),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRateLimit(1000),
		WithRetry(fastRetry()),
	)

	_, err := c.DoGet(context.Background(), "test.fcgi", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if IsRetryable(reqErr) {
		t.Error("protocol error should not be retryable")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

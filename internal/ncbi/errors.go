package ncbi

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrWebEnvNotAvailable is returned when a history session was requested but
// NCBI did not include WebEnv/query_key in the response.
var ErrWebEnvNotAvailable = errors.New("NCBI did not return a WebEnv history session; retry the search or omit history")

// RequestError is a transport-level failure: DNS, connect, TLS, or timeout.
type RequestError struct {
	Op      string
	Err     error
	Timeout bool
	Connect bool
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed during %s: %v (check network connectivity and retry)", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// APIError is a non-success HTTP status or an in-band NCBI error envelope.
type APIError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("NCBI API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("NCBI API error: %s", e.Message)
}

// RateLimitError is surfaced after the retry budget is exhausted on HTTP 429.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("NCBI rate limit exceeded after %d attempts (use an API key to raise the limit to 10 req/s)", e.Attempts)
}

// JSONError wraps a JSON payload that could not be decoded per the expected schema.
type JSONError struct {
	Endpoint string
	Err      error
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("decoding %s JSON response: %v", e.Endpoint, e.Err)
}

func (e *JSONError) Unwrap() error { return e.Err }

// XMLError wraps an XML payload that could not be decoded per the expected schema.
type XMLError struct {
	Endpoint string
	Err      error
}

func (e *XMLError) Error() string {
	return fmt.Sprintf("decoding %s XML response: %v", e.Endpoint, e.Err)
}

func (e *XMLError) Unwrap() error { return e.Err }

// NotFoundError reports that EFetch or ESummary returned no record for a PMID.
type NotFoundError struct {
	PMID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("article %s not found (verify the PMID exists in PubMed)", e.PMID)
}

// PMCNotAvailableError reports that a PMID has no full text in the PMC OA subset.
type PMCNotAvailableError struct {
	PMID  string
	PMCID string
}

func (e *PMCNotAvailableError) Error() string {
	if e.PMCID != "" {
		return fmt.Sprintf("no PMC full text available for %s", e.PMCID)
	}
	return fmt.Sprintf("no PMC full text available for PMID %s (the article may not be in the open-access subset)", e.PMID)
}

// InvalidIDError reports an identifier that did not parse.
// Kind is "PMID" or "PMCID".
type InvalidIDError struct {
	Kind  string
	Value string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be a positive integer", e.Kind, e.Value)
}

// QueryError reports a query string rejected by the validator.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Message)
}

// LimitError reports a result limit above the ESearch ceiling.
type LimitError struct {
	Requested int
	Maximum   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("search limit %d exceeds maximum %d (use history-based streaming for larger result sets)", e.Requested, e.Maximum)
}

// HistoryError reports a rejected or expired WebEnv session.
type HistoryError struct {
	Message string
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("history session error: %s (sessions expire after ~1 hour; re-run the search)", e.Message)
}

// retryableMessages are NCBI textual errors that indicate a transient condition.
var retryableMessages = []string{
	"temporarily unavailable",
	"timeout",
	"connection",
}

// IsRetryable reports whether an error warrants another attempt:
// transport timeouts and connect failures, HTTP 5xx and 429, exhausted rate
// limits, and NCBI messages describing transient conditions. Validation,
// decode, and not-found errors are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Timeout || reqErr.Connect {
			return true
		}
		var netErr net.Error
		if errors.As(reqErr.Err, &netErr) && netErr.Timeout() {
			return true
		}
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 429 || apiErr.Status >= 500 {
			return true
		}
		msg := strings.ToLower(apiErr.Message)
		for _, frag := range retryableMessages {
			if strings.Contains(msg, frag) {
				return true
			}
		}
		return false
	}

	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

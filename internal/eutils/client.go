package eutils

import (
	"go.uber.org/zap"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

const (
	// DefaultBaseURL is the NCBI E-utilities base URL.
	DefaultBaseURL = ncbi.DefaultBaseURL
	// DefaultTool identifies this library to NCBI.
	DefaultTool = ncbi.DefaultTool

	// fetchBatchSize is the largest ID list sent to EFetch per request.
	fetchBatchSize = 200
	// searchMaxResults is the ESearch retmax ceiling before history paging
	// is required.
	searchMaxResults = 9999
)

// Client is an HTTP client for NCBI E-utilities. It embeds ncbi.BaseClient
// for shared rate limiting, credential parameters, retry, and response size
// guards. The client is safe for concurrent use; the only mutable state is
// the shared token bucket.
type Client struct {
	*ncbi.BaseClient
	log *zap.Logger
}

// Option configures a Client (alias for ncbi.Option).
type Option = ncbi.Option

// Re-export base options so callers need only this package.
var (
	WithBaseURL    = ncbi.WithBaseURL
	WithAPIKey     = ncbi.WithAPIKey
	WithTool       = ncbi.WithTool
	WithEmail      = ncbi.WithEmail
	WithTimeout    = ncbi.WithTimeout
	WithRateLimit  = ncbi.WithRateLimit
	WithRetry      = ncbi.WithRetry
	WithHTTPClient = ncbi.WithHTTPClient
)

// NewClient creates a new E-utilities client with the given options.
func NewClient(opts ...Option) *Client {
	return &Client{BaseClient: ncbi.NewBaseClient(opts...), log: zap.NewNop()}
}

// NewClientWithBase creates an E-utilities client over an existing base
// client. Use this to share a rate limiter across eutils, pmc, and mesh
// clients.
func NewClientWithBase(base *ncbi.BaseClient) *Client {
	return &Client{BaseClient: base, log: zap.NewNop()}
}

// WithLogger sets the logger used for per-article parse warnings and
// stream diagnostics. The default is a no-op logger.
func (c *Client) WithLogger(l *zap.Logger) *Client {
	if l != nil {
		c.log = l
	}
	return c
}

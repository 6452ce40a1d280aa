package eutils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

// newTestClient wires a client to a local test server with rate limiting
// effectively disabled and retry delays collapsed.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(
		WithBaseURL(server.URL),
		WithRateLimit(1000),
		WithRetry(ncbi.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
			Jitter:       0,
		}),
	)
}

// articleXML builds a minimal PubmedArticle element.
func articleXML(pmid, title string) string {
	return fmt.Sprintf(`<PubmedArticle>
  <MedlineCitation>
    <PMID Version="1">%s</PMID>
    <Article>
      <Journal><Title>Test Journal</Title></Journal>
      <ArticleTitle>%s</ArticleTitle>
    </Article>
  </MedlineCitation>
</PubmedArticle>`, pmid, title)
}

func articleSetXML(articles ...string) string {
	doc := `<?xml version="1.0" ?><PubmedArticleSet>`
	for _, a := range articles {
		doc += a
	}
	return doc + `</PubmedArticleSet>`
}

package eutils

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/pcrowe/entrez-go/internal/ids"
	"github.com/pcrowe/entrez-go/internal/ncbi"
	"github.com/pcrowe/entrez-go/internal/xmlutil"
)

// FetchArticles retrieves full MEDLINE records for the given PMIDs in NCBI
// return order, batching requests at 200 IDs. Every PMID is validated
// before any network I/O; one invalid entry aborts the whole batch. An
// empty input returns an empty slice with no network call.
func (c *Client) FetchArticles(ctx context.Context, pmids []string) ([]Article, error) {
	if len(pmids) == 0 {
		return []Article{}, nil
	}
	validated, err := ids.ValidatePMIDs(pmids)
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(validated))
	for start := 0; start < len(validated); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(validated) {
			end = len(validated)
		}
		batch, err := c.fetchBatch(ctx, validated[start:end])
		if err != nil {
			return nil, err
		}
		articles = append(articles, batch...)
	}
	return articles, nil
}

func (c *Client) fetchBatch(ctx context.Context, batch []ids.PMID) ([]Article, error) {
	idParam := make([]string, len(batch))
	for i, id := range batch {
		idParam[i] = id.String()
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(idParam, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	body, err := c.DoGet(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	if msg, found := inBandXMLError(body); found {
		return nil, &ncbi.APIError{Status: 200, Message: msg}
	}

	articles, _, err := c.parseArticleSet(body)
	return articles, err
}

// FetchArticle retrieves a single article. Batch responses can carry
// unrelated records, so the result is located by exact PMID match.
func (c *Client) FetchArticle(ctx context.Context, pmid string) (*Article, error) {
	id, err := ids.ParsePMID(pmid)
	if err != nil {
		return nil, err
	}
	articles, err := c.FetchArticles(ctx, []string{id.String()})
	if err != nil {
		return nil, err
	}
	for i := range articles {
		if articles[i].PMID == id.String() {
			return &articles[i], nil
		}
	}
	return nil, &ncbi.NotFoundError{PMID: id.String()}
}

// FetchFromHistory retrieves a page of articles from a WebEnv history
// session. An <ERROR> body signals a rejected or expired session.
func (c *Client) FetchFromHistory(ctx context.Context, session HistorySession, retstart, retmax int) ([]Article, error) {
	articles, _, err := c.fetchHistoryPage(ctx, session, retstart, retmax)
	return articles, err
}

// fetchHistoryPage additionally reports the skipped-article count so the
// stream can keep its offset aligned with NCBI's.
func (c *Client) fetchHistoryPage(ctx context.Context, session HistorySession, retstart, retmax int) ([]Article, int, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("query_key", session.QueryKey)
	params.Set("WebEnv", session.WebEnv)
	params.Set("retstart", strconv.Itoa(retstart))
	params.Set("retmax", strconv.Itoa(retmax))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	body, err := c.DoGet(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, 0, err
	}
	if msg, found := inBandXMLError(body); found {
		return nil, 0, &ncbi.HistoryError{Message: msg}
	}

	return c.parseArticleSet(body)
}

// FetchAllByPMIDs posts the full ID list to the history server once, then
// pages EFetch over the session in batches of 200. Useful for ID lists too
// large for GET URLs.
func (c *Client) FetchAllByPMIDs(ctx context.Context, pmids []string) ([]Article, error) {
	if len(pmids) == 0 {
		return []Article{}, nil
	}
	validated, err := ids.ValidatePMIDs(pmids)
	if err != nil {
		return nil, err
	}

	session, err := c.epost(ctx, validated, nil)
	if err != nil {
		return nil, err
	}

	total := len(validated)
	articles := make([]Article, 0, total)
	for offset := 0; offset < total; {
		batch, skipped, err := c.fetchHistoryPage(ctx, *session, offset, fetchBatchSize)
		if err != nil {
			return nil, err
		}
		if len(batch)+skipped == 0 {
			break
		}
		articles = append(articles, batch...)
		offset += len(batch) + skipped
	}
	return articles, nil
}

// inBandXMLError detects the <ERROR>...</ERROR> envelope NCBI embeds in
// 200 responses on logical failure.
func inBandXMLError(body []byte) (string, bool) {
	doc := string(body)
	if !strings.Contains(doc, "<ERROR") {
		return "", false
	}
	if msg, ok := xmlutil.ExtractTag(doc, "ERROR"); ok {
		if msg == "" {
			msg = "NCBI returned an unspecified error"
		}
		return msg, true
	}
	return "", false
}

package eutils

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

// esearchResponse is the raw JSON envelope from ESearch.
type esearchResponse struct {
	Header map[string]string `json:"header"`
	Error  string            `json:"error"`
	Result esearchResult     `json:"esearchresult"`
}

type esearchResult struct {
	Count            string   `json:"count"`
	RetMax           string   `json:"retmax"`
	RetStart         string   `json:"retstart"`
	IDList           []string `json:"idlist"`
	QueryTranslation string   `json:"querytranslation"`
	WebEnv           string   `json:"webenv"`
	QueryKey         string   `json:"querykey"`
	ErrorList        *struct {
		PhrasesNotFound []string `json:"phrasesnotfound"`
	} `json:"errorlist"`
	InBandError string `json:"ERROR"`
}

// search issues one ESearch request and decodes its envelope.
func (c *Client) search(ctx context.Context, query string, opts *SearchOptions, useHistory bool) (*SearchResult, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmode", "json")
	if useHistory {
		params.Set("usehistory", "y")
	}

	limit := 20
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		if opts.Sort != "" {
			params.Set("sort", opts.Sort)
		}
		if opts.RetStart > 0 {
			params.Set("retstart", strconv.Itoa(opts.RetStart))
		}
	}
	params.Set("retmax", strconv.Itoa(limit))

	body, err := c.DoGet(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ncbi.JSONError{Endpoint: "esearch", Err: err}
	}
	// A 200 body may still carry a logical failure.
	if resp.Error != "" {
		return nil, &ncbi.APIError{Status: 200, Message: resp.Error}
	}
	if resp.Result.InBandError != "" {
		return nil, &ncbi.APIError{Status: 200, Message: resp.Result.InBandError}
	}

	count, _ := strconv.Atoi(resp.Result.Count)
	return &SearchResult{
		PMIDs:            resp.Result.IDList,
		TotalCount:       count,
		WebEnv:           resp.Result.WebEnv,
		QueryKey:         resp.Result.QueryKey,
		QueryTranslation: resp.Result.QueryTranslation,
	}, nil
}

// Search runs an ESearch and returns the full result envelope, including
// the total hit count and NCBI's query translation.
func (c *Client) Search(ctx context.Context, query string, opts *SearchOptions) (*SearchResult, error) {
	if query == "" {
		return nil, &ncbi.QueryError{Message: "query is empty"}
	}
	if opts != nil && opts.Limit > searchMaxResults {
		return nil, &ncbi.LimitError{Requested: opts.Limit, Maximum: searchMaxResults}
	}
	return c.search(ctx, query, opts, false)
}

// SearchArticles runs an ESearch and returns the ordered PMIDs. An empty
// query returns an empty list without a network call; limits above 9999
// are rejected before any I/O.
func (c *Client) SearchArticles(ctx context.Context, query string, opts *SearchOptions) ([]string, error) {
	if query == "" {
		return []string{}, nil
	}
	if opts != nil && opts.Limit > searchMaxResults {
		return nil, &ncbi.LimitError{Requested: opts.Limit, Maximum: searchMaxResults}
	}
	result, err := c.search(ctx, query, opts, false)
	if err != nil {
		return nil, err
	}
	return result.PMIDs, nil
}

// SearchWithHistory runs an ESearch with usehistory=y and returns the full
// result including the WebEnv session. When the result set is nonempty but
// NCBI withheld the session, ErrWebEnvNotAvailable is returned.
func (c *Client) SearchWithHistory(ctx context.Context, query string, opts *SearchOptions) (*SearchResult, error) {
	if query == "" {
		return nil, &ncbi.QueryError{Message: "query is empty"}
	}
	if opts != nil && opts.Limit > searchMaxResults {
		return nil, &ncbi.LimitError{Requested: opts.Limit, Maximum: searchMaxResults}
	}
	result, err := c.search(ctx, query, opts, true)
	if err != nil {
		return nil, err
	}
	if len(result.PMIDs) > 0 {
		if _, ok := result.Session(); !ok {
			return nil, ncbi.ErrWebEnvNotAvailable
		}
	}
	return result, nil
}

// SearchAndFetch composes SearchArticles and FetchArticles: search for
// matching PMIDs, then fetch the full records in order.
func (c *Client) SearchAndFetch(ctx context.Context, query string, limit int, sort string) ([]Article, error) {
	pmids, err := c.SearchArticles(ctx, query, &SearchOptions{Limit: limit, Sort: sort})
	if err != nil {
		return nil, err
	}
	return c.FetchArticles(ctx, pmids)
}

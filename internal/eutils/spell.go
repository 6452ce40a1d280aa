package eutils

import (
	"context"
	"net/url"

	"github.com/pcrowe/entrez-go/internal/ncbi"
	"github.com/pcrowe/entrez-go/internal/xmlutil"
)

// SpellCheck asks ESpell for spelling suggestions against PubMed.
func (c *Client) SpellCheck(ctx context.Context, query string) (*SpellResult, error) {
	return c.SpellCheckDB(ctx, "pubmed", query)
}

// SpellCheckDB asks ESpell for spelling suggestions against a specific
// database. An unchanged query comes back with no replacements.
func (c *Client) SpellCheckDB(ctx context.Context, db, query string) (*SpellResult, error) {
	if query == "" {
		return nil, &ncbi.QueryError{Message: "query is empty"}
	}
	if db == "" {
		db = "pubmed"
	}

	params := url.Values{}
	params.Set("db", db)
	params.Set("term", query)

	body, err := c.DoGet(ctx, "espell.fcgi", params)
	if err != nil {
		return nil, err
	}
	if msg, found := inBandXMLError(body); found {
		return nil, &ncbi.APIError{Status: 200, Message: msg}
	}

	doc := string(body)
	result := &SpellResult{Query: query}
	if corrected, ok := xmlutil.ExtractTag(doc, "CorrectedQuery"); ok {
		result.CorrectedQuery = corrected
	}
	if blocks := xmlutil.FindTagBlocks(doc, "SpelledQuery"); len(blocks) > 0 {
		spelled := xmlutil.InnerContent(blocks[0], "SpelledQuery")
		for _, r := range xmlutil.ExtractAll(spelled, "Replaced") {
			if r != "" {
				result.Replacements = append(result.Replacements, r)
			}
		}
	}
	return result, nil
}

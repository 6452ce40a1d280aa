package eutils

import (
	"context"
	"net/url"
	"strings"

	"github.com/pcrowe/entrez-go/internal/ids"
	"github.com/pcrowe/entrez-go/internal/ncbi"
	"github.com/pcrowe/entrez-go/internal/xmlutil"
)

// EPost uploads a PMID list to the history server and returns the new
// session. The ID list travels in the POST body, so it is not subject to
// URL length caps.
func (c *Client) EPost(ctx context.Context, pmids []string) (*HistorySession, error) {
	validated, err := validatePostIDs(pmids)
	if err != nil {
		return nil, err
	}
	return c.epost(ctx, validated, nil)
}

// EPostToSession appends a PMID list to an existing history session,
// returning the session with the new query key.
func (c *Client) EPostToSession(ctx context.Context, pmids []string, session HistorySession) (*HistorySession, error) {
	validated, err := validatePostIDs(pmids)
	if err != nil {
		return nil, err
	}
	return c.epost(ctx, validated, &session)
}

func validatePostIDs(pmids []string) ([]ids.PMID, error) {
	if len(pmids) == 0 {
		return nil, &ncbi.QueryError{Message: "EPost requires at least one PMID"}
	}
	return ids.ValidatePMIDs(pmids)
}

func (c *Client) epost(ctx context.Context, pmids []ids.PMID, session *HistorySession) (*HistorySession, error) {
	idParam := make([]string, len(pmids))
	for i, id := range pmids {
		idParam[i] = id.String()
	}

	form := url.Values{}
	form.Set("db", "pubmed")
	form.Set("id", strings.Join(idParam, ","))
	if session != nil {
		form.Set("WebEnv", session.WebEnv)
	}

	body, err := c.DoPost(ctx, "epost.fcgi", form)
	if err != nil {
		return nil, err
	}

	doc := string(body)
	if msg, found := inBandXMLError(body); found {
		return nil, &ncbi.APIError{Status: 200, Message: msg}
	}

	webEnv, _ := xmlutil.ExtractTag(doc, "WebEnv")
	queryKey, _ := xmlutil.ExtractTag(doc, "QueryKey")
	if webEnv == "" || queryKey == "" {
		return nil, ncbi.ErrWebEnvNotAvailable
	}
	return &HistorySession{WebEnv: webEnv, QueryKey: queryKey}, nil
}

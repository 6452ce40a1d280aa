package eutils

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pcrowe/entrez-go/internal/ids"
	"github.com/pcrowe/entrez-go/internal/ncbi"
)

// esummaryResponse is the raw ESummary JSON envelope: a "result" object
// keyed by UID, plus a "uids" array preserving request order.
type esummaryResponse struct {
	Error  string                     `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryDoc struct {
	UID        string `json:"uid"`
	Title      string `json:"title"`
	Source     string `json:"source"`
	PubDate    string `json:"pubdate"`
	FullName   string `json:"fulljournalname"`
	ELocation  string `json:"elocationid"`
	Error      string `json:"error"`
	AuthorList []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

// FetchSummaries retrieves condensed records from ESummary. Per-UID errors
// in the response are skipped with a warning instead of failing the batch.
func (c *Client) FetchSummaries(ctx context.Context, pmids []string) ([]Summary, error) {
	if len(pmids) == 0 {
		return []Summary{}, nil
	}
	validated, err := ids.ValidatePMIDs(pmids)
	if err != nil {
		return nil, err
	}

	idParam := make([]string, len(validated))
	for i, id := range validated {
		idParam[i] = id.String()
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(idParam, ","))
	params.Set("retmode", "json")

	body, err := c.DoGet(ctx, "esummary.fcgi", params)
	if err != nil {
		return nil, err
	}

	var resp esummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ncbi.JSONError{Endpoint: "esummary", Err: err}
	}
	if resp.Error != "" {
		return nil, &ncbi.APIError{Status: 200, Message: resp.Error}
	}

	var uids []string
	if raw, ok := resp.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, &ncbi.JSONError{Endpoint: "esummary", Err: err}
		}
	}

	summaries := make([]Summary, 0, len(uids))
	for _, uid := range uids {
		raw, ok := resp.Result[uid]
		if !ok {
			continue
		}
		var doc esummaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			c.log.Warn("skipping undecodable summary", zap.String("uid", uid), zap.Error(err))
			continue
		}
		if doc.Error != "" {
			c.log.Warn("skipping summary with per-UID error",
				zap.String("uid", uid), zap.String("error", doc.Error))
			continue
		}

		s := Summary{
			PMID:     uid,
			Title:    doc.Title,
			Source:   doc.Source,
			PubDate:  doc.PubDate,
			FullText: doc.FullName,
		}
		for _, a := range doc.AuthorList {
			s.Authors = append(s.Authors, a.Name)
		}
		for _, aid := range doc.ArticleIDs {
			if aid.IDType == "doi" {
				s.DOI = aid.Value
				break
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

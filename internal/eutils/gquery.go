package eutils

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pcrowe/entrez-go/internal/ncbi"
	"github.com/pcrowe/entrez-go/internal/xmlutil"
)

// GlobalQuery runs the term against every Entrez database at once and
// returns per-database hit counts. EGQuery only speaks XML, so the
// response is parsed from its ResultItem blocks.
func (c *Client) GlobalQuery(ctx context.Context, term string) (*GlobalQueryResult, error) {
	if term == "" {
		return nil, &ncbi.QueryError{Message: "query term is empty"}
	}

	params := url.Values{}
	params.Set("term", term)

	body, err := c.DoGet(ctx, "egquery.fcgi", params)
	if err != nil {
		return nil, err
	}
	if msg, found := inBandXMLError(body); found {
		return nil, &ncbi.APIError{Status: 200, Message: msg}
	}

	doc := string(body)
	result := &GlobalQueryResult{Term: term}
	for _, item := range xmlutil.FindTagBlocks(doc, "ResultItem") {
		dbName, _ := xmlutil.ExtractTag(item, "DbName")
		if dbName == "" {
			continue
		}
		menuName, _ := xmlutil.ExtractTag(item, "MenuName")
		status, _ := xmlutil.ExtractTag(item, "Status")
		countStr, _ := xmlutil.ExtractTag(item, "Count")
		// "Error" counts stay at zero; the status field carries the reason.
		count, _ := strconv.Atoi(countStr)
		result.Results = append(result.Results, GlobalQueryCount{
			Database: dbName,
			MenuName: menuName,
			Count:    count,
			Status:   status,
		})
	}
	return result, nil
}

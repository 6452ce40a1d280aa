// Package mesh provides MeSH descriptor lookup via the Entrez mesh
// database: an ESearch to resolve the term to a UID, then an EFetch of the
// full-text record format.
package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

// Record is a MeSH descriptor record.
type Record struct {
	UI          string   `json:"ui"`
	Name        string   `json:"name"`
	ScopeNote   string   `json:"scope_note,omitempty"`
	TreeNumbers []string `json:"tree_numbers,omitempty"`
	EntryTerms  []string `json:"entry_terms,omitempty"`
	Annotation  string   `json:"annotation,omitempty"`
}

// NotFoundError reports that a term has no MeSH descriptor.
type NotFoundError struct {
	Term string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("MeSH term %q not found (try a broader term or check spelling)", e.Term)
}

// Client looks up MeSH descriptors. It embeds ncbi.BaseClient so the rate
// limiter is shared with the other NCBI clients.
type Client struct {
	*ncbi.BaseClient
}

// NewClient creates a MeSH client over an existing base client.
func NewClient(base *ncbi.BaseClient) *Client {
	return &Client{BaseClient: base}
}

type meshSearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Lookup resolves a term to its MeSH descriptor record.
func (c *Client) Lookup(ctx context.Context, term string) (*Record, error) {
	if term == "" {
		return nil, &ncbi.QueryError{Message: "MeSH term is empty"}
	}

	uids, err := c.search(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, &NotFoundError{Term: term}
	}
	return c.fetch(ctx, uids[0])
}

func (c *Client) search(ctx context.Context, term string) ([]string, error) {
	params := url.Values{}
	params.Set("db", "mesh")
	params.Set("term", term)
	params.Set("retmode", "json")

	body, err := c.DoGet(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var resp meshSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ncbi.JSONError{Endpoint: "esearch", Err: err}
	}
	return resp.Result.IDList, nil
}

func (c *Client) fetch(ctx context.Context, uid string) (*Record, error) {
	params := url.Values{}
	params.Set("db", "mesh")
	params.Set("id", uid)
	params.Set("rettype", "full")
	params.Set("retmode", "text")

	body, err := c.DoGet(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	record := parseRecord(string(body))
	return &record, nil
}

// parseRecord parses the line-oriented "KEY = value" full record format.
func parseRecord(text string) Record {
	var record Record
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "*NEWRECORD" {
			continue
		}
		key, value, found := strings.Cut(line, " = ")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "MH":
			record.Name = value
		case "UI":
			record.UI = value
		case "MS":
			record.ScopeNote = value
		case "MN":
			record.TreeNumbers = append(record.TreeNumbers, value)
		case "AN":
			record.Annotation = value
		case "ENTRY", "PRINT ENTRY":
			// Entry terms carry qualifier fields after a pipe.
			entry, _, _ := strings.Cut(value, "|")
			if entry = strings.TrimSpace(entry); entry != "" {
				record.EntryTerms = append(record.EntryTerms, entry)
			}
		}
	}
	return record
}

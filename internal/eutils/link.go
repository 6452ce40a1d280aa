package eutils

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/pcrowe/entrez-go/internal/ids"
	"github.com/pcrowe/entrez-go/internal/ncbi"
)

const (
	linkRelated = "pubmed_pubmed"
	linkCitedIn = "pubmed_pubmed_citedin"
	linkRefs    = "pubmed_pubmed_refs"
	linkToPMC   = "pubmed_pmc"
)

// ScoredLink is a related-article link with its relevance score from
// cmd=neighbor_score.
type ScoredLink struct {
	PMID  string `json:"pmid"`
	Score int    `json:"score"`
}

// ELink JSON response structures.
type elinkResponse struct {
	LinkSets []elinkLinkSet `json:"linksets"`
}

type elinkLinkSet struct {
	DbFrom     string           `json:"dbfrom"`
	IDs        []string         `json:"ids"`
	LinkSetDBs []elinkLinkSetDB `json:"linksetdbs"`
}

type elinkLinkSetDB struct {
	DbTo     string      `json:"dbto"`
	LinkName string      `json:"linkname"`
	Links    []elinkLink `json:"links"`
}

// elinkLink tolerates both the bare-string and the object form NCBI emits.
type elinkLink struct {
	ID    string
	Score string
}

func (l *elinkLink) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.ID = s
		return nil
	}
	var obj struct {
		ID    string `json:"id"`
		Score string `json:"score"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.ID = obj.ID
	l.Score = obj.Score
	return nil
}

// elink issues one ELink request and returns the linked IDs for linkName,
// in response order.
func (c *Client) elink(ctx context.Context, pmids []ids.PMID, db, linkName string) ([]string, error) {
	idParam := make([]string, len(pmids))
	for i, id := range pmids {
		idParam[i] = id.String()
	}

	params := url.Values{}
	params.Set("dbfrom", "pubmed")
	params.Set("db", db)
	params.Set("id", strings.Join(idParam, ","))
	params.Set("linkname", linkName)
	params.Set("retmode", "json")

	body, err := c.DoGet(ctx, "elink.fcgi", params)
	if err != nil {
		return nil, err
	}

	var resp elinkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ncbi.JSONError{Endpoint: "elink", Err: err}
	}

	var linked []string
	for _, ls := range resp.LinkSets {
		for _, lsdb := range ls.LinkSetDBs {
			if lsdb.LinkName != linkName {
				continue
			}
			for _, l := range lsdb.Links {
				linked = append(linked, l.ID)
			}
		}
	}
	return linked, nil
}

// GetRelatedWithScores returns related articles ranked by NCBI's relevance
// score (cmd=neighbor_score), with the source PMIDs removed. Links whose
// score fails to parse are kept with a zero score.
func (c *Client) GetRelatedWithScores(ctx context.Context, pmids []string) ([]ScoredLink, error) {
	if len(pmids) == 0 {
		return []ScoredLink{}, nil
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
	params.Set("dbfrom", "pubmed")
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(idParam, ","))
	params.Set("cmd", "neighbor_score")
	params.Set("retmode", "json")

	body, err := c.DoGet(ctx, "elink.fcgi", params)
	if err != nil {
		return nil, err
	}
	var resp elinkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ncbi.JSONError{Endpoint: "elink", Err: err}
	}

	source := make(map[string]bool, len(validated))
	for _, id := range validated {
		source[id.String()] = true
	}
	var out []ScoredLink
	seen := make(map[string]bool)
	for _, ls := range resp.LinkSets {
		for _, lsdb := range ls.LinkSetDBs {
			if lsdb.LinkName != linkRelated {
				continue
			}
			for _, l := range lsdb.Links {
				if source[l.ID] || seen[l.ID] {
					continue
				}
				seen[l.ID] = true
				score, _ := strconv.Atoi(l.Score)
				out = append(out, ScoredLink{PMID: l.ID, Score: score})
			}
		}
	}
	return out, nil
}

// GetReferences returns PMIDs of the articles the inputs cite, deduplicated
// in response order.
func (c *Client) GetReferences(ctx context.Context, pmids []string) ([]string, error) {
	if len(pmids) == 0 {
		return []string{}, nil
	}
	validated, err := ids.ValidatePMIDs(pmids)
	if err != nil {
		return nil, err
	}
	linked, err := c.elink(ctx, validated, "pubmed", linkRefs)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(linked))
	seen := make(map[string]bool, len(linked))
	for _, id := range linked {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// GetRelatedArticles returns PMIDs of articles NCBI considers similar to
// the inputs, deduplicated, with the source PMIDs removed. Empty input
// yields an empty result without network I/O.
func (c *Client) GetRelatedArticles(ctx context.Context, pmids []string) ([]string, error) {
	if len(pmids) == 0 {
		return []string{}, nil
	}
	validated, err := ids.ValidatePMIDs(pmids)
	if err != nil {
		return nil, err
	}
	linked, err := c.elink(ctx, validated, "pubmed", linkRelated)
	if err != nil {
		return nil, err
	}

	source := make(map[string]bool, len(validated))
	for _, id := range validated {
		source[id.String()] = true
	}
	out := make([]string, 0, len(linked))
	seen := make(map[string]bool, len(linked))
	for _, id := range linked {
		if source[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// GetPMCLinks returns canonical PMC IDs with full text for the given
// PMIDs, deduplicated in response order.
func (c *Client) GetPMCLinks(ctx context.Context, pmids []string) ([]string, error) {
	if len(pmids) == 0 {
		return []string{}, nil
	}
	validated, err := ids.ValidatePMIDs(pmids)
	if err != nil {
		return nil, err
	}
	linked, err := c.elink(ctx, validated, "pmc", linkToPMC)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(linked))
	seen := make(map[string]bool, len(linked))
	for _, raw := range linked {
		pmcid, err := ids.ParsePMCID(raw)
		if err != nil {
			continue
		}
		s := pmcid.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// GetCitations returns PMIDs of articles citing the inputs, deduplicated
// in response order.
func (c *Client) GetCitations(ctx context.Context, pmids []string) ([]string, error) {
	if len(pmids) == 0 {
		return []string{}, nil
	}
	validated, err := ids.ValidatePMIDs(pmids)
	if err != nil {
		return nil, err
	}
	linked, err := c.elink(ctx, validated, "pubmed", linkCitedIn)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(linked))
	seen := make(map[string]bool, len(linked))
	for _, id := range linked {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// CheckPMCAvailability resolves a PMID to its PMC ID when full text exists
// in PMC, or reports PMCNotAvailableError.
func (c *Client) CheckPMCAvailability(ctx context.Context, pmid string) (string, error) {
	id, err := ids.ParsePMID(pmid)
	if err != nil {
		return "", err
	}
	links, err := c.GetPMCLinks(ctx, []string{id.String()})
	if err != nil {
		return "", err
	}
	if len(links) == 0 {
		return "", &ncbi.PMCNotAvailableError{PMID: id.String()}
	}
	return links[0], nil
}

package eutils

import (
	"context"
	"strings"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

// bdata renders the citation as the pipe-delimited field sequence
// ECitMatch expects: journal|year|volume|page|author|key|, with spaces
// encoded as plus signs.
func (q CitationQuery) bdata() string {
	fields := []string{
		q.JournalTitle,
		q.Year,
		q.Volume,
		q.FirstPage,
		q.AuthorName,
		q.Key,
	}
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, " ", "+")
	}
	return strings.Join(fields, "|") + "|"
}

// MatchCitations resolves bibliographic citations to PMIDs via ECitMatch.
// The bdata parameter carries its own encoding (| field separators, %0D
// line separators, + for spaces), so the query string is sent verbatim
// rather than form-encoded. Results come back in submission order.
func (c *Client) MatchCitations(ctx context.Context, citations []CitationQuery) ([]CitationMatch, error) {
	if len(citations) == 0 {
		return []CitationMatch{}, nil
	}

	lines := make([]string, len(citations))
	for i, q := range citations {
		lines[i] = q.bdata()
	}
	rawQuery := "db=pubmed&retmode=xml&bdata=" + strings.Join(lines, "%0D")

	body, err := c.DoGetRaw(ctx, "ecitmatch.cgi", rawQuery)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]CitationQuery, len(citations))
	for _, q := range citations {
		byKey[q.Key] = q
	}

	matches := make([]CitationMatch, 0, len(citations))
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 7 {
			continue
		}

		query := CitationQuery{
			JournalTitle: parts[0],
			Year:         parts[1],
			Volume:       parts[2],
			FirstPage:    parts[3],
			AuthorName:   parts[4],
			Key:          parts[5],
		}
		// Prefer the submitted query over the echoed fields when the key
		// round-trips, so callers get back exactly what they sent.
		if orig, ok := byKey[query.Key]; ok {
			query = orig
		}

		m := CitationMatch{Query: query}
		switch result := strings.TrimSpace(parts[6]); {
		case result == "":
			m.Status = CitationNotFound
		case result == "AMBIGUOUS" || strings.HasPrefix(result, "AMBIGUOUS"):
			m.Status = CitationAmbiguous
		case strings.HasPrefix(result, "NOT_FOUND"):
			m.Status = CitationNotFound
		default:
			m.Status = CitationFound
			m.PMID = result
		}
		matches = append(matches, m)
	}
	if len(matches) == 0 {
		return nil, &ncbi.APIError{Status: 200, Message: "ECitMatch returned no parseable result lines"}
	}
	return matches, nil
}

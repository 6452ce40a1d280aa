// Package query builds PubMed search expressions through fluent
// composition. Terms are free text; filters are bracketed field
// expressions. Build joins the term group and all filters with " AND ".
package query

import (
	"fmt"
	"strings"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

const (
	// MaxLimit is the ESearch retmax ceiling enforced by validation.
	MaxLimit = 10000
	// MaxQueryLength is the longest query string accepted by validation.
	MaxQueryLength = 4000
	// DefaultLimit applies when the caller never sets one.
	DefaultLimit = 20

	farPastYear   = 1900
	farFutureYear = 3000
)

// ArticleType is a PubMed publication type usable as a [pt] filter.
type ArticleType string

const (
	ClinicalTrial             ArticleType = "Clinical Trial"
	Review                    ArticleType = "Review"
	SystematicReview          ArticleType = "Systematic Review"
	MetaAnalysis              ArticleType = "Meta-Analysis"
	CaseReport                ArticleType = "Case Reports"
	RandomizedControlledTrial ArticleType = "Randomized Controlled Trial"
	ObservationalStudy        ArticleType = "Observational Study"
)

// Date is a publication date with year precision and optional month and day.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String renders YYYY, YYYY/MM, or YYYY/MM/DD depending on precision.
func (d Date) String() string {
	switch {
	case d.Day > 0 && d.Month > 0:
		return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
	case d.Month > 0:
		return fmt.Sprintf("%04d/%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d", d.Year)
	}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.Year == 0 }

// SearchQuery accumulates terms and filters for a PubMed search expression.
type SearchQuery struct {
	terms   []string
	filters []string
	limit   int
}

// New returns an empty SearchQuery with the default result limit.
func New() *SearchQuery {
	return &SearchQuery{limit: DefaultLimit}
}

// Query appends a free-text term.
func (q *SearchQuery) Query(term string) *SearchQuery {
	q.terms = append(q.terms, strings.TrimSpace(term))
	return q
}

func (q *SearchQuery) field(value, tag string) *SearchQuery {
	value = strings.TrimSpace(value)
	if value != "" {
		q.filters = append(q.filters, value+"["+tag+"]")
	}
	return q
}

// Title restricts a term to the title field.
func (q *SearchQuery) Title(s string) *SearchQuery { return q.field(s, "Title") }

// Abstract restricts a term to the abstract field.
func (q *SearchQuery) Abstract(s string) *SearchQuery { return q.field(s, "Abstract") }

// TitleAbstract restricts a term to title or abstract.
func (q *SearchQuery) TitleAbstract(s string) *SearchQuery { return q.field(s, "Title/Abstract") }

// Journal filters by full journal name.
func (q *SearchQuery) Journal(s string) *SearchQuery { return q.field(s, "Journal") }

// JournalAbbreviation filters by journal title abbreviation.
func (q *SearchQuery) JournalAbbreviation(s string) *SearchQuery {
	return q.field(s, "Journal Title Abbreviation")
}

// ISBN filters by ISBN.
func (q *SearchQuery) ISBN(s string) *SearchQuery { return q.field(s, "ISBN") }

// ISSN filters by ISSN.
func (q *SearchQuery) ISSN(s string) *SearchQuery { return q.field(s, "ISSN") }

// GrantNumber filters by grant number.
func (q *SearchQuery) GrantNumber(s string) *SearchQuery { return q.field(s, "Grant Number") }

// Author filters by author name ("last F" form works best).
func (q *SearchQuery) Author(s string) *SearchQuery { return q.field(s, "Author") }

// FirstAuthor filters by first author.
func (q *SearchQuery) FirstAuthor(s string) *SearchQuery { return q.field(s, "First Author") }

// LastAuthor filters by last author.
func (q *SearchQuery) LastAuthor(s string) *SearchQuery { return q.field(s, "Last Author") }

// Affiliation filters by author affiliation.
func (q *SearchQuery) Affiliation(s string) *SearchQuery { return q.field(s, "Affiliation") }

// ORCID filters by author ORCID identifier.
func (q *SearchQuery) ORCID(s string) *SearchQuery { return q.field(s, "Author - Identifier") }

// MeSHTerm filters by MeSH term.
func (q *SearchQuery) MeSHTerm(s string) *SearchQuery { return q.field(s, "MeSH Terms") }

// MeSHMajorTopic filters by MeSH major topic.
func (q *SearchQuery) MeSHMajorTopic(s string) *SearchQuery { return q.field(s, "MeSH Major Topic") }

// MeSHSubheading filters by MeSH subheading.
func (q *SearchQuery) MeSHSubheading(s string) *SearchQuery { return q.field(s, "MeSH Subheading") }

// Language filters by language code, e.g. "eng".
func (q *SearchQuery) Language(s string) *SearchQuery { return q.field(s, "lang") }

// Humans restricts results to human studies via the MeSH check tag.
func (q *SearchQuery) Humans() *SearchQuery { return q.field("humans", "mh") }

// Animals restricts results to animal studies via the MeSH check tag.
func (q *SearchQuery) Animals() *SearchQuery { return q.field("animals", "mh") }

// AgeGroup filters by a MeSH age-group heading such as "infant" or "aged".
func (q *SearchQuery) AgeGroup(s string) *SearchQuery { return q.field(s, "mh") }

// ArticleTypes filters by publication type. A single type emits Type[pt];
// multiple types emit an OR group.
func (q *SearchQuery) ArticleTypes(types ...ArticleType) *SearchQuery {
	switch len(types) {
	case 0:
		return q
	case 1:
		q.filters = append(q.filters, string(types[0])+"[pt]")
	default:
		parts := make([]string, len(types))
		for i, t := range types {
			parts[i] = string(t) + "[pt]"
		}
		q.filters = append(q.filters, "("+strings.Join(parts, " OR ")+")")
	}
	return q
}

// FreeFullTextOnly restricts results to the free full text subset.
func (q *SearchQuery) FreeFullTextOnly() *SearchQuery {
	q.filters = append(q.filters, "free full text[sb]")
	return q
}

// OpenAccessOnly is an alias for FreeFullTextOnly.
func (q *SearchQuery) OpenAccessOnly() *SearchQuery { return q.FreeFullTextOnly() }

// FullTextOnly restricts results to the full text subset.
func (q *SearchQuery) FullTextOnly() *SearchQuery {
	q.filters = append(q.filters, "full text[sb]")
	return q
}

// HasAbstract restricts results to records with abstracts.
func (q *SearchQuery) HasAbstract() *SearchQuery {
	q.filters = append(q.filters, "hasabstract")
	return q
}

func (q *SearchQuery) dateRange(from, to Date, tag string) *SearchQuery {
	if from.IsZero() {
		from = Date{Year: farPastYear}
	}
	if to.IsZero() {
		to = Date{Year: farFutureYear}
	}
	q.filters = append(q.filters, from.String()+":"+to.String()+"["+tag+"]")
	return q
}

// PublishedBetween filters by publication date range. A zero from or to
// leaves that end open (1900 or 3000 respectively).
func (q *SearchQuery) PublishedBetween(from, to Date) *SearchQuery {
	return q.dateRange(from, to, "pdat")
}

// PublishedAfter filters for articles published on or after the date.
func (q *SearchQuery) PublishedAfter(d Date) *SearchQuery {
	return q.dateRange(d, Date{}, "pdat")
}

// PublishedBefore filters for articles published on or before the date.
func (q *SearchQuery) PublishedBefore(d Date) *SearchQuery {
	return q.dateRange(Date{}, d, "pdat")
}

// PublishedInYear filters by a single publication year.
func (q *SearchQuery) PublishedInYear(year int) *SearchQuery {
	return q.field(fmt.Sprintf("%04d", year), "pdat")
}

// EntrezDateBetween filters by Entrez entry date range.
func (q *SearchQuery) EntrezDateBetween(from, to Date) *SearchQuery {
	return q.dateRange(from, to, "edat")
}

// ModifiedDateBetween filters by record modification date range.
func (q *SearchQuery) ModifiedDateBetween(from, to Date) *SearchQuery {
	return q.dateRange(from, to, "mdat")
}

// Limit sets the maximum number of results to request.
func (q *SearchQuery) Limit(n int) *SearchQuery {
	q.limit = n
	return q
}

// GetLimit returns the configured result limit.
func (q *SearchQuery) GetLimit() int { return q.limit }

// Build assembles the final expression: nonempty terms joined with " AND ",
// then all filters, all joined with " AND ".
func (q *SearchQuery) Build() string {
	parts := make([]string, 0, len(q.terms)+len(q.filters))
	for _, t := range q.terms {
		if t != "" {
			parts = append(parts, t)
		}
	}
	parts = append(parts, q.filters...)
	return strings.Join(parts, " AND ")
}

func maxLimit(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// collapse folds the accumulated expression into a single composite term.
func collapse(expr string, limit int) *SearchQuery {
	return &SearchQuery{terms: []string{expr}, limit: limit}
}

// And combines two queries conjunctively: "(q1) AND (q2)".
func (q *SearchQuery) And(other *SearchQuery) *SearchQuery {
	return collapse("("+q.Build()+") AND ("+other.Build()+")", maxLimit(q.limit, other.limit))
}

// Or combines two queries disjunctively: "(q1) OR (q2)".
func (q *SearchQuery) Or(other *SearchQuery) *SearchQuery {
	return collapse("("+q.Build()+") OR ("+other.Build()+")", maxLimit(q.limit, other.limit))
}

// Not negates the accumulated query: "NOT (q)".
func (q *SearchQuery) Not() *SearchQuery {
	return collapse("NOT ("+q.Build()+")", q.limit)
}

// Exclude removes matches of other from this query: "(q1) NOT (q2)".
func (q *SearchQuery) Exclude(other *SearchQuery) *SearchQuery {
	return collapse("("+q.Build()+") NOT ("+other.Build()+")", maxLimit(q.limit, other.limit))
}

// Group wraps the accumulated expression in parentheses.
func (q *SearchQuery) Group() *SearchQuery {
	return collapse("("+q.Build()+")", q.limit)
}

// Validate rejects empty queries, limits outside (0, 10000], overlong
// expressions, and unbalanced parentheses.
func (q *SearchQuery) Validate() error {
	expr := q.Build()
	if strings.TrimSpace(expr) == "" {
		return &ncbi.QueryError{Message: "query is empty"}
	}
	if q.limit <= 0 {
		return &ncbi.QueryError{Message: fmt.Sprintf("limit must be positive, got %d", q.limit)}
	}
	if q.limit > MaxLimit {
		return &ncbi.QueryError{Message: fmt.Sprintf("limit %d exceeds maximum %d", q.limit, MaxLimit)}
	}
	if len(expr) > MaxQueryLength {
		return &ncbi.QueryError{Message: fmt.Sprintf("query length %d exceeds maximum %d characters", len(expr), MaxQueryLength)}
	}
	if strings.Count(expr, "(") != strings.Count(expr, ")") {
		return &ncbi.QueryError{Message: "unbalanced parentheses"}
	}
	return nil
}

// Optimize de-duplicates terms and filters and removes empty entries,
// preserving first-occurrence order.
func (q *SearchQuery) Optimize() *SearchQuery {
	q.terms = dedupe(q.terms)
	q.filters = dedupe(q.filters)
	return q
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// Stats describes the composed query: accumulated counts and a complexity
// score where AND weighs 1, OR and NOT weigh 2, and each open parenthesis
// weighs 1.
type Stats struct {
	TermCount   int
	FilterCount int
	Complexity  int
}

// GetStats computes Stats over the built expression.
func (q *SearchQuery) GetStats() Stats {
	expr := q.Build()
	return Stats{
		TermCount:   len(q.terms),
		FilterCount: len(q.filters),
		Complexity: strings.Count(expr, " AND ") +
			2*strings.Count(expr, " OR ") +
			2*strings.Count(expr, "NOT ") +
			strings.Count(expr, "("),
	}
}

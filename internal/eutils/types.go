// Package eutils provides a typed client for the NCBI E-utilities API:
// ESearch, EFetch, ESummary, ELink, EInfo, EPost, EGQuery, ESpell, and
// ECitMatch, plus history-session streaming over large result sets.
package eutils

// SearchResult is the outcome of an ESearch query.
type SearchResult struct {
	PMIDs            []string `json:"pmids"`
	TotalCount       int      `json:"total_count"`
	WebEnv           string   `json:"webenv,omitempty"`
	QueryKey         string   `json:"query_key,omitempty"`
	QueryTranslation string   `json:"query_translation,omitempty"`
}

// Session returns the history session carried by the result, if any.
func (r *SearchResult) Session() (HistorySession, bool) {
	if r.WebEnv == "" || r.QueryKey == "" {
		return HistorySession{}, false
	}
	return HistorySession{WebEnv: r.WebEnv, QueryKey: r.QueryKey}, true
}

// HistorySession references a stored result set on NCBI's history server.
// Sessions are live for roughly an hour of inactivity; callers must treat
// expiry as a re-search condition.
type HistorySession struct {
	WebEnv   string `json:"webenv"`
	QueryKey string `json:"query_key"`
}

// Article is a PubMed record parsed from MEDLINE XML.
type Article struct {
	PMID                string            `json:"pmid"`
	Title               string            `json:"title"`
	Journal             string            `json:"journal"`
	JournalAbbreviation string            `json:"journal_abbreviation,omitempty"`
	ISSN                string            `json:"issn,omitempty"`
	PubDate             string            `json:"pub_date"`
	DOI                 string            `json:"doi,omitempty"`
	PMCID               string            `json:"pmc_id,omitempty"`
	Authors             []Author          `json:"authors"`
	AuthorCount         int               `json:"author_count"`
	ArticleTypes        []string          `json:"article_types"`
	AbstractText        string            `json:"abstract_text,omitempty"`
	StructuredAbstract  []AbstractSection `json:"structured_abstract,omitempty"`
	MeshHeadings        []MeshTerm        `json:"mesh_headings,omitempty"`
	SupplementalTerms   []string          `json:"supplemental_terms,omitempty"`
	Keywords            []string          `json:"keywords,omitempty"`
	ChemicalList        []Chemical        `json:"chemical_list,omitempty"`
	Volume              string            `json:"volume,omitempty"`
	Issue               string            `json:"issue,omitempty"`
	Pages               string            `json:"pages,omitempty"`
	Language            string            `json:"language,omitempty"`
}

// AbstractSection is one labeled segment of a structured abstract.
// Unlabeled segments keep an empty label but preserve their order.
type AbstractSection struct {
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

// Author is either a personal name or a collective name, with affiliations.
type Author struct {
	LastName        string        `json:"last_name,omitempty"`
	ForeName        string        `json:"fore_name,omitempty"`
	Initials        string        `json:"initials,omitempty"`
	Suffix          string        `json:"suffix,omitempty"`
	CollectiveName  string        `json:"collective_name,omitempty"`
	FullName        string        `json:"full_name"`
	Affiliations    []Affiliation `json:"affiliations,omitempty"`
	ORCID           string        `json:"orcid,omitempty"`
	IsCorresponding bool          `json:"is_corresponding,omitempty"`
	Roles           []string      `json:"roles,omitempty"`
}

// Affiliation is a parsed author affiliation. Institution carries the full
// trimmed affiliation text; country and email are inferred from it.
type Affiliation struct {
	Institution string `json:"institution,omitempty"`
	Department  string `json:"department,omitempty"`
	Address     string `json:"address,omitempty"`
	Country     string `json:"country,omitempty"`
	Email       string `json:"email,omitempty"`
}

// MeshTerm is a MeSH descriptor with its qualifiers.
type MeshTerm struct {
	DescriptorName string          `json:"descriptor_name"`
	DescriptorUI   string          `json:"descriptor_ui,omitempty"`
	MajorTopic     bool            `json:"major_topic"`
	Qualifiers     []MeshQualifier `json:"qualifiers,omitempty"`
}

// MeshQualifier is a subheading attached to a MeSH descriptor.
type MeshQualifier struct {
	QualifierName string `json:"qualifier_name"`
	QualifierUI   string `json:"qualifier_ui,omitempty"`
	MajorTopic    bool   `json:"major_topic"`
}

// Chemical is a substance from the MEDLINE chemical list.
type Chemical struct {
	Name           string `json:"name"`
	RegistryNumber string `json:"registry_number,omitempty"`
	UI             string `json:"ui,omitempty"`
}

// Summary is a condensed record from ESummary.
type Summary struct {
	PMID     string   `json:"pmid"`
	Title    string   `json:"title"`
	Source   string   `json:"source,omitempty"`
	PubDate  string   `json:"pub_date,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	FullText string   `json:"fulljournalname,omitempty"`
}

// DatabaseInfo describes one Entrez database from EInfo.
type DatabaseInfo struct {
	Name        string `json:"name"`
	MenuName    string `json:"menu_name,omitempty"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count"`
	LastUpdate  string `json:"last_update,omitempty"`
}

// GlobalQueryCount is a per-database hit count from EGQuery.
type GlobalQueryCount struct {
	Database string `json:"database"`
	MenuName string `json:"menu_name,omitempty"`
	Count    int    `json:"count"`
	Status   string `json:"status,omitempty"`
}

// GlobalQueryResult aggregates EGQuery counts across all Entrez databases.
type GlobalQueryResult struct {
	Term    string             `json:"term"`
	Results []GlobalQueryCount `json:"results"`
}

// NonZero returns the databases with at least one hit.
func (r *GlobalQueryResult) NonZero() []GlobalQueryCount {
	var out []GlobalQueryCount
	for _, c := range r.Results {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	return out
}

// CountFor returns the hit count for a database, if present.
func (r *GlobalQueryResult) CountFor(db string) (int, bool) {
	for _, c := range r.Results {
		if c.Database == db {
			return c.Count, true
		}
	}
	return 0, false
}

// SpellResult is an ESpell suggestion record.
type SpellResult struct {
	Query          string   `json:"query"`
	CorrectedQuery string   `json:"corrected_query,omitempty"`
	Replacements   []string `json:"replacements,omitempty"`
}

// HasCorrections reports whether NCBI suggested any replacement.
func (r *SpellResult) HasCorrections() bool {
	return len(r.Replacements) > 0 || (r.CorrectedQuery != "" && r.CorrectedQuery != r.Query)
}

// CitationStatus classifies an ECitMatch outcome.
type CitationStatus string

const (
	CitationFound     CitationStatus = "Found"
	CitationNotFound  CitationStatus = "NotFound"
	CitationAmbiguous CitationStatus = "Ambiguous"
)

// CitationQuery is one citation submitted to ECitMatch.
type CitationQuery struct {
	JournalTitle string `json:"journal_title"`
	Year         string `json:"year"`
	Volume       string `json:"volume"`
	FirstPage    string `json:"first_page"`
	AuthorName   string `json:"author_name"`
	Key          string `json:"key"`
}

// CitationMatch is the per-citation result of an ECitMatch request.
type CitationMatch struct {
	Query  CitationQuery  `json:"query"`
	PMID   string         `json:"pmid,omitempty"`
	Status CitationStatus `json:"status"`
}

// SearchOptions configures an ESearch request.
type SearchOptions struct {
	Limit    int    `json:"limit,omitempty"`
	Sort     string `json:"sort,omitempty"`
	RetStart int    `json:"retstart,omitempty"`
}

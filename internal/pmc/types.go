// Package pmc retrieves and parses PubMed Central full-text articles.
// PMC serves JATS XML, which is extracted tag by tag over substrings; the
// schema family varies too much across journals for strict decoding.
package pmc

// FullTextArticle is a parsed PMC article.
type FullTextArticle struct {
	PMCID                  string                  `json:"pmcid"`
	PMID                   string                  `json:"pmid,omitempty"`
	Title                  string                  `json:"title"`
	Authors                []Contributor           `json:"authors"`
	Journal                JournalInfo             `json:"journal"`
	PubDate                string                  `json:"pub_date"`
	DOI                    string                  `json:"doi,omitempty"`
	ArticleType            string                  `json:"article_type,omitempty"`
	Keywords               []string                `json:"keywords,omitempty"`
	Funding                []FundingInfo           `json:"funding,omitempty"`
	ConflictOfInterest     string                  `json:"conflict_of_interest,omitempty"`
	Acknowledgments        string                  `json:"acknowledgments,omitempty"`
	DataAvailability       string                  `json:"data_availability,omitempty"`
	Sections               []Section               `json:"sections"`
	References             []Reference             `json:"references,omitempty"`
	SupplementaryMaterials []SupplementaryMaterial `json:"supplementary_materials,omitempty"`
}

// JournalInfo is the journal metadata block of a PMC article.
type JournalInfo struct {
	Title          string `json:"title,omitempty"`
	Abbreviation   string `json:"abbreviation,omitempty"`
	ISSNElectronic string `json:"issn_electronic,omitempty"`
	ISSNPrint      string `json:"issn_print,omitempty"`
	Publisher      string `json:"publisher,omitempty"`
	Volume         string `json:"volume,omitempty"`
	Issue          string `json:"issue,omitempty"`
}

// Contributor is one author from a JATS contrib-group.
type Contributor struct {
	Surname         string   `json:"surname,omitempty"`
	GivenNames      string   `json:"given_names,omitempty"`
	ORCID           string   `json:"orcid,omitempty"`
	Email           string   `json:"email,omitempty"`
	IsCorresponding bool     `json:"is_corresponding,omitempty"`
	Roles           []string `json:"roles,omitempty"`
}

// Section is one node of the article body tree. Subsections are owned by
// their parent; no section appears under two parents.
type Section struct {
	Type        string    `json:"section_type"`
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content,omitempty"`
	Figures     []Figure  `json:"figures,omitempty"`
	Tables      []Table   `json:"tables,omitempty"`
	Subsections []Section `json:"subsections,omitempty"`
}

// Figure is one <fig> element.
type Figure struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Caption string `json:"caption"`
	AltText string `json:"alt_text,omitempty"`
	FigType string `json:"fig_type,omitempty"`
}

// Table is one <table-wrap> element.
type Table struct {
	ID        string   `json:"id"`
	Label     string   `json:"label,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	Footnotes []string `json:"footnotes,omitempty"`
}

// Reference is one bibliography entry.
type Reference struct {
	ID      string      `json:"id,omitempty"`
	RefType string      `json:"ref_type,omitempty"`
	Title   string      `json:"title,omitempty"`
	Source  string      `json:"source,omitempty"`
	Year    string      `json:"year,omitempty"`
	Volume  string      `json:"volume,omitempty"`
	Issue   string      `json:"issue,omitempty"`
	Pages   string      `json:"pages,omitempty"`
	DOI     string      `json:"doi,omitempty"`
	PMID    string      `json:"pmid,omitempty"`
	Authors []RefAuthor `json:"authors,omitempty"`
}

// RefAuthor is one cited author name pair.
type RefAuthor struct {
	Surname    string `json:"surname,omitempty"`
	GivenNames string `json:"given_names,omitempty"`
}

// SupplementaryMaterial is one downloadable supplement. Materials without
// a file URL are discarded during parsing.
type SupplementaryMaterial struct {
	ID          string `json:"id"`
	ContentType string `json:"content_type,omitempty"`
	Position    string `json:"position,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	FileURL     string `json:"file_url"`
	FileType    string `json:"file_type,omitempty"`
}

// FundingInfo is one award-group entry, or the synthetic entry carrying a
// bare funding statement.
type FundingInfo struct {
	Source    string `json:"source"`
	AwardID   string `json:"award_id,omitempty"`
	Statement string `json:"statement,omitempty"`
}

// OAInfo is the open-access subset record for one PMC ID.
type OAInfo struct {
	PMCID     string   `json:"pmcid"`
	Available bool     `json:"available"`
	ErrorCode string   `json:"error_code,omitempty"`
	Citation  string   `json:"citation,omitempty"`
	License   string   `json:"license,omitempty"`
	Retracted bool     `json:"retracted,omitempty"`
	Links     []OALink `json:"links,omitempty"`
}

// OALink is one download link from the OA service.
type OALink struct {
	URL     string `json:"url"`
	Format  string `json:"format,omitempty"`
	Updated string `json:"updated,omitempty"`
}

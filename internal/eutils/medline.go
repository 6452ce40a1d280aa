package eutils

import (
	"encoding/xml"
	"strings"

	"go.uber.org/zap"

	"github.com/pcrowe/entrez-go/internal/ncbi"
	"github.com/pcrowe/entrez-go/internal/xmlutil"
)

// XML schema structures for PubMed EFetch MEDLINE responses. The document
// is preprocessed with xmlutil.StripInlineMarkup before unmarshalling, so
// AbstractText and ArticleTitle decode as plain character data.

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation   medlineCitation `xml:"MedlineCitation"`
	PubmedData pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID            string             `xml:"PMID"`
	Article         xmlArticle         `xml:"Article"`
	MeshHeadingList xmlMeshHeadingList `xml:"MeshHeadingList"`
	ChemicalList    xmlChemicalList    `xml:"ChemicalList"`
	KeywordLists    []xmlKeywordList   `xml:"KeywordList"`
	SupplMeshList   xmlSupplMeshList   `xml:"SupplMeshList"`
}

type xmlArticle struct {
	Journal             xmlJournal             `xml:"Journal"`
	ArticleTitle        string                 `xml:"ArticleTitle"`
	Abstract            xmlAbstract            `xml:"Abstract"`
	AuthorList          xmlAuthorList          `xml:"AuthorList"`
	Language            []string               `xml:"Language"`
	PublicationTypeList xmlPublicationTypeList `xml:"PublicationTypeList"`
	Pagination          xmlPagination          `xml:"Pagination"`
	ELocationIDs        []xmlELocationID       `xml:"ELocationID"`
}

type xmlJournal struct {
	ISSNs           []xmlISSN       `xml:"ISSN"`
	JournalIssue    xmlJournalIssue `xml:"JournalIssue"`
	Title           string          `xml:"Title"`
	ISOAbbreviation string          `xml:"ISOAbbreviation"`
}

type xmlISSN struct {
	Type  string `xml:"IssnType,attr"`
	Value string `xml:",chardata"`
}

type xmlJournalIssue struct {
	Volume  string     `xml:"Volume"`
	Issue   string     `xml:"Issue"`
	PubDate xmlPubDate `xml:"PubDate"`
}

type xmlPubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type xmlAbstract struct {
	AbstractTexts []xmlAbstractText `xml:"AbstractText"`
}

type xmlAbstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type xmlAuthorList struct {
	Authors []xmlAuthor `xml:"Author"`
}

type xmlAuthor struct {
	ValidYN         string               `xml:"ValidYN,attr"`
	LastName        string               `xml:"LastName"`
	ForeName        string               `xml:"ForeName"`
	Initials        string               `xml:"Initials"`
	Suffix          string               `xml:"Suffix"`
	CollectiveName  string               `xml:"CollectiveName"`
	Identifiers     []xmlIdentifier      `xml:"Identifier"`
	AffiliationInfo []xmlAffiliationInfo `xml:"AffiliationInfo"`
}

type xmlIdentifier struct {
	Source string `xml:"Source,attr"`
	Value  string `xml:",chardata"`
}

type xmlAffiliationInfo struct {
	Affiliation string `xml:"Affiliation"`
}

type xmlPublicationTypeList struct {
	Types []xmlPublicationType `xml:"PublicationType"`
}

type xmlPublicationType struct {
	UI   string `xml:"UI,attr"`
	Name string `xml:",chardata"`
}

type xmlPagination struct {
	MedlinePgn string `xml:"MedlinePgn"`
}

type xmlELocationID struct {
	EIdType string `xml:"EIdType,attr"`
	ValidYN string `xml:"ValidYN,attr"`
	Value   string `xml:",chardata"`
}

type xmlMeshHeadingList struct {
	MeshHeadings []xmlMeshHeading `xml:"MeshHeading"`
}

type xmlMeshHeading struct {
	Descriptor xmlMeshName   `xml:"DescriptorName"`
	Qualifiers []xmlMeshName `xml:"QualifierName"`
}

type xmlMeshName struct {
	UI         string `xml:"UI,attr"`
	MajorTopic string `xml:"MajorTopicYN,attr"`
	Name       string `xml:",chardata"`
}

type xmlChemicalList struct {
	Chemicals []xmlChemical `xml:"Chemical"`
}

type xmlChemical struct {
	RegistryNumber  string      `xml:"RegistryNumber"`
	NameOfSubstance xmlMeshName `xml:"NameOfSubstance"`
}

type xmlKeywordList struct {
	Keywords []string `xml:"Keyword"`
}

type xmlSupplMeshList struct {
	Names []string `xml:"SupplMeshName"`
}

type pubmedData struct {
	ArticleIDList xmlArticleIDList `xml:"ArticleIdList"`
}

type xmlArticleIDList struct {
	ArticleIDs []xmlArticleID `xml:"ArticleId"`
}

type xmlArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// parseArticleSet decodes a MEDLINE XML batch into Articles. Articles that
// fail per-article extraction (a missing title) are skipped with a warning;
// the skip count keeps history paging offsets honest.
func (c *Client) parseArticleSet(data []byte) ([]Article, int, error) {
	clean := xmlutil.StripInlineMarkup(string(data))

	var set pubmedArticleSet
	if err := xml.Unmarshal([]byte(clean), &set); err != nil {
		return nil, 0, &ncbi.XMLError{Endpoint: "efetch", Err: err}
	}

	articles := make([]Article, 0, len(set.Articles))
	skipped := 0
	for _, pa := range set.Articles {
		a, ok := convertArticle(pa)
		if !ok {
			skipped++
			c.log.Warn("skipping unparseable article",
				zap.String("pmid", strings.TrimSpace(pa.Citation.PMID)))
			continue
		}
		articles = append(articles, a)
	}
	return articles, skipped, nil
}

// convertArticle maps one decoded PubmedArticle onto the public record.
// A missing title is fatal for that article.
func convertArticle(pa pubmedArticle) (Article, bool) {
	mc := pa.Citation
	xa := mc.Article

	title := strings.TrimSpace(xa.ArticleTitle)
	if title == "" {
		return Article{}, false
	}

	a := Article{
		PMID:                strings.TrimSpace(mc.PMID),
		Title:               title,
		Journal:             strings.TrimSpace(xa.Journal.Title),
		JournalAbbreviation: strings.TrimSpace(xa.Journal.ISOAbbreviation),
		PubDate:             formatPubDate(xa.Journal.JournalIssue.PubDate),
		Volume:              strings.TrimSpace(xa.Journal.JournalIssue.Volume),
		Issue:               strings.TrimSpace(xa.Journal.JournalIssue.Issue),
		Pages:               strings.TrimSpace(xa.Pagination.MedlinePgn),
	}

	if len(xa.Journal.ISSNs) > 0 {
		a.ISSN = strings.TrimSpace(xa.Journal.ISSNs[0].Value)
	}
	if len(xa.Language) > 0 {
		a.Language = strings.TrimSpace(xa.Language[0])
	}

	for _, el := range xa.ELocationIDs {
		if el.EIdType == "doi" && strings.TrimSpace(el.Value) != "" {
			a.DOI = strings.TrimSpace(el.Value)
			break
		}
	}
	for _, aid := range pa.PubmedData.ArticleIDList.ArticleIDs {
		switch aid.IDType {
		case "doi":
			if a.DOI == "" {
				a.DOI = strings.TrimSpace(aid.Value)
			}
		case "pmc":
			a.PMCID = strings.TrimSpace(aid.Value)
		}
	}

	a.AbstractText, a.StructuredAbstract = convertAbstract(xa.Abstract)

	for _, pt := range xa.PublicationTypeList.Types {
		if name := strings.TrimSpace(pt.Name); name != "" {
			a.ArticleTypes = append(a.ArticleTypes, name)
		}
	}

	for _, au := range xa.AuthorList.Authors {
		if author, ok := convertAuthor(au); ok {
			a.Authors = append(a.Authors, author)
		}
	}
	a.AuthorCount = len(a.Authors)

	for _, mh := range mc.MeshHeadingList.MeshHeadings {
		term := MeshTerm{
			DescriptorName: strings.TrimSpace(mh.Descriptor.Name),
			DescriptorUI:   mh.Descriptor.UI,
			MajorTopic:     mh.Descriptor.MajorTopic == "Y",
		}
		for _, q := range mh.Qualifiers {
			term.Qualifiers = append(term.Qualifiers, MeshQualifier{
				QualifierName: strings.TrimSpace(q.Name),
				QualifierUI:   q.UI,
				MajorTopic:    q.MajorTopic == "Y",
			})
		}
		a.MeshHeadings = append(a.MeshHeadings, term)
	}
	for _, s := range mc.SupplMeshList.Names {
		if s = strings.TrimSpace(s); s != "" {
			a.SupplementalTerms = append(a.SupplementalTerms, s)
		}
	}

	for _, ch := range mc.ChemicalList.Chemicals {
		chem := Chemical{
			Name: strings.TrimSpace(ch.NameOfSubstance.Name),
			UI:   ch.NameOfSubstance.UI,
		}
		if chem.Name == "" {
			continue
		}
		if rn := strings.TrimSpace(ch.RegistryNumber); rn != "" && rn != "0" {
			chem.RegistryNumber = rn
		}
		a.ChemicalList = append(a.ChemicalList, chem)
	}

	for _, kl := range mc.KeywordLists {
		for _, kw := range kl.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				a.Keywords = append(a.Keywords, kw)
			}
		}
	}

	return a, true
}

// formatPubDate prefers the free-form MedlineDate verbatim; otherwise it
// joins Year, Month, and Day with spaces.
func formatPubDate(pd xmlPubDate) string {
	if md := strings.TrimSpace(pd.MedlineDate); md != "" {
		return md
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{pd.Year, pd.Month, pd.Day} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// convertAbstract joins every AbstractText body with single spaces; labeled
// entries additionally produce the structured form, in document order.
func convertAbstract(ab xmlAbstract) (string, []AbstractSection) {
	if len(ab.AbstractTexts) == 0 {
		return "", nil
	}
	var parts []string
	var sections []AbstractSection
	labeled := false
	for _, at := range ab.AbstractTexts {
		text := strings.TrimSpace(at.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		sections = append(sections, AbstractSection{Label: at.Label, Text: text})
		if at.Label != "" {
			labeled = true
		}
	}
	full := strings.Join(parts, " ")
	if !labeled {
		return full, nil
	}
	return full, sections
}

// convertAuthor maps one Author element. Collective names pass through as a
// single name; personal names compute FullName by the first nonempty of
// "Fore Last", "Initials Last", "Last", "Fore". Authors with no usable name
// (or the literal "Unknown Author") are dropped.
func convertAuthor(au xmlAuthor) (Author, bool) {
	if au.ValidYN == "N" {
		return Author{}, false
	}

	if cn := strings.TrimSpace(au.CollectiveName); cn != "" {
		a := Author{CollectiveName: cn, FullName: cn}
		attachAuthorDetails(&a, au)
		return a, true
	}

	last := strings.TrimSpace(au.LastName)
	fore := strings.TrimSpace(au.ForeName)
	initials := strings.TrimSpace(au.Initials)

	var full string
	switch {
	case fore != "" && last != "":
		full = fore + " " + last
	case initials != "" && last != "":
		full = initials + " " + last
	case last != "":
		full = last
	case fore != "":
		full = fore
	}
	if full == "" || full == "Unknown Author" {
		return Author{}, false
	}

	a := Author{
		LastName: last,
		ForeName: fore,
		Initials: initials,
		Suffix:   strings.TrimSpace(au.Suffix),
		FullName: full,
	}
	attachAuthorDetails(&a, au)
	return a, true
}

func attachAuthorDetails(a *Author, au xmlAuthor) {
	for _, id := range au.Identifiers {
		if strings.EqualFold(id.Source, "ORCID") {
			a.ORCID = strings.TrimSpace(id.Value)
			break
		}
	}
	for _, ai := range au.AffiliationInfo {
		if strings.TrimSpace(ai.Affiliation) == "" {
			continue
		}
		a.Affiliations = append(a.Affiliations, parseAffiliation(ai.Affiliation))
	}
}

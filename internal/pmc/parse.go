package pmc

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/pcrowe/entrez-go/internal/xmlutil"
)

// parseArticle extracts a FullTextArticle from a JATS document. The scan is
// substring-based: JATS in the wild varies by journal and tolerates
// malformations that break strict decoders, and extraction is read-only.
func parseArticle(doc string) *FullTextArticle {
	p := &jatsParser{doc: doc}
	return p.parse()
}

type jatsParser struct {
	doc      string
	figSeq   int
	tableSeq int
}

func (p *jatsParser) parse() *FullTextArticle {
	front := firstBlockOr(p.doc, "front", p.doc)
	articleMeta := firstBlockOr(front, "article-meta", front)
	journalMeta := firstBlockOr(front, "journal-meta", front)

	a := &FullTextArticle{
		Title:       extractOr(articleMeta, "article-title", "Unknown Title"),
		Journal:     parseJournal(journalMeta, articleMeta),
		PubDate:     parsePubDate(articleMeta),
		ArticleType: p.articleType(articleMeta),
	}

	for _, block := range xmlutil.FindTagBlocks(articleMeta, "article-id") {
		value := xmlutil.StripTags(xmlutil.InnerContent(block, "article-id"))
		switch xmlutil.Attr(block, "pub-id-type") {
		case "doi":
			if a.DOI == "" {
				a.DOI = value
			}
		case "pmid":
			if a.PMID == "" {
				a.PMID = value
			}
		}
	}

	for _, group := range xmlutil.FindTagBlocks(articleMeta, "kwd-group") {
		a.Keywords = append(a.Keywords, xmlutil.ExtractAll(group, "kwd")...)
	}

	for _, group := range xmlutil.FindTagBlocks(articleMeta, "contrib-group") {
		for _, contrib := range xmlutil.FindTagBlocks(group, "contrib") {
			if c, ok := parseContributor(contrib); ok {
				a.Authors = append(a.Authors, c)
			}
		}
	}

	a.Funding = parseFunding(front)
	a.ConflictOfInterest = parseConflict(p.doc)
	if ack, ok := xmlutil.ExtractTag(p.doc, "ack"); ok {
		a.Acknowledgments = xmlutil.CollapseWhitespace(ack)
	}
	a.DataAvailability = parseDataAvailability(p.doc)

	a.Sections = p.parseSections(front)
	a.References = parseReferences(p.doc)
	a.SupplementaryMaterials = parseSupplementary(p.doc)
	return a
}

func firstBlockOr(doc, tag, fallback string) string {
	if b, ok := firstBlock(doc, tag); ok {
		return b
	}
	return fallback
}

func extractOr(doc, tag, fallback string) string {
	if v, ok := xmlutil.ExtractTag(doc, tag); ok && v != "" {
		return v
	}
	return fallback
}

func parseJournal(journalMeta, articleMeta string) JournalInfo {
	j := JournalInfo{
		Volume: extractOr(articleMeta, "volume", ""),
		Issue:  extractOr(articleMeta, "issue", ""),
	}
	j.Title, _ = xmlutil.ExtractTag(journalMeta, "journal-title")
	j.Publisher, _ = xmlutil.ExtractTag(journalMeta, "publisher-name")
	if b, ok := xmlutil.FindTagBlockWithAttr(journalMeta, "journal-id", "journal-id-type", "iso-abbrev"); ok {
		j.Abbreviation = xmlutil.StripTags(xmlutil.InnerContent(b, "journal-id"))
	}
	if b, ok := xmlutil.FindTagBlockWithAttr(journalMeta, "issn", "pub-type", "epub"); ok {
		j.ISSNElectronic = xmlutil.StripTags(xmlutil.InnerContent(b, "issn"))
	}
	if b, ok := xmlutil.FindTagBlockWithAttr(journalMeta, "issn", "pub-type", "ppub"); ok {
		j.ISSNPrint = xmlutil.StripTags(xmlutil.InnerContent(b, "issn"))
	}
	return j
}

// parsePubDate renders the first pub-date as YYYY-MM-DD, YYYY-MM, or YYYY
// depending on which parts are present. A missing year is "Unknown Date".
func parsePubDate(articleMeta string) string {
	block := firstBlockOr(articleMeta, "pub-date", articleMeta)
	year, _ := xmlutil.ExtractTag(block, "year")
	if year == "" {
		return "Unknown Date"
	}
	out := year
	month, _ := xmlutil.ExtractTag(block, "month")
	if month == "" {
		return out
	}
	out += "-" + padDatePart(month)
	day, _ := xmlutil.ExtractTag(block, "day")
	if day != "" {
		out += "-" + padDatePart(day)
	}
	return out
}

func padDatePart(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return fmt.Sprintf("%02d", n)
	}
	return s
}

// articleType reads the article-type attribute from the root element, then
// falls back to the first subject heading.
func (p *jatsParser) articleType(articleMeta string) string {
	for i := 0; i < len(p.doc); {
		idx := strings.Index(p.doc[i:], "<article")
		if idx < 0 {
			break
		}
		idx += i
		after := idx + len("<article")
		if after < len(p.doc) && (p.doc[after] == ' ' || p.doc[after] == '>' || p.doc[after] == '\t' || p.doc[after] == '\n') {
			if t := xmlutil.Attr(p.doc[idx:], "article-type"); t != "" {
				return t
			}
			break
		}
		i = idx + 1
	}
	if subject, ok := xmlutil.ExtractTag(articleMeta, "subject"); ok {
		return subject
	}
	return ""
}

func parseContributor(block string) (Contributor, bool) {
	c := Contributor{
		IsCorresponding: xmlutil.Attr(block, "corresp") == "yes",
		Roles:           xmlutil.ExtractAll(block, "role"),
	}
	c.Surname, _ = xmlutil.ExtractTag(block, "surname")
	// A self-closing <given-names/> extracts as empty, i.e. absent.
	c.GivenNames, _ = xmlutil.ExtractTag(block, "given-names")
	c.Email, _ = xmlutil.ExtractTag(block, "email")
	c.ORCID = extractORCID(block)
	if c.Surname == "" && c.GivenNames == "" {
		return Contributor{}, false
	}
	return c, true
}

// extractORCID pulls the identifier out of any orcid.org URL in the block.
func extractORCID(block string) string {
	idx := strings.Index(block, "orcid.org/")
	if idx < 0 {
		return ""
	}
	rest := block[idx+len("orcid.org/"):]
	end := 0
	for end < len(rest) {
		ch := rest[end]
		if ch == '"' || ch == '\'' || ch == '<' || ch == ' ' || ch == '\n' || ch == '\t' {
			break
		}
		end++
	}
	return strings.TrimRight(rest[:end], "/")
}

func parseFunding(front string) []FundingInfo {
	var funding []FundingInfo
	for _, group := range xmlutil.FindTagBlocks(front, "award-group") {
		info := FundingInfo{}
		info.Source, _ = xmlutil.ExtractTag(group, "funding-source")
		info.AwardID, _ = xmlutil.ExtractTag(group, "award-id")
		if info.Source == "" && info.AwardID == "" {
			continue
		}
		funding = append(funding, info)
	}
	if statement, ok := xmlutil.ExtractTag(front, "funding-statement"); ok && statement != "" {
		if len(funding) > 0 {
			funding[0].Statement = statement
		} else {
			funding = append(funding, FundingInfo{Source: "General Funding", Statement: statement})
		}
	}
	return funding
}

func parseConflict(doc string) string {
	for _, fnType := range []string{"COI-statement", "conflict"} {
		if b, ok := xmlutil.FindTagBlockWithAttr(doc, "fn", "fn-type", fnType); ok {
			return xmlutil.CollapseWhitespace(xmlutil.StripTags(xmlutil.InnerContent(b, "fn")))
		}
	}
	if notes, ok := firstBlock(doc, "author-notes"); ok {
		for _, fn := range xmlutil.FindTagBlocks(notes, "fn") {
			text := xmlutil.CollapseWhitespace(xmlutil.StripTags(xmlutil.InnerContent(fn, "fn")))
			lower := strings.ToLower(text)
			if strings.Contains(lower, "conflict") || strings.Contains(lower, "competing") {
				return text
			}
		}
	}
	return ""
}

func parseDataAvailability(doc string) string {
	if b, ok := xmlutil.FindTagBlockWithAttr(doc, "sec", "sec-type", "data-availability"); ok {
		return xmlutil.CollapseWhitespace(xmlutil.StripTags(xmlutil.InnerContent(b, "sec")))
	}
	for _, b := range xmlutil.FindTagBlocks(doc, "supplementary-material") {
		text := xmlutil.CollapseWhitespace(xmlutil.StripTags(xmlutil.InnerContent(b, "supplementary-material")))
		if strings.Contains(strings.ToLower(text), "data") {
			return text
		}
	}
	return ""
}

// parseSections builds the ordered section tree: a synthetic abstract
// section first, then the body's top-level <sec> blocks recursively. A body
// without <sec> elements collapses into a single synthetic section.
func (p *jatsParser) parseSections(front string) []Section {
	var sections []Section

	if abstract, ok := firstBlock(front, "abstract"); ok {
		text := xmlutil.CollapseWhitespace(xmlutil.StripTags(xmlutil.InnerContent(abstract, "abstract")))
		if text != "" {
			sections = append(sections, Section{Type: "abstract", Title: "Abstract", Content: text})
		}
	}

	body, ok := firstBlock(p.doc, "body")
	if !ok {
		return sections
	}
	inner := xmlutil.InnerContent(body, "body")

	secs := xmlutil.FindTagBlocks(inner, "sec")
	if len(secs) == 0 {
		if s, ok := p.syntheticBody(inner); ok {
			sections = append(sections, s)
		}
		return sections
	}
	for _, sec := range secs {
		if s, ok := p.parseSection(sec); ok {
			sections = append(sections, s)
		}
	}
	return sections
}

// parseSection converts one <sec> block, recursing into nested sections.
// Nested blocks are removed from the local text before paragraph and title
// extraction so content is attributed to exactly one section.
func (p *jatsParser) parseSection(block string) (Section, bool) {
	s := Section{
		Type: xmlutil.Attr(block, "sec-type"),
		ID:   xmlutil.Attr(block, "id"),
	}
	if s.Type == "" {
		s.Type = "section"
	}

	local := xmlutil.InnerContent(block, "sec")
	for _, nested := range xmlutil.FindTagBlocks(local, "sec") {
		if sub, ok := p.parseSection(nested); ok {
			s.Subsections = append(s.Subsections, sub)
		}
		local = strings.Replace(local, nested, "", 1)
	}

	local, s.Figures = p.extractFigures(local)
	local, s.Tables = p.extractTables(local)

	s.Title, _ = xmlutil.ExtractTag(local, "title")
	s.Content = joinParagraphs(local)

	if s.Content == "" && len(s.Subsections) == 0 && len(s.Figures) == 0 && len(s.Tables) == 0 {
		return Section{}, false
	}
	return s, true
}

// syntheticBody gathers a section-less body into one "Main Content" node.
func (p *jatsParser) syntheticBody(inner string) (Section, bool) {
	s := Section{Type: "body", Title: "Main Content"}
	inner, s.Figures = p.extractFigures(inner)
	inner, s.Tables = p.extractTables(inner)
	s.Content = joinParagraphs(inner)
	if s.Content == "" && len(s.Figures) == 0 && len(s.Tables) == 0 {
		return Section{}, false
	}
	return s, true
}

func joinParagraphs(fragment string) string {
	var paras []string
	for _, b := range xmlutil.FindTagBlocks(fragment, "p") {
		if text := xmlutil.CollapseWhitespace(xmlutil.StripTags(xmlutil.InnerContent(b, "p"))); text != "" {
			paras = append(paras, text)
		}
	}
	return strings.Join(paras, "\n")
}

// extractFigures removes every <fig> from the fragment and returns both.
// Missing ids are synthesized as fig_<n> in document order.
func (p *jatsParser) extractFigures(fragment string) (string, []Figure) {
	var figures []Figure
	for _, b := range xmlutil.FindTagBlocks(fragment, "fig") {
		fig := Figure{
			ID:      xmlutil.Attr(b, "id"),
			FigType: xmlutil.Attr(b, "fig-type"),
		}
		if fig.ID == "" {
			p.figSeq++
			fig.ID = fmt.Sprintf("fig_%d", p.figSeq)
		}
		fig.Label, _ = xmlutil.ExtractTag(b, "label")
		if caption, ok := xmlutil.ExtractTag(b, "caption"); ok && caption != "" {
			fig.Caption = xmlutil.CollapseWhitespace(caption)
		} else {
			fig.Caption = "No caption available"
		}
		fig.AltText, _ = xmlutil.ExtractTag(b, "alt-text")
		figures = append(figures, fig)
		fragment = strings.Replace(fragment, b, "", 1)
	}
	return fragment, figures
}

// extractTables removes every <table-wrap> from the fragment and returns
// both. Missing ids are synthesized as table_<n>.
func (p *jatsParser) extractTables(fragment string) (string, []Table) {
	var tables []Table
	for _, b := range xmlutil.FindTagBlocks(fragment, "table-wrap") {
		tbl := Table{ID: xmlutil.Attr(b, "id")}
		if tbl.ID == "" {
			p.tableSeq++
			tbl.ID = fmt.Sprintf("table_%d", p.tableSeq)
		}
		tbl.Label, _ = xmlutil.ExtractTag(b, "label")
		if caption, ok := xmlutil.ExtractTag(b, "caption"); ok {
			tbl.Caption = xmlutil.CollapseWhitespace(caption)
		}
		for _, foot := range xmlutil.FindTagBlocks(b, "table-wrap-foot") {
			if text := xmlutil.CollapseWhitespace(xmlutil.StripTags(xmlutil.InnerContent(foot, "table-wrap-foot"))); text != "" {
				tbl.Footnotes = append(tbl.Footnotes, text)
			}
		}
		tables = append(tables, tbl)
		fragment = strings.Replace(fragment, b, "", 1)
	}
	return fragment, tables
}

func parseReferences(doc string) []Reference {
	refList, ok := firstBlock(doc, "ref-list")
	if !ok {
		return nil
	}

	var refs []Reference
	for _, b := range xmlutil.FindTagBlocks(refList, "ref") {
		ref := Reference{ID: xmlutil.Attr(b, "id")}
		if citation, ok := firstBlock(b, "element-citation"); ok {
			ref.RefType = xmlutil.Attr(citation, "publication-type")
		}
		ref.Title, _ = xmlutil.ExtractTag(b, "article-title")
		ref.Source, _ = xmlutil.ExtractTag(b, "source")
		ref.Year, _ = xmlutil.ExtractTag(b, "year")
		ref.Volume, _ = xmlutil.ExtractTag(b, "volume")
		ref.Issue, _ = xmlutil.ExtractTag(b, "issue")
		ref.Pages = formatPages(b)

		for _, pubID := range xmlutil.FindTagBlocks(b, "pub-id") {
			value := xmlutil.StripTags(xmlutil.InnerContent(pubID, "pub-id"))
			switch xmlutil.Attr(pubID, "pub-id-type") {
			case "doi":
				ref.DOI = value
			case "pmid":
				ref.PMID = value
			}
		}
		for _, name := range xmlutil.FindTagBlocks(b, "name") {
			author := RefAuthor{}
			author.Surname, _ = xmlutil.ExtractTag(name, "surname")
			author.GivenNames, _ = xmlutil.ExtractTag(name, "given-names")
			if author.Surname != "" || author.GivenNames != "" {
				ref.Authors = append(ref.Authors, author)
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

// formatPages renders fpage-lpage when both exist, fpage alone otherwise.
// An lpage without fpage yields nothing.
func formatPages(block string) string {
	fpage, _ := xmlutil.ExtractTag(block, "fpage")
	if fpage == "" {
		return ""
	}
	lpage, _ := xmlutil.ExtractTag(block, "lpage")
	if lpage != "" {
		return fpage + "-" + lpage
	}
	return fpage
}

func parseSupplementary(doc string) []SupplementaryMaterial {
	var mats []SupplementaryMaterial
	for _, b := range xmlutil.FindTagBlocks(doc, "supplementary-material") {
		media, ok := firstBlock(b, "media")
		if !ok {
			continue
		}
		href := xmlutil.Attr(media, "xlink:href")
		if href == "" {
			href = xmlutil.Attr(media, "href")
		}
		if href == "" {
			continue
		}

		mat := SupplementaryMaterial{
			ID:          xmlutil.Attr(b, "id"),
			ContentType: xmlutil.Attr(b, "content-type"),
			Position:    xmlutil.Attr(b, "position"),
			FileURL:     href,
			FileType:    fileTypeFromURL(href),
		}
		if mat.ID == "" {
			h := fnv.New32a()
			h.Write([]byte(b))
			mat.ID = fmt.Sprintf("supp_%08x", h.Sum32())
		}
		mat.Title, _ = xmlutil.ExtractTag(b, "title")
		if caption, ok := xmlutil.ExtractTag(b, "caption"); ok {
			mat.Description = xmlutil.CollapseWhitespace(caption)
		}
		mats = append(mats, mat)
	}
	return mats
}

func fileTypeFromURL(href string) string {
	idx := strings.LastIndexByte(href, '.')
	if idx < 0 || idx == len(href)-1 {
		return ""
	}
	ext := href[idx+1:]
	if strings.ContainsAny(ext, "/?#") {
		return ""
	}
	return strings.ToLower(ext)
}

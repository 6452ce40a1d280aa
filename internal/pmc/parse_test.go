package pmc

import (
	"strings"
	"testing"
)

const jatsFixture = `<?xml version="1.0" ?>
<article article-type="research-article" xmlns:xlink="http://www.w3.org/1999/xlink">
<front>
  <journal-meta>
    <journal-id journal-id-type="iso-abbrev">Nat. Commun.</journal-id>
    <journal-title-group><journal-title>Nature Communications</journal-title></journal-title-group>
    <issn pub-type="epub">2041-1723</issn>
    <publisher><publisher-name>Nature Publishing Group</publisher-name></publisher>
  </journal-meta>
  <article-meta>
    <article-id pub-id-type="pmid">33515491</article-id>
    <article-id pub-id-type="doi">10.1038/s41467-021-21111-9</article-id>
    <title-group><article-title>Genomic surveillance of emerging variants</article-title></title-group>
    <contrib-group>
      <contrib contrib-type="author" corresp="yes">
        <contrib-id contrib-id-type="orcid">https://orcid.org/0000-0002-1825-0097</contrib-id>
        <name><surname>Rivera</surname><given-names>Maria</given-names></name>
        <role>Conceptualization</role>
        <email>m.rivera@example.org</email>
      </contrib>
      <contrib contrib-type="author">
        <name><surname>Chen</surname><given-names/></name>
      </contrib>
    </contrib-group>
    <author-notes>
      <fn fn-type="COI-statement"><p>The authors declare no competing interests.</p></fn>
    </author-notes>
    <pub-date pub-type="epub"><day>5</day><month>2</month><year>2021</year></pub-date>
    <volume>12</volume>
    <issue>1</issue>
    <kwd-group><kwd>genomics</kwd><kwd>surveillance</kwd></kwd-group>
    <funding-group>
      <award-group>
        <funding-source>Wellcome Trust</funding-source>
        <award-id>206298/Z/17/Z</award-id>
      </award-group>
      <funding-statement>This work was supported by the Wellcome Trust.</funding-statement>
    </funding-group>
    <abstract><p>Sequencing at scale enables <italic>rapid</italic> variant tracking.</p></abstract>
  </article-meta>
</front>
<body>
  <sec id="s1" sec-type="intro">
    <title>Introduction</title>
    <p>Genomic surveillance has become central to outbreak response.</p>
    <p>We describe a national programme.</p>
    <fig id="f1" fig-type="chart">
      <label>Figure 1</label>
      <caption><title>Sampling map</title><p>Geographic distribution of samples.</p></caption>
      <alt-text>Map of sampling sites</alt-text>
      <graphic xlink:href="fig1.svg"/>
    </fig>
  </sec>
  <sec id="s2" sec-type="methods">
    <title>Methods</title>
    <sec id="s2a">
      <title>Sample collection</title>
      <p>Swabs were collected weekly.</p>
      <sec id="s2a1">
        <title>Ethics</title>
        <p>Approved by the review board.</p>
      </sec>
    </sec>
    <fig><caption><p>Pipeline overview.</p></caption></fig>
    <fig><caption><p>Quality thresholds.</p></caption></fig>
    <table-wrap id="t1">
      <label>Table 1</label>
      <caption><p>Primer sequences.</p></caption>
      <table><tr><td>x</td></tr></table>
      <table-wrap-foot><p>All positions relative to the reference.</p></table-wrap-foot>
    </table-wrap>
  </sec>
  <sec id="s3"><title>Empty shell</title></sec>
</body>
<back>
  <ack><title>Acknowledgements</title><p>We thank the sequencing teams.</p></ack>
  <ref-list>
    <ref id="r1">
      <element-citation publication-type="journal">
        <name><surname>Smith</surname><given-names>J</given-names></name>
        <article-title>Earlier surveillance efforts</article-title>
        <source>Lancet</source>
        <year>2019</year>
        <volume>394</volume>
        <fpage>100</fpage>
        <lpage>110</lpage>
        <pub-id pub-id-type="doi">10.1016/x</pub-id>
        <pub-id pub-id-type="pmid">31000000</pub-id>
      </element-citation>
    </ref>
    <ref id="r2">
      <element-citation publication-type="book">
        <source>Field Epidemiology</source>
        <year>2008</year>
        <lpage>300</lpage>
      </element-citation>
    </ref>
  </ref-list>
  <supplementary-material id="supp1" content-type="local-data" position="float">
    <title>Supplementary Data 1</title>
    <caption><p>Raw variant counts underlying all figures.</p></caption>
    <media xlink:href="41467_2021_21111_MOESM1_ESM.xlsx"/>
  </supplementary-material>
  <supplementary-material id="supp2">
    <title>Orphan supplement</title>
    <caption><p>No file attached.</p></caption>
  </supplementary-material>
</back>
</article>`

func TestParseArticleMetadata(t *testing.T) {
	a := parseArticle(jatsFixture)

	if a.Title != "Genomic surveillance of emerging variants" {
		t.Errorf("title = %q", a.Title)
	}
	if a.PMID != "33515491" || a.DOI != "10.1038/s41467-021-21111-9" {
		t.Errorf("ids: pmid=%q doi=%q", a.PMID, a.DOI)
	}
	if a.ArticleType != "research-article" {
		t.Errorf("article type = %q", a.ArticleType)
	}
	if a.PubDate != "2021-02-05" {
		t.Errorf("pub date = %q, want 2021-02-05", a.PubDate)
	}

	j := a.Journal
	if j.Title != "Nature Communications" || j.Abbreviation != "Nat. Commun." {
		t.Errorf("journal = %+v", j)
	}
	if j.ISSNElectronic != "2041-1723" || j.Publisher != "Nature Publishing Group" {
		t.Errorf("journal = %+v", j)
	}
	if j.Volume != "12" || j.Issue != "1" {
		t.Errorf("volume/issue = %q/%q", j.Volume, j.Issue)
	}

	if len(a.Keywords) != 2 || a.Keywords[0] != "genomics" {
		t.Errorf("keywords = %v", a.Keywords)
	}
	if a.ConflictOfInterest != "The authors declare no competing interests." {
		t.Errorf("coi = %q", a.ConflictOfInterest)
	}
	if !strings.Contains(a.Acknowledgments, "sequencing teams") {
		t.Errorf("ack = %q", a.Acknowledgments)
	}
}

func TestParseArticleAuthors(t *testing.T) {
	a := parseArticle(jatsFixture)
	if len(a.Authors) != 2 {
		t.Fatalf("got %d authors, want 2", len(a.Authors))
	}

	first := a.Authors[0]
	if first.Surname != "Rivera" || first.GivenNames != "Maria" {
		t.Errorf("first author = %+v", first)
	}
	if first.ORCID != "0000-0002-1825-0097" {
		t.Errorf("orcid = %q", first.ORCID)
	}
	if first.Email != "m.rivera@example.org" || !first.IsCorresponding {
		t.Errorf("first author = %+v", first)
	}
	if len(first.Roles) != 1 || first.Roles[0] != "Conceptualization" {
		t.Errorf("roles = %v", first.Roles)
	}

	// Self-closing given-names reads as absent.
	second := a.Authors[1]
	if second.Surname != "Chen" || second.GivenNames != "" || second.IsCorresponding {
		t.Errorf("second author = %+v", second)
	}
}

func TestParseArticleSectionTree(t *testing.T) {
	a := parseArticle(jatsFixture)

	// Abstract first, then the two nonempty body sections; the empty shell
	// section is dropped.
	if len(a.Sections) != 3 {
		t.Fatalf("got %d sections, want 3: %+v", len(a.Sections), a.Sections)
	}
	abstract := a.Sections[0]
	if abstract.Type != "abstract" || abstract.Title != "Abstract" {
		t.Errorf("abstract section = %+v", abstract)
	}
	if !strings.Contains(abstract.Content, "rapid variant tracking") {
		t.Errorf("abstract content = %q", abstract.Content)
	}

	intro := a.Sections[1]
	if intro.Type != "intro" || intro.ID != "s1" || intro.Title != "Introduction" {
		t.Errorf("intro = %+v", intro)
	}
	wantIntro := "Genomic surveillance has become central to outbreak response.\nWe describe a national programme."
	if intro.Content != wantIntro {
		t.Errorf("intro content = %q", intro.Content)
	}
	if len(intro.Figures) != 1 || intro.Figures[0].ID != "f1" {
		t.Fatalf("intro figures = %+v", intro.Figures)
	}
	fig := intro.Figures[0]
	if fig.Label != "Figure 1" || fig.AltText != "Map of sampling sites" || fig.FigType != "chart" {
		t.Errorf("figure = %+v", fig)
	}
	if !strings.Contains(fig.Caption, "Geographic distribution") {
		t.Errorf("caption = %q", fig.Caption)
	}

	methods := a.Sections[2]
	if methods.ID != "s2" || methods.Type != "methods" || methods.Title != "Methods" {
		t.Errorf("methods = %+v", methods)
	}
	// Three levels of nesting.
	if len(methods.Subsections) != 1 {
		t.Fatalf("methods subsections = %+v", methods.Subsections)
	}
	collection := methods.Subsections[0]
	if collection.ID != "s2a" || collection.Title != "Sample collection" {
		t.Errorf("subsection = %+v", collection)
	}
	if len(collection.Subsections) != 1 || collection.Subsections[0].Title != "Ethics" {
		t.Errorf("nested subsection = %+v", collection.Subsections)
	}

	// Figures lacking ids synthesize fig_1, fig_2 in order.
	if len(methods.Figures) != 2 {
		t.Fatalf("methods figures = %+v", methods.Figures)
	}
	if methods.Figures[0].ID != "fig_1" || methods.Figures[1].ID != "fig_2" {
		t.Errorf("synthesized ids = %q, %q", methods.Figures[0].ID, methods.Figures[1].ID)
	}

	if len(methods.Tables) != 1 {
		t.Fatalf("methods tables = %+v", methods.Tables)
	}
	tbl := methods.Tables[0]
	if tbl.ID != "t1" || tbl.Label != "Table 1" {
		t.Errorf("table = %+v", tbl)
	}
	if len(tbl.Footnotes) != 1 || !strings.Contains(tbl.Footnotes[0], "reference") {
		t.Errorf("footnotes = %v", tbl.Footnotes)
	}
}

func TestParseArticleReferences(t *testing.T) {
	a := parseArticle(jatsFixture)
	if len(a.References) != 2 {
		t.Fatalf("got %d references, want 2", len(a.References))
	}

	r1 := a.References[0]
	if r1.ID != "r1" || r1.RefType != "journal" {
		t.Errorf("ref = %+v", r1)
	}
	if r1.Title != "Earlier surveillance efforts" || r1.Source != "Lancet" || r1.Year != "2019" {
		t.Errorf("ref = %+v", r1)
	}
	if r1.Pages != "100-110" {
		t.Errorf("pages = %q, want 100-110", r1.Pages)
	}
	if r1.DOI != "10.1016/x" || r1.PMID != "31000000" {
		t.Errorf("ref ids = %+v", r1)
	}
	if len(r1.Authors) != 1 || r1.Authors[0].Surname != "Smith" {
		t.Errorf("ref authors = %+v", r1.Authors)
	}

	// lpage without fpage emits no page range.
	if a.References[1].Pages != "" {
		t.Errorf("pages = %q, want empty", a.References[1].Pages)
	}
}

func TestParseArticleSupplementary(t *testing.T) {
	a := parseArticle(jatsFixture)
	// The material without <media> is discarded.
	if len(a.SupplementaryMaterials) != 1 {
		t.Fatalf("got %d materials, want 1: %+v", len(a.SupplementaryMaterials), a.SupplementaryMaterials)
	}
	m := a.SupplementaryMaterials[0]
	if m.ID != "supp1" || m.ContentType != "local-data" || m.Position != "float" {
		t.Errorf("material = %+v", m)
	}
	if m.FileURL != "41467_2021_21111_MOESM1_ESM.xlsx" || m.FileType != "xlsx" {
		t.Errorf("file = %q type = %q", m.FileURL, m.FileType)
	}
	if m.Title != "Supplementary Data 1" || !strings.Contains(m.Description, "variant counts") {
		t.Errorf("material = %+v", m)
	}
}

func TestParseArticleFunding(t *testing.T) {
	a := parseArticle(jatsFixture)
	if len(a.Funding) != 1 {
		t.Fatalf("funding = %+v", a.Funding)
	}
	f := a.Funding[0]
	if f.Source != "Wellcome Trust" || f.AwardID != "206298/Z/17/Z" {
		t.Errorf("funding = %+v", f)
	}
	// The statement attaches to the existing entry.
	if !strings.Contains(f.Statement, "supported by the Wellcome Trust") {
		t.Errorf("statement = %q", f.Statement)
	}
}

func TestParseArticleSyntheticFunding(t *testing.T) {
	doc := `<article><front><article-meta>
		<title-group><article-title>T</article-title></title-group>
		<funding-group><funding-statement>Funded by institutional sources.</funding-statement></funding-group>
	</article-meta></front></article>`
	a := parseArticle(doc)
	if len(a.Funding) != 1 || a.Funding[0].Source != "General Funding" {
		t.Fatalf("funding = %+v", a.Funding)
	}
	if a.Funding[0].Statement != "Funded by institutional sources." {
		t.Errorf("statement = %q", a.Funding[0].Statement)
	}
}

func TestParseArticleFallbacks(t *testing.T) {
	doc := `<article><front><article-meta><pub-date><month>3</month></pub-date></article-meta></front>
	<body><p>Only loose paragraphs here.</p><fig id="fx"><caption><p>Loose figure.</p></caption></fig></body></article>`
	a := parseArticle(doc)

	if a.Title != "Unknown Title" {
		t.Errorf("title = %q, want Unknown Title", a.Title)
	}
	if a.PubDate != "Unknown Date" {
		t.Errorf("pub date = %q, want Unknown Date", a.PubDate)
	}

	// No <sec>: a single synthetic body section carries everything.
	if len(a.Sections) != 1 {
		t.Fatalf("sections = %+v", a.Sections)
	}
	s := a.Sections[0]
	if s.Type != "body" || s.Title != "Main Content" {
		t.Errorf("section = %+v", s)
	}
	if s.Content != "Only loose paragraphs here." {
		t.Errorf("content = %q", s.Content)
	}
	if len(s.Figures) != 1 || s.Figures[0].ID != "fx" {
		t.Errorf("figures = %+v", s.Figures)
	}
}

func TestParsePubDateGranularity(t *testing.T) {
	tests := []struct {
		meta string
		want string
	}{
		{`<pub-date><year>2021</year></pub-date>`, "2021"},
		{`<pub-date><year>2021</year><month>2</month></pub-date>`, "2021-02"},
		{`<pub-date><day>5</day><month>12</month><year>2021</year></pub-date>`, "2021-12-05"},
		{``, "Unknown Date"},
	}
	for _, tt := range tests {
		if got := parsePubDate(tt.meta); got != tt.want {
			t.Errorf("parsePubDate(%q) = %q, want %q", tt.meta, got, tt.want)
		}
	}
}

func TestFigureCaptionFallback(t *testing.T) {
	doc := `<article><body><sec id="s1"><title>S</title><p>x</p><fig id="f1"></fig></sec></body></article>`
	a := parseArticle(doc)
	if len(a.Sections) != 1 || len(a.Sections[0].Figures) != 1 {
		t.Fatalf("sections = %+v", a.Sections)
	}
	if got := a.Sections[0].Figures[0].Caption; got != "No caption available" {
		t.Errorf("caption = %q", got)
	}
}

// Package output renders results for the CLI: plain text by default,
// structured JSON, rich terminal output, and RIS export for citation
// managers.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pcrowe/entrez-go/internal/eutils"
	"github.com/pcrowe/entrez-go/internal/mesh"
	"github.com/pcrowe/entrez-go/internal/pmc"
)

// Config controls which output mode(s) are active.
type Config struct {
	JSON    bool   // structured JSON
	Human   bool   // rich terminal output with color
	Full    bool   // show full abstract (human mode)
	RISFile string // export articles to this RIS path, alongside any mode
}

// FormatSearchResult writes search results. articles may be non-nil when
// --human or --ris triggers an auto-fetch of record details.
func FormatSearchResult(w io.Writer, result *eutils.SearchResult, articles []eutils.Article, cfg Config) error {
	if cfg.RISFile != "" && len(articles) > 0 {
		if err := writeArticlesRIS(cfg.RISFile, articles); err != nil {
			return fmt.Errorf("RIS export failed: %w", err)
		}
	}
	if cfg.JSON {
		return writeJSON(w, result)
	}
	if cfg.Human {
		return formatSearchHuman(w, result, articles)
	}
	return formatSearchPlain(w, result)
}

// FormatArticles writes article details.
func FormatArticles(w io.Writer, articles []eutils.Article, cfg Config) error {
	if cfg.RISFile != "" {
		if err := writeArticlesRIS(cfg.RISFile, articles); err != nil {
			return fmt.Errorf("RIS export failed: %w", err)
		}
	}
	if cfg.JSON {
		return writeJSON(w, articles)
	}
	if cfg.Human {
		return formatArticlesHuman(w, articles, cfg.Full)
	}
	return formatArticlesPlain(w, articles)
}

// FormatSummaries writes condensed ESummary records.
func FormatSummaries(w io.Writer, summaries []eutils.Summary, cfg Config) error {
	if cfg.JSON {
		return writeJSON(w, summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No summaries found.")
		return nil
	}
	for i, s := range summaries {
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, s.PMID, s.Title)
		if len(s.Authors) > 0 {
			fmt.Fprintf(w, "   %s\n", strings.Join(s.Authors, ", "))
		}
		if s.Source != "" || s.PubDate != "" {
			fmt.Fprintf(w, "   %s %s\n", s.Source, s.PubDate)
		}
	}
	return nil
}

// FormatLinks writes the linked IDs of an ELink lookup.
func FormatLinks(w io.Writer, sourcePMID, linkType string, ids []string, cfg Config) error {
	if cfg.JSON {
		return writeJSON(w, map[string]any{
			"pmid":      sourcePMID,
			"link_type": linkType,
			"ids":       ids,
		})
	}
	if cfg.Human {
		return formatLinksHuman(w, sourcePMID, linkType, ids)
	}
	return formatLinksPlain(w, sourcePMID, linkType, ids)
}

// FormatMeSHRecord writes a MeSH descriptor record.
func FormatMeSHRecord(w io.Writer, record *mesh.Record, cfg Config) error {
	if cfg.JSON {
		return writeJSON(w, record)
	}
	if cfg.Human {
		return formatMeSHHuman(w, record)
	}
	return formatMeSHPlain(w, record)
}

// FormatSpellResult writes ESpell suggestions.
func FormatSpellResult(w io.Writer, result *eutils.SpellResult, cfg Config) error {
	if cfg.JSON {
		return writeJSON(w, result)
	}
	if !result.HasCorrections() {
		fmt.Fprintf(w, "No corrections for %q.\n", result.Query)
		return nil
	}
	fmt.Fprintf(w, "Did you mean: %s\n", result.CorrectedQuery)
	if len(result.Replacements) > 0 {
		fmt.Fprintf(w, "Replaced terms: %s\n", strings.Join(result.Replacements, ", "))
	}
	return nil
}

// FormatFullText writes a PMC full-text article: metadata, then the
// section tree as an indented outline with paragraph text.
func FormatFullText(w io.Writer, article *pmc.FullTextArticle, cfg Config) error {
	if cfg.JSON {
		return writeJSON(w, article)
	}
	if cfg.Human {
		return formatFullTextHuman(w, article, cfg.Full)
	}
	return formatFullTextPlain(w, article, cfg.Full)
}

// --- Plain text formatters (default) ---

func formatSearchPlain(w io.Writer, result *eutils.SearchResult) error {
	if result.TotalCount == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d results", result.TotalCount)
	if len(result.PMIDs) < result.TotalCount {
		fmt.Fprintf(w, " (showing %d)", len(result.PMIDs))
	}
	fmt.Fprintln(w)

	if result.QueryTranslation != "" {
		fmt.Fprintf(w, "Query: %s\n", result.QueryTranslation)
	}
	fmt.Fprintln(w)

	for i, id := range result.PMIDs {
		fmt.Fprintf(w, "  %d. PMID: %s\n", i+1, id)
	}
	return nil
}

func formatArticlesPlain(w io.Writer, articles []eutils.Article) error {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles found.")
		return nil
	}

	for i, a := range articles {
		if i > 0 {
			fmt.Fprintf(w, "\n%s\n\n", strings.Repeat("─", 80))
		}

		fmt.Fprintf(w, "PMID: %s\n", a.PMID)
		fmt.Fprintf(w, "Title: %s\n", a.Title)

		if len(a.Authors) > 0 {
			names := make([]string, len(a.Authors))
			for j, au := range a.Authors {
				names[j] = au.FullName
			}
			fmt.Fprintf(w, "Authors: %s\n", strings.Join(names, ", "))
		}

		fmt.Fprintf(w, "Journal: %s\n", citationLine(a))

		if a.DOI != "" {
			fmt.Fprintf(w, "DOI: %s\n", a.DOI)
		}
		if a.PMCID != "" {
			fmt.Fprintf(w, "PMCID: %s\n", a.PMCID)
		}
		if len(a.ArticleTypes) > 0 {
			fmt.Fprintf(w, "Type: %s\n", strings.Join(a.ArticleTypes, ", "))
		}
		if a.AbstractText != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Abstract:")
			fmt.Fprintln(w, a.AbstractText)
		}
		if len(a.MeshHeadings) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "MeSH Terms:")
			for _, m := range a.MeshHeadings {
				marker := "  "
				if m.MajorTopic {
					marker = "* "
				}
				term := m.DescriptorName
				if len(m.Qualifiers) > 0 {
					quals := make([]string, len(m.Qualifiers))
					for k, q := range m.Qualifiers {
						quals[k] = q.QualifierName
					}
					term += " / " + strings.Join(quals, ", ")
				}
				fmt.Fprintf(w, "  %s%s\n", marker, term)
			}
		}
	}
	return nil
}

func formatLinksPlain(w io.Writer, sourcePMID, linkType string, ids []string) error {
	if len(ids) == 0 {
		fmt.Fprintf(w, "No %s results for PMID %s.\n", linkType, sourcePMID)
		return nil
	}

	fmt.Fprintf(w, "%s for PMID %s (%d results):\n\n", linkTitle(linkType), sourcePMID, len(ids))
	for i, id := range ids {
		fmt.Fprintf(w, "  %d. %s\n", i+1, id)
	}
	return nil
}

func linkTitle(linkType string) string {
	switch linkType {
	case "cited-by":
		return "Cited By"
	case "related":
		return "Related Articles"
	case "pmc":
		return "PMC Full Text"
	}
	return linkType
}

func formatMeSHPlain(w io.Writer, record *mesh.Record) error {
	fmt.Fprintf(w, "MeSH Term: %s\n", record.Name)
	fmt.Fprintf(w, "UI: %s\n", record.UI)

	if len(record.TreeNumbers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tree Numbers:")
		for _, tn := range record.TreeNumbers {
			fmt.Fprintf(w, "  %s\n", tn)
		}
	}
	if record.ScopeNote != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Scope Note:")
		fmt.Fprintf(w, "  %s\n", record.ScopeNote)
	}
	if len(record.EntryTerms) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Entry Terms (synonyms):")
		for _, et := range record.EntryTerms {
			fmt.Fprintf(w, "  - %s\n", et)
		}
	}
	if record.Annotation != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Annotation: %s\n", record.Annotation)
	}
	return nil
}

func formatFullTextPlain(w io.Writer, article *pmc.FullTextArticle, full bool) error {
	fmt.Fprintf(w, "%s: %s\n", article.PMCID, article.Title)
	if article.Journal.Title != "" {
		fmt.Fprintf(w, "Journal: %s (%s)\n", article.Journal.Title, article.PubDate)
	}
	if article.DOI != "" {
		fmt.Fprintf(w, "DOI: %s\n", article.DOI)
	}
	if len(article.Authors) > 0 {
		names := make([]string, len(article.Authors))
		for i, c := range article.Authors {
			names[i] = strings.TrimSpace(c.GivenNames + " " + c.Surname)
		}
		fmt.Fprintf(w, "Authors: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(w)
	writeSectionsPlain(w, article.Sections, 0, full)

	if len(article.References) > 0 {
		fmt.Fprintf(w, "\nReferences: %d\n", len(article.References))
	}
	if len(article.SupplementaryMaterials) > 0 {
		fmt.Fprintln(w, "\nSupplementary materials:")
		for _, m := range article.SupplementaryMaterials {
			fmt.Fprintf(w, "  %s: %s\n", m.ID, m.FileURL)
		}
	}
	return nil
}

func writeSectionsPlain(w io.Writer, sections []pmc.Section, depth int, full bool) {
	indent := strings.Repeat("  ", depth)
	for _, s := range sections {
		title := s.Title
		if title == "" {
			title = s.Type
		}
		fmt.Fprintf(w, "%s## %s\n", indent, title)
		if s.Content != "" {
			content := s.Content
			if !full && len(content) > 300 {
				content = content[:297] + "..."
			}
			for _, line := range strings.Split(content, "\n") {
				fmt.Fprintf(w, "%s%s\n", indent, line)
			}
		}
		for _, fig := range s.Figures {
			fmt.Fprintf(w, "%s[figure %s] %s\n", indent, fig.ID, fig.Caption)
		}
		for _, tbl := range s.Tables {
			fmt.Fprintf(w, "%s[table %s] %s\n", indent, tbl.ID, tbl.Caption)
		}
		writeSectionsPlain(w, s.Subsections, depth+1, full)
	}
}

// citationLine renders "Journal Vol(Issue):Pages (Year)".
func citationLine(a eutils.Article) string {
	citation := a.Journal
	if a.Volume != "" {
		citation += " " + a.Volume
		if a.Issue != "" {
			citation += "(" + a.Issue + ")"
		}
	}
	if a.Pages != "" {
		citation += ":" + a.Pages
	}
	if y := pubYear(a.PubDate); y != "" {
		citation += " (" + y + ")"
	}
	return citation
}

// pubYear extracts the leading four-digit year of a free-form pub date.
func pubYear(pubDate string) string {
	fields := strings.Fields(pubDate)
	if len(fields) == 0 {
		return ""
	}
	y := fields[0]
	if len(y) < 4 {
		return ""
	}
	y = y[:4]
	for _, r := range y {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return y
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pcrowe/entrez-go/internal/eutils"
	"github.com/pcrowe/entrez-go/internal/mesh"
	"github.com/pcrowe/entrez-go/internal/pmc"
)

// --- Styles ---

var (
	cyan       = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	bold       = lipgloss.NewStyle().Bold(true)
	dim        = lipgloss.NewStyle().Faint(true)
	green      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellow     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	magenta    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
)

// truncate cuts a string to maxLen characters, appending "…" if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Headers(headers...).
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
			}
			return lipgloss.NewStyle()
		})
}

// --- Search ---

func formatSearchHuman(w io.Writer, result *eutils.SearchResult, articles []eutils.Article) error {
	if result.TotalCount == 0 {
		fmt.Fprintln(w, "🔬 No results found.")
		return nil
	}

	header := fmt.Sprintf("🔬 Found %d results", result.TotalCount)
	if len(result.PMIDs) < result.TotalCount {
		header += fmt.Sprintf(" (showing %d)", len(result.PMIDs))
	}
	fmt.Fprintln(w, bold.Render(header))

	if result.QueryTranslation != "" {
		fmt.Fprintf(w, "   Query: %s\n", dim.Render(result.QueryTranslation))
	}
	fmt.Fprintln(w)

	if len(articles) > 0 {
		byPMID := make(map[string]eutils.Article, len(articles))
		for _, a := range articles {
			byPMID[a.PMID] = a
		}

		var rows [][]string
		for _, id := range result.PMIDs {
			a, ok := byPMID[id]
			if !ok {
				rows = append(rows, []string{cyan.Render(id), "", "", ""})
				continue
			}
			articleType := ""
			if len(a.ArticleTypes) > 0 {
				articleType = a.ArticleTypes[0]
			}
			rows = append(rows, []string{
				cyan.Render(a.PMID),
				bold.Render(truncate(a.Title, 50)),
				pubYear(a.PubDate),
				articleType,
			})
		}
		fmt.Fprintln(w, newTable("PMID", "Title", "Year", "Type").Rows(rows...).Render())
	} else {
		var rows [][]string
		for i, id := range result.PMIDs {
			rows = append(rows, []string{fmt.Sprintf("%d", i+1), cyan.Render(id)})
		}
		fmt.Fprintln(w, newTable("#", "PMID").Rows(rows...).Render())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, dim.Render("💾 Use --ris output.ris to export"))
	return nil
}

// --- Fetch / Articles ---

func formatArticlesHuman(w io.Writer, articles []eutils.Article, full bool) error {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles found.")
		return nil
	}

	for i, a := range articles {
		if i > 0 {
			fmt.Fprintln(w)
		}

		// Title card
		titleLine := bold.Render(a.Title)
		meta := cyan.Render("PMID: " + a.PMID)
		if y := pubYear(a.PubDate); y != "" {
			meta += dim.Render(" · ") + y
		}
		fmt.Fprintln(w, boxStyle.Render(titleLine+"\n"+meta))
		fmt.Fprintln(w)

		if len(a.Authors) > 0 {
			names := make([]string, len(a.Authors))
			for j, au := range a.Authors {
				names[j] = au.FullName
			}
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Authors:"), strings.Join(names, ", "))
		}

		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Journal:"), citationLine(a))

		if a.DOI != "" {
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("DOI:"), yellow.Render(a.DOI))
		}
		if a.PMCID != "" {
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("PMCID:"), green.Render(a.PMCID))
		}
		if len(a.ArticleTypes) > 0 {
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Type:"), strings.Join(a.ArticleTypes, ", "))
		}

		if len(a.MeshHeadings) > 0 {
			var terms []string
			for _, m := range a.MeshHeadings {
				t := m.DescriptorName
				if m.MajorTopic {
					t = green.Render("*" + t)
				}
				terms = append(terms, t)
			}
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("MeSH:"), strings.Join(terms, ", "))
		}

		if a.AbstractText != "" {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  %s\n", labelStyle.Render("Abstract:"))
			abstract := a.AbstractText
			if !full && len(abstract) > 500 {
				fmt.Fprintf(w, "  %s\n", abstract[:497]+"...")
				fmt.Fprintf(w, "  %s\n", dim.Render("[use --full for complete abstract]"))
			} else {
				fmt.Fprintf(w, "  %s\n", abstract)
			}
		}
	}
	return nil
}

// --- Links ---

func formatLinksHuman(w io.Writer, sourcePMID, linkType string, ids []string) error {
	emoji := "🔗"
	switch linkType {
	case "cited-by":
		emoji = "📚"
	case "related":
		emoji = "🔍"
	case "pmc":
		emoji = "📄"
	}

	if len(ids) == 0 {
		fmt.Fprintf(w, "%s No %s results for PMID %s.\n", emoji, linkType, cyan.Render(sourcePMID))
		return nil
	}

	fmt.Fprintf(w, "%s %s for PMID %s (%d results)\n\n",
		emoji, bold.Render(linkTitle(linkType)), cyan.Render(sourcePMID), len(ids))

	var rows [][]string
	for i, id := range ids {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), cyan.Render(id)})
	}
	fmt.Fprintln(w, newTable("#", "ID").Rows(rows...).Render())
	return nil
}

// --- MeSH ---

func formatMeSHHuman(w io.Writer, record *mesh.Record) error {
	fmt.Fprintf(w, "🏷️  %s  %s\n\n", bold.Render(record.Name), dim.Render(record.UI))

	if len(record.TreeNumbers) > 0 {
		fmt.Fprintf(w, "  %s\n", labelStyle.Render("Tree Numbers:"))
		for _, tn := range record.TreeNumbers {
			fmt.Fprintf(w, "    %s %s\n", magenta.Render("├"), tn)
		}
		fmt.Fprintln(w)
	}

	if record.ScopeNote != "" {
		fmt.Fprintf(w, "  %s\n", labelStyle.Render("Scope Note:"))
		for _, line := range strings.Split(wordWrap(record.ScopeNote, 76), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
		fmt.Fprintln(w)
	}

	if len(record.EntryTerms) > 0 {
		fmt.Fprintf(w, "  %s ", labelStyle.Render("Synonyms:"))
		colored := make([]string, len(record.EntryTerms))
		for i, et := range record.EntryTerms {
			colored[i] = yellow.Render(et)
		}
		fmt.Fprintln(w, strings.Join(colored, ", "))
		fmt.Fprintln(w)
	}

	if record.Annotation != "" {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Annotation:"), record.Annotation)
	}
	return nil
}

// --- PMC full text ---

func formatFullTextHuman(w io.Writer, article *pmc.FullTextArticle, full bool) error {
	titleLine := bold.Render(article.Title)
	meta := cyan.Render(article.PMCID)
	if article.PubDate != "" {
		meta += dim.Render(" · ") + article.PubDate
	}
	if article.Journal.Title != "" {
		meta += dim.Render(" · ") + article.Journal.Title
	}
	fmt.Fprintln(w, boxStyle.Render(titleLine+"\n"+meta))
	fmt.Fprintln(w)

	if len(article.Authors) > 0 {
		names := make([]string, len(article.Authors))
		for i, c := range article.Authors {
			names[i] = strings.TrimSpace(c.GivenNames + " " + c.Surname)
		}
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Authors:"), strings.Join(names, ", "))
	}
	if article.DOI != "" {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("DOI:"), yellow.Render(article.DOI))
	}
	fmt.Fprintln(w)

	writeSectionsHuman(w, article.Sections, 0, full)

	if len(article.References) > 0 {
		fmt.Fprintf(w, "\n  %s %d\n", labelStyle.Render("References:"), len(article.References))
	}
	return nil
}

func writeSectionsHuman(w io.Writer, sections []pmc.Section, depth int, full bool) {
	indent := strings.Repeat("  ", depth+1)
	for _, s := range sections {
		title := s.Title
		if title == "" {
			title = s.Type
		}
		fmt.Fprintf(w, "%s%s\n", indent, labelStyle.Render(title))
		if s.Content != "" {
			content := s.Content
			if !full && len(content) > 300 {
				content = content[:297] + "..."
			}
			for _, line := range strings.Split(wordWrap(content, 80-len(indent)), "\n") {
				fmt.Fprintf(w, "%s%s\n", indent, line)
			}
		}
		for _, fig := range s.Figures {
			fmt.Fprintf(w, "%s%s %s\n", indent, magenta.Render("[fig "+fig.ID+"]"), dim.Render(truncate(fig.Caption, 60)))
		}
		for _, tbl := range s.Tables {
			fmt.Fprintf(w, "%s%s %s\n", indent, magenta.Render("[table "+tbl.ID+"]"), dim.Render(truncate(tbl.Caption, 60)))
		}
		writeSectionsHuman(w, s.Subsections, depth+1, full)
	}
}

// wordWrap wraps text at the given width, breaking at spaces.
func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return strings.Join(lines, "\n")
}

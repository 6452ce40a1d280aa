// Command entrez is a CLI for NCBI Entrez E-utilities: PubMed search and
// retrieval, citation links, PMC full text, spelling suggestions, and MeSH
// lookup.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pcrowe/entrez-go/internal/eutils"
	"github.com/pcrowe/entrez-go/internal/mesh"
	"github.com/pcrowe/entrez-go/internal/ncbi"
	"github.com/pcrowe/entrez-go/internal/output"
	"github.com/pcrowe/entrez-go/internal/pmc"
	"github.com/pcrowe/entrez-go/internal/query"
)

// envSettings is the NCBI_-prefixed environment configuration, loadable
// from a .env file in the working directory.
type envSettings struct {
	APIKey  string        `envconfig:"API_KEY"`
	Email   string        `envconfig:"EMAIL"`
	Tool    string        `envconfig:"TOOL"`
	Timeout time.Duration `envconfig:"TIMEOUT"`
}

var (
	flagJSON    bool
	flagHuman   bool
	flagFull    bool
	flagRIS     string
	flagLimit   int
	flagSort    string
	flagYear    string
	flagType    string
	flagVerbose bool

	settings envSettings
	logger   = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "entrez",
	Short: "NCBI Entrez E-utilities CLI",
	Long: `A command-line interface for NCBI Entrez: search and retrieve PubMed
articles, follow citation links, fetch PMC full text, and look up MeSH terms.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; absence is not an error.
		_ = godotenv.Load()
		if err := envconfig.Process("ncbi", &settings); err != nil {
			return fmt.Errorf("reading environment: %w", err)
		}
		if flagVerbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			logger = l
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as structured JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagHuman, "human", "H", false, "Rich colorful terminal output")
	rootCmd.PersistentFlags().BoolVar(&flagFull, "full", false, "Show full abstracts and section text")
	rootCmd.PersistentFlags().StringVar(&flagRIS, "ris", "", "Export articles to this RIS file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")

	searchCmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum number of results")
	searchCmd.Flags().StringVar(&flagSort, "sort", "", "Sort order: relevance or pub_date")
	searchCmd.Flags().StringVar(&flagYear, "year", "", "Filter by year or range (e.g. 2020 or 2020-2025)")
	searchCmd.Flags().StringVar(&flagType, "type", "", "Filter by publication type (review, trial, meta-analysis)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(citedByCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(pmcCmd)
	rootCmd.AddCommand(spellCmd)
	rootCmd.AddCommand(meshCmd)
	rootCmd.AddCommand(databasesCmd)
}

func outputCfg() output.Config {
	return output.Config{
		JSON:    flagJSON,
		Human:   flagHuman,
		Full:    flagFull,
		RISFile: flagRIS,
	}
}

func newBaseClient() *ncbi.BaseClient {
	var opts []ncbi.Option
	if settings.APIKey != "" {
		opts = append(opts, ncbi.WithAPIKey(settings.APIKey))
	}
	if settings.Email != "" {
		opts = append(opts, ncbi.WithEmail(settings.Email))
	}
	if settings.Tool != "" {
		opts = append(opts, ncbi.WithTool(settings.Tool))
	}
	if settings.Timeout > 0 {
		opts = append(opts, ncbi.WithTimeout(settings.Timeout))
	}
	return ncbi.NewBaseClient(opts...)
}

func newEutilsClient() *eutils.Client {
	return eutils.NewClientWithBase(newBaseClient()).WithLogger(logger)
}

// buildQuery turns positional args plus the --type/--year flags into a
// PubMed search expression.
func buildQuery(args []string) (string, error) {
	q := query.New().Query(strings.Join(args, " "))

	if flagType != "" {
		typeMap := map[string]query.ArticleType{
			"review":        query.Review,
			"trial":         query.ClinicalTrial,
			"meta-analysis": query.MetaAnalysis,
			"randomized":    query.RandomizedControlledTrial,
			"case-report":   query.CaseReport,
			"systematic":    query.SystematicReview,
		}
		t, ok := typeMap[strings.ToLower(flagType)]
		if !ok {
			t = query.ArticleType(flagType)
		}
		q = q.ArticleTypes(t)
	}

	if flagYear != "" {
		from, to, ok := parseYearRange(flagYear)
		if !ok {
			return "", fmt.Errorf("invalid --year %q (want YYYY or YYYY-YYYY)", flagYear)
		}
		if to == 0 {
			q = q.PublishedInYear(from)
		} else {
			q = q.PublishedBetween(query.Date{Year: from}, query.Date{Year: to})
		}
	}

	if err := q.Validate(); err != nil {
		return "", err
	}
	return q.Build(), nil
}

func parseYearRange(s string) (from, to int, ok bool) {
	lo, hi, split := strings.Cut(s, "-")
	from, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, false
	}
	if !split {
		return from, 0, true
	}
	to, err = strconv.Atoi(hi)
	if err != nil {
		return 0, 0, false
	}
	return from, to, true
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search PubMed with Boolean/MeSH queries",
	Long:  `Search PubMed using Boolean operators and MeSH terms. Returns PMIDs and result counts.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newEutilsClient()
		cfg := outputCfg()

		term, err := buildQuery(args)
		if err != nil {
			return err
		}

		result, err := client.Search(cmd.Context(), term, &eutils.SearchOptions{
			Limit: flagLimit,
			Sort:  flagSort,
		})
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		// Human mode and RIS export need the full records.
		var articles []eutils.Article
		if (cfg.Human || cfg.RISFile != "") && len(result.PMIDs) > 0 {
			articles, err = client.FetchArticles(cmd.Context(), result.PMIDs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not fetch article details: %v\n", err)
				articles = nil
			}
		}
		return output.FormatSearchResult(os.Stdout, result, articles, cfg)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <pmid> [pmid...]",
	Short: "Fetch full article details",
	Long:  `Retrieve full article details including abstract, authors, DOI, and MeSH terms for one or more PMIDs.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		articles, err := newEutilsClient().FetchArticles(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		return output.FormatArticles(os.Stdout, articles, outputCfg())
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <pmid> [pmid...]",
	Short: "Fetch condensed document summaries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := newEutilsClient().FetchSummaries(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("summary failed: %w", err)
		}
		return output.FormatSummaries(os.Stdout, summaries, outputCfg())
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related <pmid>",
	Short: "Find similar articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := newEutilsClient().GetRelatedArticles(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("related articles lookup failed: %w", err)
		}
		return output.FormatLinks(os.Stdout, args[0], "related", ids, outputCfg())
	},
}

var citedByCmd = &cobra.Command{
	Use:   "cited-by <pmid>",
	Short: "Find papers that cite this article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := newEutilsClient().GetCitations(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("cited-by lookup failed: %w", err)
		}
		return output.FormatLinks(os.Stdout, args[0], "cited-by", ids, outputCfg())
	},
}

var referencesCmd = &cobra.Command{
	Use:   "references <pmid>",
	Short: "Find papers cited by this article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := newEutilsClient().GetReferences(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("references lookup failed: %w", err)
		}
		return output.FormatLinks(os.Stdout, args[0], "references", ids, outputCfg())
	},
}

var pmcCmd = &cobra.Command{
	Use:   "pmc <pmid-or-pmcid>",
	Short: "Fetch PMC full text",
	Long: `Fetch the full text of an article from PubMed Central. Accepts a PMCID
(PMC1234567) directly, or a PMID which is first resolved through ELink.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pmcid := args[0]
		if !strings.HasPrefix(strings.ToUpper(pmcid), "PMC") {
			resolved, err := newEutilsClient().CheckPMCAvailability(cmd.Context(), pmcid)
			if err != nil {
				return fmt.Errorf("resolving PMID to PMC: %w", err)
			}
			pmcid = resolved
		}

		client := pmc.NewClientWithBase(newBaseClient()).WithLogger(logger)
		article, err := client.FetchArticle(cmd.Context(), pmcid)
		if err != nil {
			return fmt.Errorf("full text fetch failed: %w", err)
		}
		return output.FormatFullText(os.Stdout, article, outputCfg())
	},
}

var spellCmd = &cobra.Command{
	Use:   "spell <query>",
	Short: "Suggest spelling corrections for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newEutilsClient().SpellCheck(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("spell check failed: %w", err)
		}
		return output.FormatSpellResult(os.Stdout, result, outputCfg())
	},
}

var meshCmd = &cobra.Command{
	Use:   "mesh <term>",
	Short: "Look up a MeSH term",
	Long:  `Search for a MeSH (Medical Subject Headings) term and display its record including tree numbers, scope note, and synonyms.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mesh.NewClient(newBaseClient())
		record, err := client.Lookup(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("MeSH lookup failed: %w", err)
		}
		return output.FormatMeSHRecord(os.Stdout, record, outputCfg())
	},
}

var databasesCmd = &cobra.Command{
	Use:   "databases [name]",
	Short: "List Entrez databases or describe one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newEutilsClient()

		if len(args) == 1 {
			info, err := client.GetDatabaseInfo(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("database info failed: %w", err)
			}
			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Printf("%s (%s)\n", info.Name, info.MenuName)
			if info.Description != "" {
				fmt.Println(info.Description)
			}
			fmt.Printf("Records: %d\n", info.Count)
			if info.LastUpdate != "" {
				fmt.Printf("Last update: %s\n", info.LastUpdate)
			}
			return nil
		}

		names, err := client.GetDatabaseList(cmd.Context())
		if err != nil {
			return fmt.Errorf("database list failed: %w", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

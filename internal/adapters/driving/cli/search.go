package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fedreg/internal/core/domain"
)

var (
	searchKeywords []string
	searchType     string
	searchFrom     string
	searchTo       string
	searchAgency   string
	searchLimit    int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search stored documents",
	Long: `Query the store with the same validated search the assistant uses.
At least one filter is required. Keywords match title or abstract; any
keyword may match. Results are newest first.

Examples:
  fedreg search -k ozone -k "air quality" --type Rule
  fedreg search --agency "Environmental Protection" --from 2024-03-01
  fedreg search -k tariff --limit 20 --json`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchKeywords, "keywords", "k", nil, "keywords (repeat or comma-separate)")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "",
		"document type: Rule, Proposed Rule, Notice or Presidential Document")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "earliest publication date, YYYY-MM-DD")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "latest publication date, YYYY-MM-DD")
	searchCmd.Flags().StringVarP(&searchAgency, "agency", "a", "", "agency name substring")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the tool envelope as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchArguments builds the tool argument object from the flags, so the
// command goes through the same parser as LLM tool calls.
func searchArguments() (json.RawMessage, error) {
	args := map[string]any{}
	if len(searchKeywords) > 0 {
		args["keywords"] = searchKeywords
	}
	if searchType != "" {
		args["document_type"] = searchType
	}
	if searchFrom != "" {
		args["date_from"] = searchFrom
	}
	if searchTo != "" {
		args["date_to"] = searchTo
	}
	if searchAgency != "" {
		args["agency"] = searchAgency
	}
	if searchLimit != 0 {
		args["limit"] = searchLimit
	}
	return json.Marshal(args)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	tool, _, err := requireSearch()
	if err != nil {
		return err
	}

	raw, err := searchArguments()
	if err != nil {
		return fmt.Errorf("encoding arguments: %w", err)
	}

	args, err := tool.Parse(raw)
	if err != nil {
		return err
	}

	result, err := tool.Search(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd.OutOrStdout(), domain.ResultEnvelope(result))
	}
	printSearchTable(cmd.OutOrStdout(), result)
	return nil
}

func printSearchTable(w io.Writer, result *domain.SearchResult) {
	if result.NoMatch || len(result.Documents) == 0 {
		fmt.Fprintln(w, domain.NoMatchMessage)
		return
	}

	fmt.Fprintf(w, "%d result(s):\n\n", len(result.Documents))
	for i := range result.Documents {
		s := domain.Summarise(&result.Documents[i])
		fmt.Fprintf(w, "  [%d] %s  %s  %s\n", i+1, s.PublicationDate, s.DocumentType, s.DocumentID)
		fmt.Fprintf(w, "      %s\n", s.Title)
		if s.Agency != "" {
			fmt.Fprintf(w, "      Agency: %s\n", s.Agency)
		}
		if s.HTMLURL != "" {
			fmt.Fprintf(w, "      %s\n", s.HTMLURL)
		}
		fmt.Fprintln(w)
	}
}

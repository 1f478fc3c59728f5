package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"songrec/internal/usecase"
)

var (
	searchText  string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search tracks by title or artist",
	Long: `Search the catalog for tracks to use as recommendation seeds.

Examples:
  songrec search -q "perfect"
  songrec search -q "ed sheeran" --limit 20 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search text (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := newCatalog(cmd.Context(), st)
	if err != nil {
		return err
	}

	tracks, err := usecase.NewSearchUseCase(cat).Search(cmd.Context(), searchText, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		output, _ := json.MarshalIndent(tracks, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(tracks) == 0 {
		fmt.Println("No tracks found.")
		return nil
	}
	fmt.Printf("Found %d tracks for: %s\n\n", len(tracks), searchText)
	for i, t := range tracks {
		fmt.Printf("  %2d. %-40s %-25s %s\n", i+1, t.Title, t.Artist, t.ID)
	}
	return nil
}

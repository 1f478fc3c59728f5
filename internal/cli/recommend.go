package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"songrec/internal/adapter/cache"
	"songrec/internal/domain"
	"songrec/internal/usecase"
)

var (
	recommendK           int
	recommendJSON        bool
	recommendExcludeSeed bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <track-id>...",
	Short: "Recommend tracks similar to one or more seeds",
	Long: `Look up each seed track's audio features and list its nearest
neighbors in the trained index, closest first.

Examples:
  songrec recommend 0VjIjW4GlUZAMYd2vXMi3b
  songrec recommend 0VjIjW4GlUZAMYd2vXMi3b 7qiZfU4dY1lWllzX7mPBI3 -k 5 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().IntVarP(&recommendK, "k", "k", 0, "number of recommendations (default from config, then index)")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "output as JSON")
	recommendCmd.Flags().BoolVar(&recommendExcludeSeed, "exclude-seed", false, "drop the seed track from its own results")
}

type seedResult struct {
	Seed            string                  `json:"seed"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Error           string                  `json:"error,omitempty"`
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	st, idx, err := openModel()
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := newCatalog(ctx, st)
	if err != nil {
		return err
	}

	qc := cache.NewQueryCache(cfg.Recommend.CacheSize, cfg.Recommend.CacheTTL)
	excludeSeed := cfg.Recommend.ExcludeSeed || recommendExcludeSeed
	recommendUC := usecase.NewRecommendUseCase(cache.NewCachedSearcher(idx, qc), st, cat, idx.KDefault(), excludeSeed)

	k := cfg.Recommend.K
	if recommendK > 0 {
		k = recommendK
	}

	results := make([]seedResult, 0, len(args))
	failed := 0
	for _, seed := range args {
		recs, err := recommendUC.Recommend(ctx, seed, k)
		r := seedResult{Seed: seed, Recommendations: recs}
		if err != nil {
			r.Error = err.Error()
			failed++
		}
		results = append(results, r)
	}

	if recommendJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
	} else {
		for _, r := range results {
			printRecommendations(r)
		}
	}

	if failed == len(args) {
		return fmt.Errorf("no recommendations produced")
	}
	return nil
}

func printRecommendations(r seedResult) {
	if r.Error != "" {
		fmt.Printf("%s: %s\n\n", r.Seed, r.Error)
		return
	}
	fmt.Printf("Recommendations for %s:\n", r.Seed)
	printRecs(r.Recommendations)
	fmt.Println()
}

func printRecs(recs []domain.Recommendation) {
	if len(recs) == 0 {
		fmt.Println("  (none)")
		return
	}
	for i, rec := range recs {
		title := rec.Track.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %2d. %-40s %-25s %s  (distance: %.6f)\n", i+1, title, rec.Track.Artist, rec.Track.ID, rec.Distance)
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"songrec/internal/domain"
	"songrec/internal/usecase"
)

var (
	queryVector string
	queryK      int
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the index with a raw feature vector",
	Long: `Find the nearest tracks to a feature vector given in column order:
` + strings.Join(domain.FeatureColumns, ", ") + `.

Examples:
  songrec query --vector "0.0555,0.754,142301,0.663,0,6,0.101,-6.311,0,0.427,90.195,4,0.207"
  songrec query --vector "..." -k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryVector, "vector", "", "comma separated feature values (required)")
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "number of results (default from index)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("vector")
}

func runQuery(cmd *cobra.Command, args []string) error {
	v, err := parseVector(queryVector)
	if err != nil {
		return err
	}

	st, idx, err := openModel()
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := newCatalog(cmd.Context(), st)
	if err != nil {
		return err
	}

	recommendUC := usecase.NewRecommendUseCase(idx, st, cat, idx.KDefault(), false)
	recs, err := recommendUC.RecommendVector(cmd.Context(), v, queryK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(recs, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d neighbors:\n", len(recs))
	printRecs(recs)
	return nil
}

func parseVector(s string) (domain.FeatureVector, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty vector")
	}

	v := make(domain.FeatureVector, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector value %q at position %d", f, i)
		}
		v[i] = x
	}
	return v, nil
}

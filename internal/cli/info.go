package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"songrec/config"
	"songrec/internal/adapter/store"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the stored model",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	st, idx, err := openModel()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.TrainStats()
	if err != nil {
		return fmt.Errorf("failed to read train stats: %w", err)
	}
	schema, err := st.GetSchemaInfo()
	if err != nil {
		return fmt.Errorf("failed to read schema info: %w", err)
	}

	fmt.Printf("Model:          %s\n", config.StoreDBPath(GetRootDir()))
	fmt.Printf("Schema:         v%d (current v%d)\n", schema.Version, store.CurrentSchemaVersion)
	if stats.TrainedAt > 0 {
		fmt.Printf("Trained:        %s\n", time.Unix(stats.TrainedAt, 0).Format(time.RFC3339))
	}
	fmt.Printf("Rows:           %d\n", idx.Len())
	fmt.Printf("Dimension:      %d\n", idx.Dim())
	fmt.Printf("Neighbors (k):  %d\n", idx.KDefault())
	fmt.Printf("Records read:   %d\n", stats.RecordsRead)
	fmt.Printf("Rows dropped:   %d\n", stats.RowsDropped)

	if rebuild, reason, err := st.NeedsRebuild(GetConfig()); err == nil && rebuild {
		fmt.Printf("\nRetraining required: %s\n", reason)
	}
	return nil
}

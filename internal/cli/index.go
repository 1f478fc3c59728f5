package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"songrec/config"
	"songrec/internal/adapter/dataset"
	"songrec/internal/adapter/features"
	"songrec/internal/adapter/store"
	"songrec/internal/usecase"
)

var indexExport string

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Train the similarity index from a dataset",
	Long: `Read every dataset file matching the configured globs, drop rows with
missing audio features and build the nearest-neighbor index.
The model is stored in .songrec/songrec.db within the target directory.

Examples:
  songrec index .                       # Train from ./data/**/*.csv
  songrec index /path/to/project        # Train from another directory
  songrec index . --export model.sgrx   # Also write the raw index file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexExport, "export", "", "also write the persisted index to this file")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()

	if err := config.EnsureDataDir(path); err != nil {
		return fmt.Errorf("failed to create .songrec directory: %w", err)
	}

	dbPath := config.StoreDBPath(path)
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	migrationResult, err := st.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}

	if migrationResult.NeedsRebuild {
		fmt.Printf("Retraining required: %s\n", migrationResult.Reason)
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear model: %w", err)
		}
	} else if migrationResult.NeedsMigration {
		fmt.Printf("Running schema migration: %s\n", migrationResult.Reason)
		if err := st.Migrate(cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	loader, err := dataset.NewLoader(cfg.Dataset.Delimiter, runtime.NumCPU())
	if err != nil {
		return err
	}

	trainUC := usecase.NewTrainUseCase(
		st,
		dataset.NewWalker(cfg.Dataset.Includes, cfg.Dataset.Excludes),
		loader,
		features.NewBuilder(cfg.Dataset.IDColumn),
		usecase.TrackColumns{Title: cfg.Dataset.TitleColumn, Artist: cfg.Dataset.ArtistColumn},
		cfg.Index.KDefault,
	)

	fmt.Printf("Scanning %s...\n", path)

	start := time.Now()
	result, err := trainUC.Train(cmd.Context(), path, newProgress("Reading"))
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := st.Migrate(cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	if indexExport != "" {
		if err := os.WriteFile(indexExport, result.Blob, 0644); err != nil {
			return fmt.Errorf("failed to export index: %w", err)
		}
	}

	fmt.Printf("\nTraining complete in %s:\n", formatDuration(time.Since(start)))
	fmt.Printf("  Files read:     %d\n", len(result.Files))
	fmt.Printf("  Records read:   %d\n", result.Stats.RecordsRead)
	fmt.Printf("  Rows kept:      %d\n", result.Stats.RowsKept)
	fmt.Printf("  Rows dropped:   %d (missing features)\n", result.Stats.RowsDropped)
	fmt.Printf("  Neighbors (k):  %d\n", result.Stats.KDefault)

	fmt.Printf("\nModel stored at: %s\n", dbPath)
	if indexExport != "" {
		fmt.Printf("Index exported to: %s (%d bytes)\n", indexExport, len(result.Blob))
	}
	return nil
}

// newProgress returns a dataset.ProgressFunc that draws a bar sized on the
// first call.
func newProgress(label string) dataset.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime time.Time
	)

	return func(processed, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			remaining := total - processed
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

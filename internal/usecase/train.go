package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"songrec/internal/adapter/dataset"
	"songrec/internal/adapter/features"
	"songrec/internal/adapter/similarity"
	"songrec/internal/domain"
	"songrec/internal/logging"
	"songrec/internal/port"
)

// TrackColumns names the dataset columns that carry display metadata.
// Empty or absent columns leave the corresponding field blank.
type TrackColumns struct {
	Title  string
	Artist string
}

// TrainUseCase builds the similarity index from a dataset directory and
// stores it together with the track rows.
type TrainUseCase struct {
	store    port.TrackStore
	walker   *dataset.Walker
	loader   *dataset.Loader
	builder  *features.Builder
	columns  TrackColumns
	kDefault int
}

// NewTrainUseCase creates a new train use case.
func NewTrainUseCase(
	store port.TrackStore,
	walker *dataset.Walker,
	loader *dataset.Loader,
	builder *features.Builder,
	columns TrackColumns,
	kDefault int,
) *TrainUseCase {
	return &TrainUseCase{
		store:    store,
		walker:   walker,
		loader:   loader,
		builder:  builder,
		columns:  columns,
		kDefault: kDefault,
	}
}

// TrainResult contains the results of a training run.
type TrainResult struct {
	Files []string
	Stats domain.TrainStats
	Index *similarity.Index
	Blob  []byte
}

// Train discovers dataset files under root, builds the feature matrix and
// the index, and replaces the stored model in a single write.
func (u *TrainUseCase) Train(ctx context.Context, root string, progress dataset.ProgressFunc) (*TrainResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk dataset directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no dataset files under %s: %w", root, domain.ErrEmptyInput)
	}

	table, err := u.loader.Load(ctx, files, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	return u.TrainTable(table, paths(files))
}

// TrainTable trains from an already loaded table.
func (u *TrainUseCase) TrainTable(table domain.Table, files []string) (*TrainResult, error) {
	matrix, buildStats, err := u.builder.Build(table)
	if err != nil {
		return nil, fmt.Errorf("failed to build feature matrix: %w", err)
	}
	logging.Debug().
		Int("records", buildStats.RecordsRead).
		Int("kept", buildStats.RowsKept).
		Int("dropped", buildStats.RowsDropped).
		Msg("feature matrix built")

	idx, err := similarity.Build(matrix, u.kDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	titlePos := table.ColumnIndex(u.columns.Title)
	artistPos := table.ColumnIndex(u.columns.Artist)

	rows := make([]domain.TrackRow, matrix.Len())
	for i, vec := range matrix.Rows {
		src := matrix.SourceRows[i]
		record := table.Rows[src]
		rows[i] = domain.TrackRow{
			Row:       i,
			SourceRow: src,
			Track: domain.Track{
				ID:     matrix.IDs[i],
				Title:  cell(record, titlePos),
				Artist: firstArtist(cell(record, artistPos)),
			},
			Features: vec,
		}
	}

	stats := domain.TrainStats{
		RecordsRead: buildStats.RecordsRead,
		RowsKept:    buildStats.RowsKept,
		RowsDropped: buildStats.RowsDropped,
		Dimension:   idx.Dim(),
		KDefault:    idx.KDefault(),
		TrainedAt:   time.Now().Unix(),
	}

	blob := idx.Persist()
	if err := u.store.SaveModel(rows, blob, stats); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	logging.Info().
		Int("rows", stats.RowsKept).
		Int("dropped", stats.RowsDropped).
		Int("bytes", len(blob)).
		Msg("index trained")

	return &TrainResult{
		Files: files,
		Stats: stats,
		Index: idx,
		Blob:  blob,
	}, nil
}

// LoadIndex restores the stored index.
func LoadIndex(store port.TrackStore) (*similarity.Index, error) {
	blob, err := store.IndexBlob()
	if err != nil {
		return nil, err
	}
	idx, err := similarity.Restore(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to restore index: %w", err)
	}
	return idx, nil
}

func paths(files []dataset.FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func cell(record []string, pos int) string {
	if pos < 0 || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

// firstArtist unwraps list-valued artist cells such as "['A', 'B']".
func firstArtist(s string) string {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return s
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return ""
	}
	first := inner
	if q := inner[0]; q == '\'' || q == '"' {
		if end := strings.IndexByte(inner[1:], q); end >= 0 {
			return inner[1 : end+1]
		}
	}
	if comma := strings.IndexByte(first, ','); comma >= 0 {
		first = first[:comma]
	}
	return strings.Trim(strings.TrimSpace(first), `'"`)
}

package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"songrec/internal/adapter/cache"
	"songrec/internal/adapter/catalog"
	"songrec/internal/adapter/dataset"
	"songrec/internal/adapter/features"
	"songrec/internal/adapter/memstore"
	"songrec/internal/adapter/store"
	"songrec/internal/domain"
	"songrec/internal/port"
)

const header = "id,name,artists,acousticness,danceability,duration_ms,energy,instrumentalness,key,liveness,loudness,mode,speechiness,tempo,time_signature,valence\n"

// featureCells renders 13 feature cells with the given leading values.
func featureCells(lead ...string) string {
	cells := make([]string, domain.FeatureDim)
	for i := range cells {
		cells[i] = "0"
	}
	copy(cells, lead)
	return strings.Join(cells, ",")
}

func writeDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "data")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	part1 := header +
		`a,Perfect,"['Ed Sheeran', 'Someone']",` + featureCells("1") + "\n" +
		`b,Close,Artist B,` + featureCells("1", "0.1") + "\n" +
		`e,Broken,Artist E,` + featureCells("1", "NA") + "\n"
	part2 := header +
		`c,Far,Artist C,` + featureCells("0", "1") + "\n" +
		`d,Middle,Artist D,` + featureCells("1", "1") + "\n"

	if err := os.WriteFile(filepath.Join(dir, "part1.csv"), []byte(part1), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "part2.csv"), []byte(part2), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func newTrainer(t *testing.T, st port.TrackStore) *TrainUseCase {
	t.Helper()
	loader, err := dataset.NewLoader(",", 2)
	if err != nil {
		t.Fatal(err)
	}
	return NewTrainUseCase(
		st,
		dataset.NewWalker([]string{"data/**/*.csv"}, nil),
		loader,
		features.NewBuilder("id"),
		TrackColumns{Title: "name", Artist: "artists"},
		15,
	)
}

func ids(recs []domain.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Track.ID
	}
	return out
}

func TestTrain(t *testing.T) {
	st := memstore.NewMemoryStore()
	root := writeDataset(t)

	var calls int
	res, err := newTrainer(t, st).Train(context.Background(), root, func(done, total int, path string) {
		calls++
		if total != 2 {
			t.Errorf("expected 2 files, got %d", total)
		}
	})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected 2 progress calls, got %d", calls)
	}
	if len(res.Files) != 2 {
		t.Errorf("expected 2 files, got %v", res.Files)
	}
	if res.Stats.RecordsRead != 5 || res.Stats.RowsKept != 4 || res.Stats.RowsDropped != 1 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
	if res.Stats.Dimension != domain.FeatureDim || res.Stats.KDefault != 15 {
		t.Errorf("unexpected index shape: %+v", res.Stats)
	}

	a, err := st.GetTrackByID("a")
	if err != nil {
		t.Fatal(err)
	}
	if a.Row != 0 || a.Track.Title != "Perfect" || a.Track.Artist != "Ed Sheeran" {
		t.Errorf("unexpected track a: %+v", a)
	}

	c, err := st.GetTrackByID("c")
	if err != nil {
		t.Fatal(err)
	}
	if c.Row != 2 || c.SourceRow != 3 {
		t.Errorf("expected row 2 from record 3, got %+v", c)
	}

	if _, err := st.GetTrackByID("e"); !errors.Is(err, domain.ErrTrackNotFound) {
		t.Errorf("dropped row should not be stored, got %v", err)
	}

	idx, err := LoadIndex(st)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 4 || idx.Dim() != domain.FeatureDim {
		t.Errorf("restored index has %d rows of dim %d", idx.Len(), idx.Dim())
	}
}

func TestTrain_BoltStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "train_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	st, err := store.NewBoltStore(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if _, err := newTrainer(t, st).Train(context.Background(), writeDataset(t), nil); err != nil {
		t.Fatal(err)
	}

	stats, err := st.TrainStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.RowsKept != 4 {
		t.Errorf("expected 4 rows, got %d", stats.RowsKept)
	}

	idx, err := LoadIndex(st)
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecommendUseCase(idx, st, catalog.NewLocalCatalog(st), idx.KDefault(), true)
	recs, err := rec.Recommend(context.Background(), "a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(recs); len(got) != 1 || got[0] != "b" {
		t.Errorf("expected [b], got %v", got)
	}
}

func TestTrain_NoFiles(t *testing.T) {
	_, err := newTrainer(t, memstore.NewMemoryStore()).Train(context.Background(), t.TempDir(), nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestTrain_SchemaError(t *testing.T) {
	table := domain.Table{
		Columns: []string{"id", "acousticness"},
		Rows:    [][]string{{"a", "0.5"}},
	}
	_, err := newTrainer(t, memstore.NewMemoryStore()).TrainTable(table, nil)

	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != domain.FeatureDim-1 {
		t.Errorf("expected %d missing columns, got %v", domain.FeatureDim-1, schemaErr.Missing)
	}
}

func TestTrain_AllRowsDropped(t *testing.T) {
	cols := append([]string{"id"}, domain.FeatureColumns...)
	row := make([]string, len(cols))
	row[0] = "x"
	table := domain.Table{Columns: cols, Rows: [][]string{row}}

	st := memstore.NewMemoryStore()
	_, err := newTrainer(t, st).TrainTable(table, nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := st.IndexBlob(); !errors.Is(err, domain.ErrNoIndex) {
		t.Errorf("failed build should not store an index, got %v", err)
	}
}

func TestLoadIndex_NoIndex(t *testing.T) {
	if _, err := LoadIndex(memstore.NewMemoryStore()); !errors.Is(err, domain.ErrNoIndex) {
		t.Errorf("expected ErrNoIndex, got %v", err)
	}
}

func TestLoadIndex_Corrupt(t *testing.T) {
	st := memstore.NewMemoryStore()
	if err := st.SaveModel(nil, []byte("not an index"), domain.TrainStats{}); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(st); !errors.Is(err, domain.ErrCorruptData) {
		t.Errorf("expected ErrCorruptData, got %v", err)
	}
}

func trained(t *testing.T) (*memstore.MemoryStore, *TrainResult) {
	t.Helper()
	st := memstore.NewMemoryStore()
	res, err := newTrainer(t, st).Train(context.Background(), writeDataset(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	return st, res
}

func TestRecommend(t *testing.T) {
	st, res := trained(t)
	local := catalog.NewLocalCatalog(st)

	tests := []struct {
		name    string
		exclude bool
		k       int
		want    []string
	}{
		{"includes seed", false, 3, []string{"a", "b", "d"}},
		{"excludes seed", true, 3, []string{"b", "d", "c"}},
		{"default k clamps to rows", false, 0, []string{"a", "b", "d", "c"}},
		{"exclude with default k", true, 0, []string{"b", "d", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewRecommendUseCase(res.Index, st, local, res.Index.KDefault(), tt.exclude)
			recs, err := uc.Recommend(context.Background(), "a", tt.k)
			if err != nil {
				t.Fatal(err)
			}
			got := ids(recs)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			for i := 1; i < len(recs); i++ {
				if recs[i].Distance < recs[i-1].Distance {
					t.Errorf("distances not ascending: %v", recs)
				}
			}
		})
	}
}

func TestRecommend_UnknownSeed(t *testing.T) {
	st, res := trained(t)
	uc := NewRecommendUseCase(res.Index, st, catalog.NewLocalCatalog(st), 15, false)

	_, err := uc.Recommend(context.Background(), "missing", 3)
	if !errors.Is(err, domain.ErrTrackNotFound) {
		t.Errorf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestRecommendVector_DimensionMismatch(t *testing.T) {
	st, res := trained(t)
	uc := NewRecommendUseCase(res.Index, st, catalog.NewLocalCatalog(st), 15, false)

	_, err := uc.RecommendVector(context.Background(), make(domain.FeatureVector, 12), 3)
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Expected != 13 || dimErr.Actual != 12 {
		t.Errorf("unexpected dimensions: %+v", dimErr)
	}
}

// imageCatalog decorates a catalog with artwork, like a remote provider.
type imageCatalog struct {
	port.Catalog
	fail bool
}

func (c *imageCatalog) Tracks(ctx context.Context, ids []string) ([]domain.Track, error) {
	if c.fail {
		return nil, errors.New("provider unavailable")
	}
	out := make([]domain.Track, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Track{ID: id, Image: "https://img/" + id})
	}
	return out, nil
}

func TestRecommend_Enrichment(t *testing.T) {
	st, res := trained(t)
	cat := &imageCatalog{Catalog: catalog.NewLocalCatalog(st)}
	uc := NewRecommendUseCase(res.Index, st, cat, 15, true)

	recs, err := uc.Recommend(context.Background(), "a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	got := recs[0].Track
	if got.Image != "https://img/b" || got.Title != "Close" || got.Artist != "Artist B" {
		t.Errorf("unexpected enriched track: %+v", got)
	}

	cat.fail = true
	recs, err = uc.Recommend(context.Background(), "a", 1)
	if err != nil {
		t.Fatalf("enrichment failure should not fail the request: %v", err)
	}
	if recs[0].Track.Image != "" || recs[0].Track.Title != "Close" {
		t.Errorf("expected dataset metadata only, got %+v", recs[0].Track)
	}
}

func TestRecommend_CachedSearcher(t *testing.T) {
	st, res := trained(t)
	qc := cache.NewQueryCache(16, 0)
	uc := NewRecommendUseCase(cache.NewCachedSearcher(res.Index, qc), st, catalog.NewLocalCatalog(st), 15, false)

	first, err := uc.Recommend(context.Background(), "d", 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := uc.Recommend(context.Background(), "d", 2)
	if err != nil {
		t.Fatal(err)
	}
	if qc.Size() != 1 {
		t.Errorf("expected 1 cached query, got %d", qc.Size())
	}
	if strings.Join(ids(first), ",") != strings.Join(ids(second), ",") {
		t.Errorf("cached result differs: %v vs %v", ids(first), ids(second))
	}
}

func TestSearch(t *testing.T) {
	st, _ := trained(t)
	uc := NewSearchUseCase(catalog.NewLocalCatalog(st))

	if _, err := uc.Search(context.Background(), "", 5); err == nil {
		t.Error("expected error for empty query")
	}

	tracks, err := uc.Search(context.Background(), "artist", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 3 {
		t.Errorf("expected 3 matches, got %+v", tracks)
	}
}

func TestFirstArtist(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ed Sheeran", "Ed Sheeran"},
		{"['Ed Sheeran']", "Ed Sheeran"},
		{"['Ed Sheeran', 'Andrea Bocelli']", "Ed Sheeran"},
		{`["Guns N' Roses", 'X']`, "Guns N' Roses"},
		{"[]", ""},
		{"[Nameless, Other]", "Nameless"},
	}
	for _, tt := range tests {
		if got := firstArtist(tt.in); got != tt.want {
			t.Errorf("firstArtist(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecommend_ExcludesDuplicatedSeedRows(t *testing.T) {
	cols := append([]string{"id", "name", "artists"}, domain.FeatureColumns...)
	record := func(id string, lead ...string) []string {
		return append([]string{id, "Song " + id, "Artist"}, strings.Split(featureCells(lead...), ",")...)
	}
	table := domain.Table{
		Columns: cols,
		Rows: [][]string{
			record("a", "1"),
			record("a", "1", "0.01"),
			record("b", "1", "0.1"),
			record("c", "1", "1"),
			record("d", "0", "1"),
		},
	}

	st := memstore.NewMemoryStore()
	res, err := newTrainer(t, st).TrainTable(table, nil)
	if err != nil {
		t.Fatal(err)
	}
	uc := NewRecommendUseCase(res.Index, st, catalog.NewLocalCatalog(st), res.Index.KDefault(), true)

	tests := []struct {
		k    int
		want []string
	}{
		{1, []string{"b"}},
		{2, []string{"b", "c"}},
		{3, []string{"b", "c", "d"}},
		{10, []string{"b", "c", "d"}},
	}
	for _, tt := range tests {
		recs, err := uc.Recommend(context.Background(), "a", tt.k)
		if err != nil {
			t.Fatal(err)
		}
		if got := ids(recs); strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("k=%d: expected %v, got %v", tt.k, tt.want, got)
		}
	}
}

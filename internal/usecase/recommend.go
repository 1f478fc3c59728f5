package usecase

import (
	"context"
	"fmt"

	"songrec/internal/domain"
	"songrec/internal/logging"
	"songrec/internal/port"
)

// RecommendUseCase turns a seed track into a list of similar tracks.
type RecommendUseCase struct {
	searcher    port.NeighborSearcher
	store       port.TrackStore
	catalog     port.Catalog
	kDefault    int
	excludeSeed bool
}

// NewRecommendUseCase creates a new recommend use case. kDefault must match
// the searcher's default neighbor count.
func NewRecommendUseCase(
	searcher port.NeighborSearcher,
	store port.TrackStore,
	catalog port.Catalog,
	kDefault int,
	excludeSeed bool,
) *RecommendUseCase {
	return &RecommendUseCase{
		searcher:    searcher,
		store:       store,
		catalog:     catalog,
		kDefault:    kDefault,
		excludeSeed: excludeSeed,
	}
}

// Recommend looks up the seed's audio features through the catalog and
// returns its nearest neighbors. k <= 0 uses the index default.
func (u *RecommendUseCase) Recommend(ctx context.Context, seedID string, k int) ([]domain.Recommendation, error) {
	features, err := u.catalog.AudioFeatures(ctx, seedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio features for %s: %w", seedID, err)
	}

	exclude := ""
	if u.excludeSeed {
		exclude = seedID
	}
	return u.recommend(ctx, features.Vector(), k, exclude)
}

// RecommendVector returns the nearest neighbors of a raw feature vector.
func (u *RecommendUseCase) RecommendVector(ctx context.Context, v domain.FeatureVector, k int) ([]domain.Recommendation, error) {
	return u.recommend(ctx, v, k, "")
}

func (u *RecommendUseCase) recommend(ctx context.Context, v domain.FeatureVector, k int, exclude string) ([]domain.Recommendation, error) {
	if k <= 0 {
		k = u.kDefault
	}

	// Merged datasets can repeat a track id on several rows, so the seed
	// may take more than one slot. Widen the query until k rows remain or
	// the index is exhausted.
	want := k
	if exclude != "" {
		want++
	}

	var recs []domain.Recommendation
	for {
		neighbors, err := u.searcher.Query(v, want)
		if err != nil {
			return nil, fmt.Errorf("failed to query index: %w", err)
		}

		recs = make([]domain.Recommendation, 0, len(neighbors))
		skipped := 0
		for _, n := range neighbors {
			tr, err := u.store.GetTrackByRow(n.Row)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve row %d: %w", n.Row, err)
			}
			if exclude != "" && tr.Track.ID == exclude {
				skipped++
				continue
			}
			recs = append(recs, domain.Recommendation{
				Track:    tr.Track,
				Row:      n.Row,
				Distance: n.Distance,
			})
		}

		if len(recs) >= k || len(neighbors) < want {
			break
		}
		want = k + skipped
	}
	if len(recs) > k {
		recs = recs[:k]
	}

	u.enrich(ctx, recs)
	return recs, nil
}

// enrich fills metadata from the catalog. Failures leave the dataset
// metadata in place.
func (u *RecommendUseCase) enrich(ctx context.Context, recs []domain.Recommendation) {
	if len(recs) == 0 {
		return
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.Track.ID != "" {
			ids = append(ids, r.Track.ID)
		}
	}

	tracks, err := u.catalog.Tracks(ctx, ids)
	if err != nil {
		logging.Warn().Err(err).Int("tracks", len(ids)).Msg("metadata enrichment failed")
		return
	}

	byID := make(map[string]domain.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}
	for i := range recs {
		t, ok := byID[recs[i].Track.ID]
		if !ok {
			continue
		}
		if t.Title != "" {
			recs[i].Track.Title = t.Title
		}
		if t.Artist != "" {
			recs[i].Track.Artist = t.Artist
		}
		if t.Image != "" {
			recs[i].Track.Image = t.Image
		}
		if t.PreviewURL != "" {
			recs[i].Track.PreviewURL = t.PreviewURL
		}
	}
}

// SearchUseCase finds tracks by free text.
type SearchUseCase struct {
	catalog port.Catalog
}

// NewSearchUseCase creates a new search use case.
func NewSearchUseCase(catalog port.Catalog) *SearchUseCase {
	return &SearchUseCase{catalog: catalog}
}

// Search returns up to limit tracks matching query.
func (u *SearchUseCase) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = 10
	}
	return u.catalog.Search(ctx, query, limit)
}

package catalog

import (
	"context"
	"errors"

	"songrec/internal/domain"
	"songrec/internal/port"
)

// LocalCatalog answers from the tracks of the trained dataset.
type LocalCatalog struct {
	store port.TrackStore
}

var _ port.Catalog = (*LocalCatalog)(nil)

func NewLocalCatalog(store port.TrackStore) *LocalCatalog {
	return &LocalCatalog{store: store}
}

func (c *LocalCatalog) AudioFeatures(ctx context.Context, id string) (domain.AudioFeatures, error) {
	row, err := c.store.GetTrackByID(id)
	if err != nil {
		return domain.AudioFeatures{}, err
	}
	return domain.AudioFeaturesFromVector(id, row.Features)
}

func (c *LocalCatalog) Tracks(ctx context.Context, ids []string) ([]domain.Track, error) {
	tracks := make([]domain.Track, 0, len(ids))
	for _, id := range ids {
		row, err := c.store.GetTrackByID(id)
		if errors.Is(err, domain.ErrTrackNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, row.Track)
	}
	return tracks, nil
}

func (c *LocalCatalog) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	rows, err := c.store.SearchTracks(query, limit)
	if err != nil {
		return nil, err
	}
	tracks := make([]domain.Track, len(rows))
	for i, r := range rows {
		tracks[i] = r.Track
	}
	return tracks, nil
}

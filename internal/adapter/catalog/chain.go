package catalog

import (
	"context"
	"errors"

	"songrec/internal/domain"
	"songrec/internal/port"
)

// Chain consults catalogs in order. Lookups fall through to the next
// catalog on domain.ErrTrackNotFound; searches use the first catalog that
// returns any result.
type Chain struct {
	catalogs []port.Catalog
}

var _ port.Catalog = (*Chain)(nil)

func NewChain(catalogs ...port.Catalog) *Chain {
	return &Chain{catalogs: catalogs}
}

func (c *Chain) AudioFeatures(ctx context.Context, id string) (domain.AudioFeatures, error) {
	for _, cat := range c.catalogs {
		f, err := cat.AudioFeatures(ctx, id)
		if errors.Is(err, domain.ErrTrackNotFound) {
			continue
		}
		return f, err
	}
	return domain.AudioFeatures{}, domain.ErrTrackNotFound
}

// Tracks resolves ids in catalog order and keeps the order of ids. A track
// an earlier catalog returns without artwork is passed on to later catalogs,
// which fill the fields it left empty.
func (c *Chain) Tracks(ctx context.Context, ids []string) ([]domain.Track, error) {
	found := make(map[string]domain.Track, len(ids))
	pending := ids
	for _, cat := range c.catalogs {
		if len(pending) == 0 {
			break
		}
		tracks, err := cat.Tracks(ctx, pending)
		if err != nil {
			return nil, err
		}
		for _, t := range tracks {
			if prev, ok := found[t.ID]; ok {
				t = fillTrack(prev, t)
			}
			found[t.ID] = t
		}

		next := make([]string, 0, len(pending))
		for _, id := range pending {
			if t, ok := found[id]; !ok || t.Image == "" {
				next = append(next, id)
			}
		}
		pending = next
	}

	out := make([]domain.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := found[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// fillTrack keeps the fields of t and takes empty ones from more.
func fillTrack(t, more domain.Track) domain.Track {
	if t.Title == "" {
		t.Title = more.Title
	}
	if t.Artist == "" {
		t.Artist = more.Artist
	}
	if t.Image == "" {
		t.Image = more.Image
	}
	if t.PreviewURL == "" {
		t.PreviewURL = more.PreviewURL
	}
	return t
}

func (c *Chain) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	for _, cat := range c.catalogs {
		tracks, err := cat.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		if len(tracks) > 0 {
			return tracks, nil
		}
	}
	return nil, nil
}

package port

import (
	"context"

	"songrec/internal/domain"
)

// Catalog resolves tracks and their audio features. Implementations return
// domain.ErrTrackNotFound for unknown ids.
type Catalog interface {
	AudioFeatures(ctx context.Context, id string) (domain.AudioFeatures, error)

	// Tracks returns metadata for ids in the same order. Unknown ids are skipped.
	Tracks(ctx context.Context, ids []string) ([]domain.Track, error)

	Search(ctx context.Context, query string, limit int) ([]domain.Track, error)
}

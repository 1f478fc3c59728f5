package port

import "songrec/internal/domain"

// TrackStore persists a trained model: the index blob and the dataset
// tracks addressed by matrix row.
type TrackStore interface {
	// SaveModel replaces the stored model in one write.
	SaveModel(tracks []domain.TrackRow, indexBlob []byte, stats domain.TrainStats) error

	// IndexBlob returns the persisted index, or domain.ErrNoIndex.
	IndexBlob() ([]byte, error)

	GetTrackByRow(row int) (domain.TrackRow, error)

	GetTrackByID(id string) (domain.TrackRow, error)

	SearchTracks(query string, limit int) ([]domain.TrackRow, error)

	TrainStats() (domain.TrainStats, error)

	Close() error
}

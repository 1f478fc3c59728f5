package port

import "songrec/internal/domain"

// NeighborSearcher answers k-nearest-neighbor queries over feature vectors.
type NeighborSearcher interface {
	// Query returns up to k neighbors ascending by distance; k <= 0 uses
	// the searcher's default.
	Query(v domain.FeatureVector, k int) (domain.NeighborResult, error)
}

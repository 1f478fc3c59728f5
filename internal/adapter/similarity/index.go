package similarity

import (
	"math"
	"slices"
	"strconv"

	"songrec/internal/domain"
)

// Index answers exact k-nearest-neighbor queries under cosine distance.
// It compares the query against every stored row, so results always match
// a brute-force ranking. An Index is immutable after Build or Restore and
// safe for concurrent queries.
type Index struct {
	dim      int
	kDefault int
	rows     [][]float64
	sqNorms  []float64
}

// Build creates an index over the matrix rows. The rows are copied.
func Build(matrix domain.FeatureMatrix, kDefault int) (*Index, error) {
	if matrix.Len() == 0 {
		return nil, &domain.EmptyInputError{}
	}
	if kDefault <= 0 {
		return nil, domain.ErrInvalidK
	}

	dim := len(matrix.Rows[0])
	if dim == 0 {
		return nil, &domain.DimensionMismatchError{Expected: domain.FeatureDim, Actual: 0}
	}

	rows := make([][]float64, len(matrix.Rows))
	for i, r := range matrix.Rows {
		if len(r) != dim {
			return nil, &domain.DimensionMismatchError{Expected: dim, Actual: len(r)}
		}
		if err := checkFinite(i, r); err != nil {
			return nil, err
		}
		rows[i] = slices.Clone(r)
	}

	return newIndex(dim, kDefault, rows), nil
}

func newIndex(dim, kDefault int, rows [][]float64) *Index {
	sqNorms := make([]float64, len(rows))
	for i, r := range rows {
		sqNorms[i] = dot(r, r)
	}
	return &Index{
		dim:      dim,
		kDefault: kDefault,
		rows:     rows,
		sqNorms:  sqNorms,
	}
}

// Dim returns the trained dimensionality.
func (x *Index) Dim() int { return x.dim }

// Len returns the number of indexed rows.
func (x *Index) Len() int { return len(x.rows) }

// KDefault returns the neighbor count used when a query passes k <= 0.
func (x *Index) KDefault() int { return x.kDefault }

// Row returns a copy of the stored vector at row i.
func (x *Index) Row(i int) domain.FeatureVector {
	return slices.Clone(x.rows[i])
}

// Query returns the k rows closest to v, ascending by distance. Rows at
// exactly equal distance keep their matrix order. k <= 0 uses the default;
// k larger than the index returns every row.
func (x *Index) Query(v domain.FeatureVector, k int) (domain.NeighborResult, error) {
	if len(v) != x.dim {
		return nil, &domain.DimensionMismatchError{Expected: x.dim, Actual: len(v)}
	}
	if err := checkFinite(-1, v); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = x.kDefault
	}
	if k > len(x.rows) {
		k = len(x.rows)
	}

	qSq := dot(v, v)
	all := make(domain.NeighborResult, len(x.rows))
	for i, r := range x.rows {
		all[i] = domain.Neighbor{
			Row:      i,
			Distance: cosineDistance(v, qSq, r, x.sqNorms[i]),
		}
	}

	slices.SortStableFunc(all, func(a, b domain.Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	out := make(domain.NeighborResult, k)
	copy(out, all[:k])
	return out, nil
}

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from
// everything, itself included. A non-zero vector is at distance exactly 0
// from itself.
func CosineDistance(a, b []float64) float64 {
	return cosineDistance(a, dot(a, a), b, dot(b, b))
}

// cosineDistance takes squared norms. For a == b the dot product and both
// squared norms are the same sum s, and sqrt(s*s) rounds back to s, so the
// ratio is exactly 1.
func cosineDistance(a []float64, sqA float64, b []float64, sqB float64) float64 {
	if sqA == 0 || sqB == 0 {
		return 1
	}

	den := math.Sqrt(sqA * sqB)
	if math.IsInf(den, 0) || den == 0 {
		// sqA*sqB left the float64 range.
		den = math.Sqrt(sqA) * math.Sqrt(sqB)
	}
	d := 1 - dot(a, b)/den
	// Clamp rounding drift.
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}

// checkFinite rejects NaN and infinite coordinates. record is -1 for a query.
func checkFinite(record int, v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			col := strconv.Itoa(i)
			if len(v) == domain.FeatureDim {
				col = domain.FeatureColumns[i]
			}
			return &domain.ValueError{Record: record, Column: col, Value: strconv.FormatFloat(x, 'g', -1, 64)}
		}
	}
	return nil
}

// dot rounds every product before adding it, so the compiler cannot fuse
// some sums into FMA and not others.
func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i] * b[i])
	}
	return sum
}

package domain

// Table is row-oriented tabular input. Cells are raw strings as read from
// the dataset; columns are addressed by header name.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Neighbor is one entry of a NeighborResult.
type Neighbor struct {
	Row      int     `json:"row"`
	Distance float64 `json:"distance"`
}

// NeighborResult is ordered ascending by distance.
type NeighborResult []Neighbor

// Track is the catalog view of a song.
type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Image      string `json:"image,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// TrackRow ties a dataset track to its row in the feature matrix.
type TrackRow struct {
	Row       int           `json:"row"`
	SourceRow int           `json:"source_row"`
	Track     Track         `json:"track"`
	Features  FeatureVector `json:"features"`
}

// Recommendation is a track suggested for a seed.
type Recommendation struct {
	Track    Track   `json:"track"`
	Row      int     `json:"row"`
	Distance float64 `json:"distance"`
}

// TrainStats summarizes the last training run.
type TrainStats struct {
	RecordsRead int   `json:"records_read"`
	RowsKept    int   `json:"rows_kept"`
	RowsDropped int   `json:"rows_dropped"`
	Dimension   int   `json:"dimension"`
	KDefault    int   `json:"k_default"`
	TrainedAt   int64 `json:"trained_at"`
}

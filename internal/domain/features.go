package domain

// FeatureColumns lists the audio attributes that make up a FeatureVector,
// in canonical order. The builder and every query must use this order.
var FeatureColumns = []string{
	"acousticness",
	"danceability",
	"duration_ms",
	"energy",
	"instrumentalness",
	"key",
	"liveness",
	"loudness",
	"mode",
	"speechiness",
	"tempo",
	"time_signature",
	"valence",
}

// FeatureDim is the dimensionality of a FeatureVector.
var FeatureDim = len(FeatureColumns)

// FeatureVector holds one track's audio features in FeatureColumns order.
type FeatureVector []float64

// FeatureMatrix is the cleaned output of the feature builder.
// Rows, IDs and SourceRows are parallel slices.
type FeatureMatrix struct {
	Rows       []FeatureVector
	IDs        []string
	SourceRows []int
}

// Len returns the number of rows.
func (m FeatureMatrix) Len() int {
	return len(m.Rows)
}

// Dim returns the row dimensionality, or 0 for an empty matrix.
func (m FeatureMatrix) Dim() int {
	if len(m.Rows) == 0 {
		return 0
	}
	return len(m.Rows[0])
}

// AudioFeatures is the named form of a FeatureVector as catalog providers return it.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	DurationMs       float64 `json:"duration_ms"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Key              float64 `json:"key"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Mode             float64 `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    float64 `json:"time_signature"`
	Valence          float64 `json:"valence"`
}

// Vector returns the features in FeatureColumns order.
func (f AudioFeatures) Vector() FeatureVector {
	return FeatureVector{
		f.Acousticness,
		f.Danceability,
		f.DurationMs,
		f.Energy,
		f.Instrumentalness,
		f.Key,
		f.Liveness,
		f.Loudness,
		f.Mode,
		f.Speechiness,
		f.Tempo,
		f.TimeSignature,
		f.Valence,
	}
}

// AudioFeaturesFromVector is the inverse of AudioFeatures.Vector.
func AudioFeaturesFromVector(id string, v FeatureVector) (AudioFeatures, error) {
	if len(v) != FeatureDim {
		return AudioFeatures{}, &DimensionMismatchError{Expected: FeatureDim, Actual: len(v)}
	}
	return AudioFeatures{
		ID:               id,
		Acousticness:     v[0],
		Danceability:     v[1],
		DurationMs:       v[2],
		Energy:           v[3],
		Instrumentalness: v[4],
		Key:              v[5],
		Liveness:         v[6],
		Loudness:         v[7],
		Mode:             v[8],
		Speechiness:      v[9],
		Tempo:            v[10],
		TimeSignature:    v[11],
		Valence:          v[12],
	}, nil
}

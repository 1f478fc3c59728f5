package features

import (
	"math"
	"strconv"
	"strings"

	"songrec/internal/domain"
)

// naTokens are the cell values treated as missing: the default NA strings
// of the pandas CSV reader.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// Builder turns raw tabular records into a FeatureMatrix.
type Builder struct {
	columns  []string
	idColumn string
}

// NewBuilder creates a builder selecting the canonical feature columns.
// idColumn names the identifier column; when it is empty or absent from the
// input, the source record number is used as the identifier.
func NewBuilder(idColumn string) *Builder {
	return &Builder{
		columns:  domain.FeatureColumns,
		idColumn: idColumn,
	}
}

// BuildStats describes what Build kept and dropped.
type BuildStats struct {
	RecordsRead int
	RowsKept    int
	RowsDropped int
}

// Build selects the feature columns by name, drops every record with a
// missing feature value and returns the surviving rows in input order.
func (b *Builder) Build(table domain.Table) (domain.FeatureMatrix, BuildStats, error) {
	positions := make([]int, len(b.columns))
	var missing []string
	for i, name := range b.columns {
		positions[i] = table.ColumnIndex(name)
		if positions[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return domain.FeatureMatrix{}, BuildStats{}, &domain.SchemaError{Missing: missing}
	}

	idPos := -1
	if b.idColumn != "" {
		idPos = table.ColumnIndex(b.idColumn)
	}

	stats := BuildStats{RecordsRead: len(table.Rows)}
	matrix := domain.FeatureMatrix{
		Rows:       make([]domain.FeatureVector, 0, len(table.Rows)),
		IDs:        make([]string, 0, len(table.Rows)),
		SourceRows: make([]int, 0, len(table.Rows)),
	}

	for r, record := range table.Rows {
		vec, complete, err := b.extract(r, record, positions)
		if err != nil {
			return domain.FeatureMatrix{}, BuildStats{}, err
		}
		if !complete {
			stats.RowsDropped++
			continue
		}

		id := strconv.Itoa(r)
		if idPos >= 0 && idPos < len(record) {
			id = strings.TrimSpace(record[idPos])
		}

		matrix.Rows = append(matrix.Rows, vec)
		matrix.IDs = append(matrix.IDs, id)
		matrix.SourceRows = append(matrix.SourceRows, r)
	}

	stats.RowsKept = len(matrix.Rows)
	return matrix, stats, nil
}

// extract reads the designated cells of one record. A record missing any
// of them is reported incomplete before any cell is parsed; a short record
// counts as missing its trailing cells.
func (b *Builder) extract(r int, record []string, positions []int) (domain.FeatureVector, bool, error) {
	for _, pos := range positions {
		if pos >= len(record) || isMissing(strings.TrimSpace(record[pos])) {
			return nil, false, nil
		}
	}

	vec := make(domain.FeatureVector, len(positions))
	for i, pos := range positions {
		cell := strings.TrimSpace(record[pos])
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsInf(v, 0) {
			return nil, false, &domain.ValueError{Record: r, Column: b.columns[i], Value: cell}
		}
		vec[i] = v
	}
	return vec, true, nil
}

func isMissing(cell string) bool {
	if _, ok := naTokens[cell]; ok {
		return true
	}
	return strings.EqualFold(cell, "nan")
}

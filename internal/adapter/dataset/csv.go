package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"songrec/internal/domain"
	"songrec/internal/logging"
)

// ProgressFunc is called after each file finishes loading.
type ProgressFunc func(done, total int, path string)

// Loader reads delimited dataset files into a single Table.
type Loader struct {
	delimiter   rune
	concurrency int
}

// NewLoader creates a loader. An empty delimiter means comma.
func NewLoader(delimiter string, concurrency int) (*Loader, error) {
	d := ','
	if delimiter != "" {
		r, size := utf8.DecodeRuneInString(delimiter)
		if size != len(delimiter) || r == '"' || r == '\r' || r == '\n' {
			return nil, fmt.Errorf("invalid delimiter %q", delimiter)
		}
		d = r
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Loader{delimiter: d, concurrency: concurrency}, nil
}

// ReadTable reads one delimited stream. The first record is the header.
func (l *Loader) ReadTable(r io.Reader) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = l.delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return domain.Table{}, nil
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read records: %w", err)
	}

	return domain.Table{Columns: header, Rows: rows}, nil
}

// ReadFile reads a single dataset file.
func (l *Loader) ReadFile(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer f.Close()

	t, err := l.ReadTable(f)
	if err != nil {
		return domain.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Load reads files concurrently and concatenates them in the given order.
// Every file must carry the same set of columns; rows of later files are
// realigned to the first file's header.
func (l *Loader) Load(ctx context.Context, files []FileInfo, progress ProgressFunc) (domain.Table, error) {
	tables := make([]domain.Table, len(files))

	var (
		mu   sync.Mutex
		done int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := l.ReadFile(file.Path)
			if err != nil {
				return err
			}
			tables[i] = t

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(files), file.Path)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Table{}, err
	}

	return Merge(files, tables)
}

// Merge concatenates tables, aligning columns by name to the first table
// with a header. Empty files are skipped.
func Merge(files []FileInfo, tables []domain.Table) (domain.Table, error) {
	files, tables = withHeaders(files, tables)
	if len(tables) == 0 {
		return domain.Table{}, nil
	}

	merged := domain.Table{Columns: tables[0].Columns}
	total := 0
	for _, t := range tables {
		total += len(t.Rows)
	}
	merged.Rows = make([][]string, 0, total)
	merged.Rows = append(merged.Rows, tables[0].Rows...)

	for i := 1; i < len(tables); i++ {
		t := tables[i]
		if len(t.Columns) != len(merged.Columns) {
			return domain.Table{}, fmt.Errorf("%s: header has %d columns, expected %d", files[i].Path, len(t.Columns), len(merged.Columns))
		}

		perm := make([]int, len(merged.Columns))
		aligned := true
		for j, name := range merged.Columns {
			perm[j] = t.ColumnIndex(name)
			if perm[j] < 0 {
				return domain.Table{}, fmt.Errorf("%s: missing column %q present in %s", files[i].Path, name, files[0].Path)
			}
			if perm[j] != j {
				aligned = false
			}
		}

		if aligned {
			merged.Rows = append(merged.Rows, t.Rows...)
			continue
		}
		for _, rec := range t.Rows {
			out := make([]string, len(perm))
			for j, p := range perm {
				if p < len(rec) {
					out[j] = rec[p]
				}
			}
			merged.Rows = append(merged.Rows, out)
		}
	}

	return merged, nil
}

func withHeaders(files []FileInfo, tables []domain.Table) ([]FileInfo, []domain.Table) {
	keptFiles := make([]FileInfo, 0, len(files))
	keptTables := make([]domain.Table, 0, len(tables))
	for i, t := range tables {
		if len(t.Columns) == 0 {
			logging.Warn().Str("file", files[i].Path).Msg("skipping empty dataset file")
			continue
		}
		keptFiles = append(keptFiles, files[i])
		keptTables = append(keptTables, t)
	}
	return keptFiles, keptTables
}

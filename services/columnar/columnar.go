// Package columnar writes a star schema build to parquet files laid
// out for a folder data source: dimensions as single files, facts
// partitioned by season.
package columnar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"uefadata-backend/services/starschema"

	parquet "github.com/parquet-go/parquet-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/columnar")

// WriteError is fatal: a half-written output directory must not be
// handed to the dashboard.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

type Writer struct {
	root string
}

func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// writeTable writes rows to one parquet file under the output root,
// through a temp file in the target directory so a crash never leaves
// a partial file at the final path.
func writeTable[T any](w *Writer, relPath string, rows []T) error {
	path := filepath.Join(w.root, relPath)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &WriteError{Path: relPath, Err: err}
	}

	f, err := os.CreateTemp(dir, ".part-*")
	if err != nil {
		return &WriteError{Path: relPath, Err: err}
	}
	defer os.Remove(f.Name())

	pw := parquet.NewWriter(f, parquet.SchemaOf(new(T)), parquet.Compression(&parquet.Snappy))
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.Close()
			f.Close()
			return &WriteError{Path: relPath, Err: err}
		}
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return &WriteError{Path: relPath, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: relPath, Err: err}
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return &WriteError{Path: relPath, Err: err}
	}
	return nil
}

// writePartitioned splits fact rows by season and writes one file per
// partition.
func writePartitioned[T any](w *Writer, table string, rows []T, season func(T) int32) ([]string, error) {
	bySeason := map[int32][]T{}
	for _, row := range rows {
		bySeason[season(row)] = append(bySeason[season(row)], row)
	}

	seasons := make([]int32, 0, len(bySeason))
	for s := range bySeason {
		seasons = append(seasons, s)
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i] < seasons[j] })

	var written []string
	for _, s := range seasons {
		relPath := filepath.Join(table, fmt.Sprintf("season=%d", s), "part-0000.parquet")
		if err := writeTable(w, relPath, bySeason[s]); err != nil {
			return written, err
		}
		written = append(written, relPath)
	}
	return written, nil
}

// WriteSchema writes every table of the build and returns the relative
// paths it wrote.
func (w *Writer) WriteSchema(ctx context.Context, schema *starschema.Schema) ([]string, error) {
	_, span := tracer.Start(ctx, "WriteSchema")
	defer span.End()

	var written []string
	fail := func(err error) ([]string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return written, err
	}

	dims := []struct {
		relPath string
		write   func() error
	}{
		{"dim_country.parquet", func() error { return writeTable(w, "dim_country.parquet", schema.Countries) }},
		{"dim_club.parquet", func() error { return writeTable(w, "dim_club.parquet", schema.Clubs) }},
		{"dim_competition.parquet", func() error { return writeTable(w, "dim_competition.parquet", schema.Competitions) }},
		{"dim_stage.parquet", func() error { return writeTable(w, "dim_stage.parquet", schema.Stages) }},
		{"dim_season.parquet", func() error { return writeTable(w, "dim_season.parquet", schema.Seasons) }},
	}
	for _, dim := range dims {
		if err := dim.write(); err != nil {
			return fail(err)
		}
		written = append(written, dim.relPath)
	}

	matchFiles, err := writePartitioned(w, "fact_match", schema.Matches,
		func(r starschema.MatchRow) int32 { return r.SeasonKey })
	written = append(written, matchFiles...)
	if err != nil {
		return fail(err)
	}

	clubSeasonFiles, err := writePartitioned(w, "fact_club_season", schema.ClubSeasons,
		func(r starschema.ClubSeasonRow) int32 { return r.SeasonKey })
	written = append(written, clubSeasonFiles...)
	if err != nil {
		return fail(err)
	}

	coefficientFiles, err := writePartitioned(w, "fact_coefficient", schema.Coefficients,
		func(r starschema.CoefficientRow) int32 { return r.SeasonKey })
	written = append(written, coefficientFiles...)
	if err != nil {
		return fail(err)
	}

	span.SetAttributes(attribute.Int("files", len(written)))
	return written, nil
}

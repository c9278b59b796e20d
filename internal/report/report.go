// Package report flattens per-band statistics into tabular rows and
// writes them to CSV or Parquet.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/cloudconv/internal/errors"
	"github.com/xtxerr/cloudconv/internal/stats"
)

// Format selects the tabular output encoding.
type Format int

const (
	FormatCSV Format = iota
	FormatParquet
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "csv", "":
		return FormatCSV, nil
	case "parquet":
		return FormatParquet, nil
	default:
		return 0, fmt.Errorf("%w: output format %q", errors.ErrUnsupportedFormat, s)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatParquet {
		return "parquet"
	}
	return "csv"
}

func (f Format) String() string { return f.Ext() }

// StatRow is one band's statistics in tabular form. Quartile columns
// carry NaN when quartiles were not computed.
type StatRow struct {
	File  string `parquet:"file,zstd"`
	Name  string `parquet:"name,zstd"`
	DType string `parquet:"dtype,zstd"`

	Mean     float64 `parquet:"mean"`
	Min      float64 `parquet:"min"`
	Max      float64 `parquet:"max"`
	Variance float64 `parquet:"variance"`
	Stdev    float64 `parquet:"stdev"`
	CV       float64 `parquet:"cv"`

	ValidCount   uint64  `parquet:"valid_count"`
	NodataCount  uint64  `parquet:"nodata_count"`
	NaNCount     uint64  `parquet:"nan_count"`
	PercentValid float64 `parquet:"percent_valid"`

	Q1     float64 `parquet:"q1"`
	Median float64 `parquet:"median"`
	Q3     float64 `parquet:"q3"`
}

// Flatten converts one file's per-band statistics into rows.
func Flatten(file string, bands []stats.RasterStats) []StatRow {
	rows := make([]StatRow, 0, len(bands))
	for i := range bands {
		b := &bands[i]
		row := StatRow{
			File:         file,
			Name:         b.Name,
			DType:        b.DType,
			Mean:         b.Mean,
			Min:          b.Min,
			Max:          b.Max,
			Variance:     b.Variance,
			Stdev:        b.Stdev,
			CV:           b.CV,
			ValidCount:   b.ValidCount,
			NodataCount:  b.NodataCount,
			NaNCount:     b.NaNCount,
			PercentValid: b.PercentValid,
			Q1:           math.NaN(),
			Median:       math.NaN(),
			Q3:           math.NaN(),
		}
		if b.HasQuantiles() {
			row.Q1 = *b.Q1
			row.Median = *b.Median
			row.Q3 = *b.Q3
		}
		rows = append(rows, row)
	}
	return rows
}

// Sink writes stat rows to a tabular file.
type Sink struct {
	// Format selects the encoding.
	Format Format

	// Compression names the Parquet codec: zstd, snappy, gzip, lz4,
	// none. Empty means zstd. Ignored for CSV.
	Compression string
}

// Write encodes rows to path.
func (s Sink) Write(path string, rows []StatRow) error {
	switch s.Format {
	case FormatParquet:
		return WriteParquet(path, rows, parseCodec(s.Compression))
	default:
		return WriteCSV(path, rows)
	}
}

// parseCodec maps a compression name to a parquet-go codec. Unknown
// names fall back to zstd.
func parseCodec(name string) compress.Codec {
	switch name {
	case "snappy":
		return &parquet.Snappy
	case "gzip":
		return &parquet.Gzip
	case "lz4":
		return &parquet.Lz4Raw
	case "none":
		return &parquet.Uncompressed
	default:
		return &parquet.Zstd
	}
}

var csvHeader = []string{
	"file", "name", "dtype",
	"mean", "min", "max", "variance", "stdev", "cv",
	"valid_count", "nodata_count", "nan_count", "percent_valid",
	"q1", "median", "q3",
}

// WriteCSV writes rows as CSV with a header line.
func WriteCSV(path string, rows []StatRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		record := []string{
			r.File, r.Name, r.DType,
			formatFloat(r.Mean), formatFloat(r.Min), formatFloat(r.Max),
			formatFloat(r.Variance), formatFloat(r.Stdev), formatFloat(r.CV),
			strconv.FormatUint(r.ValidCount, 10),
			strconv.FormatUint(r.NodataCount, 10),
			strconv.FormatUint(r.NaNCount, 10),
			formatFloat(r.PercentValid),
			formatFloat(r.Q1), formatFloat(r.Median), formatFloat(r.Q3),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

// formatFloat renders a float column. NaN cells are left empty so the
// file loads cleanly into dataframe tooling.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteParquet writes rows as a compressed Parquet file.
func WriteParquet(path string, rows []StatRow, codec compress.Codec) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	writer := parquet.NewGenericWriter[StatRow](f, parquet.Compression(codec))

	if _, err := writer.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return f.Close()
}

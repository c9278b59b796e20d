package report

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/cloudconv/internal/errors"
	"github.com/xtxerr/cloudconv/internal/stats"
)

func f64(v float64) *float64 { return &v }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"", FormatCSV, false},
		{"parquet", FormatParquet, false},
		{"xlsx", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrUnsupportedFormat) {
				t.Errorf("ParseFormat(%q): expected ErrUnsupportedFormat, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParseCodecFallsBackToZstd(t *testing.T) {
	for _, name := range []string{"", "zstd", "bogus"} {
		if got := parseCodec(name); got != &parquet.Zstd {
			t.Errorf("parseCodec(%q): expected zstd codec", name)
		}
	}
	if got := parseCodec("none"); got != &parquet.Uncompressed {
		t.Error("parseCodec(none): expected uncompressed codec")
	}
}

func TestFlatten(t *testing.T) {
	bands := []stats.RasterStats{
		{
			Name: "band_1", DType: "Float32",
			Mean: 1.5, Min: 1, Max: 2,
			ValidCount: 4, PercentValid: 100,
			Q1: f64(1), Median: f64(1.5), Q3: f64(2),
		},
		{
			Name: "band_2", DType: "Float32",
			Mean: 3, Min: 3, Max: 3,
			ValidCount: 2, NodataCount: 2, PercentValid: 50,
		},
	}

	rows := Flatten("/data/x.tif", bands)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].File != "/data/x.tif" || rows[0].Name != "band_1" {
		t.Errorf("unexpected first row identity: %+v", rows[0])
	}
	if rows[0].Q1 != 1 || rows[0].Median != 1.5 || rows[0].Q3 != 2 {
		t.Errorf("expected quartiles carried over, got %+v", rows[0])
	}

	// Band without quartiles flattens to NaN cells.
	if !math.IsNaN(rows[1].Q1) || !math.IsNaN(rows[1].Median) || !math.IsNaN(rows[1].Q3) {
		t.Errorf("expected NaN quartiles, got %+v", rows[1])
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qaqc.csv")

	rows := Flatten("a.tif", []stats.RasterStats{
		{Name: "band_1", DType: "Float32", Mean: 2.5, Min: 1, Max: 4, ValidCount: 4, PercentValid: 100},
	})
	if err := WriteCSV(path, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	if len(records[0]) != 16 {
		t.Errorf("expected 16 columns, got %d", len(records[0]))
	}
	if records[0][0] != "file" || records[0][15] != "q3" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][1] != "band_1" || records[1][3] != "2.5" {
		t.Errorf("unexpected row: %v", records[1])
	}
	// Quartiles not computed, cells empty.
	if records[1][13] != "" {
		t.Errorf("expected empty q1 cell, got %q", records[1][13])
	}
}

func TestWriteDispatch(t *testing.T) {
	dir := t.TempDir()
	rows := Flatten("a.tif", []stats.RasterStats{{Name: "band_1"}})

	csvPath := filepath.Join(dir, "out.csv")
	if err := (Sink{Format: FormatCSV}).Write(csvPath, rows); err != nil {
		t.Fatalf("Write csv: %v", err)
	}
	pqPath := filepath.Join(dir, "out.parquet")
	if err := (Sink{Format: FormatParquet, Compression: "snappy"}).Write(pqPath, rows); err != nil {
		t.Fatalf("Write parquet: %v", err)
	}

	for _, p := range []string{csvPath, pqPath} {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Errorf("expected non-empty output at %s (err=%v)", p, err)
		}
	}
}

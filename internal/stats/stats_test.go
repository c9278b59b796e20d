package stats

import (
	"errors"
	"math"
	"testing"
)

// memSource serves a band from a row-major slice, for engine tests.
type memSource[T Float] struct {
	desc BandDescriptor
	data []T
}

func (m *memSource[T]) Descriptor() BandDescriptor { return m.desc }

func (m *memSource[T]) ReadRow(row int) ([]T, error) {
	start := row * m.desc.Cols
	return m.data[start : start+m.desc.Cols], nil
}

func (m *memSource[T]) ReadBlock(x, y, w, h int) ([]T, error) {
	out := make([]T, 0, w*h)
	for r := y; r < y+h; r++ {
		start := r*m.desc.Cols + x
		out = append(out, m.data[start:start+w]...)
	}
	return out, nil
}

func (m *memSource[T]) ReadAll() ([]T, error) {
	return m.data, nil
}

func newDesc(cols, rows, blockW, blockH int, nodata *float64) BandDescriptor {
	return BandDescriptor{
		Name:   "band_1",
		DType:  "Float32",
		Cols:   cols,
		Rows:   rows,
		BlockW: blockW,
		BlockH: blockH,
		NoData: nodata,
	}
}

func f64ptr(v float64) *float64 { return &v }

func TestCompute_CleanBand(t *testing.T) {
	src := &memSource[float32]{
		desc: newDesc(3, 2, 3, 1, nil),
		data: []float32{1, 2, 3, 4, 5, 6},
	}

	s, err := Compute[float32](src, Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if s.ValidCount != 6 {
		t.Errorf("expected valid=6, got %d", s.ValidCount)
	}
	if s.NodataCount != 0 || s.NaNCount != 0 {
		t.Errorf("expected no nodata/nan, got %d/%d", s.NodataCount, s.NaNCount)
	}
	if s.PercentValid != 100.0 {
		t.Errorf("expected percent_valid=100, got %f", s.PercentValid)
	}
	if math.Abs(s.Mean-3.5) > 1e-9 {
		t.Errorf("expected mean=3.5, got %f", s.Mean)
	}
	if s.Min != 1 || s.Max != 6 {
		t.Errorf("expected min=1 max=6, got %f/%f", s.Min, s.Max)
	}
}

func TestCompute_ConstantBand(t *testing.T) {
	tests := []struct {
		name string
		c    float32
	}{
		{"nonzero", 7.5},
		{"zero", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]float32, 12)
			for i := range data {
				data[i] = tt.c
			}
			src := &memSource[float32]{desc: newDesc(4, 3, 4, 1, nil), data: data}

			s, err := Compute[float32](src, Options{})
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}

			if math.Abs(s.Mean-float64(tt.c)) > 1e-9 {
				t.Errorf("expected mean=%f, got %f", tt.c, s.Mean)
			}
			if s.Variance != 0 || s.Stdev != 0 {
				t.Errorf("expected zero variance/stdev, got %f/%f", s.Variance, s.Stdev)
			}
			if s.CV != 0 {
				t.Errorf("expected cv=0, got %f", s.CV)
			}
		})
	}
}

func TestCompute_Classification2x2(t *testing.T) {
	// 2x2 band [1.0, 2.0, NaN, 9.0] with nodata=9.0.
	src := &memSource[float32]{
		desc: newDesc(2, 2, 2, 1, f64ptr(9.0)),
		data: []float32{1.0, 2.0, float32(math.NaN()), 9.0},
	}

	s, err := Compute[float32](src, Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if s.ValidCount != 2 || s.NaNCount != 1 || s.NodataCount != 1 {
		t.Errorf("expected counts 2/1/1, got %d/%d/%d", s.ValidCount, s.NaNCount, s.NodataCount)
	}
	if math.Abs(s.Mean-1.5) > 1e-9 {
		t.Errorf("expected mean=1.5, got %f", s.Mean)
	}
	if s.Min != 1.0 || s.Max != 2.0 {
		t.Errorf("expected min=1 max=2, got %f/%f", s.Min, s.Max)
	}
	if math.Abs(s.Variance-0.25) > 1e-9 {
		t.Errorf("expected variance=0.25, got %f", s.Variance)
	}
	if math.Abs(s.Stdev-0.5) > 1e-9 {
		t.Errorf("expected stdev=0.5, got %f", s.Stdev)
	}
}

func TestCompute_AccountingAcrossStrategies(t *testing.T) {
	// 5x5 band with a mix of valid, nodata, and NaN samples. Dimensions
	// deliberately not divisible by the block size so edge clipping runs.
	nan := float32(math.NaN())
	data := []float32{
		1, 2, 3, 4, 5,
		9, 9, nan, 8, 7,
		6, 5, 4, 3, 2,
		nan, 1, 9, 2, 3,
		4, 5, 6, 7, 8,
	}

	strategies := []struct {
		name           string
		blockW, blockH int
	}{
		{"row-wise", 5, 1},
		{"block-tiled", 2, 2},
	}

	var results []RasterStats
	for _, st := range strategies {
		t.Run(st.name, func(t *testing.T) {
			src := &memSource[float32]{
				desc: newDesc(5, 5, st.blockW, st.blockH, f64ptr(9.0)),
				data: data,
			}
			s, err := Compute[float32](src, Options{})
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			total := s.ValidCount + s.NodataCount + s.NaNCount
			if total != 25 {
				t.Errorf("expected exact accounting of 25 samples, got %d", total)
			}
			if s.NaNCount != 2 || s.NodataCount != 3 {
				t.Errorf("expected nan=2 nodata=3, got %d/%d", s.NaNCount, s.NodataCount)
			}
			results = append(results, s)
		})
	}

	if len(results) == 2 {
		a, b := results[0], results[1]
		if a.ValidCount != b.ValidCount || a.Mean != b.Mean ||
			a.Min != b.Min || a.Max != b.Max || a.Variance != b.Variance {
			t.Errorf("strategies disagree: %+v vs %+v", a, b)
		}
	}
}

func TestCompute_ZeroValidSamples(t *testing.T) {
	src := &memSource[float32]{
		desc: newDesc(2, 2, 2, 1, f64ptr(5.0)),
		data: []float32{5, 5, 5, 5},
	}

	s, err := Compute[float32](src, Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if s.ValidCount != 0 || s.NodataCount != 4 {
		t.Errorf("expected valid=0 nodata=4, got %d/%d", s.ValidCount, s.NodataCount)
	}
	if !math.IsNaN(s.Mean) {
		t.Errorf("expected NaN mean for empty band, got %f", s.Mean)
	}
	if s.PercentValid != 0 {
		t.Errorf("expected percent_valid=0, got %f", s.PercentValid)
	}
}

func TestCompute_ExactQuantiles(t *testing.T) {
	// Values 1..100 in a 10x10 band.
	data := make([]float32, 100)
	for i := range data {
		data[i] = float32(i + 1)
	}
	src := &memSource[float32]{desc: newDesc(10, 10, 10, 1, nil), data: data}

	s, err := Compute[float32](src, Options{ExactQuantiles: true})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if !s.HasQuantiles() {
		t.Fatal("expected quantiles")
	}
	// Nearest rank: idx = round(99*p).
	if *s.Q1 != 26 {
		t.Errorf("expected q1=26, got %f", *s.Q1)
	}
	if *s.Median != 51 {
		t.Errorf("expected median=51, got %f", *s.Median)
	}
	if *s.Q3 != 75 {
		t.Errorf("expected q3=75, got %f", *s.Q3)
	}

	// Idempotence: a second run over the same data must agree exactly.
	s2, err := Compute[float32](src, Options{ExactQuantiles: true})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if *s.Q1 != *s2.Q1 || *s.Median != *s2.Median || *s.Q3 != *s2.Q3 {
		t.Error("quantile computation is not idempotent")
	}
}

func TestCompute_ExactQuantilesExcludeInvalid(t *testing.T) {
	nan := float32(math.NaN())
	src := &memSource[float32]{
		desc: newDesc(3, 2, 3, 1, f64ptr(-999)),
		data: []float32{nan, 1, 2, 3, -999, -999},
	}

	s, err := Compute[float32](src, Options{ExactQuantiles: true})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if s.ValidCount != 3 {
		t.Fatalf("expected valid=3, got %d", s.ValidCount)
	}
	if *s.Median != 2 {
		t.Errorf("expected median=2, got %f", *s.Median)
	}
}

func TestCompute_ApproxQuantiles(t *testing.T) {
	data := make([]float64, 1000)
	for i := range data {
		data[i] = float64(i + 1)
	}
	src := &memSource[float64]{
		desc: BandDescriptor{Name: "band_1", DType: "Float64", Cols: 100, Rows: 10, BlockW: 100, BlockH: 1},
		data: data,
	}

	s, err := Compute[float64](src, Options{ApproxQuantiles: true})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if !s.HasQuantiles() {
		t.Fatal("expected quantiles")
	}
	// DDSketch default accuracy is 1% relative.
	if math.Abs(*s.Median-500) > 10 {
		t.Errorf("expected median near 500, got %f", *s.Median)
	}
	if math.Abs(*s.Q1-250) > 6 {
		t.Errorf("expected q1 near 250, got %f", *s.Q1)
	}
	if math.Abs(*s.Q3-750) > 16 {
		t.Errorf("expected q3 near 750, got %f", *s.Q3)
	}
}

func TestCompute_Float64Band(t *testing.T) {
	src := &memSource[float64]{
		desc: BandDescriptor{Name: "band_1", DType: "Float64", Cols: 2, Rows: 2, BlockW: 2, BlockH: 2},
		data: []float64{1, 2, 3, 4},
	}

	s, err := Compute[float64](src, Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if s.ValidCount != 4 || math.Abs(s.Mean-2.5) > 1e-12 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

// errSource fails every read.
type errSource struct{ desc BandDescriptor }

func (e *errSource) Descriptor() BandDescriptor { return e.desc }

func (e *errSource) ReadRow(int) ([]float32, error) { return nil, errRead }

func (e *errSource) ReadBlock(int, int, int, int) ([]float32, error) { return nil, errRead }

func (e *errSource) ReadAll() ([]float32, error) { return nil, errRead }

var errRead = errors.New("boom")

func TestCompute_ReadErrorPropagates(t *testing.T) {
	src := &errSource{desc: newDesc(4, 4, 4, 1, nil)}
	if _, err := Compute[float32](src, Options{}); !errors.Is(err, errRead) {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestPercentile_NearestRank(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		p    float64
		want float64
	}{
		{0.0, 10},
		{0.25, 20},
		{0.5, 30},
		{0.75, 40},
		{1.0, 50},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(p=%.2f): expected %f, got %f", tt.p, tt.want, got)
		}
	}

	if !math.IsNaN(percentile(nil, 0.5)) {
		t.Error("expected NaN for empty input")
	}
}

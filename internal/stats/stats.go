// Package stats implements the streaming raster statistics engine.
//
// The engine reduces one band's full pixel population into a RasterStats
// record in a single logical pass. Every sample is classified into exactly
// one of {valid, nodata, non-finite}; valid samples feed running
// sum/sum-of-squares accumulators so that mean and variance are available
// without a second pass, keeping peak memory bounded by one row or one
// block regardless of band size.
//
// The read strategy is chosen once per band:
//   - exact quantiles requested: materialize the whole band and sort the
//     valid samples (quartiles need a global ordering)
//   - block height 1 (row-major layout): one scanline at a time
//   - otherwise (tiled layout): the native block grid, edge blocks clipped
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/DataDog/sketches-go/ddsketch"
)

// nodataEpsilon is the absolute tolerance used when comparing a sample
// against the band's declared nodata value.
const nodataEpsilon = 1e-6

// Float constrains the element types a band buffer can carry. 64-bit
// float bands read as float64, everything else narrows to float32.
type Float interface {
	~float32 | ~float64
}

// BandDescriptor describes one raster band at statistics-start.
// Derived once per band and immutable afterwards.
type BandDescriptor struct {
	// Name identifies the band within its file (e.g. "band_1").
	Name string

	// DType is the on-disk element type label (e.g. "Float32").
	DType string

	// Cols and Rows are the band dimensions in pixels.
	Cols int
	Rows int

	// BlockW and BlockH describe the native on-disk chunking.
	// BlockH == 1 signals a row-major, non-tiled layout.
	BlockW int
	BlockH int

	// NoData is the declared nodata sentinel, nil if none.
	NoData *float64
}

// Source yields typed windows of a single band in raster scan order.
// Implementations may reuse the returned buffer between calls; the
// engine consumes each window before requesting the next.
type Source[T Float] interface {
	Descriptor() BandDescriptor

	// ReadRow returns one scanline.
	ReadRow(row int) ([]T, error)

	// ReadBlock returns a sub-region. Width and height are already
	// clipped by the caller to stay inside the band bounds.
	ReadBlock(x, y, width, height int) ([]T, error)

	// ReadAll materializes the whole band.
	ReadAll() ([]T, error)
}

// Options controls optional quartile computation.
type Options struct {
	// ExactQuantiles materializes and sorts the band to compute
	// Q1/median/Q3 by nearest-rank interpolation.
	ExactQuantiles bool

	// ApproxQuantiles estimates quartiles from a DDSketch fed during
	// the bounded-memory pass. Ignored when ExactQuantiles is set.
	ApproxQuantiles bool

	// SketchAccuracy is the DDSketch relative accuracy.
	// Zero means the default of 1%.
	SketchAccuracy float64
}

// RasterStats is the summary record for one band. Created by Compute,
// immutable thereafter.
type RasterStats struct {
	Name  string
	DType string

	Mean     float64
	Min      float64
	Max      float64
	Variance float64
	Stdev    float64
	CV       float64

	ValidCount   uint64
	NodataCount  uint64
	NaNCount     uint64
	PercentValid float64

	// Quartiles, nil unless requested.
	Q1     *float64
	Median *float64
	Q3     *float64
}

// HasQuantiles returns true if quartiles were computed.
func (s *RasterStats) HasQuantiles() bool {
	return s.Q1 != nil && s.Median != nil && s.Q3 != nil
}

// accumulator holds the running state of one band pass. All arithmetic
// is done in float64 regardless of the sample element type.
type accumulator struct {
	valid     uint64
	nodata    uint64
	nonFinite uint64

	sum   float64
	sumSq float64
	min   float64
	max   float64

	nodataVal float64
	hasNodata bool

	sketch *ddsketch.DDSketch
}

func newAccumulator(desc BandDescriptor, sketch *ddsketch.DDSketch) *accumulator {
	a := &accumulator{
		min:    math.MaxFloat64,
		max:    -math.MaxFloat64,
		sketch: sketch,
	}
	if desc.NoData != nil {
		a.nodataVal = *desc.NoData
		a.hasNodata = true
	}
	return a
}

// consume classifies and accumulates one window. Classification order:
// non-finite first, then nodata, then valid.
func consume[T Float](a *accumulator, window []T) {
	for _, v := range window {
		val := float64(v)
		if math.IsNaN(val) || math.IsInf(val, 0) {
			a.nonFinite++
			continue
		}
		if a.hasNodata && math.Abs(val-a.nodataVal) < nodataEpsilon {
			a.nodata++
			continue
		}
		a.valid++
		a.sum += val
		a.sumSq += val * val
		if val < a.min {
			a.min = val
		}
		if val > a.max {
			a.max = val
		}
		if a.sketch != nil {
			a.sketch.Add(val)
		}
	}
}

// result derives the final record. A band with zero valid samples yields
// NaN mean/min/max; callers treat NaN as "no valid data", not a failure.
func (a *accumulator) result(desc BandDescriptor) RasterStats {
	validF := float64(a.valid)

	mean := a.sum / validF
	variance := a.sumSq/validF - mean*mean
	if variance < 0 {
		// Floating-point cancellation can produce a tiny negative value.
		variance = 0
	}
	stdev := math.Sqrt(variance)

	cv := 0.0
	if mean != 0 {
		cv = stdev / mean
	}

	min, max := a.min, a.max
	if a.valid == 0 {
		min, max = math.NaN(), math.NaN()
		cv = 0
		variance = math.NaN()
		stdev = math.NaN()
	}

	total := float64(desc.Cols) * float64(desc.Rows)

	return RasterStats{
		Name:         desc.Name,
		DType:        desc.DType,
		Mean:         mean,
		Min:          min,
		Max:          max,
		Variance:     variance,
		Stdev:        stdev,
		CV:           cv,
		ValidCount:   a.valid,
		NodataCount:  a.nodata,
		NaNCount:     a.nonFinite,
		PercentValid: validF / total * 100.0,
	}
}

// Compute runs the statistics pass over one band.
func Compute[T Float](src Source[T], opts Options) (RasterStats, error) {
	desc := src.Descriptor()

	var sketch *ddsketch.DDSketch
	if opts.ApproxQuantiles && !opts.ExactQuantiles {
		accuracy := opts.SketchAccuracy
		if accuracy <= 0 {
			accuracy = 0.01
		}
		s, err := ddsketch.NewDefaultDDSketch(accuracy)
		if err != nil {
			return RasterStats{}, fmt.Errorf("create sketch: %w", err)
		}
		sketch = s
	}

	acc := newAccumulator(desc, sketch)

	switch {
	case opts.ExactQuantiles:
		return computeExact(src, desc, acc)
	case desc.BlockH == 1:
		if err := computeRows(src, desc, acc); err != nil {
			return RasterStats{}, err
		}
	default:
		if err := computeBlocks(src, desc, acc); err != nil {
			return RasterStats{}, err
		}
	}

	result := acc.result(desc)
	if sketch != nil && acc.valid > 0 {
		q1, err1 := sketch.GetValueAtQuantile(0.25)
		med, err2 := sketch.GetValueAtQuantile(0.50)
		q3, err3 := sketch.GetValueAtQuantile(0.75)
		if err1 == nil && err2 == nil && err3 == nil {
			result.Q1, result.Median, result.Q3 = &q1, &med, &q3
		}
	}
	return result, nil
}

// computeRows iterates scanlines; peak memory is one row.
func computeRows[T Float](src Source[T], desc BandDescriptor, acc *accumulator) error {
	for row := 0; row < desc.Rows; row++ {
		buf, err := src.ReadRow(row)
		if err != nil {
			return fmt.Errorf("read row %d: %w", row, err)
		}
		consume(acc, buf)
	}
	return nil
}

// computeBlocks iterates the native block grid, clipping width and
// height at the final column and row of blocks; peak memory is one block.
func computeBlocks[T Float](src Source[T], desc BandDescriptor, acc *accumulator) error {
	for y := 0; y < desc.Rows; y += desc.BlockH {
		for x := 0; x < desc.Cols; x += desc.BlockW {
			w := desc.BlockW
			if x+w > desc.Cols {
				w = desc.Cols - x
			}
			h := desc.BlockH
			if y+h > desc.Rows {
				h = desc.Rows - y
			}
			buf, err := src.ReadBlock(x, y, w, h)
			if err != nil {
				return fmt.Errorf("read block (%d,%d): %w", x, y, err)
			}
			consume(acc, buf)
		}
	}
	return nil
}

// computeExact materializes the band, keeps the valid samples, and
// derives quartiles from the sorted set.
func computeExact[T Float](src Source[T], desc BandDescriptor, acc *accumulator) (RasterStats, error) {
	buf, err := src.ReadAll()
	if err != nil {
		return RasterStats{}, fmt.Errorf("read band: %w", err)
	}

	valid := make([]float64, 0, len(buf))
	for _, v := range buf {
		val := float64(v)
		if math.IsNaN(val) || math.IsInf(val, 0) {
			acc.nonFinite++
			continue
		}
		if acc.hasNodata && math.Abs(val-acc.nodataVal) < nodataEpsilon {
			acc.nodata++
			continue
		}
		acc.valid++
		acc.sum += val
		acc.sumSq += val * val
		if val < acc.min {
			acc.min = val
		}
		if val > acc.max {
			acc.max = val
		}
		valid = append(valid, val)
	}

	result := acc.result(desc)

	if len(valid) > 0 {
		sort.Float64s(valid)
		q1 := percentile(valid, 0.25)
		med := percentile(valid, 0.50)
		q3 := percentile(valid, 0.75)
		result.Q1, result.Median, result.Q3 = &q1, &med, &q3
	}

	return result, nil
}

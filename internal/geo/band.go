package geo

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/xtxerr/cloudconv/internal/errors"
	"github.com/xtxerr/cloudconv/internal/stats"
)

// Band wraps one raster band.
type Band struct {
	band  godal.Band
	index int
}

// Describe derives the band's descriptor: size, native block layout,
// element type label, and nodata value if declared.
func (b *Band) Describe() stats.BandDescriptor {
	st := b.band.Structure()

	desc := stats.BandDescriptor{
		Name:   fmt.Sprintf("band_%d", b.index),
		DType:  st.DataType.String(),
		Cols:   st.SizeX,
		Rows:   st.SizeY,
		BlockW: st.BlockSizeX,
		BlockH: st.BlockSizeY,
	}
	if nd, ok := b.band.NoData(); ok {
		desc.NoData = &nd
	}
	return desc
}

// Is64Bit reports whether the band's element type is 64-bit float.
// Only those bands read as float64 buffers; every other type narrows
// to float32, matching common GIS tooling precision.
func (b *Band) Is64Bit() bool {
	return b.band.Structure().DataType == godal.Float64
}

// WindowSource adapts a Band to the statistics engine's Source
// interface. The row buffer is reused between ReadRow calls; callers
// consume each window before requesting the next.
type WindowSource[T stats.Float] struct {
	band   godal.Band
	desc   stats.BandDescriptor
	rowBuf []T
}

// NewWindowSource builds a typed window source for one band.
func NewWindowSource[T stats.Float](b *Band) *WindowSource[T] {
	return &WindowSource[T]{band: b.band, desc: b.Describe()}
}

// Descriptor returns the band descriptor.
func (s *WindowSource[T]) Descriptor() stats.BandDescriptor {
	return s.desc
}

// ReadRow reads one scanline. GDAL converts the on-disk element type
// to the buffer's type.
func (s *WindowSource[T]) ReadRow(row int) ([]T, error) {
	if s.rowBuf == nil {
		s.rowBuf = make([]T, s.desc.Cols)
	}
	if err := s.band.Read(0, row, s.rowBuf, s.desc.Cols, 1); err != nil {
		return nil, fmt.Errorf("%w: row %d: %w", errors.ErrBandRead, row, err)
	}
	return s.rowBuf, nil
}

// ReadBlock reads a sub-region. Width and height must already be
// clipped to the band bounds.
func (s *WindowSource[T]) ReadBlock(x, y, width, height int) ([]T, error) {
	buf := make([]T, width*height)
	if err := s.band.Read(x, y, buf, width, height); err != nil {
		return nil, fmt.Errorf("%w: block (%d,%d): %w", errors.ErrBandRead, x, y, err)
	}
	return buf, nil
}

// ReadAll materializes the whole band.
func (s *WindowSource[T]) ReadAll() ([]T, error) {
	buf := make([]T, s.desc.Cols*s.desc.Rows)
	if err := s.band.Read(0, 0, buf, s.desc.Cols, s.desc.Rows); err != nil {
		return nil, fmt.Errorf("%w: full band: %w", errors.ErrBandRead, err)
	}
	return buf, nil
}

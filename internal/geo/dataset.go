// Package geo wraps the GDAL binding behind the narrow surfaces the
// rest of the tool consumes: dataset metadata for `info`, typed band
// window reads for the statistics engine, and create-copy style
// conversion entry points.
package geo

import (
	"fmt"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/xtxerr/cloudconv/internal/errors"
)

var registerOnce sync.Once

// Register loads the GDAL driver registry. Safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// Raster is an opened raster dataset. Not safe for concurrent use;
// each worker opens its own handle.
type Raster struct {
	path string
	ds   *godal.Dataset
}

// OpenRaster opens the dataset at path.
func OpenRaster(path string) (*Raster, error) {
	Register()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrDatasetOpen, path, err)
	}
	if ds.Structure().NBands == 0 {
		ds.Close()
		return nil, fmt.Errorf("%w: %s has no raster bands", errors.ErrDatasetOpen, path)
	}
	return &Raster{path: path, ds: ds}, nil
}

// Close releases the dataset handle.
func (r *Raster) Close() error {
	return r.ds.Close()
}

// Path returns the source path.
func (r *Raster) Path() string {
	return r.path
}

// BandCount returns the number of bands.
func (r *Raster) BandCount() int {
	return r.ds.Structure().NBands
}

// Bands returns accessors for every band, in band-index order.
func (r *Raster) Bands() []Band {
	raw := r.ds.Bands()
	bands := make([]Band, len(raw))
	for i := range raw {
		bands[i] = Band{band: raw[i], index: i + 1}
	}
	return bands
}

// crsName extracts the human-readable name from a WKT projection
// string, i.e. the first quoted token.
func crsName(wkt string) string {
	start := strings.Index(wkt, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(wkt[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return wkt[start+1 : start+1+end]
}

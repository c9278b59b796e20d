package convert

import (
	"context"
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/xtxerr/cloudconv/internal/batch"
	"github.com/xtxerr/cloudconv/internal/errors"
	"github.com/xtxerr/cloudconv/internal/geo"
)

// VectorExtensions is the allow-list for batch GeoParquet conversion.
var VectorExtensions = []string{"gpkg", "json", "geojson", "fgb", "kml", "gpx", "shp"}

// gpqSwitches are the vector-translate options for GeoParquet output.
var gpqSwitches = []string{"-f", "Parquet"}

// ResolveGPQPath determines where the GeoParquet for input is written:
// the explicit output (extension forced to .parquet) or the input path
// with a .parquet extension.
func ResolveGPQPath(input, output string) string {
	if output != "" {
		return withExt(output, ".parquet")
	}
	return withExt(input, ".parquet")
}

// ToGPQ converts one vector file to GeoParquet and returns the output
// path. Geometry and attribute fidelity are the driver's concern; the
// source's layers, features, and fields carry over unchanged.
func ToGPQ(input, output string) (string, error) {
	if !exists(input) {
		return "", fmt.Errorf("input file %s does not exist", input)
	}

	out := ResolveGPQPath(input, output)

	geo.Register()
	ds, err := godal.Open(input)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errors.ErrDatasetOpen, input, err)
	}
	defer ds.Close()

	if len(ds.Layers()) == 0 {
		return "", fmt.Errorf("%w: %s", errors.ErrNoLayers, input)
	}

	gpq, err := ds.VectorTranslate(out, gpqSwitches)
	if err != nil {
		return "", fmt.Errorf("create GeoParquet %s: %w", out, err)
	}
	if err := gpq.Close(); err != nil {
		return "", fmt.Errorf("finalize GeoParquet %s: %w", out, err)
	}

	log.Debug("converted to GeoParquet", "input", input, "output", out)
	return out, nil
}

// BatchGPQ converts every matching vector file in dir concurrently.
func BatchGPQ(ctx context.Context, r *batch.Runner, dir, outDir string) (*batch.Summary[string], error) {
	return batch.RunDir(ctx, r, dir, outDir, VectorExtensions, "vector",
		func(input, output string) (string, error) {
			return ToGPQ(input, output)
		})
}

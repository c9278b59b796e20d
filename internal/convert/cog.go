// Package convert provides the raster-to-COG and vector-to-GeoParquet
// conversion passthroughs. The format encoding itself is delegated to
// GDAL's COG and Parquet drivers; this package owns output-path
// resolution and batch dispatch.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"

	"github.com/xtxerr/cloudconv/internal/batch"
	"github.com/xtxerr/cloudconv/internal/errors"
	"github.com/xtxerr/cloudconv/internal/geo"
	"github.com/xtxerr/cloudconv/internal/logging"
)

var log = logging.Component("convert")

// RasterExtensions is the allow-list for batch COG conversion.
var RasterExtensions = []string{"tif", "tiff", "tff", "asc", "img"}

// cogSwitches are the translate options for COG output.
var cogSwitches = []string{"-of", "COG", "-co", "COMPRESS=LZW"}

// ResolveCOGPath determines where the COG for input is written.
//
// With an explicit output the extension is forced to .tif and an
// existing file is refused unless overwrite is set. Without one the
// default appends "_cog" to the input stem (same directory), or reuses
// the input name when overwrite is set.
func ResolveCOGPath(input, output string, overwrite bool) (string, error) {
	if output != "" {
		out := withExt(output, ".tif")
		if !overwrite && exists(out) {
			return "", fmt.Errorf("%w: %s (use --overwrite)", errors.ErrOutputExists, out)
		}
		return out, nil
	}

	if overwrite {
		return withExt(input, ".tif"), nil
	}

	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	out := filepath.Join(filepath.Dir(input), stem+"_cog.tif")
	if exists(out) {
		return "", fmt.Errorf("%w: %s (use --overwrite)", errors.ErrOutputExists, out)
	}
	return out, nil
}

// ToCOG converts one raster file to Cloud-Optimized GeoTIFF and
// returns the output path. output may be empty to use the default
// naming scheme.
func ToCOG(input, output string, overwrite bool) (string, error) {
	if !exists(input) {
		return "", fmt.Errorf("input file %s does not exist", input)
	}

	out, err := ResolveCOGPath(input, output, overwrite)
	if err != nil {
		return "", err
	}

	geo.Register()
	ds, err := godal.Open(input)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errors.ErrDatasetOpen, input, err)
	}
	defer ds.Close()

	cog, err := ds.Translate(out, cogSwitches)
	if err != nil {
		return "", fmt.Errorf("create COG %s: %w", out, err)
	}
	if err := cog.Close(); err != nil {
		return "", fmt.Errorf("finalize COG %s: %w", out, err)
	}

	log.Debug("converted to COG", "input", input, "output", out)
	return out, nil
}

// BatchCOG converts every matching raster file in dir concurrently.
func BatchCOG(ctx context.Context, r *batch.Runner, dir, outDir string, overwrite bool) (*batch.Summary[string], error) {
	return batch.RunDir(ctx, r, dir, outDir, RasterExtensions, "raster",
		func(input, output string) (string, error) {
			return ToCOG(input, output, overwrite)
		})
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

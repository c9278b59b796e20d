// Package qaqc orchestrates quality-control statistics runs: one file
// printed to the terminal, or a sampled directory reduced to a tabular
// report.
package qaqc

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/xtxerr/cloudconv/internal/batch"
	"github.com/xtxerr/cloudconv/internal/errors"
	"github.com/xtxerr/cloudconv/internal/geo"
	"github.com/xtxerr/cloudconv/internal/logging"
	"github.com/xtxerr/cloudconv/internal/report"
	"github.com/xtxerr/cloudconv/internal/sample"
	"github.com/xtxerr/cloudconv/internal/stats"
)

var log = logging.Component("qaqc")

// ComputeFileStats opens the raster at path and computes statistics
// for every band. A band failure aborts the file; per-file isolation
// belongs to the batch layer.
func ComputeFileStats(path string, opts stats.Options) ([]stats.RasterStats, error) {
	r, err := geo.OpenRaster(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	bands := r.Bands()
	results := make([]stats.RasterStats, 0, len(bands))
	for i := range bands {
		b := &bands[i]

		var st stats.RasterStats
		if b.Is64Bit() {
			st, err = stats.Compute[float64](geo.NewWindowSource[float64](b), opts)
		} else {
			st, err = stats.Compute[float32](geo.NewWindowSource[float32](b), opts)
		}
		if err != nil {
			return nil, errors.Wrap(err, "compute stats for %s %s", path, b.Describe().Name)
		}
		results = append(results, st)
	}
	return results, nil
}

// RunSingle computes and pretty-prints statistics for one raster file.
func RunSingle(path string, opts stats.Options, w io.Writer) error {
	results, err := ComputeFileStats(path, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "File: %s\n", path)
	fmt.Fprint(w, stats.FormatAll(results))
	return nil
}

// BatchResult summarizes one directory QAQC run.
type BatchResult struct {
	// OutputPath is where the report was written.
	OutputPath string

	// Sampled is the number of files selected for checking.
	Sampled int

	// Succeeded and Failed partition the sampled files.
	Succeeded int
	Failed    []batch.Failure
}

// RunBatch samples pct percent of the rasters under dir, computes
// per-band statistics concurrently, and writes the combined report to
// dir/qaqc.<ext>. Failed files are skipped; the run errors only when
// no file produced statistics.
func RunBatch(ctx context.Context, r *batch.Runner, dir string, pct float64, opts stats.Options, sink report.Sink) (*BatchResult, error) {
	planner := sample.Planner{Extensions: sample.RasterExtensions}
	paths, err := planner.Plan(dir, pct)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Wrap(errors.ErrNoFilesFound, "sampling %.0f%% of %s selected no files", pct, dir)
	}
	log.Info("sampled files for checking", "dir", dir, "pct", pct, "count", len(paths))

	summary := batch.Run(ctx, r, paths, func(path string) ([]report.StatRow, error) {
		bands, err := ComputeFileStats(path, opts)
		if err != nil {
			return nil, err
		}
		return report.Flatten(filepath.Base(path), bands), nil
	})

	var rows []report.StatRow
	for i := range summary.Succeeded {
		rows = append(rows, summary.Succeeded[i].Output...)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no statistics produced: all %d sampled files failed", len(paths))
	}

	out := filepath.Join(dir, "qaqc."+sink.Format.Ext())
	if err := sink.Write(out, rows); err != nil {
		return nil, errors.Wrap(err, "write report %s", out)
	}
	log.Info("wrote qaqc report", "path", out, "rows", len(rows))

	return &BatchResult{
		OutputPath: out,
		Sampled:    len(paths),
		Succeeded:  len(summary.Succeeded),
		Failed:     summary.Failed,
	}, nil
}

// Package batch executes a per-file operation across many files
// concurrently, partitioning results into successes and failures.
//
// One file's failure never aborts the run: the error is captured as that
// file's failure entry and the remaining files still execute. Workers
// share no mutable state beyond an injected atomic progress counter used
// only for logging.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/cloudconv/internal/errors"
	"github.com/xtxerr/cloudconv/internal/logging"
	"github.com/xtxerr/cloudconv/internal/sample"
)

var log = logging.Component("batch")

// DefaultWorkers is the pool size used when Runner.Workers is zero.
const DefaultWorkers = 8

// Progress is an atomic counter shared by all workers of a run. It is
// used exclusively for human-readable progress reporting and is never
// read back for control decisions.
type Progress struct {
	n atomic.Int64
}

// Next increments the counter and returns the new value.
func (p *Progress) Next() int64 {
	return p.n.Add(1)
}

// Success records one completed file and the operation's output.
type Success[T any] struct {
	Path   string
	Output T
}

// Failure records one failed file.
type Failure struct {
	Path string
	Err  error
}

// Summary partitions a run's results. No ordering guarantee across
// files; entries appear in completion order.
type Summary[T any] struct {
	Succeeded []Success[T]
	Failed    []Failure
}

// Runner is a fixed-size worker pool for per-file operations.
type Runner struct {
	// Workers is the pool size. Zero means DefaultWorkers.
	Workers int

	// Counter is the shared progress counter. Nil disables progress
	// reporting.
	Counter *Progress

	// ProgressOut receives one "processing file i/N" line per file.
	// Nil suppresses the lines (progress is still logged at debug).
	ProgressOut io.Writer
}

func (r *Runner) workers() int {
	if r.Workers <= 0 {
		return DefaultWorkers
	}
	return r.Workers
}

// Run executes op over every path concurrently. Each invocation gets
// its own goroutine; failures are collected, never propagated to
// siblings.
func Run[T any](ctx context.Context, r *Runner, paths []string, op func(path string) (T, error)) *Summary[T] {
	summary := &Summary[T]{}
	if len(paths) == 0 {
		return summary
	}

	var mu sync.Mutex
	total := len(paths)

	g := new(errgroup.Group)
	g.SetLimit(r.workers())

	for _, path := range paths {
		g.Go(func() error {
			r.report(path, total)

			// No cancellation of in-flight work; a cancelled context
			// only stops not-yet-started files.
			var out T
			err := ctx.Err()
			if err == nil {
				out, err = op(path)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("file failed", "path", path, "error", err)
				summary.Failed = append(summary.Failed, Failure{Path: path, Err: err})
			} else {
				summary.Succeeded = append(summary.Succeeded, Success[T]{Path: path, Output: out})
			}
			return nil
		})
	}

	// Workers never return errors; Wait only drains the pool.
	_ = g.Wait()

	return summary
}

// RunDir implements the directory batch contract: validate dir, create
// the output directory if needed, enumerate entries by extension, and
// dispatch op(input, resolvedOutput) over the matches. resolvedOutput is
// outDir/<base name of input>, or "" when no output directory was given
// so the operation chooses its own default.
func RunDir[T any](ctx context.Context, r *Runner, dir, outDir string, exts []string, kind string, op func(input, output string) (T, error)) (*Summary[T], error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Wrap(errors.ErrNotADirectory, "input path %s", dir)
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create output directory %s", outDir)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read directory %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sample.MatchExtension(e.Name(), exts) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, errors.Wrap(errors.ErrNoMatchingFiles, "no supported %s files in %s", kind, dir)
	}

	return Run(ctx, r, paths, func(path string) (T, error) {
		output := ""
		if outDir != "" {
			output = filepath.Join(outDir, filepath.Base(path))
		}
		return op(path, output)
	}), nil
}

func (r *Runner) report(path string, total int) {
	if r.Counter == nil {
		return
	}
	current := r.Counter.Next()
	log.Debug("processing file", "current", current, "total", total, "path", path)
	if r.ProgressOut != nil {
		fmt.Fprintf(r.ProgressOut, "Processing file %d/%d: %s\n", current, total, filepath.Base(path))
	}
}

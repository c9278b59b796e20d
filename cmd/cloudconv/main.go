// cloudconv converts geospatial datasets to cloud-optimized formats and
// runs statistical quality checks over raster collections.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/xtxerr/cloudconv/internal/batch"
	"github.com/xtxerr/cloudconv/internal/config"
	"github.com/xtxerr/cloudconv/internal/convert"
	"github.com/xtxerr/cloudconv/internal/geo"
	"github.com/xtxerr/cloudconv/internal/logging"
	"github.com/xtxerr/cloudconv/internal/qaqc"
	"github.com/xtxerr/cloudconv/internal/report"
	"github.com/xtxerr/cloudconv/internal/runlog"
	"github.com/xtxerr/cloudconv/internal/stats"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `cloudconv %s

Usage: cloudconv [global flags] <command> [command flags] <path>

Commands:
  info       describe a raster or vector dataset
  to-cog     convert raster file(s) to Cloud-Optimized GeoTIFF
  to-gpq     convert vector file(s) to GeoParquet
  run-qaqc   compute per-band statistics for raster file(s)
  runs       list recorded batch runs

Global flags:
  -config string   config file path (default "cloudconv.yaml")
  -v               debug logging
  -json            JSON log output
`

// app carries the resolved configuration and shared helpers into the
// command handlers.
type app struct {
	cfg *config.Config
}

func main() {
	flags := newFlagSet("cloudconv")
	cfgPath := flags.String("config", "cloudconv.yaml", "config file path")
	verbose := flags.Bool("v", false, "debug logging")
	jsonLog := flags.Bool("json", false, "JSON log output")
	flags.Usage = func() { fmt.Fprintf(os.Stderr, usage, Version) }
	flags.Parse(os.Args[1:])

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, *jsonLog)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	a := &app{cfg: cfg}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd := args[0]; cmd {
	case "info":
		err = a.runInfo(args[1:])
	case "to-cog":
		err = a.runToCOG(ctx, args[1:])
	case "to-gpq":
		err = a.runToGPQ(ctx, args[1:])
	case "run-qaqc":
		err = a.runQAQC(ctx, args[1:])
	case "runs":
		err = a.runRuns(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flags.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal("%v", err)
	}
}

func (a *app) runInfo(args []string) error {
	flags := newFlagSet("info")
	flags.Parse(args)

	path, err := onePath(flags.Args())
	if err != nil {
		return err
	}

	info, err := geo.Describe(path)
	if err != nil {
		return err
	}
	fmt.Print(info.Format())
	return nil
}

func (a *app) runToCOG(ctx context.Context, args []string) error {
	flags := newFlagSet("to-cog")
	out := flags.String("out", "", "output file or directory")
	overwrite := flags.Bool("overwrite", false, "replace existing outputs")
	workers := flags.Int("workers", a.cfg.Workers, "batch worker count")
	flags.Parse(args)

	path, err := onePath(flags.Args())
	if err != nil {
		return err
	}

	if !isDir(path) {
		cog, err := convert.ToCOG(path, *out, *overwrite)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s\n", cog)
		return nil
	}

	started := time.Now()
	summary, err := convert.BatchCOG(ctx, a.runner(*workers), path, *out, *overwrite)
	if err != nil {
		return err
	}
	a.record(ctx, "to-cog", path, "", started, len(summary.Succeeded), len(summary.Failed))
	return printSummary(summary)
}

func (a *app) runToGPQ(ctx context.Context, args []string) error {
	flags := newFlagSet("to-gpq")
	out := flags.String("out", "", "output file or directory")
	workers := flags.Int("workers", a.cfg.Workers, "batch worker count")
	flags.Parse(args)

	path, err := onePath(flags.Args())
	if err != nil {
		return err
	}

	if !isDir(path) {
		gpq, err := convert.ToGPQ(path, *out)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s\n", gpq)
		return nil
	}

	started := time.Now()
	summary, err := convert.BatchGPQ(ctx, a.runner(*workers), path, *out)
	if err != nil {
		return err
	}
	a.record(ctx, "to-gpq", path, "", started, len(summary.Succeeded), len(summary.Failed))
	return printSummary(summary)
}

func (a *app) runQAQC(ctx context.Context, args []string) error {
	flags := newFlagSet("run-qaqc")
	pct := flags.Float64("pct-check", a.cfg.QAQC.PercentCheck, "percentage of files to sample")
	quantiles := flags.Bool("quantiles", false, "compute exact quartiles (full-band sort)")
	approx := flags.Bool("approx-quantiles", false, "estimate quartiles with a streaming sketch")
	formatName := flags.String("output-format", a.cfg.QAQC.OutputFormat, "report format: csv or parquet")
	workers := flags.Int("workers", a.cfg.Workers, "batch worker count")
	flags.Parse(args)

	path, err := onePath(flags.Args())
	if err != nil {
		return err
	}

	opts := stats.Options{
		ExactQuantiles:  *quantiles,
		ApproxQuantiles: *approx,
	}

	if !isDir(path) {
		return qaqc.RunSingle(path, opts, os.Stdout)
	}

	format, err := report.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	sink := report.Sink{Format: format, Compression: a.cfg.QAQC.Compression}

	started := time.Now()
	result, err := qaqc.RunBatch(ctx, a.runner(*workers), path, *pct, opts, sink)
	if err != nil {
		return err
	}

	fmt.Printf("Checked %d/%d files, report written to %s\n",
		result.Succeeded, result.Sampled, result.OutputPath)
	for _, f := range result.Failed {
		fmt.Fprintf(os.Stderr, "  failed %s: %v\n", f.Path, f.Err)
	}
	a.record(ctx, "run-qaqc", path, result.OutputPath, started, result.Succeeded, len(result.Failed))
	return nil
}

func (a *app) runRuns(ctx context.Context, args []string) error {
	flags := newFlagSet("runs")
	limit := flags.Int("limit", 20, "maximum runs to show")
	dbPath := flags.String("db", a.cfg.RunLog.Path, "run log database path")
	flags.Parse(args)

	store, err := runlog.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%s  %-9s %s  %d/%d ok, %d failed  (%s)\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Command, r.Root,
			r.Succeeded, r.Total, r.Failed, r.Duration.Round(time.Millisecond))
		if r.Output != "" {
			fmt.Printf("    output: %s\n", r.Output)
		}
	}
	return nil
}

// runner builds the shared worker pool. Progress lines only go to a
// real terminal; redirected stderr stays machine-readable.
func (a *app) runner(workers int) *batch.Runner {
	var progress io.Writer
	if term.IsTerminal(int(os.Stderr.Fd())) {
		progress = os.Stderr
	}
	return &batch.Runner{
		Workers:     workers,
		Counter:     &batch.Progress{},
		ProgressOut: progress,
	}
}

// record appends the run to the history database when enabled. Failure
// to record never fails the command.
func (a *app) record(ctx context.Context, command, root, output string, started time.Time, succeeded, failed int) {
	if !a.cfg.RunLog.Enabled {
		return
	}

	store, err := runlog.Open(a.cfg.RunLog.Path)
	if err != nil {
		logging.Warn("open run log", "error", err)
		return
	}
	defer store.Close()

	err = store.Record(ctx, runlog.RunRecord{
		StartedAt: started,
		Command:   command,
		Root:      root,
		Total:     succeeded + failed,
		Succeeded: succeeded,
		Failed:    failed,
		Output:    output,
		Duration:  time.Since(started),
	})
	if err != nil {
		logging.Warn("record run", "error", err)
	}
}

func printSummary(s *batch.Summary[string]) error {
	total := len(s.Succeeded) + len(s.Failed)
	fmt.Printf("Converted %d/%d files\n", len(s.Succeeded), total)
	for _, f := range s.Failed {
		fmt.Fprintf(os.Stderr, "  failed %s: %v\n", f.Path, f.Err)
	}
	if len(s.Succeeded) == 0 {
		return fmt.Errorf("all %d files failed", total)
	}
	return nil
}

func onePath(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one path argument, got %d", len(args))
	}
	return args[0], nil
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "cloudconv: "+format+"\n", args...)
	os.Exit(1)
}

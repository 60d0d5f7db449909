// Offline batch scorer for DARY.
//
// Usage:
//
//	dary-batch -in projects.csv [-out results.csv] [-format csv|json] [-workers N]
//
// This tool:
//  1. Reads a CSV file (or a JSON array when the file ends in .json)
//  2. Scores every project with a bounded worker pool
//  3. Writes one result row per input row, in input order
//  4. Prints a summary with the tier distribution
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"

	"github.com/opensource-finance/dary/internal/batch"
	"github.com/opensource-finance/dary/internal/domain"
	"github.com/opensource-finance/dary/internal/export"
	"github.com/opensource-finance/dary/internal/intake"
	"github.com/opensource-finance/dary/internal/logging"
	"github.com/opensource-finance/dary/internal/rules"
)

func main() {
	inPath := flag.String("in", "", "Path to the input CSV or JSON file")
	outPath := flag.String("out", "", "Path to the output file (default stdout)")
	format := flag.String("format", "csv", "Output format: csv or json")
	workers := flag.Int("workers", 8, "Number of concurrent workers")
	screensFile := flag.String("screens", "", "Screening rules TOML file (default builtin screens)")
	noScreens := flag.Bool("no-screens", false, "Disable screening")
	verbose := flag.Bool("verbose", false, "Log every unrecognized value")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: dary-batch -in projects.csv [-out results.csv] [-format csv|json] [-workers N]")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *format != string(export.FormatCSV) && *format != string(export.FormatJSON) {
		fmt.Fprintf(os.Stderr, "ERROR: unsupported output format %q\n", *format)
		os.Exit(1)
	}

	level := "error"
	if *verbose {
		level = "warn"
	}
	slog.SetDefault(logging.New(domain.LoggingConfig{Level: level, Format: "text"}, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{
		inPath:      *inPath,
		outPath:     *outPath,
		format:      export.Format(*format),
		workers:     *workers,
		screensFile: *screensFile,
		noScreens:   *noScreens,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	inPath      string
	outPath     string
	format      export.Format
	workers     int
	screensFile string
	noScreens   bool
}

func run(ctx context.Context, opts options) error {
	start := time.Now()

	records, err := readRecords(opts.inPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d projects from %s\n", len(records), opts.inPath)

	var screener batch.Screener
	if !opts.noScreens {
		engine, err := loadEngine(opts.workers, opts.screensFile)
		if err != nil {
			return err
		}
		defer engine.Close()
		screener = engine
	}

	runner := batch.NewRunner(domain.BatchConfig{Workers: opts.workers, MaxRows: len(records)}, screener)
	report, err := runner.Run(ctx, records)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.outPath, err)
		}
		defer f.Close()
		out = f
	}

	if err := writeReport(out, opts.format, report); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	printSummary(report, time.Since(start))
	return nil
}

func readRecords(path string) ([]intake.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return intake.Read(f, intake.DetectFormat("", path))
}

func loadEngine(workers int, path string) (*rules.Engine, error) {
	engine, err := rules.NewEngine(workers)
	if err != nil {
		return nil, err
	}

	screens := rules.BuiltinRules()
	if path != "" {
		if screens, err = rules.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := engine.LoadRules(screens); err != nil {
		return nil, err
	}
	return engine, nil
}

func writeReport(w io.Writer, format export.Format, report *batch.Report) error {
	if format == export.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return export.BatchCSV(w, report.Outcomes)
}

func printSummary(report *batch.Report, duration time.Duration) {
	tiers := lo.CountValuesBy(report.Results(), func(r *domain.GlobalScoreResult) domain.Tier {
		return r.Tier
	})

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "📊 BATCH SUMMARY")
	fmt.Fprintf(os.Stderr, "   Projects:   %d\n", report.Count)
	fmt.Fprintf(os.Stderr, "   Scored:     %d\n", report.Succeeded)
	fmt.Fprintf(os.Stderr, "   Failed:     %d\n", report.Failed)
	fmt.Fprintln(os.Stderr)
	for _, tier := range []domain.Tier{domain.TierExcellent, domain.TierGood, domain.TierAverage, domain.TierWeak} {
		fmt.Fprintf(os.Stderr, "   %-10s  %d\n", tier, tiers[tier])
	}

	for _, o := range report.Outcomes {
		if o.Error != nil {
			fmt.Fprintf(os.Stderr, "   ⚠️  %v\n", o.Error)
		}
	}

	fmt.Fprintf(os.Stderr, "\n⏱️  Duration: %v\n", duration.Round(time.Millisecond))
}

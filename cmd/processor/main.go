// Command processor runs the tick pipeline once over a dataset file, prints
// the summary statistics and cleaning report as JSON and optionally exports
// the enriched table and resampled bars.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tickpulse/internal/app"
	"tickpulse/internal/config"
	"tickpulse/internal/dataprocessing"
	"tickpulse/internal/exporter"
	"tickpulse/internal/infrastructure"
	"tickpulse/internal/validation"
	"tickpulse/pkg/contracts/domain"
)

// Report is written to stdout after a successful run
type Report struct {
	Snapshot domain.SnapshotInfo      `json:"snapshot"`
	Summary  domain.SummaryStatistics `json:"summary"`
	Cleaning domain.CleaningReport    `json:"cleaning"`
	Export   *exporter.Result         `json:"export,omitempty"`
	Workbook string                   `json:"workbook,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("Processing failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type options struct {
	file        string
	defaultDate string
	timezone    string
	outDir      string
	resolutions string
	xlsx        bool
	logLevel    string
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	opts := options{
		file:        cfg.Dataset.Path,
		defaultDate: cfg.Dataset.DefaultDate,
		timezone:    cfg.Dataset.Timezone,
		resolutions: "1Min",
		logLevel:    cfg.Logging.Level,
	}

	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.StringVar(&opts.file, "file", opts.file, "tick dataset (.csv or .xlsx)")
	fs.StringVar(&opts.defaultDate, "default-date", opts.defaultDate, "date used when start_date is blank (YYYY-MM-DD)")
	fs.StringVar(&opts.timezone, "tz", opts.timezone, "IANA zone for timestamps without an offset")
	fs.StringVar(&opts.outDir, "out-dir", "", "write enriched_ticks.csv and bars_<res>.csv here")
	fs.StringVar(&opts.resolutions, "resolution", opts.resolutions, "comma-separated bar widths to export")
	fs.BoolVar(&opts.xlsx, "xlsx", false, "also write a single .xlsx workbook to -out-dir")
	fs.StringVar(&opts.logLevel, "log-level", opts.logLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		opts.file = fs.Arg(0)
	}
	if opts.xlsx && opts.outDir == "" {
		return opts, errors.New("-xlsx requires -out-dir")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}
	cfg.Dataset.Path = opts.file
	cfg.Dataset.DefaultDate = opts.defaultDate
	cfg.Dataset.Timezone = opts.timezone
	cfg.Logging.Level = opts.logLevel
	// stdout carries the JSON report
	cfg.Logging.Output = "stderr"

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}

	pipelineOpts, err := app.PipelineOptions(cfg)
	if err != nil {
		return err
	}

	snap, err := dataprocessing.NewPipeline(pipelineOpts, nil, logger).Run(ctx, cfg.Dataset.Path)
	if err != nil {
		return err
	}

	report := Report{
		Snapshot: snap.Info(),
		Summary:  snap.Summary(),
		Cleaning: snap.Report,
	}

	if opts.outDir != "" {
		resolutions := splitList(opts.resolutions)
		if err := validation.NewFileValidator(logger).ValidateOutputDirectory(opts.outDir); err != nil {
			return err
		}
		exp := exporter.NewMarketExporter(opts.outDir, logger)

		result, err := exp.ExportSnapshot(snap, resolutions)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		report.Export = &result

		if opts.xlsx {
			path, err := exp.ExportWorkbook(snap, resolutions, exporter.WorkbookFile)
			if err != nil {
				return fmt.Errorf("export workbook: %w", err)
			}
			report.Workbook = path
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

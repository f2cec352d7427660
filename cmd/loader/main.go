// Command loader refreshes the sales dataset from Google Drive, computes the
// period reports, and serializes raw context blocks for downstream consumers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"quasarcli/internal/config"
	"quasarcli/internal/dataset"
	"quasarcli/internal/infrastructure"
	"quasarcli/internal/services"
)

func main() {
	report := flag.Bool("report", false, "print the aggregate report as JSON after loading")
	rawLayer := flag.String("raw", "", "print raw context blocks: schema, samples or full")
	rawFormat := flag.String("format", dataset.FormatCSV, "serialization format: csv or jsonl")
	rawRows := flag.Int("rows", dataset.DefaultSampleRows, "rows per sheet for the samples layer")
	maxChars := flag.Int("max-chars", dataset.DefaultMaxChars, "character budget for serialized output")
	period := flag.String("period", "", "print all rows of one period as YYYY-MM (empty month uses the latest)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *report, *rawLayer, *rawFormat, *rawRows, *maxChars, *period); err != nil {
		logger.Error("Loader failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, report bool, rawLayer, rawFormat string, rawRows, maxChars int, period string) error {
	svc, err := services.NewGoogleLoaderService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := svc.Refresh(ctx)
	if err != nil {
		return err
	}
	logger.Info("Load complete",
		"sources", result.Sources,
		"sheets", result.Sheets,
		"rows", result.Rows,
		"reindex", result.Reindex)
	for _, msg := range result.Errors {
		logger.Warn("Load error", "detail", msg)
	}

	if report {
		out, err := svc.ReportJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}

	if rawLayer != "" {
		fmt.Print(svc.RawContext(rawLayer, rawRows, rawFormat, maxChars))
	}

	if period != "" {
		year, month := splitPeriod(period)
		fmt.Print(svc.PeriodContext(year, month, rawFormat, maxChars))
	}

	// Every consumer of this cycle has its output; a failure above keeps the
	// reindex signal armed for the next run.
	return svc.CommitFingerprint(ctx)
}

// splitPeriod parses "YYYY-MM", "YYYY" or "MM" into its parts.
func splitPeriod(p string) (year, month string) {
	switch {
	case len(p) == 7 && p[4] == '-':
		return p[:4], p[5:]
	case len(p) == 4:
		return p, ""
	default:
		return "", p
	}
}

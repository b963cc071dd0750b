package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/qepting91/review-scraper/internal/collector"
	"github.com/qepting91/review-scraper/internal/config"
	"github.com/qepting91/review-scraper/internal/domain"
	"github.com/qepting91/review-scraper/internal/metrics"
	"github.com/qepting91/review-scraper/internal/storage"
)

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	sqlitePath  string
	metricsFile string
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	// Logs go to stderr so stdout stays free for summaries.
	a.logger = slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(a.logger)
	return nil
}

// run performs one collection and hands the result to every configured sink.
// A partial result is still written; only invalid input and sink failures are errors.
func (a *app) run(ctx context.Context, q domain.Query, out io.Writer) (*domain.CollectionResult, error) {
	fetcher, err := collector.NewFetcher(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize collector: %w", err)
	}
	orch := collector.NewOrchestrator(fetcher, collector.Options{
		RetryAttempts: a.cfg.RetryAttempts,
		RetryBackoff:  a.cfg.RetryBackoff,
		Logger:        a.logger,
	})

	a.logger.Info("starting collection", "app_id", q.AppID, "target", q.TargetCount, "mode", a.cfg.CollectorMode)
	res, err := orch.Collect(ctx, q)
	if err != nil {
		return nil, err
	}

	writer := &storage.JSONWriter{Dir: a.cfg.OutputDir}
	path, err := writer.Write(res)
	if err != nil {
		return res, fmt.Errorf("failed to write result: %w", err)
	}

	if a.sqlitePath != "" {
		if err := exportSQLite(ctx, a.sqlitePath, res); err != nil {
			return res, err
		}
	}
	if a.metricsFile != "" {
		if err := metrics.WriteTextfile(a.metricsFile); err != nil {
			a.logger.Warn("failed to write metrics file", "path", a.metricsFile, "err", err)
		}
	}

	if res.Status == domain.StatusPartial {
		a.logger.Warn("result is partial", "app_id", res.AppID, "count", res.Count(), "err", res.Err)
	}
	printSummary(out, res, path)
	return res, nil
}

func exportSQLite(ctx context.Context, path string, res *domain.CollectionResult) error {
	store, err := storage.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	if err := store.SaveResult(ctx, res); err != nil {
		return fmt.Errorf("failed to export to sqlite: %w", err)
	}
	return nil
}

func printSummary(out io.Writer, res *domain.CollectionResult, path string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"App", strconv.Itoa(res.AppID)})
	if res.Franchise != "" {
		table.Append([]string{"Franchise", res.Franchise})
	}
	if res.Game != "" {
		table.Append([]string{"Game", res.Game})
	}
	table.Append([]string{"Status", string(res.Status)})
	table.Append([]string{"Reviews", strconv.Itoa(res.Count())})
	table.Append([]string{"Pages", strconv.Itoa(res.Pages)})
	table.Append([]string{"Stopped", res.StopReason})
	table.Append([]string{"Output", path})
	table.Render()
}

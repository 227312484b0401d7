// Package pipeline runs one scrape, enrich and write cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
	"github.com/DojoBits/cncf-kubestronauts/internal/metrics"
	"github.com/DojoBits/cncf-kubestronauts/internal/report"
)

// RunIDAttribute is the notification attribute carrying the run ID.
const RunIDAttribute = "run_id"

// Config controls Runner behavior.
type Config struct {
	// DryRun skips the sink write.
	DryRun bool
}

// Runner wires the stages of a report run.
type Runner struct {
	scraper   kubestronaut.Scraper
	enricher  kubestronaut.Enricher
	sink      kubestronaut.Sink
	publisher kubestronaut.Publisher
	clock     kubestronaut.Clock
	ids       kubestronaut.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner. sink may be nil only in dry-run mode; publisher may be nil.
func New(
	scraper kubestronaut.Scraper,
	enricher kubestronaut.Enricher,
	sink kubestronaut.Sink,
	publisher kubestronaut.Publisher,
	clock kubestronaut.Clock,
	ids kubestronaut.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) (*Runner, error) {
	if scraper == nil || enricher == nil || clock == nil || ids == nil {
		return nil, errors.New("scraper, enricher, clock and id generator are required")
	}
	if sink == nil && !cfg.DryRun {
		return nil, errors.New("sink is required unless dry run is enabled")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		scraper:   scraper,
		enricher:  enricher,
		sink:      sink,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run executes one report cycle and returns its summary.
func (r *Runner) Run(ctx context.Context) (kubestronaut.Summary, error) {
	runID, err := r.ids.NewID()
	if err != nil {
		return kubestronaut.Summary{}, fmt.Errorf("new run id: %w", err)
	}
	started := r.clock.Now()
	logger := r.logger.With(zap.String("run_id", runID))
	summary := kubestronaut.Summary{RunID: runID, StartedAt: started, DryRun: r.cfg.DryRun}

	rep, err := r.execute(ctx, logger)
	summary.FinishedAt = r.clock.Now()
	metrics.ObserveRun(summary.FinishedAt.Sub(started), summary.FinishedAt, err == nil)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return summary, err
	}

	summary.Regions = len(rep.Regions)
	summary.Countries = len(rep.Rows)
	summary.Total = rep.Total
	summary.Unavailable = report.Unavailable(rep.Rows)
	if len(summary.Unavailable) > 0 {
		logger.Warn("population data not available",
			zap.Int("count", len(summary.Unavailable)),
			zap.Strings("countries", summary.Unavailable),
		)
	}

	r.notify(ctx, logger, summary)
	logger.Info("run complete",
		zap.Int("regions", summary.Regions),
		zap.Int("countries", summary.Countries),
		zap.Int("total", summary.Total),
		zap.Duration("elapsed", summary.FinishedAt.Sub(started)),
	)
	return summary, nil
}

func (r *Runner) execute(ctx context.Context, logger *zap.Logger) (kubestronaut.Report, error) {
	logger.Info("scraping source")
	scrape, err := r.scraper.Scrape(ctx)
	if err != nil {
		return kubestronaut.Report{}, fmt.Errorf("scrape: %w", err)
	}

	logger.Info("fetching population data", zap.Int("countries", len(scrape.Countries)))
	populations, err := r.enricher.Enrich(ctx, scrape.CountryNames())
	if err != nil {
		return kubestronaut.Report{}, fmt.Errorf("enrich: %w", err)
	}

	rep, err := report.Build(scrape, populations)
	if err != nil {
		return kubestronaut.Report{}, fmt.Errorf("build report: %w", err)
	}

	if r.cfg.DryRun {
		logger.Info("dry run, skipping sink write")
		return rep, nil
	}
	logger.Info("writing report", zap.Int("rows", len(rep.Rows)))
	if err := r.sink.Write(ctx, rep); err != nil {
		return kubestronaut.Report{}, fmt.Errorf("write report: %w", err)
	}
	return rep, nil
}

// notify publishes the summary. Failures are logged; the report is already written.
func (r *Runner) notify(ctx context.Context, logger *zap.Logger, summary kubestronaut.Summary) {
	if r.publisher == nil {
		return
	}
	id, err := r.publisher.Publish(ctx, summary, map[string]string{RunIDAttribute: summary.RunID})
	if err != nil {
		logger.Error("publish run summary", zap.Error(err))
		return
	}
	logger.Debug("published run summary", zap.String("message_id", id))
}

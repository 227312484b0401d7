// Package app builds and holds the long-lived services of a report run,
// acting as the dependency injection container for the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/DojoBits/cncf-kubestronauts/internal/clock/system"
	"github.com/DojoBits/cncf-kubestronauts/internal/config"
	"github.com/DojoBits/cncf-kubestronauts/internal/id/uuid"
	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
	"github.com/DojoBits/cncf-kubestronauts/internal/metrics"
	"github.com/DojoBits/cncf-kubestronauts/internal/pipeline"
	"github.com/DojoBits/cncf-kubestronauts/internal/population"
	"github.com/DojoBits/cncf-kubestronauts/internal/publisher/memory"
	pspublisher "github.com/DojoBits/cncf-kubestronauts/internal/publisher/pubsub"
	"github.com/DojoBits/cncf-kubestronauts/internal/sheets"
	"github.com/DojoBits/cncf-kubestronauts/internal/source"
)

// App holds the configuration, logger and collaborators shared by commands.
// The scraper is built eagerly; the sink and publisher only when a runner is requested.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	scraper *source.Scraper
	closers []io.Closer
}

// New validates the source configuration and builds the scraper.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	extractor, err := source.New(cfg.Source, logger.Named("source"))
	if err != nil {
		return nil, fmt.Errorf("init source: %w", err)
	}
	logger.Info("application services initialized",
		zap.String("source_mode", cfg.Source.Mode),
		zap.Bool("dry_run", cfg.DryRun),
	)
	return &App{
		Config:  cfg,
		Logger:  logger,
		scraper: source.NewScraper(extractor, logger.Named("source")),
	}, nil
}

// Scraper returns the configured page scraper.
func (a *App) Scraper() kubestronaut.Scraper {
	return a.scraper
}

// Runner wires the enricher, sink and publisher into a pipeline.
func (a *App) Runner(ctx context.Context) (kubestronaut.Runner, error) {
	pc := a.Config.Population
	client := population.NewClient(population.ClientConfig{
		BaseURL:     pc.BaseURL,
		Timeout:     pc.Timeout(),
		SecondMatch: pc.SecondMatch,
	}, a.Logger.Named("population"))
	enricher := population.NewEnricher(client, population.EnricherConfig{
		Concurrency:    pc.Concurrency,
		RequestTimeout: pc.RequestTimeout(),
		RatePerSecond:  pc.RatePerSecond,
		FailFast:       pc.FailFast,
	}, a.Logger.Named("population"))

	var sink kubestronaut.Sink
	if a.Config.DryRun {
		a.Logger.Info("dry run enabled, spreadsheet will not be written")
	} else {
		if err := a.Config.RequireSheets(); err != nil {
			return nil, err
		}
		writer, err := sheets.New(ctx, sheets.Config{
			CredentialsFile: a.Config.Sheets.CredentialsFile,
			SpreadsheetID:   a.Config.Sheets.SpreadsheetID,
			Worksheet:       a.Config.Sheets.Worksheet,
			Layout:          sheetsLayout(a.Config.Sheets.Layout),
		}, a.Logger.Named("sheets"))
		if err != nil {
			return nil, fmt.Errorf("init sheets: %w", err)
		}
		sink = writer
	}

	publisher, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}

	runner, err := pipeline.New(a.scraper, enricher, sink, publisher,
		system.New(), uuid.New(), pipeline.Config{DryRun: a.Config.DryRun}, a.Logger.Named("pipeline"))
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	return runner, nil
}

func sheetsLayout(l config.SheetsLayout) sheets.Layout {
	return sheets.Layout{
		RegionHeader:       l.RegionHeader,
		RegionCountHeader:  l.RegionCountHeader,
		CountryHeader:      l.CountryHeader,
		CountryCountHeader: l.CountryCountHeader,
		PopulationHeader:   l.PopulationHeader,
		TotalLabel:         l.TotalLabel,
		TotalValue:         l.TotalValue,
		RegionStart:        l.RegionStart,
		CountryStart:       l.CountryStart,
	}
}

func (a *App) publisher(ctx context.Context) (kubestronaut.Publisher, error) {
	nc := a.Config.Notify
	if nc.Topic == "" {
		a.Logger.Debug("no notification topic configured, using in-memory publisher")
		return memory.New(a.Logger.Named("notify")), nil
	}
	a.Logger.Info("connecting to Pub/Sub", zap.String("project", nc.ProjectID), zap.String("topic", nc.Topic))
	pub, err := pspublisher.Open(ctx, pspublisher.Config{ProjectID: nc.ProjectID, Topic: nc.Topic})
	if err != nil {
		return nil, fmt.Errorf("init publisher: %w", err)
	}
	a.closers = append(a.closers, pub)
	return pub, nil
}

// PushMetrics sends the run metrics to the pushgateway when one is configured.
func (a *App) PushMetrics(ctx context.Context) error {
	mc := a.Config.Metrics
	if mc.PushgatewayURL == "" {
		return nil
	}
	if err := metrics.Push(ctx, mc.PushgatewayURL, mc.Job); err != nil {
		return err
	}
	a.Logger.Debug("pushed metrics", zap.String("url", mc.PushgatewayURL))
	return nil
}

// Close releases clients opened for the run and flushes the logger.
func (a *App) Close() {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("error closing services", zap.Error(err))
	}
	// Sync fails on non-file sinks such as stderr on some platforms; nothing to do about it.
	_ = a.Logger.Sync()
}

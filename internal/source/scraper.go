package source

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DojoBits/cncf-kubestronauts/internal/config"
	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
	"github.com/DojoBits/cncf-kubestronauts/internal/metrics"
)

// ErrNoEntries indicates the page rendered but no option carried a count.
var ErrNoEntries = errors.New("no entries scraped")

// Extractor returns the raw display text of each option in the filter control.
type Extractor interface {
	Options(ctx context.Context) ([]string, error)
}

// New returns the extractor selected by cfg.Mode.
func New(cfg config.SourceConfig, logger *zap.Logger) (Extractor, error) {
	switch cfg.Mode {
	case config.SourceModeHeadless, "":
		return NewHeadless(HeadlessConfig{
			URL:               cfg.URL,
			SelectClass:       cfg.SelectClass,
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
			WaitTimeout:       cfg.WaitTimeout(),
			SettleDelay:       cfg.SettleDelay(),
		}, logger)
	case config.SourceModeStatic:
		return NewStatic(StaticConfig{
			URL:           cfg.URL,
			SelectClass:   cfg.SelectClass,
			UserAgent:     cfg.UserAgent,
			Timeout:       cfg.NavTimeout(),
			RespectRobots: cfg.RespectRobots,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown source mode %q", cfg.Mode)
	}
}

// Scraper turns extractor output into partitioned entries.
type Scraper struct {
	extractor Extractor
	logger    *zap.Logger
}

// NewScraper creates a Scraper.
func NewScraper(extractor Extractor, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{extractor: extractor, logger: logger}
}

// Scrape loads the options and partitions them into regions and countries.
func (s *Scraper) Scrape(ctx context.Context) (kubestronaut.ScrapeResult, error) {
	options, err := s.extractor.Options(ctx)
	if err != nil {
		return kubestronaut.ScrapeResult{}, fmt.Errorf("extract options: %w", err)
	}

	result := Parse(options)
	if skipped := len(options) - len(result.Regions) - len(result.Countries); skipped > 0 {
		s.logger.Debug("skipped options without a count", zap.Int("skipped", skipped))
	}
	if len(result.Regions) == 0 && len(result.Countries) == 0 {
		return kubestronaut.ScrapeResult{}, fmt.Errorf("%w: %d options read", ErrNoEntries, len(options))
	}

	metrics.ObserveScrape(len(result.Regions), len(result.Countries), result.Total)
	s.logger.Info("scraped kubestronaut data",
		zap.Int("regions", len(result.Regions)),
		zap.Int("countries", len(result.Countries)),
		zap.Int("total", result.Total),
	)
	return result, nil
}

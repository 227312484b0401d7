package source

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticConfig controls the colly extractor.
type StaticConfig struct {
	URL           string
	SelectClass   string
	UserAgent     string
	Timeout       time.Duration
	RespectRobots bool
}

// Static reads the options from the server-rendered HTML without a browser.
type Static struct {
	cfg           StaticConfig
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewStatic builds a Static extractor.
func NewStatic(cfg StaticConfig, logger *zap.Logger) (*Static, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.SelectClass == "" {
		return nil, fmt.Errorf("select class is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Static{
		cfg:           cfg,
		baseCollector: colly.NewCollector(colly.Async(false), colly.AllowURLRevisit()),
		logger:        logger,
	}, nil
}

// Options fetches the page and returns the text of every option in the first
// matching select control.
func (s *Static) Options(ctx context.Context) ([]string, error) {
	var (
		options  []string
		found    bool
		fetchErr error
	)
	collector := s.buildCollector(ctx)
	collector.OnHTML(s.selector(), func(e *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		options = collectOptions(e.DOM)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	s.logger.Info("loading page", zap.String("url", s.cfg.URL))
	if err := s.run(ctx, collector, &fetchErr); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSelectNotFound, s.selector())
	}
	return options, nil
}

// buildCollector clones the base collector and binds its requests to ctx, so a
// canceled Options call also aborts the in-flight fetch.
func (s *Static) buildCollector(ctx context.Context) *colly.Collector {
	collector := s.baseCollector.Clone()
	collector.Context = ctx
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !s.cfg.RespectRobots
	collector.SetRequestTimeout(s.cfg.Timeout)
	return collector
}

func (s *Static) run(ctx context.Context, collector *colly.Collector, fetchErr *error) error {
	done := make(chan error, 1)
	// The request carries ctx, so Visit returns soon after cancellation.
	go func() {
		done <- collector.Visit(s.cfg.URL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (s *Static) selector() string {
	return "select." + s.cfg.SelectClass
}

func collectOptions(sel *goquery.Selection) []string {
	var options []string
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		options = append(options, opt.Text())
	})
	return options
}

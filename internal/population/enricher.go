package population

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
	"github.com/DojoBits/cncf-kubestronauts/internal/metrics"
)

// Lookuper resolves a single country.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (kubestronaut.Population, error)
}

// EnricherConfig bounds the lookup fan-out.
//   - Concurrency: maximum in-flight lookups (<= 0 means unbounded).
//   - RequestTimeout: per-lookup bound; a lookup that hits it yields the sentinel (0 disables).
//   - RatePerSecond: lookup start rate (0 disables).
//   - FailFast: abort the batch on the first transport error instead of degrading that slot.
type EnricherConfig struct {
	Concurrency    int
	RequestTimeout time.Duration
	RatePerSecond  float64
	FailFast       bool
}

// Enricher issues one lookup per name concurrently and joins them at a single barrier.
type Enricher struct {
	lookup  Lookuper
	cfg     EnricherConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEnricher constructs an Enricher.
func NewEnricher(lookup Lookuper, cfg EnricherConfig, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Enricher{
		lookup:  lookup,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Enrich returns one population per name; result[i] always belongs to names[i].
// Each task writes only its own slot, so completion order never affects the output.
func (e *Enricher) Enrich(ctx context.Context, names []string) ([]kubestronaut.Population, error) {
	e.logger.Info("starting population fetch", zap.Int("countries", len(names)))
	results := make([]kubestronaut.Population, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Concurrency > 0 {
		g.SetLimit(e.cfg.Concurrency)
	}
	for i, name := range names {
		g.Go(func() error {
			pop, err := e.lookupOne(gctx, name)
			if err != nil {
				return err
			}
			results[i] = pop
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich populations: %w", err)
	}

	e.logger.Info("completed population fetch", zap.Int("countries", len(names)))
	return results, nil
}

func (e *Enricher) lookupOne(ctx context.Context, name string) (kubestronaut.Population, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return kubestronaut.Unavailable(), fmt.Errorf("rate limit wait for %q: %w", name, err)
		}
	}

	lookupCtx := ctx
	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	pop, err := e.lookup.Lookup(lookupCtx, name)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		outcome := metrics.OutcomeOK
		if !pop.Available {
			outcome = metrics.OutcomeUnavailable
		}
		metrics.ObserveLookup(outcome, elapsed)
		return pop, nil
	case ctx.Err() != nil:
		// The batch itself is done; do not mask the cause.
		metrics.ObserveLookup(metrics.OutcomeError, elapsed)
		return kubestronaut.Unavailable(), fmt.Errorf("lookup %q: %w", name, err)
	case e.cfg.RequestTimeout > 0 && errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
		// Only the per-lookup bound degrades; a client timeout is a transport error.
		e.logger.Warn("population lookup timed out", zap.String("country", name), zap.Duration("after", elapsed))
		metrics.ObserveLookup(metrics.OutcomeUnavailable, elapsed)
		return kubestronaut.Unavailable(), nil
	case e.cfg.FailFast:
		metrics.ObserveLookup(metrics.OutcomeError, elapsed)
		return kubestronaut.Unavailable(), fmt.Errorf("lookup %q: %w", name, err)
	default:
		e.logger.Warn("population lookup error, marking unavailable", zap.String("country", name), zap.Error(err))
		metrics.ObserveLookup(metrics.OutcomeError, elapsed)
		return kubestronaut.Unavailable(), nil
	}
}

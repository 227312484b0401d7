package kubestronaut

import (
	"context"
	"time"
)

// Scraper loads the source page and partitions its entries.
type Scraper interface {
	Scrape(ctx context.Context) (ScrapeResult, error)
}

// Enricher resolves populations for country names, preserving input order.
type Enricher interface {
	Enrich(ctx context.Context, names []string) ([]Population, error)
}

// Sink writes a finished report to its destination.
type Sink interface {
	Write(ctx context.Context, report Report) error
}

// Publisher pushes run notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, payload any, attrs map[string]string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Runner executes one full report cycle.
type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

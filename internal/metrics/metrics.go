// Package metrics exposes Prometheus collectors for the report run.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Lookup outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	populationLookupsTotal          *prometheus.CounterVec
	populationLookupDurationSeconds prometheus.Histogram
	scrapedEntries                  *prometheus.GaugeVec
	kubestronautsTotal              prometheus.Gauge
	runDurationSeconds              prometheus.Gauge
	lastSuccessTimestampSeconds     prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		populationLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kubestronauts_population_lookups_total",
				Help: "Total number of population lookups, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		populationLookupDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kubestronauts_population_lookup_duration_seconds",
				Help:    "Histogram of population lookup latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)

		scrapedEntries = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kubestronauts_scraped_entries",
				Help: "Number of entries scraped in the last run, labeled by kind.",
			},
			[]string{"kind"},
		)

		kubestronautsTotal = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kubestronauts_total",
				Help: "Sum of region counts from the last run.",
			},
		)

		runDurationSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kubestronauts_run_duration_seconds",
				Help: "Wall time of the last run.",
			},
		)

		lastSuccessTimestampSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kubestronauts_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run.",
			},
		)
	})
}

// ObserveLookup records one population lookup.
func ObserveLookup(outcome string, duration time.Duration) {
	Init()
	populationLookupsTotal.WithLabelValues(outcome).Inc()
	populationLookupDurationSeconds.Observe(duration.Seconds())
}

// ObserveScrape records the partitioned scrape sizes and the region total.
func ObserveScrape(regions, countries, total int) {
	Init()
	scrapedEntries.WithLabelValues("region").Set(float64(regions))
	scrapedEntries.WithLabelValues("country").Set(float64(countries))
	kubestronautsTotal.Set(float64(total))
}

// ObserveRun records the duration of a finished run and, on success, its completion time.
func ObserveRun(duration time.Duration, finished time.Time, succeeded bool) {
	Init()
	runDurationSeconds.Set(duration.Seconds())
	if succeeded {
		lastSuccessTimestampSeconds.Set(float64(finished.Unix()))
	}
}

// Push sends the default registry to a Prometheus pushgateway under the given job.
func Push(ctx context.Context, url, job string) error {
	Init()
	pusher := push.New(url, job).Gatherer(prometheus.DefaultGatherer)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if populationLookupsTotal == nil || populationLookupDurationSeconds == nil ||
		scrapedEntries == nil || kubestronautsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveLookup(t *testing.T) {
	before := testutil.ToFloat64(counterFor(OutcomeUnavailable))
	ObserveLookup(OutcomeUnavailable, 20*time.Millisecond)
	if got := testutil.ToFloat64(counterFor(OutcomeUnavailable)); got != before+1 {
		t.Errorf("expected unavailable counter %f, got %f", before+1, got)
	}
}

func TestObserveScrapeAndRun(t *testing.T) {
	Init()
	ObserveScrape(6, 80, 1500)
	if got := testutil.ToFloat64(scrapedEntries.WithLabelValues("country")); got != 80 {
		t.Errorf("expected 80 countries, got %f", got)
	}
	if got := testutil.ToFloat64(kubestronautsTotal); got != 1500 {
		t.Errorf("expected total 1500, got %f", got)
	}

	finished := time.Unix(1700000000, 0)
	ObserveRun(2*time.Second, finished, true)
	if got := testutil.ToFloat64(lastSuccessTimestampSeconds); got != 1700000000 {
		t.Errorf("expected last success timestamp, got %f", got)
	}
	ObserveRun(time.Second, finished.Add(time.Hour), false)
	if got := testutil.ToFloat64(lastSuccessTimestampSeconds); got != 1700000000 {
		t.Errorf("failed run must not move last success timestamp, got %f", got)
	}
	if got := testutil.ToFloat64(runDurationSeconds); got != 1 {
		t.Errorf("expected run duration 1s, got %f", got)
	}
}

func TestPush(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/metrics/job/kubestronauts") {
			t.Errorf("unexpected push path %s", r.URL.Path)
		}
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Push(context.Background(), srv.URL, "kubestronauts"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one push request, got %d", hits.Load())
	}
}

func TestPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := Push(context.Background(), srv.URL, "kubestronauts"); err == nil {
		t.Fatal("expected error from failing pushgateway")
	}
}

func counterFor(outcome string) prometheus.Counter {
	Init()
	return populationLookupsTotal.WithLabelValues(outcome)
}

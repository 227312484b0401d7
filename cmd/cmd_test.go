package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DojoBits/cncf-kubestronauts/internal/config"
	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
)

type fakeScraper struct {
	result kubestronaut.ScrapeResult
	err    error
}

func (f fakeScraper) Scrape(context.Context) (kubestronaut.ScrapeResult, error) {
	return f.result, f.err
}

type fakeRunner struct {
	summary kubestronaut.Summary
	err     error
}

func (f fakeRunner) Run(context.Context) (kubestronaut.Summary, error) {
	return f.summary, f.err
}

type fakeApp struct {
	cfg       config.Config
	scraper   fakeScraper
	runner    fakeRunner
	runnerErr error
	pushErr   error
	pushed    int
	closed    int
}

func (f *fakeApp) Close() { f.closed++ }

func (f *fakeApp) Scraper() kubestronaut.Scraper { return f.scraper }

func (f *fakeApp) PushMetrics(context.Context) error {
	f.pushed++
	return f.pushErr
}

func (f *fakeApp) Runner(context.Context) (kubestronaut.Runner, error) {
	if f.runnerErr != nil {
		return nil, f.runnerErr
	}
	return f.runner, nil
}

// withFakeApp swaps the application factory for the duration of a test.
func withFakeApp(t *testing.T, fake *fakeApp) {
	t.Helper()
	orig := newApp
	newApp = func(cfg config.Config, _ *zap.Logger) (App, error) {
		fake.cfg = cfg
		return fake, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func sampleScrape() kubestronaut.ScrapeResult {
	return kubestronaut.ScrapeResult{
		Regions:   []kubestronaut.Entry{{Name: "Asia", Count: 7}, {Name: "Europe", Count: 50}},
		Countries: []kubestronaut.Entry{{Name: "Georgia", Count: 7}, {Name: "France", Count: 50}},
		Total:     57,
	}
}

func TestScrapeTable(t *testing.T) {
	fake := &fakeApp{scraper: fakeScraper{result: sampleScrape()}}
	withFakeApp(t, fake)

	out, _, err := execute(t, "scrape")
	require.NoError(t, err)
	assert.Equal(t, `REGION  KUBESTRONAUTS
Europe  50
Asia    7
Total   57

COUNTRY  KUBESTRONAUTS
France   50
Georgia  7
`, out)
	assert.Equal(t, 1, fake.closed)
}

func TestScrapeJSON(t *testing.T) {
	withFakeApp(t, &fakeApp{scraper: fakeScraper{result: sampleScrape()}})

	out, _, err := execute(t, "scrape", "--json")
	require.NoError(t, err)

	var got kubestronaut.ScrapeResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Europe", got.Regions[0].Name)
	assert.Equal(t, "France", got.Countries[0].Name)
	assert.Equal(t, 57, got.Total)
}

func TestScrapeError(t *testing.T) {
	fake := &fakeApp{scraper: fakeScraper{err: errors.New("select not found")}}
	withFakeApp(t, fake)

	_, _, err := execute(t, "scrape")
	require.ErrorContains(t, err, "select not found")
	assert.Equal(t, 1, fake.closed, "app is closed on failure")
}

func TestReportPrintsSummary(t *testing.T) {
	fake := &fakeApp{runner: fakeRunner{summary: kubestronaut.Summary{
		RunID: "run-1", Regions: 6, Countries: 80, Total: 1500, Unavailable: []string{"Kosovo"},
	}}}
	withFakeApp(t, fake)

	out, _, err := execute(t, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1: 6 regions, 80 countries, 1500 Kubestronauts")
	assert.Contains(t, out, "Population data not available for 1 countries")
	assert.Equal(t, 1, fake.pushed)
	assert.False(t, fake.cfg.DryRun)
}

func TestReportFailurePushesMetrics(t *testing.T) {
	fake := &fakeApp{
		runner:  fakeRunner{summary: kubestronaut.Summary{RunID: "run-2"}, err: errors.New("enrich: connection reset")},
		pushErr: errors.New("pushgateway down"),
	}
	withFakeApp(t, fake)

	_, errOut, err := execute(t, "report")
	require.ErrorContains(t, err, "run run-2: enrich: connection reset")
	assert.Contains(t, errOut, "pushgateway down")
	assert.Equal(t, 1, fake.pushed)
	assert.Equal(t, 1, fake.closed)
}

func TestReportRunnerError(t *testing.T) {
	withFakeApp(t, &fakeApp{runnerErr: errors.New("sheets.credentials_file (or GSHEET_CREDS) must be set")})

	_, _, err := execute(t, "report")
	require.ErrorContains(t, err, "GSHEET_CREDS")
}

func TestDryRunFlagAndConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sheets:\n  worksheet: ops\n"), 0o600))

	fake := &fakeApp{runner: fakeRunner{summary: kubestronaut.Summary{RunID: "run-3", DryRun: true}}}
	withFakeApp(t, fake)

	_, _, err := execute(t, "--config", path, "--dry-run", "report")
	require.NoError(t, err)
	assert.True(t, fake.cfg.DryRun)
	assert.Equal(t, "ops", fake.cfg.Sheets.Worksheet)
}

func TestMissingConfigFile(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)

	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "scrape")
	require.ErrorContains(t, err, "load config")
	assert.Zero(t, fake.closed, "no app was built")
}

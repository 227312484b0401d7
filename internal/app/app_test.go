package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DojoBits/cncf-kubestronauts/internal/config"
	"github.com/DojoBits/cncf-kubestronauts/internal/pipeline"
	"github.com/DojoBits/cncf-kubestronauts/internal/sheets"
)

// MockCloser mocks an io.Closer held by the App.
type MockCloser struct {
	mock.Mock
}

func (m *MockCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Source.Mode = config.SourceModeStatic
	return cfg
}

func TestNew(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, a.Scraper())
	assert.NotNil(t, a.Logger)
}

func TestNewUnknownSourceMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Mode = "carrier-pigeon"

	_, err := New(cfg, nil)
	require.ErrorContains(t, err, "unknown source mode")
}

func TestRunnerDryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true

	a, err := New(cfg, nil)
	require.NoError(t, err)
	runner, err := a.Runner(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &pipeline.Runner{}, runner)
	assert.Empty(t, a.closers, "memory publisher needs no closing")
}

func TestRunnerRequiresSheets(t *testing.T) {
	a, err := New(testConfig(t), nil)
	require.NoError(t, err)

	_, err = a.Runner(context.Background())
	require.ErrorContains(t, err, "sheets.credentials_file")
}

func TestPushMetrics(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Contains(t, r.URL.Path, "/metrics/job/kubestronauts")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	a, err := New(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, a.PushMetrics(context.Background()))
	assert.Zero(t, hits.Load(), "no pushgateway configured")

	a.Config.Metrics.PushgatewayURL = srv.URL
	require.NoError(t, a.PushMetrics(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestClose(t *testing.T) {
	ok := new(MockCloser)
	failing := new(MockCloser)
	ok.On("Close").Return(nil).Once()
	failing.On("Close").Return(errors.New("pubsub error")).Once()

	a := &App{Logger: zap.NewNop(), closers: []io.Closer{ok, failing}}
	a.Close()
	a.Close()

	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestSheetsLayoutFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sheets.Layout.TotalLabel = "A20"
	cfg.Sheets.Layout.TotalValue = "B20"

	got := sheetsLayout(cfg.Sheets.Layout)
	want := sheets.DefaultLayout()
	want.TotalLabel = "A20"
	want.TotalValue = "B20"
	assert.Equal(t, want, got)
}

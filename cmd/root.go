// Package cmd defines the kubestronauts CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DojoBits/cncf-kubestronauts/internal/app"
	"github.com/DojoBits/cncf-kubestronauts/internal/config"
	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
	"github.com/DojoBits/cncf-kubestronauts/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the set of services commands use. Tests inject a fake through newApp.
type App interface {
	Close()
	Scraper() kubestronaut.Scraper
	Runner(ctx context.Context) (kubestronaut.Runner, error)
	PushMetrics(ctx context.Context) error
}

type options struct {
	configFile string
	dryRun     bool
	app        App
}

// newApp is the application factory.
var newApp = func(cfg config.Config, logger *zap.Logger) (App, error) {
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kubestronauts",
		Short: "Publish Kubestronaut counts by region and country to a Google Sheet.",
		Long: `kubestronauts reads the Kubestronaut location filter from the CNCF website,
looks up each country's population on REST Countries and writes the sorted
results to a Google spreadsheet.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.dryRun {
				cfg.DryRun = true
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			opts.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML, TOML or JSON)")
	cmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "scrape and enrich without writing the spreadsheet")

	cmd.AddCommand(newReportCmd(), newScrapeCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// run executes the CLI with args and closes the App on every path, including failed commands.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts := &options{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	defer func() {
		if opts.app != nil {
			opts.app.Close()
		}
	}()
	return cmd.ExecuteContext(ctx)
}

// Execute runs the CLI until completion or SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

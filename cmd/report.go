package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Scrape, enrich and write the spreadsheet",
		Long: `Runs one full cycle: scrape the location filter, fetch populations
concurrently, sort by count and write the worksheet in a single batch update.
A run summary is published to Pub/Sub when notify.topic is set.`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	runner, err := appInstance.Runner(cmd.Context())
	if err != nil {
		return err
	}

	summary, runErr := runner.Run(cmd.Context())
	// Metrics describe failed runs too.
	if err := appInstance.PushMetrics(cmd.Context()); err != nil {
		cmd.PrintErrln("warning:", err)
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", summary.RunID, runErr)
	}

	cmd.Printf("Run %s: %d regions, %d countries, %d Kubestronauts\n",
		summary.RunID, summary.Regions, summary.Countries, summary.Total)
	if n := len(summary.Unavailable); n > 0 {
		cmd.Printf("Population data not available for %d countries\n", n)
	}
	return nil
}

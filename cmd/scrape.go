package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
	"github.com/DojoBits/cncf-kubestronauts/internal/report"
)

func newScrapeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Print the scraped regions and countries",
		Long:  `Loads the location filter and prints regions and countries sorted by count, without population lookups or spreadsheet writes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			result, err := appInstance.Scraper().Scrape(cmd.Context())
			if err != nil {
				return err
			}
			result.Regions = report.SortEntries(result.Regions)
			result.Countries = report.SortEntries(result.Countries)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return printScrape(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printScrape(out io.Writer, result kubestronaut.ScrapeResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tKUBESTRONAUTS")
	for _, e := range result.Regions {
		fmt.Fprintf(tw, "%s\t%d\n", e.Name, e.Count)
	}
	fmt.Fprintf(tw, "Total\t%d\n\n", result.Total)
	fmt.Fprintln(tw, "COUNTRY\tKUBESTRONAUTS")
	for _, e := range result.Countries {
		fmt.Fprintf(tw, "%s\t%d\n", e.Name, e.Count)
	}
	return tw.Flush()
}

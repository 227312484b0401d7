// Package sheets writes the report to a Google Sheets worksheet.
package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
)

const (
	labelRegion        = "Region"
	labelKubestronauts = "Kubestronauts"
	labelCountry       = "Country"
	labelPopulation    = "Population"
	labelTotal         = "Total Kubestronauts"
)

// Config points the Writer at a worksheet.
type Config struct {
	CredentialsFile string
	SpreadsheetID   string
	Worksheet       string
	Layout          Layout
}

// Writer writes reports with a single values.batchUpdate call.
type Writer struct {
	values *sheets.SpreadsheetsValuesService
	cfg    Config
	logger *zap.Logger
}

// New authenticates with the service-account file in cfg and returns a Writer.
// Extra client options are applied after the credentials.
func New(ctx context.Context, cfg Config, logger *zap.Logger, opts ...option.ClientOption) (*Writer, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if cfg.Worksheet == "" {
		return nil, fmt.Errorf("worksheet is required")
	}
	if cfg.Layout == (Layout{}) {
		cfg.Layout = DefaultLayout()
	}
	if err := cfg.Layout.validate(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts,
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsScope),
		)
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Writer{values: svc.Spreadsheets.Values, cfg: cfg, logger: logger}, nil
}

// Write sends headers, the total, the region block and the country block in one batch.
func (w *Writer) Write(ctx context.Context, report kubestronaut.Report) error {
	overlap, err := w.cfg.Layout.regionsOverlapTotal(len(report.Regions))
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if overlap {
		w.logger.Warn("region rows reach the total row and will be overwritten",
			zap.Int("regions", len(report.Regions)),
			zap.String("total_cell", w.cfg.Layout.TotalLabel),
		)
	}

	req := w.BuildRequest(report)
	w.logger.Info("updating google sheet",
		zap.String("worksheet", w.cfg.Worksheet),
		zap.Int("ranges", len(req.Data)),
		zap.Int("countries", len(report.Rows)),
	)
	resp, err := w.values.BatchUpdate(w.cfg.SpreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update %s: %w", w.cfg.Worksheet, err)
	}
	w.logger.Info("google sheet updated", zap.Int64("updated_cells", resp.TotalUpdatedCells))
	return nil
}

// BuildRequest lays the report out according to the configured Layout.
func (w *Writer) BuildRequest(report kubestronaut.Report) *sheets.BatchUpdateValuesRequest {
	l := w.cfg.Layout
	data := []*sheets.ValueRange{
		w.cell(l.RegionHeader, labelRegion),
		w.cell(l.RegionCountHeader, labelKubestronauts),
		w.cell(l.CountryHeader, labelCountry),
		w.cell(l.CountryCountHeader, labelKubestronauts),
		w.cell(l.PopulationHeader, labelPopulation),
		w.cell(l.TotalLabel, labelTotal),
		w.cell(l.TotalValue, report.Total),
	}

	if len(report.Regions) > 0 {
		regions := make([][]any, len(report.Regions))
		for i, r := range report.Regions {
			regions[i] = []any{r.Name, r.Count}
		}
		data = append(data, w.block(l.RegionStart, regions))
	}

	if len(report.Rows) > 0 {
		rows := make([][]any, len(report.Rows))
		for i, r := range report.Rows {
			rows[i] = r.Values()
		}
		data = append(data, w.block(l.CountryStart, rows))
	}

	return &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
}

func (w *Writer) cell(cell string, value any) *sheets.ValueRange {
	return w.block(cell, [][]any{{value}})
}

func (w *Writer) block(cell string, values [][]any) *sheets.ValueRange {
	return &sheets.ValueRange{
		Range:          a1Range(w.cfg.Worksheet, cell),
		MajorDimension: "ROWS",
		Values:         values,
	}
}

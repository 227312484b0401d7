package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout fixes where each block of the report lands on the worksheet. Cells use A1 notation.
type Layout struct {
	RegionHeader       string
	RegionCountHeader  string
	CountryHeader      string
	CountryCountHeader string
	PopulationHeader   string
	TotalLabel         string
	TotalValue         string
	// RegionStart is the top-left cell of the region block (name, count).
	RegionStart string
	// CountryStart is the top-left cell of the country block (name, count, population).
	CountryStart string
}

// DefaultLayout matches the existing kubestronauts worksheet.
func DefaultLayout() Layout {
	return Layout{
		RegionHeader:       "A1",
		RegionCountHeader:  "B1",
		CountryHeader:      "D1",
		CountryCountHeader: "E1",
		PopulationHeader:   "F1",
		TotalLabel:         "A10",
		TotalValue:         "B10",
		RegionStart:        "A2",
		CountryStart:       "D2",
	}
}

// regionsOverlapTotal reports whether n region rows starting at RegionStart
// would reach the total row.
func (l Layout) regionsOverlapTotal(n int) (bool, error) {
	_, startRow, err := splitCell(l.RegionStart)
	if err != nil {
		return false, err
	}
	_, totalRow, err := splitCell(l.TotalLabel)
	if err != nil {
		return false, err
	}
	if totalRow < startRow || n == 0 {
		return false, nil
	}
	return startRow+n-1 >= totalRow, nil
}

func (l Layout) validate() error {
	cells := []string{
		l.RegionHeader, l.RegionCountHeader, l.CountryHeader, l.CountryCountHeader,
		l.PopulationHeader, l.TotalLabel, l.TotalValue, l.RegionStart, l.CountryStart,
	}
	for _, c := range cells {
		if _, _, err := splitCell(c); err != nil {
			return err
		}
	}
	return nil
}

// splitCell splits "B10" into ("B", 10).
func splitCell(cell string) (string, int, error) {
	i := strings.IndexFunc(cell, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid cell %q", cell)
	}
	col := cell[:i]
	for _, r := range col {
		if r < 'A' || r > 'Z' {
			return "", 0, fmt.Errorf("invalid cell %q", cell)
		}
	}
	row, err := strconv.Atoi(cell[i:])
	if err != nil || row <= 0 {
		return "", 0, fmt.Errorf("invalid cell %q", cell)
	}
	return col, row, nil
}

// a1Range qualifies a cell with a quoted worksheet name.
func a1Range(worksheet, cell string) string {
	return "'" + strings.ReplaceAll(worksheet, "'", "''") + "'!" + cell
}

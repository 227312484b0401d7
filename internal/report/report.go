// Package report pairs scraped countries with their populations and orders the
// rows for output.
package report

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
)

// ErrLengthMismatch indicates countries and populations cannot be paired by index.
var ErrLengthMismatch = errors.New("countries and populations differ in length")

// Build pairs scrape.Countries[i] with populations[i] and sorts regions and rows
// by count, descending. Ties keep scrape order.
func Build(scrape kubestronaut.ScrapeResult, populations []kubestronaut.Population) (kubestronaut.Report, error) {
	rows, err := Pair(scrape.Countries, populations)
	if err != nil {
		return kubestronaut.Report{}, err
	}
	return kubestronaut.Report{
		Regions: SortEntries(scrape.Regions),
		Rows:    SortRows(rows),
		Total:   scrape.Total,
	}, nil
}

// Pair zips countries and populations positionally.
func Pair(countries []kubestronaut.Entry, populations []kubestronaut.Population) ([]kubestronaut.Row, error) {
	if len(countries) != len(populations) {
		return nil, fmt.Errorf("%w: %d countries, %d populations", ErrLengthMismatch, len(countries), len(populations))
	}
	rows := make([]kubestronaut.Row, len(countries))
	for i, c := range countries {
		rows[i] = kubestronaut.Row{Country: c.Name, Count: c.Count, Population: populations[i]}
	}
	return rows, nil
}

// SortEntries returns a copy of entries ordered by count, descending, stable.
func SortEntries(entries []kubestronaut.Entry) []kubestronaut.Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b kubestronaut.Entry) int {
		return b.Count - a.Count
	})
	return out
}

// SortRows returns a copy of rows ordered by count, descending, stable.
func SortRows(rows []kubestronaut.Row) []kubestronaut.Row {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b kubestronaut.Row) int {
		return b.Count - a.Count
	})
	return out
}

// Unavailable lists the countries whose population could not be resolved, in row order.
func Unavailable(rows []kubestronaut.Row) []string {
	var names []string
	for _, r := range rows {
		if !r.Population.Available {
			names = append(names, r.Country)
		}
	}
	return names
}

package kubestronaut

import "time"

// UnavailableText is written in place of a population that could not be resolved.
const UnavailableText = "Population data not available"

// Entry is a region or country and its Kubestronaut count as scraped from the source page.
type Entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Population is a resolved population or the "unavailable" sentinel.
// The zero value is the sentinel, which keeps it distinct from a real population of 0.
type Population struct {
	Value     int64 `json:"value"`
	Available bool  `json:"available"`
}

// KnownPopulation wraps a resolved population value.
func KnownPopulation(value int64) Population {
	return Population{Value: value, Available: true}
}

// Unavailable returns the sentinel population.
func Unavailable() Population {
	return Population{}
}

// CellValue renders the population for a spreadsheet cell.
func (p Population) CellValue() any {
	if !p.Available {
		return UnavailableText
	}
	return p.Value
}

// Row pairs a country with its count and resolved population.
type Row struct {
	Country    string     `json:"country"`
	Count      int        `json:"count"`
	Population Population `json:"population"`
}

// Values returns the row as spreadsheet cells: country, count, population.
func (r Row) Values() []any {
	return []any{r.Country, r.Count, r.Population.CellValue()}
}

// ScrapeResult is the partitioned output of the source page.
type ScrapeResult struct {
	Regions   []Entry `json:"regions"`
	Countries []Entry `json:"countries"`
	// Total is the sum of region counts.
	Total int `json:"total"`
}

// CountryNames returns the country names in scrape order.
func (s ScrapeResult) CountryNames() []string {
	names := make([]string, len(s.Countries))
	for i, c := range s.Countries {
		names[i] = c.Name
	}
	return names
}

// Report is the sorted, enriched data handed to a Sink.
type Report struct {
	Regions []Entry `json:"regions"`
	Rows    []Row   `json:"rows"`
	Total   int     `json:"total"`
}

// Summary describes one completed run and is the payload of the run notification.
type Summary struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Regions     int       `json:"regions"`
	Countries   int       `json:"countries"`
	Total       int       `json:"total"`
	Unavailable []string  `json:"unavailable,omitempty"`
	DryRun      bool      `json:"dry_run"`
}

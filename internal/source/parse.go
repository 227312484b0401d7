package source

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
)

// CountryIndent is the number of leading spaces that marks an option as a country.
// The page indents countries under their region; there is no explicit tag.
const CountryIndent = 2

// Parse partitions raw option texts of the shape "<name> (<count>)" into regions
// and countries. Options with fewer than CountryIndent leading spaces are regions
// and their counts add to Total. Texts without a parenthesised integer count are
// skipped.
func Parse(options []string) kubestronaut.ScrapeResult {
	result := kubestronaut.ScrapeResult{
		Regions:   []kubestronaut.Entry{},
		Countries: []kubestronaut.Entry{},
	}
	for _, text := range options {
		entry, ok := ParseEntry(text)
		if !ok {
			continue
		}
		if IsCountry(text) {
			result.Countries = append(result.Countries, entry)
			continue
		}
		result.Regions = append(result.Regions, entry)
		result.Total += entry.Count
	}
	return result
}

// ParseEntry splits "<name> (<count>)" on the last opening parenthesis.
func ParseEntry(text string) (kubestronaut.Entry, bool) {
	idx := strings.LastIndex(text, "(")
	if idx < 0 {
		return kubestronaut.Entry{}, false
	}
	rawCount := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text[idx+1:]), ")"))
	count, err := strconv.Atoi(rawCount)
	if err != nil {
		return kubestronaut.Entry{}, false
	}
	name := strings.TrimSpace(strings.Map(nbspToSpace, text[:idx]))
	return kubestronaut.Entry{Name: name, Count: count}, true
}

// IsCountry reports whether text starts with at least CountryIndent space characters.
// U+00A0 counts as a space since the page indents with &nbsp;.
func IsCountry(text string) bool {
	return leadingSpaces(text) >= CountryIndent
}

func leadingSpaces(text string) int {
	n := 0
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		if r != ' ' && r != '\u00a0' {
			break
		}
		n++
		text = text[size:]
	}
	return n
}

func nbspToSpace(r rune) rune {
	if r == '\u00a0' {
		return ' '
	}
	return r
}

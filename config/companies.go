package config

import (
	"fmt"
	"sort"
	"strings"
)

// Company is a display name paired with its ticker
type Company struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// Label is the dropdown text, e.g. "Apple Inc. (AAPL)"
func (c Company) Label() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Ticker)
}

// minPrefix keeps short tickers such as "A" or "MS" from matching a name
const minPrefix = 3

// Companies is the built-in lookup table offered by the interactive prompt
var Companies = []Company{
	{Name: "Apple Inc.", Ticker: "AAPL"},
	{Name: "Microsoft Corporation", Ticker: "MSFT"},
	{Name: "Amazon.com, Inc.", Ticker: "AMZN"},
	{Name: "Alphabet Inc. Class A", Ticker: "GOOGL"},
	{Name: "Alphabet Inc. Class C", Ticker: "GOOG"},
	{Name: "Meta Platforms, Inc.", Ticker: "META"},
	{Name: "Tesla, Inc.", Ticker: "TSLA"},
	{Name: "NVIDIA Corporation", Ticker: "NVDA"},
	{Name: "JPMorgan Chase & Co.", Ticker: "JPM"},
}

// LookupCompany resolves a ticker, a label or a case-insensitive name
// prefix of at least minPrefix characters. Unknown inputs return false;
// callers may still use them as raw tickers.
func LookupCompany(query string) (Company, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Company{}, false
	}
	for _, c := range Companies {
		if strings.EqualFold(c.Ticker, q) || c.Label() == q {
			return c, true
		}
	}
	if len(q) < minPrefix {
		return Company{}, false
	}
	lower := strings.ToLower(q)
	for _, c := range Companies {
		if strings.HasPrefix(strings.ToLower(c.Name), lower) {
			return c, true
		}
	}
	return Company{}, false
}

// CompanyLabels returns the labels sorted alphabetically
func CompanyLabels() []string {
	labels := make([]string, 0, len(Companies))
	for _, c := range Companies {
		labels = append(labels, c.Label())
	}
	sort.Strings(labels)
	return labels
}

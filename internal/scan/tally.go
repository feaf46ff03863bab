package scan

import (
	"screener-backend/internal/scrapers/screener"
	"sort"
)

// Tally counts, per symbol, how many outcomes of a batch contain it.
type Tally map[string]int

type Ranked struct {
	Symbol string
	Count  int
}

// NewTally builds a tally from outcomes. A symbol is counted at most once
// per outcome and rows without a resolvable symbol are not counted.
func NewTally(outcomes []Outcome) Tally {
	tally := Tally{}
	for _, outcome := range outcomes {
		seen := map[string]struct{}{}
		for _, row := range outcome.Rows {
			if row.Symbol == "" || row.Symbol == screener.UnknownSymbol {
				continue
			}
			if _, ok := seen[row.Symbol]; ok {
				continue
			}
			seen[row.Symbol] = struct{}{}
			tally[row.Symbol]++
		}
	}
	return tally
}

// Ranked returns every symbol ordered by count descending then symbol.
func (t Tally) Ranked() []Ranked {
	out := make([]Ranked, 0, len(t))
	for symbol, count := range t {
		out = append(out, Ranked{Symbol: symbol, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Top returns at most n of the highest ranked symbols.
func (t Tally) Top(n int) []Ranked {
	ranked := t.Ranked()
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// HighConviction returns the ranked symbols whose count is at least
// threshold.
func (t Tally) HighConviction(threshold int) []Ranked {
	var out []Ranked
	for _, r := range t.Ranked() {
		if r.Count < threshold {
			break
		}
		out = append(out, r)
	}
	return out
}

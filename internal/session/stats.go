package session

import (
	"sort"

	"trickia-quiz/internal/domain"
)

// RankedTheme is a theme tally with its client-side percentage.
type RankedTheme struct {
	Theme   string
	Correct int
	Total   int
	// Percent is round(100*Correct/Total); meaningless when HasPercent is false.
	Percent    int
	HasPercent bool
}

// Aggregate is the ranked view of a stats snapshot.
type Aggregate struct {
	// Rows lists every theme in backend order, zero-total ones included.
	Rows []RankedTheme
	// Desc and Asc rank themes with at least one answer. Ties keep backend order.
	Desc []RankedTheme
	Asc  []RankedTheme

	CorrectTotal   int
	QuestionsTotal int
}

// AggregateStats converts raw per-theme tallies into percentages and rankings.
// Each percentage is computed from its own theme, never from global totals.
func AggregateStats(raw []domain.ThemeStat) Aggregate {
	agg := Aggregate{Rows: make([]RankedTheme, 0, len(raw))}
	ranked := make([]RankedTheme, 0, len(raw))
	for _, s := range raw {
		pct, ok := domain.Percent(s.Correct, s.Total)
		row := RankedTheme{
			Theme:      s.Theme,
			Correct:    s.Correct,
			Total:      s.Total,
			Percent:    pct,
			HasPercent: ok,
		}
		agg.Rows = append(agg.Rows, row)
		agg.CorrectTotal += s.Correct
		agg.QuestionsTotal += s.Total
		if ok {
			ranked = append(ranked, row)
		}
	}

	agg.Desc = append([]RankedTheme(nil), ranked...)
	sort.SliceStable(agg.Desc, func(i, j int) bool {
		return agg.Desc[i].Percent > agg.Desc[j].Percent
	})
	agg.Asc = append([]RankedTheme(nil), ranked...)
	sort.SliceStable(agg.Asc, func(i, j int) bool {
		return agg.Asc[i].Percent < agg.Asc[j].Percent
	})
	return agg
}

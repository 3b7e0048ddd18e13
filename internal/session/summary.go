package session

import (
	"sort"
	"time"

	"trickia-quiz/internal/domain"
)

// DefaultTopN is the default length of the strongest/weakest theme lists.
const DefaultTopN = 2

const (
	minRankedTotal  = 2
	badgeMinPercent = 85
)

// NotEnoughData is the placeholder shown when too few themes can be ranked.
const NotEnoughData = "Not enough data yet: answer at least two questions in two themes."

// Narrative tiers of the end-of-session message.
const (
	TierRetry    = "retry"
	TierProgress = "progress"
	TierMastery  = "mastery"
)

var narratives = map[string]string{
	TierRetry:    "Keep going! Every session helps you improve. Review your weak topics and try again soon.",
	TierProgress: "Nice job! You're building solid knowledge. A bit more practice and you'll master these topics.",
	TierMastery:  "Outstanding performance! You're crushing this quiz. Keep up the great work!",
}

// Counters are the session numbers the summary is built from.
type Counters struct {
	Score      int
	Answered   int
	BestStreak int
	Elapsed    time.Duration
}

// ThemeComment is a ranked theme with its commentary line.
type ThemeComment struct {
	Theme   string
	Percent int
	Correct int
	Total   int
	Comment string
}

// ThemeList is either a ranked list or a placeholder when data is too thin.
type ThemeList struct {
	Themes      []ThemeComment
	Placeholder string
}

// Badge is an achievement earned during the session.
type Badge struct {
	Theme string
	Label string
}

// Report is the end-of-session summary.
type Report struct {
	Score      int
	Answered   int
	Percent    int
	Elapsed    string
	BestStreak int
	Tier       string
	Message    string
	Strongest  ThemeList
	Weakest    ThemeList
	Badges     []Badge
}

// Summarize builds the end-of-session report. Themes with fewer than two
// answers are left out of the rankings; ties keep backend order.
func Summarize(stats []domain.ThemeStat, c Counters, topN int) Report {
	if topN <= 0 {
		topN = DefaultTopN
	}

	pct, _ := domain.Percent(c.Score, c.Answered)
	tier := narrativeTier(pct)
	report := Report{
		Score:      c.Score,
		Answered:   c.Answered,
		Percent:    pct,
		Elapsed:    FormatElapsed(c.Elapsed),
		BestStreak: c.BestStreak,
		Tier:       tier,
		Message:    narratives[tier],
	}

	ranked := make([]RankedTheme, 0, len(stats))
	for _, row := range AggregateStats(stats).Rows {
		if row.Total >= minRankedTotal {
			ranked = append(ranked, row)
		}
	}
	if len(ranked) < 2 {
		report.Strongest = ThemeList{Placeholder: NotEnoughData}
		report.Weakest = ThemeList{Placeholder: NotEnoughData}
		return report
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Percent > ranked[j].Percent
	})

	n := topN
	if n > len(ranked) {
		n = len(ranked)
	}
	for _, t := range ranked[:n] {
		report.Strongest.Themes = append(report.Strongest.Themes, comment(t, true))
		if t.Percent >= badgeMinPercent && t.Total >= minRankedTotal && len(report.Badges) < topN {
			report.Badges = append(report.Badges, Badge{Theme: t.Theme, Label: domain.ExpertBadge(t.Theme)})
		}
	}
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		report.Weakest.Themes = append(report.Weakest.Themes, comment(ranked[i], false))
	}
	return report
}

func narrativeTier(percent int) string {
	switch {
	case percent < 50:
		return TierRetry
	case percent <= 80:
		return TierProgress
	default:
		return TierMastery
	}
}

func comment(t RankedTheme, top bool) ThemeComment {
	return ThemeComment{
		Theme:   t.Theme,
		Percent: t.Percent,
		Correct: t.Correct,
		Total:   t.Total,
		Comment: Commentary(t.Percent, top),
	}
}

// Commentary returns the tiered comment for a ranked theme.
func Commentary(percent int, top bool) string {
	if top {
		switch {
		case percent >= 90:
			return "Total mastery, nothing gets past you here."
		case percent >= 75:
			return "Strong results, you clearly know this one."
		default:
			return "Above average, a good base to build on."
		}
	}
	switch {
	case percent < 40:
		return "A challenging theme for now, worth a focused review."
	case percent < 60:
		return "Room to improve, a few more rounds will help."
	default:
		return "Doing fairly well, just not your strongest."
	}
}

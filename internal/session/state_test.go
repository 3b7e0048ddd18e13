package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trickia-quiz/internal/domain"
)

func catalogue() []domain.Theme {
	var out []domain.Theme
	for _, name := range domain.AllThemes() {
		out = append(out, domain.Theme{ID: name, Name: name})
	}
	return out
}

func TestValidateSelectionBoundary(t *testing.T) {
	_, err := ValidateSelection(catalogue(), fiveThemes[:4])
	assert.ErrorIs(t, err, ErrNotEnoughThemes)

	sel, err := ValidateSelection(catalogue(), fiveThemes)
	require.NoError(t, err)
	assert.Equal(t, fiveThemes, sel.Allowed)
	assert.Equal(t, []string{"Movies & TV", "Technology", "General Knowledge", "Arts & Culture"}, sel.Excluded)
}

func TestValidateSelectionCountsDistinctThemes(t *testing.T) {
	dup := append([]string{"Science"}, fiveThemes[:4]...)
	_, err := ValidateSelection(catalogue(), dup)
	assert.ErrorIs(t, err, ErrNotEnoughThemes)

	_, err = ValidateSelection(catalogue(), append(fiveThemes, "Cooking"))
	assert.ErrorIs(t, err, ErrUnknownTheme)
}

func TestStreakTracking(t *testing.T) {
	s := newState(8)
	answers := []bool{true, true, false, true, true, true, false, true}
	wantStreak := []int{1, 2, 0, 1, 2, 3, 0, 1}
	wantBest := []int{1, 2, 2, 2, 2, 3, 3, 3}
	for i, ok := range answers {
		s.recordAnswer(ok)
		assert.Equal(t, wantStreak[i], s.Streak)
		assert.Equal(t, wantBest[i], s.BestStreak)
		assert.LessOrEqual(t, s.Correct, s.Index)
	}
	assert.Equal(t, 6, s.Correct)
	assert.True(t, s.ReadyToFinish)
	assert.True(t, s.Exhausted())
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00", FormatElapsed(0))
	assert.Equal(t, "00:59", FormatElapsed(59*time.Second+999*time.Millisecond))
	assert.Equal(t, "12:05", FormatElapsed(12*time.Minute+5*time.Second))
	assert.Equal(t, "1:00:01", FormatElapsed(time.Hour+time.Second))
}

func TestGateAdmitsOne(t *testing.T) {
	var g Gate
	assert.True(t, g.Acquire())
	assert.False(t, g.Acquire())
	assert.False(t, g.Open())
	g.Release()
	assert.True(t, g.Open())
	g.Close()
	assert.False(t, g.Acquire())
}

func TestAggregateStats(t *testing.T) {
	agg := AggregateStats([]domain.ThemeStat{
		stat("Music", 1, 3),
		stat("Sports", 0, 0),
		stat("Science", 2, 3),
		stat("History", 1, 3),
	})

	require.Len(t, agg.Rows, 4)
	assert.False(t, agg.Rows[1].HasPercent)
	assert.Equal(t, 33, agg.Rows[0].Percent)
	assert.Equal(t, 67, agg.Rows[2].Percent)
	assert.Equal(t, 4, agg.CorrectTotal)
	assert.Equal(t, 9, agg.QuestionsTotal)

	var desc, asc []string
	for _, r := range agg.Desc {
		desc = append(desc, r.Theme)
	}
	for _, r := range agg.Asc {
		asc = append(asc, r.Theme)
	}
	assert.Equal(t, []string{"Science", "Music", "History"}, desc)
	assert.Equal(t, []string{"Music", "History", "Science"}, asc)
}

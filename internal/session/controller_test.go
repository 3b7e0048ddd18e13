package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fiveThemes = []string{"Science", "History", "Music", "Sports", "Geography"}

func startedController(t *testing.T, backend *fakeBackend, clock *fakeClock, total int) *Controller {
	t.Helper()
	ctx := context.Background()
	c := NewController(backend, testOptions(clock))
	_, err := c.LoadThemes(ctx)
	require.NoError(t, err)
	require.NoError(t, c.ChooseMode(total))
	_, err = c.SelectThemes(ctx, fiveThemes)
	require.NoError(t, err)
	require.Equal(t, PhaseInProgress, c.Snapshot().Phase)
	return c
}

func playOne(t *testing.T, c *Controller) Outcome {
	t.Helper()
	ctx := context.Background()
	action, err := c.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, ActionLoadQuestion, action)
	require.Equal(t, PhaseAwaitingAnswer, c.Snapshot().Phase)
	out, err := c.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	return out
}

func TestSessionScenarioStreakResetsOnWrong(t *testing.T) {
	backend := newFakeBackend(true, true, false, true, true)
	clock := newFakeClock()
	c := startedController(t, backend, clock, 5)

	streaks := []int{1, 2, 0, 1, 2}
	for i, want := range streaks {
		out := playOne(t, c)
		assert.Equal(t, want, out.Streak, "answer %d", i+1)
		assert.Equal(t, i+1, out.Index)
		v := c.Snapshot()
		assert.LessOrEqual(t, v.Correct, v.Index)
		assert.LessOrEqual(t, v.Index, v.Total)
		assert.LessOrEqual(t, v.Streak, v.BestStreak)
		clock.Advance(3 * time.Second)
	}

	v := c.Snapshot()
	assert.True(t, v.ReadyToFinish)
	assert.Equal(t, PhaseInProgress, v.Phase, "finishing must be explicit")

	action, err := c.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionFinalize, action)

	v = c.Snapshot()
	require.Equal(t, PhaseFinished, v.Phase)
	require.NotNil(t, v.Report)
	assert.Equal(t, 4, v.Report.Score)
	assert.Equal(t, 5, v.Report.Answered)
	assert.Equal(t, 80, v.Report.Percent)
	assert.Equal(t, 2, v.Report.BestStreak)
	assert.Equal(t, TierProgress, v.Report.Tier)
	assert.Equal(t, "00:15", v.Report.Elapsed)

	require.Len(t, backend.ends, 1)
	assert.Equal(t, 4, backend.ends[0].Score)
	assert.Equal(t, 2, backend.ends[0].BestStreak)
	assert.Equal(t, 5, backend.ends[0].ThemeStats["Science"].Total)
}

func TestConcurrentSubmitSendsOneAnswer(t *testing.T) {
	backend := newFakeBackend(true)
	backend.answerGate = make(chan struct{})
	c := startedController(t, backend, newFakeClock(), 5)

	_, err := c.Advance(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.SubmitAnswer(context.Background(), "4")
			errs <- err
		}()
	}

	// One submit is parked in the backend; the other must have bounced.
	locked := <-errs
	assert.ErrorIs(t, locked, ErrAnswersLocked)
	close(backend.answerGate)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	_, answers := backend.count()
	assert.Equal(t, 1, answers)
}

func TestAdvanceIsNoOpWhileQuestionPending(t *testing.T) {
	backend := newFakeBackend(true)
	c := startedController(t, backend, newFakeClock(), 5)
	ctx := context.Background()

	_, err := c.Advance(ctx)
	require.NoError(t, err)

	action, err := c.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	questions, _ := backend.count()
	assert.Equal(t, 1, questions)

	_, err = c.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	assert.True(t, c.Snapshot().CanAdvance)
}

func TestLoadQuestionAfterExhaustionIsNoOp(t *testing.T) {
	backend := newFakeBackend(true, true, true, true, true)
	c := startedController(t, backend, newFakeClock(), 5)
	for i := 0; i < 5; i++ {
		playOne(t, c)
	}
	before := c.Snapshot()

	require.NoError(t, c.LoadQuestion(context.Background()))

	questions, _ := backend.count()
	assert.Equal(t, 5, questions)
	assert.Equal(t, before, c.Snapshot())

	_, err := c.Finalize(context.Background())
	require.NoError(t, err)
	action, err := c.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	questions, _ = backend.count()
	assert.Equal(t, 5, questions)
}

func TestSettleDelayUsesRecordedAction(t *testing.T) {
	backend := newFakeBackend(true)
	clock := newFakeClock()
	opts := testOptions(clock)
	opts.SettleDelay = DefaultSettleDelay
	fire := make(chan time.Time)
	var waited time.Duration
	opts.After = func(d time.Duration) <-chan time.Time {
		waited = d
		return fire
	}
	c := NewController(backend, opts)
	ctx := context.Background()
	_, err := c.LoadThemes(ctx)
	require.NoError(t, err)
	require.NoError(t, c.ChooseMode(5))
	_, err = c.SelectThemes(ctx, fiveThemes)
	require.NoError(t, err)

	done := make(chan Action, 1)
	go func() {
		action, err := c.Advance(ctx)
		assert.NoError(t, err)
		done <- action
	}()

	require.Eventually(t, func() bool { return !c.Snapshot().CanAdvance }, time.Second, time.Millisecond)
	second, err := c.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, second)

	fire <- time.Time{}
	assert.Equal(t, ActionLoadQuestion, <-done)
	assert.Equal(t, DefaultSettleDelay, waited)
	questions, _ := backend.count()
	assert.Equal(t, 1, questions)
}

func TestAdvanceCancelledDuringSettleReopensGate(t *testing.T) {
	backend := newFakeBackend()
	opts := testOptions(newFakeClock())
	opts.SettleDelay = time.Hour
	opts.After = func(time.Duration) <-chan time.Time { return make(chan time.Time) }
	c := NewController(backend, opts)
	bg := context.Background()
	_, _ = c.LoadThemes(bg)
	require.NoError(t, c.ChooseMode(10))
	_, err := c.SelectThemes(bg, fiveThemes)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(bg)
	cancel()
	action, err := c.Advance(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ActionNone, action)
	assert.True(t, c.Snapshot().CanAdvance)
}

func TestFinalizeDuringSettleDropsRecordedAction(t *testing.T) {
	backend := newFakeBackend()
	opts := testOptions(newFakeClock())
	opts.SettleDelay = DefaultSettleDelay
	fire := make(chan time.Time)
	opts.After = func(time.Duration) <-chan time.Time { return fire }
	c := NewController(backend, opts)
	ctx := context.Background()
	_, err := c.LoadThemes(ctx)
	require.NoError(t, err)
	require.NoError(t, c.ChooseMode(5))
	_, err = c.SelectThemes(ctx, fiveThemes)
	require.NoError(t, err)

	done := make(chan Action, 1)
	go func() {
		action, err := c.Advance(ctx)
		assert.NoError(t, err)
		done <- action
	}()
	require.Eventually(t, func() bool { return !c.Snapshot().CanAdvance }, time.Second, time.Millisecond)

	_, err = c.Finalize(ctx)
	require.NoError(t, err)
	fire <- time.Time{}

	assert.Equal(t, ActionNone, <-done)
	questions, _ := backend.count()
	assert.Equal(t, 0, questions)
	assert.Equal(t, PhaseFinished, c.Snapshot().Phase)
	assert.False(t, c.advance.Open())
}

func TestSelectionRejectedLeavesStateUntouched(t *testing.T) {
	backend := newFakeBackend()
	c := NewController(backend, testOptions(newFakeClock()))
	ctx := context.Background()
	_, _ = c.LoadThemes(ctx)
	require.NoError(t, c.ChooseMode(10))

	_, err := c.SelectThemes(ctx, fiveThemes[:4])
	assert.ErrorIs(t, err, ErrNotEnoughThemes)
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
	assert.Equal(t, 0, backend.starts)

	sel, err := c.SelectThemes(ctx, fiveThemes)
	require.NoError(t, err)
	assert.Len(t, sel.Excluded, 4)
	assert.Equal(t, 1, backend.starts)
}

func TestChooseModeRejectsUnknownSize(t *testing.T) {
	c := NewController(newFakeBackend(), testOptions(newFakeClock()))
	assert.ErrorIs(t, c.ChooseMode(7), ErrInvalidSessionSize)
	assert.NoError(t, c.ChooseMode(20))
}

func TestFailedStartStaysThemeSelected(t *testing.T) {
	backend := newFakeBackend()
	backend.failStart = true
	c := NewController(backend, testOptions(newFakeClock()))
	ctx := context.Background()
	_, _ = c.LoadThemes(ctx)
	require.NoError(t, c.ChooseMode(5))

	_, err := c.SelectThemes(ctx, fiveThemes)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, PhaseThemeSelected, c.Snapshot().Phase)

	backend.failStart = false
	_, err = c.SelectThemes(ctx, fiveThemes)
	require.NoError(t, err)
	assert.Equal(t, PhaseInProgress, c.Snapshot().Phase)
}

func TestFailedAnswerDoesNotAdvance(t *testing.T) {
	backend := newFakeBackend(true)
	c := startedController(t, backend, newFakeClock(), 5)
	ctx := context.Background()
	_, err := c.Advance(ctx)
	require.NoError(t, err)

	backend.failAnswer = true
	_, err = c.SubmitAnswer(ctx, "4")
	assert.ErrorIs(t, err, errBackendDown)
	v := c.Snapshot()
	assert.Equal(t, PhaseAwaitingAnswer, v.Phase)
	assert.Equal(t, 0, v.Index)
	assert.True(t, v.AnswersEnabled)

	backend.failAnswer = false
	out, err := c.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Index)
}

func TestFailedQuestionLoadReopensAdvance(t *testing.T) {
	backend := newFakeBackend()
	backend.failQuestion = true
	c := startedController(t, backend, newFakeClock(), 5)

	action, err := c.Advance(context.Background())
	assert.Equal(t, ActionLoadQuestion, action)
	assert.ErrorIs(t, err, errBackendDown)
	v := c.Snapshot()
	assert.Equal(t, PhaseInProgress, v.Phase)
	assert.True(t, v.CanAdvance)
}

func TestStatsReloadedAfterEveryAnswer(t *testing.T) {
	backend := newFakeBackend(true, false)
	c := startedController(t, backend, newFakeClock(), 5)

	assert.True(t, c.Snapshot().Chart.NoData)
	playOne(t, c)
	playOne(t, c)

	v := c.Snapshot()
	assert.Equal(t, 2, backend.statsCalls)
	require.Len(t, v.Stats.Rows, 1)
	assert.Equal(t, 50, v.Stats.Rows[0].Percent)
	correct, wrong := v.Chart.Percentages()
	assert.Equal(t, 50, correct)
	assert.Equal(t, 50, wrong)
	require.Len(t, v.Sources, 1)
}

func TestFinalizeSurvivesSaveFailure(t *testing.T) {
	backend := newFakeBackend(true, true, true, true, true)
	c := startedController(t, backend, newFakeClock(), 5)
	for i := 0; i < 5; i++ {
		playOne(t, c)
	}
	backend.failEnd = true

	report, err := c.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, report.Percent)
	assert.Equal(t, TierMastery, report.Tier)

	_, err = c.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrSessionFinished)
}

func TestTimerStartsOnFirstQuestionAndStopsOnce(t *testing.T) {
	backend := newFakeBackend(true)
	clock := newFakeClock()
	c := startedController(t, backend, clock, 5)

	clock.Advance(time.Minute)
	assert.Equal(t, "00:00", c.ElapsedString())

	playOne(t, c)
	clock.Advance(90*time.Second + 700*time.Millisecond)
	assert.Equal(t, "01:30", c.ElapsedString())

	_, err := c.Finalize(context.Background())
	require.NoError(t, err)
	clock.Advance(time.Hour)
	assert.Equal(t, "01:30", c.ElapsedString())
}

func TestRandomCategoryDrawsFromSelection(t *testing.T) {
	backend := newFakeBackend(true)
	opts := testOptions(newFakeClock())
	opts.RandomCategory = true
	c := NewController(backend, opts)
	ctx := context.Background()
	_, _ = c.LoadThemes(ctx)
	require.NoError(t, c.ChooseMode(5))
	_, err := c.SelectThemes(ctx, fiveThemes)
	require.NoError(t, err)

	_, err = c.Advance(ctx)
	require.NoError(t, err)
	require.Len(t, backend.categories, 1)
	assert.Contains(t, fiveThemes, backend.categories[0])
}

func TestResetReturnsToIdle(t *testing.T) {
	backend := newFakeBackend(true)
	c := startedController(t, backend, newFakeClock(), 5)
	playOne(t, c)

	c.Reset()
	v := c.Snapshot()
	assert.Equal(t, PhaseIdle, v.Phase)
	assert.Equal(t, 0, v.Index)
	assert.False(t, v.CanAdvance)
	assert.False(t, v.AnswersEnabled)
	_, err := c.SubmitAnswer(context.Background(), "4")
	assert.ErrorIs(t, err, ErrAnswersLocked)
}

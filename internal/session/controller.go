package session

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"trickia-quiz/internal/domain"
)

// DefaultSettleDelay is the pause between accepting an advance trigger and acting on it.
const DefaultSettleDelay = 1500 * time.Millisecond

// Backend is the remote question service the controller drives.
type Backend interface {
	Themes(ctx context.Context) ([]domain.Theme, error)
	StartSession(ctx context.Context, themes []string) (domain.StartAck, error)
	Question(ctx context.Context, category string) (domain.Question, error)
	Answer(ctx context.Context, submission domain.AnswerSubmission) (domain.AnswerResult, error)
	Stats(ctx context.Context) ([]domain.ThemeStat, error)
	SourceStats(ctx context.Context) ([]domain.SourceStat, error)
	EndSession(ctx context.Context, report domain.SessionReport) error
}

// Options tune a Controller. Zero-valued hooks fall back to the real clock,
// log.Default and a time-seeded random source.
type Options struct {
	SettleDelay time.Duration
	TopN        int
	// RandomCategory sends a random allowed theme with every question request
	// instead of letting the backend pick one.
	RandomCategory bool

	Logger *log.Logger
	Now    func() time.Time
	After  func(time.Duration) <-chan time.Time
	Rand   *rand.Rand
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{SettleDelay: DefaultSettleDelay, TopN: DefaultTopN}
}

// Outcome is the processed result of one answer.
type Outcome struct {
	Success       bool
	CorrectAnswer string
	Score         int
	Index         int
	Total         int
	Streak        int
	BestStreak    int
	ReadyToFinish bool
}

// View is a read-only copy of the controller state for rendering.
type View struct {
	Phase          Phase
	Total          int
	Index          int
	Correct        int
	Streak         int
	BestStreak     int
	ReadyToFinish  bool
	Elapsed        time.Duration
	Themes         []domain.Theme
	Allowed        []string
	Excluded       []string
	Question       *domain.Question
	LastResult     *domain.AnswerResult
	Stats          Aggregate
	Sources        []domain.SourceStat
	Chart          Projection
	AnswersEnabled bool
	CanAdvance     bool
	Report         *Report
}

// Controller owns one quiz session: its state machine, its counters and the
// gates that keep at most one load and one answer in flight.
type Controller struct {
	backend Backend
	opts    Options
	logger  *log.Logger
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time

	advance Gate
	loading Gate
	answer  Gate

	mu         sync.Mutex
	gen        int
	rnd        *rand.Rand
	state      State
	themes     []domain.Theme
	selection  Selection
	question   *domain.Question
	lastResult *domain.AnswerResult
	rawStats   []domain.ThemeStat
	stats      Aggregate
	sources    []domain.SourceStat
	pending    Action
	report     *Report
}

// NewController builds an idle controller.
func NewController(backend Backend, opts Options) *Controller {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c := &Controller{
		backend: backend,
		opts:    opts,
		logger:  opts.Logger,
		now:     opts.Now,
		after:   opts.After,
		rnd:     opts.Rand,
	}
	c.advance.Close()
	c.answer.Close()
	return c
}

// LoadThemes fetches the selectable themes and keeps them as the catalogue
// used to validate selections.
func (c *Controller) LoadThemes(ctx context.Context) ([]domain.Theme, error) {
	themes, err := c.backend.Themes(ctx)
	if err != nil {
		c.logger.Printf("load themes failed: %v", err)
		return nil, fmt.Errorf("load themes: %w", err)
	}
	c.mu.Lock()
	c.themes = themes
	c.mu.Unlock()
	return themes, nil
}

// ChooseMode sets the session length. It is only valid while idle.
func (c *Controller) ChooseMode(total int) error {
	if !ValidSize(total) {
		return fmt.Errorf("%w: %d", ErrInvalidSessionSize, total)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseIdle {
		return ErrWrongPhase
	}
	c.state.Total = total
	return nil
}

// SelectThemes validates the selection, asks the backend to start a session
// and resets every counter once the start is acknowledged. A rejected
// selection changes nothing; a failed start leaves the session in
// PhaseThemeSelected so the call can be repeated.
func (c *Controller) SelectThemes(ctx context.Context, selected []string) (Selection, error) {
	c.mu.Lock()
	if (c.state.Phase != PhaseIdle && c.state.Phase != PhaseThemeSelected) || c.state.Total == 0 {
		c.mu.Unlock()
		return Selection{}, ErrWrongPhase
	}
	sel, err := ValidateSelection(c.themes, selected)
	if err != nil {
		c.mu.Unlock()
		return Selection{}, err
	}
	c.selection = sel
	c.state.Phase = PhaseThemeSelected
	total := c.state.Total
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	if _, err := c.backend.StartSession(ctx, sel.Allowed); err != nil {
		c.logger.Printf("start session failed: %v", err)
		return sel, fmt.Errorf("start session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return sel, ErrWrongPhase
	}
	c.state = newState(total)
	c.question = nil
	c.lastResult = nil
	c.rawStats = nil
	c.stats = Aggregate{}
	c.sources = nil
	c.pending = ActionNone
	c.report = nil
	c.answer.Close()
	c.loading.Release()
	c.advance.Release()
	return sel, nil
}

// Advance is the "next" trigger. While a previous trigger is still being
// served it is a no-op returning ActionNone. Otherwise it records what the
// trigger resolves to, waits the settle delay and then loads the next
// question or finalizes the session.
func (c *Controller) Advance(ctx context.Context) (Action, error) {
	if !c.advance.Acquire() {
		return ActionNone, nil
	}
	c.mu.Lock()
	if c.state.Phase != PhaseInProgress {
		c.mu.Unlock()
		c.advance.Release()
		return ActionNone, ErrWrongPhase
	}
	c.pending = ActionLoadQuestion
	if c.state.ReadyToFinish {
		c.pending = ActionFinalize
	}
	c.mu.Unlock()

	if c.opts.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.pending = ActionNone
			c.mu.Unlock()
			c.advance.Release()
			return ActionNone, ctx.Err()
		case <-c.after(c.opts.SettleDelay):
		}
	}

	c.mu.Lock()
	action := c.pending
	c.pending = ActionNone
	c.mu.Unlock()

	switch action {
	case ActionFinalize:
		if _, err := c.Finalize(ctx); err != nil {
			return action, err
		}
	case ActionLoadQuestion:
		if err := c.LoadQuestion(ctx); err != nil {
			c.mu.Lock()
			finished := c.state.Phase == PhaseFinished
			c.mu.Unlock()
			if !finished {
				c.advance.Release()
			}
			return action, err
		}
	}
	return action, nil
}

// LoadQuestion fetches and displays the next question. It does nothing once
// every question of the session has been answered, or while another load is
// in flight.
func (c *Controller) LoadQuestion(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Exhausted() {
		c.mu.Unlock()
		return nil
	}
	if c.state.Phase != PhaseInProgress {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	if !c.loading.Acquire() {
		c.mu.Unlock()
		return nil
	}
	category := ""
	if c.opts.RandomCategory && len(c.selection.Allowed) > 0 {
		category = c.selection.Allowed[c.rnd.Intn(len(c.selection.Allowed))]
	}
	gen := c.gen
	c.mu.Unlock()
	defer c.loading.Release()

	q, err := c.backend.Question(ctx, category)
	if err != nil {
		c.logger.Printf("load question failed: %v", err)
		return fmt.Errorf("load question: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state.Phase != PhaseInProgress {
		return ErrWrongPhase
	}
	c.question = &q
	c.lastResult = nil
	c.state.Phase = PhaseAwaitingAnswer
	c.state.startTimer(c.now())
	c.answer.Release()
	return nil
}

// SubmitAnswer sends the player's answer for the displayed question. The
// first call locks the answers; any further call before a new question is
// displayed returns ErrAnswersLocked without reaching the backend.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) (Outcome, error) {
	if !c.answer.Acquire() {
		return Outcome{}, ErrAnswersLocked
	}
	c.mu.Lock()
	if c.state.Phase != PhaseAwaitingAnswer || c.question == nil {
		c.mu.Unlock()
		return Outcome{}, ErrWrongPhase
	}
	sub := domain.AnswerSubmission{QuestionID: c.question.ID, Answer: answer}
	gen := c.gen
	c.mu.Unlock()

	res, err := c.backend.Answer(ctx, sub)
	if err != nil {
		c.logger.Printf("submit answer failed: %v", err)
		c.answer.Release()
		return Outcome{}, fmt.Errorf("submit answer: %w", err)
	}

	c.mu.Lock()
	if gen != c.gen || c.state.Phase != PhaseAwaitingAnswer {
		c.mu.Unlock()
		return Outcome{}, ErrWrongPhase
	}
	c.state.recordAnswer(res.Success())
	c.lastResult = &res
	out := Outcome{
		Success:       res.Success(),
		CorrectAnswer: res.Correct,
		Score:         res.Score,
		Index:         c.state.Index,
		Total:         c.state.Total,
		Streak:        c.state.Streak,
		BestStreak:    c.state.BestStreak,
		ReadyToFinish: c.state.ReadyToFinish,
	}
	c.mu.Unlock()

	c.refreshStats(ctx, gen)
	c.advance.Release()
	return out, nil
}

// Finalize stops the timer, saves the session and builds the summary from a
// fresh stats snapshot. Save or reload failures are logged and the summary
// falls back to the last snapshot.
func (c *Controller) Finalize(ctx context.Context) (Report, error) {
	c.mu.Lock()
	switch c.state.Phase {
	case PhaseFinished:
		c.mu.Unlock()
		return Report{}, ErrSessionFinished
	case PhaseInProgress, PhaseAwaitingAnswer:
	default:
		c.mu.Unlock()
		return Report{}, ErrWrongPhase
	}
	c.state.stopTimer(c.now())
	c.state.Phase = PhaseFinished
	c.question = nil
	c.pending = ActionNone
	c.advance.Close()
	c.answer.Close()

	counters := Counters{
		Score:      c.state.Correct,
		Answered:   c.state.Index,
		BestStreak: c.state.BestStreak,
		Elapsed:    c.state.Elapsed,
	}
	raw := c.rawStats
	gen := c.gen
	c.mu.Unlock()

	report := domain.SessionReport{
		TotalQuestions: counters.Answered,
		Score:          counters.Score,
		BestStreak:     counters.BestStreak,
		TotalTime:      FormatElapsed(counters.Elapsed),
		ThemeStats:     tallies(raw),
	}
	if err := c.backend.EndSession(ctx, report); err != nil {
		c.logger.Printf("save session failed: %v", err)
	}
	if fresh, err := c.backend.Stats(ctx); err != nil {
		c.logger.Printf("reload stats failed: %v", err)
	} else {
		raw = fresh
	}

	summary := Summarize(raw, counters, c.opts.TopN)

	c.mu.Lock()
	if gen == c.gen {
		c.rawStats = raw
		c.stats = AggregateStats(raw)
		c.report = &summary
	}
	c.mu.Unlock()
	return summary, nil
}

// Reset drops the current session and returns to PhaseIdle. In-flight
// responses for the dropped session are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state = State{}
	c.selection = Selection{}
	c.question = nil
	c.lastResult = nil
	c.rawStats = nil
	c.stats = Aggregate{}
	c.sources = nil
	c.pending = ActionNone
	c.report = nil
	c.advance.Close()
	c.answer.Close()
}

// Snapshot returns a copy of the current state for rendering.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		Phase:          c.state.Phase,
		Total:          c.state.Total,
		Index:          c.state.Index,
		Correct:        c.state.Correct,
		Streak:         c.state.Streak,
		BestStreak:     c.state.BestStreak,
		ReadyToFinish:  c.state.ReadyToFinish,
		Elapsed:        c.state.ElapsedAt(c.now()),
		Themes:         append([]domain.Theme(nil), c.themes...),
		Allowed:        append([]string(nil), c.selection.Allowed...),
		Excluded:       append([]string(nil), c.selection.Excluded...),
		Stats:          c.stats,
		Sources:        append([]domain.SourceStat(nil), c.sources...),
		Chart:          Project(c.state.Correct, c.state.Index),
		AnswersEnabled: c.state.Phase == PhaseAwaitingAnswer && c.answer.Open(),
		CanAdvance:     c.state.Phase == PhaseInProgress && c.advance.Open(),
	}
	if c.question != nil {
		q := *c.question
		v.Question = &q
	}
	if c.lastResult != nil {
		r := *c.lastResult
		v.LastResult = &r
	}
	if c.report != nil {
		r := *c.report
		v.Report = &r
	}
	return v
}

// ElapsedString formats the session timer for display.
func (c *Controller) ElapsedString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FormatElapsed(c.state.ElapsedAt(c.now()))
}

// refreshStats reloads the session aggregates. It runs strictly after the
// answer counters are updated; failures keep the previous snapshot.
func (c *Controller) refreshStats(ctx context.Context, gen int) {
	stats, err := c.backend.Stats(ctx)
	if err != nil {
		c.logger.Printf("reload stats failed: %v", err)
	}
	sources, serr := c.backend.SourceStats(ctx)
	if serr != nil {
		c.logger.Printf("reload source stats failed: %v", serr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if err == nil {
		c.rawStats = stats
		c.stats = AggregateStats(stats)
	}
	if serr == nil {
		c.sources = sources
	}
}

func tallies(stats []domain.ThemeStat) map[string]domain.ThemeTally {
	out := make(map[string]domain.ThemeTally, len(stats))
	for _, s := range stats {
		out[s.Theme] = domain.ThemeTally{Total: s.Total, Correct: s.Correct}
	}
	return out
}

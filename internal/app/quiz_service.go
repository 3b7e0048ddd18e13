package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"trickia-quiz/internal/domain"
)

// DefaultAttempts bounds how many candidate questions are drawn per request.
const DefaultAttempts = 6

// SessionRepository abstracts how live player sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(playerID string) *Session
	Get(playerID string) (*Session, bool)
	DeleteIfIdle(playerID string)
}

// QuestionSource supplies trivia questions for a catalogue theme.
type QuestionSource interface {
	Name() string
	Supports(theme string) bool
	// Fetch returns one question; an empty difficulty means any.
	Fetch(ctx context.Context, theme, difficulty string) (domain.TriviaItem, error)
}

// SeenStore remembers which questions a player has been asked across sessions.
type SeenStore interface {
	Seen(ctx context.Context, playerID, hash string) (bool, error)
	MarkSeen(ctx context.Context, playerID string, q domain.SeenQuestion) error
}

// ProfileRepository persists cross-session player history.
type ProfileRepository interface {
	Profile(ctx context.Context, playerID string) (domain.Profile, error)
	BanditStates(ctx context.Context, playerID string) ([]domain.BanditState, error)
	LastStep(ctx context.Context, playerID string) (int, error)
	SaveSession(ctx context.Context, playerID string, rec domain.SessionRecord) error
	History(ctx context.Context, playerID string, themes []string) (map[string][]domain.HistoryPoint, error)
}

// Options tune the service. Zero values fall back to defaults.
type Options struct {
	Discount float64
	Attempts int
	Logger   *log.Logger
	Now      func() time.Time
	Rand     *rand.Rand
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions SessionRepository
	sources  []QuestionSource
	seen     SeenStore
	profiles ProfileRepository

	discount float64
	attempts int
	logger   *log.Logger
	now      func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizService(store SessionRepository, sources []QuestionSource, seen SeenStore, profiles ProfileRepository, opts Options) *QuizService {
	if opts.Discount <= 0 || opts.Discount > 1 {
		opts.Discount = DefaultDiscount
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &QuizService{
		sessions: store,
		sources:  sources,
		seen:     seen,
		profiles: profiles,
		discount: opts.Discount,
		attempts: opts.Attempts,
		logger:   opts.Logger,
		now:      opts.Now,
		rnd:      opts.Rand,
	}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(playerID string) *Session {
	return newSession(playerID, time.Now)
}

// Themes lists the catalogue names in display order.
func (s *QuizService) Themes() []string {
	return domain.AllThemes()
}

// StartSession resets the player's live session. Unknown themes are dropped;
// an empty result falls back to the whole catalogue.
func (s *QuizService) StartSession(_ context.Context, playerID string, themes []string) (domain.StartAck, error) {
	if playerID == "" {
		return domain.StartAck{}, domain.ErrPlayerNotFound
	}
	allowed := make([]string, 0, len(themes))
	dup := make(map[string]bool, len(themes))
	for _, t := range themes {
		if domain.IsValidTheme(t) && !dup[t] {
			dup[t] = true
			allowed = append(allowed, t)
		}
	}
	if len(allowed) == 0 {
		allowed = domain.AllThemes()
	}

	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}

	session := s.sessions.GetOrCreate(playerID)
	session.start(uuid.NewString(), allowed, names)
	return domain.StartAck{Status: "ok", SessionID: session.ID(), AllowedThemes: allowed}, nil
}

// NextQuestion issues a fresh question. A category within the allowed themes
// pins the theme; otherwise the player's confidence buckets decide.
func (s *QuizService) NextQuestion(ctx context.Context, playerID, category string) (domain.Question, error) {
	session, ok := s.sessions.Get(playerID)
	if !ok || !session.Started() {
		return domain.Question{}, domain.ErrSessionNotFound
	}
	allowed := session.AllowedThemes()

	candidates, difficulty := s.candidates(ctx, playerID, allowed, category)

	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Question{}, err
		}
		theme := candidates[s.intn(len(candidates))]
		src := s.pickSource(theme)
		if src == nil {
			lastErr = fmt.Errorf("no source for theme %q", theme)
			continue
		}
		item, err := src.Fetch(ctx, theme, difficulty)
		if err != nil {
			lastErr = err
			continue
		}
		hash := QuestionHash(item.Prompt)
		if session.used(hash) {
			continue
		}
		if s.seen != nil {
			seen, err := s.seen.Seen(ctx, playerID, hash)
			if err != nil {
				s.logger.Printf("seen lookup for %s: %v", playerID, err)
			} else if seen {
				continue
			}
		}

		q := session.issue(uuid.NewString(), theme, src.Name(), hash, item, s.shuffled(item))
		if s.seen != nil {
			if err := s.seen.MarkSeen(ctx, playerID, domain.SeenQuestion{Hash: hash, Source: src.Name(), Theme: theme}); err != nil {
				s.logger.Printf("mark seen for %s: %v", playerID, err)
			}
		}
		return q, nil
	}
	if lastErr != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", domain.ErrNoQuestionAvailable, lastErr)
	}
	return domain.Question{}, domain.ErrNoQuestionAvailable
}

func (s *QuizService) candidates(ctx context.Context, playerID string, allowed []string, category string) ([]string, string) {
	for _, t := range allowed {
		if t == category {
			return []string{category}, ""
		}
	}

	scores := make(map[string]float64, len(allowed))
	if s.profiles != nil {
		states, err := s.profiles.BanditStates(ctx, playerID)
		if err != nil {
			s.logger.Printf("bandit states for %s: %v", playerID, err)
		}
		for _, st := range states {
			scores[st.Theme] = BetaMean(st.Alpha, st.Beta)
		}
	}
	weak, mid, strong := RelativeBuckets(allowed, scores)
	bucket := ChooseBucket(s.float())
	return bucketThemes(bucket, weak, mid, strong, allowed), ChooseDifficulty(bucket, s.intn)
}

func (s *QuizService) pickSource(theme string) QuestionSource {
	var eligible []QuestionSource
	for _, src := range s.sources {
		if src.Supports(theme) {
			eligible = append(eligible, src)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	return eligible[s.intn(len(eligible))]
}

func (s *QuizService) shuffled(item domain.TriviaItem) []string {
	answers := make([]string, 0, len(item.Incorrect)+1)
	answers = append(answers, item.Incorrect...)
	answers = append(answers, item.Correct)
	s.rndMu.Lock()
	s.rnd.Shuffle(len(answers), func(i, j int) { answers[i], answers[j] = answers[j], answers[i] })
	s.rndMu.Unlock()
	return answers
}

func (s *QuizService) intn(n int) int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Intn(n)
}

func (s *QuizService) float() float64 {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Float64()
}

// SubmitAnswer scores the pending question and updates the session tallies.
func (s *QuizService) SubmitAnswer(_ context.Context, playerID string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	session, ok := s.sessions.Get(playerID)
	if !ok || !session.Started() {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}
	return session.answer(submission)
}

// Stats returns the live session's per-theme tallies in first-seen order.
func (s *QuizService) Stats(_ context.Context, playerID string) ([]domain.ThemeStat, error) {
	session, ok := s.sessions.Get(playerID)
	if !ok {
		return []domain.ThemeStat{}, nil
	}
	return session.ThemeStats(), nil
}

// SourceStats returns the live session's per-provider tallies.
func (s *QuizService) SourceStats(_ context.Context, playerID string) ([]domain.SourceStat, error) {
	session, ok := s.sessions.Get(playerID)
	if !ok {
		return []domain.SourceStat{}, nil
	}
	return session.SourceStats(), nil
}

// EndSession persists a finished session: lifetime theme stats, achievements
// and one bandit step. It returns "no_stats" when there is nothing to record.
func (s *QuizService) EndSession(ctx context.Context, playerID string, report domain.SessionReport) (string, error) {
	if session, ok := s.sessions.Get(playerID); ok {
		defer session.end()
	}
	if len(report.ThemeStats) == 0 {
		return "no_stats", nil
	}

	now := s.now()
	rec := domain.SessionRecord{PlayedAt: now, BestStreak: report.BestStreak}

	themes := make([]string, 0, len(report.ThemeStats))
	for theme := range report.ThemeStats {
		themes = append(themes, theme)
	}
	sort.Strings(themes)

	for _, theme := range themes {
		tally := report.ThemeStats[theme]
		if tally.Total <= 0 {
			continue
		}
		rec.Themes = append(rec.Themes, domain.ThemeResult{Theme: theme, Total: tally.Total, Correct: tally.Correct})
		if tally.Total >= 2 && float64(tally.Correct)/float64(tally.Total) >= 0.85 {
			rec.Achievements = append(rec.Achievements, domain.ExpertBadge(theme))
		}
	}

	states, err := s.profiles.BanditStates(ctx, playerID)
	if err != nil {
		return "", fmt.Errorf("load bandit states: %w", err)
	}
	byTheme := make(map[string]domain.BanditState, len(states))
	for _, st := range states {
		byTheme[st.Theme] = st
	}
	for _, theme := range domain.AllThemes() {
		if _, ok := byTheme[theme]; !ok {
			prior := PriorState(theme)
			prior.UpdatedAt = now
			byTheme[theme] = prior
			rec.Bandit = append(rec.Bandit, prior)
		}
	}
	for _, tr := range rec.Themes {
		prev, ok := byTheme[tr.Theme]
		if !ok {
			prev = PriorState(tr.Theme)
		}
		next := UpdateBandit(prev, tr.Correct, tr.Total, s.discount, now)
		rec.Bandit = replaceState(rec.Bandit, next)
		rec.Snapshots = append(rec.Snapshots, next)
	}

	last, err := s.profiles.LastStep(ctx, playerID)
	if err != nil {
		return "", fmt.Errorf("load last step: %w", err)
	}
	rec.Step = last + 1

	if err := s.profiles.SaveSession(ctx, playerID, rec); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return "ok", nil
}

func replaceState(states []domain.BanditState, next domain.BanditState) []domain.BanditState {
	for i := range states {
		if states[i].Theme == next.Theme {
			states[i] = next
			return states
		}
	}
	return append(states, next)
}

// Profile returns the player's lifetime view.
func (s *QuizService) Profile(ctx context.Context, playerID string) (domain.Profile, error) {
	p, err := s.profiles.Profile(ctx, playerID)
	if err != nil {
		return domain.Profile{}, err
	}
	p.Username = playerID
	return p, nil
}

// ModelState returns the current per-theme posteriors.
func (s *QuizService) ModelState(ctx context.Context, playerID string) ([]domain.BanditState, error) {
	states, err := s.profiles.BanditStates(ctx, playerID)
	if err != nil {
		return nil, err
	}
	for i := range states {
		states[i].Mean = BetaMean(states[i].Alpha, states[i].Beta)
	}
	return states, nil
}

// ModelHistory returns the confidence trend of the three weakest and three
// strongest themes.
func (s *QuizService) ModelHistory(ctx context.Context, playerID string) (domain.ModelHistory, error) {
	states, err := s.profiles.BanditStates(ctx, playerID)
	if err != nil {
		return domain.ModelHistory{}, err
	}
	out := domain.ModelHistory{Themes: map[string][]domain.HistoryPoint{}}
	if len(states) == 0 {
		return out, nil
	}
	sort.SliceStable(states, func(i, j int) bool {
		return BetaMean(states[i].Alpha, states[i].Beta) < BetaMean(states[j].Alpha, states[j].Beta)
	})

	selected := make([]string, 0, 6)
	add := func(theme string) {
		for _, t := range selected {
			if t == theme {
				return
			}
		}
		selected = append(selected, theme)
	}
	for i := 0; i < len(states) && i < 3; i++ {
		add(states[i].Theme)
	}
	for i := len(states) - 1; i >= 0 && i >= len(states)-3; i-- {
		add(states[i].Theme)
	}

	history, err := s.profiles.History(ctx, playerID, selected)
	if err != nil {
		return domain.ModelHistory{}, err
	}
	for theme, points := range history {
		out.Themes[theme] = points
	}
	return out, nil
}

// Subscribe returns a channel that receives the player's theme stats after
// every answer. The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, playerID string) (<-chan []domain.ThemeStat, func(), error) {
	if playerID == "" {
		return nil, nil, domain.ErrPlayerNotFound
	}
	session := s.sessions.GetOrCreate(playerID)
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave drops the player's session once it has ended and nobody listens.
func (s *QuizService) Leave(_ context.Context, playerID string) {
	session, ok := s.sessions.Get(playerID)
	if !ok {
		return
	}
	if session.IsIdle() {
		s.sessions.DeleteIfIdle(playerID)
	}
}

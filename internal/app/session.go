package app

import (
	"sync"
	"time"

	"trickia-quiz/internal/domain"
)

type tally struct {
	total   int
	correct int
}

type pendingQuestion struct {
	id      string
	theme   string
	source  string
	correct string
}

// Session is the live, in-memory state of one player's quiz.
type Session struct {
	playerID string
	now      func() time.Time

	mu          sync.RWMutex
	id          string
	started     bool
	startedAt   time.Time
	allowed     []string
	score       int
	streak      int
	bestStreak  int
	usedHashes  map[string]struct{}
	themeOrder  []string
	themeStats  map[string]*tally
	sourceOrder []string
	sourceStats map[string]*tally
	last        *pendingQuestion
	subscribers map[chan []domain.ThemeStat]struct{}
}

func newSession(playerID string, now func() time.Time) *Session {
	return &Session{
		playerID:    playerID,
		now:         now,
		usedHashes:  make(map[string]struct{}),
		themeStats:  make(map[string]*tally),
		sourceStats: make(map[string]*tally),
		subscribers: make(map[chan []domain.ThemeStat]struct{}),
	}
}

func (s *Session) start(id string, allowed, sources []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = id
	s.started = true
	s.startedAt = s.now()
	s.allowed = append([]string(nil), allowed...)
	s.score = 0
	s.streak = 0
	s.bestStreak = 0
	s.usedHashes = make(map[string]struct{})
	s.themeOrder = nil
	s.themeStats = make(map[string]*tally)
	s.sourceOrder = nil
	s.sourceStats = make(map[string]*tally)
	for _, name := range sources {
		s.sourceTallyLocked(name)
	}
	s.last = nil
	s.broadcastLocked()
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.last = nil
}

// ID returns the current session identifier.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Started reports whether a session has been started and not yet ended.
func (s *Session) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// AllowedThemes returns a copy of the themes this session draws from.
func (s *Session) AllowedThemes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.allowed...)
}

func (s *Session) used(hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.usedHashes[hash]
	return ok
}

func (s *Session) issue(id, theme, source, hash string, item domain.TriviaItem, answers []string) domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usedHashes[hash] = struct{}{}
	s.last = &pendingQuestion{id: id, theme: theme, source: source, correct: item.Correct}
	return domain.Question{
		ID:         id,
		Prompt:     item.Prompt,
		Category:   theme,
		Difficulty: item.Difficulty,
		Answers:    answers,
		Source:     source,
	}
}

func (s *Session) answer(sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return domain.AnswerResult{}, domain.ErrNoActiveQuestion
	}
	if sub.QuestionID != "" && sub.QuestionID != s.last.id {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	last := s.last
	s.last = nil

	ok := sub.Answer == last.correct
	theme := s.themeTallyLocked(last.theme)
	theme.total++
	source := s.sourceTallyLocked(last.source)
	source.total++

	status := domain.StatusFailure
	if ok {
		status = domain.StatusSuccess
		s.score++
		s.streak++
		if s.streak > s.bestStreak {
			s.bestStreak = s.streak
		}
		theme.correct++
		source.correct++
	} else {
		s.streak = 0
	}
	s.broadcastLocked()

	return domain.AnswerResult{
		Status:  status,
		Correct: last.correct,
		Score:   s.score,
		Source:  last.source,
	}, nil
}

func (s *Session) themeTallyLocked(theme string) *tally {
	t, ok := s.themeStats[theme]
	if !ok {
		t = &tally{}
		s.themeStats[theme] = t
		s.themeOrder = append(s.themeOrder, theme)
	}
	return t
}

func (s *Session) sourceTallyLocked(source string) *tally {
	t, ok := s.sourceStats[source]
	if !ok {
		t = &tally{}
		s.sourceStats[source] = t
		s.sourceOrder = append(s.sourceOrder, source)
	}
	return t
}

// ThemeStats returns per-theme tallies in the order themes were first answered.
func (s *Session) ThemeStats() []domain.ThemeStat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// SourceStats returns per-provider tallies.
func (s *Session) SourceStats() []domain.SourceStat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SourceStat, 0, len(s.sourceOrder))
	for _, name := range s.sourceOrder {
		t := s.sourceStats[name]
		out = append(out, domain.SourceStat{
			Source:  name,
			Correct: t.correct,
			Total:   t.total,
			Percent: domain.Percent1(t.correct, t.total),
		})
	}
	return out
}

// IsIdle reports whether the session has ended and has no subscribers.
func (s *Session) IsIdle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.started && len(s.subscribers) == 0
}

func (s *Session) subscribe() (<-chan []domain.ThemeStat, func()) {
	ch := make(chan []domain.ThemeStat, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	stats := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- stats:
		default:
			// Slow subscriber: replace its oldest pending update.
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
}

func (s *Session) snapshotLocked() []domain.ThemeStat {
	out := make([]domain.ThemeStat, 0, len(s.themeOrder))
	for _, theme := range s.themeOrder {
		t := s.themeStats[theme]
		out = append(out, domain.ThemeStat{
			Theme:   theme,
			Correct: t.correct,
			Total:   t.total,
			Percent: domain.Percent1(t.correct, t.total),
		})
	}
	return out
}

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"trickia-quiz/internal/domain"
)

var errBackendDown = errors.New("backend down")

// fakeBackend scripts answer outcomes and counts every request.
type fakeBackend struct {
	mu sync.Mutex

	themes   []domain.Theme
	outcomes []bool
	stats    []domain.ThemeStat

	// answerGate, when set, blocks Answer until a value is received.
	answerGate chan struct{}

	failStart    bool
	failQuestion bool
	failAnswer   bool
	failStats    bool
	failEnd      bool

	starts     int
	questions  int
	answers    int
	statsCalls int
	ends       []domain.SessionReport
	categories []string
}

func newFakeBackend(outcomes ...bool) *fakeBackend {
	themes := make([]domain.Theme, 0, len(domain.AllThemes()))
	for _, name := range domain.AllThemes() {
		themes = append(themes, domain.Theme{ID: name, Name: name})
	}
	return &fakeBackend{themes: themes, outcomes: outcomes}
}

func (f *fakeBackend) Themes(context.Context) ([]domain.Theme, error) {
	return f.themes, nil
}

func (f *fakeBackend) StartSession(_ context.Context, themes []string) (domain.StartAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStart {
		return domain.StartAck{}, errBackendDown
	}
	f.starts++
	return domain.StartAck{Status: "ok", AllowedThemes: themes}, nil
}

func (f *fakeBackend) Question(_ context.Context, category string) (domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuestion {
		return domain.Question{}, errBackendDown
	}
	f.questions++
	f.categories = append(f.categories, category)
	return domain.Question{
		ID:       fmt.Sprint(f.questions),
		Prompt:   "What is 2 + 2?",
		Category: "Science",
		Answers:  []string{"3", "4", "5", "6"},
	}, nil
}

func (f *fakeBackend) Answer(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	f.mu.Lock()
	f.answers++
	n := f.answers
	gate := f.answerGate
	fail := f.failAnswer
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.AnswerResult{}, ctx.Err()
		}
	}
	if fail {
		return domain.AnswerResult{}, errBackendDown
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	ok := n <= len(f.outcomes) && f.outcomes[n-1]
	theme := "Science"
	f.bump(theme, ok)
	status := domain.StatusFailure
	if ok {
		status = domain.StatusSuccess
	}
	return domain.AnswerResult{Status: status, Correct: "4"}, nil
}

func (f *fakeBackend) bump(theme string, ok bool) {
	for i := range f.stats {
		if f.stats[i].Theme == theme {
			f.stats[i].Total++
			if ok {
				f.stats[i].Correct++
			}
			return
		}
	}
	s := domain.ThemeStat{Theme: theme, Total: 1}
	if ok {
		s.Correct = 1
	}
	f.stats = append(f.stats, s)
}

func (f *fakeBackend) Stats(context.Context) ([]domain.ThemeStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	if f.failStats {
		return nil, errBackendDown
	}
	return append([]domain.ThemeStat(nil), f.stats...), nil
}

func (f *fakeBackend) SourceStats(context.Context) ([]domain.SourceStat, error) {
	return []domain.SourceStat{{Source: "Local"}}, nil
}

func (f *fakeBackend) EndSession(_ context.Context, r domain.SessionReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEnd {
		return errBackendDown
	}
	f.ends = append(f.ends, r)
	return nil
}

func (f *fakeBackend) count() (questions, answers int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.questions, f.answers
}

// testOptions disables the settle delay and pins the clock.
func testOptions(clock *fakeClock) Options {
	return Options{
		Logger: log.New(io.Discard, "", 0),
		Now:    clock.Now,
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

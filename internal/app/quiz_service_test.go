package app_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"testing"
	"time"

	"trickia-quiz/internal/app"
	"trickia-quiz/internal/domain"
	"trickia-quiz/internal/infra/memory"
)

var fiveThemes = []string{"Science", "History", "Music", "Sports", "Geography"}

func TestStartSessionFiltersThemes(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(&scriptedSource{})

	ack, err := service.StartSession(ctx, "p1", []string{"Science", "Cooking", "Science", "Music"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if ack.Status != "ok" || ack.SessionID == "" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if len(ack.AllowedThemes) != 2 || ack.AllowedThemes[0] != "Science" || ack.AllowedThemes[1] != "Music" {
		t.Fatalf("expected Science and Music, got %v", ack.AllowedThemes)
	}

	first := ack.SessionID

	ack, err = service.StartSession(ctx, "p1", []string{"Cooking"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(ack.AllowedThemes) != len(domain.AllThemes()) {
		t.Fatalf("expected fallback to the whole catalogue, got %v", ack.AllowedThemes)
	}
	if ack.SessionID == "" || ack.SessionID == first {
		t.Fatalf("expected a fresh session id on restart, got %q", ack.SessionID)
	}

	if _, err := service.StartSession(ctx, "", fiveThemes); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected player error, got %v", err)
	}
}

func TestQuestionAnswerAndScoring(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(&scriptedSource{})

	if _, err := service.StartSession(ctx, "p1", fiveThemes); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	q, err := service.NextQuestion(ctx, "p1", "Music")
	if err != nil {
		t.Fatalf("question failed: %v", err)
	}
	if q.Category != "Music" || q.Source != "scripted" || len(q.Answers) != 4 {
		t.Fatalf("unexpected question: %+v", q)
	}

	res, err := service.SubmitAnswer(ctx, "p1", domain.AnswerSubmission{QuestionID: q.ID, Answer: "right"})
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if !res.Success() || res.Score != 1 || res.Correct != "right" {
		t.Fatalf("expected correct answer, got %+v", res)
	}

	if _, err := service.SubmitAnswer(ctx, "p1", domain.AnswerSubmission{QuestionID: q.ID, Answer: "right"}); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected no active question on double answer, got %v", err)
	}

	q, _ = service.NextQuestion(ctx, "p1", "Music")
	res, err = service.SubmitAnswer(ctx, "p1", domain.AnswerSubmission{QuestionID: q.ID, Answer: "wrong-1"})
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if res.Status != domain.StatusFailure || res.Score != 1 {
		t.Fatalf("expected failure keeping score 1, got %+v", res)
	}

	stats, _ := service.Stats(ctx, "p1")
	if len(stats) != 1 || stats[0].Theme != "Music" || stats[0].Correct != 1 || stats[0].Total != 2 || stats[0].Percent != 50 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	sources, _ := service.SourceStats(ctx, "p1")
	if len(sources) != 1 || sources[0].Source != "scripted" || sources[0].Total != 2 {
		t.Fatalf("unexpected source stats: %+v", sources)
	}
}

func TestAnswerRequiresSessionAndMatchingQuestion(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(&scriptedSource{})

	_, err := service.SubmitAnswer(ctx, "ghost", domain.AnswerSubmission{Answer: "x"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, err := service.NextQuestion(ctx, "ghost", ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}

	_, _ = service.StartSession(ctx, "p1", fiveThemes)
	_, _ = service.NextQuestion(ctx, "p1", "Science")
	_, err = service.SubmitAnswer(ctx, "p1", domain.AnswerSubmission{QuestionID: "other", Answer: "right"})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question error, got %v", err)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(&scriptedSource{})

	_, _ = service.StartSession(ctx, "p1", fiveThemes)
	ch, cancel, err := service.Subscribe(ctx, "p1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	q, _ := service.NextQuestion(ctx, "p1", "History")
	if _, err := service.SubmitAnswer(ctx, "p1", domain.AnswerSubmission{QuestionID: q.ID, Answer: "right"}); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	update := <-ch
	if len(update) != 1 || update[0].Theme != "History" || update[0].Correct != 1 {
		t.Fatalf("expected History 1/1, got %+v", update)
	}
}

func TestDuplicatePromptsAreSkipped(t *testing.T) {
	ctx := context.Background()
	src := &scriptedSource{repeat: true}
	service, _ := newTestService(src)

	_, _ = service.StartSession(ctx, "p1", fiveThemes)
	if _, err := service.NextQuestion(ctx, "p1", "Sports"); err != nil {
		t.Fatalf("first question failed: %v", err)
	}
	_, err := service.NextQuestion(ctx, "p1", "Sports")
	if !errors.Is(err, domain.ErrNoQuestionAvailable) {
		t.Fatalf("expected no question available, got %v", err)
	}
	if src.calls() != 1+app.DefaultAttempts {
		t.Fatalf("expected %d fetches, got %d", 1+app.DefaultAttempts, src.calls())
	}
}

func TestSeenQuestionsPersistAcrossSessions(t *testing.T) {
	ctx := context.Background()
	src := &scriptedSource{}
	service, seen := newTestService(src)

	_, _ = service.StartSession(ctx, "p1", fiveThemes)
	first, _ := service.NextQuestion(ctx, "p1", "Science")

	src.rewind()
	_, _ = service.StartSession(ctx, "p1", fiveThemes)
	second, err := service.NextQuestion(ctx, "p1", "Science")
	if err != nil {
		t.Fatalf("question failed: %v", err)
	}
	if second.Prompt == first.Prompt {
		t.Fatalf("expected a question not seen before, got %q twice", first.Prompt)
	}
	if seen.Count("p1") != 2 {
		t.Fatalf("expected two seen questions, got %d", seen.Count("p1"))
	}
}

func TestSourceErrorsExhaustAttempts(t *testing.T) {
	ctx := context.Background()
	src := &scriptedSource{err: errors.New("rate limited")}
	service, _ := newTestService(src)

	_, _ = service.StartSession(ctx, "p1", fiveThemes)
	_, err := service.NextQuestion(ctx, "p1", "")
	if !errors.Is(err, domain.ErrNoQuestionAvailable) {
		t.Fatalf("expected no question available, got %v", err)
	}
	if src.calls() != app.DefaultAttempts {
		t.Fatalf("expected %d attempts, got %d", app.DefaultAttempts, src.calls())
	}
}

func TestEndSessionPersistsProfile(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(&scriptedSource{})

	status, err := service.EndSession(ctx, "p1", domain.SessionReport{})
	if err != nil || status != "no_stats" {
		t.Fatalf("expected no_stats, got %q (%v)", status, err)
	}

	report := domain.SessionReport{
		TotalQuestions: 7,
		Score:          5,
		BestStreak:     4,
		TotalTime:      "01:10",
		ThemeStats: map[string]domain.ThemeTally{
			"Science": {Total: 4, Correct: 4},
			"Music":   {Total: 3, Correct: 1},
			"Sports":  {Total: 0, Correct: 0},
		},
	}
	for i := 0; i < 2; i++ {
		status, err = service.EndSession(ctx, "p1", report)
		if err != nil || status != "ok" {
			t.Fatalf("end session: %q (%v)", status, err)
		}
	}

	profile, err := service.Profile(ctx, "p1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Username != "p1" || profile.TotalQuestions != 14 || profile.BestStreak != 4 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if len(profile.Achievements) != 1 || profile.Achievements[0].Label != "Expert in Science!" || profile.Achievements[0].Count != 2 {
		t.Fatalf("unexpected achievements: %+v", profile.Achievements)
	}

	states, _ := service.ModelState(ctx, "p1")
	if len(states) != len(domain.AllThemes()) {
		t.Fatalf("expected a posterior for every theme, got %d", len(states))
	}
	for _, st := range states {
		switch st.Theme {
		case "Science":
			if st.Mean <= 0.5 {
				t.Fatalf("expected Science confidence up, got %v", st.Mean)
			}
		case "Sports":
			if st.Alpha != 1 || st.Beta != 1 {
				t.Fatalf("expected untouched prior for Sports, got %+v", st)
			}
		}
	}

	history, _ := service.ModelHistory(ctx, "p1")
	science := history.Themes["Science"]
	if len(science) != 2 || science[0].Step != 1 || science[1].Step != 2 {
		t.Fatalf("expected two Science steps, got %+v", science)
	}
	if len(history.Themes) > 6 {
		t.Fatalf("expected at most six themes, got %d", len(history.Themes))
	}
}

func TestEndSessionClosesLiveSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(&scriptedSource{})

	_, _ = service.StartSession(ctx, "p1", fiveThemes)
	_, _ = service.EndSession(ctx, "p1", domain.SessionReport{ThemeStats: map[string]domain.ThemeTally{"Music": {Total: 1}}})
	if _, err := service.NextQuestion(ctx, "p1", ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ended session, got %v", err)
	}
}

func newTestService(src app.QuestionSource) (*app.QuizService, *memory.SeenStore) {
	seen := memory.NewSeenStore()
	service := app.NewQuizService(
		memory.NewSessionStore(),
		[]app.QuestionSource{src},
		seen,
		memory.NewProfileRepository(),
		app.Options{
			Logger: log.New(io.Discard, "", 0),
			Now:    func() time.Time { return time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC) },
			Rand:   rand.New(rand.NewSource(1)),
		},
	)
	return service, seen
}

// scriptedSource serves numbered questions whose correct answer is "right".
type scriptedSource struct {
	mu     sync.Mutex
	n      int
	fetch  int
	repeat bool
	err    error
}

func (s *scriptedSource) Name() string { return "scripted" }
func (s *scriptedSource) Supports(theme string) bool { return domain.IsValidTheme(theme) }

func (s *scriptedSource) Fetch(_ context.Context, theme, difficulty string) (domain.TriviaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetch++
	if s.err != nil {
		return domain.TriviaItem{}, s.err
	}
	if !s.repeat {
		s.n++
	}
	return domain.TriviaItem{
		Prompt:     fmt.Sprintf("%s question %d", theme, s.n),
		Correct:    "right",
		Incorrect:  []string{"wrong-1", "wrong-2", "wrong-3"},
		Difficulty: difficulty,
	}, nil
}

func (s *scriptedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetch
}

func (s *scriptedSource) rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}

package domain

import (
	"math"
	"time"
)

// Answer statuses reported by the backend.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Theme is a quiz category as offered by the category service.
type Theme struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Question is a server-issued multiple choice question. The client never
// knows which answer is correct until it submits one.
type Question struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"question"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Answers    []string `json:"answers"`
	Source     string   `json:"source,omitempty"`
}

// AnswerSubmission models the answer signal from clients.
type AnswerSubmission struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// AnswerResult summarizes the outcome of a submission.
type AnswerResult struct {
	Status  string `json:"status"`
	Correct string `json:"correct"`
	Score   int    `json:"score"`
	Source  string `json:"source,omitempty"`
}

// Success reports whether the submitted answer was correct.
func (r AnswerResult) Success() bool {
	return r.Status == StatusSuccess
}

// ThemeStat is a per-theme correct/total tally as reported by the backend.
type ThemeStat struct {
	Theme   string  `json:"theme"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// SourceStat is a per-provider correct/total tally.
type SourceStat struct {
	Source  string  `json:"source"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// ThemeTally is the per-theme payload of a session end report.
type ThemeTally struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// SessionReport is posted to the backend when a session is finalized.
type SessionReport struct {
	TotalQuestions int                   `json:"total_questions"`
	Score          int                   `json:"score"`
	BestStreak     int                   `json:"best_streak"`
	TotalTime      string                `json:"total_time"`
	ThemeStats     map[string]ThemeTally `json:"theme_stats"`
}

// StartAck acknowledges a session start.
type StartAck struct {
	Status        string   `json:"status"`
	SessionID     string   `json:"session_id"`
	AllowedThemes []string `json:"allowed_themes"`
}

// Achievement is a badge unlocked by a player, counted across sessions.
type Achievement struct {
	Label      string    `json:"label"`
	Count      int       `json:"count"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Profile is the historical, cross-session view of a player.
type Profile struct {
	Username       string        `json:"username"`
	TotalQuestions int           `json:"total_questions"`
	BestStreak     int           `json:"best_streak"`
	Themes         []ThemeStat   `json:"themes"`
	Achievements   []Achievement `json:"achievements"`
}

// BanditState is the per-theme Beta posterior used for adaptive selection.
type BanditState struct {
	Theme     string    `json:"theme"`
	Mean      float64   `json:"mean"`
	Alpha     float64   `json:"alpha"`
	Beta      float64   `json:"beta"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryPoint is one session step of a theme's confidence trend.
type HistoryPoint struct {
	Step int     `json:"step"`
	Mean float64 `json:"mean"`
}

// ModelHistory is the confidence trend of the strongest and weakest themes.
type ModelHistory struct {
	Themes map[string][]HistoryPoint `json:"themes"`
}

// Percent returns round(100*correct/total). The second value is false when
// total is zero and the percentage is undefined.
func Percent(correct, total int) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	return int(math.Round(100 * float64(correct) / float64(total))), true
}

// Percent1 returns the percentage rounded to one decimal, 0 when total is zero.
func Percent1(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(1000*float64(correct)/float64(total)) / 10
}

// TriviaItem is a question as supplied by a provider, correct answer included.
type TriviaItem struct {
	Prompt     string   `yaml:"question"`
	Correct    string   `yaml:"correct"`
	Incorrect  []string `yaml:"incorrect"`
	Difficulty string   `yaml:"difficulty"`
}

// SeenQuestion records that a player has been asked a question.
type SeenQuestion struct {
	Hash   string
	Source string
	Theme  string
}

// ThemeResult is one theme's tally within a finished session.
type ThemeResult struct {
	Theme   string
	Total   int
	Correct int
}

// SessionRecord is everything persisted when a session ends.
type SessionRecord struct {
	Step         int
	PlayedAt     time.Time
	BestStreak   int
	Themes       []ThemeResult
	Achievements []string
	// Bandit holds the posteriors to upsert; Snapshots the ones updated at Step.
	Bandit    []BanditState
	Snapshots []BanditState
}

// ExpertBadge is the achievement label for mastering a theme.
func ExpertBadge(theme string) string {
	return "Expert in " + theme + "!"
}

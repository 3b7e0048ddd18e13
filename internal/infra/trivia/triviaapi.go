package trivia

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trickia-quiz/internal/domain"
)

// TriviaAPIName is the source name reported for The Trivia API questions.
const TriviaAPIName = "TheTriviaAPI"

const defaultTriviaAPIURL = "https://the-trivia-api.com/v2/questions"

// TriviaAPI fetches questions from The Trivia API by category tags.
type TriviaAPI struct {
	baseURL string
	client  *http.Client
}

type triviaAPIQuestion struct {
	Difficulty string   `json:"difficulty"`
	Correct    string   `json:"correctAnswer"`
	Incorrect  []string `json:"incorrectAnswers"`
	Question   struct {
		Text string `json:"text"`
	} `json:"question"`
}

// NewTriviaAPI builds a client; an empty baseURL uses the public API.
func NewTriviaAPI(baseURL string, client *http.Client) *TriviaAPI {
	if baseURL == "" {
		baseURL = defaultTriviaAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &TriviaAPI{baseURL: baseURL, client: client}
}

func (t *TriviaAPI) Name() string { return TriviaAPIName }

func (t *TriviaAPI) Supports(theme string) bool {
	return len(domain.Catalogue[theme].TriviaAPI) > 0
}

// Fetch asks for one question in the theme's tags. The API filters by
// difficulty server side, so a mismatching answer is reported as an error.
func (t *TriviaAPI) Fetch(ctx context.Context, theme, difficulty string) (domain.TriviaItem, error) {
	tags := domain.Catalogue[theme].TriviaAPI
	if len(tags) == 0 {
		return domain.TriviaItem{}, fmt.Errorf("triviaapi: %w: %q", domain.ErrUnknownTheme, theme)
	}

	q := url.Values{}
	q.Set("limit", "1")
	q.Set("categories", strings.Join(tags, ","))
	if validDifficulty(difficulty) {
		q.Set("difficulties", difficulty)
	}

	var body []triviaAPIQuestion
	if err := getJSON(ctx, t.client, t.baseURL+"?"+q.Encode(), &body); err != nil {
		return domain.TriviaItem{}, fmt.Errorf("triviaapi: %w", err)
	}
	if len(body) == 0 {
		return domain.TriviaItem{}, fmt.Errorf("triviaapi: no results")
	}
	r := body[0]
	if validDifficulty(difficulty) && r.Difficulty != difficulty {
		return domain.TriviaItem{}, fmt.Errorf("triviaapi: got %s question, want %s", r.Difficulty, difficulty)
	}
	return domain.TriviaItem{
		Prompt:     r.Question.Text,
		Correct:    r.Correct,
		Incorrect:  r.Incorrect,
		Difficulty: r.Difficulty,
	}, nil
}

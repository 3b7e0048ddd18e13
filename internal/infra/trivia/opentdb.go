package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"trickia-quiz/internal/domain"
)

// OpenTDBName is the source name reported for OpenTriviaDB questions.
const OpenTDBName = "OpenTriviaDB"

const defaultOpenTDBURL = "https://opentdb.com/api.php"

// OpenTDB fetches single multiple-choice questions from OpenTriviaDB.
type OpenTDB struct {
	baseURL string
	client  *http.Client

	mu  sync.Mutex
	rnd *rand.Rand
}

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Difficulty string   `json:"difficulty"`
		Question   string   `json:"question"`
		Correct    string   `json:"correct_answer"`
		Incorrect  []string `json:"incorrect_answers"`
	} `json:"results"`
}

// NewOpenTDB builds a client; an empty baseURL uses the public API.
func NewOpenTDB(baseURL string, client *http.Client) *OpenTDB {
	if baseURL == "" {
		baseURL = defaultOpenTDBURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &OpenTDB{
		baseURL: baseURL,
		client:  client,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (o *OpenTDB) Name() string { return OpenTDBName }

func (o *OpenTDB) Supports(theme string) bool {
	return len(domain.OpenTDBCategories(theme)) > 0
}

func (o *OpenTDB) Fetch(ctx context.Context, theme, difficulty string) (domain.TriviaItem, error) {
	cats := domain.OpenTDBCategories(theme)
	if len(cats) == 0 {
		return domain.TriviaItem{}, fmt.Errorf("opentdb: %w: %q", domain.ErrUnknownTheme, theme)
	}

	q := url.Values{}
	q.Set("amount", "1")
	q.Set("type", "multiple")
	q.Set("category", strconv.Itoa(cats[o.intn(len(cats))]))
	if validDifficulty(difficulty) {
		q.Set("difficulty", difficulty)
	}

	var body openTDBResponse
	if err := getJSON(ctx, o.client, o.baseURL+"?"+q.Encode(), &body); err != nil {
		return domain.TriviaItem{}, fmt.Errorf("opentdb: %w", err)
	}
	if body.ResponseCode != 0 || len(body.Results) == 0 {
		return domain.TriviaItem{}, fmt.Errorf("opentdb: no results (code %d)", body.ResponseCode)
	}

	r := body.Results[0]
	item := domain.TriviaItem{
		Prompt:     html.UnescapeString(r.Question),
		Correct:    html.UnescapeString(r.Correct),
		Difficulty: r.Difficulty,
	}
	for _, a := range r.Incorrect {
		item.Incorrect = append(item.Incorrect, html.UnescapeString(a))
	}
	return item, nil
}

func (o *OpenTDB) intn(n int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rnd.Intn(n)
}

func validDifficulty(d string) bool {
	return d == "easy" || d == "medium" || d == "hard"
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trickia-quiz/internal/domain"
)

// Client talks to the quiz API on behalf of one player. It satisfies
// session.Backend.
type Client struct {
	baseURL  string
	playerID string
	http     *http.Client
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Code)
	}
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Message)
}

// NewClient builds a client; a nil httpClient gets a 10s timeout.
func NewClient(baseURL, playerID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		playerID: playerID,
		http:     httpClient,
	}
}

// Themes fetches the catalogue. The backend lists plain names, which double
// as theme ids.
func (c *Client) Themes(ctx context.Context) ([]domain.Theme, error) {
	var names []string
	if err := c.do(ctx, http.MethodGet, "/api/themes", nil, &names); err != nil {
		return nil, err
	}
	out := make([]domain.Theme, 0, len(names))
	for _, name := range names {
		out = append(out, domain.Theme{ID: name, Name: name})
	}
	return out, nil
}

func (c *Client) StartSession(ctx context.Context, themes []string) (domain.StartAck, error) {
	var out domain.StartAck
	return out, c.do(ctx, http.MethodPost, "/api/session/start", startRequest{Themes: themes}, &out)
}

func (c *Client) Question(ctx context.Context, category string) (domain.Question, error) {
	path := "/api/question"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var out domain.Question
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) Answer(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	var out domain.AnswerResult
	return out, c.do(ctx, http.MethodPost, "/api/answer", sub, &out)
}

func (c *Client) Stats(ctx context.Context) ([]domain.ThemeStat, error) {
	var out []domain.ThemeStat
	return out, c.do(ctx, http.MethodGet, "/api/stats", nil, &out)
}

func (c *Client) SourceStats(ctx context.Context) ([]domain.SourceStat, error) {
	var out []domain.SourceStat
	return out, c.do(ctx, http.MethodGet, "/api/api_stats", nil, &out)
}

func (c *Client) EndSession(ctx context.Context, report domain.SessionReport) error {
	var out statusResponse
	return c.do(ctx, http.MethodPost, "/api/session/end", report, &out)
}

func (c *Client) Profile(ctx context.Context) (domain.Profile, error) {
	var out domain.Profile
	return out, c.do(ctx, http.MethodGet, "/api/profile", nil, &out)
}

func (c *Client) ModelState(ctx context.Context) ([]domain.BanditState, error) {
	var out []domain.BanditState
	return out, c.do(ctx, http.MethodGet, "/api/model/state", nil, &out)
}

func (c *Client) ModelHistory(ctx context.Context) (domain.ModelHistory, error) {
	var out domain.ModelHistory
	return out, c.do(ctx, http.MethodGet, "/api/model/history", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(PlayerHeader, c.playerID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

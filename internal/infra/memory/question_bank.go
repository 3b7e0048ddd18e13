package memory

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"trickia-quiz/internal/domain"
)

// BankName is the source name reported for bank questions.
const BankName = "Trickia Bank"

//go:embed questions.yaml
var builtinQuestions []byte

// QuestionBank is a static app.QuestionSource backed by a YAML document
// keyed by theme. Each theme is served as a shuffled deck so repeated
// fetches cycle through every question before any repeats.
type QuestionBank struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	items map[string][]domain.TriviaItem
	decks map[string][]int
}

// NewBuiltinQuestionBank loads the embedded question set.
func NewBuiltinQuestionBank() (*QuestionBank, error) {
	return NewQuestionBank(builtinQuestions)
}

// NewQuestionBank parses a YAML bank. Themes outside the catalogue are rejected.
func NewQuestionBank(raw []byte) (*QuestionBank, error) {
	var items map[string][]domain.TriviaItem
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	for theme, list := range items {
		if !domain.IsValidTheme(theme) {
			return nil, fmt.Errorf("question bank: %w: %q", domain.ErrUnknownTheme, theme)
		}
		for i, item := range list {
			if item.Prompt == "" || item.Correct == "" || len(item.Incorrect) == 0 {
				return nil, fmt.Errorf("question bank: %s #%d is incomplete", theme, i+1)
			}
		}
	}
	return &QuestionBank{
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		items: items,
		decks: make(map[string][]int),
	}, nil
}

func (b *QuestionBank) Name() string { return BankName }

func (b *QuestionBank) Supports(theme string) bool {
	return len(b.items[theme]) > 0
}

// Fetch draws the next question for theme, preferring the requested
// difficulty when the deck holds one.
func (b *QuestionBank) Fetch(_ context.Context, theme, difficulty string) (domain.TriviaItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.items[theme]
	if len(items) == 0 {
		return domain.TriviaItem{}, fmt.Errorf("question bank: no questions for %q", theme)
	}
	deck := b.decks[theme]
	if len(deck) == 0 {
		deck = b.rnd.Perm(len(items))
	}

	pick := 0
	if difficulty != "" {
		for i, idx := range deck {
			if items[idx].Difficulty == difficulty {
				pick = i
				break
			}
		}
	}
	item := items[deck[pick]]
	b.decks[theme] = append(deck[:pick:pick], deck[pick+1:]...)
	return item, nil
}

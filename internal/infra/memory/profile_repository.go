package memory

import (
	"context"
	"sort"
	"sync"

	"trickia-quiz/internal/domain"
)

type themeRow struct {
	total      int
	correct    int
	bestStreak int
}

type snapshot struct {
	step  int
	theme string
	mean  float64
}

type playerRecord struct {
	themeOrder   []string
	themes       map[string]*themeRow
	labelOrder   []string
	achievements map[string]*domain.Achievement
	bandit       map[string]domain.BanditState
	snapshots    []snapshot
}

// ProfileRepository is an in-memory app.ProfileRepository.
type ProfileRepository struct {
	mu      sync.RWMutex
	players map[string]*playerRecord
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{players: make(map[string]*playerRecord)}
}

func (r *ProfileRepository) Profile(_ context.Context, playerID string) (domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := domain.Profile{Username: playerID, Themes: []domain.ThemeStat{}, Achievements: []domain.Achievement{}}
	rec, ok := r.players[playerID]
	if !ok {
		return p, nil
	}
	for _, theme := range rec.themeOrder {
		row := rec.themes[theme]
		p.Themes = append(p.Themes, domain.ThemeStat{
			Theme:   theme,
			Correct: row.correct,
			Total:   row.total,
			Percent: domain.Percent1(row.correct, row.total),
		})
		p.TotalQuestions += row.total
		if row.bestStreak > p.BestStreak {
			p.BestStreak = row.bestStreak
		}
	}
	for _, label := range rec.labelOrder {
		p.Achievements = append(p.Achievements, *rec.achievements[label])
	}
	return p, nil
}

func (r *ProfileRepository) BanditStates(_ context.Context, playerID string) ([]domain.BanditState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.players[playerID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.BanditState, 0, len(rec.bandit))
	for _, st := range rec.bandit {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Theme < out[j].Theme })
	return out, nil
}

func (r *ProfileRepository) LastStep(_ context.Context, playerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.players[playerID]
	if !ok {
		return 0, nil
	}
	last := 0
	for _, snap := range rec.snapshots {
		if snap.step > last {
			last = snap.step
		}
	}
	return last, nil
}

func (r *ProfileRepository) SaveSession(_ context.Context, playerID string, session domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.players[playerID]
	if !ok {
		rec = &playerRecord{
			themes:       make(map[string]*themeRow),
			achievements: make(map[string]*domain.Achievement),
			bandit:       make(map[string]domain.BanditState),
		}
		r.players[playerID] = rec
	}

	for _, tr := range session.Themes {
		row, ok := rec.themes[tr.Theme]
		if !ok {
			row = &themeRow{}
			rec.themes[tr.Theme] = row
			rec.themeOrder = append(rec.themeOrder, tr.Theme)
		}
		row.total += tr.Total
		row.correct += tr.Correct
		if session.BestStreak > row.bestStreak {
			row.bestStreak = session.BestStreak
		}
	}
	for _, label := range session.Achievements {
		if a, ok := rec.achievements[label]; ok {
			a.Count++
			continue
		}
		rec.achievements[label] = &domain.Achievement{Label: label, Count: 1, UnlockedAt: session.PlayedAt}
		rec.labelOrder = append(rec.labelOrder, label)
	}
	for _, st := range session.Bandit {
		rec.bandit[st.Theme] = st
	}
	for _, st := range session.Snapshots {
		rec.snapshots = append(rec.snapshots, snapshot{step: session.Step, theme: st.Theme, mean: st.Mean})
	}
	return nil
}

func (r *ProfileRepository) History(_ context.Context, playerID string, themes []string) (map[string][]domain.HistoryPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]domain.HistoryPoint)
	rec, ok := r.players[playerID]
	if !ok {
		return out, nil
	}
	wanted := make(map[string]bool, len(themes))
	for _, t := range themes {
		wanted[t] = true
	}
	for _, snap := range rec.snapshots {
		if wanted[snap.theme] {
			out[snap.theme] = append(out[snap.theme], domain.HistoryPoint{Step: snap.step, Mean: snap.mean})
		}
	}
	for theme := range out {
		points := out[theme]
		sort.SliceStable(points, func(i, j int) bool { return points[i].Step < points[j].Step })
	}
	return out, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trickia-quiz/internal/domain"
)

// ProfileRepository persists lifetime player stats, achievements and bandit
// posteriors in Postgres.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Profile(ctx context.Context, playerID string) (domain.Profile, error) {
	p := domain.Profile{Username: playerID, Themes: []domain.ThemeStat{}, Achievements: []domain.Achievement{}}

	rows, err := r.pool.Query(ctx, `
		SELECT theme, total_questions, correct_answers, best_streak
		FROM theme_stats
		WHERE player_id = $1
		ORDER BY first_played, theme`, playerID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load theme stats: %w", err)
	}
	for rows.Next() {
		var (
			stat   domain.ThemeStat
			streak int
		)
		if err := rows.Scan(&stat.Theme, &stat.Total, &stat.Correct, &streak); err != nil {
			rows.Close()
			return domain.Profile{}, fmt.Errorf("scan theme stats: %w", err)
		}
		stat.Percent = domain.Percent1(stat.Correct, stat.Total)
		p.Themes = append(p.Themes, stat)
		p.TotalQuestions += stat.Total
		if streak > p.BestStreak {
			p.BestStreak = streak
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Profile{}, fmt.Errorf("load theme stats: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT label, count, unlocked_at
		FROM achievements
		WHERE player_id = $1
		ORDER BY unlocked_at, label`, playerID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load achievements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.Achievement
		if err := rows.Scan(&a.Label, &a.Count, &a.UnlockedAt); err != nil {
			return domain.Profile{}, fmt.Errorf("scan achievements: %w", err)
		}
		p.Achievements = append(p.Achievements, a)
	}
	if err := rows.Err(); err != nil {
		return domain.Profile{}, fmt.Errorf("load achievements: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) BanditStates(ctx context.Context, playerID string) ([]domain.BanditState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT theme, alpha, beta, updated_at
		FROM bandit_states
		WHERE player_id = $1
		ORDER BY theme`, playerID)
	if err != nil {
		return nil, fmt.Errorf("load bandit states: %w", err)
	}
	defer rows.Close()

	var out []domain.BanditState
	for rows.Next() {
		var st domain.BanditState
		if err := rows.Scan(&st.Theme, &st.Alpha, &st.Beta, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bandit state: %w", err)
		}
		if st.Alpha+st.Beta > 0 {
			st.Mean = st.Alpha / (st.Alpha + st.Beta)
		} else {
			st.Mean = 0.5
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *ProfileRepository) LastStep(ctx context.Context, playerID string) (int, error) {
	var step int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(step), 0) FROM bandit_snapshots WHERE player_id = $1`, playerID).Scan(&step)
	if err != nil {
		return 0, fmt.Errorf("load last step: %w", err)
	}
	return step, nil
}

// SaveSession applies one finished session in a single transaction.
func (r *ProfileRepository) SaveSession(ctx context.Context, playerID string, rec domain.SessionRecord) error {
	err := r.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, t := range rec.Themes {
			_, err := tx.Exec(ctx, `
				INSERT INTO theme_stats (player_id, theme, total_questions, correct_answers, best_streak, first_played, last_played)
				VALUES ($1, $2, $3, $4, $5, $6, $6)
				ON CONFLICT (player_id, theme) DO UPDATE SET
					total_questions = theme_stats.total_questions + EXCLUDED.total_questions,
					correct_answers = theme_stats.correct_answers + EXCLUDED.correct_answers,
					best_streak     = GREATEST(theme_stats.best_streak, EXCLUDED.best_streak),
					last_played     = EXCLUDED.last_played`,
				playerID, t.Theme, t.Total, t.Correct, rec.BestStreak, rec.PlayedAt)
			if err != nil {
				return fmt.Errorf("upsert theme stats: %w", err)
			}
		}
		for _, label := range rec.Achievements {
			_, err := tx.Exec(ctx, `
				INSERT INTO achievements (player_id, label, count, unlocked_at)
				VALUES ($1, $2, 1, $3)
				ON CONFLICT (player_id, label) DO UPDATE SET count = achievements.count + 1`,
				playerID, label, rec.PlayedAt)
			if err != nil {
				return fmt.Errorf("upsert achievement: %w", err)
			}
		}
		for _, st := range rec.Bandit {
			_, err := tx.Exec(ctx, `
				INSERT INTO bandit_states (player_id, theme, alpha, beta, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (player_id, theme) DO UPDATE SET
					alpha = EXCLUDED.alpha,
					beta = EXCLUDED.beta,
					updated_at = EXCLUDED.updated_at`,
				playerID, st.Theme, st.Alpha, st.Beta, st.UpdatedAt)
			if err != nil {
				return fmt.Errorf("upsert bandit state: %w", err)
			}
		}
		for _, st := range rec.Snapshots {
			_, err := tx.Exec(ctx, `
				INSERT INTO bandit_snapshots (player_id, theme, step, mean, alpha, beta, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				playerID, st.Theme, rec.Step, st.Mean, st.Alpha, st.Beta, rec.PlayedAt)
			if err != nil {
				return fmt.Errorf("insert bandit snapshot: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *ProfileRepository) History(ctx context.Context, playerID string, themes []string) (map[string][]domain.HistoryPoint, error) {
	out := make(map[string][]domain.HistoryPoint)
	if len(themes) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT theme, step, mean
		FROM bandit_snapshots
		WHERE player_id = $1 AND theme = ANY($2)
		ORDER BY step, id`, playerID, themes)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			theme string
			point domain.HistoryPoint
		)
		if err := rows.Scan(&theme, &point.Step, &point.Mean); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out[theme] = append(out[theme], point)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trickia-quiz/internal/domain"
)

// SeenStore records asked questions per player in the seen_questions table.
type SeenStore struct {
	pool *pgxpool.Pool
}

func NewSeenStore(pool *pgxpool.Pool) *SeenStore {
	return &SeenStore{pool: pool}
}

func (s *SeenStore) Seen(ctx context.Context, playerID, hash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seen_questions WHERE player_id = $1 AND question_hash = $2)`,
		playerID, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup seen question: %w", err)
	}
	return exists, nil
}

func (s *SeenStore) MarkSeen(ctx context.Context, playerID string, q domain.SeenQuestion) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO seen_questions (player_id, question_hash, source, theme)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, question_hash) DO NOTHING`,
		playerID, q.Hash, q.Source, q.Theme)
	if err != nil {
		return fmt.Errorf("mark seen question: %w", err)
	}
	return nil
}

package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"trickia-quiz/internal/domain"
)

// SeenStore keeps each player's asked question hashes in a Redis set, with a
// per-source counter alongside.
//
//	SADD    trickia:seen:{player}         {hash}
//	HINCRBY trickia:seen:{player}:sources {source} 1
type SeenStore struct {
	client *redis.Client
}

func NewSeenStore(client *redis.Client) *SeenStore {
	return &SeenStore{client: client}
}

func (s *SeenStore) Seen(ctx context.Context, playerID, hash string) (bool, error) {
	return s.client.SIsMember(ctx, s.key(playerID), hash).Result()
}

func (s *SeenStore) MarkSeen(ctx context.Context, playerID string, q domain.SeenQuestion) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.key(playerID), q.Hash)
	if q.Source != "" {
		pipe.HIncrBy(ctx, s.sourcesKey(playerID), q.Source, 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Count returns how many distinct questions a player has seen.
func (s *SeenStore) Count(ctx context.Context, playerID string) (int64, error) {
	return s.client.SCard(ctx, s.key(playerID)).Result()
}

func (s *SeenStore) key(playerID string) string {
	return "trickia:seen:" + playerID
}

func (s *SeenStore) sourcesKey(playerID string) string {
	return s.key(playerID) + ":sources"
}

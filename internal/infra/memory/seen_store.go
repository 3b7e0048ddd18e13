package memory

import (
	"context"
	"sync"

	"trickia-quiz/internal/domain"
)

// SeenStore keeps the questions each player has been asked, per process.
type SeenStore struct {
	mu   sync.RWMutex
	seen map[string]map[string]domain.SeenQuestion
}

func NewSeenStore() *SeenStore {
	return &SeenStore{seen: make(map[string]map[string]domain.SeenQuestion)}
}

func (s *SeenStore) Seen(_ context.Context, playerID, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[playerID][hash]
	return ok, nil
}

func (s *SeenStore) MarkSeen(_ context.Context, playerID string, q domain.SeenQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byHash, ok := s.seen[playerID]
	if !ok {
		byHash = make(map[string]domain.SeenQuestion)
		s.seen[playerID] = byHash
	}
	byHash[q.Hash] = q
	return nil
}

// Count returns how many distinct questions a player has seen.
func (s *SeenStore) Count(playerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen[playerID])
}

package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trickia-quiz/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions stay in a local map so answers and broadcasts remain in-process;
// Redis carries a liveness key per player that expires with the TTL.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(playerID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[playerID]; ok {
		s.touch(playerID)
		return session
	}
	session := app.NewSession(playerID)
	s.sessions[playerID] = session
	s.touch(playerID)
	return session
}

// Get returns the player's session while its liveness key holds, refreshing
// the key. A session whose key expired is dropped. Redis errors leave the
// local session in place.
func (s *SessionStore) Get(playerID string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[playerID]
	if !ok {
		return nil, false
	}
	live, err := s.Live(context.Background(), playerID)
	if err == nil && !live {
		delete(s.sessions, playerID)
		return nil, false
	}
	s.touch(playerID)
	return session, true
}

func (s *SessionStore) DeleteIfIdle(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[playerID]
	if !ok {
		return
	}
	if session.IsIdle() {
		delete(s.sessions, playerID)
		_ = s.client.Del(context.Background(), s.key(playerID)).Err()
	}
}

// Live reports whether the player's liveness key has not yet expired.
func (s *SessionStore) Live(ctx context.Context, playerID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(playerID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// best-effort liveness marker
func (s *SessionStore) touch(playerID string) {
	_ = s.client.Set(context.Background(), s.key(playerID), "1", s.ttl).Err()
}

func (s *SessionStore) key(playerID string) string {
	return "trickia:session:" + playerID
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trickia-quiz/internal/app"
	"trickia-quiz/internal/domain"
)

// ProfileCache caches player profiles in Redis and falls back to the wrapped
// repository on a miss. Profiles are stored as JSON under trickia:profile:{player};
// SaveSession writes through and drops the cached copy.
type ProfileCache struct {
	app.ProfileRepository

	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewProfileCache(client *redis.Client, inner app.ProfileRepository, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		ProfileRepository: inner,
		client:            client,
		ttl:               ttl,
		rnd:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ProfileCache) Profile(ctx context.Context, playerID string) (domain.Profile, error) {
	if p, ok := c.cached(ctx, playerID); ok {
		return p, nil
	}

	result, err, _ := c.sf.Do(playerID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if p, ok := c.cached(ctx, playerID); ok {
			return p, nil
		}

		profile, err := c.ProfileRepository.Profile(ctx, playerID)
		if err != nil {
			return domain.Profile{}, err
		}
		if raw, err := json.Marshal(profile); err == nil {
			_ = c.client.Set(ctx, c.key(playerID), raw, c.ttlWithJitter()).Err()
		}
		return profile, nil
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return result.(domain.Profile), nil
}

func (c *ProfileCache) SaveSession(ctx context.Context, playerID string, rec domain.SessionRecord) error {
	if err := c.ProfileRepository.SaveSession(ctx, playerID, rec); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.key(playerID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (c *ProfileCache) cached(ctx context.Context, playerID string) (domain.Profile, bool) {
	raw, err := c.client.Get(ctx, c.key(playerID)).Bytes()
	if err != nil {
		return domain.Profile{}, false
	}
	var p domain.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Profile{}, false
	}
	return p, true
}

func (c *ProfileCache) key(playerID string) string {
	return "trickia:profile:" + playerID
}

func (c *ProfileCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

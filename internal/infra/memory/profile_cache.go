package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trickia-quiz/internal/app"
	"trickia-quiz/internal/domain"
)

// ProfileCache caches player profiles with TTL to avoid repeated DB hits.
// Writes go through and invalidate the cached entry.
type ProfileCache struct {
	app.ProfileRepository

	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedProfile
}

type cachedProfile struct {
	profile   domain.Profile
	expiresAt time.Time
}

func NewProfileCache(inner app.ProfileRepository, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		ProfileRepository: inner,
		ttl:               ttl,
		clock:             time.Now,
		rnd:               rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:             make(map[string]cachedProfile),
	}
}

func (c *ProfileCache) Profile(ctx context.Context, playerID string) (domain.Profile, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[playerID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.profile, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(playerID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[playerID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.profile, nil
		}
		c.mu.RUnlock()

		profile, err := c.ProfileRepository.Profile(ctx, playerID)
		if err != nil {
			return domain.Profile{}, err
		}

		c.mu.Lock()
		c.cache[playerID] = cachedProfile{
			profile:   profile,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
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
	c.mu.Lock()
	delete(c.cache, playerID)
	c.mu.Unlock()
	return nil
}

func (c *ProfileCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

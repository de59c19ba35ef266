package middleware

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"authgate/internal/models"
)

// SessionCache maps a raw Cookie header to its resolved session. A nil value
// records "no session". Entries live for a fixed TTL from insertion; reads do
// not extend them.
type SessionCache struct {
	cache *ttlcache.Cache[string, *models.SessionPayload]

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewSessionCache(ttl time.Duration, capacity uint64) *SessionCache {
	return &SessionCache{
		cache: ttlcache.New[string, *models.SessionPayload](
			ttlcache.WithTTL[string, *models.SessionPayload](ttl),
			ttlcache.WithCapacity[string, *models.SessionPayload](capacity),
			ttlcache.WithDisableTouchOnHit[string, *models.SessionPayload](),
		),
	}
}

func (c *SessionCache) Get(key string) (*models.SessionPayload, bool) {
	item := c.cache.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false
	}
	return item.Value(), true
}

func (c *SessionCache) Set(key string, session *models.SessionPayload) {
	c.cache.Set(key, session, ttlcache.DefaultTTL)
}

func (c *SessionCache) Delete(key string) {
	c.cache.Delete(key)
}

// DeleteUser drops every entry that resolved to userID.
func (c *SessionCache) DeleteUser(userID string) int {
	var keys []string
	c.cache.Range(func(item *ttlcache.Item[string, *models.SessionPayload]) bool {
		if v := item.Value(); v != nil && v.User.ID == userID {
			keys = append(keys, item.Key())
		}
		return true
	})
	for _, k := range keys {
		c.cache.Delete(k)
	}
	return len(keys)
}

func (c *SessionCache) Len() int {
	return c.cache.Len()
}

// Start runs expired entry eviction in the background until Stop is called.
func (c *SessionCache) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.cache.Start()
	}()
}

func (c *SessionCache) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	c.cache.Stop()
	c.wg.Wait()
}

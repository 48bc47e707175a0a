package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Cache is a best-effort read-through cache for provider findings, keyed by
// topic and normalized query. A nil *Cache is a valid no-op so callers never
// branch on whether Redis is configured. Cache faults are logged and treated
// as misses.
type Cache struct {
	rdb    *redis.Client
	ttls   map[string]time.Duration
	logger *log.Logger
}

func NewCache(rdb *redis.Client, ttls map[string]time.Duration, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	return &Cache{rdb: rdb, ttls: ttls, logger: logger}
}

func cacheKey(topic, query string) string {
	return fmt.Sprintf("findings:%s:%s", topic, strings.ToLower(strings.TrimSpace(query)))
}

func (c *Cache) Get(ctx context.Context, topic, query string) (Findings, bool) {
	if c == nil || c.rdb == nil {
		return Findings{}, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(topic, query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
			c.logger.Printf("get %s: %v", cacheKey(topic, query), err)
		}
		return Findings{}, false
	}
	var f Findings
	if err := json.Unmarshal(raw, &f); err != nil {
		return Findings{}, false
	}
	return f, true
}

func (c *Cache) Set(ctx context.Context, topic, query string, f Findings) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	ttl := c.ttls[topic]
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if err := c.rdb.Set(ctx, cacheKey(topic, query), raw, ttl).Err(); err != nil {
		c.logger.Printf("set %s: %v", cacheKey(topic, query), err)
	}
}

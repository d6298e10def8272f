// Package cache wraps a Searcher with a redis-backed result cache so
// repeated rounds of the refinement loop do not re-pay provider quota for
// queries they have already run.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/insight/tools/web_search"
	"github.com/mohammad-safakhou/insight/tools/web_search/models"
)

// Conn opens and pings a redis client.
func Conn(ctx context.Context, host, port, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    pass,
		DB:          db,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

// Cached is a Searcher that consults redis before the underlying provider.
// Redis failures degrade to the wrapped searcher; they are never fatal.
type Cached struct {
	next   web_search.Searcher
	name   string
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func New(next web_search.Searcher, name string, rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Cached {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Cached{next: next, name: name, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cached) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	key := fmt.Sprintf("websearch:%s:%s:%d", c.name, sha1Hex(q), k)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var results []models.Result
		if err := json.Unmarshal(data, &results); err == nil {
			c.logger.Printf("cache hit for %q via %s", q, c.name)
			return results, nil
		}
		// corrupt entry, drop it and fall through
		_ = c.rdb.Del(ctx, key).Err()
	}

	results, err := c.next.Search(ctx, q, k)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(results); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Printf("cache store failed for %q: %v", q, err)
		}
	}
	return results, nil
}

func sha1Hex(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

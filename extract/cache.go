package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"standards-gateway/common"
)

// Cache fronts Paginate with a short-lived redis entry keyed on the
// query shape, since a completed task's results never change and a
// dashboard page commonly re-requests the same page repeatedly.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func cacheKey(taskID string, page, perPage int, sortBy, sortOrder string) string {
	return fmt.Sprintf("taskresults:%s:%d:%d:%s:%s", taskID, page, perPage, sortBy, sortOrder)
}

// Get returns a cached page, or (nil, false) on miss or when no cache
// backend is configured.
func (c *Cache) Get(ctx context.Context, taskID string, page, perPage int, sortBy, sortOrder string) (*PageResult, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(taskID, page, perPage, sortBy, sortOrder)).Bytes()
	if err != nil {
		if err != redis.Nil {
			common.Logger.WithError(err).Warn("pagination cache read failed")
		}
		return nil, false
	}
	var result PageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		common.Logger.WithError(err).Warn("pagination cache entry corrupted")
		return nil, false
	}
	return &result, true
}

// Set stores a page result, logging but not failing the caller on any
// redis error; the cache is an optimization, never a dependency.
func (c *Cache) Set(ctx context.Context, taskID string, page, perPage int, sortBy, sortOrder string, result *PageResult) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(taskID, page, perPage, sortBy, sortOrder), raw, c.ttl).Err(); err != nil {
		common.Logger.WithError(err).Warn("pagination cache write failed")
	}
}

// Invalidate drops every cached page for a task, called after a new
// TaskResult row is created so stale pages never outlive the data.
func (c *Cache) Invalidate(ctx context.Context, taskID string) {
	if c == nil {
		return
	}
	pattern := fmt.Sprintf("taskresults:%s:*", taskID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			common.Logger.WithError(err).Warn("pagination cache invalidation failed")
		}
	}
}

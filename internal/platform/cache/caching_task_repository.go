// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"focusflow/internal/feature/tasks/domain/entity"
	"focusflow/internal/feature/tasks/usecase"
)

// DefaultTaskListTTL is used when a non-positive ttl is given.
const DefaultTaskListTTL = 30 * time.Second

// CachingTaskRepository decorates a TaskRepository with a Redis read-through
// cache for task list pages. Keys always embed the owner ID, so a cached page
// is only ever served to the user it was read for. Every successful mutation
// drops all cached pages of that owner.
type CachingTaskRepository struct {
	inner     usecase.TaskRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.TaskRepository = (*CachingTaskRepository)(nil)

// cachedPage is the JSON value stored per list query.
type cachedPage struct {
	Tasks []entity.Task `json:"tasks"`
	Total int64         `json:"total"`
}

// NewCachingTaskRepository decorates a TaskRepository with Redis caching.
// If ttl is 0, it defaults to 30 seconds. If namespace is empty, it uses "tasks".
// A nil rdb disables caching entirely.
func NewCachingTaskRepository(rdb *redis.Client, ttl time.Duration, inner usecase.TaskRepository, namespace string) *CachingTaskRepository {
	if ttl <= 0 {
		ttl = DefaultTaskListTTL
	}
	if namespace == "" {
		namespace = "tasks"
	}
	return &CachingTaskRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// List returns a page of the owner's tasks, checking the cache first.
func (c *CachingTaskRepository) List(ctx context.Context, userID uint, offset, limit int) ([]entity.Task, int64, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.List(ctx, userID, offset, limit)
	}

	key := c.cacheKey(userID, offset, limit)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var page cachedPage
		if err := json.Unmarshal(b, &page); err == nil {
			return page.Tasks, page.Total, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	tasks, total, err := c.inner.List(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(cachedPage{Tasks: tasks, Total: total}); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return tasks, total, nil
}

// Search is not cached; queries are too varied to be worth it.
func (c *CachingTaskRepository) Search(ctx context.Context, userID uint, query string) ([]entity.Task, error) {
	return c.inner.Search(ctx, userID, query)
}

func (c *CachingTaskRepository) FindByID(ctx context.Context, userID uint, id string) (*entity.Task, error) {
	return c.inner.FindByID(ctx, userID, id)
}

func (c *CachingTaskRepository) Create(ctx context.Context, task *entity.Task) error {
	if err := c.inner.Create(ctx, task); err != nil {
		return err
	}
	c.invalidate(ctx, task.UserID)
	return nil
}

func (c *CachingTaskRepository) Update(ctx context.Context, task *entity.Task) error {
	if err := c.inner.Update(ctx, task); err != nil {
		return err
	}
	c.invalidate(ctx, task.UserID)
	return nil
}

func (c *CachingTaskRepository) Delete(ctx context.Context, userID uint, id string) error {
	if err := c.inner.Delete(ctx, userID, id); err != nil {
		return err
	}
	c.invalidate(ctx, userID)
	return nil
}

// invalidate drops every cached page of the owner. Failures are logged only;
// the TTL bounds how long a stale page can survive.
func (c *CachingTaskRepository) invalidate(ctx context.Context, userID uint) {
	if c.rdb == nil {
		return
	}
	if err := deleteByPattern(ctx, c.rdb, c.ownerPrefix(userID)+"*"); err != nil {
		slog.Warn("task cache invalidation failed", "user_id", userID, "error", err)
	}
}

// cacheKey generates a cache key for a specific page query.
func (c *CachingTaskRepository) cacheKey(userID uint, offset, limit int) string {
	return fmt.Sprintf("%s%d:%d", c.ownerPrefix(userID), offset, limit)
}

// ownerPrefix ends with ":" so that owner 1 never matches owner 10.
func (c *CachingTaskRepository) ownerPrefix(userID uint) string {
	return fmt.Sprintf("%s:%d:", safe(c.namespace), userID)
}

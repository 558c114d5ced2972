package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	taskadapters "focusflow/internal/feature/tasks/adapters"
	taskusecase "focusflow/internal/feature/tasks/usecase"
	"focusflow/internal/platform/cache"
)

// NewTaskRepository creates a TaskRepository implementation.
// If Redis is available, list pages are cached in Redis.
// Otherwise, every call goes straight to the database.
func NewTaskRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) taskusecase.TaskRepository {
	repo := taskadapters.NewTaskGorm(db)
	if rdb == nil {
		return repo
	}
	return cache.NewCachingTaskRepository(rdb, ttl, repo, "tasks")
}

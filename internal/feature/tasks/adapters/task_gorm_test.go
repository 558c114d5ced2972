package adapters

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"focusflow/internal/feature/tasks/domain/entity"
	"focusflow/internal/feature/tasks/usecase"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to initialize test database")

	// :memory: はコネクションごとに別DBになるため1本に制限する
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&TaskModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

var baseTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// seedTask creates a test task in the database for testing.
func seedTask(t *testing.T, repo *taskGorm, userID uint, title string, offset time.Duration) *entity.Task {
	t.Helper()

	id, err := entity.NewTaskID()
	require.NoError(t, err)
	task := &entity.Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: baseTime.Add(offset),
		UpdatedAt: baseTime.Add(offset),
	}
	require.NoError(t, repo.Create(context.Background(), task), "failed to seed task")
	return task
}

func TestNewTaskGorm(t *testing.T) {
	db := setupTestDB(t)

	repo := NewTaskGorm(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestTaskGorm_List(t *testing.T) {
	t.Parallel()

	repo := NewTaskGorm(setupTestDB(t))
	var want []string
	for i := 0; i < 25; i++ {
		task := seedTask(t, repo, 1, fmt.Sprintf("task %02d", i), time.Duration(i)*time.Minute)
		want = append(want, task.ID)
	}
	seedTask(t, repo, 2, "someone else", 0)

	tests := []struct {
		name    string
		offset  int
		limit   int
		wantIDs []string
	}{
		{"first page", 0, 10, want[0:10]},
		{"third page is partial", 20, 10, want[20:25]},
		{"beyond the end", 30, 10, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, total, err := repo.List(context.Background(), 1, tt.offset, tt.limit)
			require.NoError(t, err)

			assert.Equal(t, int64(25), total)
			ids := make([]string, 0, len(tasks))
			for _, task := range tasks {
				assert.Equal(t, uint(1), task.UserID)
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

// TestTaskGorm_List_SameCreatedAt は作成日時が同じ場合にIDで順序が決まることを検証します。
func TestTaskGorm_List_SameCreatedAt(t *testing.T) {
	t.Parallel()

	repo := NewTaskGorm(setupTestDB(t))
	first := seedTask(t, repo, 1, "a", 0)
	second := seedTask(t, repo, 1, "b", 0)

	tasks, _, err := repo.List(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, second.ID, tasks[1].ID)
}

func TestTaskGorm_Search(t *testing.T) {
	t.Parallel()

	repo := NewTaskGorm(setupTestDB(t))
	seedTask(t, repo, 1, "Buy MILK", 0)
	seedTask(t, repo, 1, "100% done", time.Minute)
	seedTask(t, repo, 1, "snake_case name", 2*time.Minute)
	seedTask(t, repo, 1, `path\to\file`, 3*time.Minute)
	seedTask(t, repo, 1, "snakeXcase", 4*time.Minute)
	seedTask(t, repo, 1, "Écrire le rapport", 5*time.Minute)
	seedTask(t, repo, 1, "ДОКЛАД", 6*time.Minute)
	seedTask(t, repo, 2, "buy milk too", 0)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"case insensitive", "milk", []string{"Buy MILK"}},
		{"percent is literal", "%", []string{"100% done"}},
		{"underscore is literal", "_", []string{"snake_case name"}},
		{"backslash is literal", `\`, []string{`path\to\file`}},
		{"accented letters fold", "écrire", []string{"Écrire le rapport"}},
		{"accented query folds", "ÉCRIRE LE", []string{"Écrire le rapport"}},
		{"cyrillic folds", "доклад", []string{"ДОКЛАД"}},
		{"no match", "nothing", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.Search(context.Background(), 1, tt.query)
			require.NoError(t, err)

			titles := make([]string, 0, len(tasks))
			for _, task := range tasks {
				titles = append(titles, task.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestTaskGorm_List_OffsetPastEnd(t *testing.T) {
	t.Parallel()

	repo := NewTaskGorm(setupTestDB(t))
	seedTask(t, repo, 1, "only", 0)

	tasks, total, err := repo.List(context.Background(), 1, math.MaxInt, 100)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, int64(1), total)
}

func TestTaskGorm_FindByID(t *testing.T) {
	t.Parallel()

	repo := NewTaskGorm(setupTestDB(t))
	task := seedTask(t, repo, 1, "mine", 0)

	got, err := repo.FindByID(context.Background(), 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)
	assert.True(t, got.CreatedAt.Equal(task.CreatedAt))

	_, err = repo.FindByID(context.Background(), 2, task.ID)
	assert.ErrorIs(t, err, usecase.ErrTaskNotFound, "other owner")

	missing, _ := entity.NewTaskID()
	_, err = repo.FindByID(context.Background(), 1, missing)
	assert.ErrorIs(t, err, usecase.ErrTaskNotFound, "missing id")
}

func TestTaskGorm_Update(t *testing.T) {
	t.Parallel()

	repo := NewTaskGorm(setupTestDB(t))
	task := seedTask(t, repo, 1, "draft", 0)

	t.Run("other owner cannot update", func(t *testing.T) {
		forged := *task
		forged.UserID = 2
		forged.Title = "hijacked"

		err := repo.Update(context.Background(), &forged)
		assert.ErrorIs(t, err, usecase.ErrTaskNotFound)

		got, err := repo.FindByID(context.Background(), 1, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "draft", got.Title)
	})

	t.Run("owner updates title and done", func(t *testing.T) {
		changed := *task
		changed.Title = "final"
		changed.Done = true
		changed.UpdatedAt = baseTime.Add(time.Hour)
		changed.CreatedAt = baseTime.Add(48 * time.Hour) // 無視される

		require.NoError(t, repo.Update(context.Background(), &changed))

		got, err := repo.FindByID(context.Background(), 1, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", got.Title)
		assert.True(t, got.Done)
		assert.True(t, got.UpdatedAt.Equal(baseTime.Add(time.Hour)))
		assert.True(t, got.CreatedAt.Equal(task.CreatedAt), "created_at is immutable")
	})
}

func TestTaskGorm_Delete(t *testing.T) {
	t.Parallel()

	repo := NewTaskGorm(setupTestDB(t))
	task := seedTask(t, repo, 1, "doomed", 0)

	assert.ErrorIs(t, repo.Delete(context.Background(), 2, task.ID), usecase.ErrTaskNotFound)
	require.NoError(t, repo.Delete(context.Background(), 1, task.ID))
	assert.ErrorIs(t, repo.Delete(context.Background(), 1, task.ID), usecase.ErrTaskNotFound)

	_, total, err := repo.List(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTaskGorm_Create_Nil(t *testing.T) {
	repo := NewTaskGorm(setupTestDB(t))

	assert.Error(t, repo.Create(context.Background(), nil))
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

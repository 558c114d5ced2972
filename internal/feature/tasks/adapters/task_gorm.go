// Package adapters はtasksフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"focusflow/internal/feature/tasks/domain/entity"
	"focusflow/internal/feature/tasks/usecase"
)

type taskGorm struct {
	db *gorm.DB
}

var _ usecase.TaskRepository = (*taskGorm)(nil)

// NewTaskGorm はGORMベースのタスクリポジトリを生成します。
func NewTaskGorm(db *gorm.DB) *taskGorm {
	return &taskGorm{db: db}
}

// TaskModel はtasksテーブルの行です。
// (user_id, created_at) の複合インデックスで所有者ごとの一覧を作成順に引きます。
type TaskModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint      `gorm:"not null;index:idx_tasks_owner_created,priority:1"`
	Title     string    `gorm:"size:500;not null"`
	Done      bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_tasks_owner_created,priority:2"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (TaskModel) TableName() string {
	return "tasks"
}

func toModel(e *entity.Task) TaskModel {
	return TaskModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Done:      e.Done,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toEntity(m TaskModel) entity.Task {
	return entity.Task{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Done:      m.Done,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toEntities(rows []TaskModel) []entity.Task {
	out := make([]entity.Task, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out
}

func (r *taskGorm) List(ctx context.Context, userID uint, offset, limit int) ([]entity.Task, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&TaskModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []TaskModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toEntities(rows), total, nil
}

// Search はタイトルに query を含む所有者のタスクを大文字小文字を区別せずに返します。
// SQLiteのLOWERはASCIIしか畳まないため、SQLiteでは所有者の行をGo側で絞り込みます。
func (r *taskGorm) Search(ctx context.Context, userID uint, query string) ([]entity.Task, error) {
	q := strings.ToLower(query)
	if r.db.Dialector.Name() == "sqlite" {
		return r.searchInMemory(ctx, userID, q)
	}

	pattern := "%" + escapeLike(q) + "%"
	var rows []TaskModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(title) LIKE ? ESCAPE '\\'", userID, pattern).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *taskGorm) searchInMemory(ctx context.Context, userID uint, q string) ([]entity.Task, error) {
	var rows []TaskModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Task, 0, len(rows))
	for _, m := range rows {
		if strings.Contains(strings.ToLower(m.Title), q) {
			out = append(out, toEntity(m))
		}
	}
	return out, nil
}

func (r *taskGorm) Create(ctx context.Context, task *entity.Task) error {
	if task == nil {
		return errors.New("task is nil")
	}
	m := toModel(task)
	return r.db.WithContext(ctx).Create(&m).Error
}

// FindByID は所有者で絞り込んでタスクを取得します。
// 存在しない場合と他ユーザーのタスクの場合はどちらもusecase.ErrTaskNotFoundを返します。
func (r *taskGorm) FindByID(ctx context.Context, userID uint, id string) (*entity.Task, error) {
	var m TaskModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrTaskNotFound
		}
		return nil, err
	}
	t := toEntity(m)
	return &t, nil
}

// Update は所有者で絞り込んだ単一行を更新します。user_idとcreated_atは更新しません。
func (r *taskGorm) Update(ctx context.Context, task *entity.Task) error {
	res := r.db.WithContext(ctx).Model(&TaskModel{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Updates(map[string]any{
			"title":      task.Title,
			"done":       task.Done,
			"updated_at": task.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrTaskNotFound
	}
	return nil
}

func (r *taskGorm) Delete(ctx context.Context, userID uint, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&TaskModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrTaskNotFound
	}
	return nil
}

// escapeLike はLIKEパターン中の \ % _ をエスケープします。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

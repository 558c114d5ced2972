// Package dto はtasksフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"time"

	"focusflow/internal/feature/tasks/domain/entity"
)

// CreateTaskReq は POST /api/tasks のリクエストボディです。
// 空のタイトルはユースケース側で検証するためbindingタグは付けません。
type CreateTaskReq struct {
	Title string `json:"title"`
}

// UpdateTaskReq は PUT /api/tasks/:id のリクエストボディです。省略したフィールドは変更されません。
type UpdateTaskReq struct {
	Title *string `json:"title"`
	Done  *bool   `json:"done"`
}

// TaskRes はクライアントに返すタスク表現です。
type TaskRes struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewTaskRes はエンティティからレスポンスを生成します。
func NewTaskRes(t *entity.Task) TaskRes {
	return TaskRes{
		ID:        t.ID,
		Title:     t.Title,
		Done:      t.Done,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// NewTaskList は常に非nilのスライスを返し、空の一覧を [] としてシリアライズします。
func NewTaskList(tasks []entity.Task) []TaskRes {
	out := make([]TaskRes, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskRes(&tasks[i]))
	}
	return out
}

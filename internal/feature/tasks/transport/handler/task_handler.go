// Package handler はtasksフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"focusflow/internal/api"
	"focusflow/internal/feature/tasks/domain/entity"
	"focusflow/internal/feature/tasks/transport/http/dto"
	"focusflow/internal/feature/tasks/usecase"
	jwtmw "focusflow/internal/platform/jwt"
)

// TaskUsecase はタスク操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type TaskUsecase interface {
	List(ctx context.Context, userID uint, page, pageSize int) (*usecase.Page, error)
	Search(ctx context.Context, userID uint, query string) ([]entity.Task, error)
	Create(ctx context.Context, userID uint, title string) (*entity.Task, error)
	Update(ctx context.Context, userID uint, taskID string, patch usecase.TaskPatch) (*entity.Task, error)
	Delete(ctx context.Context, userID uint, taskID string) error
}

// TaskHandler はタスクのHTTPリクエストを処理します。
// 応答は {success, data, error} 形式のエンベロープで返します。
type TaskHandler struct {
	uc TaskUsecase
}

// NewTaskHandler は指定されたusecaseでTaskHandlerの新しいインスタンスを生成します。
func NewTaskHandler(uc TaskUsecase) *TaskHandler {
	return &TaskHandler{uc: uc}
}

// List は認証ユーザーのタスクをページ単位で返します。
//
// エンドポイント例:
// GET /api/tasks?page=2&limit=10
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := h.identity(c)
	if !ok {
		return
	}
	// 数値でない場合は0となり、ユースケースでデフォルト値に置き換わる
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.uc.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := api.TaskOK(dto.NewTaskList(result.Tasks))
	resp.Pagination = &api.Pagination{
		TotalItems:  result.TotalItems,
		TotalPages:  result.TotalPages,
		CurrentPage: result.CurrentPage,
		PageSize:    result.PageSize,
	}
	c.JSON(http.StatusOK, resp)
}

// Search はタイトルにqを含むタスクを返します。
//
// エンドポイント例:
// GET /api/tasks/search?q=milk
func (h *TaskHandler) Search(c *gin.Context) {
	userID, ok := h.identity(c)
	if !ok {
		return
	}
	tasks, err := h.uc.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		if errors.Is(err, usecase.ErrValidation) {
			c.JSON(http.StatusBadRequest, api.TaskErr("Search query is required"))
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.TaskOK(dto.NewTaskList(tasks)))
}

// Create はタスクを作成し201を返します。
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.CreateTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.TaskErr("Title is required"))
		return
	}
	task, err := h.uc.Create(c.Request.Context(), userID, req.Title)
	if err != nil {
		if errors.Is(err, usecase.ErrValidation) {
			c.JSON(http.StatusBadRequest, api.TaskErr("Title is required"))
			return
		}
		h.writeError(c, err)
		return
	}
	slog.Info("task created", "user_id", userID, "task_id", task.ID)
	c.JSON(http.StatusCreated, api.TaskOK(dto.NewTaskRes(task)))
}

// Update はタイトルと完了フラグのうち指定されたものを更新します。
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.UpdateTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.TaskErr("Invalid request body"))
		return
	}
	task, err := h.uc.Update(c.Request.Context(), userID, c.Param("id"), usecase.TaskPatch{
		Title: req.Title,
		Done:  req.Done,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrValidation) {
			c.JSON(http.StatusBadRequest, api.TaskErr("Title must not be empty"))
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.TaskOK(dto.NewTaskRes(task)))
}

// Delete はタスクを削除し、ボディなしの204を返します。
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := h.identity(c)
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) identity(c *gin.Context) (uint, bool) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.TaskErr("Please login to access this route"))
		return 0, false
	}
	return userID, true
}

// writeError はユースケースのエラーをHTTPステータスに変換します。
// 内部エラーの詳細はログにのみ出力します。
func (h *TaskHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidID):
		c.JSON(http.StatusBadRequest, api.TaskErr("Invalid task id"))
	case errors.Is(err, usecase.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, api.TaskErr("Task not found"))
	default:
		slog.Error("task request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, api.TaskErr("Internal Server Error"))
	}
}

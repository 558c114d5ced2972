package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"focusflow/internal/feature/tasks/domain/entity"
)

const (
	// DefaultPage は未指定または不正なpageの代わりに使うページ番号です。
	DefaultPage = 1
	// DefaultPageSize は未指定または不正なlimitの代わりに使う件数です。
	DefaultPageSize = 10
	// MaxPageSize は1ページの最大件数です。これを超える指定は切り詰めます。
	MaxPageSize = 100
)

// TaskRepository はタスクの永続化レイヤーを抽象化します。
// すべての読み取り・更新・削除は id と userID の両方で絞り込まれます。
type TaskRepository interface {
	// List は所有者のタスクを作成順に offset から最大 limit 件返し、総件数も返します。
	List(ctx context.Context, userID uint, offset, limit int) ([]entity.Task, int64, error)
	// Search はタイトルに query を含む所有者のタスクを作成順に返します（大文字小文字を区別しない）。
	Search(ctx context.Context, userID uint, query string) ([]entity.Task, error)
	Create(ctx context.Context, task *entity.Task) error
	// FindByID は所有者のタスクを返します。存在しないか他人のものならErrTaskNotFound。
	FindByID(ctx context.Context, userID uint, id string) (*entity.Task, error)
	// Update はタイトル・完了フラグ・更新日時を保存します。
	Update(ctx context.Context, task *entity.Task) error
	Delete(ctx context.Context, userID uint, id string) error
}

// Page はタスク一覧の1ページ分です。
type Page struct {
	Tasks       []entity.Task
	TotalItems  int64
	TotalPages  int
	CurrentPage int
	PageSize    int
}

// TaskPatch は更新するフィールドだけを非nilで持ちます。
type TaskPatch struct {
	Title *string
	Done  *bool
}

// taskUsecase はタスク操作のユースケースを実装します。
type taskUsecase struct {
	tasks TaskRepository
	now   func() time.Time
	newID func() (string, error)
}

// NewTaskUsecase はtaskUsecaseの新しいインスタンスを生成します。
func NewTaskUsecase(tasks TaskRepository) *taskUsecase {
	return &taskUsecase{
		tasks: tasks,
		now:   time.Now,
		newID: entity.NewTaskID,
	}
}

// NormalizePaging は1未満の値をデフォルトに置き換え、pageSizeを上限で切り詰めます。
func NormalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// List は所有者のタスクを作成順にページ単位で返します。
func (u *taskUsecase) List(ctx context.Context, userID uint, page, pageSize int) (*Page, error) {
	page, pageSize = NormalizePaging(page, pageSize)

	tasks, total, err := u.tasks.List(ctx, userID, pageOffset(page, pageSize), pageSize)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}

	return &Page{
		Tasks:       tasks,
		TotalItems:  total,
		TotalPages:  int(math.Ceil(float64(total) / float64(pageSize))),
		CurrentPage: page,
		PageSize:    pageSize,
	}, nil
}

// pageOffset は(page-1)*pageSizeを返します。intに収まらない場合はmath.MaxIntに
// 丸め、どの所有者の件数よりも後ろを指す空ページにします。
func pageOffset(page, pageSize int) int {
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// Search はタイトルに部分一致する所有者のタスクを返します。
func (u *taskUsecase) Search(ctx context.Context, userID uint, query string) ([]entity.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}

	tasks, err := u.tasks.Search(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}
	return tasks, nil
}

// Create は未完了のタスクを作成します。
func (u *taskUsecase) Create(ctx context.Context, userID uint, title string) (*entity.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	id, err := u.newID()
	if err != nil {
		return nil, fmt.Errorf("generate task id: %w", err)
	}
	now := u.timestamp()
	task := &entity.Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Done:      false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// Update は指定されたフィールドのみを更新します。
// 所有者と作成日時は変わらず、更新日時は必ず前回より後になります。
func (u *taskUsecase) Update(ctx context.Context, userID uint, taskID string, patch TaskPatch) (*entity.Task, error) {
	id, err := entity.ParseTaskID(taskID)
	if err != nil {
		return nil, ErrInvalidID
	}
	var title string
	if patch.Title != nil {
		title = strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
		}
	}

	task, err := u.tasks.FindByID(ctx, userID, id)
	if err != nil {
		return nil, u.wrapLookup("update task", err)
	}

	if patch.Title != nil {
		task.Title = title
	}
	if patch.Done != nil {
		task.Done = *patch.Done
	}
	now := u.timestamp()
	if !now.After(task.UpdatedAt) {
		now = task.UpdatedAt.Add(time.Microsecond)
	}
	task.UpdatedAt = now

	if err := u.tasks.Update(ctx, task); err != nil {
		return nil, u.wrapLookup("update task", err)
	}
	return task, nil
}

// Delete はタスクを物理削除します。2回目以降の削除はErrTaskNotFoundになります。
func (u *taskUsecase) Delete(ctx context.Context, userID uint, taskID string) error {
	id, err := entity.ParseTaskID(taskID)
	if err != nil {
		return ErrInvalidID
	}
	if err := u.tasks.Delete(ctx, userID, id); err != nil {
		return u.wrapLookup("delete task", err)
	}
	return nil
}

// timestamp はDBの精度（マイクロ秒）に揃えた現在時刻を返します。
func (u *taskUsecase) timestamp() time.Time {
	return u.now().UTC().Truncate(time.Microsecond)
}

func (u *taskUsecase) wrapLookup(op string, err error) error {
	if errors.Is(err, ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

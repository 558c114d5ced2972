package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"focusflow/internal/api"
	client "focusflow/internal/client/api"
)

// DefaultPageSize is the page fetched by FetchTasks.
const DefaultPageSize = 10

// ErrBusy is returned when another store operation is still in flight.
var ErrBusy = errors.New("another operation is in progress")

// TaskAPI is the part of the API client the task store needs.
type TaskAPI interface {
	ListTasks(ctx context.Context, page, limit int) ([]client.Task, *api.Pagination, error)
	CreateTask(ctx context.Context, title string) (*client.Task, error)
	UpdateTask(ctx context.Context, id string, patch client.TaskPatch) (*client.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title *string
	Done  *bool
}

// TaskStore caches the user's tasks and keeps them in step with the server.
// Updates and deletes are applied locally before the server answers and
// rolled back if the call fails. Creates are appended only once confirmed.
type TaskStore struct {
	api     TaskAPI
	persist Persister

	mu      sync.Mutex
	tasks   []Task
	loading bool
	err     string
	// gen changes on every wholesale replacement of tasks (fetch, clear),
	// so an in-flight rollback never resurrects entries from an older list.
	gen uint64
}

// NewTaskStore loads persisted tasks once. A load or rehydration failure is
// logged and the store starts empty.
func NewTaskStore(ctx context.Context, taskAPI TaskAPI, p Persister) *TaskStore {
	s := &TaskStore{api: taskAPI, persist: p}
	data, err := p.Load(ctx)
	if err != nil {
		slog.Warn("task cache load failed", "error", err)
		return s
	}
	tasks, err := RehydrateTasks(data)
	if err != nil {
		slog.Warn("task cache rehydration failed; starting empty", "error", err)
		return s
	}
	s.tasks = tasks
	return s
}

// Tasks returns a copy of the cached tasks.
func (s *TaskStore) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

func (s *TaskStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Error returns the message of the last failed operation, or "".
func (s *TaskStore) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// FetchTasks replaces the cache with the first page from the server.
func (s *TaskStore) FetchTasks(ctx context.Context) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}
	remote, _, err := s.api.ListTasks(ctx, 1, DefaultPageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.failLocked(err)
	}
	if gen != s.gen {
		// cleared while in flight
		s.finishLocked(ctx)
		return nil
	}
	s.tasks = make([]Task, 0, len(remote))
	for i := range remote {
		s.tasks = append(s.tasks, fromAPI(&remote[i]))
	}
	s.gen++
	s.finishLocked(ctx)
	return nil
}

// AddTask creates the task on the server and appends the confirmed result.
func (s *TaskStore) AddTask(ctx context.Context, title string) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}
	created, err := s.api.CreateTask(ctx, title)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.failLocked(err)
	}
	if gen == s.gen {
		s.tasks = append(s.tasks, fromAPI(created))
	}
	s.finishLocked(ctx)
	return nil
}

// UpdateTask applies patch locally, then on the server. On success the entry
// is replaced by the server's version; on failure the previous entry returns.
func (s *TaskStore) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	s.mu.Lock()
	var prev *Task
	if i := s.indexLocked(id); i >= 0 {
		old := s.tasks[i]
		prev = &old
		if patch.Title != nil {
			s.tasks[i].Title = *patch.Title
		}
		if patch.Done != nil {
			s.tasks[i].Done = *patch.Done
		}
		s.saveLocked(ctx)
	}
	s.mu.Unlock()

	updated, err := s.api.UpdateTask(ctx, id, client.TaskPatch{Title: patch.Title, Done: patch.Done})

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if err != nil {
		if prev != nil && i >= 0 && gen == s.gen {
			s.tasks[i] = *prev
		}
		return s.failLocked(err)
	}
	if i >= 0 {
		s.tasks[i] = fromAPI(updated)
	}
	s.finishLocked(ctx)
	return nil
}

// DeleteTask removes the entry locally, then on the server. On failure the
// entry is put back at its original position.
func (s *TaskStore) DeleteTask(ctx context.Context, id string) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	s.mu.Lock()
	pos := s.indexLocked(id)
	var removed Task
	if pos >= 0 {
		removed = s.tasks[pos]
		s.tasks = slices.Delete(s.tasks, pos, pos+1)
		s.saveLocked(ctx)
	}
	s.mu.Unlock()

	err = s.api.DeleteTask(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if pos >= 0 && gen == s.gen {
			s.tasks = slices.Insert(s.tasks, min(pos, len(s.tasks)), removed)
		}
		return s.failLocked(err)
	}
	s.finishLocked(ctx)
	return nil
}

// ClearTasks empties the cache and the error. It never waits for, and is never
// blocked by, an operation in flight.
func (s *TaskStore) ClearTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.err = ""
	s.gen++
	s.saveLocked(context.Background())
}

// begin takes the one-at-a-time gate and returns the current list generation.
func (s *TaskStore) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return 0, ErrBusy
	}
	s.loading = true
	s.err = ""
	return s.gen, nil
}

func (s *TaskStore) failLocked(err error) error {
	s.loading = false
	s.err = err.Error()
	s.saveLocked(context.Background())
	return err
}

func (s *TaskStore) finishLocked(ctx context.Context) {
	s.loading = false
	s.saveLocked(context.WithoutCancel(ctx))
}

func (s *TaskStore) indexLocked(id string) int {
	return slices.IndexFunc(s.tasks, func(t Task) bool { return t.ID == id })
}

func (s *TaskStore) saveLocked(ctx context.Context) {
	data, err := dehydrateTasks(s.tasks)
	if err == nil {
		err = s.persist.Save(ctx, data)
	}
	if err != nil {
		slog.Warn("task cache save failed", "error", err)
	}
}

func fromAPI(t *client.Task) Task {
	return Task{ID: t.ID, Title: t.Title, Done: t.Done, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

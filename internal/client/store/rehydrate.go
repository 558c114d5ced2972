package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task is the cached copy of a server task.
type Task struct {
	ID        string
	Title     string
	Done      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is the cached copy of the signed-in user's profile.
type User struct {
	ID          uint
	Email       string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Country     string
	Avatar      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuthState is the persisted part of the auth store.
type AuthState struct {
	User          *User
	Authenticated bool
}

// On disk every timestamp is an RFC 3339 string.
type persistedTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type persistedTasks struct {
	Tasks []persistedTask `json:"tasks"`
}

type persistedUser struct {
	ID          uint    `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"firstName,omitempty"`
	LastName    string  `json:"lastName,omitempty"`
	DateOfBirth *string `json:"dateOfBirth"`
	Country     string  `json:"country,omitempty"`
	Avatar      string  `json:"avatar,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type persistedAuth struct {
	User          *persistedUser `json:"user"`
	Authenticated bool           `json:"isAuthenticated"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

// RehydrateTasks turns persisted task JSON back into typed tasks.
// Empty input yields no tasks. Any unparsable timestamp fails the whole load.
func RehydrateTasks(data []byte) ([]Task, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var p persistedTasks
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	out := make([]Task, 0, len(p.Tasks))
	for i, pt := range p.Tasks {
		created, err := parseTime(fmt.Sprintf("tasks[%d].createdAt", i), pt.CreatedAt)
		if err != nil {
			return nil, err
		}
		updated, err := parseTime(fmt.Sprintf("tasks[%d].updatedAt", i), pt.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, Task{ID: pt.ID, Title: pt.Title, Done: pt.Done, CreatedAt: created, UpdatedAt: updated})
	}
	return out, nil
}

func dehydrateTasks(tasks []Task) ([]byte, error) {
	p := persistedTasks{Tasks: make([]persistedTask, 0, len(tasks))}
	for _, t := range tasks {
		p.Tasks = append(p.Tasks, persistedTask{
			ID:        t.ID,
			Title:     t.Title,
			Done:      t.Done,
			CreatedAt: formatTime(t.CreatedAt),
			UpdatedAt: formatTime(t.UpdatedAt),
		})
	}
	return json.Marshal(p)
}

// RehydrateAuth turns persisted auth JSON back into typed state.
// dateOfBirth accepts a calendar date or a full timestamp.
func RehydrateAuth(data []byte) (AuthState, error) {
	if len(data) == 0 {
		return AuthState{}, nil
	}
	var p persistedAuth
	if err := json.Unmarshal(data, &p); err != nil {
		return AuthState{}, fmt.Errorf("decode auth: %w", err)
	}
	if p.User == nil {
		return AuthState{}, nil
	}

	u := &User{
		ID:        p.User.ID,
		Email:     p.User.Email,
		FirstName: p.User.FirstName,
		LastName:  p.User.LastName,
		Country:   p.User.Country,
		Avatar:    p.User.Avatar,
	}
	var err error
	if u.CreatedAt, err = parseTime("user.createdAt", p.User.CreatedAt); err != nil {
		return AuthState{}, err
	}
	if u.UpdatedAt, err = parseTime("user.updatedAt", p.User.UpdatedAt); err != nil {
		return AuthState{}, err
	}
	if dob := p.User.DateOfBirth; dob != nil && *dob != "" {
		t, err := time.Parse(time.DateOnly, *dob)
		if err != nil {
			if t, err = parseTime("user.dateOfBirth", *dob); err != nil {
				return AuthState{}, err
			}
		}
		u.DateOfBirth = &t
	}
	return AuthState{User: u, Authenticated: p.Authenticated}, nil
}

func dehydrateAuth(s AuthState) ([]byte, error) {
	p := persistedAuth{Authenticated: s.Authenticated}
	if u := s.User; u != nil {
		p.User = &persistedUser{
			ID:        u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Country:   u.Country,
			Avatar:    u.Avatar,
			CreatedAt: formatTime(u.CreatedAt),
			UpdatedAt: formatTime(u.UpdatedAt),
		}
		if u.DateOfBirth != nil {
			d := u.DateOfBirth.Format(time.DateOnly)
			p.User.DateOfBirth = &d
		}
	}
	return json.Marshal(p)
}

package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	client "focusflow/internal/client/api"
)

// AuthAPI is the part of the API client the auth store needs.
type AuthAPI interface {
	Register(ctx context.Context, email, password string, profile client.Profile) (*client.User, error)
	Login(ctx context.Context, email, password string) (*client.User, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*client.User, error)
	UpdateProfile(ctx context.Context, p client.Profile) (*client.User, error)
	UploadAvatar(ctx context.Context, filename string, data []byte) (*client.User, error)
}

// TaskCache is cleared when the user signs out.
type TaskCache interface {
	ClearTasks()
}

// AuthStore holds the signed-in user. Signing out always clears both the user
// and the coupled task cache, whatever the server answered.
type AuthStore struct {
	api     AuthAPI
	tasks   TaskCache
	persist Persister

	mu            sync.Mutex
	user          *User
	authenticated bool
	loading       bool
	err           string
}

// NewAuthStore loads persisted auth state once. A load or rehydration failure
// is logged and the store starts signed out.
func NewAuthStore(ctx context.Context, authAPI AuthAPI, tasks TaskCache, p Persister) *AuthStore {
	s := &AuthStore{api: authAPI, tasks: tasks, persist: p}
	data, err := p.Load(ctx)
	if err != nil {
		slog.Warn("auth cache load failed", "error", err)
		return s
	}
	st, err := RehydrateAuth(data)
	if err != nil {
		slog.Warn("auth cache rehydration failed; starting signed out", "error", err)
		return s
	}
	s.user = st.User
	s.authenticated = st.Authenticated
	return s
}

// User returns a copy of the cached user, or nil when signed out.
func (s *AuthStore) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *AuthStore) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *AuthStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *AuthStore) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Login signs in and caches the user.
func (s *AuthStore) Login(ctx context.Context, email, password string) error {
	if err := s.begin(); err != nil {
		return err
	}
	u, err := s.api.Login(ctx, email, password)
	return s.finish(ctx, u, err, true)
}

// Register creates the account, then signs in with the same credentials.
func (s *AuthStore) Register(ctx context.Context, email, password string, profile client.Profile) error {
	if err := s.begin(); err != nil {
		return err
	}
	if _, err := s.api.Register(ctx, email, password, profile); err != nil {
		return s.finish(ctx, nil, err, false)
	}
	u, err := s.api.Login(ctx, email, password)
	return s.finish(ctx, u, err, true)
}

// GetProfile refreshes the cached user. Any failure marks the store signed out.
func (s *AuthStore) GetProfile(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	u, err := s.api.Profile(ctx)
	if err != nil {
		s.mu.Lock()
		s.authenticated = false
		s.mu.Unlock()
	}
	return s.finish(ctx, u, err, true)
}

// UpdateProfile applies the non-nil fields of p.
func (s *AuthStore) UpdateProfile(ctx context.Context, p client.Profile) error {
	if err := s.begin(); err != nil {
		return err
	}
	u, err := s.api.UpdateProfile(ctx, p)
	return s.finish(ctx, u, err, false)
}

// UploadAvatar uploads a new avatar image and caches the updated user.
func (s *AuthStore) UploadAvatar(ctx context.Context, filename string, data []byte) error {
	if err := s.begin(); err != nil {
		return err
	}
	u, err := s.api.UploadAvatar(ctx, filename, data)
	return s.finish(ctx, u, err, false)
}

// Logout asks the server to end the session, then clears the user and the
// task cache unconditionally. The network error, if any, is returned after clearing.
func (s *AuthStore) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	if err != nil {
		slog.Warn("logout request failed; clearing local state anyway", "error", err)
	}

	s.mu.Lock()
	s.user = nil
	s.authenticated = false
	s.err = ""
	s.saveLocked(context.WithoutCancel(ctx))
	s.mu.Unlock()

	s.tasks.ClearTasks()
	return err
}

func (s *AuthStore) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return ErrBusy
	}
	s.loading = true
	s.err = ""
	return nil
}

// finish records the outcome of a call that returns the user.
// signIn marks the store authenticated on success.
func (s *AuthStore) finish(ctx context.Context, u *client.User, err error, signIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
		s.saveLocked(context.WithoutCancel(ctx))
		return err
	}
	s.user = userFromAPI(u)
	if signIn {
		s.authenticated = true
	}
	s.saveLocked(context.WithoutCancel(ctx))
	return nil
}

func (s *AuthStore) saveLocked(ctx context.Context) {
	data, err := dehydrateAuth(AuthState{User: s.user, Authenticated: s.authenticated})
	if err == nil {
		err = s.persist.Save(ctx, data)
	}
	if err != nil {
		slog.Warn("auth cache save failed", "error", err)
	}
}

func userFromAPI(u *client.User) *User {
	out := &User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Country:   u.Country,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.DateOfBirth != nil {
		d := time.Date(u.DateOfBirth.Year(), u.DateOfBirth.Month(), u.DateOfBirth.Day(), 0, 0, 0, 0, time.UTC)
		out.DateOfBirth = &d
	}
	return out
}

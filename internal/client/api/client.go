// Package api is a typed Go client for the FocusFlow REST API.
// The session cookie issued by login and register is kept in a cookie jar
// and sent with every later request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"golang.org/x/net/publicsuffix"

	wire "focusflow/internal/api"
	platformhttp "focusflow/internal/platform/http"
)

// DefaultTimeout bounds every request, so a server that never answers
// surfaces as an error instead of a call that hangs forever.
const DefaultTimeout = 10 * time.Second

// Error is a non-2xx answer from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 answer.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// User is the profile returned by the auth routes.
type User struct {
	ID          uint                `json:"id"`
	Email       string              `json:"email"`
	FirstName   string              `json:"firstName"`
	LastName    string              `json:"lastName"`
	DateOfBirth *openapi_types.Date `json:"dateOfBirth"`
	Country     string              `json:"country"`
	Avatar      string              `json:"avatar"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Task is a task as returned by the task routes.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title *string `json:"title,omitempty"`
	Done  *bool   `json:"done,omitempty"`
}

// Profile carries the optional profile fields for register and update.
// An empty DateOfBirth on update clears the stored date.
type Profile struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Country     *string `json:"country,omitempty"`
}

// Client calls the REST API rooted at baseURL (e.g. "http://localhost:8080/api").
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client with its own cookie jar.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    platformhttp.NewHTTPClient(timeout, jar),
	}, nil
}

type authEnvelope[T any] struct {
	Status  string `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type taskEnvelope[T any] struct {
	Success    bool             `json:"success"`
	Data       T                `json:"data"`
	Pagination *wire.Pagination `json:"pagination"`
	Error      *string          `json:"error"`
}

type userData struct {
	User User `json:"user"`
}

// Register creates an account. The server also starts a session.
func (c *Client) Register(ctx context.Context, email, password string, profile Profile) (*User, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Profile
	}{Email: email, Password: password, Profile: profile}
	return c.userCall(ctx, http.MethodPost, "/auth/register", body)
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	return c.userCall(ctx, http.MethodPost, "/auth/login", body)
}

// Logout asks the server to expire the session cookie.
func (c *Client) Logout(ctx context.Context) error {
	var env authEnvelope[json.RawMessage]
	_, err := c.do(ctx, http.MethodGet, "/auth/logout", nil, "", &env, authMessage)
	return err
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	return c.userCall(ctx, http.MethodGet, "/auth/profile", nil)
}

// UpdateProfile applies the non-nil fields of p.
func (c *Client) UpdateProfile(ctx context.Context, p Profile) (*User, error) {
	return c.userCall(ctx, http.MethodPut, "/auth/profile", p)
}

// UploadAvatar sends data as the multipart "avatar" file.
func (c *Client) UploadAvatar(ctx context.Context, filename string, data []byte) (*User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var env authEnvelope[userData]
	if _, err := c.do(ctx, http.MethodPost, "/auth/upload-avatar", &buf, mw.FormDataContentType(), &env, authMessage); err != nil {
		return nil, err
	}
	return &env.Data.User, nil
}

// ListTasks returns one page of tasks in insertion order.
func (c *Client) ListTasks(ctx context.Context, page, limit int) ([]Task, *wire.Pagination, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var env taskEnvelope[[]Task]
	if _, err := c.doJSON(ctx, http.MethodGet, "/tasks?"+q.Encode(), nil, &env, taskMessage); err != nil {
		return nil, nil, err
	}
	return env.Data, env.Pagination, nil
}

// SearchTasks returns the tasks whose title contains query, ignoring case.
func (c *Client) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	var env taskEnvelope[[]Task]
	if _, err := c.doJSON(ctx, http.MethodGet, "/tasks/search?q="+url.QueryEscape(query), nil, &env, taskMessage); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateTask creates a task and returns the stored version.
func (c *Client) CreateTask(ctx context.Context, title string) (*Task, error) {
	var env taskEnvelope[Task]
	if _, err := c.doJSON(ctx, http.MethodPost, "/tasks", map[string]string{"title": title}, &env, taskMessage); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// UpdateTask applies patch and returns the stored version.
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	var env taskEnvelope[Task]
	if _, err := c.doJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), patch, &env, taskMessage); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// DeleteTask deletes a task. The server answers 204 without a body.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, taskMessage)
	return err
}

func (c *Client) userCall(ctx context.Context, method, path string, body any) (*User, error) {
	var env authEnvelope[userData]
	if _, err := c.doJSON(ctx, method, path, body, &env, authMessage); err != nil {
		return nil, err
	}
	return &env.Data.User, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, msg messageFunc) (int, error) {
	var r io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, r, contentType, out, msg)
}

// messageFunc extracts the error text from a failed response body.
type messageFunc func(body []byte) string

func authMessage(body []byte) string {
	var env authEnvelope[json.RawMessage]
	if json.Unmarshal(body, &env) == nil {
		return env.Message
	}
	return ""
}

func taskMessage(body []byte) string {
	var env taskEnvelope[json.RawMessage]
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return *env.Error
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any, msg messageFunc) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m := msg(b)
		if m == "" {
			m = "An unknown error occurred"
		}
		return resp.StatusCode, &Error{StatusCode: resp.StatusCode, Message: m}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(b) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	authadapters "focusflow/internal/feature/auth/adapters"
	authhandler "focusflow/internal/feature/auth/transport/handler"
	authusecase "focusflow/internal/feature/auth/usecase"
	taskadapters "focusflow/internal/feature/tasks/adapters"
	taskhandler "focusflow/internal/feature/tasks/transport/handler"
	taskusecase "focusflow/internal/feature/tasks/usecase"
	"focusflow/internal/platform/db"
	jwtmw "focusflow/internal/platform/jwt"
	"focusflow/internal/platform/storage"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// setupServer は in-memory SQLite 上に全レイヤーを組み立てます。
func setupServer(t *testing.T) *gin.Engine {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	avatars, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	tokens := jwtmw.NewGenerator("test-secret", time.Hour)
	authUC := authusecase.NewAuthUsecase(authadapters.NewUserGorm(gdb), tokens, tokens, avatars)
	taskUC := taskusecase.NewTaskUsecase(taskadapters.NewTaskGorm(gdb))

	return NewRouter(Params{
		Auth:      authhandler.NewAuthHandler(authUC, time.Hour),
		Tasks:     taskhandler.NewTaskHandler(taskUC),
		Verifier:  authUC,
		ClientURL: "http://localhost:5173",
		UploadDir: avatars.Dir(),
	})
}

// client はレスポンスのCookieを保持し、以降のリクエストに付与します。
type client struct {
	t       *testing.T
	r       *gin.Engine
	cookies []*http.Cookie
}

func (cl *client) do(method, path string, body any) *httptest.ResponseRecorder {
	cl.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(cl.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	cl.r.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		cl.cookies = set
	}
	return w
}

type taskJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type taskEnvelope[T any] struct {
	Success    bool    `json:"success"`
	Data       T       `json:"data"`
	Error      *string `json:"error"`
	Pagination *struct {
		TotalItems  int64 `json:"totalItems"`
		TotalPages  int   `json:"totalPages"`
		CurrentPage int   `json:"currentPage"`
		PageSize    int   `json:"pageSize"`
	} `json:"pagination"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestEndToEnd_TaskLifecycle(t *testing.T) {
	cl := &client{t: t, r: setupServer(t)}

	w := cl.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "a@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	cl.cookies = nil
	w = cl.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(t, cl.cookies)
	assert.Equal(t, jwtmw.CookieName, cl.cookies[0].Name)
	assert.True(t, cl.cookies[0].HttpOnly)

	w = cl.do(http.MethodPost, "/api/tasks", map[string]string{"title": "Write report"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[taskEnvelope[taskJSON]](t, w).Data
	assert.Equal(t, "Write report", created.Title)
	assert.False(t, created.Done)

	w = cl.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[taskEnvelope[[]taskJSON]](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, created.ID, list.Data[0].ID)
	assert.False(t, list.Data[0].CreatedAt.After(list.Data[0].UpdatedAt))
	assert.Nil(t, list.Error)

	w = cl.do(http.MethodPut, "/api/tasks/"+created.ID, map[string]bool{"done": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[taskEnvelope[taskJSON]](t, w).Data
	assert.True(t, updated.Done)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	w = cl.do(http.MethodDelete, "/api/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = cl.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[taskEnvelope[[]taskJSON]](t, w).Data)

	w = cl.do(http.MethodGet, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, cl.cookies)
	assert.Empty(t, cl.cookies[0].Value)
	assert.Negative(t, cl.cookies[0].MaxAge)
}

func TestEndToEnd_Pagination(t *testing.T) {
	cl := &client{t: t, r: setupServer(t)}

	w := cl.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "p@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusCreated, w.Code)

	for i := 1; i <= 25; i++ {
		w = cl.do(http.MethodPost, "/api/tasks", map[string]string{"title": fmt.Sprintf("task %02d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = cl.do(http.MethodGet, "/api/tasks?page=3&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[taskEnvelope[[]taskJSON]](t, w)
	require.Len(t, page.Data, 5)
	require.NotNil(t, page.Pagination)
	assert.Equal(t, int64(25), page.Pagination.TotalItems)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, 3, page.Pagination.CurrentPage)
	assert.Equal(t, "task 21", page.Data[0].Title)
	assert.Equal(t, "task 25", page.Data[4].Title)
}

func TestEndToEnd_OwnershipIsolation(t *testing.T) {
	r := setupServer(t)
	alice := &client{t: t, r: r}
	bob := &client{t: t, r: r}

	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "alice@x.com", "password": "pw123456"}).Code)
	require.Equal(t, http.StatusCreated, bob.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "bob@x.com", "password": "pw123456"}).Code)

	w := alice.do(http.MethodPost, "/api/tasks", map[string]string{"title": "private"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[taskEnvelope[taskJSON]](t, w).Data.ID

	w = bob.do(http.MethodPut, "/api/tasks/"+id, map[string]bool{"done": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "private")

	w = bob.do(http.MethodDelete, "/api/tasks/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = bob.do(http.MethodGet, "/api/tasks", nil)
	assert.Empty(t, decode[taskEnvelope[[]taskJSON]](t, w).Data)

	// 不正なIDはストレージに届く前に400
	w = bob.do(http.MethodDelete, "/api/tasks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Unauthenticated(t *testing.T) {
	r := setupServer(t)
	anon := &client{t: t, r: r}

	t.Run("task envelope", func(t *testing.T) {
		w := anon.do(http.MethodGet, "/api/tasks", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode[taskEnvelope[any]](t, w)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
	})

	t.Run("auth envelope", func(t *testing.T) {
		w := anon.do(http.MethodGet, "/api/auth/profile", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode[map[string]any](t, w)
		assert.Equal(t, "fail", env["status"])
	})

	t.Run("forged token", func(t *testing.T) {
		anon.cookies = []*http.Cookie{{Name: jwtmw.CookieName, Value: "not.a.jwt"}}
		w := anon.do(http.MethodGet, "/api/tasks", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRouter_NoRoute(t *testing.T) {
	r := setupServer(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode[map[string]any](t, w)
	assert.Equal(t, "fail", env["status"])
	assert.Equal(t, "Can't find /api/nope on this server!", env["message"])
}

func TestRouter_BodyLimit(t *testing.T) {
	cl := &client{t: t, r: setupServer(t)}
	require.Equal(t, http.StatusCreated, cl.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "big@x.com", "password": "pw123456"}).Code)

	w := cl.do(http.MethodPost, "/api/tasks", map[string]string{"title": string(bytes.Repeat([]byte("a"), maxJSONBody+1))})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CORS(t *testing.T) {
	r := setupServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecoverPanic(t *testing.T) {
	tests := []struct {
		name       string
		panicWith  any
		wantStatus int
	}{
		{name: "token error", panicWith: jwtmw.ErrInvalidSubject, wantStatus: http.StatusUnauthorized},
		{name: "other", panicWith: "boom", wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(gin.CustomRecovery(recoverPanic))
			r.GET("/panic", func(*gin.Context) { panic(tt.panicWith) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

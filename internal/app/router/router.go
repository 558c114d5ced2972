package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"focusflow/internal/api"
	authhandler "focusflow/internal/feature/auth/transport/handler"
	taskhandler "focusflow/internal/feature/tasks/transport/handler"
	"focusflow/internal/platform/http/handler"
	jwtmw "focusflow/internal/platform/jwt"
)

// maxJSONBody はJSONリクエストボディの上限です。アバターのmultipartは対象外です。
const maxJSONBody = 10 << 10

// Params はルーター生成に必要な依存です。
type Params struct {
	Auth     *authhandler.AuthHandler
	Tasks    *taskhandler.TaskHandler
	Verifier jwtmw.SessionVerifier

	// ClientURL はCORSで許可するフロントエンドのオリジンです。
	ClientURL string
	// UploadDir が空でなければ /uploads で静的配信します（ローカル保存時のみ）。
	UploadDir string
	Checks    []handler.Check
}

func NewRouter(p Params) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.CustomRecovery(recoverPanic))

	// Cookieでセッションを送るためクレデンシャルを許可
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{p.ClientURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(limitJSONBody(maxJSONBody))

	// 導通確認用
	health := handler.Health(p.Checks...)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	if p.UploadDir != "" {
		r.Static("/uploads", p.UploadDir)
	}

	// 認証不要
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", p.Auth.Register)
		auth.POST("/login", p.Auth.Login)
		auth.GET("/logout", p.Auth.Logout)
	}

	// 認証必須（authエンベロープで401を返す）
	profile := auth.Group("")
	profile.Use(jwtmw.AuthRequired(p.Verifier, denyAuth))
	{
		profile.GET("/profile", p.Auth.Profile)
		profile.PUT("/profile", p.Auth.UpdateProfile)
		profile.POST("/upload-avatar", p.Auth.UploadAvatar)
	}

	// 認証必須（taskエンベロープで401を返す）
	tasks := r.Group("/api/tasks")
	tasks.Use(jwtmw.AuthRequired(p.Verifier, denyTask))
	{
		tasks.GET("", p.Tasks.List)
		tasks.GET("/search", p.Tasks.Search)
		tasks.POST("", p.Tasks.Create)
		tasks.PUT("/:id", p.Tasks.Update)
		tasks.DELETE("/:id", p.Tasks.Delete)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.Fail(fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path)))
	})

	return r
}

func denyAuth(c *gin.Context, status int, message string) {
	c.JSON(status, api.Fail(message))
}

func denyTask(c *gin.Context, status int, message string) {
	c.JSON(status, api.TaskErr(message))
}

// recoverPanic はpanicを500に変換します。トークン検証由来のpanicは401にします。
func recoverPanic(c *gin.Context, recovered any) {
	if err, ok := recovered.(error); ok && jwtmw.IsTokenError(err) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, api.Fail("Invalid token. Please log in again!"))
		return
	}
	slog.Error("panic recovered", "panic", recovered, "path", c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusInternalServerError, api.Error("Something went wrong"))
}

// limitJSONBody はmultipart以外のリクエストボディをlimitバイトに制限します。
func limitJSONBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

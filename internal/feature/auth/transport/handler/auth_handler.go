// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"focusflow/internal/api"
	"focusflow/internal/feature/auth/domain/entity"
	"focusflow/internal/feature/auth/transport/http/dto"
	"focusflow/internal/feature/auth/usecase"
	jwtmw "focusflow/internal/platform/jwt"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*entity.User, string, error)
	GetProfile(ctx context.Context, userID uint) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID uint, patch usecase.ProfilePatch) (*entity.User, error)
	SetAvatar(ctx context.Context, userID uint, data []byte) (*entity.User, error)
}

// AuthHandler は認証操作のHTTPリクエストを処理します。
// 応答は {status, data|message} 形式のエンベロープで返します。
type AuthHandler struct {
	auth          AuthUsecase
	sessionMaxAge time.Duration
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
// sessionMaxAge はセッションCookieの有効期間で、トークンの有効期限と揃えます。
func NewAuthHandler(auth AuthUsecase, sessionMaxAge time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, sessionMaxAge: sessionMaxAge}
}

// Register はユーザー登録APIエンドポイントを処理します。
// 成功時は201とセッションCookieを返却します。
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.Fail("Email and password are required"))
		return
	}
	dob, _, err := dto.ParseOptionalDate(req.DateOfBirth)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail(err.Error()))
		return
	}

	user, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		Country:     req.Country,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrDuplicateUser):
			slog.Warn("register failed: duplicate", "email", req.Email, "remote_addr", c.ClientIP())
			c.JSON(http.StatusBadRequest, api.Fail("User already exists"))
		case errors.Is(err, usecase.ErrValidation):
			c.JSON(http.StatusBadRequest, api.Fail(validationMessage(err)))
		default:
			slog.Error("register failed", "error", err, "remote_addr", c.ClientIP())
			c.JSON(http.StatusInternalServerError, api.Error("Registration failed"))
		}
		return
	}

	// 登録直後にログインしてセッションを発行する
	_, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		slog.Error("login after register failed", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, api.Error("Registration failed"))
		return
	}
	slog.Info("user registered", "user_id", user.ID, "remote_addr", c.ClientIP())
	h.sendSession(c, http.StatusCreated, user, token)
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - 必須項目の欠落時は400を返却
// - 認証失敗時は401を返却（ユーザー不在とパスワード不一致を区別しない）
// - 認証成功時はセッションCookie付きで200を返却
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.Fail("Email and password are required"))
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			slog.Warn("login failed", "email", req.Email, "remote_addr", c.ClientIP())
			c.JSON(http.StatusUnauthorized, api.Fail("Invalid credentials"))
		case errors.Is(err, usecase.ErrValidation):
			c.JSON(http.StatusBadRequest, api.Fail("Email and password are required"))
		default:
			slog.Error("login failed", "error", err, "remote_addr", c.ClientIP())
			c.JSON(http.StatusInternalServerError, api.Error("Login failed"))
		}
		return
	}
	slog.Info("user login successful", "user_id", user.ID, "remote_addr", c.ClientIP())
	h.sendSession(c, http.StatusOK, user, token)
}

// Logout は期限切れの空Cookieで上書きします。サーバー側の失効リストは持ちません。
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(jwtmw.CookieName, "", -1, "/", "", isSecure(c), true)
	c.JSON(http.StatusOK, api.StatusResponse{Status: api.StatusSuccess})
}

// Profile は認証済みユーザーのプロフィールを返します。
func (h *AuthHandler) Profile(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.Fail("Not authenticated"))
		return
	}
	user, err := h.auth.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.writeUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Success(api.UserData[dto.UserRes]{User: dto.NewUserRes(user)}))
}

// UpdateProfile は指定されたフィールドのみを更新します。
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.Fail("Not authenticated"))
		return
	}
	var req dto.UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid request"))
		return
	}
	dob, present, err := dto.ParseOptionalDate(req.DateOfBirth)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail(err.Error()))
		return
	}

	patch := usecase.ProfilePatch{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Country:          req.Country,
		DateOfBirth:      dob,
		ClearDateOfBirth: present && dob == nil,
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, patch)
	if err != nil {
		h.writeUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Success(api.UserData[dto.UserRes]{User: dto.NewUserRes(user)}))
}

// UploadAvatar はmultipartの"avatar"フィールドを受け取り、アバターを更新します。
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.Fail("Not authenticated"))
		return
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("No file uploaded"))
		return
	}
	if file.Size > usecase.MaxAvatarSize {
		c.JSON(http.StatusBadRequest, api.Fail("File is too large"))
		return
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("failed to open uploaded avatar", "error", err)
		c.JSON(http.StatusInternalServerError, api.Error("Failed to read upload"))
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close uploaded avatar", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(f, usecase.MaxAvatarSize+1))
	if err != nil {
		slog.Error("failed to read uploaded avatar", "error", err)
		c.JSON(http.StatusInternalServerError, api.Error("Failed to read upload"))
		return
	}

	user, err := h.auth.SetAvatar(c.Request.Context(), userID, data)
	if err != nil {
		h.writeUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Success(api.UserData[dto.UserRes]{User: dto.NewUserRes(user)}))
}

// sendSession はセッションCookieを設定し、ユーザーを返します。
func (h *AuthHandler) sendSession(c *gin.Context, status int, user *entity.User, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(jwtmw.CookieName, token, int(h.sessionMaxAge.Seconds()), "/", "", isSecure(c), true)
	c.JSON(status, api.Success(api.UserData[dto.UserRes]{User: dto.NewUserRes(user)}))
}

// writeUserError はユースケースのエラーをHTTPステータスに変換します。
func (h *AuthHandler) writeUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrUserNotFound):
		c.JSON(http.StatusNotFound, api.Fail("User not found"))
	case errors.Is(err, usecase.ErrValidation):
		c.JSON(http.StatusBadRequest, api.Fail(validationMessage(err)))
	default:
		slog.Error("auth request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, api.Error("Something went wrong"))
	}
}

// isSecure はリクエストがTLS経由で届いたかを判定します。
func isSecure(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

// validationMessage は "validation failed: " 接頭辞を除いたメッセージを返します。
func validationMessage(err error) string {
	msg := err.Error()
	prefix := usecase.ErrValidation.Error() + ": "
	return strings.TrimPrefix(msg, prefix)
}

package jwtmw

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextUserID is the gin context key holding the authenticated user ID.
	ContextUserID = "userID"

	// CookieName is the name of the session cookie.
	CookieName = "jwt"
)

// SessionVerifier resolves a raw token to a user ID that still exists.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (uint, error)
}

// DenyFunc writes the unauthenticated response in the envelope of the protected route family.
type DenyFunc func(c *gin.Context, status int, message string)

// AuthRequired returns a Gin middleware function that validates the session
// and restricts access to authenticated users only.
// The token is read from the session cookie first and from a Bearer header otherwise.
func AuthRequired(verifier SessionVerifier, deny DenyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Extract token
		tokenStr := ExtractToken(c.Request)
		if tokenStr == "" {
			deny(c, http.StatusUnauthorized, "Please login to access this route")
			c.Abort()
			return
		}

		// 2. Verify signature, expiry and that the user still exists
		userID, err := verifier.VerifySession(c.Request.Context(), tokenStr)
		if err != nil {
			slog.Warn("session rejected", "error", err, "remote_addr", c.ClientIP())
			deny(c, http.StatusUnauthorized, "Invalid or expired session. Please log in again")
			c.Abort()
			return
		}

		// 3. Attach identity for this request only
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// ExtractToken returns the session token from the cookie or the Authorization header.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// UserID returns the authenticated user ID set by AuthRequired.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

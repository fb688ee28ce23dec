package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/shared/auth"
	"resume-review/internal/shared/server/respond"
)

const (
	userIDKey      = "userId"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	userPictureKey = "userPicture"
	isGuestKey     = "isGuest"

	googleAuthPrefix = "/api/v1/auth/google/"
)

// Auth resolves the caller from a Bearer JWT or the X-Guest-Id header and
// stores it on both the gin context and the request context. Requests without
// any identity pass through; RequireIdentity rejects them where needed. In dev
// environments X-User-Id is accepted as a signed-in principal.
func Auth(env string) gin.HandlerFunc {
	devLike := isDevEnv(env)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, googleAuthPrefix) {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
				return
			}
			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
				return
			}

			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			if claims.Picture != "" {
				c.Set(userPictureKey, claims.Picture)
			}
			setIdentity(c, auth.Identity{UserID: claims.Subject})
			c.Next()
			return
		}

		if devLike {
			if userID := strings.TrimSpace(c.GetHeader("X-User-Id")); userID != "" {
				setIdentity(c, auth.Identity{UserID: userID})
				c.Next()
				return
			}
		}

		if guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id")); guestID != "" {
			setIdentity(c, auth.Identity{UserID: "guest:" + guestID, Guest: true})
		}
		c.Next()
	}
}

// RequireIdentity rejects requests that carry neither a token nor a guest id.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Missing identity", nil)
			return
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, id auth.Identity) {
	c.Set(userIDKey, id.UserID)
	c.Set(isGuestKey, id.Guest)
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringValue(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringValue(c, userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringValue(c, userNameKey)
}

// UserPictureFromContext fetches the user picture set by the auth middleware.
func UserPictureFromContext(c *gin.Context) string {
	return stringValue(c, userPictureKey)
}

func stringValue(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

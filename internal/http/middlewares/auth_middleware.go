package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/accounthub/internal/actorctx"
	"github.com/geocoder89/accounthub/internal/apperr"
	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt        TokenVerifier
	users      UserFinder
	cookieName string
	log        *slog.Logger
}

func NewAuthMiddleware(jwt TokenVerifier, users UserFinder, cookieName string, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &AuthMiddleware{jwt: jwt, users: users, cookieName: cookieName, log: log}
}

// ExtractToken reads a bearer header first and falls back to the named cookie.
func ExtractToken(c *gin.Context, cookieName string) string {
	authHeader := c.GetHeader("Authorization")

	if strings.HasPrefix(authHeader, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); raw != "" {
			return raw
		}
	}

	raw, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}

	return raw
}

func abortAuth(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

// RequireAuth verifies the access token, reloads the user and attaches the
// identity projection. Bad tokens are 401, a vanished user is 404, anything
// else is a generic 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractToken(c, m.cookieName)

		if raw == "" {
			m.log.WarnContext(c.Request.Context(), "unauthorized access attempt", "client_ip", c.ClientIP())
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "Authentication token is missing")
			return
		}

		claims, err := m.jwt.VerifyAccess(raw)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidOrExpiredToken) {
				abortAuth(c, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
				return
			}

			m.log.ErrorContext(c.Request.Context(), "token verification failed", "err", err)
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "Authentication failed")
			return
		}

		cctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		u, err := m.users.FindByID(cctx, claims.UserID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				m.log.WarnContext(c.Request.Context(), "token belongs to non-existent user", "user_id", claims.UserID)
				abortAuth(c, http.StatusNotFound, "not_found", "User not found")
				return
			}

			m.log.ErrorContext(c.Request.Context(), "auth user lookup failed", "user_id", claims.UserID, "err", err)
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "Authentication failed")
			return
		}

		identity := u.Identity()

		// Stash the identity for handlers and for anything reading the request context
		c.Set(CtxIdentity, identity)
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), identity))

		m.log.DebugContext(c.Request.Context(), "user authenticated", "user_id", identity.ID)

		c.Next()
	}
}

// IdentityFromContext saves handlers from knowing the context key.
func IdentityFromContext(c *gin.Context) (user.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return user.Identity{}, false
	}
	id, ok := v.(user.Identity)
	return id, ok && id.ID != ""
}

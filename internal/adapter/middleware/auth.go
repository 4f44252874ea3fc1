package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"loandesk/internal/domain/user"
)

const actorKey = "actor"

// TokenParser validates an access token and returns the actor it names.
type TokenParser interface {
	Parse(raw string) (user.Actor, error)
}

// RoleResolver reloads the current role of a user. Roles live on the
// profile row, so a promotion takes effect without a new token.
type RoleResolver interface {
	Actor(ctx context.Context, userID string) (user.Actor, error)
}

// JWTAuth accepts "Authorization: Bearer <token>". EventSource clients cannot
// set headers, so GET requests may pass the token as ?access_token= instead.
func JWTAuth(tokens TokenParser, roles RoleResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c.Request())
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			actor, err := tokens.Parse(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			if roles != nil {
				current, err := roles.Actor(c.Request().Context(), actor.UserID)
				if err != nil {
					log.Printf("auth: resolve role for %s: %v", actor.UserID, err)
					return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "cannot resolve caller"})
				}
				actor = current
			}
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := ActorFrom(c)
			if !ok || !a.IsAdmin() {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// ActorFrom returns the caller stored by JWTAuth.
func ActorFrom(c echo.Context) (user.Actor, bool) {
	a, ok := c.Get(actorKey).(user.Actor)
	return a, ok
}

func SetActor(c echo.Context, a user.Actor) { c.Set(actorKey, a) }

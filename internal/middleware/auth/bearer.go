package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const (
	ContextUsername = "username"
	ContextRole     = "role"
)

type detail struct {
	Detail string `json:"detail"`
}

// RequireBearer rejects requests without a valid "Authorization: Bearer"
// access token and stores the subject and role on the echo context.
func RequireBearer(secret []byte, now func() time.Time) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context()).With("middleware", "require_bearer")

			raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, detail{"Authentication credentials were not provided."})
			}

			claims, err := ParseAccessToken(strings.TrimSpace(raw), secret, now)
			if err != nil {
				l.Warn("auth_failed", "status", 401, "error", err)
				return c.JSON(http.StatusUnauthorized, detail{"Given token not valid for any token type"})
			}

			c.Set(ContextUsername, claims.Subject)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}

// Username returns the subject set by RequireBearer.
func Username(c echo.Context) string {
	u, _ := c.Get(ContextUsername).(string)
	return u
}

func IsAdmin(c echo.Context) bool {
	r, _ := c.Get(ContextRole).(string)
	return r == RoleAdmin
}

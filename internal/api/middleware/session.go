package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

const (
	// SessionCookie is the cookie carrying the signed session token.
	SessionCookie = "session"
	// SessionKey is the echo context key holding the resolved domain.Session.
	SessionKey = "session"
	// LoginPath is where unauthenticated requests are sent.
	LoginPath = "/login"
)

// RequireSession resolves the caller's session and injects it into the echo
// context. Requests without a usable session are redirected to LoginPath;
// session store failures are returned to the error handler.
func RequireSession(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return c.Redirect(http.StatusFound, LoginPath)
			}

			s, err := sessions.Resolve(c.Request().Context(), token)
			if errors.Is(err, domain.ErrNoSession) || (err == nil && s == nil) {
				return c.Redirect(http.StatusFound, LoginPath)
			}
			if err != nil {
				return err
			}

			c.Set(SessionKey, s)
			return next(c)
		}
	}
}

// TokenFromRequest returns the session token from the session cookie or,
// failing that, a bearer Authorization header. It returns "" when neither
// is present or the header is malformed.
func TokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SessionFrom returns the session injected by RequireSession, or nil.
func SessionFrom(c echo.Context) *domain.Session {
	s, _ := c.Get(SessionKey).(*domain.Session)
	return s
}

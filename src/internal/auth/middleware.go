package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const sessionContextKey = "session"

// Middleware returns an echo middleware that authenticates every request
// through the provider and stores the session in the request context.
func Middleware(provider Provider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := provider.Authenticate(c.Request())
			if err != nil {
				// Same {error} body shape as every other failure path
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}
			c.Set(sessionContextKey, session)
			return next(c)
		}
	}
}

// SessionFrom extracts the authenticated session from the echo context
func SessionFrom(c echo.Context) *Session {
	session, _ := c.Get(sessionContextKey).(*Session)
	return session
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/teamboard/teamboard/src/internal/auth"
	"github.com/teamboard/teamboard/src/internal/ratelimit"
)

// RateLimit gates one operation through the admission limiter. With
// perIP set, the window key includes the client address, isolating a
// shared account's quota per network origin.
func RateLimit(limiter *ratelimit.Limiter, op ratelimit.Operation, perIP bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := auth.SessionFrom(c)
			if session == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}

			ip := ""
			if perIP {
				ip = c.RealIP()
			}

			decision := limiter.Check(session.UserID, session.Role, op, ip)
			if !decision.Unlimited() {
				header := c.Response().Header()
				header.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				header.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				c.Response().Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}

			return next(c)
		}
	}
}

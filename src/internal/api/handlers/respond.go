package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/teamboard/teamboard/src/internal/errors"
)

// respondError maps the error taxonomy onto a JSON body. Causes stay out
// of responses; only the classified message is exposed.
func respondError(c echo.Context, err error) error {
	status := apperrors.StatusOf(err)
	message := "internal server error"

	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case apperrors.KindStorage, apperrors.KindServer:
			// keep the generic message
		default:
			message = appErr.Message
		}
	}

	return c.JSON(status, map[string]string{"error": message})
}

// Health reports liveness
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

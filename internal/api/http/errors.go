package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ptyterm "github.com/GriffinCanCode/termprov/internal/providers/terminal"
	"github.com/GriffinCanCode/termprov/internal/shared/shell"
	"github.com/GriffinCanCode/termprov/internal/terminal"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, terminal.ErrInvalidRequest), errors.Is(err, shell.ErrNulByte):
		return http.StatusBadRequest
	case errors.Is(err, ptyterm.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ptyterm.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, terminal.ErrNoSink):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

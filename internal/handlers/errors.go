package handlers

import (
	"errors"
	"net/http"

	"mqtt_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const errInvalidBodyPref = "invalid body: "

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// writeServiceError maps service errors onto HTTP status codes.
// Anything unrecognized is an input problem reported by validation.
func (h *Handler) writeServiceError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	var (
		ce *service.ConnectError
		te *service.TransportError
	)
	code := http.StatusBadRequest
	switch {
	case errors.As(err, &ce):
		if !ce.Invalid {
			code = http.StatusBadGateway
		}
	case errors.Is(err, service.ErrNotConnected), errors.Is(err, service.ErrSimulationRunning):
		code = http.StatusConflict
	case errors.As(err, &te):
		code = http.StatusBadGateway
	}
	h.logAndJSONError(c, code, err.Error(), logKey, err, kv...)
}

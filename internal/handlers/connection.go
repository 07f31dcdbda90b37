package handlers

import (
	"net/http"

	"mqtt_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK           = "ok"
	statusConnected    = "connected"
	statusDisconnected = "disconnected"

	defaultBrokerPort = 1883
)

// ConnectRequest is the broker connection payload.
type ConnectRequest struct {
	Host string `json:"host" example:"localhost"`
	// Defaults to 1883 when omitted.
	Port        *int   `json:"port,omitempty" example:"1883"`
	TopicFilter string `json:"topic_filter" example:"sensors/#"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Connect to broker
// @Description  Replaces any current connection. Succeeds only once the subscription is acknowledged.
// @Tags         connection
// @Accept       json
// @Produce      json
// @Param        body  body      ConnectRequest  true  "Broker settings"
// @Success      200   {object}  map[string]interface{}  "status, connection"
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/connection [post]
// @Security     BearerAuth
func (h *Handler) connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	port := defaultBrokerPort
	if req.Port != nil {
		port = *req.Port
	}

	conn, err := h.services.Connect(c.Request.Context(), service.ConnectParams{
		Host:        req.Host,
		Port:        port,
		TopicFilter: req.TopicFilter,
		Username:    req.Username,
		Password:    req.Password,
	})
	if err != nil {
		h.writeServiceError(c, "connect_failed", err, "host", req.Host, "port", port)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusConnected, "connection": conn})
}

// @Summary      Disconnect from broker
// @Description  Always succeeds, also when not connected.
// @Tags         connection
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/connection [delete]
// @Security     BearerAuth
func (h *Handler) disconnect(c *gin.Context) {
	h.services.Disconnect()
	c.JSON(http.StatusOK, gin.H{"status": statusDisconnected, "connection": h.services.Status()})
}

// @Summary      Connection status
// @Tags         connection
// @Produce      json
// @Success      200  {object}  models.Connection
// @Router       /api/v1/connection [get]
// @Security     BearerAuth
func (h *Handler) connectionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Status())
}

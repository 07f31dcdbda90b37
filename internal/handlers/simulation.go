package handlers

import (
	"net/http"
	"strings"
	"time"

	"mqtt_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultSimInterval = 5 * time.Second

// SimulationRequest starts a timed stream built from the same fields as MessageBody.
type SimulationRequest struct {
	MessageBody
	// Go duration ("500ms", "5s"); wins over interval_seconds.
	Interval        string  `json:"interval,omitempty" example:"5s"`
	IntervalSeconds float64 `json:"interval_seconds,omitempty" example:"5"`
	// 0 sends until cancelled.
	Count            uint     `json:"count" example:"10"`
	VariationPercent *float64 `json:"variation_percent,omitempty" example:"10"`
}

func (r SimulationRequest) interval() (time.Duration, error) {
	if r.Interval != "" {
		return time.ParseDuration(r.Interval)
	}
	if r.IntervalSeconds != 0 {
		return time.Duration(r.IntervalSeconds * float64(time.Second)), nil
	}
	return defaultSimInterval, nil
}

// @Summary      Start simulation
// @Description  Requires a live connection. One stream at a time.
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        body  body      SimulationRequest  true  "Template and timing"
// @Success      202   {object}  map[string]interface{}  "status, simulation"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string  "not connected or already running"
// @Router       /api/v1/simulation [post]
// @Security     BearerAuth
func (h *Handler) startSimulation(c *gin.Context) {
	var req SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	interval, err := req.interval()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	tmpl, err := req.reading()
	if err != nil {
		h.writeServiceError(c, "simulation_build_failed", err)
		return
	}

	p := service.SimulationParams{
		Template: tmpl,
		Topic:    strings.TrimSpace(req.Topic),
		Interval: interval,
		Count:    req.Count,
	}
	if req.VariationPercent != nil {
		p.Variation = &service.Variation{Percent: *req.VariationPercent}
	}
	if err := h.services.Start(p); err != nil {
		h.writeServiceError(c, "simulation_start_failed", err, "topic", p.Topic)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "simulation": h.services.Progress()})
}

// @Summary      Cancel simulation
// @Tags         simulation
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "cancelled, simulation"
// @Router       /api/v1/simulation [delete]
// @Security     BearerAuth
func (h *Handler) cancelSimulation(c *gin.Context) {
	cancelled := h.services.Cancel()
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled, "simulation": h.services.Progress()})
}

// @Summary      Simulation progress
// @Tags         simulation
// @Produce      json
// @Success      200  {object}  models.SimulationProgress
// @Router       /api/v1/simulation [get]
// @Security     BearerAuth
func (h *Handler) simulationProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Progress())
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultReadingsLimit = 100
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// parseLimit reads ?limit=; 0 means everything, missing or invalid falls back to def.
func parseLimit(c *gin.Context, def int) int {
	s := c.Query("limit")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// @Summary      List readings
// @Description  Most recent first by received_at. limit=0 returns the whole store.
// @Tags         readings
// @Produce      json
// @Param        limit  query     int  false  "Max rows"  default(100)
// @Success      200    {object}  map[string]interface{}  "count, total, readings"
// @Router       /api/v1/readings [get]
// @Security     BearerAuth
func (h *Handler) listReadings(c *gin.Context) {
	readings := h.services.Readings(parseLimit(c, defaultReadingsLimit))
	c.JSON(http.StatusOK, gin.H{
		"count":    len(readings),
		"readings": readings,
	})
}

// @Summary      Clear readings
// @Tags         readings
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "cleared"
// @Router       /api/v1/readings [delete]
// @Security     BearerAuth
func (h *Handler) clearReadings(c *gin.Context) {
	n := h.services.Clear(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

// @Summary      Latest reading per sensor
// @Tags         readings
// @Produce      json
// @Param        device  query     string  false  "Only readings from this device"
// @Success      200     {object}  map[string]interface{}  "device, latest"
// @Router       /api/v1/readings/latest [get]
// @Security     BearerAuth
func (h *Handler) latestReadings(c *gin.Context) {
	device := strings.TrimSpace(c.Query("device"))
	c.JSON(http.StatusOK, gin.H{
		"device": device,
		"latest": h.services.Latest(device),
	})
}

// @Summary      Known devices
// @Description  Distinct device ids in first-seen order.
// @Tags         readings
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "devices"
// @Router       /api/v1/readings/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": h.services.Devices()})
}

// @Summary      Export readings
// @Tags         readings
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}    file
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/readings/export [get]
// @Security     BearerAuth
func (h *Handler) exportReadings(c *gin.Context) {
	data, err := h.services.Export()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to export readings", "readings_export_failed", err)
		return
	}
	name := fmt.Sprintf("readings_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

package handlers

import (
	"net/http"
	"strings"

	"mqtt_dashboard/internal/models"
	"mqtt_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageBody describes a reading either verbatim (reading) or through the
// form fields, which are ignored when reading is set.
type MessageBody struct {
	Topic   string         `json:"topic" example:"sensors/device001"`
	Reading map[string]any `json:"reading,omitempty"`

	Device      string `json:"device,omitempty" example:"device001"`
	Sensor      string `json:"sensor,omitempty" example:"temperature"`
	SensorValue any    `json:"sensor_value,omitempty"`
	// Defaults to true.
	IncludeTimestamp *bool               `json:"include_timestamp,omitempty"`
	BatteryLevel     *int                `json:"battery_level,omitempty" example:"75"`
	CustomFields     string              `json:"custom_fields,omitempty" example:"{\"unit\": \"celsius\"}"`
	RandomValue      bool                `json:"random_value,omitempty"`
	RandomRange      *service.ValueRange `json:"random_range,omitempty"`
}

func (b MessageBody) reading() (models.Reading, error) {
	if b.Reading != nil {
		return models.Reading(b.Reading), nil
	}
	ts := true
	if b.IncludeTimestamp != nil {
		ts = *b.IncludeTimestamp
	}
	return service.NewReading(service.MessageDraft{
		Device:           b.Device,
		Sensor:           b.Sensor,
		SensorValue:      b.SensorValue,
		IncludeTimestamp: ts,
		BatteryLevel:     b.BatteryLevel,
		CustomFields:     b.CustomFields,
		RandomValue:      b.RandomValue,
		Range:            b.RandomRange,
	})
}

// @Summary      Publish one reading
// @Description  Sends on an independent connection, then shows the reading in the store.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        body  body      MessageBody  true  "Reading"
// @Success      200   {object}  map[string]interface{}  "status, reading"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string  "not connected"
// @Failure      502   {object}  map[string]string  "broker send failed"
// @Router       /api/v1/messages [post]
// @Security     BearerAuth
func (h *Handler) publishMessage(c *gin.Context) {
	var req MessageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	msg, err := req.reading()
	if err != nil {
		h.writeServiceError(c, "message_build_failed", err)
		return
	}

	ctx := c.Request.Context()
	topic := strings.TrimSpace(req.Topic)
	stored, err := h.services.Send(ctx, topic, msg)
	if err != nil {
		h.writeServiceError(c, "message_publish_failed", err, "topic", topic)
		return
	}
	h.services.Record(ctx, models.EventPublish, "Published to "+topic, map[string]any{"topic": topic})
	c.JSON(http.StatusOK, gin.H{"status": "published", "reading": stored})
}

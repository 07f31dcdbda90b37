package service

import (
	"fmt"
	"strings"
	"time"

	"mqtt_dashboard/internal/models"
)

// ConnectParams are the operator-supplied broker settings.
type ConnectParams struct {
	Host        string
	Port        int
	TopicFilter string
	Username    string // optional
	Password    string // optional
}

func (p ConnectParams) validate() error {
	switch {
	case strings.TrimSpace(p.Host) == "":
		return fmt.Errorf("host must not be empty")
	case p.Port < 1 || p.Port > 65535:
		return fmt.Errorf("port %d out of range [1, 65535]", p.Port)
	case strings.TrimSpace(p.TopicFilter) == "":
		return fmt.Errorf("topic filter must not be empty")
	}
	return nil
}

func (p ConnectParams) endpoint() models.Endpoint {
	return models.Endpoint{
		Host:     strings.TrimSpace(p.Host),
		Port:     p.Port,
		Username: p.Username,
		Password: p.Password,
	}
}

// Variation perturbs numeric sensor values by up to ±Percent of the template value.
type Variation struct {
	Percent float64
}

// SimulationParams configure one simulated stream.
type SimulationParams struct {
	Template  models.Reading
	Topic     string
	Interval  time.Duration
	Count     uint       // 0 = until cancelled
	Variation *Variation // nil = send the template value unchanged
}

// LogFilter supports activity history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "CONNECT", "DISCONNECT", "PUBLISH", ...
}

// validTopic rejects what MQTT does not allow as a publish topic.
func validTopic(topic string) bool {
	return strings.TrimSpace(topic) != "" && !strings.ContainsAny(topic, "+#")
}

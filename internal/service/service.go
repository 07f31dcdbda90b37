package service

import (
	"context"
	"time"

	"mqtt_dashboard/internal/broker"
	"mqtt_dashboard/internal/logger"
	"mqtt_dashboard/internal/models"
	"mqtt_dashboard/internal/repository"
)

// Transport is the broker client: one long-lived subscription plus one-shot sends.
type Transport interface {
	Subscribe(ctx context.Context, ep models.Endpoint, filter string, h broker.Handlers) (broker.Session, error)
	Send(ctx context.Context, ep models.Endpoint, topic string, payload []byte) error
}

type Authorization interface {
	Enabled() bool
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (string, error)
}

// Connection manages the single subscription to the broker.
type Connection interface {
	Connect(ctx context.Context, p ConnectParams) (models.Connection, error)
	Disconnect()
	IsConnected() bool
	LastError() (string, bool)
	Status() models.Connection
}

// Publisher sends one reading without touching the store.
type Publisher interface {
	Publish(ctx context.Context, topic string, r models.Reading) error
}

// Messages publishes a reading and echoes it into the store.
type Messages interface {
	Send(ctx context.Context, topic string, r models.Reading) (models.Reading, error)
}

// Simulation drives at most one timed stream of synthetic readings.
type Simulation interface {
	Start(p SimulationParams) error
	Cancel() bool
	Wait()
	Progress() models.SimulationProgress
}

// Monitoring exposes the refresh cycle and read-only views of the store.
type Monitoring interface {
	Refresh() int
	Snapshot(device string, limit int) DashboardSnapshot
	Readings(limit int) []models.Reading
	Latest(device string) map[string]models.Reading
	Devices() []string
	Export() ([]byte, error)
	Clear(ctx context.Context) int
	// Run refreshes on a ticker; stop it via ctx cancellation.
	Run(ctx context.Context, tick time.Duration)
}

// ActivityLog is the append-only operator history.
type ActivityLog interface {
	Record(ctx context.Context, typ, desc string, meta any)
	List(ctx context.Context, f LogFilter) ([]models.ActivityEvent, error)
}

// Config carries the tunables NewService needs.
type Config struct {
	RetentionCapacity int
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	ActivityKeep      int
	Auth              AuthConfig
}

// Service aggregates all sub-services.
type Service struct {
	Connection
	Messages
	Simulation
	Monitoring
	ActivityLog
	Authorization
}

// NewService wires the inbound path (transport -> buffer -> store) and the
// outbound path (publisher -> messages -> simulator) around one store.
func NewService(repos *repository.Repository, transport Transport, cfg Config, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.Nop()
	}
	auth, err := NewAuthService(cfg.Auth)
	if err != nil {
		return nil, err
	}

	activity := NewActivityService(repos.Activity, cfg.ActivityKeep, log.Named("activity"))
	buffer := NewIngestionBuffer(log.Named("ingest"))
	store := NewRetentionStore(cfg.RetentionCapacity)
	conn := NewConnectionService(transport, buffer, activity, cfg.ConnectTimeout, log.Named("connection"))
	messages := NewMessageService(NewPublisherService(conn, transport, cfg.PublishTimeout), store)
	sim := NewSimulatorService(messages, conn, activity, log.Named("simulation"))

	return &Service{
		Connection:    conn,
		Messages:      messages,
		Simulation:    sim,
		Monitoring:    NewMonitoringService(conn, buffer, store, sim, activity),
		ActivityLog:   activity,
		Authorization: auth,
	}, nil
}

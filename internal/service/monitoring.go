package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mqtt_dashboard/internal/models"
)

// DashboardSnapshot is everything the presentation layer renders in one pass.
type DashboardSnapshot struct {
	Connection    models.Connection         `json:"connection"`
	Total         int                       `json:"total"`
	Capacity      int                       `json:"capacity"`
	Readings      []models.Reading          `json:"readings"`
	Devices       []string                  `json:"devices"`
	Device        string                    `json:"device,omitempty"`
	Latest        map[string]models.Reading `json:"latest"`
	Simulation    models.SimulationProgress `json:"simulation"`
	Ingestion     IngestionStats            `json:"ingestion"`
	LastRefreshed time.Time                 `json:"last_refreshed"`
}

// MonitoringService is the refresh cycle: it moves drained readings into the
// store and assembles read-only snapshots.
type MonitoringService struct {
	conn     *ConnectionService
	buffer   *IngestionBuffer
	store    *RetentionStore
	sim      *SimulatorService
	activity ActivityLog
	now      func() time.Time

	// refreshMu keeps drain+append atomic so arrival order is preserved.
	refreshMu     sync.Mutex
	lastRefreshed time.Time
}

func NewMonitoringService(conn *ConnectionService, buffer *IngestionBuffer, store *RetentionStore, sim *SimulatorService, activity ActivityLog) *MonitoringService {
	return &MonitoringService{conn: conn, buffer: buffer, store: store, sim: sim, activity: activity, now: time.Now}
}

// Refresh drains pending readings into the store and returns how many moved.
func (s *MonitoringService) Refresh() int {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	batch := s.buffer.Drain()
	s.store.Append(batch...)
	s.lastRefreshed = s.now()
	return len(batch)
}

// Clear drops pending and stored readings and returns how many were removed.
func (s *MonitoringService) Clear(ctx context.Context) int {
	s.refreshMu.Lock()
	n := len(s.buffer.Drain()) + s.store.Len()
	s.store.Clear()
	s.refreshMu.Unlock()

	if s.activity != nil {
		s.activity.Record(ctx, models.EventClear, fmt.Sprintf("Cleared %d readings", n), nil)
	}
	return n
}

// Snapshot refreshes, then renders newest-first readings and per-sensor latest values.
func (s *MonitoringService) Snapshot(device string, limit int) DashboardSnapshot {
	s.Refresh()

	s.refreshMu.Lock()
	refreshed := s.lastRefreshed
	s.refreshMu.Unlock()

	return DashboardSnapshot{
		Connection:    s.conn.Status(),
		Total:         s.store.Len(),
		Capacity:      s.store.Capacity(),
		Readings:      s.store.Recent(limit),
		Devices:       s.store.Devices(),
		Device:        device,
		Latest:        s.store.LatestPerSensor(device),
		Simulation:    s.sim.Progress(),
		Ingestion:     s.buffer.Stats(),
		LastRefreshed: refreshed,
	}
}

// Readings refreshes and returns up to limit readings, newest first.
func (s *MonitoringService) Readings(limit int) []models.Reading {
	s.Refresh()
	return s.store.Recent(limit)
}

func (s *MonitoringService) Latest(device string) map[string]models.Reading {
	s.Refresh()
	return s.store.LatestPerSensor(device)
}

func (s *MonitoringService) Devices() []string {
	s.Refresh()
	return s.store.Devices()
}

// Export renders every stored reading, newest first, as an XLSX workbook.
func (s *MonitoringService) Export() ([]byte, error) {
	return ExportReadings(s.Readings(0))
}

// Run refreshes on every tick until ctx is cancelled.
func (s *MonitoringService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Refresh()
		}
	}
}

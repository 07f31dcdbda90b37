package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"mqtt_dashboard/internal/models"
	"mqtt_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	enabled       bool
	genTokenToken string
	genTokenErr   error
	parseName     string
	parseErr      error

	lastGenUsername string
	lastGenPassword string
	lastParseToken  string
}

func (m *mockAuth) Enabled() bool { return m.enabled }

func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}

func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.parseName, m.parseErr
}

type mockConnection struct {
	conn        models.Connection
	connectErr  error
	lastParams  service.ConnectParams
	disconnects int
}

func (m *mockConnection) Connect(_ context.Context, p service.ConnectParams) (models.Connection, error) {
	m.lastParams = p
	if m.connectErr != nil {
		return models.Connection{}, m.connectErr
	}
	m.conn = models.Connection{Host: p.Host, Port: p.Port, TopicFilter: p.TopicFilter, Connected: true}
	return m.conn, nil
}

func (m *mockConnection) Disconnect() {
	m.disconnects++
	m.conn.Connected = false
}

func (m *mockConnection) IsConnected() bool { return m.conn.Connected }

func (m *mockConnection) LastError() (string, bool) { return m.conn.LastError, m.conn.LastError != "" }

func (m *mockConnection) Status() models.Connection { return m.conn }

type mockMessages struct {
	err         error
	lastTopic   string
	lastReading models.Reading
}

func (m *mockMessages) Send(_ context.Context, topic string, r models.Reading) (models.Reading, error) {
	m.lastTopic = topic
	m.lastReading = r
	if m.err != nil {
		return nil, m.err
	}
	out := r.Clone()
	out[models.FieldReceivedAt] = "2024-01-01 00:00:00"
	return out, nil
}

type mockSimulation struct {
	startErr   error
	lastParams service.SimulationParams
	progress   models.SimulationProgress
	cancelled  bool
	cancels    int
}

func (m *mockSimulation) Start(p service.SimulationParams) error {
	m.lastParams = p
	if m.startErr == nil {
		m.progress = models.SimulationProgress{State: models.SimulationRunning, Topic: p.Topic, Count: p.Count}
	}
	return m.startErr
}

func (m *mockSimulation) Cancel() bool {
	m.cancels++
	return m.cancelled
}

func (m *mockSimulation) Wait() {}

func (m *mockSimulation) Progress() models.SimulationProgress { return m.progress }

type mockMonitoring struct {
	snap      service.DashboardSnapshot
	readings  []models.Reading
	latest    map[string]models.Reading
	devices   []string
	export    []byte
	exportErr error
	cleared   int

	lastLimit  int
	lastDevice string
}

func (m *mockMonitoring) Refresh() int { return 0 }

func (m *mockMonitoring) Snapshot(device string, limit int) service.DashboardSnapshot {
	m.lastDevice, m.lastLimit = device, limit
	return m.snap
}

func (m *mockMonitoring) Readings(limit int) []models.Reading {
	m.lastLimit = limit
	return m.readings
}

func (m *mockMonitoring) Latest(device string) map[string]models.Reading {
	m.lastDevice = device
	return m.latest
}

func (m *mockMonitoring) Devices() []string { return m.devices }

func (m *mockMonitoring) Export() ([]byte, error) { return m.export, m.exportErr }

func (m *mockMonitoring) Clear(context.Context) int { return m.cleared }

func (m *mockMonitoring) Run(context.Context, time.Duration) {}

type mockActivity struct {
	resp     []models.ActivityEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
	recorded []string
}

func (m *mockActivity) Record(_ context.Context, typ, _ string, _ any) {
	m.recorded = append(m.recorded, typ)
}

func (m *mockActivity) List(_ context.Context, f service.LogFilter) ([]models.ActivityEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

// newTestService fills every interface so handlers never hit a nil embed.
func newTestService() *service.Service {
	return &service.Service{
		Connection:    &mockConnection{},
		Messages:      &mockMessages{},
		Simulation:    &mockSimulation{progress: models.SimulationProgress{State: models.SimulationIdle}},
		Monitoring:    &mockMonitoring{},
		ActivityLog:   &mockActivity{},
		Authorization: &mockAuth{},
	}
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// do performs one request against r with an optional JSON body.
func do(r http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"mqtt_dashboard/internal/service"
)

func TestConnectionHandlers(t *testing.T) {
	conn := &mockConnection{}
	s := newTestService()
	s.Connection = conn
	r := newTestRouter(s)

	w := do(r, http.MethodPost, "/api/v1/connection", `{"host":"broker.local","topic_filter":"sensors/#"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("connect status=%d body=%s", w.Code, w.Body.String())
	}
	if conn.lastParams.Port != 1883 || conn.lastParams.Host != "broker.local" {
		t.Fatalf("unexpected params: %+v", conn.lastParams)
	}

	w = do(r, http.MethodGet, "/api/v1/connection", "", nil)
	var st struct {
		Connected bool   `json:"connected"`
		Host      string `json:"host"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if !st.Connected || st.Host != "broker.local" {
		t.Fatalf("unexpected status: %s", w.Body.String())
	}

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodDelete, "/api/v1/connection", "", nil); w.Code != http.StatusOK {
			t.Fatalf("disconnect #%d status=%d", i, w.Code)
		}
	}
	if conn.disconnects != 2 || conn.IsConnected() {
		t.Fatalf("disconnects=%d connected=%v", conn.disconnects, conn.IsConnected())
	}
}

func TestConnectionHandlers_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &service.ConnectError{Reason: "host must not be empty", Invalid: true}, http.StatusBadRequest},
		{"broker", &service.ConnectError{Reason: "connection refused", Err: errors.New("dial tcp")}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestService()
			s.Connection = &mockConnection{connectErr: tc.err}
			w := do(newTestRouter(s), http.MethodPost, "/api/v1/connection", `{"host":"h","port":1,"topic_filter":"t"}`, nil)
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.want, w.Body.String())
			}
		})
	}

	s := newTestService()
	if w := do(newTestRouter(s), http.MethodPost, "/api/v1/connection", `{"port":"x"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad body status=%d", w.Code)
	}
}

func TestAPIRequiresTokenWhenAuthEnabled(t *testing.T) {
	s := newTestService()
	s.Authorization = &mockAuth{enabled: true, parseName: "operator"}
	r := newTestRouter(s)

	if w := do(r, http.MethodGet, "/api/v1/connection", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/connection", "", authHeader("tok")); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", w.Code)
	}
}

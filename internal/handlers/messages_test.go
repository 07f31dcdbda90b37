package handlers

import (
	"net/http"
	"testing"

	"mqtt_dashboard/internal/models"
	"mqtt_dashboard/internal/service"
)

func TestPublishMessage_Verbatim(t *testing.T) {
	msgs := &mockMessages{}
	act := &mockActivity{}
	s := newTestService()
	s.Messages = msgs
	s.ActivityLog = act
	r := newTestRouter(s)

	w := do(r, http.MethodPost, "/api/v1/messages", `{"topic":" sensors/d1 ","reading":{"sensor":"humidity","sensor_value":40}}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if msgs.lastTopic != "sensors/d1" {
		t.Fatalf("topic=%q", msgs.lastTopic)
	}
	if msgs.lastReading["sensor_value"] != 40.0 || msgs.lastReading.HasTimestamp() {
		t.Fatalf("reading=%v", msgs.lastReading)
	}
	if len(act.recorded) != 1 || act.recorded[0] != models.EventPublish {
		t.Fatalf("recorded=%v", act.recorded)
	}
}

func TestPublishMessage_Builder(t *testing.T) {
	msgs := &mockMessages{}
	s := newTestService()
	s.Messages = msgs
	r := newTestRouter(s)

	body := `{"topic":"sensors/d1","device":"device001","sensor":"temperature","sensor_value":21.5,"battery_level":80,"custom_fields":"{\"unit\":\"celsius\"}"}`
	if w := do(r, http.MethodPost, "/api/v1/messages", body, nil); w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	got := msgs.lastReading
	if got["device"] != "device001" || got["unit"] != "celsius" || got["battery_level"] != 80 || !got.HasTimestamp() {
		t.Fatalf("built reading=%v", got)
	}
}

func TestPublishMessage_Errors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		sendErr error
		want    int
	}{
		{"bad json", `{"topic":`, nil, http.StatusBadRequest},
		{"bad custom fields", `{"topic":"t","sensor":"x","custom_fields":"{oops"}`, nil, http.StatusBadRequest},
		{"missing sensor", `{"topic":"t"}`, nil, http.StatusBadRequest},
		{"invalid topic", `{"topic":"","reading":{"a":1}}`, service.ErrInvalidTopic, http.StatusBadRequest},
		{"not connected", `{"topic":"t","reading":{"a":1}}`, service.ErrNotConnected, http.StatusConflict},
		{"transport", `{"topic":"t","reading":{"a":1}}`, &service.TransportError{Detail: "refused"}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestService()
			act := &mockActivity{}
			s.Messages = &mockMessages{err: tc.sendErr}
			s.ActivityLog = act
			w := do(newTestRouter(s), http.MethodPost, "/api/v1/messages", tc.body, nil)
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.want, w.Body.String())
			}
			if len(act.recorded) != 0 {
				t.Fatalf("failed publish must not be recorded")
			}
		})
	}
}

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"mqtt_dashboard/internal/broker"
	"mqtt_dashboard/internal/models"

	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	ep      models.Endpoint
	topic   string
	payload []byte
}

// stubTransport stands in for the broker: it records subscriptions and sends.
type stubTransport struct {
	mu sync.Mutex

	subscribeErr error
	closeErr     error
	panicOnClose bool
	sendErrs     []error // consumed per call; nil entries succeed
	onSend       func(n int)

	endpoints []models.Endpoint
	filters   []string
	handlers  []broker.Handlers
	sessions  []*stubSession
	sends     []sentMessage
}

func (s *stubTransport) Subscribe(_ context.Context, ep models.Endpoint, filter string, h broker.Handlers) (broker.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints = append(s.endpoints, ep)
	s.filters = append(s.filters, filter)
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.handlers = append(s.handlers, h)
	sess := &stubSession{id: fmt.Sprintf("stub-%d", len(s.sessions)+1), closeErr: s.closeErr, panicOnClose: s.panicOnClose}
	s.sessions = append(s.sessions, sess)
	return sess, nil
}

func (s *stubTransport) Send(_ context.Context, ep models.Endpoint, topic string, payload []byte) error {
	s.mu.Lock()
	var err error
	if len(s.sendErrs) > 0 {
		err, s.sendErrs = s.sendErrs[0], s.sendErrs[1:]
	}
	if err == nil {
		s.sends = append(s.sends, sentMessage{ep: ep, topic: topic, payload: payload})
	}
	n := len(s.sends)
	hook := s.onSend
	s.mu.Unlock()

	if hook != nil && err == nil {
		hook(n)
	}
	return err
}

func (s *stubTransport) handler(i int) broker.Handlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[i]
}

func (s *stubTransport) sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sends...)
}

type stubSession struct {
	mu           sync.Mutex
	id           string
	closeErr     error
	panicOnClose bool
	closes       int
}

func (s *stubSession) ClientID() string { return s.id }

func (s *stubSession) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	if s.panicOnClose {
		panic("socket already gone")
	}
	return s.closeErr
}

func (s *stubSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// recordingActivity is an in-memory ActivityLog.
type recordingActivity struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (a *recordingActivity) Record(_ context.Context, typ, desc string, meta any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, models.ActivityEvent{Type: typ, Description: desc, Metadata: meta})
}

func (a *recordingActivity) List(context.Context, LogFilter) ([]models.ActivityEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ActivityEvent(nil), a.events...), nil
}

func (a *recordingActivity) types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.events))
	for i, e := range a.events {
		out[i] = e.Type
	}
	return out
}

var testParams = ConnectParams{Host: "localhost", Port: 1883, TopicFilter: "sensors/#", Username: "u", Password: "p"}

// connected returns a manager with a live stub subscription feeding buf.
func connected(t *testing.T, tr *stubTransport, buf *IngestionBuffer, act ActivityLog) *ConnectionService {
	t.Helper()
	if buf == nil {
		buf = NewIngestionBuffer(nil)
	}
	c := NewConnectionService(tr, buf, act, time.Second, nil)
	_, err := c.Connect(context.Background(), testParams)
	require.NoError(t, err)
	require.True(t, c.IsConnected())
	return c
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

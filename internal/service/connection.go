package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mqtt_dashboard/internal/broker"
	"mqtt_dashboard/internal/logger"
	"mqtt_dashboard/internal/models"
)

// MessageSink receives raw inbound payloads. Implementations must not block.
type MessageSink interface {
	OnMessage(payload []byte)
}

// ConnectionService owns the single broker subscription.
type ConnectionService struct {
	transport Transport
	sink      MessageSink
	activity  ActivityLog
	log       *logger.Logger
	timeout   time.Duration
	now       func() time.Time

	// opMu serializes Connect/Disconnect; mu guards the fields below.
	opMu    sync.Mutex
	mu      sync.RWMutex
	session broker.Session
	conn    models.Connection
	lastErr string
	gen     uint64
}

func NewConnectionService(transport Transport, sink MessageSink, activity ActivityLog, timeout time.Duration, log *logger.Logger) *ConnectionService {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = broker.DefaultConnectTimeout
	}
	return &ConnectionService{
		transport: transport,
		sink:      sink,
		activity:  activity,
		log:       log,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Connect replaces any current connection with a new subscription.
// The manager only reports connected once the subscription is acknowledged.
func (s *ConnectionService) Connect(ctx context.Context, p ConnectParams) (models.Connection, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.disconnect(ctx)

	target := models.Connection{
		Host:        p.Host,
		Port:        p.Port,
		TopicFilter: p.TopicFilter,
		Username:    p.Username,
		Password:    p.Password,
	}
	if err := p.validate(); err != nil {
		return s.failConnect(ctx, target, &ConnectError{Reason: err.Error(), Invalid: true, Err: err})
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.transport.Subscribe(cctx, p.endpoint(), p.TopicFilter, broker.Handlers{
		OnMessage: func(_ string, payload []byte) { s.sink.OnMessage(payload) },
		OnLost:    func(err error) { s.lost(gen, err) },
	})
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, broker.ErrTimeout) {
			reason = fmt.Sprintf("no answer from %s:%d within %s", p.Host, p.Port, s.timeout)
		}
		return s.failConnect(ctx, target, &ConnectError{Reason: reason, Err: err})
	}

	target.Connected = true
	target.ClientID = sess.ClientID()
	target.ConnectedAt = s.now()

	s.mu.Lock()
	s.session = sess
	s.conn = target
	s.lastErr = ""
	s.mu.Unlock()

	s.log.Infow("mqtt_connected", "host", p.Host, "port", p.Port, "topic", p.TopicFilter, "client_id", target.ClientID)
	s.record(ctx, models.EventConnect, fmt.Sprintf("Connected to %s:%d", p.Host, p.Port), map[string]any{
		"topic_filter": p.TopicFilter,
		"client_id":    target.ClientID,
	})
	return target, nil
}

// Disconnect tears down the live connection. Safe to call at any time.
func (s *ConnectionService) Disconnect() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.disconnect(context.Background())
}

func (s *ConnectionService) disconnect(ctx context.Context) {
	s.mu.Lock()
	sess := s.session
	conn := s.conn
	s.session = nil
	s.conn.Connected = false
	s.gen++
	s.mu.Unlock()

	if sess == nil {
		return
	}
	if err := s.closeSession(sess); err != nil {
		s.log.Debugw("mqtt_disconnect_error_ignored", "err", err)
	}
	s.log.Infow("mqtt_disconnected", "host", conn.Host, "port", conn.Port)
	s.record(ctx, models.EventDisconnect, fmt.Sprintf("Disconnected from %s:%d", conn.Host, conn.Port), nil)
}

// closeSession swallows teardown failures, panics included.
func (s *ConnectionService) closeSession(sess broker.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during disconnect: %v", r)
		}
	}()
	return sess.Close()
}

// lost handles an asynchronous transport failure for connection generation gen.
func (s *ConnectionService) lost(gen uint64, cause error) {
	s.mu.Lock()
	if gen != s.gen || s.session == nil {
		s.mu.Unlock()
		return
	}
	sess := s.session
	conn := s.conn
	s.session = nil
	s.conn.Connected = false
	s.lastErr = "connection lost: " + errText(cause)
	s.gen++
	msg := s.lastErr
	s.mu.Unlock()

	_ = s.closeSession(sess)
	s.log.Warnw("mqtt_connection_lost", "host", conn.Host, "port", conn.Port, "err", cause)
	s.record(context.Background(), models.EventConnectionLost, msg, nil)
}

func (s *ConnectionService) failConnect(ctx context.Context, target models.Connection, ce *ConnectError) (models.Connection, error) {
	s.mu.Lock()
	s.lastErr = ce.Reason
	s.conn = target
	s.conn.Connected = false
	s.conn.LastError = ce.Reason
	out := s.conn
	s.mu.Unlock()

	s.log.Warnw("mqtt_connect_failed", "host", target.Host, "port", target.Port, "reason", ce.Reason)
	s.record(ctx, models.EventConnectFailed, ce.Error(), map[string]any{"host": target.Host, "port": target.Port})
	return out, ce
}

func (s *ConnectionService) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil
}

// LastError returns the most recent connect or connection-lost message.
func (s *ConnectionService) LastError() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr, s.lastErr != ""
}

// Current returns the live connection, if any.
func (s *ConnectionService) Current() (models.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return models.Connection{}, false
	}
	return s.conn, true
}

// Status describes the last known connection for display.
func (s *ConnectionService) Status() models.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.conn
	c.Connected = s.session != nil
	c.LastError = s.lastErr
	return c
}

func (s *ConnectionService) record(ctx context.Context, typ, desc string, meta any) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, typ, desc, meta)
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

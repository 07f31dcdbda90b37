package service

import (
	"context"
	"time"

	"mqtt_dashboard/internal/broker"
	"mqtt_dashboard/internal/models"
)

// connectionState is the read-only view the send path needs.
type connectionState interface {
	Current() (models.Connection, bool)
	IsConnected() bool
}

// PublisherService sends single readings on an independent connection.
type PublisherService struct {
	conn      connectionState
	transport Transport
	timeout   time.Duration
}

func NewPublisherService(conn connectionState, transport Transport, timeout time.Duration) *PublisherService {
	if timeout <= 0 {
		timeout = broker.DefaultPublishTimeout
	}
	return &PublisherService{conn: conn, transport: transport, timeout: timeout}
}

// Publish returns ErrNotConnected, ErrInvalidTopic or *TransportError on failure.
func (s *PublisherService) Publish(ctx context.Context, topic string, r models.Reading) error {
	c, ok := s.conn.Current()
	if !ok {
		return ErrNotConnected
	}
	if !validTopic(topic) {
		return ErrInvalidTopic
	}
	payload, err := encodeReading(r)
	if err != nil {
		return newTransportError("encode reading: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.transport.Send(ctx, c.Endpoint(), topic, payload); err != nil {
		return newTransportError("%v", err)
	}
	return nil
}

// MessageService publishes and, on success, echoes the reading into the store
// so it shows up before any round trip through the subscription.
type MessageService struct {
	publisher Publisher
	store     *RetentionStore
	now       func() time.Time
}

func NewMessageService(publisher Publisher, store *RetentionStore) *MessageService {
	return &MessageService{publisher: publisher, store: store, now: time.Now}
}

// Send returns the echoed copy as stored.
func (s *MessageService) Send(ctx context.Context, topic string, r models.Reading) (models.Reading, error) {
	if err := s.publisher.Publish(ctx, topic, r); err != nil {
		return nil, err
	}
	return s.store.Echo(r, s.now()), nil
}

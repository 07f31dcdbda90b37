// Package broker adapts the paho MQTT client to the dashboard's two needs:
// a long-lived subscription session and an independent one-shot send.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"mqtt_dashboard/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	protocolV311      = 4
	subscribeQoS      = 0
	publishQoS        = 0
	disconnectQuiesce = 250 // ms

	DefaultConnectTimeout = 5 * time.Second
	DefaultPublishTimeout = 5 * time.Second
	DefaultKeepAlive      = 60 * time.Second
	DefaultClientPrefix   = "mqtt-dashboard"
)

// ErrTimeout is returned when the broker does not answer within the configured bound.
var ErrTimeout = errors.New("timed out waiting for broker")

// Handlers are invoked from paho's goroutines; they must not block.
type Handlers struct {
	OnMessage func(topic string, payload []byte)
	OnLost    func(err error)
}

// Session is a live subscription.
type Session interface {
	ClientID() string
	Close() error
}

// Options tunes timeouts and naming.
type Options struct {
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	KeepAlive      time.Duration
	ClientPrefix   string
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = DefaultPublishTimeout
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = DefaultKeepAlive
	}
	if o.ClientPrefix == "" {
		o.ClientPrefix = DefaultClientPrefix
	}
	return o
}

// Paho implements the dashboard transport on top of paho.mqtt.golang.
type Paho struct {
	opts      Options
	newClient func(*mqtt.ClientOptions) mqtt.Client
	now       func() time.Time
}

func NewPaho(opts Options) *Paho {
	return &Paho{
		opts:      opts.withDefaults(),
		newClient: mqtt.NewClient,
		now:       time.Now,
	}
}

// Subscribe connects, performs the handshake and subscribes to filter.
// The returned session is only handed out once the subscription is acknowledged.
func (p *Paho) Subscribe(ctx context.Context, ep models.Endpoint, filter string, h Handlers) (Session, error) {
	clientID := p.clientID("")
	opts := p.clientOptions(ep, clientID)
	if h.OnLost != nil {
		opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) { h.OnLost(err) })
	}

	c := p.newClient(opts)
	if err := waitToken(ctx, c.Connect(), p.opts.ConnectTimeout); err != nil {
		c.Disconnect(0)
		return nil, fmt.Errorf("connect to %s: %w", brokerURL(ep), err)
	}

	onMessage := func(_ mqtt.Client, m mqtt.Message) {
		if h.OnMessage != nil {
			h.OnMessage(m.Topic(), m.Payload())
		}
	}
	if err := waitToken(ctx, c.Subscribe(filter, subscribeQoS, onMessage), p.opts.ConnectTimeout); err != nil {
		c.Disconnect(0)
		return nil, fmt.Errorf("subscribe to %q: %w", filter, err)
	}
	return &pahoSession{client: c, clientID: clientID}, nil
}

// Send publishes payload on a fresh connection that is torn down afterwards,
// so a stalled subscription can never hold up a publish.
func (p *Paho) Send(ctx context.Context, ep models.Endpoint, topic string, payload []byte) error {
	c := p.newClient(p.clientOptions(ep, p.clientID("pub")))
	if err := waitToken(ctx, c.Connect(), p.opts.ConnectTimeout); err != nil {
		c.Disconnect(0)
		return fmt.Errorf("connect to %s: %w", brokerURL(ep), err)
	}
	defer c.Disconnect(disconnectQuiesce)

	if err := waitToken(ctx, c.Publish(topic, publishQoS, false, payload), p.opts.PublishTimeout); err != nil {
		return fmt.Errorf("publish to %q: %w", topic, err)
	}
	return nil
}

func (p *Paho) clientOptions(ep models.Endpoint, clientID string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(ep))
	opts.SetClientID(clientID)
	if ep.HasCredentials() {
		opts.SetUsername(ep.Username)
		opts.SetPassword(ep.Password)
	}
	opts.SetProtocolVersion(protocolV311)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(p.opts.KeepAlive)
	opts.SetConnectTimeout(p.opts.ConnectTimeout)
	opts.SetWriteTimeout(p.opts.PublishTimeout)
	// reconnects are operator-initiated only
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetOrderMatters(true)
	return opts
}

func (p *Paho) clientID(role string) string {
	id := p.opts.ClientPrefix
	if role != "" {
		id += "-" + role
	}
	return id + "-" + strconv.FormatInt(p.now().Unix(), 10) + "-" + uuid.NewString()[:8]
}

func brokerURL(ep models.Endpoint) string {
	return "tcp://" + net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
}

// waitToken waits for a paho token, bounded by timeout and ctx.
func waitToken(ctx context.Context, t mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}

type pahoSession struct {
	client   mqtt.Client
	clientID string
}

func (s *pahoSession) ClientID() string { return s.clientID }

func (s *pahoSession) Close() error {
	if s.client == nil {
		return nil
	}
	s.client.Disconnect(disconnectQuiesce)
	s.client = nil
	return nil
}

package broker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mqtt_dashboard/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
)

// ---- paho test doubles ----

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

type fakeClient struct {
	mqtt.Client
	mu sync.Mutex

	opts         *mqtt.ClientOptions
	connectTok   mqtt.Token
	subscribeTok mqtt.Token
	publishTok   mqtt.Token

	subscribed   string
	handler      mqtt.MessageHandler
	published    []string
	payloads     [][]byte
	disconnected int
}

func (c *fakeClient) Connect() mqtt.Token { return c.connectTok }
func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected++
}
func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.subscribed = topic
	c.handler = cb
	return c.subscribeTok
}
func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return c.publishTok
}

func newTestPaho(c *fakeClient) *Paho {
	p := NewPaho(Options{ConnectTimeout: 50 * time.Millisecond, PublishTimeout: 50 * time.Millisecond})
	p.newClient = func(o *mqtt.ClientOptions) mqtt.Client {
		c.opts = o
		return c
	}
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	return p
}

var localEP = models.Endpoint{Host: "localhost", Port: 1883}

// ---- tests ----

func TestClientOptions(t *testing.T) {
	p := NewPaho(Options{})
	opts := p.clientOptions(models.Endpoint{Host: "broker.local", Port: 8883, Username: "u", Password: "p"}, "id-1")

	require.Len(t, opts.Servers, 1)
	require.Equal(t, "tcp://broker.local:8883", opts.Servers[0].String())
	require.Equal(t, "id-1", opts.ClientID)
	require.Equal(t, "u", opts.Username)
	require.Equal(t, "p", opts.Password)
	require.False(t, opts.AutoReconnect)
	require.Equal(t, int64(60), opts.KeepAlive)
	require.Equal(t, DefaultConnectTimeout, opts.ConnectTimeout)
}

func TestClientOptions_CredentialsNeedBothParts(t *testing.T) {
	p := NewPaho(Options{})
	opts := p.clientOptions(models.Endpoint{Host: "h", Port: 1, Username: "only-user"}, "id")
	require.Empty(t, opts.Username)
}

func TestBrokerURL_IPv6(t *testing.T) {
	require.Equal(t, "tcp://[::1]:1883", brokerURL(models.Endpoint{Host: "::1", Port: 1883}))
}

func TestClientID(t *testing.T) {
	p := newTestPaho(&fakeClient{})
	id := p.clientID("pub")
	require.True(t, strings.HasPrefix(id, "mqtt-dashboard-pub-1700000000-"), id)
	require.NotEqual(t, id, p.clientID("pub"))
}

func TestSubscribe_DeliversMessagesAndLoss(t *testing.T) {
	c := &fakeClient{connectTok: doneToken(nil), subscribeTok: doneToken(nil)}
	p := newTestPaho(c)

	var (
		got  [][]byte
		lost error
	)
	sess, err := p.Subscribe(context.Background(), localEP, "sensors/#", Handlers{
		OnMessage: func(_ string, payload []byte) { got = append(got, payload) },
		OnLost:    func(err error) { lost = err },
	})
	require.NoError(t, err)
	require.Equal(t, "sensors/#", c.subscribed)
	require.True(t, strings.HasPrefix(sess.ClientID(), "mqtt-dashboard-1700000000-"))

	c.handler(c, fakeMessage{topic: "sensors/a", payload: []byte(`{"sensor":"t"}`)})
	require.Equal(t, [][]byte{[]byte(`{"sensor":"t"}`)}, got)

	c.opts.OnConnectionLost(c, errors.New("eof"))
	require.EqualError(t, lost, "eof")

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	require.Equal(t, 1, c.disconnected)
}

func TestSubscribe_ConnectFailure(t *testing.T) {
	c := &fakeClient{connectTok: doneToken(errors.New("not authorized"))}
	p := newTestPaho(c)

	_, err := p.Subscribe(context.Background(), localEP, "sensors/#", Handlers{})
	require.ErrorContains(t, err, "not authorized")
	require.Equal(t, 1, c.disconnected)
}

func TestSubscribe_ConnectTimeout(t *testing.T) {
	c := &fakeClient{connectTok: pendingToken()}
	p := newTestPaho(c)

	_, err := p.Subscribe(context.Background(), localEP, "sensors/#", Handlers{})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSubscribe_SubscribeFailureTearsDown(t *testing.T) {
	c := &fakeClient{connectTok: doneToken(nil), subscribeTok: doneToken(errors.New("bad filter"))}
	p := newTestPaho(c)

	_, err := p.Subscribe(context.Background(), localEP, "a/#/b", Handlers{})
	require.ErrorContains(t, err, "bad filter")
	require.Equal(t, 1, c.disconnected)
}

func TestSend_PublishesOnFreshClient(t *testing.T) {
	c := &fakeClient{connectTok: doneToken(nil), publishTok: doneToken(nil)}
	p := newTestPaho(c)

	err := p.Send(context.Background(), localEP, "sensors/test", []byte(`{"sensor":"h"}`))
	require.NoError(t, err)
	require.Equal(t, []string{"sensors/test"}, c.published)
	require.Equal(t, 1, c.disconnected)
	require.True(t, strings.Contains(c.opts.ClientID, "-pub-"))
}

func TestSend_ContextCancelled(t *testing.T) {
	c := &fakeClient{connectTok: doneToken(nil), publishTok: pendingToken()}
	p := newTestPaho(c)
	p.opts.PublishTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Send(ctx, localEP, "t", []byte("{}"))
	require.ErrorIs(t, err, context.Canceled)
}

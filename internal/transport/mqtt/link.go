// Package mqtt implements transport.Link over an MQTT broker.
//
// Each device owns three topics under sugarscope/<pair>/<role>/:
// immediate (QoS 0, live delivery), deferred (QoS 1, held by the broker for a
// persistent session) and presence (retained online/offline, with the
// offline value registered as the last will).
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sugarscope/sugarscope/internal/transport"
)

const (
	RolePhone     = "phone"
	RoleCompanion = "companion"

	ChannelImmediate = "immediate"
	ChannelDeferred  = "deferred"
	ChannelPresence  = "presence"

	PresenceOnline  = "online"
	PresenceOffline = "offline"

	subscribeTimeout  = 5 * time.Second
	disconnectQuiesce = 250
)

// Topic returns the topic for a device role and channel
func Topic(pairID, role, channel string) string {
	return fmt.Sprintf("sugarscope/%s/%s/%s", pairID, role, channel)
}

// PeerRole returns the role on the other end of the pair
func PeerRole(role string) string {
	if role == RolePhone {
		return RoleCompanion
	}
	return RolePhone
}

// Config identifies this device on the broker
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	PairID   string
	Role     string
}

// Link is a transport.Link backed by paho
type Link struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	client   paho.Client
	listener transport.Listener

	peerOnline atomic.Bool
	connected  atomic.Bool
	everUp     atomic.Bool
}

// NewLink creates an unconnected link
func NewLink(cfg Config, log *slog.Logger) *Link {
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("sugarscope-%s-%s", cfg.PairID, cfg.Role)
	}
	return &Link{cfg: cfg, log: log}
}

func (l *Link) topic(role, channel string) string {
	return Topic(l.cfg.PairID, role, channel)
}

// Activate connects to the broker. Reconnects after this are automatic and
// reported through the listener.
func (l *Link) Activate(ctx context.Context, listener transport.Listener) error {
	l.mu.Lock()
	l.listener = listener
	l.mu.Unlock()

	opts := paho.NewClientOptions()
	opts.AddBroker(l.cfg.Broker)
	opts.SetClientID(l.cfg.ClientID)
	if l.cfg.Username != "" {
		opts.SetUsername(l.cfg.Username)
	}
	if l.cfg.Password != "" {
		opts.SetPassword(l.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(false)
	opts.SetWill(l.topic(l.cfg.Role, ChannelPresence), PresenceOffline, 1, true)
	opts.SetOnConnectHandler(l.onConnect)
	opts.SetConnectionLostHandler(l.onConnectionLost)

	client := paho.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		// Stops a connect still in flight and its auto-reconnect loop.
		client.Disconnect(0)
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	l.mu.Lock()
	l.client = client
	l.mu.Unlock()
	return nil
}

func (l *Link) onConnect(c paho.Client) {
	subs := map[string]byte{
		l.topic(l.cfg.Role, ChannelImmediate):          0,
		l.topic(l.cfg.Role, ChannelDeferred):           1,
		l.topic(PeerRole(l.cfg.Role), ChannelPresence): 1,
	}
	if token := c.SubscribeMultiple(subs, l.route); !token.WaitTimeout(subscribeTimeout) || token.Error() != nil {
		l.log.Error("Failed to subscribe", "error", token.Error())
		return
	}
	c.Publish(l.topic(l.cfg.Role, ChannelPresence), 1, true, PresenceOnline)

	l.connected.Store(true)
	if l.everUp.Swap(true) {
		l.log.Info("Reconnected to MQTT broker")
		l.notify(transport.EventActivated, nil)
	}
}

func (l *Link) onConnectionLost(_ paho.Client, err error) {
	l.connected.Store(false)
	l.log.Warn("Lost connection to MQTT broker", "error", err)
	l.notify(transport.EventInactive, err)
}

func (l *Link) notify(ev transport.Event, err error) {
	l.mu.Lock()
	listener := l.listener
	l.mu.Unlock()
	if listener != nil {
		listener.LinkEvent(ev, err)
	}
}

func (l *Link) route(_ paho.Client, msg paho.Message) {
	if msg.Topic() == l.topic(PeerRole(l.cfg.Role), ChannelPresence) {
		online := string(msg.Payload()) == PresenceOnline
		if l.peerOnline.Swap(online) != online {
			l.log.Info("Peer presence changed", "online", online)
		}
		return
	}

	path := transport.PathImmediate
	if msg.Topic() == l.topic(l.cfg.Role, ChannelDeferred) {
		path = transport.PathDeferred
	}

	l.mu.Lock()
	listener := l.listener
	l.mu.Unlock()
	if listener != nil {
		listener.Inbound(msg.Payload(), path)
	}
}

// Reachable reports whether the broker is connected and the peer announced itself online
func (l *Link) Reachable() bool {
	return l.connected.Load() && l.peerOnline.Load()
}

// SendImmediate publishes at QoS 0 to the peer's live topic
func (l *Link) SendImmediate(ctx context.Context, payload []byte) error {
	return l.publish(ctx, l.topic(PeerRole(l.cfg.Role), ChannelImmediate), 0, payload)
}

// Enqueue publishes at QoS 1 to the peer's deferred topic, which the broker
// holds until the peer's persistent session reconnects.
func (l *Link) Enqueue(ctx context.Context, payload []byte) error {
	return l.publish(ctx, l.topic(PeerRole(l.cfg.Role), ChannelDeferred), 1, payload)
}

func (l *Link) publish(ctx context.Context, topic string, qos byte, payload []byte) error {
	l.mu.Lock()
	client := l.client
	l.mu.Unlock()
	if client == nil {
		return fmt.Errorf("link not activated")
	}
	if err := wait(ctx, client.Publish(topic, qos, false, payload)); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Close announces offline presence and disconnects
func (l *Link) Close(ctx context.Context) error {
	l.mu.Lock()
	client := l.client
	l.client = nil
	l.mu.Unlock()
	if client == nil {
		return nil
	}

	if client.IsConnectionOpen() {
		if err := wait(ctx, client.Publish(l.topic(l.cfg.Role, ChannelPresence), 1, true, PresenceOffline)); err != nil {
			l.log.Warn("Failed to publish offline presence", "error", err)
		}
	}
	client.Disconnect(disconnectQuiesce)
	l.connected.Store(false)
	return nil
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

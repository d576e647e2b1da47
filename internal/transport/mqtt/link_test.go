package mqtt

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarscope/sugarscope/internal/logger"
	"github.com/sugarscope/sugarscope/internal/transport"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type inbound struct {
	payload string
	path    transport.Path
}

type recordingListener struct {
	mu      sync.Mutex
	events  []transport.Event
	inbound []inbound
}

func (r *recordingListener) LinkEvent(ev transport.Event, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingListener) Inbound(payload []byte, path transport.Path) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inbound = append(r.inbound, inbound{string(payload), path})
}

func setupLink(t *testing.T, role string) (*Link, *recordingListener) {
	t.Helper()
	l := NewLink(Config{Broker: "tcp://127.0.0.1:1", PairID: "home", Role: role}, logger.Discard())
	rec := &recordingListener{}
	l.listener = rec
	return l, rec
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "sugarscope/home/phone/immediate", Topic("home", RolePhone, ChannelImmediate))
	assert.Equal(t, "sugarscope/home/companion/presence", Topic("home", RoleCompanion, ChannelPresence))
	assert.Equal(t, RoleCompanion, PeerRole(RolePhone))
	assert.Equal(t, RolePhone, PeerRole(RoleCompanion))
}

func TestNewLink_DefaultClientID(t *testing.T) {
	l := NewLink(Config{PairID: "home", Role: RoleCompanion}, logger.Discard())
	assert.Equal(t, "sugarscope-home-companion", l.cfg.ClientID)
}

func TestLink_RouteByTopic(t *testing.T) {
	l, rec := setupLink(t, RolePhone)

	l.route(nil, fakeMessage{"sugarscope/home/phone/immediate", []byte(`{"logGlucose":120}`)})
	l.route(nil, fakeMessage{"sugarscope/home/phone/deferred", []byte(`{"confirmGlucoseReminder":true}`)})

	require.Len(t, rec.inbound, 2)
	assert.Equal(t, inbound{`{"logGlucose":120}`, transport.PathImmediate}, rec.inbound[0])
	assert.Equal(t, inbound{`{"confirmGlucoseReminder":true}`, transport.PathDeferred}, rec.inbound[1])
}

func TestLink_ReachableFollowsPeerPresence(t *testing.T) {
	l, rec := setupLink(t, RolePhone)
	presence := Topic("home", RoleCompanion, ChannelPresence)

	assert.False(t, l.Reachable())

	l.connected.Store(true)
	l.route(nil, fakeMessage{presence, []byte(PresenceOnline)})
	assert.True(t, l.Reachable())

	l.route(nil, fakeMessage{presence, []byte(PresenceOffline)})
	assert.False(t, l.Reachable())

	l.route(nil, fakeMessage{presence, []byte(PresenceOnline)})
	l.onConnectionLost(nil, assert.AnError)
	assert.False(t, l.Reachable())

	assert.Empty(t, rec.inbound, "presence is not forwarded as a message")
	assert.Equal(t, []transport.Event{transport.EventInactive}, rec.events)
}

func TestLink_PublishBeforeActivate(t *testing.T) {
	l, _ := setupLink(t, RoleCompanion)

	assert.Error(t, l.SendImmediate(context.Background(), []byte(`{}`)))
	assert.Error(t, l.Enqueue(context.Background(), []byte(`{}`)))
	assert.NoError(t, l.Close(context.Background()))
}

func TestLink_ActivateGivesUpWhenContextEnds(t *testing.T) {
	// A broker that accepts the socket but never answers CONNECT.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	l := NewLink(Config{Broker: "tcp://" + ln.Addr().String(), PairID: "home", Role: RolePhone}, logger.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = l.Activate(ctx, &recordingListener{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, l.Reachable())
	assert.Error(t, l.Enqueue(context.Background(), []byte(`{}`)))
	assert.NoError(t, l.Close(context.Background()))
}

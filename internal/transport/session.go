// Package transport delivers alert messages to the paired companion device
// and routes the companion's control messages back in.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/message"
)

// State is the session lifecycle state
type State int32

const (
	Unconfigured State = iota
	Activating
	Ready
	Degraded
)

func (s State) String() string {
	switch s {
	case Activating:
		return "activating"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	default:
		return "unconfigured"
	}
}

// Path is the delivery path a message took
type Path int

const (
	PathImmediate Path = iota
	PathDeferred
)

func (p Path) String() string {
	if p == PathDeferred {
		return "deferred"
	}
	return "immediate"
}

// Event is a link lifecycle notification
type Event int

const (
	// EventActivated: the link is up, after the first activation or a reconnect.
	EventActivated Event = iota
	// EventInactive: the link dropped and is expected to recover by itself.
	EventInactive
	// EventDeactivated: the link is gone and must be activated again.
	EventDeactivated
)

// Listener receives callbacks from a Link
type Listener interface {
	LinkEvent(ev Event, err error)
	Inbound(payload []byte, path Path)
}

// Link is a concrete connection to the companion device
type Link interface {
	// Activate connects and binds l. It may block; the session calls it off its loop.
	Activate(ctx context.Context, l Listener) error
	Reachable() bool
	SendImmediate(ctx context.Context, payload []byte) error
	Enqueue(ctx context.Context, payload []byte) error
	Close(ctx context.Context) error
}

// Envelope is a decoded inbound message
type Envelope struct {
	Message message.Message
	Path    Path
}

// Handler processes inbound messages
type Handler func(ctx context.Context, env Envelope)

// Options tune a Session
type Options struct {
	ImmediateTimeout time.Duration
	QueueSize        int
}

const (
	defaultImmediateTimeout = 3 * time.Second
	defaultQueueSize        = 64
)

// Session owns a Link and its activation state. State changes and the
// reachability check behind each send run on a single loop goroutine;
// link I/O runs on short-lived goroutines so callers never block on it.
type Session struct {
	link Link
	log  *slog.Logger
	errs *apperrors.Handler
	opts Options

	ops      chan func()
	state    atomic.Int32
	handler  atomic.Pointer[Handler]
	ctx      context.Context
	cancel   context.CancelFunc
	io       sync.WaitGroup
	closed   chan struct{}
	loopDone chan struct{}
	once     sync.Once
}

// NewSession starts the session loop. The link is not activated until
// Activate or the first Send.
func NewSession(link Link, opts Options, log *slog.Logger) *Session {
	if opts.ImmediateTimeout <= 0 {
		opts.ImmediateTimeout = defaultImmediateTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		link:     link,
		log:      log,
		errs:     apperrors.NewHandler(log),
		opts:     opts,
		ops:      make(chan func(), opts.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		closed:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.loopDone)
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.closed:
			return
		}
	}
}

// post queues op on the loop without blocking. It fails with
// ErrTransportClosed after Close and ErrTransportBusy when the queue is full.
func (s *Session) post(op func()) error {
	select {
	case <-s.closed:
		return apperrors.ErrTransportClosed
	default:
	}
	select {
	case s.ops <- op:
		return nil
	case <-s.closed:
		return apperrors.ErrTransportClosed
	default:
		s.log.Warn("Transport queue full, dropping operation")
		return apperrors.ErrTransportBusy
	}
}

// State returns the current session state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.log.Info("Transport state changed", "from", prev, "to", next)
	}
}

// OnMessage sets the handler for inbound messages
func (s *Session) OnMessage(h Handler) {
	s.handler.Store(&h)
}

// Activate starts activating the link if it is not already up
func (s *Session) Activate() {
	_ = s.post(s.activateLocked)
}

// activateLocked must run on the loop.
func (s *Session) activateLocked() {
	switch s.State() {
	case Activating, Ready:
		return
	}
	s.setState(Activating)

	s.io.Add(1)
	go func() {
		defer s.io.Done()
		err := s.link.Activate(s.ctx, s)
		s.post(func() {
			if s.State() != Activating {
				return
			}
			if err != nil {
				s.errs.Handle(s.ctx, apperrors.NewTransportError(err, "activate"))
				s.setState(Unconfigured)
				return
			}
			s.setState(Ready)
		})
	}()
}

// Send delivers msg best-effort and returns once the attempt is queued.
// Messages sent while the session is not Ready are dropped; a send on an
// unconfigured session also starts activation.
func (s *Session) Send(ctx context.Context, msg message.Message) error {
	payload, err := message.Encode(msg)
	if err != nil {
		return err
	}
	return s.post(func() { s.sendLocked(msg.Kind(), payload) })
}

// sendLocked must run on the loop.
func (s *Session) sendLocked(kind message.Kind, payload []byte) {
	state := s.State()
	if state != Ready {
		s.log.Info("Transport not ready, dropping message", "state", state, "message_type", kind)
		if state == Unconfigured {
			s.activateLocked()
		}
		return
	}

	path := PathDeferred
	if s.link.Reachable() {
		path = PathImmediate
	}

	s.io.Add(1)
	go func() {
		defer s.io.Done()
		var err error
		if path == PathImmediate {
			ctx, cancel := context.WithTimeout(s.ctx, s.opts.ImmediateTimeout)
			err = s.link.SendImmediate(ctx, payload)
			cancel()
			if errors.Is(err, context.DeadlineExceeded) {
				err = apperrors.NewTimeoutError("send immediate")
			}
		} else {
			err = s.link.Enqueue(s.ctx, payload)
		}
		if err != nil {
			if te := apperrors.TypeOf(err); te != apperrors.ErrorTypeTimeout {
				err = apperrors.NewTransportError(err, "send "+path.String()).
					WithContext("message_type", kind)
			}
			s.errs.Handle(s.ctx, err)
			return
		}
		s.log.Debug("Message handed to link", "path", path, "message_type", kind)
	}()
}

// LinkEvent implements Listener
func (s *Session) LinkEvent(ev Event, err error) {
	s.post(func() {
		switch ev {
		case EventActivated:
			s.setState(Ready)
		case EventInactive:
			if err != nil {
				s.errs.Handle(s.ctx, apperrors.NewTransportError(err, "link"))
			}
			if s.State() == Ready {
				s.setState(Degraded)
			}
		case EventDeactivated:
			s.setState(Unconfigured)
			s.activateLocked()
		}
	})
}

// Inbound implements Listener
func (s *Session) Inbound(payload []byte, path Path) {
	s.Receive(s.ctx, payload, path)
}

// Receive decodes payload and hands it to the handler. Unknown and
// malformed payloads are logged and reported as not handled.
func (s *Session) Receive(ctx context.Context, payload []byte, path Path) bool {
	msg, err := message.Decode(payload)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnknownMessage) {
			s.log.Debug("Ignoring unknown inbound message", "path", path)
			return false
		}
		s.errs.Handle(ctx, err)
		return false
	}

	h := s.handler.Load()
	if h == nil {
		s.log.Warn("No inbound handler, dropping message", "message_type", msg.Kind())
		return false
	}
	(*h)(ctx, Envelope{Message: msg, Path: path})
	return true
}

// Close stops the loop, waits for in-flight I/O, and closes the link
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		<-s.loopDone

		done := make(chan struct{})
		go func() {
			s.io.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.cancel()
			<-done
		}
		s.cancel()

		err = s.link.Close(ctx)
	})
	return err
}

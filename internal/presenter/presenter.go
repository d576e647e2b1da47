// Package presenter turns alert messages arriving on the companion into
// something the user sees: an in-app alert when the app is live, a system
// notification when the message was held for later delivery.
package presenter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/transport"
)

// Screen renders the in-app alert
type Screen interface {
	Show(ctx context.Context, v AlertView) error
}

// Haptics plays device vibration patterns
type Haptics interface {
	Play(ctx context.Context, p HapticPattern) error
}

// SystemNotifier schedules notifications outside the app
type SystemNotifier interface {
	Schedule(ctx context.Context, n Notification) error
}

// Sender delivers messages back to the phone
type Sender interface {
	Send(ctx context.Context, msg message.Message) error
}

// hapticMemory bounds how long a played alert key is remembered.
const hapticMemory = 24 * time.Hour

type Presenter struct {
	screen   Screen
	haptics  Haptics
	notifier SystemNotifier
	sender   Sender
	log      *slog.Logger
	errs     *apperrors.Handler

	mu     sync.Mutex
	played map[string]time.Time
}

func New(screen Screen, haptics Haptics, notifier SystemNotifier, sender Sender, log *slog.Logger) *Presenter {
	return &Presenter{
		screen:   screen,
		haptics:  haptics,
		notifier: notifier,
		sender:   sender,
		log:      log,
		errs:     apperrors.NewHandler(log),
		played:   make(map[string]time.Time),
	}
}

// Handle is a transport.Handler. Only alerts are presented.
func (p *Presenter) Handle(ctx context.Context, env transport.Envelope) {
	alert, ok := env.Message.(message.AlertMessage)
	if !ok {
		p.log.Debug("Ignoring non-alert message", "message_type", env.Message.Kind())
		return
	}
	p.Present(ctx, alert, env.Path)
}

// Present shows alert on the surface matching the path it arrived on
func (p *Presenter) Present(ctx context.Context, alert message.AlertMessage, path transport.Path) {
	p.log.Info("Presenting sugar alert",
		"level", alert.Level, "sugar", alert.SugarGrams, "limit", alert.LimitGrams, "path", path)

	if path == transport.PathImmediate {
		if err := p.screen.Show(ctx, NewAlertView(alert)); err != nil {
			p.errs.Handle(ctx, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "PRESENT", "failed to show alert"))
		}
	} else {
		if err := p.notifier.Schedule(ctx, NewNotification(alert)); err != nil {
			p.errs.Handle(ctx, apperrors.NewExternalAPIError(err, "notifier"))
		}
	}
	p.playOnce(ctx, alert)
}

// OpenNotification reconstructs the in-app alert from a tapped notification
func (p *Presenter) OpenNotification(ctx context.Context, alert message.AlertMessage) AlertView {
	v := NewAlertView(alert)
	if err := p.screen.Show(ctx, v); err != nil {
		p.errs.Handle(ctx, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "PRESENT", "failed to show alert"))
	}
	return v
}

// Acknowledge tells the phone the user dismissed alert
func (p *Presenter) Acknowledge(ctx context.Context, alert message.AlertMessage) error {
	return p.sender.Send(ctx, message.AlertAck{Level: alert.Level, Timestamp: alert.Timestamp})
}

// playOnce plays the level's haptic unless this alert already played one.
func (p *Presenter) playOnce(ctx context.Context, alert message.AlertMessage) {
	key := alert.Key()

	p.mu.Lock()
	for k, ts := range p.played {
		if alert.Timestamp.Sub(ts) > hapticMemory {
			delete(p.played, k)
		}
	}
	_, seen := p.played[key]
	if !seen {
		p.played[key] = alert.Timestamp
	}
	p.mu.Unlock()

	if seen {
		p.log.Debug("Haptic already played for alert", "key", key)
		return
	}
	if err := p.haptics.Play(ctx, HapticFor(alert.Level)); err != nil {
		p.log.Warn("Failed to play haptic", "error", err)
	}
}

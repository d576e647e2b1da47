package companion

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/presenter"
	"github.com/sugarscope/sugarscope/internal/utils"
)

const helpText = `Sugar alerts and reminders from your phone show up here.
Tap Taken or Checked on a reminder to confirm it.

/glucose <mg/dL> - log a glucose reading on the phone
/med [name] - confirm medication
/checked - confirm a glucose check
/help - this message`

const (
	msgSent          = "📲 Sent to phone."
	msgSendFailed    = "Couldn't reach the phone. Please try again later."
	msgGlucoseFormat = "Use /glucose <mg/dL>, e.g. /glucose 132"
	ackSuffix        = "\n\n✔️ Acknowledged"
)

// API is the part of tgbotapi.BotAPI the companion uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// AlertPresenter rebuilds and acknowledges alerts from notification buttons
type AlertPresenter interface {
	OpenNotification(ctx context.Context, alert message.AlertMessage) presenter.AlertView
	Acknowledge(ctx context.Context, alert message.AlertMessage) error
}

// Sender delivers control messages to the phone
type Sender interface {
	Send(ctx context.Context, msg message.Message) error
}

// App is the companion's Telegram surface: notification buttons and
// commands that confirm actions back to the phone.
type App struct {
	api       API
	presenter AlertPresenter
	sender    Sender
	chatID    int64
	log       *slog.Logger
	errs      *apperrors.Handler
}

// New creates the app. Updates from chats other than chatID are ignored.
func New(api API, p AlertPresenter, sender Sender, chatID int64, log *slog.Logger) *App {
	return &App{
		api:       api,
		presenter: p,
		sender:    sender,
		chatID:    chatID,
		log:       log,
		errs:      apperrors.NewHandler(log),
	}
}

// Start handles updates until ctx is cancelled or the channel closes
func (a *App) Start(ctx context.Context, updates <-chan tgbotapi.Update) error {
	a.log.Info("Companion is now listening for updates")
	for {
		select {
		case <-ctx.Done():
			a.log.Info("Companion is shutting down")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := a.HandleUpdate(ctx, update); err != nil {
				a.log.Error("Error handling update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

// HandleUpdate processes a single Telegram update
func (a *App) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	chat := update.FromChat()
	if chat == nil || chat.ID != a.chatID {
		return nil
	}

	if update.CallbackQuery != nil {
		return a.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message != nil && update.Message.IsCommand() {
		return a.handleCommand(ctx, update.Message)
	}
	return nil
}

func (a *App) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if strings.HasPrefix(query.Data, reminderPrefix) {
		return a.handleReminderCallback(ctx, query)
	}

	action, alert, err := presenter.DecodeCallback(query.Data)
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.answer(query.ID, "This button no longer works.")
	}
	msg := query.Message

	switch action {
	case presenter.ActionOpen:
		view := a.presenter.OpenNotification(ctx, alert)
		if err := a.answer(query.ID, ""); err != nil {
			return err
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, view.Text(), presenter.AlertKeyboard(alert))
		_, err := a.api.Request(edit)
		return err

	default:
		if err := a.presenter.Acknowledge(ctx, alert); err != nil {
			a.errs.Handle(ctx, apperrors.NewTransportError(err, "send ack"))
			return a.answer(query.ID, msgSendFailed)
		}
		if err := a.answer(query.ID, "Got it"); err != nil {
			return err
		}
		text := msg.Text
		if !strings.HasSuffix(text, ackSuffix) {
			text += ackSuffix
		}
		_, err := a.api.Request(tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text))
		return err
	}
}

func (a *App) handleCommand(ctx context.Context, m *tgbotapi.Message) error {
	args := strings.TrimSpace(m.CommandArguments())

	var out message.Message
	switch m.Command() {
	case "glucose":
		mgdl, err := utils.ParseGlucose(args)
		if err != nil {
			return a.reply(msgGlucoseFormat)
		}
		out = message.LogGlucose{MgDL: mgdl}
	case "med":
		name := args
		if name == "" {
			name = message.DefaultMedicationName
		}
		out = message.ConfirmMedication{Name: name}
	case "checked":
		out = message.ConfirmGlucoseReminder{}
	default:
		return a.reply(helpText)
	}

	if err := a.sender.Send(ctx, out); err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(msgSendFailed)
	}
	a.log.Info("Control message sent", "message_type", out.Kind())
	return a.reply(msgSent)
}

func (a *App) answer(callbackID, text string) error {
	_, err := a.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (a *App) reply(text string) error {
	_, err := a.api.Send(tgbotapi.NewMessage(a.chatID, text))
	return err
}

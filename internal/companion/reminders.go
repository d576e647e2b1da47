package companion

import (
	"context"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/transport"
)

// Reminder button callback data: "rem|med|<name>" or "rem|glucose"
const (
	reminderPrefix   = "rem|"
	takenPrefix      = reminderPrefix + "med|"
	checkedData      = reminderPrefix + "glucose"
	maxCallbackBytes = 64
	takenSuffix      = "\n\n✔️ Taken"
	checkedSuffix    = "\n\n✔️ Checked"
)

// Inbound shows reminders as chat messages and passes every other message to
// next.
func (a *App) Inbound(next transport.Handler) transport.Handler {
	return func(ctx context.Context, env transport.Envelope) {
		rem, ok := env.Message.(message.Reminder)
		if !ok {
			next(ctx, env)
			return
		}
		if err := a.ShowReminder(rem); err != nil {
			a.errs.Handle(ctx, apperrors.NewTransportError(err, "show reminder").WithContext("reminder", rem.For))
		}
	}
}

// ShowReminder posts a reminder with a button that confirms it on the phone.
// Meal reminders have no button.
func (a *App) ShowReminder(rem message.Reminder) error {
	text := "⏰ " + rem.Title
	if rem.Body != "" {
		text += "\n" + rem.Body
	}
	msg := tgbotapi.NewMessage(a.chatID, text)
	if kb, ok := reminderKeyboard(rem); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := a.api.Send(msg); err != nil {
		return err
	}
	a.log.Info("Reminder shown", "reminder", rem.For, "title", rem.Title)
	return nil
}

func reminderKeyboard(rem message.Reminder) (tgbotapi.InlineKeyboardMarkup, bool) {
	var button tgbotapi.InlineKeyboardButton
	switch rem.For {
	case domain.ReminderMedication:
		name := rem.Medication
		if name == "" {
			name = message.DefaultMedicationName
		}
		button = tgbotapi.NewInlineKeyboardButtonData("💊 Taken", takenPrefix+fitCallback(name, maxCallbackBytes-len(takenPrefix)))
	case domain.ReminderGlucose:
		button = tgbotapi.NewInlineKeyboardButtonData("🩸 Checked", checkedData)
	default:
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(button)), true
}

// fitCallback cuts s to at most n bytes without splitting a rune
func fitCallback(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func (a *App) handleReminderCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	var out message.Message
	var suffix string
	switch {
	case query.Data == checkedData:
		out, suffix = message.ConfirmGlucoseReminder{}, checkedSuffix
	case strings.HasPrefix(query.Data, takenPrefix):
		out, suffix = message.ConfirmMedication{Name: strings.TrimPrefix(query.Data, takenPrefix)}, takenSuffix
	default:
		return a.answer(query.ID, "This button no longer works.")
	}

	if err := a.sender.Send(ctx, out); err != nil {
		a.errs.Handle(ctx, err)
		return a.answer(query.ID, msgSendFailed)
	}
	a.log.Info("Control message sent", "message_type", out.Kind())
	if err := a.answer(query.ID, "Sent to phone"); err != nil {
		return err
	}

	msg := query.Message
	if msg == nil || strings.HasSuffix(msg.Text, suffix) {
		return nil
	}
	_, err := a.api.Request(tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, msg.Text+suffix))
	return err
}

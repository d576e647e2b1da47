package companion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarscope/sugarscope/internal/domain"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/transport"
)

var dueAt = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func TestInbound_ShowsRemindersAndPassesAlerts(t *testing.T) {
	f := setupApp(t)
	var passed []message.Message
	handle := f.app.Inbound(func(_ context.Context, env transport.Envelope) {
		passed = append(passed, env.Message)
	})
	ctx := context.Background()

	handle(ctx, transport.Envelope{Message: message.Reminder{
		For: domain.ReminderMedication, Title: "Medication", Body: "Metformin 500 mg", Medication: "Metformin", Timestamp: dueAt,
	}})
	handle(ctx, transport.Envelope{Message: alertMsg})

	assert.Equal(t, []message.Message{alertMsg}, passed)
	require.Len(t, f.api.sent, 1)
	msg := f.api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(chatID), msg.ChatID)
	assert.Equal(t, "⏰ Medication\nMetformin 500 mg", msg.Text)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "rem|med|Metformin", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestShowReminder_Buttons(t *testing.T) {
	f := setupApp(t)

	require.NoError(t, f.app.ShowReminder(message.Reminder{For: domain.ReminderGlucose, Title: "Blood glucose check", Timestamp: dueAt}))
	require.NoError(t, f.app.ShowReminder(message.Reminder{For: domain.ReminderMeal, Title: "Meal reminder", Body: "Lunch", Timestamp: dueAt}))

	require.Len(t, f.api.sent, 2)
	glucose := f.api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "⏰ Blood glucose check", glucose.Text)
	kb := glucose.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, checkedData, *kb.InlineKeyboard[0][0].CallbackData)

	meal := f.api.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, "⏰ Meal reminder\nLunch", meal.Text)
	assert.Nil(t, meal.ReplyMarkup)
}

func TestReminderButtons_ConfirmOnPhone(t *testing.T) {
	f := setupApp(t)
	ctx := context.Background()

	require.NoError(t, f.app.HandleUpdate(ctx, callback(chatID, "rem|med|Metformin", "⏰ Medication\nMetformin 500 mg")))
	require.NoError(t, f.app.HandleUpdate(ctx, callback(chatID, checkedData, "⏰ Blood glucose check")))

	assert.Equal(t, []message.Message{
		message.ConfirmMedication{Name: "Metformin"},
		message.ConfirmGlucoseReminder{},
	}, f.sender.sent)

	require.Len(t, f.api.requests, 4)
	edit := f.api.requests[1].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, "⏰ Medication\nMetformin 500 mg"+takenSuffix, edit.Text)
	edit = f.api.requests[3].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, "⏰ Blood glucose check"+checkedSuffix, edit.Text)
}

func TestReminderButtons_SendFailureKeepsMessage(t *testing.T) {
	f := setupApp(t)
	f.sender.err = errors.New("transport closed")

	require.NoError(t, f.app.HandleUpdate(context.Background(), callback(chatID, checkedData, "⏰ Blood glucose check")))
	require.Len(t, f.api.requests, 1)
	answer := f.api.requests[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, msgSendFailed, answer.Text)
}

func TestReminderButtons_Unknown(t *testing.T) {
	f := setupApp(t)

	require.NoError(t, f.app.HandleUpdate(context.Background(), callback(chatID, "rem|nap", "")))
	assert.Empty(t, f.sender.sent)
	require.Len(t, f.api.requests, 1)
}

func TestFitCallback(t *testing.T) {
	assert.Equal(t, "Metformin", fitCallback("Metformin", 55))

	long := strings.Repeat("é", 40)
	got := fitCallback(long, 55)
	assert.LessOrEqual(t, len(got), 55)
	assert.Equal(t, strings.Repeat("é", 27), got)
}

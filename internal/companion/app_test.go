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
	"go.uber.org/goleak"

	"github.com/sugarscope/sugarscope/internal/domain"
	"github.com/sugarscope/sugarscope/internal/logger"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/presenter"
)

const chatID = 99

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakePresenter struct {
	opened []message.AlertMessage
	acked  []message.AlertMessage
	ackErr error
}

func (p *fakePresenter) OpenNotification(_ context.Context, m message.AlertMessage) presenter.AlertView {
	p.opened = append(p.opened, m)
	return presenter.NewAlertView(m)
}

func (p *fakePresenter) Acknowledge(_ context.Context, m message.AlertMessage) error {
	p.acked = append(p.acked, m)
	return p.ackErr
}

type fakeSender struct {
	sent []message.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, m message.Message) error {
	s.sent = append(s.sent, m)
	return s.err
}

type fixture struct {
	app    *App
	api    *fakeAPI
	pres   *fakePresenter
	sender *fakeSender
}

func setupApp(t *testing.T) fixture {
	t.Helper()
	f := fixture{api: &fakeAPI{}, pres: &fakePresenter{}, sender: &fakeSender{}}
	f.app = New(f.api, f.pres, f.sender, chatID, logger.Discard())
	return f
}

var alertMsg = message.NewAlert(domain.LevelExceeded, 26.7, 25, time.Date(2026, 3, 10, 11, 30, 0, 0, time.UTC))

func callback(chat int64, data, text string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 5, Text: text, Chat: &tgbotapi.Chat{ID: chat}},
	}}
}

func command(chat int64, text string) tgbotapi.Update {
	n := strings.IndexByte(text, ' ')
	if n < 0 {
		n = len(text)
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chat},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Length: n}},
	}}
}

func TestOpenRebuildsInAppAlert(t *testing.T) {
	f := setupApp(t)

	err := f.app.HandleUpdate(context.Background(), callback(chatID, presenter.EncodeCallback(presenter.ActionOpen, alertMsg), "⚠️ Sugar Limit Exceeded"))
	require.NoError(t, err)

	require.Len(t, f.pres.opened, 1)
	assert.Equal(t, alertMsg.Key(), f.pres.opened[0].Key())

	require.Len(t, f.api.requests, 2)
	edit, ok := f.api.requests[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, presenter.NewAlertView(alertMsg).Text(), edit.Text)
	assert.Equal(t, 5, edit.MessageID)
	require.NotNil(t, edit.ReplyMarkup)
}

func TestGotItAcknowledges(t *testing.T) {
	f := setupApp(t)

	err := f.app.HandleUpdate(context.Background(), callback(chatID, presenter.EncodeCallback(presenter.ActionAck, alertMsg), "⚠️ Sugar Limit Exceeded"))
	require.NoError(t, err)

	require.Len(t, f.pres.acked, 1)
	assert.Equal(t, domain.LevelExceeded, f.pres.acked[0].Level)

	edit := f.api.requests[len(f.api.requests)-1].(tgbotapi.EditMessageTextConfig)
	assert.True(t, strings.HasSuffix(edit.Text, ackSuffix))
	assert.Nil(t, edit.ReplyMarkup)
}

func TestGotItFailureKeepsButtons(t *testing.T) {
	f := setupApp(t)
	f.pres.ackErr = errors.New("transport closed")

	err := f.app.HandleUpdate(context.Background(), callback(chatID, presenter.EncodeCallback(presenter.ActionAck, alertMsg), "x"))
	require.NoError(t, err)

	require.Len(t, f.api.requests, 1)
	answer := f.api.requests[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, msgSendFailed, answer.Text)
}

func TestBadCallbackData(t *testing.T) {
	f := setupApp(t)

	require.NoError(t, f.app.HandleUpdate(context.Background(), callback(chatID, "open|?|1|2|3", "x")))
	assert.Empty(t, f.pres.opened)
	assert.Empty(t, f.pres.acked)
}

func TestCommandsSendControlMessages(t *testing.T) {
	f := setupApp(t)
	ctx := context.Background()

	require.NoError(t, f.app.HandleUpdate(ctx, command(chatID, "/glucose 140")))
	require.NoError(t, f.app.HandleUpdate(ctx, command(chatID, "/med")))
	require.NoError(t, f.app.HandleUpdate(ctx, command(chatID, "/med Metformin")))
	require.NoError(t, f.app.HandleUpdate(ctx, command(chatID, "/checked")))

	assert.Equal(t, []message.Message{
		message.LogGlucose{MgDL: 140},
		message.ConfirmMedication{Name: message.DefaultMedicationName},
		message.ConfirmMedication{Name: "Metformin"},
		message.ConfirmGlucoseReminder{},
	}, f.sender.sent)
	assert.Len(t, f.api.sent, 4)
}

func TestCommandValidationAndHelp(t *testing.T) {
	f := setupApp(t)
	ctx := context.Background()

	require.NoError(t, f.app.HandleUpdate(ctx, command(chatID, "/glucose lots")))
	require.NoError(t, f.app.HandleUpdate(ctx, command(chatID, "/help")))

	assert.Empty(t, f.sender.sent)
	require.Len(t, f.api.sent, 2)
	assert.Equal(t, msgGlucoseFormat, f.api.sent[0].(tgbotapi.MessageConfig).Text)
	assert.Equal(t, helpText, f.api.sent[1].(tgbotapi.MessageConfig).Text)
}

func TestIgnoresOtherChats(t *testing.T) {
	f := setupApp(t)

	require.NoError(t, f.app.HandleUpdate(context.Background(), command(1, "/checked")))
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.api.sent)
}

func TestStartStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := setupApp(t)

	updates := make(chan tgbotapi.Update, 1)
	updates <- command(chatID, "/checked")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.app.Start(ctx, updates) }()

	require.Eventually(t, func() bool { return len(updates) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

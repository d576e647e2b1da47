package presenter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/message"
)

// Callback actions carried by notification buttons
const (
	ActionOpen = "open"
	ActionAck  = "ack"
)

// BotSender is the part of tgbotapi.BotAPI the notifier uses
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers system notifications as chat messages with
// Open and Got it buttons. The buttons carry the alert so a tap can rebuild it.
type TelegramNotifier struct {
	bot    BotSender
	chatID int64

	// QuietWarnings sends warning-level notifications without sound.
	QuietWarnings bool
}

func NewTelegramNotifier(bot BotSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// Schedule implements SystemNotifier
func (n *TelegramNotifier) Schedule(_ context.Context, note Notification) error {
	msg := tgbotapi.NewMessage(n.chatID, note.Title+"\n"+note.Body)
	msg.DisableNotification = note.Sound != SoundCritical && n.QuietWarnings
	msg.ReplyMarkup = AlertKeyboard(note.Alert)

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send notification %s: %w", note.ID, err)
	}
	return nil
}

// AlertKeyboard returns the Open / Got it buttons for an alert
func AlertKeyboard(m message.AlertMessage) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Open", EncodeCallback(ActionOpen, m)),
			tgbotapi.NewInlineKeyboardButtonData("Got it", EncodeCallback(ActionAck, m)),
		),
	)
}

// EncodeCallback packs an action and alert into button callback data
// (action|level|sugar|limit|unix millis), well under Telegram's 64 bytes.
func EncodeCallback(action string, m message.AlertMessage) string {
	level := "w"
	if m.Level == domain.LevelExceeded {
		level = "e"
	}
	return strings.Join([]string{
		action,
		level,
		strconv.FormatFloat(m.SugarGrams, 'f', -1, 64),
		strconv.FormatFloat(m.LimitGrams, 'f', -1, 64),
		strconv.FormatInt(m.Timestamp.UnixMilli(), 10),
	}, "|")
}

// DecodeCallback reverses EncodeCallback
func DecodeCallback(data string) (string, message.AlertMessage, error) {
	parts := strings.Split(data, "|")
	if len(parts) != 5 {
		return "", message.AlertMessage{}, apperrors.NewMalformedMessageError("callback data has wrong shape")
	}

	action := parts[0]
	if action != ActionOpen && action != ActionAck {
		return "", message.AlertMessage{}, apperrors.NewUnknownMessageError(action)
	}

	var level domain.AlertLevel
	switch parts[1] {
	case "w":
		level = domain.LevelWarning
	case "e":
		level = domain.LevelExceeded
	default:
		return "", message.AlertMessage{}, apperrors.NewMalformedMessageError("callback level")
	}

	sugar, err1 := strconv.ParseFloat(parts[2], 64)
	limit, err2 := strconv.ParseFloat(parts[3], 64)
	ms, err3 := strconv.ParseInt(parts[4], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", message.AlertMessage{}, apperrors.NewMalformedMessageError("callback numbers")
	}

	return action, message.NewAlert(level, sugar, limit, time.UnixMilli(ms)), nil
}

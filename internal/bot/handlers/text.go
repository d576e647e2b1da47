package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/bot/state"
	"github.com/sugarscope/sugarscope/internal/utils"
)

// TextHandler handles replies to a prompt the bot sent earlier
type TextHandler struct {
	*actions
}

// newTextHandler creates a new text handler
func newTextHandler(a *actions) *TextHandler {
	return &TextHandler{actions: a}
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	switch h.states.GetState(ctx, chatID) {
	case state.WaitingForSugar:
		grams, note, err := utils.ParseSugar(message.Text)
		if err != nil {
			return h.reply(chatID, msgSendSugar)
		}
		return h.logSugar(ctx, chatID, grams, note)
	case state.WaitingForGlucose:
		mgdl, err := utils.ParseGlucose(message.Text)
		if err != nil {
			return h.reply(chatID, msgSendGlucose)
		}
		return h.logGlucose(ctx, chatID, mgdl)
	case state.WaitingForFood:
		return h.findFood(ctx, chatID, message.Text)
	case state.WaitingForMealPhoto:
		return h.reply(chatID, msgSendMealPhoto)
	default:
		return h.reply(chatID, msgUseMenu)
	}
}

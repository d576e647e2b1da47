package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/bot/keyboards"
	"github.com/sugarscope/sugarscope/internal/bot/menus"
	"github.com/sugarscope/sugarscope/internal/bot/state"
)

// CallbackHandler handles menu button presses
type CallbackHandler struct {
	*actions
}

// newCallbackHandler creates a new callback handler
func newCallbackHandler(a *actions) *CallbackHandler {
	return &CallbackHandler{actions: a}
}

// Handle processes a callback query
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Answer first so the button stops spinning
	if _, err := h.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		h.log.Warn("Failed to answer callback query", "error", err)
	}
	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID

	if id, ok := strings.CutPrefix(query.Data, keyboards.DeleteReminderPrefix); ok {
		return h.deleteReminder(ctx, chatID, id)
	}

	switch query.Data {
	case keyboards.LogSugar:
		return h.ask(ctx, chatID, state.WaitingForSugar, msgSendSugar)
	case keyboards.LogGlucose:
		return h.ask(ctx, chatID, state.WaitingForGlucose, msgSendGlucose)
	case keyboards.ScanMeal:
		if h.deps.Meals == nil {
			return h.reply(chatID, msgAIUnavailable)
		}
		return h.ask(ctx, chatID, state.WaitingForMealPhoto, msgSendMealPhoto)
	case keyboards.FindFood:
		return h.ask(ctx, chatID, state.WaitingForFood, msgSendFoodQuery)
	case keyboards.Today:
		return h.showToday(ctx, chatID)
	case keyboards.UndoLast:
		return h.undoLast(ctx, chatID)
	case keyboards.MainMenuCB:
		h.states.ClearState(ctx, chatID)
		return menus.SendMainMenu(h.api, chatID)
	default:
		h.log.Debug("Unknown callback", "data", query.Data)
		return nil
	}
}

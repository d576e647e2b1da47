package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/bot/menus"
	"github.com/sugarscope/sugarscope/internal/bot/state"
	"github.com/sugarscope/sugarscope/internal/utils"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	*actions
}

// newCommandHandler creates a new command handler
func newCommandHandler(a *actions) *CommandHandler {
	return &CommandHandler{actions: a}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())
	h.log.Info("Handling command", "command", message.Command(), "chat_id", chatID)

	switch message.Command() {
	case "start":
		h.states.SetState(ctx, chatID, state.None)
		return menus.SendMainMenu(h.api, chatID)
	case "help":
		return h.reply(chatID, menus.HelpText)
	case "sugar":
		if args == "" {
			return h.ask(ctx, chatID, state.WaitingForSugar, msgSendSugar)
		}
		grams, note, err := utils.ParseSugar(args)
		if err != nil {
			return h.reply(chatID, msgSugarFormat)
		}
		return h.logSugar(ctx, chatID, grams, note)
	case "meal":
		sugar, carbs, desc, err := utils.ParseMeal(args)
		if err != nil {
			return h.reply(chatID, msgMealFormat)
		}
		return h.logMeal(ctx, chatID, sugar, carbs, desc)
	case "glucose":
		if args == "" {
			return h.ask(ctx, chatID, state.WaitingForGlucose, msgSendGlucose)
		}
		mgdl, err := utils.ParseGlucose(args)
		if err != nil {
			return h.reply(chatID, msgGlucoseFormat)
		}
		return h.logGlucose(ctx, chatID, mgdl)
	case "med":
		return h.logMedication(ctx, chatID, args)
	case "today":
		return h.showToday(ctx, chatID)
	case "undo":
		return h.undoLast(ctx, chatID)
	case "find":
		if args == "" {
			return h.ask(ctx, chatID, state.WaitingForFood, msgSendFoodQuery)
		}
		return h.findFood(ctx, chatID, args)
	case "remind":
		return h.addReminder(ctx, chatID, args)
	case "reminders":
		return h.showReminders(ctx, chatID)
	default:
		return h.reply(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

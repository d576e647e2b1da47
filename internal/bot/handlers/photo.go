package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/bot/keyboards"
	"github.com/sugarscope/sugarscope/internal/bot/menus"
	"github.com/sugarscope/sugarscope/internal/utils"
)

// PhotoHandler logs meals from food photos
type PhotoHandler struct {
	*actions
}

// newPhotoHandler creates a new photo handler
func newPhotoHandler(a *actions) *PhotoHandler {
	return &PhotoHandler{actions: a}
}

// Handle processes a photo message. Any photo is treated as a meal, with or
// without the menu button pressed first.
func (h *PhotoHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	h.states.ClearState(ctx, chatID)

	if h.deps.Meals == nil {
		return h.reply(chatID, msgAIUnavailable)
	}

	sugar, err := utils.ParseCaption(message.Caption)
	if err != nil {
		return h.reply(chatID, msgCaptionFormat)
	}

	// Get the largest photo
	photo := message.Photo[len(message.Photo)-1]
	url, err := h.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	processing, err := h.api.Send(tgbotapi.NewMessage(chatID, msgAnalyzing))
	if err != nil {
		return fmt.Errorf("failed to send processing message: %w", err)
	}
	defer func() {
		if _, err := h.api.Request(tgbotapi.NewDeleteMessage(chatID, processing.MessageID)); err != nil {
			h.log.Debug("Failed to delete processing message", "error", err)
		}
	}()

	scan, err := h.deps.Meals.ScanMeal(ctx, url, sugar)
	if err != nil {
		h.errs.Handle(ctx, err)
		return h.reply(chatID, msgAnalysisFailed)
	}
	h.log.Info("Meal scanned",
		"items", len(scan.Items),
		"sugar_overridden", scan.SugarOverridden,
		"low_confidence", scan.LowConfidence,
	)
	return h.replyWithKeyboard(chatID, menus.MealScan(scan), keyboards.AfterEntry())
}

package handlers

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/bot/state"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
)

// UpdateHandler handles telegram updates and coordinates other handlers
type UpdateHandler struct {
	api             API
	ownerChatID     int64
	log             *slog.Logger
	callbackHandler *CallbackHandler
	commandHandler  *CommandHandler
	textHandler     *TextHandler
	photoHandler    *PhotoHandler
}

// NewUpdateHandler creates a new update handler. Only ownerChatID is served;
// updates from every other chat are ignored.
func NewUpdateHandler(
	api API,
	deps Dependencies,
	stateManager state.StateManager,
	ownerChatID int64,
	log *slog.Logger,
) *UpdateHandler {
	a := &actions{
		api:    api,
		deps:   deps,
		states: stateManager,
		log:    log,
		errs:   apperrors.NewHandler(log),
	}
	return &UpdateHandler{
		api:             api,
		ownerChatID:     ownerChatID,
		log:             log,
		callbackHandler: newCallbackHandler(a),
		commandHandler:  newCommandHandler(a),
		textHandler:     newTextHandler(a),
		photoHandler:    newPhotoHandler(a),
	}
}

// Handle processes a telegram update
func (h *UpdateHandler) Handle(ctx context.Context, update tgbotapi.Update) error {
	chat := update.FromChat()
	if chat == nil {
		return nil
	}
	if chat.ID != h.ownerChatID {
		h.log.Warn("Ignoring update from unknown chat", "chat_id", chat.ID)
		return nil
	}

	if update.CallbackQuery != nil {
		return h.callbackHandler.Handle(ctx, update.CallbackQuery)
	}

	if update.Message != nil {
		if update.Message.IsCommand() {
			return h.commandHandler.Handle(ctx, update.Message)
		}

		if len(update.Message.Photo) > 0 {
			return h.photoHandler.Handle(ctx, update.Message)
		}

		if update.Message.Text != "" {
			return h.textHandler.Handle(ctx, update.Message)
		}
	}

	return nil
}

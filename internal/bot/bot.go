package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/bot/handlers"
	"github.com/sugarscope/sugarscope/internal/bot/state"
)

// Bot is the phone-side Telegram logging surface
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *handlers.UpdateHandler
	log     *slog.Logger
}

// NewBot authorizes against Telegram and wires the update handlers.
// A non-zero ownerChatID restricts the bot to that chat.
func NewBot(token string, deps handlers.Dependencies, states state.StateManager, ownerChatID int64, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Info("Bot authorized", "account", api.Self.UserName)
	return &Bot{
		api:     api,
		handler: handlers.NewUpdateHandler(api, deps, states, ownerChatID, log),
		log:     log,
	}, nil
}

// Start polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()
	b.log.Info("Bot is now listening for updates")

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Bot is shutting down")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				b.log.Debug("Received message", "chat_id", update.Message.Chat.ID, "text", update.Message.Text)
			}
			if err := b.handler.Handle(ctx, update); err != nil {
				b.log.Error("Error handling update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

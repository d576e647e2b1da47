package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/interfaces"
)

// API is the part of tgbotapi.BotAPI the handlers use
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	HealthLog interfaces.HealthLogger

	// Meals and Foods are nil when no Gemini key is configured.
	Meals interfaces.MealScanner
	Foods interfaces.FoodSearcher

	// Reminders is nil when reminders are not available.
	Reminders interfaces.ReminderManager
}

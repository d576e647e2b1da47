package keyboards

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Callback data for menu buttons
const (
	LogSugar   = "log_sugar"
	LogGlucose = "log_glucose"
	ScanMeal   = "scan_meal"
	FindFood   = "find_food"
	Today      = "today"
	UndoLast   = "undo_last"
	MainMenuCB = "main_menu"

	// DeleteReminderPrefix is followed by the reminder ID
	DeleteReminderPrefix = "rem_del:"
)

// MainMenu creates the main menu keyboard
func MainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍬 Log sugar", LogSugar),
			tgbotapi.NewInlineKeyboardButtonData("🩸 Glucose", LogGlucose),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽️ Scan meal", ScanMeal),
			tgbotapi.NewInlineKeyboardButtonData("🔎 Find food", FindFood),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Today", Today),
		),
	)
}

// BackToMenu creates a single back button
func BackToMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", MainMenuCB),
		),
	)
}

// AfterEntry is shown under a logged entry so a mistake is one tap away
func AfterEntry() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Undo", UndoLast),
			tgbotapi.NewInlineKeyboardButtonData("📊 Today", Today),
		),
	)
}

// DeleteReminders has one delete button per reminder, labelled by the caller
func DeleteReminders(ids []uuid.UUID, labels []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(ids)+1)
	for i, id := range ids {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+labels[i], DeleteReminderPrefix+id.String()),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", MainMenuCB),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

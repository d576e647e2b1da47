package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/bot/keyboards"
	"github.com/sugarscope/sugarscope/internal/bot/menus"
	"github.com/sugarscope/sugarscope/internal/bot/state"
	"github.com/sugarscope/sugarscope/internal/domain"
	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/message"
	"github.com/sugarscope/sugarscope/internal/utils"
)

const (
	msgSaveFailed     = "Couldn't save that. Please try again."
	msgReadFailed     = "Couldn't load today's log. Please try again."
	msgAIUnavailable  = "Food recognition isn't configured."
	msgNothingToUndo  = "Nothing logged today."
	msgSendSugar      = "How many grams of sugar? You can add a note after the number, e.g. \"12 cookie\"."
	msgSendGlucose    = "Send your glucose reading in mg/dL, e.g. \"132\"."
	msgSendMealPhoto  = "Send a photo of your meal. Put the sugar grams in the caption if you know them."
	msgSendFoodQuery  = "Which food should I look up?"
	msgUseMenu        = "Please use the menu or /help."
	msgSugarFormat    = "Use /sugar <grams> [note], e.g. /sugar 12 cookie"
	msgMealFormat     = "Use /meal <sugar g> <carbs g> <description>, e.g. /meal 8 45 pasta"
	msgGlucoseFormat  = "Use /glucose <mg/dL>, e.g. /glucose 132"
	msgCaptionFormat  = "Put only the sugar grams in the caption, e.g. \"18\"."
	msgAnalyzing      = "Analyzing the photo..."
	msgAnalysisFailed = "Sorry, I couldn't analyze that photo. Please try again or use /meal."
	msgRemindFormat   = "Use /remind <med|glucose|meal> <HH:mm[,HH:mm]> [name dose | label], e.g. /remind med 08:00,20:00 Metformin 500 mg"
	msgNoReminders    = "Reminders aren't available."
	msgReminderGone   = "That reminder no longer exists."
)

// actions holds the operations shared by command, text, callback and photo handlers
type actions struct {
	api    API
	deps   Dependencies
	states state.StateManager
	log    *slog.Logger
	errs   *apperrors.Handler
}

func (a *actions) reply(chatID int64, text string) error {
	_, err := a.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (a *actions) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	_, err := a.api.Send(msg)
	return err
}

// ask puts the chat into st and sends the prompt
func (a *actions) ask(ctx context.Context, chatID int64, st, prompt string) error {
	a.states.SetState(ctx, chatID, st)
	return a.replyWithKeyboard(chatID, prompt, keyboards.BackToMenu())
}

func (a *actions) saveEntry(ctx context.Context, chatID int64, entry domain.HealthLogEntry) error {
	a.states.ClearState(ctx, chatID)
	stored, err := a.deps.HealthLog.LogEntry(ctx, entry)
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, msgSaveFailed)
	}
	return a.replyWithKeyboard(chatID, "✅ "+menus.EntryLine(stored), keyboards.AfterEntry())
}

func (a *actions) logSugar(ctx context.Context, chatID int64, grams float64, note string) error {
	entry := domain.NewHealthLogEntry(domain.KindSugar, time.Time{})
	entry.Value = domain.Float(grams)
	entry.Unit = domain.UnitGrams
	entry.Note = note
	return a.saveEntry(ctx, chatID, entry)
}

func (a *actions) logMeal(ctx context.Context, chatID int64, sugar, carbs float64, description string) error {
	entry := domain.NewHealthLogEntry(domain.KindMeal, time.Time{})
	entry.Value = domain.Float(sugar)
	entry.SecondaryValue = domain.Float(carbs)
	entry.Unit = domain.UnitGrams
	entry.MealDescription = description
	return a.saveEntry(ctx, chatID, entry)
}

func (a *actions) logGlucose(ctx context.Context, chatID int64, mgdl float64) error {
	entry := domain.NewHealthLogEntry(domain.KindGlucose, time.Time{})
	entry.Value = domain.Float(mgdl)
	entry.Unit = domain.UnitMgDL
	return a.saveEntry(ctx, chatID, entry)
}

func (a *actions) logMedication(ctx context.Context, chatID int64, name string) error {
	if name == "" {
		name = message.DefaultMedicationName
	}
	entry := domain.NewHealthLogEntry(domain.KindMedication, time.Time{})
	entry.Note = name
	return a.saveEntry(ctx, chatID, entry)
}

func (a *actions) showToday(ctx context.Context, chatID int64) error {
	sum, err := a.deps.HealthLog.DailySummary(ctx)
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, msgReadFailed)
	}
	entries, err := a.deps.HealthLog.TodayEntries(ctx)
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, msgReadFailed)
	}
	return a.replyWithKeyboard(chatID, menus.Summary(sum, entries), keyboards.MainMenu())
}

func (a *actions) undoLast(ctx context.Context, chatID int64) error {
	entries, err := a.deps.HealthLog.TodayEntries(ctx)
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, msgReadFailed)
	}
	if len(entries) == 0 {
		return a.reply(chatID, msgNothingToUndo)
	}

	last := entries[len(entries)-1]
	if err := a.deps.HealthLog.DeleteEntry(ctx, last.ID); err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, msgSaveFailed)
	}
	return a.reply(chatID, "↩️ Removed: "+menus.EntryLine(last))
}

func (a *actions) findFood(ctx context.Context, chatID int64, query string) error {
	a.states.ClearState(ctx, chatID)
	if a.deps.Foods == nil {
		return a.reply(chatID, msgAIUnavailable)
	}
	foods, err := a.deps.Foods.SearchFoods(ctx, query)
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, fmt.Sprintf("Lookup for %q failed. Please try again.", query))
	}
	return a.reply(chatID, menus.Foods(query, foods))
}

func (a *actions) addReminder(ctx context.Context, chatID int64, args string) error {
	if a.deps.Reminders == nil {
		return a.reply(chatID, msgNoReminders)
	}
	kind, times, label, dose, err := utils.ParseReminder(args)
	if err != nil {
		return a.reply(chatID, msgRemindFormat)
	}
	rem, err := a.deps.Reminders.AddReminder(ctx, kind, times, label, dose)
	if apperrors.TypeOf(err) == apperrors.ErrorTypeValidation {
		return a.reply(chatID, msgRemindFormat)
	}
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, msgSaveFailed)
	}
	return a.reply(chatID, "⏰ Reminder set: "+menus.ReminderLine(rem))
}

func (a *actions) showReminders(ctx context.Context, chatID int64) error {
	if a.deps.Reminders == nil {
		return a.reply(chatID, msgNoReminders)
	}
	reminders, err := a.deps.Reminders.ListReminders(ctx)
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, msgReadFailed)
	}
	if len(reminders) == 0 {
		return a.reply(chatID, menus.Reminders(nil))
	}

	ids := make([]uuid.UUID, len(reminders))
	labels := make([]string, len(reminders))
	for i, r := range reminders {
		ids[i] = r.ID
		labels[i] = menus.ReminderLine(r)
	}
	return a.replyWithKeyboard(chatID, menus.Reminders(reminders), keyboards.DeleteReminders(ids, labels))
}

func (a *actions) deleteReminder(ctx context.Context, chatID int64, rawID string) error {
	if a.deps.Reminders == nil {
		return a.reply(chatID, msgNoReminders)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		a.log.Debug("Bad reminder ID in callback", "data", rawID)
		return nil
	}
	err = a.deps.Reminders.DeleteReminder(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return a.reply(chatID, msgReminderGone)
	}
	if err != nil {
		a.errs.Handle(ctx, err)
		return a.reply(chatID, msgSaveFailed)
	}
	return a.showReminders(ctx, chatID)
}

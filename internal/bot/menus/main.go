package menus

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sugarscope/sugarscope/internal/bot/keyboards"
	"github.com/sugarscope/sugarscope/internal/domain"
	"github.com/sugarscope/sugarscope/internal/services"
)

// Sender is the part of the bot API menus need
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

const mainMenuText = `🍬 *SugarScope* keeps an eye on your daily sugar

Log what you eat and I'll warn you before you hit your daily limit.
Alerts also go to your paired companion.

Choose an action:`

// HelpText lists the commands
const HelpText = `Commands:
/sugar <grams> [note] - log sugar, e.g. /sugar 12 cookie
/meal <sugar g> <carbs g> <description> - log a meal
/glucose <mg/dL> - log a glucose reading
/med [name] - log medication
/today - today's total and entries
/undo - remove the last entry from today
/find <food> - look up sugar and carbs
/remind <med|glucose|meal> <HH:mm[,HH:mm]> [name dose | label] - daily reminder on the companion
/reminders - list and delete reminders
/start - main menu
/help - this message

Send a food photo to log it as a meal. Put a number in the caption to use it as the sugar grams.`

// SendMainMenu sends the main menu to a chat
func SendMainMenu(api Sender, chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, mainMenuText)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboards.MainMenu()
	_, err := api.Send(msg)
	return err
}

// Summary formats the day's total and entries
func Summary(sum domain.DailySummary, entries []domain.HealthLogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Today: %s g of sugar", grams(sum.SugarGrams))
	if sum.LimitGrams > 0 {
		fmt.Fprintf(&b, " (limit %s g, %d%%)", grams(sum.LimitGrams), int(sum.SugarGrams/sum.LimitGrams*100))
	}
	b.WriteString("\n")

	for _, a := range sum.Alerts {
		fmt.Fprintf(&b, "🔔 %s alert at %s\n", a.Level, a.Timestamp.Format("15:04"))
	}

	if len(entries) == 0 {
		b.WriteString("\nNothing logged yet.")
		return b.String()
	}
	b.WriteString("\n")
	for _, e := range entries {
		b.WriteString(EntryLine(e))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// EntryLine renders one entry as "15:04 <icon> <details>"
func EntryLine(e domain.HealthLogEntry) string {
	ts := e.Timestamp.Format("15:04")
	switch e.Kind {
	case domain.KindSugar:
		line := fmt.Sprintf("%s 🍬 %s g sugar", ts, grams(value(e.Value)))
		return withNote(line, e.Note)
	case domain.KindMeal:
		line := fmt.Sprintf("%s 🍽️ %s g sugar, %s g carbs", ts, grams(value(e.Value)), grams(value(e.SecondaryValue)))
		return withNote(line, e.MealDescription)
	case domain.KindGlucose:
		if e.Value == nil {
			return withNote(ts+" 🩸 glucose check", e.Note)
		}
		return withNote(fmt.Sprintf("%s 🩸 %s mg/dL", ts, grams(*e.Value)), e.Note)
	case domain.KindMedication:
		return withNote(ts+" 💊 medication", e.Note)
	default:
		return ts + " " + string(e.Kind)
	}
}

// Foods formats nutrition lookup results
func Foods(query string, foods []services.FoodRecord) string {
	if len(foods) == 0 {
		return fmt.Sprintf("Nothing found for %q.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 Results for %q (per 100 g):\n", query)
	for _, f := range foods {
		fmt.Fprintf(&b, "• %s: %s g sugar, %s g carbs\n", f.Name, grams(f.SugarPer100Grams), grams(f.CarbsPer100Grams))
	}
	return strings.TrimRight(b.String(), "\n")
}

// MealScan formats the result of a photo scan
func MealScan(scan *services.MealScan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍽️ Logged: %s\n", scan.Entry.MealDescription)
	fmt.Fprintf(&b, "🍬 Sugar: %s g", grams(value(scan.Entry.Value)))
	if scan.SugarOverridden {
		b.WriteString(" (from caption)")
	}
	fmt.Fprintf(&b, "\n🍞 Carbs: %s g", grams(value(scan.Entry.SecondaryValue)))
	if scan.LowConfidence {
		b.WriteString("\n\n⚠️ Not sure about this one. Use /undo and /meal if it looks wrong.")
	}
	return b.String()
}

// ReminderLine renders a reminder as "<icon> <times> <details>"
func ReminderLine(r domain.Reminder) string {
	times := strings.Join(r.Times, ", ")
	switch r.Kind {
	case domain.ReminderMedication:
		return strings.TrimSpace(fmt.Sprintf("💊 %s %s %s", times, r.Label, r.Dose))
	case domain.ReminderGlucose:
		return withNote("🩸 "+times+" glucose check", r.Label)
	default:
		return withNote("🍽️ "+times+" meal", r.Label)
	}
}

// Reminders lists the configured reminders
func Reminders(reminders []domain.Reminder) string {
	if len(reminders) == 0 {
		return "No reminders yet. Add one with /remind, e.g. /remind med 08:00,20:00 Metformin 500 mg"
	}
	var b strings.Builder
	b.WriteString("⏰ Reminders:\n")
	for _, r := range reminders {
		b.WriteString(ReminderLine(r))
		if !r.Enabled {
			b.WriteString(" (off)")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func withNote(line, note string) string {
	if note == "" {
		return line
	}
	return line + " (" + note + ")"
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// grams rounds to one decimal and drops a trailing ".0"
func grams(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

package bot

import (
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"habit-tracker/internal/calendar"
	"habit-tracker/internal/model"
	"habit-tracker/internal/service"
)

var weekDayNames = [7]string{"Воскресенье", "Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота"}

var weekDayAliases = map[string]int{
	"вс": 0, "воскресенье": 0, "sun": 0, "sunday": 0,
	"пн": 1, "понедельник": 1, "mon": 1, "monday": 1,
	"вт": 2, "вторник": 2, "tue": 2, "tuesday": 2,
	"ср": 3, "среда": 3, "wed": 3, "wednesday": 3,
	"чт": 4, "четверг": 4, "thu": 4, "thursday": 4,
	"пт": 5, "пятница": 5, "fri": 5, "friday": 5,
	"сб": 6, "суббота": 6, "sat": 6, "saturday": 6,
}

// parseWeekDays reads a weekday mask from free text: presets, short names or numbers with 0 as Sunday.
func parseWeekDays(text string) ([]int, error) {
	value := strings.TrimSpace(strings.ToLower(text))
	switch value {
	case "":
		return nil, fmt.Errorf("укажи хотя бы один день")
	case strings.ToLower(btnEveryDay), "ежедневно", "daily":
		return []int{0, 1, 2, 3, 4, 5, 6}, nil
	case strings.ToLower(btnWorkdays), "weekdays":
		return []int{1, 2, 3, 4, 5}, nil
	case strings.ToLower(btnWeekend), "weekend":
		return []int{0, 6}, nil
	}

	tokens := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == '.' || unicode.IsSpace(r)
	})

	var days []int
	for _, token := range tokens {
		if d, ok := weekDayAliases[token]; ok {
			days = append(days, d)
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("неизвестный день %q", token)
		}
		days = append(days, n)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("укажи хотя бы один день")
	}

	slices.Sort(days)
	return slices.Compact(days), nil
}

// renderDay formats a day view; toggle buttons are attached only when the view is today.
func renderDay(view *service.DayView, today bool) (string, tgbotapi.InlineKeyboardMarkup) {
	markup := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📅 <b>%s, %s</b>\n", weekDayNames[calendar.Weekday(view.Date)], view.Date.Format("02.01.2006")))

	if len(view.PossibleHabits) == 0 {
		builder.WriteString("На этот день привычек нет.")
		return builder.String(), markup
	}

	done := 0
	var lines strings.Builder
	for _, habit := range view.PossibleHabits {
		icon := "⬜"
		if view.IsCompleted(habit.ID) {
			icon = "✅"
			done++
		}
		lines.WriteString(fmt.Sprintf("%s %s\n", icon, escape(normalizeTitle(habit.Title))))
		if today {
			label := fmt.Sprintf("%s %s", icon, shortTitle(habit.Title, 28))
			markup.InlineKeyboard = append(markup.InlineKeyboard,
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, cbTogglePrefix+habit.ID)))
		}
	}

	builder.WriteString(fmt.Sprintf("Выполнено %d из %d\n\n", done, len(view.PossibleHabits)))
	builder.WriteString(lines.String())
	if today {
		builder.WriteString("\nНажми на привычку, чтобы отметить её.")
	}
	return strings.TrimSpace(builder.String()), markup
}

// renderSummary lists the most recent limit days, newest first.
func renderSummary(summary []model.DaySummary, limit int) string {
	if len(summary) == 0 {
		return "История пока пуста. Отметь первую привычку через /today."
	}

	var builder strings.Builder
	builder.WriteString("📊 <b>История</b>\n")
	shown := 0
	for i := len(summary) - 1; i >= 0 && shown < limit; i-- {
		entry := summary[i]
		builder.WriteString(fmt.Sprintf("%s %s · %s/%s · %s\n",
			entry.Date.Format("02.01.2006"),
			progressBar(entry.Completed, entry.Amount, 5),
			strconv.FormatFloat(entry.Completed, 'f', -1, 64),
			strconv.FormatFloat(entry.Amount, 'f', -1, 64),
			service.FormatPercent(entry.Completed, entry.Amount)))
		shown++
	}
	if hidden := len(summary) - shown; hidden > 0 {
		builder.WriteString(fmt.Sprintf("…и ещё %d дн. ранее", hidden))
	}
	return strings.TrimSpace(builder.String())
}

func progressBar(completed, amount float64, width int) string {
	filled := 0
	if amount > 0 {
		filled = int(completed / amount * float64(width))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}

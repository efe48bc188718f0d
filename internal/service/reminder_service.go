package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"habit-tracker/internal/model"
)

var weekDayShort = [7]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// ReminderService builds human-readable texts for scheduled notifications.
// Both texts are read-only views of today and never create a day record.
type ReminderService struct {
	habits *HabitService
}

func NewReminderService(habits *HabitService) *ReminderService {
	return &ReminderService{habits: habits}
}

// MorningReminder lists today's habits that are not done yet.
// An empty string means there is nothing to remind about.
func (s *ReminderService) MorningReminder(ctx context.Context) (string, error) {
	view, err := s.habits.QueryDay(ctx, s.habits.Today())
	if err != nil {
		return "", err
	}

	var pending []model.Habit
	for _, habit := range view.PossibleHabits {
		if !view.IsCompleted(habit.ID) {
			pending = append(pending, habit)
		}
	}
	if len(pending) == 0 {
		return "", nil
	}

	var builder strings.Builder
	builder.WriteString("☀️ <b>Привычки на сегодня</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", view.Date.Format("02.01.2006")))
	for _, habit := range pending {
		builder.WriteString(fmt.Sprintf("⬜ %s\n", html.EscapeString(strings.TrimSpace(habit.Title))))
	}
	builder.WriteString("\nОтметить выполнение: /today")
	return builder.String(), nil
}

// EveningReport summarizes today's progress. An empty string means no habits were due.
func (s *ReminderService) EveningReport(ctx context.Context) (string, error) {
	view, err := s.habits.QueryDay(ctx, s.habits.Today())
	if err != nil {
		return "", err
	}
	if len(view.PossibleHabits) == 0 {
		return "", nil
	}

	var done, missed []string
	for _, habit := range view.PossibleHabits {
		title := html.EscapeString(strings.TrimSpace(habit.Title))
		if view.IsCompleted(habit.ID) {
			done = append(done, title)
		} else {
			missed = append(missed, title)
		}
	}

	var builder strings.Builder
	builder.WriteString("🌙 <b>Итоги дня</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s · выполнено %d из %d (%s)\n\n",
		view.Date.Format("02.01.2006"), len(done), len(view.PossibleHabits), FormatPercent(float64(len(done)), float64(len(view.PossibleHabits)))))
	for _, title := range done {
		builder.WriteString(fmt.Sprintf("✅ %s\n", title))
	}
	for _, title := range missed {
		builder.WriteString(fmt.Sprintf("⬜ %s\n", title))
	}
	return strings.TrimSpace(builder.String()), nil
}

// FormatWeekDays renders a weekday mask as short names starting from Monday.
func FormatWeekDays(days []int) string {
	if len(days) == 0 {
		return "—"
	}
	present := make(map[int]bool, len(days))
	for _, d := range days {
		present[d] = true
	}
	var names []string
	for _, d := range []int{1, 2, 3, 4, 5, 6, 0} {
		if present[d] {
			names = append(names, weekDayShort[d])
		}
	}
	if len(names) == 7 {
		return "каждый день"
	}
	return strings.Join(names, ", ")
}

// FormatPercent renders completed/amount as a whole percentage.
func FormatPercent(completed, amount float64) string {
	if amount <= 0 {
		return "—"
	}
	return fmt.Sprintf("%.0f%%", completed/amount*100)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"habit-tracker/internal/calendar"
	"habit-tracker/internal/logger"
	"habit-tracker/internal/model"
	"habit-tracker/internal/repository"
)

// HabitInput represents data required to create a habit.
type HabitInput struct {
	Title    string `validate:"required"`
	WeekDays []int  `validate:"dive,min=0,max=6"`
}

// DayView is what a single calendar day looks like: the habits due and the ones done.
type DayView struct {
	Date              time.Time
	PossibleHabits    []model.Habit
	CompletedHabitIDs []string
}

// IsCompleted reports whether habitID is in the day's completion set.
func (v DayView) IsCompleted(habitID string) bool {
	return slices.Contains(v.CompletedHabitIDs, habitID)
}

// HabitService creates habits, answers day queries and toggles today's completions.
type HabitService struct {
	habits   HabitStore
	days     DayStore
	cal      *calendar.Calendar
	validate *validator.Validate
}

func NewHabitService(habits HabitStore, days DayStore, cal *calendar.Calendar) *HabitService {
	return &HabitService{
		habits:   habits,
		days:     days,
		cal:      cal,
		validate: validator.New(),
	}
}

// Today is the calendar day toggles apply to.
func (s *HabitService) Today() time.Time {
	return s.cal.Today()
}

// CreateHabit stores a habit that starts today. Duplicate weekdays are collapsed.
func (s *HabitService) CreateHabit(ctx context.Context, input HabitInput) (*model.Habit, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Struct(input); err != nil {
		return nil, describeValidation(err)
	}

	days := slices.Clone(input.WeekDays)
	slices.Sort(days)
	days = slices.Compact(days)

	habit := model.Habit{
		Title:     input.Title,
		CreatedAt: s.cal.Today(),
	}
	for _, wd := range days {
		habit.WeekDays = append(habit.WeekDays, model.HabitWeekDay{WeekDay: wd})
	}

	if err := s.habits.Create(ctx, &habit); err != nil {
		return nil, storageError("create habit", err)
	}
	logger.Debug("habit stored", "id", habit.ID, "weekdays", days)
	return &habit, nil
}

// QueryDay lists the habits eligible on date and those completed. It never creates a day record.
func (s *HabitService) QueryDay(ctx context.Context, date time.Time) (*DayView, error) {
	day := calendar.StartOfDay(date)

	possible, err := s.habits.FindEligible(ctx, day)
	if err != nil {
		return nil, storageError("query day", err)
	}

	view := &DayView{
		Date:              day,
		PossibleHabits:    possible,
		CompletedHabitIDs: []string{},
	}

	stored, err := s.days.GetByDate(ctx, day)
	switch {
	case err == nil:
		view.CompletedHabitIDs = stored.CompletedHabitIDs()
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, storageError("query day", err)
	}
	return view, nil
}

// ToggleHabit flips the habit's completion for today and returns the new state.
// Eligibility is not checked; an unknown habit yields ErrNotFound.
func (s *HabitService) ToggleHabit(ctx context.Context, habitID string) (bool, error) {
	if _, err := uuid.Parse(habitID); err != nil {
		return false, validationErrorf("malformed habit id %q", habitID)
	}

	if _, err := s.habits.FindByID(ctx, habitID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("habit %s: %w", habitID, ErrNotFound)
		}
		return false, storageError("find habit", err)
	}

	today := s.cal.Today()
	day, err := s.days.GetOrCreate(ctx, today)
	if err != nil {
		return false, storageError("get day", err)
	}

	completed, err := s.days.ToggleCompletion(ctx, day.ID, habitID)
	if err != nil {
		return false, storageError("toggle habit", err)
	}
	logger.Debug("habit toggled", "habit", habitID, "day", today.Format(time.DateOnly), "completed", completed)
	return completed, nil
}

// ParseDay accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if day, err := calendar.ParseDay(raw); err == nil {
		return day, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return calendar.StartOfDay(ts), nil
	}
	return time.Time{}, validationErrorf("unparsable date %q", raw)
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationErrorf("%v", err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.StructField() {
		case "Title":
			parts = append(parts, "title must not be empty")
		default:
			parts = append(parts, fmt.Sprintf("weekday %v out of range 0..6", fe.Value()))
		}
	}
	return validationErrorf("%s", strings.Join(parts, "; "))
}

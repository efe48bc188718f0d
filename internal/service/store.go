package service

import (
	"context"
	"time"

	"habit-tracker/internal/model"
)

// HabitStore persists habits and answers eligibility queries.
type HabitStore interface {
	Create(ctx context.Context, habit *model.Habit) error
	FindByID(ctx context.Context, id string) (*model.Habit, error)
	FindEligible(ctx context.Context, day time.Time) ([]model.Habit, error)
	CountEligible(ctx context.Context, day time.Time) (int64, error)
}

// DayStore persists days and their completion sets.
type DayStore interface {
	GetOrCreate(ctx context.Context, date time.Time) (*model.Day, error)
	GetByDate(ctx context.Context, date time.Time) (*model.Day, error)
	ToggleCompletion(ctx context.Context, dayID, habitID string) (bool, error)
	CountCompletions(ctx context.Context) ([]model.DayCount, error)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"habit-tracker/internal/calendar"
	"habit-tracker/internal/model"
)

// HabitRepository stores habits and their weekday masks.
type HabitRepository struct {
	db *gorm.DB
}

func NewHabitRepository(db *gorm.DB) *HabitRepository {
	return &HabitRepository{db: db}
}

// Create inserts the habit together with its weekdays in one transaction.
// CreatedAt is stored as the calendar day it falls on.
func (r *HabitRepository) Create(ctx context.Context, habit *model.Habit) error {
	habit.CreatedAt = calendar.StartOfDay(habit.CreatedAt)
	if err := r.db.WithContext(ctx).Create(habit).Error; err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	return nil
}

func (r *HabitRepository) FindByID(ctx context.Context, id string) (*model.Habit, error) {
	var habit model.Habit
	if err := r.db.WithContext(ctx).Preload("WeekDays").Where("id = ?", id).First(&habit).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &habit, nil
}

// FindEligible returns the habits created on or before day that recur on its weekday, in creation order.
func (r *HabitRepository) FindEligible(ctx context.Context, day time.Time) ([]model.Habit, error) {
	var habits []model.Habit
	if err := r.eligible(ctx, day).Preload("WeekDays").Order("habits.created_at ASC, habits.id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("find eligible habits: %w", err)
	}
	return habits, nil
}

// CountEligible is len(FindEligible(day)) without loading the rows.
func (r *HabitRepository) CountEligible(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	if err := r.eligible(ctx, day).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count eligible habits: %w", err)
	}
	return count, nil
}

func (r *HabitRepository) eligible(ctx context.Context, day time.Time) *gorm.DB {
	day = calendar.StartOfDay(day)
	return r.db.WithContext(ctx).Model(&model.Habit{}).
		Where("habits.created_at <= ?", day).
		Where("EXISTS (SELECT 1 FROM habit_week_days hwd WHERE hwd.habit_id = habits.id AND hwd.week_day = ?)", calendar.Weekday(day))
}

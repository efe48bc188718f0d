package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-tracker/internal/calendar"
	"habit-tracker/internal/model"
)

// maxToggleAttempts bounds the delete/insert loop when concurrent toggles keep racing.
const maxToggleAttempts = 10

// ErrToggleContention is returned when a toggle kept losing races to concurrent toggles.
var ErrToggleContention = errors.New("toggle contention")

// DayRepository stores days and their completions.
type DayRepository struct {
	db *gorm.DB
}

func NewDayRepository(db *gorm.DB) *DayRepository {
	return &DayRepository{db: db}
}

// GetOrCreate returns the day for date, inserting it first when missing.
// The unique index on date makes concurrent first calls converge on one row.
func (r *DayRepository) GetOrCreate(ctx context.Context, date time.Time) (*model.Day, error) {
	date = calendar.StartOfDay(date)
	db := r.db.WithContext(ctx)

	candidate := model.Day{Date: date}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("create day: %w", err)
	}

	day, err := r.GetByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("find day: %w", err)
	}
	return day, nil
}

// GetByDate loads the day with its completions, or ErrNotFound. It never creates a day.
func (r *DayRepository) GetByDate(ctx context.Context, date time.Time) (*model.Day, error) {
	var day model.Day
	err := r.db.WithContext(ctx).Preload("Completions").
		Where("date = ?", calendar.StartOfDay(date)).
		First(&day).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &day, nil
}

// CountCompletions returns every persisted day ordered by date, each with its number
// of completed habits. Days and counts come from one statement so they agree.
func (r *DayRepository) CountCompletions(ctx context.Context) ([]model.DayCount, error) {
	var counts []model.DayCount
	if err := r.db.WithContext(ctx).Model(&model.Day{}).
		Select("days.id, days.date, COUNT(day_habits.habit_id) AS completed").
		Joins("LEFT JOIN day_habits ON day_habits.day_id = days.id").
		Group("days.id, days.date").
		Order("days.date ASC").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count completions: %w", err)
	}
	return counts, nil
}

// ToggleCompletion flips the (dayID, habitID) completion and reports the new state.
//
// Each step is a single statement on the unique pair: a delete that removes an
// existing completion, or an insert that does nothing on conflict. When the insert
// loses to a concurrent toggle the loop starts over and deletes that row instead,
// so every toggle observes and flips a distinct state.
func (r *DayRepository) ToggleCompletion(ctx context.Context, dayID, habitID string) (bool, error) {
	db := r.db.WithContext(ctx)
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		res := db.Where("day_id = ? AND habit_id = ?", dayID, habitID).Delete(&model.DayHabit{})
		if res.Error != nil {
			return false, fmt.Errorf("delete completion: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return false, nil
		}

		res = db.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&model.DayHabit{DayID: dayID, HabitID: habitID})
		if res.Error != nil {
			return false, fmt.Errorf("insert completion: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return true, nil
		}
	}
	return false, ErrToggleContention
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Day exists only for dates with at least one completion toggle.
type Day struct {
	ID          string     `gorm:"type:varchar(36);primaryKey"`
	Date        time.Time  `gorm:"uniqueIndex;not null"`
	Completions []DayHabit `gorm:"foreignKey:DayID;constraint:OnDelete:CASCADE"`
}

// DayHabit records that a habit was completed on a day.
type DayHabit struct {
	DayID   string `gorm:"type:varchar(36);primaryKey"`
	HabitID string `gorm:"type:varchar(36);primaryKey;index"`
	Habit   Habit  `gorm:"foreignKey:HabitID;constraint:OnDelete:CASCADE"`
}

func (d *Day) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// CompletedHabitIDs lists the habits completed on the day.
func (d *Day) CompletedHabitIDs() []string {
	if d == nil {
		return []string{}
	}
	ids := make([]string, 0, len(d.Completions))
	for _, c := range d.Completions {
		ids = append(ids, c.HabitID)
	}
	return ids
}

// DayCount is a persisted day with the number of habits completed on it.
type DayCount struct {
	ID        string
	Date      time.Time
	Completed int64
}

// DaySummary is the completion ratio of one persisted day.
type DaySummary struct {
	DayID     string
	Date      time.Time
	Completed float64
	Amount    float64
}

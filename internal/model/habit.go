package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Habit recurs on a fixed set of weekdays starting from the day it was created.
type Habit struct {
	ID        string         `gorm:"type:varchar(36);primaryKey"`
	Title     string         `gorm:"not null"`
	CreatedAt time.Time      `gorm:"index;not null;autoCreateTime:false"`
	WeekDays  []HabitWeekDay `gorm:"foreignKey:HabitID;constraint:OnDelete:CASCADE"`
}

// HabitWeekDay marks that a habit recurs on WeekDay (0=Sunday..6=Saturday).
type HabitWeekDay struct {
	HabitID string `gorm:"type:varchar(36);primaryKey"`
	WeekDay int    `gorm:"primaryKey;autoIncrement:false"`
}

func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// Days returns the weekday mask as plain indices.
func (h Habit) Days() []int {
	days := make([]int, 0, len(h.WeekDays))
	for _, wd := range h.WeekDays {
		days = append(days, wd.WeekDay)
	}
	return days
}

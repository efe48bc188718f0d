package service

import (
	"context"

	"habit-tracker/internal/model"
)

// SummaryService computes the completion ratio of every persisted day.
type SummaryService struct {
	habits HabitStore
	days   DayStore
}

func NewSummaryService(habits HabitStore, days DayStore) *SummaryService {
	return &SummaryService{habits: habits, days: days}
}

// Summary returns one entry per stored day, oldest first. Amount is recomputed from the
// current habits, so it reflects what was eligible on that date given the immutable masks.
func (s *SummaryService) Summary(ctx context.Context) ([]model.DaySummary, error) {
	days, err := s.days.CountCompletions(ctx)
	if err != nil {
		return nil, storageError("summary", err)
	}

	summary := make([]model.DaySummary, 0, len(days))
	for _, day := range days {
		amount, err := s.habits.CountEligible(ctx, day.Date)
		if err != nil {
			return nil, storageError("summary", err)
		}
		summary = append(summary, model.DaySummary{
			DayID:     day.ID,
			Date:      day.Date,
			Completed: float64(day.Completed),
			Amount:    float64(amount),
		})
	}
	return summary, nil
}

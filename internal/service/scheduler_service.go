package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"habit-tracker/internal/calendar"
	"habit-tracker/internal/logger"
)

// jobTimeout bounds a single run of a scheduled job.
const jobTimeout = 30 * time.Second

// SchedulerService runs the daily bot jobs in the configured timezone.
type SchedulerService struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		timeout: jobTimeout,
	}
}

// ScheduleDaily registers job to run every day at the HH:MM time at.
// Each run gets its own deadline; failures are logged under name.
func (s *SchedulerService) ScheduleDaily(name, at string, job func(context.Context) error) (cron.EntryID, error) {
	spec, err := buildDailySpec(at)
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", name, err)
	}
	return s.cron.AddFunc(spec, func() { s.run(name, job) })
}

func (s *SchedulerService) run(name string, job func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduled job failed", "job", name, "err", err)
		return
	}
	logger.Debug("scheduled job done", "job", name, "took", time.Since(started))
}

// Entries reports how many jobs are registered.
func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(at string) (string, error) {
	hour, minute, err := calendar.ParseClock(at)
	if err != nil {
		return "", err
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

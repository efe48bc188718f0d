package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"habit-tracker/internal/bot"
	"habit-tracker/internal/calendar"
	"habit-tracker/internal/config"
	"habit-tracker/internal/logger"
	"habit-tracker/internal/repository"
	"habit-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "err", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Fatal("logger", "err", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", "err", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	habitRepo := repository.NewHabitRepository(db)
	dayRepo := repository.NewDayRepository(db)

	cal := calendar.New(cfg.Location)
	habitSvc := service.NewHabitService(habitRepo, dayRepo, cal)
	summarySvc := service.NewSummaryService(habitRepo, dayRepo)
	reminderSvc := service.NewReminderService(habitSvc)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, habitSvc, summarySvc, reminderSvc)
	if err != nil {
		logger.Fatal("bot", "err", err)
	}

	scheduler := service.NewSchedulerService(cfg.Location)
	jobs := []struct {
		name string
		at   string
		run  func(context.Context) error
	}{
		{"morning reminder", cfg.ReminderTime, telegramBot.SendMorningReminders},
		{"evening report", cfg.SummaryTime, telegramBot.SendEveningReports},
	}
	for _, job := range jobs {
		if job.at == "" {
			continue
		}
		if _, err := scheduler.ScheduleDaily(job.name, job.at, job.run); err != nil {
			logger.Fatal("scheduler", "err", err)
		}
		logger.Info("job scheduled", "job", job.name, "at", job.at, "tz", cfg.Location)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("habit tracker bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped with error", "err", err)
	}
	logger.Info("shutdown complete")
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"habit-tracker/internal/calendar"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	Location      *time.Location
	ReminderTime  string
	SummaryTime   string
	LogLevel      log.Level
	LogFile       string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ReminderTime:  envOr("REMINDER_TIME", "09:00"),
		SummaryTime:   envOr("SUMMARY_TIME", "21:30"),
		LogFile:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		Location:      time.Local,
		LogLevel:      log.InfoLevel,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "habit_tracker.db"
	}

	if tz := strings.TrimSpace(os.Getenv("TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		level, err := log.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return cfg, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
		}
		cfg.LogLevel = level
	}

	var err error
	if cfg.ReminderTime, err = normalizeClock("REMINDER_TIME", cfg.ReminderTime); err != nil {
		return cfg, err
	}
	if cfg.SummaryTime, err = normalizeClock("SUMMARY_TIME", cfg.SummaryTime); err != nil {
		return cfg, err
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.TrimSpace(value)
}

// normalizeClock accepts HH:MM, or an empty/"off" value meaning the job is disabled.
func normalizeClock(name, raw string) (string, error) {
	if raw == "" || strings.EqualFold(raw, "off") {
		return "", nil
	}
	hour, minute, err := calendar.ParseClock(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

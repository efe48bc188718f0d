package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"habit-tracker/internal/calendar"
	"habit-tracker/internal/model"
	"habit-tracker/internal/repository"
)

type testEnv struct {
	now     time.Time
	habits  *HabitService
	summary *SummaryService
	days    *repository.DayRepository
}

func setupService(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	return setupServiceIn(t, time.UTC, now)
}

func setupServiceIn(t *testing.T, loc *time.Location, now time.Time) *testEnv {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "habits.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{now: now}
	cal := calendar.NewWithClock(loc, func() time.Time { return env.now })
	habitRepo := repository.NewHabitRepository(db)
	env.days = repository.NewDayRepository(db)
	env.habits = NewHabitService(habitRepo, env.days, cal)
	env.summary = NewSummaryService(habitRepo, env.days)
	return env
}

// wednesday is 2024-03-06 10:00 UTC, weekday 3.
var wednesday = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

func TestDrinkWaterScenario(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	habit, err := env.habits.CreateHabit(ctx, HabitInput{Title: "Drink water", WeekDays: []int{1, 3, 5}})
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}

	view, err := env.habits.QueryDay(ctx, wednesday)
	if err != nil {
		t.Fatalf("QueryDay: %v", err)
	}
	if len(view.PossibleHabits) != 1 || view.PossibleHabits[0].ID != habit.ID {
		t.Fatalf("expected Drink water to be possible, got %+v", view.PossibleHabits)
	}
	if len(view.CompletedHabitIDs) != 0 {
		t.Fatalf("expected no completions, got %v", view.CompletedHabitIDs)
	}

	completed, err := env.habits.ToggleHabit(ctx, habit.ID)
	if err != nil {
		t.Fatalf("ToggleHabit: %v", err)
	}
	if !completed {
		t.Error("first toggle should complete the habit")
	}
	view, _ = env.habits.QueryDay(ctx, wednesday)
	if len(view.CompletedHabitIDs) != 1 || view.CompletedHabitIDs[0] != habit.ID {
		t.Errorf("expected [%s], got %v", habit.ID, view.CompletedHabitIDs)
	}

	completed, err = env.habits.ToggleHabit(ctx, habit.ID)
	if err != nil {
		t.Fatalf("ToggleHabit: %v", err)
	}
	if completed {
		t.Error("second toggle should un-complete the habit")
	}
	view, _ = env.habits.QueryDay(ctx, wednesday)
	if len(view.CompletedHabitIDs) != 0 {
		t.Errorf("expected no completions, got %v", view.CompletedHabitIDs)
	}

	summary, err := env.summary.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary) != 1 {
		t.Fatalf("expected one summary entry, got %d", len(summary))
	}
	entry := summary[0]
	if !entry.Date.Equal(calendar.StartOfDay(wednesday)) {
		t.Errorf("expected entry for %v, got %v", calendar.StartOfDay(wednesday), entry.Date)
	}
	if entry.Completed != 0 || entry.Amount != 1 {
		t.Errorf("expected completed=0 amount=1, got completed=%v amount=%v", entry.Completed, entry.Amount)
	}
}

func TestLocalDateDiffersFromUTC(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*60*60)
	// Thursday 01:00 local is still Wednesday 22:00 in UTC.
	now := time.Date(2024, 3, 7, 1, 0, 0, 0, zone)
	env := setupServiceIn(t, zone, now)
	ctx := context.Background()

	habit, err := env.habits.CreateHabit(ctx, HabitInput{Title: "Stretch", WeekDays: []int{4}})
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}

	view, err := env.habits.QueryDay(ctx, now)
	if err != nil {
		t.Fatalf("QueryDay: %v", err)
	}
	if len(view.PossibleHabits) != 1 || view.PossibleHabits[0].ID != habit.ID {
		t.Fatalf("expected the Thursday habit to be possible, got %+v", view.PossibleHabits)
	}

	completed, err := env.habits.ToggleHabit(ctx, habit.ID)
	if err != nil {
		t.Fatalf("ToggleHabit: %v", err)
	}
	if !completed {
		t.Error("first toggle should complete the habit")
	}

	summary, err := env.summary.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary) != 1 {
		t.Fatalf("expected one summary entry, got %d", len(summary))
	}
	entry := summary[0]
	if got := entry.Date.Format(time.DateOnly); got != "2024-03-07" {
		t.Errorf("expected entry for the local date 2024-03-07, got %s", got)
	}
	if entry.Completed != 1 || entry.Amount != 1 {
		t.Errorf("expected completed=1 amount=1, got completed=%v amount=%v", entry.Completed, entry.Amount)
	}
}

func TestQueryDayNeverCreatesDay(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	if _, err := env.habits.CreateHabit(ctx, HabitInput{Title: "Walk", WeekDays: []int{3}}); err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := env.habits.QueryDay(ctx, wednesday); err != nil {
			t.Fatalf("QueryDay: %v", err)
		}
	}

	if _, err := env.days.GetByDate(ctx, wednesday); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected no day record after queries, got %v", err)
	}
	summary, err := env.summary.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary) != 0 {
		t.Errorf("expected empty summary, got %d entries", len(summary))
	}
}

func TestQueryDayBeforeCreation(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	if _, err := env.habits.CreateHabit(ctx, HabitInput{Title: "Drink water", WeekDays: []int{1, 3, 5}}); err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}

	// Previous Wednesday matches the weekday but predates the habit.
	view, err := env.habits.QueryDay(ctx, wednesday.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("QueryDay: %v", err)
	}
	if len(view.PossibleHabits) != 0 {
		t.Errorf("expected no possible habits before creation, got %+v", view.PossibleHabits)
	}
}

func TestToggleHabitInvolution(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	habit, err := env.habits.CreateHabit(ctx, HabitInput{Title: "Floss", WeekDays: []int{3}})
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}

	var last bool
	for i := 0; i < 3; i++ {
		last, err = env.habits.ToggleHabit(ctx, habit.ID)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}
	if !last {
		t.Error("three toggles should equal one toggle")
	}
}

func TestToggleHabitTargetsToday(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	habit, err := env.habits.CreateHabit(ctx, HabitInput{Title: "Floss", WeekDays: []int{3, 4}})
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}
	if _, err := env.habits.ToggleHabit(ctx, habit.ID); err != nil {
		t.Fatalf("ToggleHabit: %v", err)
	}

	env.now = wednesday.Add(24 * time.Hour)
	completed, err := env.habits.ToggleHabit(ctx, habit.ID)
	if err != nil {
		t.Fatalf("ToggleHabit: %v", err)
	}
	if !completed {
		t.Error("a new day starts with an empty completion set")
	}

	wed, _ := env.habits.QueryDay(ctx, wednesday)
	thu, _ := env.habits.QueryDay(ctx, env.now)
	if len(wed.CompletedHabitIDs) != 1 || len(thu.CompletedHabitIDs) != 1 {
		t.Errorf("expected one completion on each day, got %v and %v", wed.CompletedHabitIDs, thu.CompletedHabitIDs)
	}
}

func TestToggleHabitErrors(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	if _, err := env.habits.ToggleHabit(ctx, "not-a-uuid"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := env.habits.ToggleHabit(ctx, "7f1c2a9e-1111-4222-8333-944455556666"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.days.GetByDate(ctx, wednesday); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("a rejected toggle must not create a day, got %v", err)
	}
}

func TestCreateHabitValidation(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	tests := []struct {
		name  string
		input HabitInput
	}{
		{"empty title", HabitInput{Title: "", WeekDays: []int{1}}},
		{"blank title", HabitInput{Title: "   ", WeekDays: []int{1}}},
		{"weekday too large", HabitInput{Title: "Run", WeekDays: []int{1, 7}}},
		{"negative weekday", HabitInput{Title: "Run", WeekDays: []int{-1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.habits.CreateHabit(ctx, tt.input); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateHabitCollapsesDuplicates(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	habit, err := env.habits.CreateHabit(ctx, HabitInput{Title: "  Yoga ", WeekDays: []int{5, 3, 5, 3}})
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}
	if habit.Title != "Yoga" {
		t.Errorf("expected trimmed title, got %q", habit.Title)
	}
	days := habit.Days()
	if len(days) != 2 || days[0] != 3 || days[1] != 5 {
		t.Errorf("expected weekdays [3 5], got %v", days)
	}
	if !habit.CreatedAt.Equal(calendar.StartOfDay(wednesday)) {
		t.Errorf("expected createdAt at start of day, got %v", habit.CreatedAt)
	}
}

func TestCreateHabitAllowsEmptyMask(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	if _, err := env.habits.CreateHabit(ctx, HabitInput{Title: "Someday"}); err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}
	view, err := env.habits.QueryDay(ctx, wednesday)
	if err != nil {
		t.Fatalf("QueryDay: %v", err)
	}
	if len(view.PossibleHabits) != 0 {
		t.Errorf("a habit without weekdays is never eligible, got %+v", view.PossibleHabits)
	}
}

func TestSummaryValues(t *testing.T) {
	env := setupService(t, wednesday)
	ctx := context.Background()

	water, _ := env.habits.CreateHabit(ctx, HabitInput{Title: "Drink water", WeekDays: []int{1, 3, 5}})
	read, _ := env.habits.CreateHabit(ctx, HabitInput{Title: "Read", WeekDays: []int{3, 4}})
	if water == nil || read == nil {
		t.Fatal("failed to create habits")
	}

	// Wednesday: both eligible, both done.
	env.habits.ToggleHabit(ctx, water.ID)
	env.habits.ToggleHabit(ctx, read.ID)

	// Thursday: only Read is eligible, but Drink water is toggled anyway.
	env.now = wednesday.AddDate(0, 0, 1)
	env.habits.ToggleHabit(ctx, water.ID)

	summary, err := env.summary.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("expected two entries, got %d", len(summary))
	}

	want := []model.DaySummary{
		{Date: calendar.StartOfDay(wednesday), Completed: 2, Amount: 2},
		{Date: calendar.StartOfDay(env.now), Completed: 1, Amount: 1},
	}
	for i, w := range want {
		got := summary[i]
		if !got.Date.Equal(w.Date) || got.Completed != w.Completed || got.Amount != w.Amount {
			t.Errorf("entry %d: expected %+v, got %+v", i, w, got)
		}
		if got.DayID == "" {
			t.Errorf("entry %d: missing day id", i)
		}
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{raw: "2024-03-06", want: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
		{raw: " 2024-03-06 ", want: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
		{raw: "2024-03-06T23:10:00+03:00", want: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
		{raw: "yesterday", wantErr: true},
		{raw: "2024-13-01", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDay(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ParseDay(%q): expected ErrValidation, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDay(%q): %v", tt.raw, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDay(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

type failingHabitStore struct{}

var errDiskGone = errors.New("disk gone")

func (failingHabitStore) Create(context.Context, *model.Habit) error { return errDiskGone }
func (failingHabitStore) FindByID(context.Context, string) (*model.Habit, error) {
	return nil, errDiskGone
}
func (failingHabitStore) FindEligible(context.Context, time.Time) ([]model.Habit, error) {
	return nil, errDiskGone
}
func (failingHabitStore) CountEligible(context.Context, time.Time) (int64, error) {
	return 0, errDiskGone
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	svc := NewHabitService(failingHabitStore{}, nil, calendar.NewWithClock(time.UTC, func() time.Time { return wednesday }))
	ctx := context.Background()

	_, err := svc.CreateHabit(ctx, HabitInput{Title: "Run", WeekDays: []int{1}})
	if !errors.Is(err, ErrStorage) || !errors.Is(err, errDiskGone) {
		t.Errorf("expected storage error wrapping the cause, got %v", err)
	}
	if _, err := svc.QueryDay(ctx, wednesday); !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
	if _, err := svc.ToggleHabit(ctx, "7f1c2a9e-1111-4222-8333-944455556666"); !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

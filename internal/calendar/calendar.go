// Package calendar normalizes instants to calendar days.
//
// A calendar day is stored as midnight UTC of the local date it represents,
// so every persisted day compares and sorts the same way regardless of the
// zone or DST offset that was active when it was written. Weekday must always
// be computed with Weekday on such a value.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Calendar resolves "now" in a fixed location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Calendar for loc using the wall clock.
func New(loc *time.Location) *Calendar {
	return NewWithClock(loc, time.Now)
}

// NewWithClock is like New but reads the current time from now.
func NewWithClock(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, now: now}
}

// Location returns the zone used to decide local dates.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Today is the calendar day the current instant falls on in the calendar's zone.
func (c *Calendar) Today() time.Time {
	return StartOfDay(c.now().In(c.loc))
}

// StartOfDay truncates t to the date it shows in its own location.
// StartOfDay(StartOfDay(t)) == StartOfDay(t).
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date as a calendar day.
func ParseDay(raw string) (time.Time, error) {
	return time.Parse(time.DateOnly, raw)
}

// Weekday returns 0 for Sunday through 6 for Saturday.
func Weekday(day time.Time) int {
	return int(day.UTC().Weekday())
}

// ParseClock parses an HH:MM wall-clock time.
func ParseClock(raw string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}

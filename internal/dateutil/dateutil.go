// Package dateutil parses the dates and times accepted on the command line.
package dateutil

import (
	"errors"
	"strings"
	"time"
)

// Parse errors.
var (
	ErrInvalidDateFormat  = errors.New("date must be YYYY-MM-DD, today, tomorrow or a weekday name")
	ErrInvalidTimeFormat  = errors.New("time must be in HH:MM format")
	ErrInvalidMonthFormat = errors.New("month must be in YYYY-MM format")
	ErrEndDateBeforeStart = errors.New("end date must be on or after start date")
)

// weekdayMap maps weekday names to time.Weekday values.
var weekdayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseDay parses a day relative to relativeTo:
//   - Empty string or "today": relativeTo's day
//   - "tomorrow", "next-week"
//   - Weekday names: "monday" through "sunday" (next occurrence, always future)
//   - Absolute date: "2025-01-15" (YYYY-MM-DD), past dates allowed
//
// The result is midnight in relativeTo's location. Input is case-insensitive.
func ParseDay(s string, relativeTo time.Time) (time.Time, error) {
	today := TruncateToDay(relativeTo)
	input := strings.ToLower(strings.TrimSpace(s))

	switch input {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "next-week":
		return today.AddDate(0, 0, 7), nil
	}

	if targetDay, ok := weekdayMap[strings.TrimPrefix(input, "next-")]; ok {
		return nextWeekday(today, targetDay), nil
	}

	result, err := time.ParseInLocation("2006-01-02", input, relativeTo.Location())
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return result, nil
}

// ParseDateTime parses "<day> HH:MM", "<day>" (midnight) or an RFC 3339
// timestamp. <day> accepts anything ParseDay does.
func ParseDateTime(s string, relativeTo time.Time) (time.Time, error) {
	input := strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.In(relativeTo.Location()), nil
	}

	day, clock, hasClock := strings.Cut(input, " ")
	if !hasClock && len(input) > 10 && input[10] == 'T' {
		day, clock, hasClock = input[:10], input[11:], true
	}
	if !hasClock && isClock(input) {
		day, clock, hasClock = "", input, true
	}

	d, err := ParseDay(day, relativeTo)
	if err != nil {
		return time.Time{}, err
	}
	if !hasClock {
		return d, nil
	}

	minutes, err := ParseClock(strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(minutes) * time.Minute), nil
}

// ParseClock parses "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, ErrInvalidTimeFormat
	}
	return t.Hour()*60 + t.Minute(), nil
}

func isClock(s string) bool {
	_, err := ParseClock(s)
	return err == nil
}

// DateRange is a span of whole days.
type DateRange struct {
	Start time.Time
	End   time.Time // last day, inclusive
}

// NewDateRange parses two days with ParseDay. An empty end defaults to start.
func NewDateRange(startDate, endDate string, relativeTo time.Time) (*DateRange, error) {
	start, err := ParseDay(startDate, relativeTo)
	if err != nil {
		return nil, err
	}

	end := start
	if endDate != "" {
		end, err = ParseDay(endDate, relativeTo)
		if err != nil {
			return nil, err
		}
	}

	if end.Before(start) {
		return nil, ErrEndDateBeforeStart
	}

	return &DateRange{Start: start, End: end}, nil
}

// Bounds returns the half-open instant range [Start, End+1 day).
func (r *DateRange) Bounds() (from, to time.Time) {
	return r.Start, r.End.AddDate(0, 0, 1)
}

// ParseMonth parses "YYYY-MM" into the half-open range covering that month.
// An empty string means relativeTo's month.
func ParseMonth(s string, relativeTo time.Time) (from, to time.Time, err error) {
	input := strings.TrimSpace(s)
	if input == "" {
		from, to = MonthRange(relativeTo)
		return from, to, nil
	}

	t, err := time.ParseInLocation("2006-01", input, relativeTo.Location())
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidMonthFormat
	}
	from, to = MonthRange(t)
	return from, to, nil
}

// MonthRange returns midnight on the first day of t's month and of the next.
func MonthRange(t time.Time) (first, next time.Time) {
	first = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first, first.AddDate(0, 1, 0)
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (monday, sunday time.Time) {
	t = TruncateToDay(t)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday becomes day 7 in ISO week
	}
	monday = t.AddDate(0, 0, -(weekday - 1))
	sunday = monday.AddDate(0, 0, 6)
	return monday, sunday
}

// TruncateToDay returns t with time set to midnight.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// nextWeekday returns the next occurrence of the given weekday after today.
// If today is the target weekday, returns one week from today.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	current := today.Weekday()
	daysUntil := int(target) - int(current)
	if daysUntil <= 0 {
		daysUntil += 7
	}
	return today.AddDate(0, 0, daysUntil)
}

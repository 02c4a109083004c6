// Package scheduler places events into free business-hours slots.
package scheduler

import (
	"errors"
	"strings"
	"time"

	"github.com/javiermolinar/docket/internal/event"
)

// Default scheduling policy.
const (
	DefaultDayStart = "09:00"
	DefaultDayEnd   = "18:00"
	DefaultStep     = 30 * time.Minute
	DefaultHorizon  = 90 * 24 * time.Hour
)

// DefaultWorkdays are the days on which events may be placed.
var DefaultWorkdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// Scheduler provides time-aware scheduling operations.
type Scheduler struct {
	workdays map[string]bool
	dayStart string // "HH:MM"
	dayEnd   string // "HH:MM"
	step     time.Duration
	horizon  time.Duration
}

// New creates a new Scheduler with the given configuration.
// The search step and horizon start at DefaultStep and DefaultHorizon.
func New(workdays []string, dayStart, dayEnd string) *Scheduler {
	wd := make(map[string]bool)
	for _, d := range workdays {
		wd[strings.ToLower(d)] = true
	}
	return &Scheduler{
		workdays: wd,
		dayStart: dayStart,
		dayEnd:   dayEnd,
		step:     DefaultStep,
		horizon:  DefaultHorizon,
	}
}

// Default returns a Scheduler for Monday to Friday, 09:00 to 18:00.
func Default() *Scheduler {
	return New(DefaultWorkdays, DefaultDayStart, DefaultDayEnd)
}

// WithSearch sets the retry step and the maximum search horizon.
// Non-positive values keep the current setting.
func (s *Scheduler) WithSearch(step, horizon time.Duration) *Scheduler {
	if step > 0 {
		s.step = step
	}
	if horizon > 0 {
		s.horizon = horizon
	}
	return s
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps returns true if the intervals share any instant.
// Back-to-back intervals do not overlap, and a zero-length interval only
// overlaps an interval that strictly contains its instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

// Obstacles returns the intervals occupied by the dated events.
func Obstacles(events []*event.Event) []Interval {
	var out []Interval
	for _, e := range events {
		if start, end, ok := e.Span(); ok {
			out = append(out, Interval{Start: start, End: end})
		}
	}
	return out
}

// Item is an event waiting to be placed.
type Item struct {
	ID       string
	Duration time.Duration
}

// Placement is the slot chosen for an item.
type Placement struct {
	ID    string
	Start time.Time
	End   time.Time
}

// FindNextAvailableSlot returns the first start at or after candidate that
// falls on a workday within work hours and does not overlap any obstacle.
// On conflict the candidate advances by the search step. If the candidate
// moves past candidate+horizon, a *event.SchedulingError is returned.
func (s *Scheduler) FindNextAvailableSlot(candidate time.Time, obstacles []Interval, duration time.Duration) (time.Time, error) {
	limit := candidate.Add(s.horizon)
	fitsInDay := duration <= s.workdayLength()

	for {
		candidate = s.clamp(candidate)
		if candidate.After(limit) {
			return time.Time{}, &event.SchedulingError{Index: -1, Horizon: s.horizon}
		}

		end := candidate.Add(duration)
		if fitsInDay && end.After(s.closing(candidate)) {
			candidate = s.nextWorkdayStart(candidate)
			continue
		}

		slot := Interval{Start: candidate, End: end}
		if !conflicts(slot, obstacles) {
			return candidate, nil
		}
		candidate = candidate.Add(s.step)
	}
}

// ScheduleBatch places items in order, starting at start. Each placement
// becomes an obstacle for later items, and the search for the next item
// starts where the previous one ends. Zero-duration items may share the same
// instant since they do not overlap each other.
func (s *Scheduler) ScheduleBatch(items []Item, start time.Time, obstacles []Interval) ([]Placement, error) {
	occupied := make([]Interval, len(obstacles), len(obstacles)+len(items))
	copy(occupied, obstacles)

	placements := make([]Placement, 0, len(items))
	cursor := start
	for i, it := range items {
		slot, err := s.FindNextAvailableSlot(cursor, occupied, it.Duration)
		if err != nil {
			var serr *event.SchedulingError
			if errors.As(err, &serr) {
				serr.Index = i
				serr.EventID = it.ID
			}
			return placements, err
		}

		end := slot.Add(it.Duration)
		placements = append(placements, Placement{ID: it.ID, Start: slot, End: end})
		occupied = append(occupied, Interval{Start: slot, End: end})
		cursor = end
	}
	return placements, nil
}

func conflicts(slot Interval, obstacles []Interval) bool {
	for _, o := range obstacles {
		if slot.Overlaps(o) {
			return true
		}
	}
	return false
}

// clamp moves t forward to the nearest moment inside work hours on a workday.
func (s *Scheduler) clamp(t time.Time) time.Time {
	if !s.IsWorkday(t) {
		return s.nextWorkdayStart(t)
	}
	if t.Before(s.opening(t)) {
		return s.opening(t)
	}
	if !t.Before(s.closing(t)) {
		return s.nextWorkdayStart(t)
	}
	return t
}

// nextWorkdayStart returns the opening time of the first workday after t's day.
func (s *Scheduler) nextWorkdayStart(t time.Time) time.Time {
	return s.opening(s.nextWorkday(t).Date)
}

func (s *Scheduler) opening(t time.Time) time.Time {
	return atMinutes(t, parseTime(s.dayStart))
}

func (s *Scheduler) closing(t time.Time) time.Time {
	return atMinutes(t, parseTime(s.dayEnd))
}

func (s *Scheduler) workdayLength() time.Duration {
	return time.Duration(parseTime(s.dayEnd)-parseTime(s.dayStart)) * time.Minute
}

// atMinutes returns t's calendar day at the given minutes since midnight.
func atMinutes(t time.Time, minutes int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), minutes/60, minutes%60, 0, 0, t.Location())
}

// AvailableSlot represents an available time slot for scheduling.
type AvailableSlot struct {
	Date  time.Time
	Start string // "HH:MM"
	End   string // "HH:MM"
}

// NextAvailableStart returns the next available start time for scheduling.
// If now is before dayStart, returns dayStart of today (if workday) or next workday.
// If now is during work hours, returns now (rounded to next 15 min).
// If now is after dayEnd, returns dayStart of next workday.
func (s *Scheduler) NextAvailableStart(now time.Time) AvailableSlot {
	nowTime := now.Format("15:04")
	weekday := strings.ToLower(now.Weekday().String())

	if s.workdays[weekday] {
		if nowTime < s.dayStart {
			return AvailableSlot{
				Date:  now,
				Start: s.dayStart,
				End:   s.dayEnd,
			}
		}
		if nowTime < s.dayEnd {
			start := roundUpTo15Min(now).Format("15:04")
			if start >= s.dayEnd {
				return s.nextWorkday(now)
			}
			return AvailableSlot{
				Date:  now,
				Start: start,
				End:   s.dayEnd,
			}
		}
	}

	return s.nextWorkday(now)
}

// At returns the instant of the slot's start time on its date.
func (a AvailableSlot) At() time.Time {
	return atMinutes(a.Date, parseTime(a.Start))
}

// nextWorkday finds the next workday starting from the day after the given time.
func (s *Scheduler) nextWorkday(from time.Time) AvailableSlot {
	next := from.AddDate(0, 0, 1)
	for range 7 {
		weekday := strings.ToLower(next.Weekday().String())
		if s.workdays[weekday] {
			return AvailableSlot{
				Date:  next,
				Start: s.dayStart,
				End:   s.dayEnd,
			}
		}
		next = next.AddDate(0, 0, 1)
	}
	// Fallback: should never happen if workdays is configured correctly
	return AvailableSlot{
		Date:  from.AddDate(0, 0, 1),
		Start: s.dayStart,
		End:   s.dayEnd,
	}
}

// IsWorkday returns true if the given time falls on a configured workday.
func (s *Scheduler) IsWorkday(t time.Time) bool {
	weekday := strings.ToLower(t.Weekday().String())
	return s.workdays[weekday]
}

// IsWithinWorkHours returns true if the given time is within configured work hours.
func (s *Scheduler) IsWithinWorkHours(t time.Time) bool {
	if !s.IsWorkday(t) {
		return false
	}
	nowTime := t.Format("15:04")
	return nowTime >= s.dayStart && nowTime < s.dayEnd
}

// DayStart returns the configured day start time.
func (s *Scheduler) DayStart() string {
	return s.dayStart
}

// DayEnd returns the configured day end time.
func (s *Scheduler) DayEnd() string {
	return s.dayEnd
}

// Step returns the retry step used when a candidate slot conflicts.
func (s *Scheduler) Step() time.Duration {
	return s.step
}

// Horizon returns how far the slot search may advance before giving up.
func (s *Scheduler) Horizon() time.Duration {
	return s.horizon
}

// roundUpTo15Min rounds a time up to the next 15-minute boundary.
func roundUpTo15Min(t time.Time) time.Time {
	minute := t.Minute()
	remainder := minute % 15
	if remainder == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t
	}
	return t.Add(time.Duration(15-remainder) * time.Minute).Truncate(time.Minute)
}

// parseTime parses "HH:MM" to minutes since midnight.
func parseTime(s string) int {
	if len(s) < 5 {
		return 0
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h*60 + m
}

// Package event defines the core domain types for docket.
package event

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits.
const (
	MaxTitleLength   = 100
	MaxDetailsLength = 500
	MaxDuration      = 24.0 // hours
)

// Event is a user-owned schedulable item. A nil Date means the event is
// unscheduled and only shows up in the to-do list.
type Event struct {
	ID        string
	UserID    string
	Title     string
	Date      *time.Time
	Duration  float64 // hours
	Details   string
	Priority  int
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsScheduled returns true if the event has a date.
func (e *Event) IsScheduled() bool {
	return e.Date != nil
}

// DurationValue returns the event duration as a time.Duration.
func (e *Event) DurationValue() time.Duration {
	return Hours(e.Duration)
}

// Span returns the interval occupied by a dated event.
// The second return value is false for unscheduled events.
func (e *Event) Span() (start, end time.Time, ok bool) {
	if e.Date == nil {
		return time.Time{}, time.Time{}, false
	}
	return *e.Date, e.Date.Add(e.DurationValue()), true
}

// Hours converts a fractional number of hours to a time.Duration.
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// Draft holds the fields needed to create an event.
// A nil Priority appends the event to the end of the list.
type Draft struct {
	UserID   string
	Title    string
	Date     *time.Time
	Duration float64
	Details  string
	Priority *int
}

// Sanitize trims text fields and strips markup tags.
func (d *Draft) Sanitize() {
	d.Title = SanitizeText(d.Title)
	d.Details = SanitizeText(d.Details)
}

// Validate checks every field and reports all violations at once.
func (d *Draft) Validate() error {
	var v violations
	if strings.TrimSpace(d.UserID) == "" {
		v.add("user id is required")
	}
	v.title(d.Title)
	v.details(d.Details)
	v.duration(d.Duration)
	if d.Priority != nil && *d.Priority < 0 {
		v.add("priority must be a non-negative integer")
	}
	return v.err()
}

// New builds an Event from a validated draft. The store assigns ID,
// Version and timestamps on insert.
func (d *Draft) New(priority int) *Event {
	e := &Event{
		UserID:   d.UserID,
		Title:    d.Title,
		Duration: d.Duration,
		Details:  d.Details,
		Priority: priority,
	}
	if d.Date != nil {
		date := *d.Date
		e.Date = &date
	}
	return e
}

// Patch is a partial update. Nil fields are left unchanged.
// IfVersion makes the update conditional on the stored version.
type Patch struct {
	Title     *string
	Date      *time.Time
	ClearDate bool
	Duration  *float64
	Details   *string
	Priority  *int
	IfVersion *int64
}

// Sanitize trims text fields and strips markup tags.
func (p *Patch) Sanitize() {
	if p.Title != nil {
		s := SanitizeText(*p.Title)
		p.Title = &s
	}
	if p.Details != nil {
		s := SanitizeText(*p.Details)
		p.Details = &s
	}
}

// Validate checks the fields present in the patch.
func (p *Patch) Validate() error {
	var v violations
	if p.Title != nil {
		v.title(*p.Title)
	}
	if p.Details != nil {
		v.details(*p.Details)
	}
	if p.Duration != nil {
		v.duration(*p.Duration)
	}
	if p.Priority != nil && *p.Priority < 0 {
		v.add("priority must be a non-negative integer")
	}
	if p.ClearDate && p.Date != nil {
		v.add("date cannot be both set and cleared")
	}
	return v.err()
}

// IsEmpty returns true if the patch changes nothing.
func (p *Patch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && !p.ClearDate &&
		p.Duration == nil && p.Details == nil && p.Priority == nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeText removes markup tags and surrounding whitespace.
func SanitizeText(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

type violations []string

func (v *violations) add(msg string) {
	*v = append(*v, msg)
}

func (v *violations) title(s string) {
	if strings.TrimSpace(s) == "" {
		v.add("title is required")
		return
	}
	if utf8.RuneCountInString(s) > MaxTitleLength {
		v.add("title must be at most 100 characters")
	}
}

func (v *violations) details(s string) {
	if utf8.RuneCountInString(s) > MaxDetailsLength {
		v.add("details must be at most 500 characters")
	}
}

func (v *violations) duration(h float64) {
	if math.IsNaN(h) || h < 0 || h > MaxDuration {
		v.add("duration must be between 0 and 24 hours")
	}
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: v}
}

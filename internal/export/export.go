// Package export writes events in machine-readable formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"gopkg.in/yaml.v3"

	"github.com/javiermolinar/docket/internal/event"
)

// Format names accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatICS  = "ics"
)

// ProductID identifies docket in exported calendars.
const ProductID = "-//docket//docket//EN"

// Record is the serialized form of an event.
type Record struct {
	ID       string     `json:"id" yaml:"id"`
	Title    string     `json:"title" yaml:"title"`
	Date     *time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	Duration float64    `json:"duration" yaml:"duration"`
	Details  string     `json:"details,omitempty" yaml:"details,omitempty"`
	Priority int        `json:"priority" yaml:"priority"`
	Version  int64      `json:"version" yaml:"version"`
}

// Records converts events to records, keeping their order.
func Records(events []*event.Event) []Record {
	out := make([]Record, 0, len(events))
	for _, e := range events {
		r := Record{
			ID:       e.ID,
			Title:    e.Title,
			Duration: e.Duration,
			Details:  e.Details,
			Priority: e.Priority,
			Version:  e.Version,
		}
		if e.Date != nil {
			d := *e.Date
			r.Date = &d
		}
		out = append(out, r)
	}
	return out
}

// Write encodes events to w in the named format.
func Write(w io.Writer, format string, events []*event.Event) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return JSON(w, events)
	case FormatYAML, "yml":
		return YAML(w, events)
	case FormatICS, "ical":
		return ICS(w, events, time.Now())
	default:
		return fmt.Errorf("unknown export format %q (use json, yaml or ics)", format)
	}
}

// JSON writes events as an indented JSON array.
func JSON(w io.Writer, events []*event.Event) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Records(events)); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// YAML writes events as a YAML sequence.
func YAML(w io.Writer, events []*event.Event) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Records(events)); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return nil
}

// ICS writes the dated events as an iCalendar feed. Undated events have no
// place on a calendar and are skipped. now stamps DTSTAMP.
func ICS(w io.Writer, events []*event.Event, now time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)

	for _, e := range events {
		start, end, ok := e.Span()
		if !ok {
			continue
		}

		ve := cal.AddEvent(e.ID + "@docket")
		ve.SetDtStampTime(now)
		ve.SetCreatedTime(e.CreatedAt)
		ve.SetModifiedAt(e.UpdatedAt)
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(e.Title)
		if e.Details != "" {
			ve.SetDescription(e.Details)
		}
		ve.SetProperty(ics.ComponentPropertyPriority, strconv.Itoa(Priority(e.Priority)))
		ve.SetProperty(ics.ComponentPropertySequence, strconv.FormatInt(e.Version-1, 10))
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("encoding ics: %w", err)
	}
	return nil
}

// Priority maps a docket rank (0 first) onto the iCalendar scale, where 1
// is highest and 9 lowest.
func Priority(rank int) int {
	return min(max(rank+1, 1), 9)
}

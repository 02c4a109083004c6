package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/javiermolinar/docket/internal/event"
)

// at builds a local time on the given day. 2025-03-03 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, time.Local)
}

func TestFindNextAvailableSlot(t *testing.T) {
	s := Default()

	tests := []struct {
		name      string
		candidate time.Time
		obstacles []Interval
		duration  time.Duration
		want      time.Time
	}{
		{
			// 09:30 conflicts, 10:00 and 10:30 conflict, 11:00 is the first clear start.
			name:      "steps past an obstacle",
			candidate: at(3, 9, 30),
			obstacles: []Interval{{Start: at(3, 10, 0), End: at(3, 11, 0)}},
			duration:  90 * time.Minute,
			want:      at(3, 11, 0),
		},
		{
			name:      "saturday moves to monday opening",
			candidate: at(8, 14, 0),
			duration:  time.Hour,
			want:      at(10, 9, 0),
		},
		{
			name:      "sunday moves to monday opening",
			candidate: at(9, 8, 0),
			duration:  time.Hour,
			want:      at(10, 9, 0),
		},
		{
			name:      "before opening clamps to same day",
			candidate: at(4, 7, 15),
			duration:  time.Hour,
			want:      at(4, 9, 0),
		},
		{
			name:      "at closing moves to next day",
			candidate: at(4, 18, 0),
			duration:  time.Hour,
			want:      at(5, 9, 0),
		},
		{
			name:      "friday evening moves to monday",
			candidate: at(7, 19, 0),
			duration:  time.Hour,
			want:      at(10, 9, 0),
		},
		{
			name:      "free slot is returned unchanged",
			candidate: at(5, 13, 20),
			duration:  45 * time.Minute,
			want:      at(5, 13, 20),
		},
		{
			name:      "back-to-back does not conflict",
			candidate: at(3, 11, 0),
			obstacles: []Interval{{Start: at(3, 10, 0), End: at(3, 11, 0)}},
			duration:  time.Hour,
			want:      at(3, 11, 0),
		},
		{
			name:      "ending exactly at obstacle start does not conflict",
			candidate: at(3, 9, 0),
			obstacles: []Interval{{Start: at(3, 10, 0), End: at(3, 11, 0)}},
			duration:  time.Hour,
			want:      at(3, 9, 0),
		},
		{
			name:      "would end after closing moves to next day",
			candidate: at(3, 17, 30),
			duration:  time.Hour,
			want:      at(4, 9, 0),
		},
		{
			name:      "longer than a workday only needs an in-hours start",
			candidate: at(3, 12, 0),
			duration:  10 * time.Hour,
			want:      at(3, 12, 0),
		},
		{
			name:      "zero duration inside an obstacle is a conflict",
			candidate: at(3, 10, 0),
			obstacles: []Interval{{Start: at(3, 9, 30), End: at(3, 10, 30)}},
			duration:  0,
			want:      at(3, 10, 30),
		},
		{
			name:      "zero duration at obstacle start is free",
			candidate: at(3, 10, 0),
			obstacles: []Interval{{Start: at(3, 10, 0), End: at(3, 11, 0)}},
			duration:  0,
			want:      at(3, 10, 0),
		},
		{
			name:      "fully booked day rolls over",
			candidate: at(3, 9, 0),
			obstacles: []Interval{{Start: at(3, 9, 0), End: at(3, 18, 0)}},
			duration:  30 * time.Minute,
			want:      at(4, 9, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindNextAvailableSlot(tt.candidate, tt.obstacles, tt.duration)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got.Format(time.RFC3339), tt.want.Format(time.RFC3339))
			}
		})
	}
}

func TestFindNextAvailableSlot_Horizon(t *testing.T) {
	s := Default().WithSearch(0, 7*24*time.Hour)

	// Three weeks fully booked: nothing fits within a one-week horizon.
	obstacles := []Interval{{Start: at(3, 0, 0), End: at(24, 0, 0)}}

	_, err := s.FindNextAvailableSlot(at(3, 9, 0), obstacles, time.Hour)
	if !errors.Is(err, event.ErrNoSlot) {
		t.Fatalf("expected ErrNoSlot, got %v", err)
	}
	var serr *event.SchedulingError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SchedulingError, got %T", err)
	}
	if serr.Horizon != 7*24*time.Hour {
		t.Errorf("horizon: got %s", serr.Horizon)
	}
}

func TestFindNextAvailableSlot_CustomStep(t *testing.T) {
	s := Default().WithSearch(15*time.Minute, 0)
	obstacles := []Interval{{Start: at(3, 9, 0), End: at(3, 9, 45)}}

	got, err := s.FindNextAvailableSlot(at(3, 9, 0), obstacles, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := at(3, 9, 45); !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
	if s.Horizon() != DefaultHorizon {
		t.Errorf("expected default horizon to be kept, got %s", s.Horizon())
	}
}

func TestScheduleBatch(t *testing.T) {
	s := Default()
	obstacles := []Interval{{Start: at(3, 10, 0), End: at(3, 11, 0)}}
	items := []Item{
		{ID: "a", Duration: 30 * time.Minute},
		{ID: "b", Duration: time.Hour},
		{ID: "c", Duration: 30 * time.Minute},
	}

	got, err := s.ScheduleBatch(items, at(3, 9, 0), obstacles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Placement{
		{ID: "a", Start: at(3, 9, 0), End: at(3, 9, 30)},
		{ID: "b", Start: at(3, 11, 0), End: at(3, 12, 0)}, // 09:30 would hit the obstacle
		{ID: "c", Start: at(3, 12, 0), End: at(3, 12, 30)},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d placements, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Errorf("placement %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	if len(obstacles) != 1 {
		t.Error("ScheduleBatch must not modify the caller's obstacles")
	}
}

func TestScheduleBatch_ZeroDurationShareInstant(t *testing.T) {
	s := Default()
	items := []Item{{ID: "first"}, {ID: "second"}}

	got, err := s.ScheduleBatch(items, at(3, 9, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range got {
		if !p.Start.Equal(at(3, 9, 0)) {
			t.Errorf("%s: got %s, want 09:00", p.ID, p.Start.Format("15:04"))
		}
	}
}

func TestScheduleBatch_PlacedEventsBlockLaterOnes(t *testing.T) {
	s := Default()
	items := []Item{
		{ID: "long", Duration: 8 * time.Hour},
		{ID: "short", Duration: 2 * time.Hour},
	}

	got, err := s.ScheduleBatch(items, at(3, 9, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got[0].Start.Equal(at(3, 9, 0)) {
		t.Errorf("long: got %s", got[0].Start)
	}
	// 17:00 + 2h would run past closing, so it moves to Tuesday.
	if !got[1].Start.Equal(at(4, 9, 0)) {
		t.Errorf("short: got %s, want Tuesday 09:00", got[1].Start)
	}
}

func TestScheduleBatch_ReportsUnplaceableItem(t *testing.T) {
	s := Default().WithSearch(0, 48*time.Hour)
	obstacles := []Interval{{Start: at(4, 0, 0), End: at(20, 0, 0)}}
	items := []Item{
		{ID: "fits", Duration: 8 * time.Hour},
		{ID: "stuck", Duration: 2 * time.Hour},
	}

	placed, err := s.ScheduleBatch(items, at(3, 9, 0), obstacles)
	var serr *event.SchedulingError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SchedulingError, got %v", err)
	}
	if serr.Index != 1 || serr.EventID != "stuck" {
		t.Errorf("expected index 1 / stuck, got %d / %s", serr.Index, serr.EventID)
	}
	if len(placed) != 1 || placed[0].ID != "fits" {
		t.Errorf("expected the first item to be placed, got %+v", placed)
	}
}

func TestIntervalOverlaps(t *testing.T) {
	base := Interval{Start: at(3, 10, 0), End: at(3, 11, 0)}

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"identical", base, true},
		{"inside", Interval{Start: at(3, 10, 15), End: at(3, 10, 45)}, true},
		{"straddles start", Interval{Start: at(3, 9, 30), End: at(3, 10, 30)}, true},
		{"before, touching", Interval{Start: at(3, 9, 0), End: at(3, 10, 0)}, false},
		{"after, touching", Interval{Start: at(3, 11, 0), End: at(3, 12, 0)}, false},
		{"zero length inside", Interval{Start: at(3, 10, 30), End: at(3, 10, 30)}, true},
		{"zero length at start", Interval{Start: at(3, 10, 0), End: at(3, 10, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObstacles(t *testing.T) {
	date := at(3, 10, 0)
	events := []*event.Event{
		{ID: "dated", Date: &date, Duration: 1.5},
		{ID: "undated", Duration: 2},
	}

	got := Obstacles(events)
	if len(got) != 1 {
		t.Fatalf("expected 1 obstacle, got %d", len(got))
	}
	if !got[0].End.Equal(at(3, 11, 30)) {
		t.Errorf("end: got %s", got[0].End)
	}
}

func TestNextAvailableStart(t *testing.T) {
	s := New([]string{"monday", "tuesday", "wednesday", "thursday", "friday"}, "09:00", "17:00")

	tests := []struct {
		name      string
		now       time.Time
		wantStart string
		wantDay   int
	}{
		{"before work hours", at(3, 7, 30), "09:00", 3},
		{"during work hours rounds up", at(3, 10, 23), "10:30", 3},
		{"exactly on quarter", at(3, 10, 30), "10:30", 3},
		{"after work hours", at(3, 18, 0), "09:00", 4},
		{"weekend", at(8, 10, 0), "09:00", 10},
		{"friday evening", at(7, 18, 0), "09:00", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := s.NextAvailableStart(tt.now)
			if slot.Start != tt.wantStart {
				t.Errorf("start: got %s, want %s", slot.Start, tt.wantStart)
			}
			if slot.Date.Day() != tt.wantDay {
				t.Errorf("day: got %d, want %d", slot.Date.Day(), tt.wantDay)
			}
			if want := time.Date(2025, 3, tt.wantDay, parseTime(tt.wantStart)/60, parseTime(tt.wantStart)%60, 0, 0, time.Local); !slot.At().Equal(want) {
				t.Errorf("At: got %s, want %s", slot.At(), want)
			}
		})
	}
}

func TestIsWithinWorkHours(t *testing.T) {
	s := Default()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"Monday 10am", at(3, 10, 0), true},
		{"Monday 8am", at(3, 8, 0), false},
		{"Monday 6pm", at(3, 18, 0), false}, // exactly at end
		{"Monday 5:59pm", at(3, 17, 59), true},
		{"Saturday 10am", at(8, 10, 0), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.IsWithinWorkHours(tc.date); got != tc.want {
				t.Errorf("IsWithinWorkHours = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRoundUpTo15Min(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{at(3, 10, 0), "10:00"},
		{at(3, 10, 1), "10:15"},
		{at(3, 10, 44), "10:45"},
		{at(3, 10, 46), "11:00"},
	}

	for _, tc := range tests {
		t.Run(tc.in.Format("15:04"), func(t *testing.T) {
			if got := roundUpTo15Min(tc.in).Format("15:04"); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

package dateutil

import (
	"errors"
	"testing"
	"time"
)

// Reference date: Friday, January 10, 2025
var friday = time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr error
	}{
		{name: "empty returns today", input: "", want: day(2025, 1, 10)},
		{name: "today keyword", input: "today", want: day(2025, 1, 10)},
		{name: "TODAY uppercase", input: "TODAY", want: day(2025, 1, 10)},
		{name: "tomorrow from friday", input: "tomorrow", want: day(2025, 1, 11)},
		{name: "next week", input: "next-week", want: day(2025, 1, 17)},
		{name: "saturday from friday", input: "saturday", want: day(2025, 1, 11)},
		{name: "monday from friday", input: "monday", want: day(2025, 1, 13)},
		{name: "friday from friday is a week later", input: "friday", want: day(2025, 1, 17)},
		{name: "next-monday", input: "next-monday", want: day(2025, 1, 13)},
		{name: "whitespace", input: "  monday  ", want: day(2025, 1, 13)},
		{name: "absolute future", input: "2025-02-01", want: day(2025, 2, 1)},
		{name: "absolute past is allowed", input: "2024-12-31", want: day(2024, 12, 31)},
		{name: "US style", input: "01-10-2025", wantErr: ErrInvalidDateFormat},
		{name: "slash", input: "10/01/2025", wantErr: ErrInvalidDateFormat},
		{name: "typo weekday", input: "mondya", wantErr: ErrInvalidDateFormat},
		{name: "next- without weekday", input: "next-", wantErr: ErrInvalidDateFormat},
		{name: "yesterday", input: "yesterday", wantErr: ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDay(tt.input, friday)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDay_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got, err := ParseDay("2025-03-03", time.Date(2025, 3, 1, 12, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
	if !got.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, loc)) {
		t.Errorf("got %v", got)
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr error
	}{
		{name: "date and time", input: "2025-03-03 10:30", want: time.Date(2025, 3, 3, 10, 30, 0, 0, time.UTC)},
		{name: "date T time", input: "2025-03-03T09:00", want: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{name: "keyword and time", input: "tomorrow 08:15", want: time.Date(2025, 1, 11, 8, 15, 0, 0, time.UTC)},
		{name: "uppercase keyword", input: "TOMORROW", want: day(2025, 1, 11)},
		{name: "time only is today", input: "16:00", want: time.Date(2025, 1, 10, 16, 0, 0, 0, time.UTC)},
		{name: "date only is midnight", input: "2025-03-03", want: day(2025, 3, 3)},
		{name: "rfc3339", input: "2025-03-03T10:00:00+01:00", want: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{name: "bad time", input: "2025-03-03 9am", wantErr: ErrInvalidTimeFormat},
		{name: "hour out of range", input: "2025-03-03 24:00", wantErr: ErrInvalidTimeFormat},
		{name: "bad date", input: "someday 10:00", wantErr: ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateTime(tt.input, friday)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"9:30", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewDateRange(t *testing.T) {
	t.Run("valid date range", func(t *testing.T) {
		dr, err := NewDateRange("2025-01-15", "2025-01-20", friday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		from, to := dr.Bounds()
		if !from.Equal(day(2025, 1, 15)) {
			t.Errorf("got from %v", from)
		}
		if !to.Equal(day(2025, 1, 21)) {
			t.Errorf("got to %v, want the day after the end date", to)
		}
	})

	t.Run("empty end defaults to start", func(t *testing.T) {
		dr, err := NewDateRange("tomorrow", "", friday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dr.Start.Equal(dr.End) {
			t.Errorf("start %v and end %v differ", dr.Start, dr.End)
		}
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := NewDateRange("2025-01-20", "2025-01-15", friday)
		if !errors.Is(err, ErrEndDateBeforeStart) {
			t.Errorf("got error %v, want %v", err, ErrEndDateBeforeStart)
		}
	})
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantFrom time.Time
		wantTo   time.Time
		wantErr  bool
	}{
		{"empty is current month", "", day(2025, 1, 1), day(2025, 2, 1), false},
		{"explicit month", "2025-03", day(2025, 3, 1), day(2025, 4, 1), false},
		{"december rolls over", "2024-12", day(2024, 12, 1), day(2025, 1, 1), false},
		{"bad format", "03-2025", time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := ParseMonth(tt.input, friday)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonth(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMonthFormat) {
					t.Errorf("got error %v, want %v", err, ErrInvalidMonthFormat)
				}
				return
			}
			if !from.Equal(tt.wantFrom) || !to.Equal(tt.wantTo) {
				t.Errorf("got [%v, %v), want [%v, %v)", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestWeekRange(t *testing.T) {
	tests := []struct {
		name       string
		input      time.Time
		wantMonday time.Time
		wantSunday time.Time
	}{
		{"friday", friday, day(2025, 1, 6), day(2025, 1, 12)},
		{"monday", day(2025, 1, 6), day(2025, 1, 6), day(2025, 1, 12)},
		{"sunday", day(2025, 1, 12), day(2025, 1, 6), day(2025, 1, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monday, sunday := WeekRange(tt.input)
			if !monday.Equal(tt.wantMonday) {
				t.Errorf("monday = %v, want %v", monday, tt.wantMonday)
			}
			if !sunday.Equal(tt.wantSunday) {
				t.Errorf("sunday = %v, want %v", sunday, tt.wantSunday)
			}
		})
	}
}

func TestTruncateToDay(t *testing.T) {
	got := TruncateToDay(friday)
	if !got.Equal(day(2025, 1, 10)) {
		t.Errorf("got %v", got)
	}
}

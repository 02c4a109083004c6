package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/javiermolinar/docket/internal/event"
	"github.com/javiermolinar/docket/internal/planner"
	"github.com/javiermolinar/docket/internal/priority"
	"github.com/javiermolinar/docket/internal/scheduler"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "Mon 2006-01-02 15:04"
	shortIDLen     = 8
)

// PrintOpts configures event printing behavior.
type PrintOpts struct {
	Verbose      bool // Show full IDs and details
	MaxDescWidth int  // Maximum title width (0 = auto)
}

// CalcMaxDescWidth returns the title column width for the terminal.
func (o PrintOpts) CalcMaxDescWidth(termWidth int) int {
	if o.MaxDescWidth > 0 {
		return o.MaxDescWidth
	}
	// "  #12  abcdef12  Mon 2025-03-03 09:00  1h30m  " is about 46 columns.
	const fixedColumns = 46
	width := termWidth - fixedColumns
	if width < 20 {
		return 20
	}
	return width
}

// PrintEventRow prints one to-do list line.
func PrintEventRow(w io.Writer, e *event.Event, opts PrintOpts, maxDescWidth int) {
	id := shortID(e.ID)
	if opts.Verbose {
		id = e.ID
	}

	when := formatMuted(fmt.Sprintf("%-20s", "unscheduled"))
	title := truncate(e.Title, maxDescWidth)
	if e.Date != nil {
		when = formatDated(fmt.Sprintf("%-20s", e.Date.Format(dateTimeLayout)))
		title = formatDated(title)
	} else {
		title = formatUndated(title)
	}

	fmt.Fprintf(w, "  %3s  %s  %s  %6s  %s\n",
		fmt.Sprintf("#%d", e.Priority),
		formatMuted(id),
		when,
		FormatDuration(e.Duration),
		title,
	)
	if opts.Verbose && e.Details != "" {
		fmt.Fprintf(w, "        %s\n", formatMuted(e.Details))
	}
}

// PrintEventList prints the to-do list and flags priority gaps.
func PrintEventList(w io.Writer, events []*event.Event, opts PrintOpts) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}

	width := opts.CalcMaxDescWidth(termWidth())
	for _, e := range events {
		PrintEventRow(w, e, opts, width)
	}

	if gaps := priority.Gaps(events); len(gaps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, formatWarn(fmt.Sprintf("Priority gaps at %s; run `docket compact` to renumber.", joinInts(gaps))))
	}
}

// PrintPlacements prints a schedule plan.
func PrintPlacements(w io.Writer, placements []scheduler.Placement, titles map[string]string) {
	for _, p := range placements {
		fmt.Fprintf(w, "  %s  %s-%s  %s\n",
			formatMuted(shortID(p.ID)),
			formatDated(p.Start.Format(dateTimeLayout)),
			p.End.Format("15:04"),
			titles[p.ID],
		)
	}
}

// PrintBatchError prints the per-event outcome of a failed batch write.
// It returns false if err is not a batch error.
func PrintBatchError(w io.Writer, err error) bool {
	var batchErr *planner.BatchError
	if !errors.As(err, &batchErr) {
		return false
	}

	r := batchErr.Result
	fmt.Fprintln(w, formatWarn(fmt.Sprintf("%s %s: %d of %d updates failed",
		r.Op, r.Status(), len(r.Failed()), len(r.Outcomes))))
	for _, o := range r.Failed() {
		fmt.Fprintf(w, "  %s  %v\n", shortID(o.ID), o.Err)
	}
	return true
}

// FormatDuration formats fractional hours as "1h30m", "45m" or "0m".
func FormatDuration(hours float64) string {
	minutes := int(event.Hours(hours).Minutes())
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// truncate shortens s to width runes, ending with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/docket/internal/dateutil"
	"github.com/javiermolinar/docket/internal/event"
	"github.com/javiermolinar/docket/internal/export"
)

const formatText = "text"

func (a *App) listCmd() *cobra.Command {
	var (
		format  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List events in priority order",
		Long: `List all of your events, dated or not, in priority order.

Use --format json or --format yaml for machine-readable output.`,
		Example: `  docket list
  docket list --verbose
  docket list --format yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			events, err := a.service.ListEvents(context.Background(), a.userID())
			if err != nil {
				return fmt.Errorf("listing events: %w", err)
			}

			return writeEvents(cmd, format, events, PrintOpts{Verbose: verbose})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json or yaml")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show full IDs and details")

	return cmd
}

func (a *App) calendarCmd() *cobra.Command {
	var (
		month     string
		startDate string
		endDate   string
		week      bool
		format    string
	)

	cmd := &cobra.Command{
		Use:     "calendar",
		Aliases: []string{"cal"},
		Short:   "List dated events in a date range",
		Long: `List dated events grouped by day.

By default shows the current month. --month picks another month,
--week the current ISO week, and --start/--end an explicit range
(inclusive).`,
		Example: `  docket calendar
  docket calendar --month 2025-03
  docket calendar --week
  docket calendar --start 2025-03-03 --end 2025-03-07`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			now := a.now()
			from, to, err := dateutil.ParseMonth(month, now)
			if err != nil {
				return err
			}
			switch {
			case startDate != "":
				dr, err := dateutil.NewDateRange(startDate, endDate, now)
				if err != nil {
					return err
				}
				from, to = dr.Bounds()
			case week:
				monday, sunday := dateutil.WeekRange(now)
				from, to = monday, sunday.AddDate(0, 0, 1)
			}

			events, err := a.service.Calendar(context.Background(), a.userID(), from, to)
			if err != nil {
				return fmt.Errorf("listing calendar: %w", err)
			}

			if format != formatText {
				return export.Write(cmd.OutOrStdout(), format, events)
			}
			printCalendar(cmd, events, from, to)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month (YYYY-MM, defaults to the current month)")
	cmd.Flags().BoolVar(&week, "week", false, "Show the current week")
	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD or keyword)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (defaults to start date)")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json, yaml or ics")
	cmd.MarkFlagsMutuallyExclusive("month", "week", "start")

	return cmd
}

func printCalendar(cmd *cobra.Command, events []*event.Event, from, to time.Time) {
	w := cmd.OutOrStdout()
	last := to.AddDate(0, 0, -1)
	fmt.Fprintf(w, "%s\n", formatHeader(fmt.Sprintf("%s - %s", from.Format(dateLayout), last.Format(dateLayout))))

	if len(events) == 0 {
		fmt.Fprintln(w, "No events scheduled in this range.")
		return
	}

	var currentDate string
	for _, e := range events {
		start, end, _ := e.Span()
		date := start.Format("Mon 2006-01-02")
		if date != currentDate {
			fmt.Fprintf(w, "\n=== %s ===\n", date)
			currentDate = date
		}
		fmt.Fprintf(w, "  %s-%s  %s  %s %s\n",
			formatDated(start.Format("15:04")),
			end.Format("15:04"),
			formatMuted(shortID(e.ID)),
			e.Title,
			formatMuted(fmt.Sprintf("(#%d)", e.Priority)),
		)
	}
}

// writeEvents prints events as a table or encodes them.
func writeEvents(cmd *cobra.Command, format string, events []*event.Event, opts PrintOpts) error {
	if format == formatText || format == "" {
		PrintEventList(cmd.OutOrStdout(), events, opts)
		return nil
	}
	return export.Write(cmd.OutOrStdout(), format, events)
}

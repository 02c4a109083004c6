package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/docket/internal/dateutil"
	"github.com/javiermolinar/docket/internal/event"
)

func (a *App) scheduleCmd() *cobra.Command {
	var (
		start  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "schedule [event-id...]",
		Short: "Auto-schedule events into free business-hours slots",
		Long: `Place events into the first free slots during work hours, in
priority order, starting at --start.

Without IDs every unscheduled event is placed. With IDs only those events
are (re)placed. Every other dated event is treated as busy time.

--dry-run prints the plan without saving it.`,
		Example: `  docket schedule
  docket schedule --start "monday 09:00"
  docket schedule 3f2a 91bc --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}
			ctx := context.Background()
			w := cmd.OutOrStdout()

			from, err := a.scheduleStart(start)
			if err != nil {
				return err
			}

			ids, err := a.resolveIDs(ctx, args)
			if err != nil {
				return err
			}

			if dryRun {
				placements, err := a.service.PlanSchedule(ctx, a.userID(), from, ids)
				if err != nil {
					return fmt.Errorf("planning schedule: %w", err)
				}
				titles, err := a.titles(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s starting %s\n", formatHeader("Plan"), from.Format(dateTimeLayout))
				PrintPlacements(w, placements, titles)
				fmt.Fprintln(w, formatMuted("Dry run: nothing saved."))
				return nil
			}

			events, err := a.service.AutoSchedule(ctx, a.userID(), from, ids)
			if err != nil {
				if PrintBatchError(cmd.ErrOrStderr(), err) {
					PrintEventList(w, events, PrintOpts{})
				}
				return fmt.Errorf("scheduling events: %w", err)
			}

			fmt.Fprintf(w, "%s starting %s\n", formatOK("Scheduled"), from.Format(dateTimeLayout))
			PrintEventList(w, events, PrintOpts{})
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Earliest start (default: next free moment in work hours)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without saving it")

	return cmd
}

// scheduleStart parses --start, or suggests the next work-hours moment
// strictly after now.
func (a *App) scheduleStart(flag string) (time.Time, error) {
	now := a.now()
	if flag != "" {
		return dateutil.ParseDateTime(flag, now)
	}
	return a.service.Scheduler().NextAvailableStart(now.Add(time.Minute)).At(), nil
}

func (a *App) titles(ctx context.Context) (map[string]string, error) {
	events, err := a.service.ListEvents(ctx, a.userID())
	if err != nil {
		return nil, err
	}
	return titleIndex(events), nil
}

func titleIndex(events []*event.Event) map[string]string {
	out := make(map[string]string, len(events))
	for _, e := range events {
		out[e.ID] = e.Title
	}
	return out
}

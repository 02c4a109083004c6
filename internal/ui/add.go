package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/docket/internal/dateutil"
	"github.com/javiermolinar/docket/internal/event"
)

func (a *App) addCmd() *cobra.Command {
	var (
		date     string
		duration float64
		details  string
		prio     int
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a new event",
		Long: `Add a new event to your list.

Without --priority the event goes to the end of the list. With --priority
it is inserted at that rank and every event at or below it moves down one.
Without --date the event is unscheduled and only shows up in the list.`,
		Example: `  docket add "Write documentation" --duration 2
  docket add "Standup" --date "tomorrow 09:30" --duration 0.25
  docket add "Urgent fix" --priority 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			d := event.Draft{
				UserID:   a.userID(),
				Title:    args[0],
				Duration: duration,
				Details:  details,
			}
			if date != "" {
				t, err := dateutil.ParseDateTime(date, a.now())
				if err != nil {
					return err
				}
				d.Date = &t
			}
			if cmd.Flags().Changed("priority") {
				d.Priority = &prio
			}

			e, err := a.service.CreateEvent(context.Background(), d)
			if err != nil {
				return fmt.Errorf("creating event: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s #%d %s %s\n", formatOK("Created"), e.Priority, shortID(e.ID), e.Title)
			if e.Date != nil {
				fmt.Fprintf(w, "  %s for %s\n", e.Date.Format(dateTimeLayout), FormatDuration(e.Duration))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", `Date and time ("2025-03-03 10:00", "tomorrow 09:00", "monday 14:30")`)
	cmd.Flags().Float64Var(&duration, "duration", 0, "Duration in hours (0-24)")
	cmd.Flags().StringVar(&details, "details", "", "Free-form notes")
	cmd.Flags().IntVar(&prio, "priority", 0, "Insert at this rank (0 is first)")

	return cmd
}

func (a *App) editCmd() *cobra.Command {
	var (
		title     string
		date      string
		clearDate bool
		duration  float64
		details   string
		prio      int
		version   int64
	)

	cmd := &cobra.Command{
		Use:   "edit [event-id]",
		Short: "Edit an event",
		Long: `Change the fields of an event. Only the flags you pass are changed.

Changing --priority moves the event to that rank and renumbers the list.
--if-version makes the edit fail if someone changed the event since you
last looked at it.`,
		Example: `  docket edit 3f2a --title "Write docs" --duration 1.5
  docket edit 3f2a --clear-date
  docket edit 3f2a --priority 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}
			ctx := context.Background()

			id, err := a.resolveID(ctx, args[0])
			if err != nil {
				return err
			}

			var patch event.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("date") {
				t, err := dateutil.ParseDateTime(date, a.now())
				if err != nil {
					return err
				}
				patch.Date = &t
			}
			patch.ClearDate = clearDate
			if flags.Changed("duration") {
				patch.Duration = &duration
			}
			if flags.Changed("details") {
				patch.Details = &details
			}
			if flags.Changed("priority") {
				patch.Priority = &prio
			}
			if flags.Changed("if-version") {
				patch.IfVersion = &version
			}

			e, err := a.service.EditEvent(ctx, a.userID(), id, patch)
			if err != nil {
				if PrintBatchError(cmd.ErrOrStderr(), err) {
					return fmt.Errorf("moving event: %w", err)
				}
				return fmt.Errorf("editing event: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s %s (version %d)\n",
				formatOK("Updated"), e.Priority, shortID(e.ID), e.Title, e.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&date, "date", "", "New date and time")
	cmd.Flags().BoolVar(&clearDate, "clear-date", false, "Remove the date, moving the event back to the list only")
	cmd.Flags().Float64Var(&duration, "duration", 0, "New duration in hours (0-24)")
	cmd.Flags().StringVar(&details, "details", "", "New notes")
	cmd.Flags().IntVar(&prio, "priority", 0, "Move to this rank")
	cmd.Flags().Int64Var(&version, "if-version", 0, "Only apply if the event is still at this version")
	cmd.MarkFlagsMutuallyExclusive("date", "clear-date")

	return cmd
}

func (a *App) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [event-id]",
		Aliases: []string{"rm"},
		Short:   "Delete an event",
		Long: `Delete an event by its ID or a unique ID prefix.

Other events keep their priorities; run "docket compact" to close the gap.`,
		Example: `  docket delete 3f2a`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}
			ctx := context.Background()

			id, err := a.resolveID(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.service.DeleteEvent(ctx, a.userID(), id); err != nil {
				return fmt.Errorf("deleting event: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", shortID(id))
			return nil
		},
	}
}

func (a *App) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [event-id]",
		Short: "Show one event in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}
			ctx := context.Background()

			id, err := a.resolveID(ctx, args[0])
			if err != nil {
				return err
			}
			e, err := a.service.GetEvent(ctx, a.userID(), id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", formatHeader(e.Title))
			fmt.Fprintf(w, "  id        %s\n", e.ID)
			fmt.Fprintf(w, "  priority  %d\n", e.Priority)
			if start, end, ok := e.Span(); ok {
				fmt.Fprintf(w, "  when      %s - %s\n", start.Format(dateTimeLayout), end.Format("15:04"))
			} else {
				fmt.Fprintf(w, "  when      %s\n", formatMuted("unscheduled"))
			}
			fmt.Fprintf(w, "  duration  %s\n", FormatDuration(e.Duration))
			if e.Details != "" {
				fmt.Fprintf(w, "  details   %s\n", e.Details)
			}
			fmt.Fprintf(w, "  version   %d\n", e.Version)
			fmt.Fprintf(w, "  updated   %s\n", formatMuted(e.UpdatedAt.Local().Format(dateTimeLayout)))
			return nil
		},
	}
}

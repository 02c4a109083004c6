package ui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/docket/internal/event"
)

func (a *App) reorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder [event-id...]",
		Short: "Set the full priority order",
		Long: `Give every one of your event IDs in the order you want them.
The first gets priority 0, the next 1, and so on.

Every event must be listed exactly once. If some updates fail the list is
reloaded and the failed events are reported.`,
		Example: `  docket reorder 3f2a 91bc 07de`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}
			ctx := context.Background()

			ids, err := a.resolveIDs(ctx, args)
			if err != nil {
				return err
			}

			events, err := a.service.ReorderEvents(ctx, a.userID(), ids)
			return a.reportReindex(cmd, "reordering events", events, err)
		},
	}
}

func (a *App) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move [event-id] [position]",
		Short: "Move one event to a new rank",
		Long: `Move an event to a position in the list (0 is first) and renumber
the rest so priorities stay 0..N-1.`,
		Example: `  docket move 3f2a 0`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}
			ctx := context.Background()

			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[1], err)
			}
			id, err := a.resolveID(ctx, args[0])
			if err != nil {
				return err
			}

			if _, err := a.service.EditEvent(ctx, a.userID(), id, event.Patch{Priority: &to}); err != nil {
				PrintBatchError(cmd.ErrOrStderr(), err)
				return fmt.Errorf("moving event: %w", err)
			}

			events, err := a.service.ListEvents(ctx, a.userID())
			if err != nil {
				return err
			}
			PrintEventList(cmd.OutOrStdout(), events, PrintOpts{})
			return nil
		},
	}
}

func (a *App) compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Renumber priorities to close gaps",
		Long: `Deleting an event leaves a gap in the priorities. compact renumbers
the list to 0..N-1 keeping the current order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			events, err := a.service.Compact(context.Background(), a.userID())
			return a.reportReindex(cmd, "compacting events", events, err)
		},
	}
}

// reportReindex prints the reloaded list, plus the failures if the batch
// was only partly applied.
func (a *App) reportReindex(cmd *cobra.Command, op string, events []*event.Event, err error) error {
	if err != nil {
		if !PrintBatchError(cmd.ErrOrStderr(), err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatWarn("Current order after reload:"))
		PrintEventList(cmd.OutOrStdout(), events, PrintOpts{})
		return fmt.Errorf("%s: %w", op, err)
	}

	PrintEventList(cmd.OutOrStdout(), events, PrintOpts{})
	return nil
}

package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/docket/internal/export"
)

func (a *App) exportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events as iCalendar, JSON or YAML",
		Long: `Write all of your events to stdout or a file.

The ics format contains only dated events and can be imported into any
calendar application.`,
		Example: `  docket export > docket.ics
  docket export --format json --output events.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			events, err := a.service.ListEvents(context.Background(), a.userID())
			if err != nil {
				return fmt.Errorf("listing events: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			if format == export.FormatICS {
				return export.ICS(w, events, a.now())
			}
			return export.Write(w, format, events)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", export.FormatICS, "Output format: ics, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}

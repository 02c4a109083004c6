package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javiermolinar/docket/internal/config"
	"github.com/javiermolinar/docket/internal/db"
	"github.com/javiermolinar/docket/internal/event"
	"github.com/javiermolinar/docket/internal/lock"
	"github.com/javiermolinar/docket/internal/logging"
	"github.com/javiermolinar/docket/internal/planner"
	"github.com/javiermolinar/docket/internal/scheduler"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	repo    event.Repository
	config  *config.Config
	service *planner.Service
	logger  *zap.Logger
	closers []func() error
	root    *cobra.Command
	now     func() time.Time

	debug   bool   // Force debug logging
	user    string // Acting user, overrides config
	noColor bool
}

// NewApp creates a new CLI application with the given repository and config.
// A nil repository is opened lazily from the configured database path.
func NewApp(repo event.Repository, cfg *config.Config) *App {
	a := &App{repo: repo, config: cfg, now: time.Now}

	a.root = &cobra.Command{
		Use:   "docket",
		Short: "A priority-ordered event planner",
		Long: `Docket keeps a priority-ordered list of events, shows the dated ones
on a calendar, and can auto-schedule undated events into the first free
business-hours slots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if a.noColor {
				DisableColor()
			}
		},
	}

	// Add global flags
	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging on stderr")
	a.root.PersistentFlags().StringVar(&a.user, "user", "", "Acting user (default from config)")
	a.root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.addCmd())
	a.root.AddCommand(a.editCmd())
	a.root.AddCommand(a.deleteCmd())
	a.root.AddCommand(a.listCmd())
	a.root.AddCommand(a.showCmd())
	a.root.AddCommand(a.calendarCmd())
	a.root.AddCommand(a.reorderCmd())
	a.root.AddCommand(a.moveCmd())
	a.root.AddCommand(a.compactCmd())
	a.root.AddCommand(a.scheduleCmd())
	a.root.AddCommand(a.exportCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docket %s (commit: %s)\n", Version, Commit)
		},
	}
}

// ensureRepo opens the store and wires the service on first use.
func (a *App) ensureRepo() error {
	if a.service != nil {
		return nil
	}

	level := a.config.Log.Level
	if a.debug {
		level = "debug"
	}
	logger, err := logging.New(level, a.config.Log.Encoding)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	if a.repo == nil {
		path := a.config.Storage.DBPath
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		repo, err := db.New(path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		a.repo = repo
		a.closers = append(a.closers, repo.Close)
		logger.Debug("database opened", zap.String("path", path))
	}

	locker, err := a.newLocker()
	if err != nil {
		return err
	}

	sched := scheduler.New(a.config.Schedule.Workdays, a.config.Schedule.DayStart, a.config.Schedule.DayEnd).
		WithSearch(a.config.Schedule.Step(), a.config.Schedule.Horizon())

	a.service = planner.New(a.repo, sched,
		planner.WithLocker(locker),
		planner.WithLogger(logger),
		planner.WithConcurrency(a.config.Batch.Concurrency),
		planner.WithClock(a.now),
	)
	return nil
}

func (a *App) newLocker() (lock.Locker, error) {
	switch a.config.Lock.Backend {
	case config.LockRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r, err := lock.NewRedis(ctx, a.config.Lock.RedisURL, a.config.Lock.TTL(), a.logger)
		if err != nil {
			return nil, fmt.Errorf("creating redis lock: %w", err)
		}
		a.closers = append(a.closers, r.Close)
		return r, nil
	case config.LockNone:
		a.logger.Warn("per-user locking disabled; concurrent writers may corrupt priorities")
		return lock.Nop{}, nil
	default:
		return lock.NewLocal(), nil
	}
}

// userID returns the acting user.
func (a *App) userID() string {
	if a.user != "" {
		return a.user
	}
	return a.config.User.ID
}

// Close releases the database, lock client and logger in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// SetOutput redirects command output, mainly for tests.
func (a *App) SetOutput(w io.Writer) {
	a.root.SetOut(w)
	a.root.SetErr(w)
}

// SetArgs sets the command-line arguments, mainly for tests.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// SetClock overrides the time source, mainly for tests.
func (a *App) SetClock(now func() time.Time) {
	a.now = now
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

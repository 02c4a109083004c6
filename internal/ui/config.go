package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/docket/internal/config"
)

func (a *App) configCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Interactive configuration management.

If no config file exists, creates one with default values.
Otherwise, displays current config and allows editing.
--show only prints the effective configuration.

Example:
  docket config
  docket config --show`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if show {
				printConfig(cmd.OutOrStdout(), a.config)
				return nil
			}
			return runConfigInteractive(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Print the effective configuration and exit")
	return cmd
}

func runConfigInteractive(w io.Writer) error {
	configPath := config.DefaultConfigPath()
	fmt.Fprintf(w, "Config file: %s\n\n", configPath)

	// Load existing config or create defaults
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Check if file exists
	_, fileErr := os.Stat(configPath)
	isNew := os.IsNotExist(fileErr)

	if isNew {
		fmt.Fprintln(w, "No config file found. Creating with default values...")
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(w, "Created %s\n\n", configPath)
	}

	// Display current config
	printConfig(w, cfg)

	reader := bufio.NewReader(os.Stdin)

	// Ask if user wants to edit
	if !promptYesNo(w, reader, "\nWould you like to edit the configuration?") {
		return nil
	}

	cfg.Schedule.DayStart = promptValue(w, reader, "Day start", cfg.Schedule.DayStart)
	cfg.Schedule.DayEnd = promptValue(w, reader, "Day end", cfg.Schedule.DayEnd)
	cfg.Schedule.Workdays = promptSlice(w, reader, "Workdays (comma-separated)", cfg.Schedule.Workdays)
	cfg.Schedule.StepMinutes = promptInt(w, reader, "Search step (minutes)", cfg.Schedule.StepMinutes)
	cfg.Schedule.HorizonDays = promptInt(w, reader, "Search horizon (days)", cfg.Schedule.HorizonDays)
	cfg.Storage.DBPath = promptValue(w, reader, "Database path", cfg.Storage.DBPath)
	cfg.Lock.Backend = promptValue(w, reader, "Lock backend (local, redis, none)", cfg.Lock.Backend)
	if cfg.Lock.Backend == config.LockRedis {
		cfg.Lock.RedisURL = promptValue(w, reader, "Redis URL", cfg.Lock.RedisURL)
	}
	cfg.Log.Level = promptValue(w, reader, "Log level", cfg.Log.Level)
	cfg.User.ID = promptValue(w, reader, "User", cfg.User.ID)

	// Validate before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Save
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(w, "\nConfiguration saved!")
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current configuration:")
	fmt.Fprintln(w, "──────────────────────")
	fmt.Fprintln(w, "[schedule]")
	fmt.Fprintf(w, "  day_start    = %s\n", cfg.Schedule.DayStart)
	fmt.Fprintf(w, "  day_end      = %s\n", cfg.Schedule.DayEnd)
	fmt.Fprintf(w, "  workdays     = %s\n", strings.Join(cfg.Schedule.Workdays, ", "))
	fmt.Fprintf(w, "  step_minutes = %d\n", cfg.Schedule.StepMinutes)
	fmt.Fprintf(w, "  horizon_days = %d\n", cfg.Schedule.HorizonDays)
	fmt.Fprintln(w, "\n[storage]")
	fmt.Fprintf(w, "  db_path      = %s\n", cfg.Storage.DBPath)
	fmt.Fprintln(w, "\n[lock]")
	fmt.Fprintf(w, "  backend      = %s\n", cfg.Lock.Backend)
	if cfg.Lock.Backend == config.LockRedis {
		fmt.Fprintf(w, "  redis_url    = %s\n", cfg.Lock.RedisURL)
		fmt.Fprintf(w, "  ttl_seconds  = %d\n", cfg.Lock.TTLSeconds)
	}
	fmt.Fprintln(w, "\n[log]")
	fmt.Fprintf(w, "  level        = %s\n", cfg.Log.Level)
	fmt.Fprintf(w, "  encoding     = %s\n", cfg.Log.Encoding)
	fmt.Fprintln(w, "\n[user]")
	fmt.Fprintf(w, "  id           = %s\n", cfg.User.ID)
	fmt.Fprintln(w, "\n[batch]")
	fmt.Fprintf(w, "  concurrency  = %d\n", cfg.Batch.Concurrency)
}

func promptYesNo(w io.Writer, reader *bufio.Reader, question string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func promptValue(w io.Writer, reader *bufio.Reader, label, current string) string {
	if current == "" {
		fmt.Fprintf(w, "  %s: ", label)
	} else {
		fmt.Fprintf(w, "  %s [%s]: ", label, current)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

func promptInt(w io.Writer, reader *bufio.Reader, label string, current int) int {
	for {
		value := promptValue(w, reader, label, strconv.Itoa(current))
		n, err := strconv.Atoi(value)
		if err == nil && n > 0 {
			return n
		}
		fmt.Fprintf(w, "  Invalid number %q.\n", value)
	}
}

func promptSlice(w io.Writer, reader *bufio.Reader, label string, current []string) []string {
	currentStr := strings.Join(current, ", ")
	fmt.Fprintf(w, "  %s [%s]: ", label, currentStr)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

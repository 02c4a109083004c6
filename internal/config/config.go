// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
	LockNone  = "none"
)

// Config holds the application configuration.
type Config struct {
	Schedule ScheduleConfig `toml:"schedule"`
	Storage  StorageConfig  `toml:"storage"`
	Lock     LockConfig     `toml:"lock"`
	Log      LogConfig      `toml:"log"`
	User     UserConfig     `toml:"user"`
	Batch    BatchConfig    `toml:"batch"`
}

// ScheduleConfig holds the auto-scheduler policy.
type ScheduleConfig struct {
	Workdays    []string `toml:"workdays"`     // e.g., ["monday", "tuesday", ...]
	DayStart    string   `toml:"day_start"`    // e.g., "09:00"
	DayEnd      string   `toml:"day_end"`      // e.g., "18:00"
	StepMinutes int      `toml:"step_minutes"` // retry step after a conflict
	HorizonDays int      `toml:"horizon_days"` // give up after this many days
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// LockConfig selects how concurrent writers for one user are serialized.
type LockConfig struct {
	Backend    string `toml:"backend"`     // "local", "redis", "none"
	RedisURL   string `toml:"redis_url"`   // e.g., "redis://localhost:6379/0"
	TTLSeconds int    `toml:"ttl_seconds"` // redis lock expiry
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string `toml:"level"`    // "debug", "info", "warn", "error"
	Encoding string `toml:"encoding"` // "console" or "json"
}

// UserConfig holds the acting user.
type UserConfig struct {
	ID string `toml:"id"`
}

// BatchConfig bounds concurrent writes in reorder and schedule batches.
type BatchConfig struct {
	Concurrency int `toml:"concurrency"`
}

// Step returns the retry step as a duration.
func (s ScheduleConfig) Step() time.Duration {
	return time.Duration(s.StepMinutes) * time.Minute
}

// Horizon returns the search horizon as a duration.
func (s ScheduleConfig) Horizon() time.Duration {
	return time.Duration(s.HorizonDays) * 24 * time.Hour
}

// TTL returns the redis lock expiry as a duration.
func (l LockConfig) TTL() time.Duration {
	return time.Duration(l.TTLSeconds) * time.Second
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Workdays:    []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
			DayStart:    "09:00",
			DayEnd:      "18:00",
			StepMinutes: 30,
			HorizonDays: 90,
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Lock: LockConfig{
			Backend:    LockLocal,
			RedisURL:   "redis://localhost:6379/0",
			TTLSeconds: 30,
		},
		Log: LogConfig{
			Level:    "warn",
			Encoding: "console",
		},
		User: UserConfig{
			ID: defaultUser(),
		},
		Batch: BatchConfig{
			Concurrency: 8,
		},
	}
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docket.db"
	}
	return filepath.Join(home, ".local", "share", "docket", "docket.db")
}

// defaultUser falls back to the login name.
func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "docket", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
// A .env file in the working directory or next to the config file is read
// first; variables already set in the environment win.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	// Try to load from file (not an error if it doesn't exist)
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads each existing env file in order.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
	}
	return nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) error {
	// Schedule overrides
	if v := os.Getenv("DOCKET_DAY_START"); v != "" {
		cfg.Schedule.DayStart = v
	}
	if v := os.Getenv("DOCKET_DAY_END"); v != "" {
		cfg.Schedule.DayEnd = v
	}
	if v := os.Getenv("DOCKET_WORKDAYS"); v != "" {
		cfg.Schedule.Workdays = strings.Split(v, ",")
	}
	if err := envInt("DOCKET_STEP_MINUTES", &cfg.Schedule.StepMinutes); err != nil {
		return err
	}
	if err := envInt("DOCKET_HORIZON_DAYS", &cfg.Schedule.HorizonDays); err != nil {
		return err
	}

	// Storage overrides
	if v := os.Getenv("DOCKET_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}

	// Lock overrides
	if v := os.Getenv("DOCKET_LOCK_BACKEND"); v != "" {
		cfg.Lock.Backend = v
	}
	if v := os.Getenv("DOCKET_REDIS_URL"); v != "" {
		cfg.Lock.RedisURL = v
	}

	// Log overrides
	if v := os.Getenv("DOCKET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DOCKET_LOG_ENCODING"); v != "" {
		cfg.Log.Encoding = v
	}

	if v := os.Getenv("DOCKET_USER"); v != "" {
		cfg.User.ID = v
	}
	return envInt("DOCKET_BATCH_CONCURRENCY", &cfg.Batch.Concurrency)
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validateTime(c.Schedule.DayStart, "day_start"); err != nil {
		return err
	}
	if err := validateTime(c.Schedule.DayEnd, "day_end"); err != nil {
		return err
	}
	if c.Schedule.DayStart >= c.Schedule.DayEnd {
		return errors.New("day_start must be before day_end")
	}
	if len(c.Schedule.Workdays) == 0 {
		return errors.New("at least one workday must be configured")
	}
	for _, day := range c.Schedule.Workdays {
		if !isValidWeekday(day) {
			return fmt.Errorf("invalid workday: %s", day)
		}
	}
	if c.Schedule.StepMinutes <= 0 {
		return errors.New("step_minutes must be positive")
	}
	if c.Schedule.HorizonDays <= 0 {
		return errors.New("horizon_days must be positive")
	}

	if c.Storage.DBPath == "" {
		return errors.New("db_path must be set")
	}

	switch c.Lock.Backend {
	case LockLocal, LockNone:
	case LockRedis:
		if c.Lock.RedisURL == "" {
			return errors.New("redis_url must be set when lock backend is redis")
		}
	default:
		return fmt.Errorf("invalid lock backend %q (use local, redis or none)", c.Lock.Backend)
	}

	switch c.Log.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log encoding %q (use console or json)", c.Log.Encoding)
	}

	if c.Batch.Concurrency <= 0 {
		return errors.New("batch concurrency must be positive")
	}
	return nil
}

// validateTime checks if a time string is in HH:MM format.
func validateTime(t, field string) error {
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, t)
	}
	hour := t[0:2]
	min := t[3:5]
	if !isDigits(hour) || !isDigits(min) || hour > "23" || min > "59" {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, t)
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

var validWeekdays = map[string]bool{
	"monday":    true,
	"tuesday":   true,
	"wednesday": true,
	"thursday":  true,
	"friday":    true,
	"saturday":  true,
	"sunday":    true,
}

func isValidWeekday(day string) bool {
	return validWeekdays[strings.ToLower(strings.TrimSpace(day))]
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

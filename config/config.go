// Package config loads process settings: YAML file first, then .env and
// ATTENDANCE_* environment variables, then command-line flags (applied by
// cmd/server).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/export"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     int      `yaml:"port"`
	DBPath   string   `yaml:"db"`
	SaveDir  string   `yaml:"save_dir"`
	Source   string   `yaml:"source"` // "stdin" or "none"
	Throttle Duration `yaml:"throttle"`

	// AutosaveAt is the HH:MM at which the daily workbook is written.
	AutosaveAt     string      `yaml:"autosave_at"`
	CheckInterval  Duration    `yaml:"check_interval"`
	Retry          RetryConfig `yaml:"retry"`
	Shift          ShiftConfig `yaml:"shift"`
	AllowedOrigins []string    `yaml:"allowed_origins"`
}

type RetryConfig struct {
	Attempts int      `yaml:"attempts"`
	Delay    Duration `yaml:"delay"`
}

type ShiftConfig struct {
	LunchStart string `yaml:"lunch_start"`
	LunchEnd   string `yaml:"lunch_end"`
	ShiftEnd   string `yaml:"shift_end"`
}

// Duration reads "2s"-style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Port:          8080,
		DBPath:        "attendance.db",
		SaveDir:       "./data",
		Source:        "stdin",
		Throttle:      Duration(attendance.DefaultThrottleInterval),
		AutosaveAt:    "22:01",
		CheckInterval: Duration(time.Minute),
		Retry: RetryConfig{
			Attempts: export.DefaultRetry.Attempts,
			Delay:    Duration(export.DefaultRetry.Delay),
		},
		Shift: ShiftConfig{
			LunchStart: attendance.DefaultShift.LunchStart.String(),
			LunchEnd:   attendance.DefaultShift.LunchEnd.String(),
			ShiftEnd:   attendance.DefaultShift.ShiftEnd.String(),
		},
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
	}
}

// Load reads path (if it exists) over the defaults, then applies the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DBPath = getEnv("ATTENDANCE_DB", c.DBPath)
	c.SaveDir = getEnv("ATTENDANCE_SAVE_DIR", c.SaveDir)
	c.Source = getEnv("ATTENDANCE_SOURCE", c.Source)
	c.AutosaveAt = getEnv("ATTENDANCE_AUTOSAVE_AT", c.AutosaveAt)

	if v := os.Getenv("ATTENDANCE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ATTENDANCE_PORT %q", v)
		}
		c.Port = port
	}
	if v := os.Getenv("ATTENDANCE_THROTTLE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ATTENDANCE_THROTTLE %q", v)
		}
		c.Throttle = Duration(d)
	}
	return nil
}

// Validate checks the fields that are parsed later.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Source != "stdin" && c.Source != "none" {
		return fmt.Errorf("invalid source %q (use stdin or none)", c.Source)
	}
	if c.Throttle <= 0 {
		return fmt.Errorf("throttle must be positive, got %v", time.Duration(c.Throttle))
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %v", time.Duration(c.CheckInterval))
	}
	if c.Retry.Attempts <= 0 {
		return fmt.Errorf("retry.attempts must be positive, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay <= 0 {
		return fmt.Errorf("retry.delay must be positive, got %v", time.Duration(c.Retry.Delay))
	}
	if _, _, err := c.Autosave(); err != nil {
		return err
	}
	if _, err := c.AttendanceShift(); err != nil {
		return err
	}
	return nil
}

// AttendanceShift converts the shift strings.
func (c *Config) AttendanceShift() (attendance.Shift, error) {
	lunchStart, err := attendance.ParseClock(c.Shift.LunchStart)
	if err != nil {
		return attendance.Shift{}, fmt.Errorf("shift.lunch_start: %w", err)
	}
	lunchEnd, err := attendance.ParseClock(c.Shift.LunchEnd)
	if err != nil {
		return attendance.Shift{}, fmt.Errorf("shift.lunch_end: %w", err)
	}
	shiftEnd, err := attendance.ParseClock(c.Shift.ShiftEnd)
	if err != nil {
		return attendance.Shift{}, fmt.Errorf("shift.shift_end: %w", err)
	}
	if lunchEnd.Before(lunchStart) {
		return attendance.Shift{}, fmt.Errorf("shift: lunch ends before it starts")
	}
	return attendance.Shift{LunchStart: lunchStart, LunchEnd: lunchEnd, ShiftEnd: shiftEnd}, nil
}

// Autosave returns the hour and minute of the daily workbook export.
func (c *Config) Autosave() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.AutosaveAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid autosave_at %q (use HH:MM)", c.AutosaveAt)
	}
	return t.Hour(), t.Minute(), nil
}

// RetryPolicy converts the retry block.
func (c *Config) RetryPolicy() export.RetryPolicy {
	return export.RetryPolicy{Attempts: c.Retry.Attempts, Delay: time.Duration(c.Retry.Delay)}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"velour/internal/booking"
	"velour/internal/schedule"
	"velour/internal/timewin"
)

type Config struct {
	Server struct {
		Port              int     `yaml:"port"`
		RateLimitPerSec   float64 `yaml:"rate_limit_per_sec"`
		RateLimitBurst    int     `yaml:"rate_limit_burst"`
		ShutdownTimeoutMs int     `yaml:"shutdown_timeout_ms"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		GranularityMinutes int `yaml:"granularity_minutes"`
		MinAdvanceMinutes  int `yaml:"min_advance_minutes"`
		MaxAdvanceDays     int `yaml:"max_advance_days"`
		LockTimeoutMs      int `yaml:"lock_timeout_ms"`
	} `yaml:"booking"`

	Salon SalonConfig `yaml:"salon"`
}

// SalonConfig carries the salon defaults seeded into the database at startup:
// the timezone all clock values are interpreted in and the default weekly
// hours stylists fall back to.
type SalonConfig struct {
	Timezone string      `yaml:"timezone"`
	Hours    []DayConfig `yaml:"hours"`
}

// DayConfig is one weekday's default hours. Weekday follows the 1=Mon..7=Sun
// convention; a day absent from the list is closed.
type DayConfig struct {
	Weekday int    `yaml:"weekday"`
	Start   string `yaml:"start"` // "09:00"
	End     string `yaml:"end"`   // "19:00"
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/velour.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if _, err = cfg.Salon.Weekly(); err != nil {
		return nil, fmt.Errorf("salon hours: %w", err)
	}
	if _, err = cfg.Salon.Location(); err != nil {
		return nil, fmt.Errorf("salon timezone: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Rules converts the booking section into engine rules; zero values fall
// through to the engine defaults.
func (c *Config) Rules() booking.Rules {
	return booking.Rules{
		Granularity:    c.Booking.GranularityMinutes,
		MinAdvance:     time.Duration(c.Booking.MinAdvanceMinutes) * time.Minute,
		MaxAdvanceDays: c.Booking.MaxAdvanceDays,
		LockTimeout:    time.Duration(c.Booking.LockTimeoutMs) * time.Millisecond,
	}
}

// Location resolves the salon timezone, defaulting to the host's local zone.
func (s SalonConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Weekly parses the configured default hours into a schedule.
func (s SalonConfig) Weekly() (schedule.Weekly, error) {
	weekly := make(schedule.Weekly, len(s.Hours))
	for i, d := range s.Hours {
		if d.Weekday < 1 || d.Weekday > 7 {
			return nil, fmt.Errorf("hours[%d]: weekday must be 1-7 (1=Mon, 7=Sun), got %d", i, d.Weekday)
		}
		start, err := timewin.ParseClock(d.Start)
		if err != nil {
			return nil, fmt.Errorf("hours[%d]: start: %w", i, err)
		}
		end, err := timewin.ParseClock(d.End)
		if err != nil {
			return nil, fmt.Errorf("hours[%d]: end: %w", i, err)
		}
		wd := time.Weekday(d.Weekday % 7) // 7=Sun maps to time.Sunday
		if _, ok := weekly[wd]; ok {
			return nil, fmt.Errorf("hours[%d]: duplicate weekday %d", i, d.Weekday)
		}
		weekly[wd] = schedule.DayHours{
			Working: true,
			Window:  timewin.Window{Start: start, End: end},
		}
	}
	if err := weekly.Validate(); err != nil {
		return nil, err
	}
	return weekly, nil
}

package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ardata-lab/ardata/internal/core/calendar"
)

// Config represents the top-level configuration for ardata.
type Config struct {
	Server   ServerConfig    `koanf:"server"`
	Database DatabaseConfig  `koanf:"database"`
	Calendar calendar.Config `koanf:"calendar"`
	Report   ReportConfig    `koanf:"report"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // "debug" or "release"
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// ReportConfig holds the sheet catalog location, export destination, and
// the refresh schedule.
type ReportConfig struct {
	CatalogDir       string `koanf:"catalog_dir"`
	OutputDir        string `koanf:"output_dir"`
	ScheduleEnabled  bool   `koanf:"schedule_enabled"`
	ScheduleInterval string `koanf:"schedule_interval"` // parsed as time.Duration in main
}

// EffectiveInterval returns the refresh interval, falling back to hourly.
func (c ReportConfig) EffectiveInterval() string {
	if c.ScheduleInterval != "" {
		return c.ScheduleInterval
	}
	return "1h"
}

// Load loads the configuration from the given file path and environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"server.port":              8080,
		"server.host":              "0.0.0.0",
		"server.mode":              "release",
		"database.dsn":             "postgres://localhost:5432/ardata?sslmode=disable",
		"database.max_open_conns":  25,
		"database.max_idle_conns":  25,
		"database.auto_migrate":    true,
		"report.catalog_dir":       "./config/sheets",
		"report.output_dir":        "./reports",
		"report.schedule_enabled":  true,
		"report.schedule_interval": "1h",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// 2. Load from file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 3. Load from Environment Variables
	// ARDATA_SERVER__PORT=9090 overrides server.port
	if err := k.Load(env.Provider("ARDATA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ARDATA_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Calendar.YearStart == "" || cfg.Calendar.YearEnd == "" {
		return nil, fmt.Errorf("calendar.year_start and calendar.year_end are required")
	}

	return &cfg, nil
}

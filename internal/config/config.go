package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/claude/spotter/internal/models"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
	Training  TrainingConfig  `yaml:"training"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the database. Driver is "sqlite" (Path is the file)
// or "postgres" (Postgres holds the connection settings).
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Postgres DatabaseConfig `yaml:"postgres"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// LogConfig controls the process logger. File enables a rotated log file;
// Stdout keeps writing to stdout alongside it.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Stdout     bool   `yaml:"stdout"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TrainingConfig holds user preferences for logging workouts.
type TrainingConfig struct {
	DefaultUnit   string  `yaml:"default_unit"`
	WeightStep    float64 `yaml:"weight_step"`
	WeekStart     string  `yaml:"week_start"`
	DefaultWeight float64 `yaml:"default_weight"`
	DefaultReps   int     `yaml:"default_reps"`
	Timezone      string  `yaml:"timezone"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Unit is the weight unit new sets default to.
func (t TrainingConfig) Unit() models.WeightUnit {
	return models.ParseWeightUnit(t.DefaultUnit)
}

// FirstWeekday is the day calendar weeks begin on.
func (t TrainingConfig) FirstWeekday() time.Weekday {
	d, _ := parseWeekday(t.WeekStart)
	return d
}

// Location is the timezone used for week and day boundaries.
func (t TrainingConfig) Location() *time.Location {
	if t.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// Default returns the configuration used before the file is applied.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage: StorageConfig{Driver: "sqlite", Path: "spotter.db"},
		Log: LogConfig{
			Level:      "info",
			Stdout:     true,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Training: TrainingConfig{
			DefaultUnit:   string(models.Pounds),
			WeightStep:    5,
			WeekStart:     "sunday",
			DefaultWeight: 135,
			DefaultReps:   5,
		},
		Tailscale: TailscaleConfig{Hostname: "spotter", StateDir: "tsnet-state"},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. Env vars use the prefix SPOTTER_:
//
//	SPOTTER_SERVER_HOST, SPOTTER_SERVER_PORT,
//	SPOTTER_STORAGE_DRIVER, SPOTTER_STORAGE_PATH,
//	SPOTTER_DB_HOST, SPOTTER_DB_PORT, SPOTTER_DB_NAME,
//	SPOTTER_DB_USER, SPOTTER_DB_PASSWORD, SPOTTER_DB_SSLMODE,
//	SPOTTER_AUTH_API_KEY,
//	SPOTTER_TAILSCALE_ENABLED, SPOTTER_TAILSCALE_HOSTNAME,
//	SPOTTER_LOG_LEVEL, SPOTTER_LOG_FILE,
//	SPOTTER_TRAINING_UNIT, SPOTTER_TRAINING_WEEK_START, SPOTTER_TRAINING_TIMEZONE
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("SPOTTER_SERVER_HOST", &cfg.Server.Host)
	num("SPOTTER_SERVER_PORT", &cfg.Server.Port)
	str("SPOTTER_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("SPOTTER_STORAGE_PATH", &cfg.Storage.Path)
	str("SPOTTER_DB_HOST", &cfg.Storage.Postgres.Host)
	num("SPOTTER_DB_PORT", &cfg.Storage.Postgres.Port)
	str("SPOTTER_DB_NAME", &cfg.Storage.Postgres.Name)
	str("SPOTTER_DB_USER", &cfg.Storage.Postgres.User)
	str("SPOTTER_DB_PASSWORD", &cfg.Storage.Postgres.Password)
	str("SPOTTER_DB_SSLMODE", &cfg.Storage.Postgres.SSLMode)
	str("SPOTTER_AUTH_API_KEY", &cfg.Auth.APIKey)
	if v := os.Getenv("SPOTTER_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("SPOTTER_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	str("SPOTTER_LOG_LEVEL", &cfg.Log.Level)
	str("SPOTTER_LOG_FILE", &cfg.Log.File)
	str("SPOTTER_TRAINING_UNIT", &cfg.Training.DefaultUnit)
	str("SPOTTER_TRAINING_WEEK_START", &cfg.Training.WeekStart)
	str("SPOTTER_TRAINING_TIMEZONE", &cfg.Training.Timezone)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for sqlite")
		}
	case "postgres":
		pg := c.Storage.Postgres
		if pg.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
		if pg.Port == 0 {
			return fmt.Errorf("storage.postgres.port is required")
		}
		if pg.Name == "" {
			return fmt.Errorf("storage.postgres.name is required")
		}
		if pg.User == "" {
			return fmt.Errorf("storage.postgres.user is required")
		}
	default:
		return fmt.Errorf("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch models.WeightUnit(c.Training.DefaultUnit) {
	case models.Pounds, models.Kilograms:
	default:
		return fmt.Errorf("training.default_unit must be lbs or kg, got %q", c.Training.DefaultUnit)
	}
	if c.Training.WeightStep <= 0 {
		return fmt.Errorf("training.weight_step must be positive")
	}
	if c.Training.DefaultWeight < 0 {
		return fmt.Errorf("training.default_weight must not be negative")
	}
	if c.Training.DefaultReps < 1 {
		return fmt.Errorf("training.default_reps must be at least 1")
	}
	if _, ok := parseWeekday(c.Training.WeekStart); !ok {
		return fmt.Errorf("training.week_start %q is not a weekday", c.Training.WeekStart)
	}
	if c.Training.Timezone != "" {
		if _, err := time.LoadLocation(c.Training.Timezone); err != nil {
			return fmt.Errorf("training.timezone: %w", err)
		}
	}
	return nil
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

var ErrInvalid = errors.New("config: invalid")

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config describes one pet: where its clips live and how it plays them.
type Config struct {
	Name              string   `yaml:"name"`
	Assets            []string `yaml:"assets"`
	DefaultMode       string   `yaml:"default_mode"`
	IdleBackoffMs     int      `yaml:"idle_backoff_ms"`
	LoadWorkers       int      `yaml:"load_workers"`
	Scale             float64  `yaml:"scale"`
	Watch             bool     `yaml:"watch"`
	Routine           string   `yaml:"routine"`
	MissLogIntervalMs int      `yaml:"miss_log_interval_ms"`
	Log               Log      `yaml:"log"`
}

var modes = map[string]bool{
	"normal":        true,
	"happy":         true,
	"poorcondition": true,
	"ill":           true,
}

// Default returns the embedded configuration.
func Default() Config {
	cfg, err := Parse(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("config: embedded default: %v", err))
	}
	return cfg
}

// Load reads filename, or the embedded default when filename is empty.
func Load(filename string) (Config, error) {
	if filename == "" {
		return Parse(defaultConfig)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", filename, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", filename, err)
	}
	return cfg, nil
}

// Parse decodes yaml, fills defaults for missing fields and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = "vpet"
	}
	c.DefaultMode = strings.ToLower(strings.TrimSpace(c.DefaultMode))
	if c.DefaultMode == "" {
		c.DefaultMode = "normal"
	}
	if c.IdleBackoffMs == 0 {
		c.IdleBackoffMs = 1000
	}
	if c.MissLogIntervalMs == 0 {
		c.MissLogIntervalMs = 5000
	}
	if c.Scale == 0 {
		c.Scale = 1
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c Config) Validate() error {
	var errs []error
	if len(c.Assets) == 0 {
		errs = append(errs, fmt.Errorf("%w: no asset directories", ErrInvalid))
	}
	if !modes[c.DefaultMode] {
		errs = append(errs, fmt.Errorf("%w: unknown default_mode %q", ErrInvalid, c.DefaultMode))
	}
	if c.IdleBackoffMs < 0 {
		errs = append(errs, fmt.Errorf("%w: idle_backoff_ms must not be negative", ErrInvalid))
	}
	if c.LoadWorkers < 0 {
		errs = append(errs, fmt.Errorf("%w: load_workers must not be negative", ErrInvalid))
	}
	if c.Scale < 0 {
		errs = append(errs, fmt.Errorf("%w: scale must be positive", ErrInvalid))
	}
	if c.MissLogIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("%w: miss_log_interval_ms must not be negative", ErrInvalid))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format))
	}
	return errors.Join(errs...)
}

func (c Config) IdleBackoff() time.Duration {
	return time.Duration(c.IdleBackoffMs) * time.Millisecond
}

func (c Config) MissLogInterval() time.Duration {
	return time.Duration(c.MissLogIntervalMs) * time.Millisecond
}

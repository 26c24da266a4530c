package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/board/aead"
	"github.com/wippyai/firmlet/errors"
	"github.com/wippyai/firmlet/scheduler"
)

// Config is the root configuration.
type Config struct {
	Board     BoardConfig     `yaml:"board"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Storage   StorageConfig   `yaml:"storage"`
	USB       USBConfig       `yaml:"usb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Applet    AppletConfig    `yaml:"applet"`
}

// BoardConfig describes the simulated hardware.
type BoardConfig struct {
	board.Support `yaml:",inline"`

	// AEAD names the algorithms with a backend.
	AEAD []string `yaml:"aead"`
	// HopIntervalMS is the dwell time on each advertising channel.
	HopIntervalMS int `yaml:"hop_interval_ms"`
}

type SchedulerConfig struct {
	QueueCapacity int    `yaml:"queue_capacity"`
	TrapPolicy    string `yaml:"trap_policy"`
	MaxNesting    int    `yaml:"max_nesting"`
}

// StorageConfig selects the persistent store. An empty path keeps storage
// in memory.
type StorageConfig struct {
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout"` // seconds
}

// USBConfig exposes the serial function on a TCP address.
type USBConfig struct {
	Listen string `yaml:"listen"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type AppletConfig struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Config("reading config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Config("parsing config file", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a board with every capability and in-memory storage.
func Default() *Config {
	return &Config{
		Board: BoardConfig{
			Support: board.Support{
				Buttons:   4,
				LEDs:      4,
				Timers:    4,
				Radio:     1,
				USBSerial: 1,
				Storage:   1,
			},
			AEAD:          []string{"chacha20poly1305", "aes256gcm"},
			HopIntervalMS: 100,
		},
		Scheduler: SchedulerConfig{
			QueueCapacity: 64,
			TrapPolicy:    "teardown",
			MaxNesting:    scheduler.DefaultMaxNesting,
		},
		Storage: StorageConfig{
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Applet: AppletConfig{
			Name: "app",
		},
	}
}

// applyEnvOverrides follows the pattern FIRMLET_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FIRMLET_APPLET_PATH"); v != "" {
		cfg.Applet.Path = v
	}
	if v := os.Getenv("FIRMLET_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("FIRMLET_USB_LISTEN"); v != "" {
		cfg.USB.Listen = v
	}
	if v := os.Getenv("FIRMLET_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := os.Getenv("FIRMLET_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FIRMLET_SCHEDULER_TRAP_POLICY"); v != "" {
		cfg.Scheduler.TrapPolicy = v
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if err := c.Board.Support.Validate(); err != nil {
		errs = append(errs, "board: "+err.Error())
	}
	if _, err := c.Algorithms(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Board.HopIntervalMS <= 0 {
		errs = append(errs, "board.hop_interval_ms must be positive")
	}
	if c.Scheduler.QueueCapacity <= 0 {
		errs = append(errs, "scheduler.queue_capacity must be positive")
	}
	if c.Scheduler.MaxNesting < 0 {
		errs = append(errs, "scheduler.max_nesting must not be negative")
	}
	if _, err := scheduler.ParseTrapPolicy(c.Scheduler.TrapPolicy); err != nil {
		errs = append(errs, fmt.Sprintf("scheduler.trap_policy %q is not teardown or continue", c.Scheduler.TrapPolicy))
	}
	if c.Storage.BusyTimeout < 0 {
		errs = append(errs, "storage.busy_timeout must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level %q is unknown", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, "logging.format must be json or console")
	}
	if c.Applet.Name == "" {
		errs = append(errs, "applet.name is required")
	}

	if len(errs) > 0 {
		return errors.Config("configuration errors: "+strings.Join(errs, "; "), nil)
	}
	return nil
}

// Algorithms resolves board.aead.
func (c *Config) Algorithms() ([]aead.Algorithm, error) {
	algs := make([]aead.Algorithm, 0, len(c.Board.AEAD))
	for _, name := range c.Board.AEAD {
		alg, ok := aead.ParseAlgorithm(strings.ToLower(name))
		if !ok {
			return nil, errors.Config(fmt.Sprintf("board.aead: unknown algorithm %q", name), nil)
		}
		algs = append(algs, alg)
	}
	return algs, nil
}

// TrapPolicy resolves scheduler.trap_policy.
func (c *Config) TrapPolicy() scheduler.TrapPolicy {
	p, _ := scheduler.ParseTrapPolicy(c.Scheduler.TrapPolicy)
	return p
}

// HopInterval returns board.hop_interval_ms as a Duration.
func (c *Config) HopInterval() time.Duration {
	return time.Duration(c.Board.HopIntervalMS) * time.Millisecond
}

// BusyTimeout returns storage.busy_timeout as a Duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Storage.BusyTimeout) * time.Second
}

// LogLevel resolves logging.level.
func (c *Config) LogLevel() zapcore.Level {
	l, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use Go duration strings
// ("250ms", "3s") instead of raw nanosecond counts.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ConnectTimeout bounds the dial and handshake; steady-state receives
	// are unbounded.
	ConnectTimeout Duration `yaml:"connect_timeout"`
	JoinTimeout    Duration `yaml:"join_timeout"`
	// TickInterval is the consumer drain cadence.
	TickInterval Duration `yaml:"tick_interval"`
	// TimeUnit, when positive, is requested from the server after the
	// initial sync (sst).
	TimeUnit int    `yaml:"time_unit"`
	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           4242,
		ConnectTimeout: Duration(10 * time.Second),
		JoinTimeout:    Duration(time.Second),
		TickInterval:   Duration(100 * time.Millisecond),
		LogLevel:       "info",
	}
}

// LoadFile overlays the YAML file at path onto cfg. Missing keys keep their
// current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	return nil
}

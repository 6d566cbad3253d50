package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avasilev/sonar-ranger/internal/sonar"
)

const (
	defaultDeviceType   = "hc-sr04"
	defaultMaxBatchSize = 100
	defaultBufferCap    = 256
)

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Sensor   SensorConfig  `yaml:"sensor"`
	Gauge    GaugeConfig   `yaml:"gauge"`
	Storage  StorageConfig `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SlogLevel parses the configured log level, defaulting to info
func (s Settings) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// SensorConfig identifies the sensor and embeds its sampling configuration
type SensorConfig struct {
	Name         string `yaml:"name"`
	ID           string `yaml:"id"`
	sonar.Config `yaml:",inline"`
}

// GaugeConfig represents reading classification settings. A zero threshold
// disables threshold watching.
type GaugeConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DataDirectory  string `yaml:"dataDirectory"`
	MaxBatchSize   int    `yaml:"maxBatchSize"`
	BufferCapacity int    `yaml:"bufferCapacity"`
}

// LoadConfig reads and validates the YAML configuration file at path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}

	if config.Sensor.Name == "" {
		config.Sensor.Name = defaultDeviceType
	}
	if config.Storage.MaxBatchSize <= 0 {
		config.Storage.MaxBatchSize = defaultMaxBatchSize
	}
	if config.Storage.BufferCapacity <= 0 {
		config.Storage.BufferCapacity = defaultBufferCap
	}
	if config.Storage.BufferCapacity < config.Storage.MaxBatchSize {
		config.Storage.BufferCapacity = config.Storage.MaxBatchSize
	}

	config.Sensor.Config = config.Sensor.Config.WithDefaults()
	if err = config.Sensor.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sensor configuration: %w", err)
	}
	if config.Gauge.Threshold < 0 {
		return nil, fmt.Errorf("invalid gauge configuration: threshold must not be negative: %f", config.Gauge.Threshold)
	}

	return &config, nil
}

package sonar

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSoundSpeed is the speed of sound in cm/s at roughly 20°C,
	// matching the HC-SR04 datasheet scaling.
	DefaultSoundSpeed = 34320.0

	// DefaultMaxRange is the rated maximum range of an HC-SR04 in cm
	DefaultMaxRange = 400.0

	// DefaultPulseWidth is the trigger pulse width the sensor expects
	DefaultPulseWidth = Duration(10 * time.Microsecond)

	// DefaultEchoTimeout bounds each edge wait. 100ms covers the round
	// trip at maximum range with a generous margin.
	DefaultEchoTimeout = Duration(100 * time.Millisecond)
)

// ConfigError is a custom error type for configuration errors
type ConfigError struct {
	msg string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// Config holds the pin assignments and timing constants of a sampler.
// It is created once at startup and read-only for the lifetime of the run.
type Config struct {
	TriggerPin     int      `yaml:"triggerPin" json:"triggerPin"`         // BCM number of the trigger output
	EchoPin        int      `yaml:"echoPin" json:"echoPin"`               // BCM number of the echo input
	SettleDelay    Duration `yaml:"settleDelay" json:"settleDelay"`       // Trigger-low settle time before each pulse
	PulseWidth     Duration `yaml:"pulseWidth" json:"pulseWidth"`         // Trigger pulse width
	EchoTimeout    Duration `yaml:"echoTimeout" json:"echoTimeout"`       // Watchdog deadline per echo edge wait
	SampleInterval Duration `yaml:"sampleInterval" json:"sampleInterval"` // Delay between measurement cycles
	SoundSpeed     float64  `yaml:"soundSpeed" json:"soundSpeed"`         // Speed of sound in cm/s
	MaxRange       float64  `yaml:"maxRange" json:"maxRange"`             // Rated sensor range in cm
}

// WithDefaults returns a copy of the config with zero values replaced by
// sensible defaults. The settle delay and sample interval are deliberately
// left alone: zero is a valid cadence.
func (c Config) WithDefaults() Config {
	if c.PulseWidth == 0 {
		c.PulseWidth = DefaultPulseWidth
	}
	if c.EchoTimeout == 0 {
		c.EchoTimeout = DefaultEchoTimeout
	}
	if c.SoundSpeed == 0 {
		c.SoundSpeed = DefaultSoundSpeed
	}
	if c.MaxRange == 0 {
		c.MaxRange = DefaultMaxRange
	}
	return c
}

// Validate checks the config invariants. It returns a *ConfigError on the
// first violation found.
func (c Config) Validate() error {
	switch {
	case c.TriggerPin < 0:
		return NewConfigError("trigger pin must not be negative: %d", c.TriggerPin)
	case c.EchoPin < 0:
		return NewConfigError("echo pin must not be negative: %d", c.EchoPin)
	case c.TriggerPin == c.EchoPin:
		return NewConfigError("trigger and echo pins must differ: both %d", c.TriggerPin)
	case c.PulseWidth <= 0:
		return NewConfigError("pulse width must be positive: %s", c.PulseWidth)
	case c.SettleDelay < 0:
		return NewConfigError("settle delay must not be negative: %s", c.SettleDelay)
	case c.EchoTimeout <= 0:
		return NewConfigError("echo timeout must be positive: %s", c.EchoTimeout)
	case c.SampleInterval < 0:
		return NewConfigError("sample interval must not be negative: %s", c.SampleInterval)
	case c.SoundSpeed <= 0:
		return NewConfigError("sound speed must be positive: %f", c.SoundSpeed)
	case c.MaxRange <= 0:
		return NewConfigError("max range must be positive: %f", c.MaxRange)
	}
	return nil
}

// Duration wraps time.Duration so timing constants can be written as
// human-readable strings ("10us", "250ms") in YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("sonar.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("sonar.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

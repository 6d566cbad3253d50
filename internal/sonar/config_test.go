package sonar

import (
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{}.WithDefaults()
	valid.TriggerPin = 23
	valid.EchoPin = 24

	if err := valid.Validate(); err != nil {
		t.Fatalf("Valid config failed validation: %v", err)
	}

	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"negative trigger pin", func(c *Config) { c.TriggerPin = -1 }},
		{"negative echo pin", func(c *Config) { c.EchoPin = -4 }},
		{"same pins", func(c *Config) { c.EchoPin = c.TriggerPin }},
		{"zero pulse width", func(c *Config) { c.PulseWidth = 0 }},
		{"negative pulse width", func(c *Config) { c.PulseWidth = Duration(-time.Microsecond) }},
		{"negative settle delay", func(c *Config) { c.SettleDelay = Duration(-time.Millisecond) }},
		{"zero echo timeout", func(c *Config) { c.EchoTimeout = 0 }},
		{"negative sample interval", func(c *Config) { c.SampleInterval = Duration(-time.Second) }},
		{"zero sound speed", func(c *Config) { c.SoundSpeed = 0 }},
		{"negative max range", func(c *Config) { c.MaxRange = -400 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := valid
			tc.modify(&config)

			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}

			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Errorf("Expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	config := Config{TriggerPin: 23, EchoPin: 24}.WithDefaults()

	if config.PulseWidth != DefaultPulseWidth {
		t.Errorf("Expected default pulse width %s, got %s", DefaultPulseWidth, config.PulseWidth)
	}
	if config.EchoTimeout != DefaultEchoTimeout {
		t.Errorf("Expected default echo timeout %s, got %s", DefaultEchoTimeout, config.EchoTimeout)
	}
	if config.SoundSpeed != DefaultSoundSpeed {
		t.Errorf("Expected default sound speed %v, got %v", DefaultSoundSpeed, config.SoundSpeed)
	}
	if config.MaxRange != DefaultMaxRange {
		t.Errorf("Expected default max range %v, got %v", DefaultMaxRange, config.MaxRange)
	}

	// Zero cadence is a valid configuration, not a gap to fill
	if config.SettleDelay != 0 || config.SampleInterval != 0 {
		t.Error("Defaults must not invent a sampling cadence")
	}
}

func TestConfigUnmarshalYAML(t *testing.T) {
	data := `
triggerPin: 23
echoPin: 24
settleDelay: 10ms
pulseWidth: 10us
echoTimeout: 100ms
sampleInterval: 250ms
soundSpeed: 34320
maxRange: 400
`
	var config Config
	if err := yaml.Unmarshal([]byte(data), &config); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}

	if got := time.Duration(config.SettleDelay); got != 10*time.Millisecond {
		t.Errorf("Expected 10ms settle delay, got %v", got)
	}
	if got := time.Duration(config.PulseWidth); got != 10*time.Microsecond {
		t.Errorf("Expected 10us pulse width, got %v", got)
	}
	if got := time.Duration(config.SampleInterval); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms sample interval, got %v", got)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Parsed config failed validation: %v", err)
	}
}

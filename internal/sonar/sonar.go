package sonar

import (
	"context"
	"math"
	"time"
)

// Reading represents a single distance estimate produced by the sampler
type Reading struct {
	Timestamp    time.Time     // When the echo measurement completed
	Distance     float64       // Estimated distance in cm, rounded to two decimals
	EchoDuration time.Duration // Raw time the echo line was held high
}

// Sink consumes readings as the sampler produces them. Implementations must
// not block for longer than a bounded duration or they stall sampling.
type Sink interface {
	Publish(ctx context.Context, r Reading) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, r Reading) error

func (f SinkFunc) Publish(ctx context.Context, r Reading) error {
	return f(ctx, r)
}

// TriggerLine is the digital output that initiates an ultrasonic pulse
type TriggerLine interface {
	Set(high bool) error
}

// EchoLine is the digital input held high for a duration proportional
// to the round-trip pulse time
type EchoLine interface {
	Read() bool
}

// Distance converts the time the echo line was held high into a distance
// estimate in cm, using the given speed of sound in cm/s. The echo time
// covers the round trip, hence the division by two. The result is rounded
// to two decimal digits.
func Distance(echo time.Duration, soundSpeed float64) float64 {
	return roundDistance(echo.Seconds() * soundSpeed / 2)
}

func roundDistance(d float64) float64 {
	return math.Round(d*100) / 100
}

package sonar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ErrEchoTimeout is returned when the echo line fails to transition within
// the configured watchdog window. The sampling loop recovers from it by
// skipping the iteration.
var ErrEchoTimeout = errors.New("echo edge timeout")

// WithLogger sets the logger for the sampler
func WithLogger(logger *slog.Logger) func(s *Sampler) {
	return func(s *Sampler) {
		s.logger = logger.With(
			slog.Int("triggerPin", s.config.TriggerPin),
			slog.Int("echoPin", s.config.EchoPin),
		)
	}
}

// WithClock sets the time source used for edge timing. Tests use it to make
// echo durations deterministic.
func WithClock(now func() time.Time) func(s *Sampler) {
	return func(s *Sampler) {
		s.now = now
	}
}

// Sampler repeatedly measures the distance to the nearest object by timing
// the echo line's two edge transitions, and hands each reading to a sink.
// It exclusively owns both GPIO lines while Run is in flight.
type Sampler struct {
	trigger TriggerLine
	echo    EchoLine
	config  Config

	now    func() time.Time
	logger *slog.Logger

	emitted uint64
	skipped uint64
}

// New creates a Sampler for the given lines. The config is completed with
// defaults and validated; an invalid config is fatal and the loop never starts.
func New(trigger TriggerLine, echo EchoLine, config Config, options ...func(s *Sampler)) (*Sampler, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := Sampler{
		trigger: trigger,
		echo:    echo,
		config:  config,
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Run executes measurement cycles until ctx is cancelled. Cancellation is
// cooperative and checked once per iteration, never mid-measurement; each
// edge wait is bounded by the watchdog window instead.
//
// Exactly one reading is published per successful two-edge measurement.
// A timed-out cycle publishes nothing and the loop continues with a fresh
// trigger pulse. Sink errors are logged and never treated as fatal.
// Cancellation is a clean termination path and returns nil.
func (s *Sampler) Run(ctx context.Context, sink Sink) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		reading, err := s.measure(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil

		case errors.Is(err, ErrEchoTimeout):
			s.skipped++
			s.logger.Warn("skipping cycle",
				slog.String("error", err.Error()),
				slog.String("watchdog", s.config.EchoTimeout.String()))

		case err != nil:
			return fmt.Errorf("measuring distance: %w", err)

		default:
			s.emitted++
			if err = sink.Publish(ctx, reading); err != nil {
				s.logger.Error(fmt.Sprintf("publishing reading: %s", err.Error()))
			}
		}

		if err = sleep(ctx, time.Duration(s.config.SampleInterval)); err != nil {
			return nil
		}
	}
}

// Stats returns the number of readings emitted and cycles skipped so far.
// It must not be called while Run is in flight.
func (s *Sampler) Stats() (emitted, skipped uint64) {
	return s.emitted, s.skipped
}

// measure performs a single trigger-and-time cycle
func (s *Sampler) measure(ctx context.Context) (Reading, error) {
	if err := s.trigger.Set(false); err != nil {
		return Reading{}, fmt.Errorf("driving trigger low: %w", err)
	}
	if err := sleep(ctx, time.Duration(s.config.SettleDelay)); err != nil {
		return Reading{}, err
	}

	if err := s.trigger.Set(true); err != nil {
		return Reading{}, fmt.Errorf("driving trigger high: %w", err)
	}
	if err := sleep(ctx, time.Duration(s.config.PulseWidth)); err != nil {
		return Reading{}, err
	}
	if err := s.trigger.Set(false); err != nil {
		return Reading{}, fmt.Errorf("driving trigger low: %w", err)
	}

	start, err := s.waitForLevel(true)
	if err != nil {
		return Reading{}, err
	}

	end, err := s.waitForLevel(false)
	if err != nil {
		return Reading{}, err
	}

	echo := end.Sub(start)
	return Reading{
		Timestamp:    end,
		Distance:     Distance(echo, s.config.SoundSpeed),
		EchoDuration: echo,
	}, nil
}

// waitForLevel busy-waits for the echo line to reach the wanted level and
// returns the transition time. The wait is bounded by the watchdog window.
func (s *Sampler) waitForLevel(high bool) (time.Time, error) {
	deadline := s.now().Add(time.Duration(s.config.EchoTimeout))
	for s.echo.Read() != high {
		if s.now().After(deadline) {
			return time.Time{}, fmt.Errorf("waiting for echo %s: %w", levelName(high), ErrEchoTimeout)
		}
	}
	return s.now(), nil
}

func levelName(high bool) string {
	if high {
		return "rising edge"
	}
	return "falling edge"
}

// sleep blocks for d or until ctx is cancelled, whichever comes first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package sonar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeTrigger records trigger pulses and arms the fake echo line on each
// rising edge, so the echo behaviour can be scripted per cycle.
type fakeTrigger struct {
	mu     sync.Mutex
	level  bool
	pulses int
	echo   *fakeEcho
}

func (t *fakeTrigger) Set(high bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if high && !t.level {
		t.pulses++
		if t.echo != nil {
			t.echo.arm(t.pulses - 1)
		}
	}
	t.level = high
	return nil
}

func (t *fakeTrigger) Pulses() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pulses
}

// echoCycle scripts the echo line for a single trigger pulse: the line reads
// low lowReads times, then high highReads times, then low again. A zero
// highReads means the echo never rises and the cycle times out.
type echoCycle struct {
	lowReads  int
	highReads int
}

type fakeEcho struct {
	mu     sync.Mutex
	cycles []echoCycle
	armed  int
	reads  int
}

func (e *fakeEcho) arm(cycle int) {
	e.mu.Lock()
	e.armed = cycle
	e.reads = 0
	e.mu.Unlock()
}

func (e *fakeEcho) Read() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.armed >= len(e.cycles) {
		return false
	}

	c := e.cycles[e.armed]
	e.reads++
	if c.highReads == 0 || e.reads <= c.lowReads {
		return false
	}
	return e.reads <= c.lowReads+c.highReads
}

// recordingSink collects published readings and cancels the run context once
// it has seen limit readings.
type recordingSink struct {
	mu       sync.Mutex
	readings []Reading
	limit    int
	cancel   context.CancelFunc
	err      error
}

func (s *recordingSink) Publish(_ context.Context, r Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = append(s.readings, r)
	if s.cancel != nil && len(s.readings) >= s.limit {
		s.cancel()
	}
	return s.err
}

func (s *recordingSink) Readings() []Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Reading(nil), s.readings...)
}

// stepClock is a deterministic time source advancing by a fixed step on
// every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func testConfig() Config {
	return Config{
		TriggerPin:  23,
		EchoPin:     24,
		PulseWidth:  Duration(time.Microsecond),
		EchoTimeout: Duration(50 * time.Millisecond),
	}
}

func newTestRig(t *testing.T, cycles []echoCycle, options ...func(*Sampler)) (*Sampler, *fakeTrigger) {
	t.Helper()

	echo := &fakeEcho{cycles: cycles}
	trigger := &fakeTrigger{echo: echo}

	s, err := New(trigger, echo, testConfig(), options...)
	if err != nil {
		t.Fatalf("Failed to create sampler: %v", err)
	}
	return s, trigger
}

func TestSampler_OneReadingPerCycle(t *testing.T) {
	cycles := []echoCycle{
		{lowReads: 2, highReads: 3},
		{lowReads: 2, highReads: 3},
		{lowReads: 2, highReads: 3},
	}
	s, trigger := newTestRig(t, cycles)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{limit: 3, cancel: cancel}
	if err := s.Run(ctx, sink); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	readings := sink.Readings()
	if len(readings) != 3 {
		t.Fatalf("Expected 3 readings, got %d", len(readings))
	}
	if pulses := trigger.Pulses(); pulses != 3 {
		t.Errorf("Expected 3 trigger pulses, got %d", pulses)
	}

	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.Before(readings[i-1].Timestamp) {
			t.Errorf("Reading %d timestamp %v precedes reading %d timestamp %v",
				i, readings[i].Timestamp, i-1, readings[i-1].Timestamp)
		}
	}

	emitted, skipped := s.Stats()
	if emitted != 3 || skipped != 0 {
		t.Errorf("Expected stats (3, 0), got (%d, %d)", emitted, skipped)
	}
}

func TestSampler_DistanceFromEdgeTiming(t *testing.T) {
	// With a 250µs step clock and an echo scripted to rise immediately and
	// stay high for three reads, the measured echo time spans four clock
	// steps: 1ms. At 34320 cm/s that is 34320 * 0.001 / 2 = 17.16 cm.
	clock := &stepClock{t: time.Unix(0, 0), step: 250 * time.Microsecond}
	s, _ := newTestRig(t, []echoCycle{{lowReads: 0, highReads: 3}}, WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{limit: 1, cancel: cancel}
	if err := s.Run(ctx, sink); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	readings := sink.Readings()
	if len(readings) != 1 {
		t.Fatalf("Expected 1 reading, got %d", len(readings))
	}
	if got := readings[0].EchoDuration; got != time.Millisecond {
		t.Errorf("Expected 1ms echo duration, got %v", got)
	}
	if got := readings[0].Distance; got != 17.16 {
		t.Errorf("Expected distance 17.16, got %v", got)
	}
}

func TestSampler_TimeoutSkipsCycle(t *testing.T) {
	cycles := []echoCycle{
		{lowReads: 1 << 30, highReads: 0}, // echo never rises
		{lowReads: 2, highReads: 3},
	}
	echo := &fakeEcho{cycles: cycles}
	trigger := &fakeTrigger{echo: echo}

	config := testConfig()
	config.EchoTimeout = Duration(2 * time.Millisecond)

	s, err := New(trigger, echo, config)
	if err != nil {
		t.Fatalf("Failed to create sampler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{limit: 1, cancel: cancel}
	if err = s.Run(ctx, sink); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if readings := sink.Readings(); len(readings) != 1 {
		t.Fatalf("Expected 1 reading, got %d", len(readings))
	}
	if pulses := trigger.Pulses(); pulses != 2 {
		t.Errorf("Expected 2 trigger pulses, got %d", pulses)
	}

	emitted, skipped := s.Stats()
	if emitted != 1 || skipped != 1 {
		t.Errorf("Expected stats (1, 1), got (%d, %d)", emitted, skipped)
	}
}

func TestSampler_StopBeforeFirstIteration(t *testing.T) {
	s, trigger := newTestRig(t, []echoCycle{{lowReads: 2, highReads: 3}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	if err := s.Run(ctx, sink); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if readings := sink.Readings(); len(readings) != 0 {
		t.Errorf("Expected no readings, got %d", len(readings))
	}
	if pulses := trigger.Pulses(); pulses != 0 {
		t.Errorf("Expected no trigger pulses, got %d", pulses)
	}
}

func TestSampler_SinkErrorDoesNotStopLoop(t *testing.T) {
	cycles := []echoCycle{
		{lowReads: 2, highReads: 3},
		{lowReads: 2, highReads: 3},
	}
	s, _ := newTestRig(t, cycles)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{limit: 2, cancel: cancel, err: errors.New("sink unavailable")}
	if err := s.Run(ctx, sink); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	emitted, _ := s.Stats()
	if emitted != 2 {
		t.Errorf("Expected 2 emitted readings despite sink errors, got %d", emitted)
	}
}

func TestDistance(t *testing.T) {
	testCases := []struct {
		name       string
		echo       time.Duration
		soundSpeed float64
		want       float64
	}{
		{"1ms echo at datasheet scaling", time.Millisecond, 34320, 17.16},
		{"rounded to two decimals", 291 * time.Microsecond, 34320, 4.99},
		{"zero echo", 0, 34320, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Distance(tc.echo, tc.soundSpeed); got != tc.want {
				t.Errorf("Distance(%v, %v) = %v, want %v", tc.echo, tc.soundSpeed, got, tc.want)
			}
		})
	}
}

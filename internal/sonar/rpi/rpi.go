// Package rpi provides the Raspberry Pi implementation of the sampler's
// trigger and echo lines using the periph.io library. Pins are addressed by
// their BCM numbers.
package rpi

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/avasilev/sonar-ranger/internal/sonar"
)

// Lines owns the two GPIO pins of an ultrasonic sensor for the lifetime of a
// sampling run. No other component may drive or read them while open.
type Lines struct {
	trigger gpio.PinIO
	echo    gpio.PinIO
}

// Open initialises the periph host state and claims both pins: the trigger
// as an output driven low, the echo as a pulled-down input. host.Init can
// safely be called multiple times; subsequent calls are no-ops.
func Open(triggerPin, echoPin int) (*Lines, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}

	trigger := gpioreg.ByName(fmt.Sprintf("GPIO%d", triggerPin))
	if trigger == nil {
		return nil, fmt.Errorf("no such pin: GPIO%d", triggerPin)
	}

	echo := gpioreg.ByName(fmt.Sprintf("GPIO%d", echoPin))
	if echo == nil {
		return nil, fmt.Errorf("no such pin: GPIO%d", echoPin)
	}

	if err := trigger.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configuring trigger pin %s: %w", trigger.Name(), err)
	}

	if err := echo.In(gpio.PullDown, gpio.NoEdge); err != nil {
		_ = trigger.Halt()
		return nil, fmt.Errorf("configuring echo pin %s: %w", echo.Name(), err)
	}

	return &Lines{trigger: trigger, echo: echo}, nil
}

// Trigger returns the sampler's view of the trigger output
func (l *Lines) Trigger() sonar.TriggerLine {
	return triggerLine{l.trigger}
}

// Echo returns the sampler's view of the echo input
func (l *Lines) Echo() sonar.EchoLine {
	return echoLine{l.echo}
}

// Close drives the trigger low and releases both pins. It is called on every
// exit path of the sampling run.
func (l *Lines) Close() error {
	var errs []error
	if err := l.trigger.Out(gpio.Low); err != nil {
		errs = append(errs, fmt.Errorf("parking trigger pin: %w", err))
	}
	if err := l.trigger.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("releasing trigger pin: %w", err))
	}
	if err := l.echo.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("releasing echo pin: %w", err))
	}
	return errors.Join(errs...)
}

type triggerLine struct {
	pin gpio.PinIO
}

func (t triggerLine) Set(high bool) error {
	return t.pin.Out(gpio.Level(high))
}

type echoLine struct {
	pin gpio.PinIO
}

func (e echoLine) Read() bool {
	return e.pin.Read() == gpio.High
}

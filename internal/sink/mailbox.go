// Package sink provides reading sinks that sit between the sampler and
// slower consumers.
package sink

import (
	"context"
	"sync"

	"github.com/avasilev/sonar-ranger/internal/sonar"
)

// Mailbox is a single-slot, latest-wins buffer. Publish never blocks: when
// the slot is occupied the pending reading is replaced, so a slow consumer
// observes the most recent reading and never starves sampling.
type Mailbox struct {
	mu      sync.Mutex
	updates chan sonar.Reading
	latest  sonar.Reading
	ok      bool
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{
		updates: make(chan sonar.Reading, 1),
	}
}

// Publish stores the reading as the latest value and conflates the pending
// update slot. It always returns nil.
func (m *Mailbox) Publish(_ context.Context, r sonar.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latest, m.ok = r, true

	select {
	case m.updates <- r:
	default:
		// Slot occupied: replace the stale reading. The drain cannot race
		// another producer, sends are serialised by the mutex.
		select {
		case <-m.updates:
		default:
		}
		m.updates <- r
	}

	return nil
}

// Updates returns the single-slot update channel. Each receive yields the
// newest unobserved reading; intermediate readings may be skipped.
func (m *Mailbox) Updates() <-chan sonar.Reading {
	return m.updates
}

// Latest returns the most recently published reading, if any
func (m *Mailbox) Latest() (sonar.Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.ok
}

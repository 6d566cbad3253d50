package sonar

import (
	"fmt"
	"sync"
)

// node represents an internal linked list node for the reading buffer
type node struct {
	reading Reading
	next    *node
}

// ReadingBuffer implements a thread-safe staging buffer for distance readings
// awaiting persistence. Readings are kept ordered by their timestamps even if
// they are handed over out of order, so batches always leave the buffer in
// generation order.
type ReadingBuffer struct {
	capacity   int // Maximum number of readings to store
	flushCount int // Number of readings to remove when buffer reaches capacity

	mu   sync.Mutex
	head *node
	size int
}

// NewReadingBuffer creates a new reading buffer. The buffer will store up to
// capacity readings and remove flushCount readings when full.
// Returns an error if parameters are invalid.
func NewReadingBuffer(capacity, flushCount int) (*ReadingBuffer, error) {
	if capacity <= 0 || flushCount <= 0 || flushCount > capacity {
		return nil, fmt.Errorf("invalid buffer parameters: bufferCap=%d, toFlush=%d", capacity, flushCount)
	}
	return &ReadingBuffer{
		capacity:   capacity,
		flushCount: flushCount,
	}, nil
}

// Insert adds a new reading to the buffer in timestamp order
func (rb *ReadingBuffer) Insert(reading Reading) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.head == nil {
		rb.head = &node{reading: reading}
		rb.size++
		return
	}

	// Special case: if the reading belongs before head
	if reading.Timestamp.Before(rb.head.reading.Timestamp) {
		rb.head = &node{reading: reading, next: rb.head}
		rb.size++
		return
	}

	// Find insertion point
	current := rb.head
	for current.next != nil && !current.next.reading.Timestamp.After(reading.Timestamp) {
		current = current.next
	}

	current.next = &node{reading: reading, next: current.next}
	rb.size++
}

// IsFull returns true if the buffer has reached its capacity
func (rb *ReadingBuffer) IsFull() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	return rb.size >= rb.capacity
}

// Flush removes and returns the oldest readings from the buffer.
// Returns nil if the buffer is empty. The number of readings returned
// is determined by the flushCount parameter and buffer state.
func (rb *ReadingBuffer) Flush() []Reading {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.head == nil || rb.size == 0 {
		return nil
	}

	count := rb.flushCount
	if rb.size > rb.capacity {
		count += rb.size - rb.capacity
	}
	count = min(count, rb.size)

	results := make([]Reading, 0, count)
	current := rb.head
	for i := 0; i < count && current != nil; i++ {
		results = append(results, current.reading)
		current = current.next
	}

	rb.head = current
	rb.size -= len(results)
	return results
}

// DrainAll removes and returns all readings from the buffer.
// Returns nil if the buffer is empty.
func (rb *ReadingBuffer) DrainAll() []Reading {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.head == nil || rb.size == 0 {
		return nil
	}

	results := make([]Reading, 0, rb.size)
	current := rb.head
	for current != nil {
		results = append(results, current.reading)
		current = current.next
	}

	rb.head = nil
	rb.size = 0
	return results
}

// Size returns the current number of readings in the buffer
func (rb *ReadingBuffer) Size() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Clear removes all readings from the buffer
func (rb *ReadingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = nil
	rb.size = 0
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/avasilev/sonar-ranger/internal/sonar"
	"github.com/avasilev/sonar-ranger/internal/storage"
)

// errRecorderSaturated is returned from Publish when the handover queue is
// full. The reading is dropped; the sampler logs and keeps going.
var errRecorderSaturated = errors.New("recorder queue is full, dropping reading")

// recorder is the storage sink. Publish only hands the reading over to a
// buffered channel, so a slow database never blocks the sampling loop; a
// background goroutine stages readings in a timestamp-ordered buffer and
// flushes them to the store in batched transactions.
type recorder struct {
	store     *storage.Store
	sessionID int64

	buffer       *sonar.ReadingBuffer
	maxBatchSize int
	logger       *slog.Logger

	readings chan sonar.Reading
	done     chan struct{}
	stopOnce sync.Once
}

func newRecorder(store *storage.Store, sessionID int64, config *StorageConfig, logger *slog.Logger) (*recorder, error) {
	buffer, err := sonar.NewReadingBuffer(config.BufferCapacity, config.MaxBatchSize)
	if err != nil {
		return nil, fmt.Errorf("creating reading buffer: %w", err)
	}

	r := recorder{
		store:        store,
		sessionID:    sessionID,
		buffer:       buffer,
		maxBatchSize: config.MaxBatchSize,
		logger:       logger.With(slog.Int64("sessionID", sessionID)),
		readings:     make(chan sonar.Reading, config.BufferCapacity),
		done:         make(chan struct{}),
	}

	go r.run()
	return &r, nil
}

func (r *recorder) Publish(_ context.Context, reading sonar.Reading) error {
	select {
	case r.readings <- reading:
		return nil
	default:
		return errRecorderSaturated
	}
}

// Stop drains the handover queue, flushes the staging buffer and waits for
// the background goroutine to finish. Publish must not be called after Stop.
func (r *recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.readings)
		<-r.done
	})
}

func (r *recorder) run() {
	defer close(r.done)

	for reading := range r.readings {
		r.buffer.Insert(reading)
		if r.buffer.IsFull() {
			r.flush(r.buffer.Flush())
		}
	}

	r.flush(r.buffer.DrainAll())
}

func (r *recorder) flush(batch []sonar.Reading) {
	for chunk := range slices.Chunk(batch, r.maxBatchSize) {
		if err := r.store.BatchInsertReadings(r.sessionID, chunk); err != nil {
			r.logger.Error(fmt.Sprintf("storing readings: %s", err.Error()))
		}
	}
}

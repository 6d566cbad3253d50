package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/avasilev/sonar-ranger/internal/gauge"
	"github.com/avasilev/sonar-ranger/internal/sink"
	"github.com/avasilev/sonar-ranger/internal/sonar"
	"github.com/avasilev/sonar-ranger/internal/sonar/rpi"
	"github.com/avasilev/sonar-ranger/internal/storage"
)

const storageDir = "data"

// Run wires the GPIO lines, the sampler and its sinks together and samples
// until the context is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	lines, err := rpi.Open(config.Sensor.TriggerPin, config.Sensor.EchoPin)
	if err != nil {
		return fmt.Errorf("opening GPIO lines: %w", err)
	}
	defer func() {
		if cErr := lines.Close(); cErr != nil {
			logger.Error(fmt.Sprintf("releasing GPIO lines: %s", cErr.Error()))
		}
	}()

	sampler, err := sonar.New(lines.Trigger(), lines.Echo(), config.Sensor.Config, sonar.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating sampler: %w", err)
	}

	mailbox := sink.NewMailbox()
	sinks := sink.Fanout{mailbox}

	if config.Storage.Enabled {
		store, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("creating storage: %w", err)
		}
		defer store.Close()

		sessionID, err := store.CreateSession(config.Sensor.Name, config.Sensor.ID, config.Sensor)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}

		recorder, err := newRecorder(store, sessionID, &config.Storage, logger)
		if err != nil {
			return fmt.Errorf("creating recorder: %w", err)
		}
		defer recorder.Stop()

		sinks = append(sinks, recorder)
	}

	go watchReadings(ctx, mailbox, config, logger)

	logger.Info("starting distance sampling",
		slog.Int("triggerPin", config.Sensor.TriggerPin),
		slog.Int("echoPin", config.Sensor.EchoPin),
		slog.String("sampleInterval", config.Sensor.SampleInterval.String()))

	err = sampler.Run(ctx, sinks)

	emitted, skipped := sampler.Stats()
	logger.Info("sampling stopped",
		slog.String("emitted", humanize.Comma(int64(emitted))),
		slog.String("skipped", humanize.Comma(int64(skipped))))

	return err
}

// watchReadings consumes the latest-value mailbox: it logs each observed
// reading and reports threshold crossings. The mailbox conflates updates, so
// falling behind here never stalls the sampler.
func watchReadings(ctx context.Context, mailbox *sink.Mailbox, config *Config, logger *slog.Logger) {
	threshold := gauge.Threshold{Limit: config.Gauge.Threshold}
	maxRange := config.Sensor.MaxRange

	var near bool
	for {
		select {
		case <-ctx.Done():
			return

		case r := <-mailbox.Updates():
			logger.Debug("distance reading",
				slog.Float64("cm", r.Distance),
				slog.String("scale", fmt.Sprintf("%.0f%%", gauge.Percent(r.Distance, maxRange))))

			if threshold.Limit <= 0 {
				continue
			}

			if isNear := threshold.Near(r.Distance); isNear != near {
				near = isNear
				if near {
					logger.Warn("object inside threshold",
						slog.Float64("cm", r.Distance),
						slog.Float64("threshold", threshold.Limit))
				} else {
					logger.Info("object cleared threshold",
						slog.Float64("cm", r.Distance),
						slog.Float64("threshold", threshold.Limit))
				}
			}
		}
	}
}

func createStorage(config *StorageConfig) (*storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dbPath := filepath.Join(wd, storageDir)
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("sonar_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.New(dbPath), nil
}

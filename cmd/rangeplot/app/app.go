package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/avasilev/sonar-ranger/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.New(config.DBPath)
	defer store.Close()

	return readProfile(ctx, store, config, logger)
}

func readProfile(ctx context.Context, store *storage.Store, config *Config, logger *slog.Logger) error {
	session, err := store.Session(config.SessionID)
	if err != nil {
		return fmt.Errorf("loading session %d: %w", config.SessionID, err)
	}

	var opts []storage.ReadingsOption
	var filters []any
	switch {
	case config.MinTimestamp != nil && config.MaxTimestamp != nil:
		opts = append(opts, storage.WithTimeRange(config.MinTimestamp.UTC(), config.MaxTimestamp.UTC()))

		filters = append(filters,
			slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)),
			slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))

	case config.MinTimestamp != nil:
		opts = append(opts, storage.WithStartTime(config.MinTimestamp.UTC()))
		filters = append(filters, slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)))

	case config.MaxTimestamp != nil:
		opts = append(opts, storage.WithEndTime(config.MaxTimestamp.UTC()))
		filters = append(filters, slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))
	}

	if len(filters) > 0 {
		logger.Info("iterator configuration", filters...)
	}

	iter, err := store.Readings(ctx, config.SessionID, opts...)
	if err != nil {
		return err
	}
	defer iter.Close()

	profile := NewProfileData()
	for iter.Next() {
		profile.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return err
	}

	if profile.Empty() {
		return fmt.Errorf("session %d has no readings to plot", config.SessionID)
	}

	logger.Info("finished reading data points",
		slog.Group("stats",
			slog.String("readings", humanize.Comma(int64(len(profile.Points)))),
			slog.String("minTimestamp", profile.TimestampStart.Local().Format(time.DateTime)),
			slog.String("maxTimestamp", profile.TimestampEnd.Local().Format(time.DateTime)),
			slog.String("minDistance", fmt.Sprintf("%0.2fcm", profile.DistanceMin)),
			slog.String("maxDistance", fmt.Sprintf("%0.2fcm", profile.DistanceMax)),
		))

	renderer, err := NewProfileRenderer(RenderConfig{
		MaxRange:      config.MaxRange,
		SessionLabel:  fmt.Sprintf("%s %s", session.DeviceType, session.DeviceID),
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating profile renderer: %w", err)
	}

	img, err := renderer.Render(profile)
	if err != nil {
		return fmt.Errorf("rendering profile: %w", err)
	}

	logger.Info("rendered distance profile",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}

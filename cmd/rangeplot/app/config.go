package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	OutputFile    string
	Format        ImageFormat
	MaxRange      *float64
	MinTimestamp  *time.Time
	MaxTimestamp  *time.Time
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format: ImagePNG,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat string
	var maxRange float64
	var minTime, maxTime string
	flag.StringVar(&c.DBPath, "db", "", "Path to the session database file")
	flag.Int64Var(&c.SessionID, "s", 1, "Session ID")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.Float64Var(&maxRange, "max-range", 0, "Define a manual full-scale distance in cm (format nnn.n)")
	flag.StringVar(&minTime, "min-time", "", "Skip readings taken before this time (format '2006-01-02 15:04:05')")
	flag.StringVar(&maxTime, "max-time", "", "Skip readings taken after this time (format '2006-01-02 15:04:05')")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and distance scales")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "max-range" {
			c.MaxRange = &maxRange
		}
	})

	var err error
	if minTime != "" {
		var t time.Time
		if t, err = time.ParseInLocation(time.DateTime, minTime, time.Local); err != nil {
			return nil, fmt.Errorf("invalid min-time: %w", err)
		}
		c.MinTimestamp = &t
	}
	if maxTime != "" {
		var t time.Time
		if t, err = time.ParseInLocation(time.DateTime, maxTime, time.Local); err != nil {
			return nil, fmt.Errorf("invalid max-time: %w", err)
		}
		c.MaxTimestamp = &t
	}

	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.SessionID <= 0:
		err = errors.New("session id is required")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.MaxRange != nil && *c.MaxRange <= 0:
		err = errors.New("max-range must be positive")
	default:
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		}
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

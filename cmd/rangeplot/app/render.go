package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/avasilev/sonar-ranger/internal/gauge"
)

const (
	defaultPlotHeight = 400
	minPlotWidth      = 640
	maxPlotWidth      = 4096

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 140
	defaultRightBorder  = 40

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

var (
	frameColor = color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
	gridColor  = color.RGBA{R: 0xd8, G: 0xd8, B: 0xd8, A: 0xff}
	lineColor  = color.RGBA{R: 0x46, G: 0x82, B: 0xb4, A: 0xff}
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Top padding
	Left   int // Space for distance scale
	Bottom int // Space for time scale and information block
	Right  int // Right padding
}

// RenderConfig holds all configuration options for profile visualization
type RenderConfig struct {
	// Time display configuration
	TimeFormat     string         // Format string for time display (e.g. "15:04:05")
	DatetimeFormat string         // Format string for date/time display
	Location       *time.Location // Timezone for time display

	// Visual configuration
	FontSize     float64  // Font size in points
	PlotHeight   int      // Height of the plot area in pixels
	MaxRange     *float64 // Manual full-scale distance in cm (nil to derive from data)
	SessionLabel string   // Session description for the information block

	NoAnnotations bool

	// Border configuration
	BorderConfig BorderConfig
}

// ProfileRenderer handles the visualization of distance profile data
type ProfileRenderer struct {
	config    RenderConfig
	annotator *Annotator
}

// NewProfileRenderer creates a new profile renderer with the given configuration
func NewProfileRenderer(config RenderConfig) (*ProfileRenderer, error) {
	// Set defaults for zero values
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.PlotHeight == 0 {
		config.PlotHeight = defaultPlotHeight
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	r := ProfileRenderer{config: config}
	if !config.NoAnnotations {
		annotator, err := NewAnnotator(&r.config)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		r.annotator = annotator
	}

	return &r, nil
}

// Render creates an image of the distance profile with annotations
func (r *ProfileRenderer) Render(profile *ProfileData) (*image.RGBA, error) {
	if profile.Empty() {
		return nil, errors.New("no readings to render")
	}

	scale := r.fullScale(profile)

	plotWidth := min(max(len(profile.Points), minPlotWidth), maxPlotWidth)
	plotHeight := r.config.PlotHeight

	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, plotWidth+b.Left+b.Right, plotHeight+b.Top+b.Bottom))

	// Fill with white background
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	plot := image.Rect(b.Left, b.Top, b.Left+plotWidth, b.Top+plotHeight)
	r.drawFrame(img, plot)
	r.drawProfile(img, plot, profile, scale)

	if r.annotator != nil {
		if err := r.annotator.Annotate(img, profile, plot, scale); err != nil {
			return nil, fmt.Errorf("annotating profile: %w", err)
		}
	}

	return img, nil
}

// fullScale returns the distance mapped to the top of the plot: either the
// manual override or the observed maximum rounded up to the next 10cm.
func (r *ProfileRenderer) fullScale(profile *ProfileData) float64 {
	if r.config.MaxRange != nil {
		return *r.config.MaxRange
	}
	return max(math.Ceil(profile.DistanceMax/10)*10, 10)
}

func (r *ProfileRenderer) drawFrame(img *image.RGBA, plot image.Rectangle) {
	for x := plot.Min.X - 1; x <= plot.Max.X; x++ {
		img.Set(x, plot.Min.Y-1, frameColor)
		img.Set(x, plot.Max.Y, frameColor)
	}
	for y := plot.Min.Y - 1; y <= plot.Max.Y; y++ {
		img.Set(plot.Min.X-1, y, frameColor)
		img.Set(plot.Max.X, y, frameColor)
	}
}

func (r *ProfileRenderer) drawProfile(img *image.RGBA, plot image.Rectangle, profile *ProfileData, scale float64) {
	prev := image.Point{X: -1}
	for _, reading := range profile.Points {
		p := image.Point{
			X: pointX(plot, profile, reading.Timestamp),
			Y: pointY(plot, scale, reading.Distance),
		}

		if prev.X < 0 {
			img.Set(p.X, p.Y, lineColor)
		} else {
			drawLine(img, prev, p, lineColor)
		}
		prev = p
	}
}

// pointX maps a reading's timestamp onto the plot's horizontal axis
func pointX(plot image.Rectangle, profile *ProfileData, ts time.Time) int {
	window := profile.Duration()
	if window <= 0 {
		return plot.Min.X
	}

	f := float64(ts.Sub(profile.TimestampStart)) / float64(window)
	return plot.Min.X + int(f*float64(plot.Dx()-1))
}

// pointY maps a distance onto the plot's vertical axis. Out-of-range values
// clamp to the plot edges via the shared gauge contract.
func pointY(plot image.Rectangle, scale, distance float64) int {
	f := gauge.Fraction(distance, scale)
	return plot.Max.Y - 1 - int(f*float64(plot.Dy()-1))
}

// drawLine draws a straight segment between two points using Bresenham's
// algorithm.
func drawLine(img *image.RGBA, from, to image.Point, c color.Color) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)

	sx := 1
	if from.X > to.X {
		sx = -1
	}
	sy := 1
	if from.Y > to.Y {
		sy = -1
	}

	err := dx + dy
	x, y := from.X, from.Y
	for {
		img.Set(x, y, c)
		if x == to.X && y == to.Y {
			return
		}

		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

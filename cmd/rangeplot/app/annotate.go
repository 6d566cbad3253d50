package app

import (
	"fmt"
	"image"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	dpi     float64 = 72
	size    float64 = 13
	spacing float64 = 1.2

	pixelsPerTimeLabel     = 150
	pixelsPerDistanceLabel = 100
	tickMarkLength         = 5
)

// Annotator draws the time and distance scales and the information block
// around a rendered profile.
type Annotator struct {
	context *freetype.Context
	config  *RenderConfig
}

func NewAnnotator(config *RenderConfig) (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	fontSize := size
	if config.FontSize > 0 {
		fontSize = config.FontSize
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(fontSize)
	context.SetSrc(image.Black)
	context.SetHinting(font.HintingFull)

	return &Annotator{context: context, config: config}, nil
}

func (a *Annotator) Annotate(img *image.RGBA, profile *ProfileData, plot image.Rectangle, scale float64) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, *ProfileData, image.Rectangle, float64) error
	}{
		{"drawing time scale", a.drawTimeScale},
		{"drawing distance scale", a.drawDistanceScale},
		{"drawing info", a.drawInfo},
	}
	for _, op := range ops {
		if err := op.fn(img, profile, plot, scale); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *Annotator) drawTimeScale(img *image.RGBA, profile *ProfileData, plot image.Rectangle, _ float64) error {
	count := max(plot.Dx()/pixelsPerTimeLabel, 1)
	window := profile.Duration()

	for si := 0; si <= count; si++ {
		px := plot.Min.X + si*plot.Dx()/count
		point := profile.TimestampStart.Add(window * time.Duration(si) / time.Duration(count))

		// draw a tick mark on the exact time
		for i := 0; i < tickMarkLength; i++ {
			img.Set(px, plot.Max.Y+i, frameColor)
		}

		str := point.In(a.config.Location).Format(a.config.TimeFormat)
		pt := freetype.Pt(px-len(str)*3, plot.Max.Y+tickMarkLength+14)
		if _, err := a.context.DrawString(str, pt); err != nil {
			return err
		}
	}

	return nil
}

func (a *Annotator) drawDistanceScale(img *image.RGBA, _ *ProfileData, plot image.Rectangle, scale float64) error {
	count := max(plot.Dy()/pixelsPerDistanceLabel, 2)

	for si := 0; si <= count; si++ {
		py := plot.Min.Y + si*plot.Dy()/count
		distance := scale * float64(count-si) / float64(count)

		// draw a guideline on the exact distance
		if si > 0 && si < count {
			for x := plot.Min.X; x < plot.Max.X; x++ {
				img.Set(x, py, gridColor)
			}
		}

		str := a.humanDistance(distance)
		pt := freetype.Pt(3, py+5)
		if _, err := a.context.DrawString(str, pt); err != nil {
			return err
		}
	}

	return nil
}

func (a *Annotator) drawInfo(img *image.RGBA, profile *ProfileData, plot image.Rectangle, scale float64) error {
	secsPerPixel := profile.Duration().Seconds() / float64(plot.Dx())
	cmPerPixel := scale / float64(plot.Dy())

	// positioning below the time scale
	top, left := plot.Max.Y+45, 3

	strings := []string{
		"Session: " + a.config.SessionLabel,
		"Scan start: " + profile.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		"Scan end: " + profile.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat),
		fmt.Sprintf("Readings: %s", humanize.Comma(int64(len(profile.Points)))),
		fmt.Sprintf("Distance: %s to %s", a.humanDistance(profile.DistanceMin), a.humanDistance(profile.DistanceMax)),
		fmt.Sprintf("1 pixel = %s x %0.2f seconds", a.humanDistance(cmPerPixel), secsPerPixel),
	}

	pt := freetype.Pt(left, top)
	for _, s := range strings {
		if _, err := a.context.DrawString(s, pt); err != nil {
			return err
		}
		pt.Y += a.context.PointToFixed(size * spacing)
	}

	return nil
}

func (a *Annotator) humanDistance(cm float64) string {
	fract, suffix := humanize.ComputeSI(cm / 100)
	return fmt.Sprintf("%0.2f %sm", fract, suffix)
}

package app

import (
	"math"
	"time"

	"github.com/avasilev/sonar-ranger/internal/sonar"
)

// ProfileData accumulates a session's readings and tracks the bounds used to
// scale the chart axes.
type ProfileData struct {
	Points                       []sonar.Reading
	TimestampStart, TimestampEnd time.Time
	DistanceMin, DistanceMax     float64
}

func NewProfileData() *ProfileData {
	return &ProfileData{
		DistanceMin: math.MaxFloat64,
	}
}

func (p *ProfileData) Update(r sonar.Reading) {
	p.Points = append(p.Points, r)

	p.DistanceMin = min(p.DistanceMin, r.Distance)
	p.DistanceMax = max(p.DistanceMax, r.Distance)

	if p.TimestampStart.IsZero() || p.TimestampStart.After(r.Timestamp) {
		p.TimestampStart = r.Timestamp
	}
	if p.TimestampEnd.IsZero() || p.TimestampEnd.Before(r.Timestamp) {
		p.TimestampEnd = r.Timestamp
	}
}

func (p *ProfileData) Empty() bool {
	return len(p.Points) == 0
}

// Duration returns the time window the profile spans
func (p *ProfileData) Duration() time.Duration {
	return p.TimestampEnd.Sub(p.TimestampStart)
}

// Package gauge holds the display-scaling contract shared by reading
// consumers: a distance maps onto a clamped [0, 1] fraction of the sensor's
// rated range, and a threshold splits readings into near and far.
package gauge

// Fraction maps a distance in cm onto a [0, 1] display fraction of maxRange.
// Values beyond the rated range clamp to 1, negative values clamp to 0.
// A non-positive maxRange yields 0.
func Fraction(distance, maxRange float64) float64 {
	if maxRange <= 0 {
		return 0
	}

	f := distance / maxRange
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Percent is Fraction scaled to [0, 100]
func Percent(distance, maxRange float64) float64 {
	return Fraction(distance, maxRange) * 100
}

// Threshold classifies readings against a configured distance limit in cm
type Threshold struct {
	Limit float64
}

// Near reports whether the measured object is at or inside the limit
func (t Threshold) Near(distance float64) bool {
	return distance <= t.Limit
}

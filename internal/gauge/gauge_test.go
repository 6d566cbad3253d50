package gauge

import "testing"

func TestFraction(t *testing.T) {
	testCases := []struct {
		name     string
		distance float64
		maxRange float64
		want     float64
	}{
		{"beyond rated range clamps to full scale", 500, 400, 1},
		{"negative distance clamps to zero", -5, 400, 0},
		{"half scale", 200, 400, 0.5},
		{"exact full scale", 400, 400, 1},
		{"zero distance", 0, 400, 0},
		{"non-positive range", 100, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fraction(tc.distance, tc.maxRange); got != tc.want {
				t.Errorf("Fraction(%v, %v) = %v, want %v", tc.distance, tc.maxRange, got, tc.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(500, 400); got != 100 {
		t.Errorf("Percent(500, 400) = %v, want 100", got)
	}
	if got := Percent(-5, 400); got != 0 {
		t.Errorf("Percent(-5, 400) = %v, want 0", got)
	}
}

func TestThreshold(t *testing.T) {
	th := Threshold{Limit: 50}

	if !th.Near(49.99) {
		t.Error("Expected 49.99 to be near a 50cm threshold")
	}
	if !th.Near(50) {
		t.Error("Expected 50 to be near a 50cm threshold")
	}
	if th.Near(50.01) {
		t.Error("Expected 50.01 to be far of a 50cm threshold")
	}
}

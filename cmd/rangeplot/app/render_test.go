package app

import (
	"image"
	"testing"
	"time"

	"github.com/avasilev/sonar-ranger/internal/sonar"
)

func testProfile(t *testing.T, distances ...float64) *ProfileData {
	t.Helper()

	baseTime := time.Date(2025, 6, 12, 10, 30, 0, 0, time.UTC)
	profile := NewProfileData()
	for i, d := range distances {
		profile.Update(sonar.Reading{
			Timestamp: baseTime.Add(time.Duration(i) * time.Second),
			Distance:  d,
		})
	}
	return profile
}

func TestProfileData_Update(t *testing.T) {
	profile := testProfile(t, 120.5, 17.16, 98.42)

	if profile.DistanceMin != 17.16 {
		t.Errorf("Expected min distance 17.16, got %v", profile.DistanceMin)
	}
	if profile.DistanceMax != 120.5 {
		t.Errorf("Expected max distance 120.5, got %v", profile.DistanceMax)
	}
	if got := profile.Duration(); got != 2*time.Second {
		t.Errorf("Expected 2s window, got %v", got)
	}
	if profile.Empty() {
		t.Error("Profile with points should not be empty")
	}
}

func TestProfileRenderer_Render(t *testing.T) {
	renderer, err := NewProfileRenderer(RenderConfig{NoAnnotations: true})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	if _, err = renderer.Render(NewProfileData()); err == nil {
		t.Error("Expected error when rendering an empty profile")
	}

	profile := testProfile(t, 17.16, 44.1, 120.5, 98.42)
	img, err := renderer.Render(profile)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	wantWidth := minPlotWidth + defaultLeftBorder + defaultRightBorder
	wantHeight := defaultPlotHeight + defaultTopBorder + defaultBottomBorder
	if img.Bounds().Dx() != wantWidth || img.Bounds().Dy() != wantHeight {
		t.Errorf("Expected %dx%d image, got %dx%d",
			wantWidth, wantHeight, img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestProfileRenderer_FullScale(t *testing.T) {
	manual := 400.0

	testCases := []struct {
		name     string
		maxRange *float64
		observed float64
		want     float64
	}{
		{"manual override", &manual, 732.4, 400},
		{"rounded up to next 10cm", nil, 121.9, 130},
		{"floor of 10cm", nil, 2.4, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			renderer, err := NewProfileRenderer(RenderConfig{MaxRange: tc.maxRange, NoAnnotations: true})
			if err != nil {
				t.Fatalf("Failed to create renderer: %v", err)
			}

			profile := testProfile(t, tc.observed)
			if got := renderer.fullScale(profile); got != tc.want {
				t.Errorf("Expected full scale %v, got %v", tc.want, got)
			}
		})
	}
}

func TestPointY_ClampsToPlot(t *testing.T) {
	profile := testProfile(t, 17.16)
	plot := image.Rect(80, 40, 720, 440)

	// Beyond full scale clamps to the top edge, negative to the bottom edge
	if got := pointY(plot, 400, 500); got != plot.Min.Y {
		t.Errorf("Expected clamped top %d, got %d", plot.Min.Y, got)
	}
	if got := pointY(plot, 400, -5); got != plot.Max.Y-1 {
		t.Errorf("Expected clamped bottom %d, got %d", plot.Max.Y-1, got)
	}

	// Single-point profiles collapse onto the left edge
	if got := pointX(plot, profile, profile.TimestampStart); got != plot.Min.X {
		t.Errorf("Expected left edge %d, got %d", plot.Min.X, got)
	}
}

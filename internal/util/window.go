package util

import (
	"math"

	"github.com/asecurityteam/rolling"
)

// CreateRollingWindow creates a window of the given size. Slots that
// have not been appended to yet hold NaN and are skipped by the helpers.
func CreateRollingWindow(size int) *rolling.PointPolicy {
	window := rolling.NewPointPolicy(rolling.NewWindow(size))
	// NewPointPolicy pre-fills every slot with 0, mark them empty instead
	for i := 0; i < size; i++ {
		window.Append(math.NaN())
	}
	return window
}

// WindowValues returns all values currently stored in the window.
func WindowValues(window *rolling.PointPolicy) []float64 {
	var values []float64
	window.Reduce(func(w rolling.Window) float64 {
		for _, bucket := range w {
			for _, value := range bucket {
				if !math.IsNaN(value) {
					values = append(values, value)
				}
			}
		}
		return 0
	})
	return values
}

// WindowCount returns the number of values currently stored in the window.
func WindowCount(window *rolling.PointPolicy) int {
	return len(WindowValues(window))
}

// WindowStdDev calculates the population standard deviation
// of all values currently stored in the window.
func WindowStdDev(window *rolling.PointPolicy) float64 {
	values := WindowValues(window)
	if len(values) <= 0 {
		return 0
	}
	mean := Avg(values)
	variance := 0.0
	for _, value := range values {
		diff := value - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

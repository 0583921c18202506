package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowCount(t *testing.T) {
	// GIVEN
	window := CreateRollingWindow(10)

	// WHEN
	window.Append(1)
	window.Append(2)
	window.Append(3)

	// THEN
	assert.Equal(t, 3, WindowCount(window))
}

func TestWindowRotation(t *testing.T) {
	// GIVEN
	window := CreateRollingWindow(5)

	// WHEN
	for i := 0; i < 12; i++ {
		window.Append(float64(i))
	}

	// THEN
	// only the 5 most recent values remain
	assert.Equal(t, 5, WindowCount(window))
	values := WindowValues(window)
	assert.Len(t, values, 5)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	// 7+8+9+10+11
	assert.Equal(t, 45.0, sum)
}

func TestWindowStdDev(t *testing.T) {
	// GIVEN
	window := CreateRollingWindow(10)

	// WHEN
	// two values 10 apart: population std dev is 5
	window.Append(60)
	window.Append(70)

	// THEN
	assert.InDelta(t, 5.0, WindowStdDev(window), 0.0001)
}

func TestWindowStdDevEmpty(t *testing.T) {
	window := CreateRollingWindow(10)
	assert.Equal(t, 0.0, WindowStdDev(window))
}

func TestWindowStdDevConstant(t *testing.T) {
	window := CreateRollingWindow(10)
	for i := 0; i < 10; i++ {
		window.Append(45)
	}
	assert.Equal(t, 0.0, WindowStdDev(window))
}

package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func defaultActivityConfig() ActivityConfig {
	return ActivityConfig{
		TempThreshold: 2,
		FanThreshold:  5,
		StablePeriod:  300 * time.Second,
		MaxIdleCycles: 5,
	}
}

func TestActivityStartsUninhibited(t *testing.T) {
	// GIVEN
	detector := NewActivityDetector(defaultActivityConfig())

	// WHEN
	detector.Observe(time.Now(), 45, 20)

	// THEN
	assert.False(t, detector.Inhibited())
}

func TestActivityInhibitsAfterIdleCycles(t *testing.T) {
	// GIVEN
	detector := NewActivityDetector(defaultActivityConfig())
	now := time.Now()

	// WHEN
	// identical samples, one tick apart
	for i := 0; i < 6; i++ {
		detector.Observe(now.Add(time.Duration(i)*time.Second), 45, 20)
	}

	// THEN
	assert.True(t, detector.Inhibited())
	assert.Equal(t, 5, detector.IdleCycles())
}

func TestActivityInhibitsAfterStablePeriod(t *testing.T) {
	// GIVEN
	config := defaultActivityConfig()
	config.MaxIdleCycles = 20
	detector := NewActivityDetector(config)
	now := time.Now()

	// WHEN
	// few samples, but spanning more than the stable period
	detector.Observe(now, 45, 20)
	detector.Observe(now.Add(200*time.Second), 45, 20)
	detector.Observe(now.Add(400*time.Second), 45, 20)

	// THEN
	assert.True(t, detector.Inhibited())
}

func TestActivityTemperatureDeltaClearsInhibition(t *testing.T) {
	// GIVEN
	detector := NewActivityDetector(defaultActivityConfig())
	now := time.Now()
	for i := 0; i < 6; i++ {
		detector.Observe(now.Add(time.Duration(i)*time.Second), 45, 20)
	}
	assert.True(t, detector.Inhibited())

	// WHEN
	// a temperature jump beyond the threshold
	detector.Observe(now.Add(7*time.Second), 48, 20)

	// THEN
	assert.False(t, detector.Inhibited())
	assert.Equal(t, 0, detector.IdleCycles())
}

func TestActivityFanDeltaClearsInhibition(t *testing.T) {
	// GIVEN
	detector := NewActivityDetector(defaultActivityConfig())
	now := time.Now()
	for i := 0; i < 6; i++ {
		detector.Observe(now.Add(time.Duration(i)*time.Second), 45, 20)
	}
	assert.True(t, detector.Inhibited())

	// WHEN
	detector.Observe(now.Add(7*time.Second), 45, 30)

	// THEN
	assert.False(t, detector.Inhibited())
}

func TestActivityBelowThresholdDeltasAreIdle(t *testing.T) {
	// GIVEN
	detector := NewActivityDetector(defaultActivityConfig())
	now := time.Now()

	// WHEN
	// deltas of 1°C / 1% stay below both thresholds
	temps := []int{45, 46, 45, 46, 45, 46, 45}
	for i, temp := range temps {
		detector.Observe(now.Add(time.Duration(i)*time.Second), temp, 20+i%2)
	}

	// THEN
	assert.True(t, detector.Inhibited())
}

func TestActivityReset(t *testing.T) {
	// GIVEN
	detector := NewActivityDetector(defaultActivityConfig())
	now := time.Now()
	for i := 0; i < 6; i++ {
		detector.Observe(now.Add(time.Duration(i)*time.Second), 45, 20)
	}
	assert.True(t, detector.Inhibited())

	// WHEN
	detector.Reset()

	// THEN
	assert.False(t, detector.Inhibited())
	assert.Equal(t, 0, detector.IdleCycles())
}

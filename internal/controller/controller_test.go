package controller

import (
	"errors"
	"testing"
	"time"

	"github.com/markusressel/clevod/internal/control"
	"github.com/markusressel/clevod/internal/ec"
	"github.com/stretchr/testify/assert"
)

// fakeDevice loops written duty values back into its readings, like
// the real EC does.
type fakeDevice struct {
	readings ec.Readings
	readErr  error
	writes   []int
	writeErr error
}

func (f *fakeDevice) ReadAll() (ec.Readings, error) {
	if f.readErr != nil {
		return ec.Readings{}, f.readErr
	}
	return f.readings, nil
}

func (f *fakeDevice) WriteFanDuty(pct int) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, pct)
	f.readings.FanDuty = pct
	return nil
}

func newTestController(device Device) *Controller {
	pid := control.NewPid(control.PidConfig{
		Enabled:   true,
		Kp:        2.0,
		Ki:        0.1,
		Kd:        0.5,
		OutputMin: 0,
		OutputMax: 100,
	})
	activity := control.NewActivityDetector(control.ActivityConfig{
		TempThreshold: 2,
		FanThreshold:  5,
		StablePeriod:  300 * time.Second,
		MaxIdleCycles: 5,
	})
	tuner := control.NewAdaptiveTuner(control.AdaptiveConfig{
		Enabled:           true,
		TuningInterval:    30,
		TargetPerformance: 0.8,
		RapidCycles:       10,
		RapidMultiplier:   3.0,
		SteadyThreshold:   0.05,
		SteadyCycles:      5,
	})
	return NewController(device, pid, activity, tuner, Config{
		TickRate:        time.Second,
		TargetTemp:      65,
		AdaptiveEnabled: true,
	})
}

// runCycles advances the controller by the given number of ticks, one
// second apart.
func runCycles(c *Controller, start time.Time, count int) time.Time {
	now := start
	for i := 0; i < count; i++ {
		c.Cycle(now)
		now = now.Add(time.Second)
	}
	return now
}

func TestSteadyIdle(t *testing.T) {
	// GIVEN
	// a cool, perfectly static system
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 45, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)

	// WHEN
	runCycles(c, time.Unix(0, 0), 400)

	// THEN
	// learning is inhibited, gains never moved, the PID output of 0 is
	// never written
	snapshot := c.Snapshot()
	assert.True(t, snapshot.Tuner.LearningInhibited)
	assert.Equal(t, 2.0, snapshot.Pid.Kp)
	assert.Equal(t, 0.1, snapshot.Pid.Ki)
	assert.Equal(t, 0.5, snapshot.Pid.Kd)
	assert.Equal(t, 0, snapshot.Tuner.LearningCycles)
	assert.Empty(t, device.writes)
}

func TestStepLoad(t *testing.T) {
	// GIVEN
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 45, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)
	now := runCycles(c, time.Unix(0, 0), 100)
	assert.True(t, c.Snapshot().Tuner.LearningInhibited)

	// WHEN
	// the load jumps
	device.readings.CpuTemp = 85
	device.readings.GpuTemp = 45
	c.Cycle(now)

	// THEN
	// activity is detected immediately and learning resumes
	assert.False(t, c.Snapshot().Tuner.LearningInhibited)

	now = now.Add(time.Second)
	runCycles(c, now, 4)

	// the duty spiked towards 60% within 5 ticks
	assert.NotEmpty(t, device.writes)
	highest := 0
	for _, write := range device.writes {
		highest = max(highest, write)
	}
	assert.GreaterOrEqual(t, highest, 60)
}

func TestWriteCoalescing(t *testing.T) {
	// GIVEN
	// a constant hot system, the PID saturates at 100
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 127, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)

	// WHEN
	runCycles(c, time.Unix(0, 0), 50)

	// THEN
	// the saturated value is written only once
	count := 0
	for _, write := range device.writes {
		if write == 100 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestEcReadFailureSkipsTick(t *testing.T) {
	// GIVEN
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 85, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)
	now := runCycles(c, time.Unix(0, 0), 3)
	writesBefore := len(device.writes)
	snapshotBefore := c.Snapshot()

	// WHEN
	// the EC handshake times out for one tick
	device.readErr = ec.ErrTimeout
	c.Cycle(now)

	// THEN
	// no write, snapshot unchanged
	assert.Equal(t, writesBefore, len(device.writes))
	assert.Equal(t, snapshotBefore.Sample, c.Snapshot().Sample)

	// WHEN
	// the next tick proceeds normally
	device.readErr = nil
	c.Cycle(now.Add(time.Second))

	// THEN
	assert.NotEqual(t, snapshotBefore.Sample.Time, c.Snapshot().Sample.Time)
}

func TestManualMode(t *testing.T) {
	// GIVEN
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 45, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)

	// WHEN
	err := c.SetManualDuty(80)
	c.Cycle(time.Unix(0, 0))

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, []int{80}, device.writes)
	assert.False(t, c.Snapshot().Auto)

	// WHEN
	// the written duty is visible in the sample within one tick
	c.Cycle(time.Unix(1, 0))

	// THEN
	assert.Equal(t, 80, c.Snapshot().Sample.FanDuty)
}

func TestManualDutyIdempotent(t *testing.T) {
	// GIVEN
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 45, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)

	// WHEN
	_ = c.SetManualDuty(80)
	_ = c.SetManualDuty(80)
	runCycles(c, time.Unix(0, 0), 5)

	// THEN
	// repeated identical requests cause exactly one write
	assert.Equal(t, []int{80}, device.writes)
}

func TestSetAutoIdempotent(t *testing.T) {
	// GIVEN
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 45, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)
	_ = c.SetManualDuty(80)
	c.Cycle(time.Unix(0, 0))

	// WHEN
	c.SetAuto()
	before := c.Snapshot()
	c.SetAuto()

	// THEN
	assert.Equal(t, before, c.Snapshot())
	assert.True(t, c.Snapshot().Auto)
}

func TestModeRoundTripResetsLearning(t *testing.T) {
	// GIVEN
	// an auto controller with accumulated learning state
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 85, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)
	runCycles(c, time.Unix(0, 0), 40)
	assert.NotEmpty(t, c.Snapshot().Tuner.RecentTemperatures)

	// WHEN
	_ = c.SetManualDuty(80)
	now := time.Unix(400, 0)
	c.Cycle(now)
	c.SetAuto()
	c.Cycle(now.Add(time.Second))

	// THEN
	// PID, adaptive and activity state were cleared together
	snapshot := c.Snapshot()
	assert.True(t, snapshot.Auto)
	assert.Equal(t, 0, snapshot.Tuner.LearningCycles)
	assert.Len(t, snapshot.Tuner.RecentTemperatures, 1)
	assert.False(t, snapshot.Tuner.LearningInhibited)
}

func TestModeRoundTripClearsInhibition(t *testing.T) {
	// GIVEN
	// an idle system that has inhibited learning
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 45, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)
	now := runCycles(c, time.Unix(0, 0), 10)
	assert.True(t, c.Snapshot().Tuner.LearningInhibited)

	// WHEN
	_ = c.SetManualDuty(80)
	c.Cycle(now)
	c.SetAuto()
	c.Cycle(now.Add(time.Second))

	// THEN
	// the detector state did not survive the mode round-trip
	assert.False(t, c.Snapshot().Tuner.LearningInhibited)
}

func TestSetManualDutyValidation(t *testing.T) {
	// GIVEN
	device := &fakeDevice{}
	c := newTestController(device)

	// WHEN / THEN
	assert.ErrorIs(t, c.SetManualDuty(0), ErrInvalidArgument)
	assert.ErrorIs(t, c.SetManualDuty(101), ErrInvalidArgument)
	assert.True(t, c.Snapshot().Auto)
}

func TestSetTargetTempValidation(t *testing.T) {
	// GIVEN
	device := &fakeDevice{}
	c := newTestController(device)

	// WHEN
	err := c.SetTargetTemp(200)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 65, c.Snapshot().TargetTemp)
}

func TestSetTargetTempResetsLearning(t *testing.T) {
	// GIVEN
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 85, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)
	runCycles(c, time.Unix(0, 0), 10)

	// WHEN
	err := c.SetTargetTemp(70)
	c.Cycle(time.Unix(100, 0))

	// THEN
	assert.NoError(t, err)
	snapshot := c.Snapshot()
	assert.Equal(t, 70, snapshot.TargetTemp)
	assert.Len(t, snapshot.Tuner.RecentTemperatures, 1)
	assert.False(t, snapshot.Tuner.LearningInhibited)
}

func TestSetTargetTempClearsInhibition(t *testing.T) {
	// GIVEN
	// an idle system that has inhibited learning
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 45, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)
	now := runCycles(c, time.Unix(0, 0), 10)
	assert.True(t, c.Snapshot().Tuner.LearningInhibited)

	// WHEN
	err := c.SetTargetTemp(70)
	c.Cycle(now)

	// THEN
	assert.NoError(t, err)
	assert.False(t, c.Snapshot().Tuner.LearningInhibited)
}

func TestWriteFailureKeepsLastWrittenDuty(t *testing.T) {
	// GIVEN
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 85, GpuTemp: 45, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)
	c.Cycle(time.Unix(0, 0))
	assert.NotEmpty(t, device.writes)
	writesBefore := len(device.writes)

	// WHEN
	device.writeErr = errors.New("ec write failed")
	device.readings.CpuTemp = 100
	c.Cycle(time.Unix(1, 0))

	// THEN
	assert.Equal(t, writesBefore, len(device.writes))

	// WHEN
	// the EC recovers, the next computed duty differs from the last
	// successfully written one and is written
	device.writeErr = nil
	c.Cycle(time.Unix(2, 0))

	// THEN
	assert.Greater(t, len(device.writes), writesBefore)
}

func TestGpuTemperatureDrivesControl(t *testing.T) {
	// GIVEN
	// the GPU is the hotter component
	device := &fakeDevice{
		readings: ec.Readings{CpuTemp: 45, GpuTemp: 90, FanDuty: 20, FanRpm: 2500},
	}
	c := newTestController(device)

	// WHEN
	c.Cycle(time.Unix(0, 0))

	// THEN
	assert.NotEmpty(t, device.writes)
}

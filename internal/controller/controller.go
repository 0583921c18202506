package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/markusressel/clevod/internal/control"
	"github.com/markusressel/clevod/internal/ec"
	"github.com/markusressel/clevod/internal/ui"
	"github.com/qdm12/reprint"
)

var ErrInvalidArgument = errors.New("argument out of range")

// Device is the sensor/actuator surface the controller drives.
type Device interface {
	ReadAll() (ec.Readings, error)
	WriteFanDuty(pct int) error
}

// Mode selects between closed-loop and client-commanded fan control.
type Mode int

const (
	ModeAuto Mode = iota
	ModeManual
)

// Sample is one set of instantaneous readings. Never mutated after
// creation.
type Sample struct {
	CpuTemp int       `json:"cpuTemp"`
	GpuTemp int       `json:"gpuTemp"`
	FanDuty int       `json:"fanDuty"`
	FanRpm  int       `json:"fanRpm"`
	Time    time.Time `json:"time"`
}

// PidState is the gain/flag view of the PID core exposed to clients.
type PidState struct {
	Enabled bool    `json:"enabled"`
	Kp      float64 `json:"kp"`
	Ki      float64 `json:"ki"`
	Kd      float64 `json:"kd"`
}

// TunerState is the view of the adaptive layer exposed to clients.
type TunerState struct {
	Enabled            bool          `json:"enabled"`
	PerformanceScore   float64       `json:"performanceScore"`
	Phase              control.Phase `json:"phase"`
	LearningCycles     int           `json:"learningCycles"`
	LearningInhibited  bool          `json:"learningInhibited"`
	RecentTemperatures []float64     `json:"recentTemperatures"`
}

// Snapshot is the shared state visible to the IPC server, the REST
// API and the metrics collectors. Readers always receive a deep copy,
// a torn frame cannot be observed.
type Snapshot struct {
	Sample     Sample     `json:"sample"`
	Auto       bool       `json:"auto"`
	TargetTemp int        `json:"targetTemp"`
	ManualDuty int        `json:"manualDuty"`
	Pid        PidState   `json:"pid"`
	Tuner      TunerState `json:"tuner"`
}

type Config struct {
	TickRate        time.Duration
	TargetTemp      int
	AdaptiveEnabled bool
}

// TuningListener is notified after each completed tuning pass.
type TuningListener func(time.Time, control.TuningResult)

// Controller owns all controller/tuner state and is the only writer
// of the fan duty. Samples, PID, activity detection and adaptive
// tuning all run on its single goroutine; IPC handlers only mutate
// the mode/setpoint fields, which take effect at the next tick.
type Controller struct {
	device   Device
	pid      *control.Pid
	activity *control.ActivityDetector
	tuner    *control.AdaptiveTuner
	config   Config

	onTuning TuningListener
	onSample func(Sample)

	mu           sync.Mutex
	mode         Mode
	target       int
	manualDuty   int
	lastAutoDuty int
	lastManual   int
	pendingReset bool
	snapshot     Snapshot
}

func NewController(
	device Device,
	pid *control.Pid,
	activity *control.ActivityDetector,
	tuner *control.AdaptiveTuner,
	config Config,
) *Controller {
	c := &Controller{
		device:   device,
		pid:      pid,
		activity: activity,
		tuner:    tuner,
		config:   config,
		mode:     ModeAuto,
		target:   config.TargetTemp,
	}
	c.snapshot = c.buildSnapshot(Sample{})
	return c
}

// SetTuningListener registers a callback invoked after each tuning
// pass. Must be called before Run.
func (c *Controller) SetTuningListener(listener TuningListener) {
	c.onTuning = listener
}

// SetSampleListener registers a callback invoked with each completed
// sample. Must be called before Run.
func (c *Controller) SetSampleListener(listener func(Sample)) {
	c.onSample = listener
}

// Run drives the periodic control loop until the context is
// cancelled. All EC access happens on this goroutine.
func (c *Controller) Run(ctx context.Context) error {
	tick := time.NewTicker(c.config.TickRate)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			c.Cycle(time.Now())
		}
	}
}

// Cycle performs one controller tick: sample, activity detection,
// adaptive tuning when due, PID update, coalesced fan write, snapshot
// update.
func (c *Controller) Cycle(now time.Time) {
	c.mu.Lock()
	if c.pendingReset {
		// mode/setpoint changed since the previous tick, clear all
		// controller state together
		c.pid.Reset()
		c.tuner.Reset()
		c.activity.Reset()
		c.pendingReset = false
	}
	mode := c.mode
	target := c.target
	manualDuty := c.manualDuty
	c.mu.Unlock()

	readings, err := c.device.ReadAll()
	if err != nil {
		// leave the previous snapshot and duty in place, retry on the
		// next tick
		ui.ThrottledError("ec-read", "Error reading EC: %v", err)
		return
	}
	sample := Sample{
		CpuTemp: readings.CpuTemp,
		GpuTemp: readings.GpuTemp,
		FanDuty: readings.FanDuty,
		FanRpm:  readings.FanRpm,
		Time:    now,
	}

	c.activity.Observe(now, sample.CpuTemp, sample.FanDuty)

	switch mode {
	case ModeAuto:
		c.autoCycle(now, sample, target)
	case ModeManual:
		c.manualCycle(manualDuty)
	}

	c.mu.Lock()
	c.snapshot = c.buildSnapshot(sample)
	c.mu.Unlock()

	if c.onSample != nil {
		c.onSample(sample)
	}
}

func (c *Controller) autoCycle(now time.Time, sample Sample, target int) {
	temp := max(sample.CpuTemp, sample.GpuTemp)

	if c.config.AdaptiveEnabled && c.pid.Enabled() {
		c.tuner.Observe(temp)
		if c.tuner.Due() && !c.activity.Inhibited() {
			result := c.tuner.Tune(c.pid, temp, target, sample.FanDuty)
			ui.Debug("Tuning pass: score=%.3f change=%+.3f phase=%s kp=%.2f ki=%.3f kd=%.2f",
				result.Score, result.ScoreChange, result.Phase, result.Kp, result.Ki, result.Kd)
			if c.onTuning != nil {
				c.onTuning(now, result)
			}
		}
	}

	newDuty := c.pid.Update(temp, target, sample.FanDuty)

	c.mu.Lock()
	lastAutoDuty := c.lastAutoDuty
	c.mu.Unlock()

	ui.Debug("Auto cycle: temp=%d, target=%d, computed=%d, last=%d, integral=%.1f",
		temp, target, newDuty, lastAutoDuty, c.pid.Integral())

	// coalesce writes: the EC dislikes rapid rewrites of the same
	// value, and a duty of 0 is never written
	if newDuty == 0 || newDuty == lastAutoDuty {
		return
	}

	ui.Info("CPU=%d°C, GPU=%d°C, auto fan duty to %d%%", sample.CpuTemp, sample.GpuTemp, newDuty)
	if err := c.device.WriteFanDuty(newDuty); err != nil {
		ui.ThrottledError("ec-write", "Error writing fan duty: %v", err)
		return
	}

	c.mu.Lock()
	c.lastAutoDuty = newDuty
	c.mu.Unlock()
}

func (c *Controller) manualCycle(manualDuty int) {
	c.mu.Lock()
	lastManual := c.lastManual
	c.mu.Unlock()

	if manualDuty == lastManual || manualDuty < 1 {
		return
	}

	ui.Info("Manual fan duty to %d%%", manualDuty)
	if err := c.device.WriteFanDuty(manualDuty); err != nil {
		ui.ThrottledError("ec-write", "Error writing fan duty: %v", err)
		return
	}

	c.mu.Lock()
	c.lastManual = manualDuty
	c.mu.Unlock()
}

// buildSnapshot composes the externally visible state. Caller must
// hold c.mu.
func (c *Controller) buildSnapshot(sample Sample) Snapshot {
	kp, ki, kd := c.pid.Gains()
	return Snapshot{
		Sample:     sample,
		Auto:       c.mode == ModeAuto,
		TargetTemp: c.target,
		ManualDuty: c.manualDuty,
		Pid: PidState{
			Enabled: c.pid.Enabled(),
			Kp:      kp,
			Ki:      ki,
			Kd:      kd,
		},
		Tuner: TunerState{
			Enabled:            c.config.AdaptiveEnabled,
			PerformanceScore:   c.tuner.Score(),
			Phase:              c.tuner.CurrentPhase(),
			LearningCycles:     c.tuner.LearningCycles(),
			LearningInhibited:  c.activity.Inhibited(),
			RecentTemperatures: c.tuner.HistoryValues(),
		},
	}
}

// Snapshot returns a deep copy of the shared state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out Snapshot
	if err := reprint.FromTo(&c.snapshot, &out); err != nil {
		// reprint only fails on type mismatch, which cannot happen here
		panic(err)
	}
	return out
}

// SetManualDuty switches to manual mode with the given duty cycle.
// Takes effect at the next tick boundary.
func (c *Controller) SetManualDuty(pct int) error {
	if pct < 1 || pct > 100 {
		return ErrInvalidArgument
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeManual {
		c.mode = ModeManual
		c.lastManual = 0
		c.pendingReset = true
	}
	c.manualDuty = pct
	c.snapshot.Auto = false
	c.snapshot.ManualDuty = pct
	return nil
}

// SetAuto switches back to closed-loop control. Takes effect at the
// next tick boundary.
func (c *Controller) SetAuto() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeAuto {
		return
	}
	c.mode = ModeAuto
	c.manualDuty = 0
	c.lastAutoDuty = 0
	c.pendingReset = true
	c.snapshot.Auto = true
	c.snapshot.ManualDuty = 0
}

// SetTargetTemp changes the temperature setpoint. Takes effect at the
// next tick boundary.
func (c *Controller) SetTargetTemp(temp int) error {
	if temp < 40 || temp > 100 {
		return ErrInvalidArgument
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == temp {
		return nil
	}
	c.target = temp
	c.pendingReset = true
	c.snapshot.TargetTemp = temp
	return nil
}

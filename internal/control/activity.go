package control

import (
	"time"
)

type ActivityConfig struct {
	// TempThreshold is the minimum temperature delta (°C) between two
	// samples that counts as activity.
	TempThreshold int
	// FanThreshold is the minimum fan duty delta (%) between two
	// samples that counts as activity.
	FanThreshold int
	// StablePeriod is how long samples may stay below both thresholds
	// before learning is inhibited.
	StablePeriod time.Duration
	// MaxIdleCycles is the number of consecutive idle samples after
	// which learning is inhibited.
	MaxIdleCycles int
}

// ActivityDetector decides whether recent samples show meaningful
// thermal or actuator change. When they don't, gain learning is
// inhibited so the tuner cannot drift on an idle system. The flag is
// advisory: it suppresses gain mutation, never sampling or history
// growth.
type ActivityDetector struct {
	config ActivityConfig

	primed       bool
	prevTemp     int
	prevDuty     int
	lastActivity time.Time
	idleCycles   int
	inhibited    bool
}

func NewActivityDetector(config ActivityConfig) *ActivityDetector {
	return &ActivityDetector{
		config: config,
	}
}

// Observe feeds the detector with the current CPU temperature and fan
// duty and recomputes the inhibition flag.
func (a *ActivityDetector) Observe(now time.Time, temp int, duty int) {
	if !a.primed {
		// first sample is the baseline
		a.primed = true
		a.prevTemp = temp
		a.prevDuty = duty
		a.lastActivity = now
		return
	}

	tempChange := abs(temp - a.prevTemp)
	fanChange := abs(duty - a.prevDuty)
	a.prevTemp = temp
	a.prevDuty = duty

	active := tempChange >= a.config.TempThreshold || fanChange >= a.config.FanThreshold
	if active {
		a.lastActivity = now
		a.idleCycles = 0
	} else {
		a.idleCycles++
	}

	a.inhibited = now.Sub(a.lastActivity) > a.config.StablePeriod ||
		a.idleCycles >= a.config.MaxIdleCycles
}

// Inhibited reports whether gain learning is currently suppressed.
func (a *ActivityDetector) Inhibited() bool {
	return a.inhibited
}

// IdleCycles returns the number of consecutive samples without
// meaningful change.
func (a *ActivityDetector) IdleCycles() int {
	return a.idleCycles
}

// Reset clears the detector back to the unprimed state.
func (a *ActivityDetector) Reset() {
	a.primed = false
	a.prevTemp = 0
	a.prevDuty = 0
	a.lastActivity = time.Time{}
	a.idleCycles = 0
	a.inhibited = false
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}

package control

import (
	"math"

	"github.com/markusressel/clevod/internal/util"
)

// Gain clamp ranges enforced by the adaptive tuner.
const (
	KpMin = 0.5
	KpMax = 5.0
	KiMin = 0.01
	KiMax = 0.5
	KdMin = 0.1
	KdMax = 2.0

	// integralLimit bounds the integral accumulator (anti-windup)
	integralLimit = 100.0
)

type PidConfig struct {
	Enabled   bool
	Kp        float64
	Ki        float64
	Kd        float64
	OutputMin float64
	OutputMax float64
}

// Pid is a discrete-time PID controller computing a fan duty cycle
// from the temperature error. When disabled, a simple proportional
// stepper is used instead.
type Pid struct {
	enabled bool

	kp float64
	ki float64
	kd float64

	outMin float64
	outMax float64

	integral  float64
	prevError float64
}

func NewPid(config PidConfig) *Pid {
	return &Pid{
		enabled: config.Enabled,
		kp:      config.Kp,
		ki:      config.Ki,
		kd:      config.Kd,
		outMin:  config.OutputMin,
		outMax:  config.OutputMax,
	}
}

func (p *Pid) Enabled() bool {
	return p.enabled
}

func (p *Pid) Gains() (kp float64, ki float64, kd float64) {
	return p.kp, p.ki, p.kd
}

func (p *Pid) SetGains(kp float64, ki float64, kd float64) {
	p.kp = kp
	p.ki = ki
	p.kd = kd
}

// Update advances the controller by one tick and returns the next fan
// duty in [0,100]. temp is the hotter of the CPU and GPU readings,
// currentDuty the duty currently reported by the EC (used only by the
// fallback stepper).
func (p *Pid) Update(temp int, target int, currentDuty int) int {
	if !p.enabled {
		return p.step(temp, target, currentDuty)
	}

	err := float64(temp) - float64(target)

	proportional := p.kp * err

	p.integral = util.Coerce(p.integral+err, -integralLimit, integralLimit)
	integral := p.ki * p.integral

	derivative := p.kd * (err - p.prevError)

	output := proportional + integral + derivative
	output = util.Coerce(output, p.outMin, p.outMax)

	p.prevError = err

	return util.Coerce(int(math.Round(output)), 0, 100)
}

// step is the fallback controller: approach the target in fixed
// 2% steps.
func (p *Pid) step(temp int, target int, currentDuty int) int {
	var duty int
	if temp >= target {
		duty = max(currentDuty+2, 10)
	} else {
		duty = max(currentDuty-2, 0)
	}
	return util.Coerce(duty, 0, 100)
}

// Reset zeroes the integral accumulator and the previous error.
func (p *Pid) Reset() {
	p.integral = 0
	p.prevError = 0
}

// Integral exposes the integral accumulator for introspection.
func (p *Pid) Integral() float64 {
	return p.integral
}

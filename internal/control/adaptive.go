package control

import (
	"math"

	"github.com/asecurityteam/rolling"
	"github.com/markusressel/clevod/internal/util"
)

// Phase is the current learning regime of the adaptive tuner.
type Phase string

const (
	// PhaseRapid applies enlarged steps during initial adaptation.
	PhaseRapid Phase = "rapid"
	// PhaseNormal applies the configured base steps.
	PhaseNormal Phase = "normal"
	// PhaseSteady applies conservative steps once performance is stable.
	PhaseSteady Phase = "steady"
)

const (
	// historySize is the capacity of the temperature history window.
	historySize = 60
	// minHistoryForOscillation: below this many samples the
	// oscillation measure is 0.
	minHistoryForOscillation = 10

	// steadyStepMultiplier replaces the phase multiplier in steady state.
	steadyStepMultiplier = 0.3

	// scoreImprovementThreshold separates improvement/regression from noise.
	scoreImprovementThreshold = 0.05

	// reversalDamping scales the step magnitude on directional reversal.
	reversalDamping = 0.8

	// default signed step sizes, restored on reset
	defaultKpStep = 0.1
	defaultKiStep = 0.01
	defaultKdStep = 0.05

	// oscillationTuneThreshold: above this, Ki is lowered and Kd raised.
	oscillationTuneThreshold = 3.0
	// errorTuneThreshold: above this absolute error, Ki is raised.
	errorTuneThreshold = 5.0
)

type AdaptiveConfig struct {
	Enabled bool
	// TuningInterval is the number of controller cycles between
	// tuning passes.
	TuningInterval int
	// TargetPerformance is the performance score the tuner steers
	// Kp towards.
	TargetPerformance float64
	// RapidCycles is the number of initial tuning passes run with
	// RapidMultiplier applied.
	RapidCycles     int
	RapidMultiplier float64
	// SteadyThreshold is the maximum score change that still counts
	// as a stable cycle.
	SteadyThreshold float64
	// SteadyCycles is the number of consecutive stable cycles
	// required to enter steady state.
	SteadyCycles int
}

// TuningResult describes one tuning pass, for logging and telemetry.
type TuningResult struct {
	Score       float64 `json:"score"`
	ScoreChange float64 `json:"scoreChange"`
	Oscillation float64 `json:"oscillation"`
	Phase       Phase   `json:"phase"`
	Multiplier  float64 `json:"multiplier"`
	Reversed    bool    `json:"reversed"`
	Kp          float64 `json:"kp"`
	Ki          float64 `json:"ki"`
	Kd          float64 `json:"kd"`
}

// AdaptiveTuner observes controller performance and mutates the PID
// gains online. It maintains a rolling temperature history, scores
// recent behavior, and walks the gain space in signed steps whose
// direction reverses (damped by 0.8) whenever performance regresses.
// It never writes the fan directly.
type AdaptiveTuner struct {
	config AdaptiveConfig

	history *rolling.PointPolicy

	score             float64
	prevScore         float64
	learningCycles    int
	cyclesSinceTuning int

	phase        Phase
	rapidDone    int
	stableCycles int

	// signed step sizes, the sign encodes the current search direction
	kpStep float64
	kiStep float64
	kdStep float64
}

func NewAdaptiveTuner(config AdaptiveConfig) *AdaptiveTuner {
	return &AdaptiveTuner{
		config:  config,
		history: util.CreateRollingWindow(historySize),
		phase:   PhaseRapid,
		kpStep:  defaultKpStep,
		kiStep:  defaultKiStep,
		kdStep:  defaultKdStep,
	}
}

// Observe appends one temperature sample to the history and advances
// the tuning cycle counter. Only samples taken in auto mode may be
// fed here.
func (t *AdaptiveTuner) Observe(temp int) {
	t.history.Append(float64(temp))
	t.cyclesSinceTuning++
}

// Due reports whether enough cycles have passed for a tuning pass.
func (t *AdaptiveTuner) Due() bool {
	return t.cyclesSinceTuning >= t.config.TuningInterval
}

// Oscillation is the population standard deviation of the temperature
// history, 0 while fewer than 10 samples have been seen.
func (t *AdaptiveTuner) Oscillation() float64 {
	if util.WindowCount(t.history) < minHistoryForOscillation {
		return 0
	}
	return util.WindowStdDev(t.history)
}

// PerformanceScore combines proximity to the setpoint, oscillation
// and fan efficiency into a scalar in [0,1].
func (t *AdaptiveTuner) PerformanceScore(temp int, target int, duty int) float64 {
	errAbs := math.Abs(float64(temp) - float64(target))

	errorScore := util.Coerce(1.0-errAbs/50.0, 0.0, 1.0)

	oscillation := util.Coerce(t.Oscillation()/10.0, 0.0, 1.0)

	fanEfficiency := 0.0
	if errAbs < errorTuneThreshold {
		fanEfficiency = 1.0 - float64(duty)/100.0
	}

	return errorScore*0.6 + (1.0-oscillation)*0.3 + fanEfficiency*0.1
}

// Tune performs one tuning pass, mutating the gains of the given PID
// controller. The caller must have checked Due and any learning
// inhibition beforehand.
func (t *AdaptiveTuner) Tune(pid *Pid, temp int, target int, duty int) TuningResult {
	score := t.PerformanceScore(temp, target, duty)
	change := score - t.prevScore

	// phase selection uses the stability streak of previous passes
	rapid := t.rapidDone < t.config.RapidCycles
	steady := t.stableCycles >= t.config.SteadyCycles

	multiplier := 1.0
	phase := PhaseNormal
	switch {
	case rapid:
		multiplier = t.config.RapidMultiplier
		phase = PhaseRapid
	case steady:
		multiplier = steadyStepMultiplier
		phase = PhaseSteady
	}

	if math.Abs(change) < t.config.SteadyThreshold {
		t.stableCycles++
	} else {
		t.stableCycles = 0
	}

	reversed := false
	if change < -scoreImprovementThreshold {
		// regression: negate the search direction, damp the magnitude
		t.kpStep *= -reversalDamping
		t.kiStep *= -reversalDamping
		t.kdStep *= -reversalDamping
		reversed = true
	}

	kp, ki, kd := pid.Gains()

	if score < t.config.TargetPerformance {
		kp = util.Coerce(kp+multiplier*t.kpStep, KpMin, KpMax)
	}

	oscillation := t.Oscillation()
	errAbs := math.Abs(float64(temp) - float64(target))
	if oscillation > oscillationTuneThreshold {
		ki -= multiplier * t.kiStep
		kd += multiplier * t.kdStep
	} else if errAbs > errorTuneThreshold {
		ki += multiplier * t.kiStep
	}
	ki = util.Coerce(ki, KiMin, KiMax)
	kd = util.Coerce(kd, KdMin, KdMax)

	pid.SetGains(kp, ki, kd)

	t.prevScore = score
	t.score = score
	t.learningCycles++
	if rapid {
		t.rapidDone++
	}
	t.phase = phase
	t.cyclesSinceTuning = 0

	return TuningResult{
		Score:       score,
		ScoreChange: change,
		Oscillation: oscillation,
		Phase:       phase,
		Multiplier:  multiplier,
		Reversed:    reversed,
		Kp:          kp,
		Ki:          ki,
		Kd:          kd,
	}
}

// Score returns the most recent performance score.
func (t *AdaptiveTuner) Score() float64 {
	return t.score
}

// CurrentPhase returns the learning phase of the most recent tuning pass.
func (t *AdaptiveTuner) CurrentPhase() Phase {
	return t.phase
}

// LearningCycles returns the number of completed tuning passes.
func (t *AdaptiveTuner) LearningCycles() int {
	return t.learningCycles
}

// HistoryValues returns a copy of the current temperature history.
func (t *AdaptiveTuner) HistoryValues() []float64 {
	return util.WindowValues(t.history)
}

// Reset clears all learning state, including the temperature history
// and the step directions.
func (t *AdaptiveTuner) Reset() {
	t.history = util.CreateRollingWindow(historySize)
	t.score = 0
	t.prevScore = 0
	t.learningCycles = 0
	t.cyclesSinceTuning = 0
	t.phase = PhaseRapid
	t.rapidDone = 0
	t.stableCycles = 0
	t.kpStep = defaultKpStep
	t.kiStep = defaultKiStep
	t.kdStep = defaultKdStep
}

package configuration

import (
	"errors"
	"fmt"

	"github.com/markusressel/clevod/internal/util"
)

// Validate checks every configured value against its allowed range.
// Values the EC or the controller would silently misbehave on are
// errors; the adaptive tuning interval is clamped instead, matching
// its documented behavior.
func Validate() error {
	return validateConfig(&CurrentConfig)
}

func validateConfig(config *Configuration) error {
	if config.Interval < 0.1 || config.Interval > 60.0 {
		return errors.New(fmt.Sprintf("Invalid interval: %.1f (must be 0.1-60.0 seconds)", config.Interval))
	}
	if config.TargetTemp < 40 || config.TargetTemp > 100 {
		return errors.New(fmt.Sprintf("Invalid target temperature: %d (must be 40-100°C)", config.TargetTemp))
	}

	if err := validatePid(&config.Pid); err != nil {
		return err
	}
	if err := validateAdaptive(&config.Adaptive); err != nil {
		return err
	}
	if err := validateActivity(&config.Activity); err != nil {
		return err
	}

	if len(config.Ipc.SocketPath) <= 0 {
		return errors.New("Missing IPC socket path")
	}
	if config.Api.Enabled && (config.Api.Port <= 0 || config.Api.Port >= 65535) {
		return errors.New(fmt.Sprintf("Invalid api port: %d", config.Api.Port))
	}
	if config.Statistics.Enabled && (config.Statistics.Port <= 0 || config.Statistics.Port >= 65535) {
		return errors.New(fmt.Sprintf("Invalid statistics port: %d", config.Statistics.Port))
	}
	if config.Persistence.Enabled && len(config.Persistence.DbPath) <= 0 {
		return errors.New("Missing persistence dbPath")
	}

	return nil
}

func validatePid(config *PidConfig) error {
	if config.Kp <= 0 || config.Ki <= 0 || config.Kd <= 0 {
		return errors.New("All PID gains must be positive")
	}
	if config.OutputMin >= config.OutputMax {
		return errors.New(fmt.Sprintf("Invalid PID output range: [%.1f, %.1f]", config.OutputMin, config.OutputMax))
	}
	return nil
}

func validateAdaptive(config *AdaptiveConfig) error {
	// clamped, not rejected
	config.TuningInterval = util.Coerce(config.TuningInterval, 10, 300)

	if config.TargetPerformance < 0.1 || config.TargetPerformance > 1.0 {
		return errors.New(fmt.Sprintf("Invalid adaptive target performance: %.2f (must be 0.1-1.0)", config.TargetPerformance))
	}
	if config.RapidCycles < 1 || config.RapidCycles > 50 {
		return errors.New(fmt.Sprintf("Invalid adaptive rapid cycles: %d (must be 1-50)", config.RapidCycles))
	}
	if config.RapidMultiplier < 1.0 || config.RapidMultiplier > 10.0 {
		return errors.New(fmt.Sprintf("Invalid adaptive rapid multiplier: %.1f (must be 1.0-10.0)", config.RapidMultiplier))
	}
	if config.SteadyThreshold < 0.01 || config.SteadyThreshold > 0.2 {
		return errors.New(fmt.Sprintf("Invalid adaptive steady threshold: %.2f (must be 0.01-0.20)", config.SteadyThreshold))
	}
	if config.SteadyCycles < 1 || config.SteadyCycles > 20 {
		return errors.New(fmt.Sprintf("Invalid adaptive steady cycles: %d (must be 1-20)", config.SteadyCycles))
	}
	return nil
}

func validateActivity(config *ActivityConfig) error {
	if config.TempThreshold < 1 || config.TempThreshold > 10 {
		return errors.New(fmt.Sprintf("Invalid activity temperature threshold: %d (must be 1-10°C)", config.TempThreshold))
	}
	if config.FanThreshold < 1 || config.FanThreshold > 20 {
		return errors.New(fmt.Sprintf("Invalid activity fan threshold: %d (must be 1-20%%)", config.FanThreshold))
	}
	if config.StablePeriod < 60 || config.StablePeriod > 1800 {
		return errors.New(fmt.Sprintf("Invalid activity stable period: %d (must be 60-1800 seconds)", config.StablePeriod))
	}
	if config.MaxIdleCycles < 1 || config.MaxIdleCycles > 20 {
		return errors.New(fmt.Sprintf("Invalid activity max idle cycles: %d (must be 1-20)", config.MaxIdleCycles))
	}
	return nil
}

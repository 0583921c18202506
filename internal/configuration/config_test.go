package configuration

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func defaultTestConfig() Configuration {
	viper.Reset()
	setDefaultValues()
	var config Configuration
	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}
	return config
}

func TestDefaults(t *testing.T) {
	// WHEN
	config := defaultTestConfig()

	// THEN
	assert.Equal(t, 2.0, config.Interval)
	assert.Equal(t, 65, config.TargetTemp)
	assert.False(t, config.Debug)

	assert.True(t, config.Pid.Enabled)
	assert.Equal(t, 2.0, config.Pid.Kp)
	assert.Equal(t, 0.1, config.Pid.Ki)
	assert.Equal(t, 0.5, config.Pid.Kd)
	assert.Equal(t, 0.0, config.Pid.OutputMin)
	assert.Equal(t, 100.0, config.Pid.OutputMax)

	assert.True(t, config.Adaptive.Enabled)
	assert.Equal(t, 30, config.Adaptive.TuningInterval)
	assert.Equal(t, 0.8, config.Adaptive.TargetPerformance)
	assert.Equal(t, 10, config.Adaptive.RapidCycles)
	assert.Equal(t, 3.0, config.Adaptive.RapidMultiplier)
	assert.Equal(t, 0.05, config.Adaptive.SteadyThreshold)
	assert.Equal(t, 5, config.Adaptive.SteadyCycles)

	assert.Equal(t, 2, config.Activity.TempThreshold)
	assert.Equal(t, 5, config.Activity.FanThreshold)
	assert.Equal(t, 300, config.Activity.StablePeriod)
	assert.Equal(t, 5, config.Activity.MaxIdleCycles)

	assert.Equal(t, "/tmp/clevod.sock", config.Ipc.SocketPath)
}

func TestDefaultsAreValid(t *testing.T) {
	// GIVEN
	config := defaultTestConfig()

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.NoError(t, err)
}

func TestValidateInterval(t *testing.T) {
	config := defaultTestConfig()
	config.Interval = 0.05
	assert.Error(t, validateConfig(&config))

	config.Interval = 61
	assert.Error(t, validateConfig(&config))

	config.Interval = 0.1
	assert.NoError(t, validateConfig(&config))
}

func TestValidateTargetTemp(t *testing.T) {
	config := defaultTestConfig()
	config.TargetTemp = 39
	assert.Error(t, validateConfig(&config))

	config.TargetTemp = 101
	assert.Error(t, validateConfig(&config))

	config.TargetTemp = 100
	assert.NoError(t, validateConfig(&config))
}

func TestValidateClampsTuningInterval(t *testing.T) {
	// GIVEN
	config := defaultTestConfig()
	config.Adaptive.TuningInterval = 5

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 10, config.Adaptive.TuningInterval)

	// WHEN
	config.Adaptive.TuningInterval = 5000
	err = validateConfig(&config)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 300, config.Adaptive.TuningInterval)
}

func TestValidateActivityRanges(t *testing.T) {
	config := defaultTestConfig()
	config.Activity.TempThreshold = 0
	assert.Error(t, validateConfig(&config))

	config = defaultTestConfig()
	config.Activity.FanThreshold = 21
	assert.Error(t, validateConfig(&config))

	config = defaultTestConfig()
	config.Activity.StablePeriod = 30
	assert.Error(t, validateConfig(&config))

	config = defaultTestConfig()
	config.Activity.MaxIdleCycles = 0
	assert.Error(t, validateConfig(&config))
}

func TestValidateAdaptiveRanges(t *testing.T) {
	config := defaultTestConfig()
	config.Adaptive.TargetPerformance = 1.5
	assert.Error(t, validateConfig(&config))

	config = defaultTestConfig()
	config.Adaptive.RapidCycles = 51
	assert.Error(t, validateConfig(&config))

	config = defaultTestConfig()
	config.Adaptive.RapidMultiplier = 0.5
	assert.Error(t, validateConfig(&config))

	config = defaultTestConfig()
	config.Adaptive.SteadyThreshold = 0.3
	assert.Error(t, validateConfig(&config))
}

func TestValidatePid(t *testing.T) {
	config := defaultTestConfig()
	config.Pid.Kp = 0
	assert.Error(t, validateConfig(&config))

	config = defaultTestConfig()
	config.Pid.OutputMin = 100
	config.Pid.OutputMax = 0
	assert.Error(t, validateConfig(&config))
}

func TestTickRate(t *testing.T) {
	config := defaultTestConfig()
	assert.Equal(t, "2s", config.TickRate().String())

	config.Interval = 0.5
	assert.Equal(t, "500ms", config.TickRate().String())
}

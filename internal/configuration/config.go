package configuration

import (
	"errors"
	"os"
	"time"

	"github.com/markusressel/clevod/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Configuration struct {
	// Interval is the controller tick period in seconds.
	Interval   float64 `json:"interval"`
	TargetTemp int     `json:"targetTemp"`
	Debug      bool    `json:"debug"`

	Pid         PidConfig         `json:"pid"`
	Adaptive    AdaptiveConfig    `json:"adaptive"`
	Activity    ActivityConfig    `json:"activity"`
	Ipc         IpcConfig         `json:"ipc"`
	Api         ApiConfig         `json:"api"`
	Statistics  StatisticsConfig  `json:"statistics"`
	Persistence PersistenceConfig `json:"persistence"`
}

type PidConfig struct {
	Enabled   bool    `json:"enabled"`
	Kp        float64 `json:"kp"`
	Ki        float64 `json:"ki"`
	Kd        float64 `json:"kd"`
	OutputMin float64 `json:"outputMin"`
	OutputMax float64 `json:"outputMax"`
}

type AdaptiveConfig struct {
	Enabled bool `json:"enabled"`
	// TuningInterval is in controller cycles, clamped to [10, 300].
	TuningInterval    int     `json:"tuningInterval"`
	TargetPerformance float64 `json:"targetPerformance"`
	RapidCycles       int     `json:"rapidCycles"`
	RapidMultiplier   float64 `json:"rapidMultiplier"`
	SteadyThreshold   float64 `json:"steadyThreshold"`
	SteadyCycles      int     `json:"steadyCycles"`
}

type ActivityConfig struct {
	// TempThreshold in °C, FanThreshold in percent.
	TempThreshold int `json:"tempThreshold"`
	FanThreshold  int `json:"fanThreshold"`
	// StablePeriod is in seconds.
	StablePeriod  int `json:"stablePeriod"`
	MaxIdleCycles int `json:"maxIdleCycles"`
}

type IpcConfig struct {
	SocketPath string `json:"socketPath"`
}

type ApiConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type PersistenceConfig struct {
	Enabled bool   `json:"enabled"`
	DbPath  string `json:"dbPath"`
	// MaxSamples bounds the telemetry history.
	MaxSamples int `json:"maxSamples"`
}

var CurrentConfig Configuration

// InitConfig sets up the config file search path and default values.
func InitConfig(cfgFile string) {
	viper.SetConfigName("clevod")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/clevod/")
	}

	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("interval", 2.0)
	viper.SetDefault("targetTemp", 65)
	viper.SetDefault("debug", false)

	viper.SetDefault("pid.enabled", true)
	viper.SetDefault("pid.kp", 2.0)
	viper.SetDefault("pid.ki", 0.1)
	viper.SetDefault("pid.kd", 0.5)
	viper.SetDefault("pid.outputMin", 0.0)
	viper.SetDefault("pid.outputMax", 100.0)

	viper.SetDefault("adaptive.enabled", true)
	viper.SetDefault("adaptive.tuningInterval", 30)
	viper.SetDefault("adaptive.targetPerformance", 0.8)
	viper.SetDefault("adaptive.rapidCycles", 10)
	viper.SetDefault("adaptive.rapidMultiplier", 3.0)
	viper.SetDefault("adaptive.steadyThreshold", 0.05)
	viper.SetDefault("adaptive.steadyCycles", 5)

	viper.SetDefault("activity.tempThreshold", 2)
	viper.SetDefault("activity.fanThreshold", 5)
	viper.SetDefault("activity.stablePeriod", 300)
	viper.SetDefault("activity.maxIdleCycles", 5)

	viper.SetDefault("ipc.socketPath", "/tmp/clevod.sock")

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.port", 9440)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9441)

	viper.SetDefault("persistence.enabled", false)
	viper.SetDefault("persistence.dbPath", "/etc/clevod/clevod.db")
	viper.SetDefault("persistence.maxSamples", 10000)
}

// ReadConfig reads the config file if one exists. A missing file is
// fine (defaults apply), unless one was requested explicitly.
func ReadConfig() {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && viper.ConfigFileUsed() == "" {
			ui.Debug("No configuration file found, using defaults")
		} else {
			ui.Fatal("Error reading config file, %s", err)
		}
	} else {
		ui.Info("Using configuration file at: %s", viper.ConfigFileUsed())
	}

	LoadConfig()
}

// LoadConfig unmarshals the effective configuration into CurrentConfig.
func LoadConfig() {
	err := viper.Unmarshal(&CurrentConfig, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}

// TickRate returns the controller tick period.
func (c Configuration) TickRate() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// StablePeriodDuration returns the activity stable period.
func (c ActivityConfig) StablePeriodDuration() time.Duration {
	return time.Duration(c.StablePeriod) * time.Second
}

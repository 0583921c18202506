package statistics

import (
	"github.com/markusressel/clevod/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const controllerSubsystem = "controller"

// SnapshotProvider yields the current controller state.
type SnapshotProvider interface {
	Snapshot() controller.Snapshot
}

type ControllerCollector struct {
	provider SnapshotProvider

	cpuTemp    *prometheus.Desc
	gpuTemp    *prometheus.Desc
	fanDuty    *prometheus.Desc
	fanRpm     *prometheus.Desc
	autoMode   *prometheus.Desc
	targetTemp *prometheus.Desc
}

func NewControllerCollector(provider SnapshotProvider) *ControllerCollector {
	return &ControllerCollector{
		provider: provider,
		cpuTemp: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "cpu_temp_celsius"),
			"Current CPU temperature reported by the EC",
			nil, nil,
		),
		gpuTemp: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "gpu_temp_celsius"),
			"Current GPU temperature reported by the EC",
			nil, nil,
		),
		fanDuty: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "fan_duty_percent"),
			"Current fan duty cycle reported by the EC",
			nil, nil,
		),
		fanRpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "fan_rpm"),
			"Current fan RPM reported by the EC",
			nil, nil,
		),
		autoMode: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "auto_mode"),
			"Whether the controller is in closed-loop mode (1) or manual mode (0)",
			nil, nil,
		),
		targetTemp: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "target_temp_celsius"),
			"Current temperature setpoint",
			nil, nil,
		),
	}
}

func (collector *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.cpuTemp
	ch <- collector.gpuTemp
	ch <- collector.fanDuty
	ch <- collector.fanRpm
	ch <- collector.autoMode
	ch <- collector.targetTemp
}

// Collect implements required collect function for all prometheus collectors
func (collector *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := collector.provider.Snapshot()

	auto := 0.0
	if snapshot.Auto {
		auto = 1.0
	}

	ch <- prometheus.MustNewConstMetric(collector.cpuTemp, prometheus.GaugeValue, float64(snapshot.Sample.CpuTemp))
	ch <- prometheus.MustNewConstMetric(collector.gpuTemp, prometheus.GaugeValue, float64(snapshot.Sample.GpuTemp))
	ch <- prometheus.MustNewConstMetric(collector.fanDuty, prometheus.GaugeValue, float64(snapshot.Sample.FanDuty))
	ch <- prometheus.MustNewConstMetric(collector.fanRpm, prometheus.GaugeValue, float64(snapshot.Sample.FanRpm))
	ch <- prometheus.MustNewConstMetric(collector.autoMode, prometheus.GaugeValue, auto)
	ch <- prometheus.MustNewConstMetric(collector.targetTemp, prometheus.GaugeValue, float64(snapshot.TargetTemp))
}

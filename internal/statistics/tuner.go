package statistics

import (
	"github.com/markusressel/clevod/internal/control"
	"github.com/prometheus/client_golang/prometheus"
)

const tunerSubsystem = "tuner"

type TunerCollector struct {
	provider SnapshotProvider

	performanceScore *prometheus.Desc
	gain             *prometheus.Desc
	learningCycles   *prometheus.Desc
	learningPhase    *prometheus.Desc
	inhibited        *prometheus.Desc
}

func NewTunerCollector(provider SnapshotProvider) *TunerCollector {
	return &TunerCollector{
		provider: provider,
		performanceScore: prometheus.NewDesc(prometheus.BuildFQName(namespace, tunerSubsystem, "performance_score"),
			"Most recent performance score of the adaptive tuner",
			nil, nil,
		),
		gain: prometheus.NewDesc(prometheus.BuildFQName(namespace, tunerSubsystem, "gain"),
			"Current PID gains",
			[]string{"gain"}, nil,
		),
		learningCycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, tunerSubsystem, "learning_cycles_total"),
			"Number of completed tuning passes",
			nil, nil,
		),
		learningPhase: prometheus.NewDesc(prometheus.BuildFQName(namespace, tunerSubsystem, "learning_phase"),
			"Current learning phase of the adaptive tuner",
			[]string{"phase"}, nil,
		),
		inhibited: prometheus.NewDesc(prometheus.BuildFQName(namespace, tunerSubsystem, "learning_inhibited"),
			"Whether gain learning is currently inhibited by the activity detector",
			nil, nil,
		),
	}
}

func (collector *TunerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.performanceScore
	ch <- collector.gain
	ch <- collector.learningCycles
	ch <- collector.learningPhase
	ch <- collector.inhibited
}

// Collect implements required collect function for all prometheus collectors
func (collector *TunerCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := collector.provider.Snapshot()

	ch <- prometheus.MustNewConstMetric(collector.performanceScore, prometheus.GaugeValue, snapshot.Tuner.PerformanceScore)
	ch <- prometheus.MustNewConstMetric(collector.gain, prometheus.GaugeValue, snapshot.Pid.Kp, "kp")
	ch <- prometheus.MustNewConstMetric(collector.gain, prometheus.GaugeValue, snapshot.Pid.Ki, "ki")
	ch <- prometheus.MustNewConstMetric(collector.gain, prometheus.GaugeValue, snapshot.Pid.Kd, "kd")
	ch <- prometheus.MustNewConstMetric(collector.learningCycles, prometheus.CounterValue, float64(snapshot.Tuner.LearningCycles))

	for _, phase := range []control.Phase{control.PhaseRapid, control.PhaseNormal, control.PhaseSteady} {
		value := 0.0
		if snapshot.Tuner.Phase == phase {
			value = 1.0
		}
		ch <- prometheus.MustNewConstMetric(collector.learningPhase, prometheus.GaugeValue, value, string(phase))
	}

	inhibited := 0.0
	if snapshot.Tuner.LearningInhibited {
		inhibited = 1.0
	}
	ch <- prometheus.MustNewConstMetric(collector.inhibited, prometheus.GaugeValue, inhibited)
}

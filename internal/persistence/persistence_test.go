package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/markusressel/clevod/internal/control"
	"github.com/markusressel/clevod/internal/controller"
	"github.com/stretchr/testify/assert"
)

func testPersistence(t *testing.T, maxSamples int) Persistence {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "clevod.db")
	p := NewPersistence(dbPath, maxSamples)
	assert.NoError(t, p.Init())
	return p
}

func testSample(at time.Time, cpuTemp int) controller.Sample {
	return controller.Sample{
		CpuTemp: cpuTemp,
		GpuTemp: 45,
		FanDuty: 20,
		FanRpm:  2500,
		Time:    at,
	}
}

func TestSaveAndLoadSamples(t *testing.T) {
	// GIVEN
	p := testPersistence(t, 100)
	start := time.Unix(1000, 0)

	// WHEN
	for i := 0; i < 5; i++ {
		err := p.SaveSample(testSample(start.Add(time.Duration(i)*time.Second), 45+i))
		assert.NoError(t, err)
	}
	samples, err := p.LoadRecentSamples(3)

	// THEN
	// newest first, limited
	assert.NoError(t, err)
	assert.Len(t, samples, 3)
	assert.Equal(t, 49, samples[0].CpuTemp)
	assert.Equal(t, 48, samples[1].CpuTemp)
	assert.Equal(t, 47, samples[2].CpuTemp)
}

func TestSamplePruning(t *testing.T) {
	// GIVEN
	p := testPersistence(t, 10)
	start := time.Unix(1000, 0)

	// WHEN
	for i := 0; i < 25; i++ {
		err := p.SaveSample(testSample(start.Add(time.Duration(i)*time.Second), i))
		assert.NoError(t, err)
	}
	samples, err := p.LoadRecentSamples(100)

	// THEN
	// only the newest maxSamples survive
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(samples), 10)
	assert.Equal(t, 24, samples[0].CpuTemp)
}

func TestLoadSamplesEmpty(t *testing.T) {
	// GIVEN
	p := testPersistence(t, 100)

	// WHEN
	samples, err := p.LoadRecentSamples(10)

	// THEN
	assert.NoError(t, err)
	assert.Empty(t, samples)
}

func TestSaveAndLoadTunings(t *testing.T) {
	// GIVEN
	p := testPersistence(t, 100)
	record := TuningRecord{
		Time: time.Unix(2000, 0),
		Result: control.TuningResult{
			Score:       0.75,
			ScoreChange: 0.1,
			Phase:       control.PhaseRapid,
			Multiplier:  3.0,
			Kp:          2.3,
			Ki:          0.13,
			Kd:          0.5,
		},
	}

	// WHEN
	err := p.SaveTuning(record)
	assert.NoError(t, err)
	records, err := p.LoadRecentTunings(10)

	// THEN
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 0.75, records[0].Result.Score)
	assert.Equal(t, control.PhaseRapid, records[0].Result.Phase)
}

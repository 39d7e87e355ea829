package metrics

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Mean returns the arithmetic mean of losses. An empty slice is an error.
func Mean(losses []float64) (float64, error) {
	m, err := stats.Mean(losses)
	if err != nil {
		return 0, errors.Wrapf(err, "mean of %d losses", len(losses))
	}
	return m, nil
}

// Meter accumulates per-step timing and loss between progress reports.
type Meter struct {
	samples int
	data    time.Duration
	compute time.Duration
	losses  []float64
}

// Record adds a step's measurement to the meter.
func (m *Meter) Record(batchSize int, dataTime, computeTime time.Duration, loss float64) {
	m.samples += batchSize
	m.data += dataTime
	m.compute += computeTime
	m.losses = append(m.losses, loss)
}

// Snapshot returns aggregated metrics and resets the meter.
func (m *Meter) Snapshot() Snapshot {
	snap := Snapshot{Steps: len(m.losses)}
	total := m.data + m.compute
	if total > 0 {
		snap.SamplesPerSec = float64(m.samples) / total.Seconds()
	}
	if snap.Steps > 0 {
		snap.AvgDataMS = (m.data.Seconds() * 1000) / float64(snap.Steps)
		snap.AvgComputeMS = (m.compute.Seconds() * 1000) / float64(snap.Steps)
		snap.WindowLoss, _ = stats.Mean(m.losses)
		snap.LastLoss = m.losses[snap.Steps-1]
	}

	m.samples = 0
	m.data = 0
	m.compute = 0
	m.losses = m.losses[:0]
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps         int
	SamplesPerSec float64
	AvgDataMS     float64
	AvgComputeMS  float64
	WindowLoss    float64
	LastLoss      float64
}

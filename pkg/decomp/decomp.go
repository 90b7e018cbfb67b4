// Package decomp implements trend/seasonal decomposition of time series
// via a centered moving average.
package decomp

import (
	"fmt"

	"github.com/kvisso/godlinear/pkg/detectors"
)

// DefaultKernelSize is the moving-average window used when none is configured.
const DefaultKernelSize = 25

// MovingAverage computes a centered moving average over a sequence,
// replicating the edge timesteps so the output keeps the input length.
type MovingAverage struct {
	kernelSize int
}

// NewMovingAverage creates a smoother with the given kernel size.
// The kernel size must be a positive odd integer.
func NewMovingAverage(kernelSize int) (*MovingAverage, error) {
	if kernelSize <= 0 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("%w: kernel size must be a positive odd integer, got %d",
			detectors.ErrConfiguration, kernelSize)
	}
	return &MovingAverage{kernelSize: kernelSize}, nil
}

// KernelSize returns the configured window length.
func (m *MovingAverage) KernelSize() int {
	return m.kernelSize
}

// Smooth returns the moving average of x, where x is shaped [L][C]
// (rows are timesteps, columns are channels). The first and last rows
// are replicated (kernelSize-1)/2 times on each end before averaging,
// so the result has the same length L.
func (m *MovingAverage) Smooth(x [][]float64) [][]float64 {
	seqLen := len(x)
	if seqLen == 0 {
		return nil
	}
	channels := len(x[0])
	pad := (m.kernelSize - 1) / 2

	padded := make([][]float64, 0, seqLen+2*pad)
	for i := 0; i < pad; i++ {
		padded = append(padded, x[0])
	}
	padded = append(padded, x...)
	for i := 0; i < pad; i++ {
		padded = append(padded, x[seqLen-1])
	}

	out := make([][]float64, seqLen)
	inv := 1.0 / float64(m.kernelSize)
	for i := 0; i < seqLen; i++ {
		row := make([]float64, channels)
		for j := 0; j < m.kernelSize; j++ {
			for c := 0; c < channels; c++ {
				row[c] += padded[i+j][c]
			}
		}
		for c := 0; c < channels; c++ {
			row[c] *= inv
		}
		out[i] = row
	}
	return out
}

// Decomposer splits a sequence into a residual seasonal component and a
// moving-average trend component.
type Decomposer struct {
	avg *MovingAverage
}

// NewDecomposer creates a decomposer with the given kernel size.
func NewDecomposer(kernelSize int) (*Decomposer, error) {
	avg, err := NewMovingAverage(kernelSize)
	if err != nil {
		return nil, err
	}
	return &Decomposer{avg: avg}, nil
}

// Decompose returns (seasonal, trend) where trend is the moving average
// of x and seasonal is the residual x - trend. By construction
// seasonal + trend reconstructs x exactly.
func (d *Decomposer) Decompose(x [][]float64) (seasonal, trend [][]float64) {
	trend = d.avg.Smooth(x)
	seasonal = make([][]float64, len(x))
	for i := range x {
		row := make([]float64, len(x[i]))
		for c := range x[i] {
			row[c] = x[i][c] - trend[i][c]
		}
		seasonal[i] = row
	}
	return seasonal, trend
}

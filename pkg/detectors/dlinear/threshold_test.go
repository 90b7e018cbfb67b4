package dlinear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvisso/godlinear/pkg/detectors"
)

func TestCalibrateThreshold(t *testing.T) {
	t.Run("99th percentile of 1..100", func(t *testing.T) {
		errs := make([]float64, 100)
		for i := range errs {
			errs[i] = float64(i + 1)
		}

		threshold, err := calibrateThreshold(errs, nil, 1)
		require.NoError(t, err)
		assert.InDelta(t, 99, threshold, 0.2)
	})

	t.Run("no train errors", func(t *testing.T) {
		_, err := calibrateThreshold(nil, []float64{1, 2, 3}, 1)
		assert.ErrorIs(t, err, detectors.ErrConfiguration)
	})

	t.Run("invalid ratio", func(t *testing.T) {
		for _, ratio := range []float64{0, -1, 100.5} {
			_, err := calibrateThreshold([]float64{1, 2, 3}, nil, ratio)
			assert.ErrorIs(t, err, detectors.ErrConfiguration, "ratio %v", ratio)
		}
	})

	t.Run("validation errors join the distribution", func(t *testing.T) {
		trainOnly, err := calibrateThreshold([]float64{1, 2, 3, 4}, nil, 50)
		require.NoError(t, err)

		combined, err := calibrateThreshold([]float64{1, 2, 3, 4}, []float64{100, 100, 100, 100}, 50)
		require.NoError(t, err)

		assert.Greater(t, combined, trainOnly)
	})

	t.Run("ratio 100 flags everything", func(t *testing.T) {
		threshold, err := calibrateThreshold([]float64{5, 7, 9}, nil, 100)
		require.NoError(t, err)
		assert.InDelta(t, 5, threshold, 1e-9)
	})
}

func TestCalibrateThresholdSeparatesAnomalies(t *testing.T) {
	// A train distribution with 1% large errors: the calibrated threshold
	// must sit above every normal error and at or below the large ones,
	// so that exactly 1% of the training points would be flagged.
	errs := make([]float64, 0, 1000)
	for i := 0; i < 990; i++ {
		errs = append(errs, 0.1)
	}
	for i := 0; i < 10; i++ {
		errs = append(errs, 10.0)
	}

	threshold, err := calibrateThreshold(errs, nil, 1)
	require.NoError(t, err)

	flagged := 0
	for _, e := range errs {
		if e >= threshold {
			flagged++
		}
	}
	assert.Equal(t, 10, flagged)

	// New observations score against the same boundary.
	assert.GreaterOrEqual(t, 10.5, threshold)
	assert.Less(t, 0.05, threshold)
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{
			name:   "single value",
			sorted: []float64{3},
			p:      50,
			want:   3,
		},
		{
			name:   "median interpolated",
			sorted: []float64{1, 2, 3, 4},
			p:      50,
			want:   2.5,
		},
		{
			name:   "maximum",
			sorted: []float64{1, 2, 3},
			p:      100,
			want:   3,
		},
		{
			name:   "minimum",
			sorted: []float64{1, 2, 3},
			p:      0,
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, percentile(tt.sorted, tt.p), 1e-9)
		})
	}
}

package decomp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvisso/godlinear/pkg/detectors"
)

func TestNewMovingAverage(t *testing.T) {
	tests := []struct {
		name       string
		kernelSize int
		wantErr    bool
	}{
		{
			name:       "default kernel",
			kernelSize: DefaultKernelSize,
			wantErr:    false,
		},
		{
			name:       "smallest valid kernel",
			kernelSize: 1,
			wantErr:    false,
		},
		{
			name:       "even kernel",
			kernelSize: 24,
			wantErr:    true,
		},
		{
			name:       "zero kernel",
			kernelSize: 0,
			wantErr:    true,
		},
		{
			name:       "negative kernel",
			kernelSize: -3,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMovingAverage(tt.kernelSize)
			if tt.wantErr {
				assert.ErrorIs(t, err, detectors.ErrConfiguration)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.kernelSize, m.KernelSize())
			}
		})
	}
}

func TestSmoothConstantSequence(t *testing.T) {
	m, err := NewMovingAverage(25)
	require.NoError(t, err)

	x := make([][]float64, 96)
	for i := range x {
		x[i] = []float64{3.5, -1.25, 0}
	}

	out := m.Smooth(x)
	require.Len(t, out, len(x))
	for i := range out {
		for c := range out[i] {
			assert.InDelta(t, x[i][c], out[i][c], 1e-9)
		}
	}
}

func TestSmoothPreservesLength(t *testing.T) {
	m, err := NewMovingAverage(5)
	require.NoError(t, err)

	for _, seqLen := range []int{1, 2, 5, 96} {
		x := randomSeries(seqLen, 2)
		out := m.Smooth(x)
		assert.Len(t, out, seqLen)
	}
}

func TestSmoothKnownValues(t *testing.T) {
	m, err := NewMovingAverage(3)
	require.NoError(t, err)

	x := [][]float64{{1}, {2}, {3}, {4}}
	out := m.Smooth(x)

	// Edge padding replicates 1 in front and 4 behind.
	want := []float64{(1 + 1 + 2) / 3.0, (1 + 2 + 3) / 3.0, (2 + 3 + 4) / 3.0, (3 + 4 + 4) / 3.0}
	for i, w := range want {
		assert.InDelta(t, w, out[i][0], 1e-9)
	}
}

func TestDecomposeReconstruction(t *testing.T) {
	d, err := NewDecomposer(25)
	require.NoError(t, err)

	x := randomSeries(96, 3)
	seasonal, trend := d.Decompose(x)

	require.Len(t, seasonal, len(x))
	require.Len(t, trend, len(x))
	for i := range x {
		for c := range x[i] {
			assert.InDelta(t, x[i][c], seasonal[i][c]+trend[i][c], 1e-9)
		}
	}
}

func TestDecomposerInvalidKernel(t *testing.T) {
	_, err := NewDecomposer(4)
	assert.ErrorIs(t, err, detectors.ErrConfiguration)
}

func BenchmarkSmooth(b *testing.B) {
	m, _ := NewMovingAverage(25)
	x := randomSeries(96, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Smooth(x)
	}
}

func randomSeries(seqLen, channels int) [][]float64 {
	rng := rand.New(rand.NewSource(42))
	x := make([][]float64, seqLen)
	for i := range x {
		x[i] = make([]float64, channels)
		for c := range x[i] {
			x[i][c] = rng.NormFloat64()
		}
	}
	return x
}

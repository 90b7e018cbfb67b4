package dlinear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityAdjuster(t *testing.T) {
	labels := []int{0, 1, 0, 0, 1, 1, 0}
	scores := []float64{0, 9, 0, 0, 9, 9, 0}

	out := identityAdjuster{}.Adjust(labels, scores, 5)

	assert.Equal(t, labels, out)

	// The input slice must not be mutated.
	out[0] = 1
	assert.Equal(t, 0, labels[0])
}

func TestSegmentAdjuster(t *testing.T) {
	tests := []struct {
		name   string
		maxGap int
		labels []int
		want   []int
	}{
		{
			name:   "bridges single gap",
			maxGap: 2,
			labels: []int{0, 1, 0, 1, 0},
			want:   []int{0, 1, 1, 1, 0},
		},
		{
			name:   "bridges double gap",
			maxGap: 2,
			labels: []int{1, 0, 0, 1},
			want:   []int{1, 1, 1, 1},
		},
		{
			name:   "leaves wide gap",
			maxGap: 2,
			labels: []int{1, 0, 0, 0, 1},
			want:   []int{1, 0, 0, 0, 1},
		},
		{
			name:   "no anomalies",
			maxGap: 2,
			labels: []int{0, 0, 0},
			want:   []int{0, 0, 0},
		},
		{
			name:   "all anomalies",
			maxGap: 2,
			labels: []int{1, 1, 1},
			want:   []int{1, 1, 1},
		},
		{
			name:   "leading and trailing normals untouched",
			maxGap: 1,
			labels: []int{0, 0, 1, 0, 1, 0, 0},
			want:   []int{0, 0, 1, 1, 1, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := make([]float64, len(tt.labels))
			out := segmentAdjuster{maxGap: tt.maxGap}.Adjust(tt.labels, scores, 0.5)
			assert.Equal(t, tt.want, out)
			assert.Len(t, out, len(tt.labels))
		})
	}
}

func TestDefaultAdjustmentPolicy(t *testing.T) {
	d, err := New()
	require.NoError(t, err)

	adj, ok := d.adjuster.(segmentAdjuster)
	require.True(t, ok)
	assert.Equal(t, 2, adj.maxGap)

	// Gaps of up to two normal timesteps are bridged, wider ones are kept.
	labels := []int{1, 0, 0, 1, 0, 0, 0, 1}
	scores := make([]float64, len(labels))
	out := adj.Adjust(labels, scores, 0.5)
	assert.Equal(t, []int{1, 1, 1, 1, 0, 0, 0, 1}, out)
}

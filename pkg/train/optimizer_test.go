package train

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSGDStep(t *testing.T) {
	p := &Param{Name: "w", Data: []float64{1, -2}, Grad: []float64{0.5, -0.5}}
	opt := NewSGD([]*Param{p}, 0.1)

	opt.Step()

	assert.InDelta(t, 0.95, p.Data[0], 1e-9)
	assert.InDelta(t, -1.95, p.Data[1], 1e-9)
}

func TestSGDZeroGrad(t *testing.T) {
	p := &Param{Data: []float64{1}, Grad: []float64{3}}
	opt := NewSGD([]*Param{p}, 0.1)

	opt.ZeroGrad()
	assert.Zero(t, p.Grad[0])
}

func TestAdamStepDirection(t *testing.T) {
	p := &Param{Data: []float64{1, 1}, Grad: []float64{2, -2}}
	opt := NewAdam([]*Param{p}, 1e-2, 0.9, 0.999, 1e-8)

	opt.Step()

	// Parameters move against the gradient sign.
	assert.Less(t, p.Data[0], 1.0)
	assert.Greater(t, p.Data[1], 1.0)
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	// Minimize f(x) = x^2 from x=5; gradient is 2x.
	p := &Param{Data: []float64{5}, Grad: []float64{0}}
	opt := NewAdam([]*Param{p}, 0.1, 0.9, 0.999, 1e-8)

	for i := 0; i < 500; i++ {
		opt.ZeroGrad()
		p.Grad[0] = 2 * p.Data[0]
		opt.Step()
	}

	assert.InDelta(t, 0, p.Data[0], 0.1)
}

func TestEarlyStopper(t *testing.T) {
	e := NewEarlyStopper(2)

	assert.False(t, e.Observe(1.0))
	assert.False(t, e.Observe(0.5))
	assert.False(t, e.Observe(0.6)) // 1 bad epoch
	assert.True(t, e.Observe(0.7))  // 2 bad epochs
	assert.InDelta(t, 0.5, e.Best(), 1e-9)
}

func TestEarlyStopperZeroPatience(t *testing.T) {
	e := NewEarlyStopper(0)
	for i := 0; i < 10; i++ {
		assert.False(t, e.Observe(float64(10-i)))
		assert.False(t, e.Observe(math.Inf(1)))
	}
}

func TestBatches(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	batches := Batches(10, 3, rng)
	require.Len(t, batches, 4)

	seen := make(map[int]bool)
	for _, b := range batches {
		for _, idx := range b {
			assert.False(t, seen[idx], "index %d repeated", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestBatchesOversizedBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	batches := Batches(4, 100, rng)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 4)
}

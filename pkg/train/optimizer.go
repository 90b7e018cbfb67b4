// Package train provides the minimal gradient-descent machinery used to
// fit reconstruction models: optimizers over flat parameter slices,
// minibatch index generation and early stopping.
package train

import (
	"math"
	"math/rand"
)

// Param is a flat parameter tensor with its gradient accumulator.
// Data and Grad alias the model's own storage, so Step updates the
// model in place.
type Param struct {
	Name string
	Data []float64
	Grad []float64
}

// ZeroGrad clears the gradient accumulator.
func (p *Param) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// Optimizer applies accumulated gradients to registered parameters.
type Optimizer interface {
	// Step performs one update using the current gradients.
	Step()
	// ZeroGrad clears all gradient accumulators.
	ZeroGrad()
}

// SGD implements plain stochastic gradient descent.
type SGD struct {
	params []*Param
	lr     float64
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*Param, lr float64) *SGD {
	return &SGD{params: params, lr: lr}
}

// Step applies data -= lr * grad to every parameter.
func (s *SGD) Step() {
	for _, p := range s.params {
		for i := range p.Data {
			p.Data[i] -= s.lr * p.Grad[i]
		}
	}
}

// ZeroGrad clears all gradient accumulators.
func (s *SGD) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// Adam implements the Adam optimizer with bias-corrected moment estimates.
type Adam struct {
	params []*Param
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64

	m [][]float64
	v [][]float64
	t int
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam(params []*Param, lr, beta1, beta2, eps float64) *Adam {
	m := make([][]float64, len(params))
	v := make([][]float64, len(params))
	for i, p := range params {
		m[i] = make([]float64, len(p.Data))
		v[i] = make([]float64, len(p.Data))
	}
	return &Adam{
		params: params,
		lr:     lr,
		beta1:  beta1,
		beta2:  beta2,
		eps:    eps,
		m:      m,
		v:      v,
	}
}

// Step performs one Adam update using the current gradients.
func (a *Adam) Step() {
	a.t++
	corr1 := 1 - math.Pow(a.beta1, float64(a.t))
	corr2 := 1 - math.Pow(a.beta2, float64(a.t))

	for i, p := range a.params {
		for j := range p.Data {
			g := p.Grad[j]
			a.m[i][j] = a.beta1*a.m[i][j] + (1-a.beta1)*g
			a.v[i][j] = a.beta2*a.v[i][j] + (1-a.beta2)*g*g

			mHat := a.m[i][j] / corr1
			vHat := a.v[i][j] / corr2
			p.Data[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// ZeroGrad clears all gradient accumulators.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// EarlyStopper tracks the best loss seen so far and signals when it has
// not improved for a configured number of epochs.
type EarlyStopper struct {
	patience int
	best     float64
	bad      int
}

// NewEarlyStopper creates a stopper that tolerates patience epochs
// without improvement. A non-positive patience never stops.
func NewEarlyStopper(patience int) *EarlyStopper {
	return &EarlyStopper{patience: patience, best: math.Inf(1)}
}

// Observe records an epoch loss and reports whether training should stop.
func (e *EarlyStopper) Observe(loss float64) bool {
	if loss < e.best {
		e.best = loss
		e.bad = 0
		return false
	}
	e.bad++
	return e.patience > 0 && e.bad >= e.patience
}

// Best returns the best loss observed so far.
func (e *EarlyStopper) Best() float64 {
	return e.best
}

// Batches splits the indices 0..n-1 into shuffled minibatches.
func Batches(n, batchSize int, rng *rand.Rand) [][]int {
	if batchSize <= 0 || batchSize > n {
		batchSize = n
	}
	perm := rng.Perm(n)
	batches := make([][]int, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		batches = append(batches, perm[start:end])
	}
	return batches
}

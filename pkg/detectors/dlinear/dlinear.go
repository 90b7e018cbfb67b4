// Package dlinear implements a decomposition-linear anomaly detector for
// multivariate time series. A window is split into seasonal and trend
// components, each is passed through a linear projection, and the sum is
// used as a reconstruction of the window. Points whose reconstruction
// error exceeds a percentile-calibrated threshold are flagged anomalous.
//
// The approach follows Zeng et al., "Are Transformers Effective for Time
// Series Forecasting?" (https://arxiv.org/pdf/2205.13504.pdf), applied
// to reconstruction-based anomaly detection.
package dlinear

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/kvisso/godlinear/pkg/decomp"
	"github.com/kvisso/godlinear/pkg/detectors"
	"github.com/kvisso/godlinear/pkg/train"
)

// DLinear detects anomalies by reconstructing windows of a series with
// linear projections of their decomposed components. The channel count
// is inferred from the training data, so the predictor is only built
// during Fit (or Load).
type DLinear struct {
	mu sync.RWMutex

	// Configuration
	inChunkLen     int
	individual     bool
	samplingStride int
	kernelSize     int
	anomalyRatio   float64
	userThreshold  *float64
	thresholdCoeff float64
	predAdjust     bool
	adjuster       Adjuster
	batchSize      int
	maxEpochs      int
	patience       int
	learningRate   float64
	seed           int64
	logger         *slog.Logger
	pretrained     map[string][]float64

	// Fitted state
	decomposer *decomp.Decomposer
	net        *network
	threshold  float64
	trained    bool
}

var _ detectors.StreamDetector = (*DLinear)(nil)

// New creates a DLinear detector with the given options.
func New(opts ...Option) (*DLinear, error) {
	d := &DLinear{
		inChunkLen:     96,
		samplingStride: 1,
		kernelSize:     decomp.DefaultKernelSize,
		anomalyRatio:   1,
		thresholdCoeff: 1,
		predAdjust:     true,
		adjuster:       segmentAdjuster{maxGap: defaultMaxGap},
		batchSize:      32,
		maxEpochs:      100,
		patience:       10,
		learningRate:   1e-3,
		seed:           42,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.inChunkLen <= 0 {
		return nil, fmt.Errorf("%w: window length must be positive, got %d",
			detectors.ErrConfiguration, d.inChunkLen)
	}
	if d.samplingStride <= 0 {
		return nil, fmt.Errorf("%w: sampling stride must be positive, got %d",
			detectors.ErrConfiguration, d.samplingStride)
	}
	if d.anomalyRatio <= 0 || d.anomalyRatio > 100 {
		return nil, fmt.Errorf("%w: anomaly ratio must be in (0, 100], got %v",
			detectors.ErrConfiguration, d.anomalyRatio)
	}

	dec, err := decomp.NewDecomposer(d.kernelSize)
	if err != nil {
		return nil, err
	}
	d.decomposer = dec

	return d, nil
}

// Fit trains the detector on a historical series and calibrates the
// anomaly threshold from its reconstruction errors.
func (d *DLinear) Fit(series [][]float64) error {
	return d.fit(series, nil)
}

// FitWithValidation trains on trainSeries and includes valSeries
// reconstruction errors in the threshold calibration.
func (d *DLinear) FitWithValidation(trainSeries, valSeries [][]float64) error {
	return d.fit(trainSeries, valSeries)
}

func (d *DLinear) fit(trainSeries, valSeries [][]float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	channels, err := seriesChannels(trainSeries)
	if err != nil {
		return err
	}
	windows, err := slideWindows(trainSeries, d.inChunkLen, d.samplingStride)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(d.seed))
	net := newNetwork(d.inChunkLen, channels, d.individual, rng)
	if d.pretrained != nil {
		net.InitWeight(d.pretrained, d.logger)
	}
	d.net = net

	// The decomposition has no learned parameters, so each training
	// window is decomposed once up front.
	type sample struct {
		seasonal [][]float64
		trend    [][]float64
		truth    [][]float64
	}
	samples := make([]sample, len(windows))
	for i, w := range windows {
		seasonal, trend := d.decomposer.Decompose(w)
		samples[i] = sample{seasonal: seasonal, trend: trend, truth: w}
	}

	opt := train.NewAdam(net.Params(), d.learningRate, 0.9, 0.999, 1e-8)
	stopper := train.NewEarlyStopper(d.patience)

	for epoch := 1; epoch <= d.maxEpochs; epoch++ {
		var epochLoss float64
		batches := train.Batches(len(samples), d.batchSize, rng)
		for _, batch := range batches {
			opt.ZeroGrad()
			elems := float64(len(batch) * d.inChunkLen * channels)
			scale := 2 / elems

			var sse float64
			for _, idx := range batch {
				sm := samples[idx]
				pred, err := net.Forward(sm.seasonal, sm.trend)
				if err != nil {
					return err
				}
				net.Backward(sm.seasonal, sm.trend, pred, sm.truth, scale)
				sse += sumSquaredError(pred, sm.truth)
			}
			opt.Step()
			epochLoss += sse / elems
		}
		epochLoss /= float64(len(batches))

		d.logger.Debug("epoch complete", "epoch", epoch, "loss", epochLoss)
		if stopper.Observe(epochLoss) {
			d.logger.Info("early stopping", "epoch", epoch, "best_loss", stopper.Best())
			break
		}
	}
	d.trained = true

	if d.userThreshold != nil {
		d.threshold = *d.userThreshold
		return nil
	}

	trainErrors, err := d.windowErrors(trainSeries, d.samplingStride)
	if err != nil {
		return err
	}
	var valErrors []float64
	if valSeries != nil {
		valErrors, err = d.windowErrors(valSeries, d.samplingStride)
		if err != nil {
			return err
		}
	}

	threshold, err := calibrateThreshold(trainErrors, valErrors, d.anomalyRatio)
	if err != nil {
		return err
	}
	d.threshold = threshold * d.thresholdCoeff

	d.logger.Info("threshold calibrated",
		"threshold", d.threshold,
		"mean_error", stat.Mean(trainErrors, nil),
		"stddev_error", stat.StdDev(trainErrors, nil))
	return nil
}

// windowErrors scores every window of the series and returns the flat
// per-timestep error distribution. Caller must hold the lock.
func (d *DLinear) windowErrors(series [][]float64, stride int) ([]float64, error) {
	windows, err := slideWindows(series, d.inChunkLen, stride)
	if err != nil {
		return nil, err
	}
	var errs []float64
	for _, w := range windows {
		scores, err := d.scoreOne(w)
		if err != nil {
			return nil, err
		}
		errs = append(errs, scores...)
	}
	return errs, nil
}

// scoreOne reconstructs a single window and returns its per-timestep
// scores. Caller must hold at least a read lock.
func (d *DLinear) scoreOne(window [][]float64) ([]float64, error) {
	seasonal, trend := d.decomposer.Decompose(window)
	pred, err := d.net.Forward(seasonal, trend)
	if err != nil {
		return nil, err
	}
	return scoreWindow(pred, window), nil
}

// Scores returns one anomaly score per timestep of the series, aligned
// to its time index. The series is tiled with non-overlapping windows;
// when the window length does not divide the series, the tail is covered
// by a final window anchored at the end.
func (d *DLinear) Scores(series [][]float64) ([]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scores(series)
}

func (d *DLinear) scores(series [][]float64) ([]float64, error) {
	if !d.trained {
		return nil, detectors.ErrNotFitted
	}
	channels, err := seriesChannels(series)
	if err != nil {
		return nil, err
	}
	if channels != d.net.channels {
		return nil, fmt.Errorf("%w: series has %d channels, model fitted with %d",
			detectors.ErrDimension, channels, d.net.channels)
	}
	if len(series) < d.inChunkLen {
		return nil, fmt.Errorf("%w: series length %d shorter than window length %d",
			detectors.ErrDimension, len(series), d.inChunkLen)
	}

	scores := make([]float64, len(series))
	for _, start := range tileStarts(len(series), d.inChunkLen) {
		window := series[start : start+d.inChunkLen]
		sc, err := d.scoreOne(window)
		if err != nil {
			return nil, err
		}
		copy(scores[start:], sc)
	}
	return scores, nil
}

// Predict returns per-timestep anomaly labels for the series: scores at
// or above the threshold are flagged, then the configured adjustment
// policy is applied.
func (d *DLinear) Predict(series [][]float64) ([]int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	scores, err := d.scores(series)
	if err != nil {
		return nil, err
	}
	return d.labels(scores), nil
}

// Detect scores the series and derives the anomaly labels from those
// scores in a single forward pass.
func (d *DLinear) Detect(series [][]float64) ([]float64, []int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	scores, err := d.scores(series)
	if err != nil {
		return nil, nil, err
	}
	return scores, d.labels(scores), nil
}

// labels thresholds the scores and applies the adjustment policy.
// Callers must hold d.mu.
func (d *DLinear) labels(scores []float64) []int {
	labels := make([]int, len(scores))
	for i, s := range scores {
		if s >= d.threshold {
			labels[i] = 1
		}
	}

	adj := d.adjuster
	if !d.predAdjust {
		adj = identityAdjuster{}
	}
	return adj.Adjust(labels, scores, d.threshold)
}

// PredictStream scores timesteps arriving on input against a rolling
// window. Scores are emitted once the first full window has been seen.
func (d *DLinear) PredictStream(ctx context.Context, input <-chan []float64, output chan<- detectors.Score) error {
	d.mu.RLock()
	if !d.trained {
		d.mu.RUnlock()
		return detectors.ErrNotFitted
	}
	inChunkLen := d.inChunkLen
	d.mu.RUnlock()

	window := make([][]float64, 0, inChunkLen)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-input:
			if !ok {
				return nil
			}

			row := make([]float64, len(sample))
			copy(row, sample)
			window = append(window, row)
			if len(window) > inChunkLen {
				window = window[1:]
			}
			if len(window) < inChunkLen {
				continue
			}

			d.mu.RLock()
			scores, err := d.scoreOne(window)
			threshold := d.threshold
			d.mu.RUnlock()
			if err != nil {
				return err
			}

			value := scores[len(scores)-1]
			select {
			case output <- detectors.Score{
				Value:     value,
				IsAnomaly: value >= threshold,
				Features:  sample,
				Metadata:  map[string]any{"threshold": threshold},
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Reconstruct runs the predictor on a single window and returns its
// reconstruction together with the ground truth, for external training
// loops and inspection.
func (d *DLinear) Reconstruct(window [][]float64) (pred, truth [][]float64, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.net == nil {
		return nil, nil, detectors.ErrNotFitted
	}
	seasonal, trend := d.decomposer.Decompose(window)
	pred, err = d.net.Forward(seasonal, trend)
	if err != nil {
		return nil, nil, err
	}
	return pred, window, nil
}

// Threshold returns the current anomaly threshold.
func (d *DLinear) Threshold() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

// SetThreshold overrides the anomaly threshold.
func (d *DLinear) SetThreshold(threshold float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}

// SetPredAdjust enables or disables label adjustment at predict time,
// overriding the setting restored by Load.
func (d *DLinear) SetPredAdjust(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.predAdjust = enabled
}

// StateDict returns a flat name-to-values copy of the model parameters,
// for persistence collaborators.
func (d *DLinear) StateDict() (map[string][]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return nil, detectors.ErrNotFitted
	}
	return d.net.StateDict(), nil
}

// InitWeight restores model parameters by name from a flat mapping,
// best-effort: missing or size-mismatched entries are skipped with a
// warning. Returns the number of parameters loaded. The network must
// already be built by Fit or Load.
func (d *DLinear) InitWeight(params map[string][]float64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.net == nil {
		return 0, fmt.Errorf("%w: predictor not built yet, call Fit or Load first",
			detectors.ErrConfiguration)
	}
	return d.net.InitWeight(params, d.logger), nil
}

// modelState is the serialized form of a trained detector.
type modelState struct {
	InChunkLen     int
	Channels       int
	Individual     bool
	KernelSize     int
	SamplingStride int
	AnomalyRatio   float64
	ThresholdCoeff float64
	PredAdjust     bool
	Threshold      float64
	Params         map[string][]float64
}

// Save serializes the trained model, including the calibrated threshold.
func (d *DLinear) Save() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return nil, detectors.ErrNotFitted
	}

	state := modelState{
		InChunkLen:     d.inChunkLen,
		Channels:       d.net.channels,
		Individual:     d.individual,
		KernelSize:     d.kernelSize,
		SamplingStride: d.samplingStride,
		AnomalyRatio:   d.anomalyRatio,
		ThresholdCoeff: d.thresholdCoeff,
		PredAdjust:     d.predAdjust,
		Threshold:      d.threshold,
		Params:         d.net.StateDict(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load restores a trained model saved with Save. Unlike InitWeight,
// loading a persisted model is strict: a missing or mismatched parameter
// means the state is corrupt.
func (d *DLinear) Load(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var state modelState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}

	dec, err := decomp.NewDecomposer(state.KernelSize)
	if err != nil {
		return err
	}

	net := newNetwork(state.InChunkLen, state.Channels, state.Individual,
		rand.New(rand.NewSource(d.seed)))
	for _, p := range net.Params() {
		src, ok := state.Params[p.Name]
		if !ok {
			return fmt.Errorf("%w: saved model missing parameter %q",
				detectors.ErrDimension, p.Name)
		}
		if len(src) != len(p.Data) {
			return fmt.Errorf("%w: saved parameter %q has %d values, expected %d",
				detectors.ErrDimension, p.Name, len(src), len(p.Data))
		}
		copy(p.Data, src)
	}

	d.inChunkLen = state.InChunkLen
	d.individual = state.Individual
	d.kernelSize = state.KernelSize
	d.samplingStride = state.SamplingStride
	d.anomalyRatio = state.AnomalyRatio
	d.thresholdCoeff = state.ThresholdCoeff
	d.predAdjust = state.PredAdjust
	d.decomposer = dec
	d.net = net
	d.threshold = state.Threshold
	d.trained = true
	return nil
}

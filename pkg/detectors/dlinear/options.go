package dlinear

import "log/slog"

// Option configures a DLinear detector.
type Option func(*DLinear)

// WithInChunkLen sets the loopback window length L.
func WithInChunkLen(n int) Option {
	return func(d *DLinear) {
		d.inChunkLen = n
	}
}

// WithIndividual selects one independent pair of linear maps per channel
// instead of a single shared pair.
func WithIndividual(individual bool) Option {
	return func(d *DLinear) {
		d.individual = individual
	}
}

// WithSamplingStride sets the interval between adjacent training windows.
func WithSamplingStride(stride int) Option {
	return func(d *DLinear) {
		d.samplingStride = stride
	}
}

// WithKernelSize sets the moving-average kernel used by the decomposition.
// Must be a positive odd integer.
func WithKernelSize(kernelSize int) Option {
	return func(d *DLinear) {
		d.kernelSize = kernelSize
	}
}

// WithAnomalyRatio sets the expected percentage of anomalous training
// points, in (0, 100]. It selects the calibration percentile.
func WithAnomalyRatio(ratio float64) Option {
	return func(d *DLinear) {
		d.anomalyRatio = ratio
	}
}

// WithThreshold fixes the anomaly threshold explicitly, skipping
// calibration after fit.
func WithThreshold(threshold float64) Option {
	return func(d *DLinear) {
		t := threshold
		d.userThreshold = &t
	}
}

// WithThresholdCoeff scales the calibrated threshold.
func WithThresholdCoeff(coeff float64) Option {
	return func(d *DLinear) {
		d.thresholdCoeff = coeff
	}
}

// WithPredAdjust enables or disables label adjustment after thresholding.
func WithPredAdjust(enabled bool) Option {
	return func(d *DLinear) {
		d.predAdjust = enabled
	}
}

// WithAdjuster supplies a custom label-adjustment policy and enables
// adjustment.
func WithAdjuster(a Adjuster) Option {
	return func(d *DLinear) {
		d.adjuster = a
		d.predAdjust = true
	}
}

// WithBatchSize sets the number of windows per optimizer step.
func WithBatchSize(n int) Option {
	return func(d *DLinear) {
		d.batchSize = n
	}
}

// WithMaxEpochs sets the maximum number of training epochs.
func WithMaxEpochs(n int) Option {
	return func(d *DLinear) {
		d.maxEpochs = n
	}
}

// WithPatience sets the number of epochs without improvement after which
// training stops early. Zero disables early stopping.
func WithPatience(n int) Option {
	return func(d *DLinear) {
		d.patience = n
	}
}

// WithLearningRate sets the optimizer learning rate.
func WithLearningRate(lr float64) Option {
	return func(d *DLinear) {
		d.learningRate = lr
	}
}

// WithSeed sets the random seed for weight initialization and batch
// shuffling.
func WithSeed(seed int64) Option {
	return func(d *DLinear) {
		d.seed = seed
	}
}

// WithLogger sets the logger used for fit progress and load warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DLinear) {
		d.logger = logger
	}
}

// WithPretrained supplies a flat name-to-values parameter mapping that is
// restored best-effort once the network is built at fit time.
func WithPretrained(params map[string][]float64) Option {
	return func(d *DLinear) {
		d.pretrained = params
	}
}

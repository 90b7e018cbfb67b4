// Package detectors provides unsupervised anomaly detection for
// multivariate time series.
package detectors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors shared by all detectors. Callers match them with errors.Is.
var (
	// ErrConfiguration indicates an invalid or incomplete configuration,
	// such as an even smoothing kernel or calibration without train data.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrDimension indicates that incoming data does not match the shape
	// the detector was configured or fitted with.
	ErrDimension = errors.New("dimension mismatch")

	// ErrNotFitted indicates a prediction was requested before Fit.
	// It matches ErrConfiguration: an unfitted model is an incomplete one.
	ErrNotFitted = fmt.Errorf("%w: model not fitted", ErrConfiguration)
)

// Detector is the common interface for time-series anomaly detectors.
type Detector interface {
	// Fit trains the detector on a historical series.
	// series is a 2D slice where each row is a timestep and each column
	// is a channel.
	Fit(series [][]float64) error

	// Predict returns per-timestep anomaly labels (0 or 1) aligned to the
	// time index of the given series.
	Predict(series [][]float64) ([]int, error)

	// Scores returns per-timestep anomaly scores for the given series.
	// Higher values indicate anomalies.
	Scores(series [][]float64) ([]float64, error)

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// StreamDetector extends Detector with streaming capabilities.
type StreamDetector interface {
	Detector

	// PredictStream consumes timesteps from a channel and outputs scores.
	PredictStream(ctx context.Context, input <-chan []float64, output chan<- Score) error
}

// Score represents an anomaly detection result for a single timestep.
type Score struct {
	// Value is the reconstruction-error anomaly score.
	Value float64
	// IsAnomaly indicates if the score exceeds the calibrated threshold.
	IsAnomaly bool
	// Features contains the original input timestep.
	Features []float64
	// Metadata contains additional information.
	Metadata map[string]any
}

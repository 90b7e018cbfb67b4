package dlinear

import (
	"fmt"
	"math"
	"sort"

	"github.com/kvisso/godlinear/pkg/detectors"
)

// calibrateThreshold returns the (100 - anomalyRatio)-th percentile of
// the combined train and validation reconstruction errors, so that
// roughly anomalyRatio percent of the training points would be flagged
// if scored against themselves. Pure function of its inputs.
func calibrateThreshold(trainErrors, valErrors []float64, anomalyRatio float64) (float64, error) {
	if len(trainErrors) == 0 {
		return 0, fmt.Errorf("%w: threshold calibration requires train errors",
			detectors.ErrConfiguration)
	}
	if anomalyRatio <= 0 || anomalyRatio > 100 {
		return 0, fmt.Errorf("%w: anomaly ratio must be in (0, 100], got %v",
			detectors.ErrConfiguration, anomalyRatio)
	}

	combined := make([]float64, 0, len(trainErrors)+len(valErrors))
	combined = append(combined, trainErrors...)
	combined = append(combined, valErrors...)
	sort.Float64s(combined)

	return percentile(combined, 100-anomalyRatio), nil
}

// percentile returns the p-th percentile of sorted data, linearly
// interpolating between order statistics (numpy percentile semantics).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	h := p / 100 * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

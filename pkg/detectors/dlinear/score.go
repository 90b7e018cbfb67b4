package dlinear

import "gonum.org/v1/gonum/stat"

// scoreWindow computes one anomaly score per timestep: the squared error
// between prediction and ground truth, averaged over channels. The same
// reduction is used for threshold calibration and for inference scoring,
// so thresholds stay comparable between the two.
func scoreWindow(pred, truth [][]float64) []float64 {
	scores := make([]float64, len(truth))
	if len(truth) == 0 {
		return scores
	}

	sq := make([]float64, len(truth[0]))
	for i := range truth {
		for c := range truth[i] {
			d := pred[i][c] - truth[i][c]
			sq[c] = d * d
		}
		scores[i] = stat.Mean(sq, nil)
	}
	return scores
}

// sumSquaredError returns the total squared error over a window, used to
// report the training loss.
func sumSquaredError(pred, truth [][]float64) float64 {
	var sum float64
	for i := range truth {
		for c := range truth[i] {
			d := pred[i][c] - truth[i][c]
			sum += d * d
		}
	}
	return sum
}

package dlinear

import (
	"fmt"

	"github.com/kvisso/godlinear/pkg/detectors"
)

// seriesChannels validates that the series is non-empty and rectangular
// and returns its channel count.
func seriesChannels(series [][]float64) (int, error) {
	if len(series) == 0 {
		return 0, fmt.Errorf("%w: empty series", detectors.ErrConfiguration)
	}
	channels := len(series[0])
	if channels == 0 {
		return 0, fmt.Errorf("%w: series has no channels", detectors.ErrDimension)
	}
	for i := range series {
		if len(series[i]) != channels {
			return 0, fmt.Errorf("%w: ragged series, timestep %d has %d channels, expected %d",
				detectors.ErrDimension, i, len(series[i]), channels)
		}
	}
	return channels, nil
}

// slideWindows cuts the series into windows of the given length, taking
// one window every stride timesteps. Windows share backing rows with the
// series and must be treated as read-only.
func slideWindows(series [][]float64, length, stride int) ([][][]float64, error) {
	if len(series) < length {
		return nil, fmt.Errorf("%w: series length %d shorter than window length %d",
			detectors.ErrDimension, len(series), length)
	}
	var windows [][][]float64
	for start := 0; start+length <= len(series); start += stride {
		windows = append(windows, series[start:start+length])
	}
	return windows, nil
}

// tileStarts returns window start offsets that tile the series end to
// end: non-overlapping windows of the given length, plus a final window
// anchored at the tail when the length does not divide the series. Used
// to produce one score per timestep.
func tileStarts(seriesLen, windowLen int) []int {
	var starts []int
	for s := 0; s+windowLen <= seriesLen; s += windowLen {
		starts = append(starts, s)
	}
	if seriesLen%windowLen != 0 {
		starts = append(starts, seriesLen-windowLen)
	}
	return starts
}

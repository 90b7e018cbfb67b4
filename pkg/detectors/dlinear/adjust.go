package dlinear

// Adjuster converts raw above-threshold flags into final anomaly labels.
// Implementations must be deterministic and preserve the ordering and
// length of the input sequence.
type Adjuster interface {
	Adjust(labels []int, scores []float64, threshold float64) []int
}

// identityAdjuster returns the labels unchanged. Used when label
// adjustment is disabled.
type identityAdjuster struct{}

func (identityAdjuster) Adjust(labels []int, scores []float64, threshold float64) []int {
	out := make([]int, len(labels))
	copy(out, labels)
	return out
}

// defaultMaxGap is the largest run of normal points bridged by the
// default adjustment policy.
const defaultMaxGap = 2

// segmentAdjuster merges detected anomalous segments separated by short
// gaps, reducing fragmentation of contiguous anomaly regions.
type segmentAdjuster struct {
	maxGap int
}

func (a segmentAdjuster) Adjust(labels []int, scores []float64, threshold float64) []int {
	out := make([]int, len(labels))
	copy(out, labels)

	lastAnom := -1
	for i, l := range labels {
		if l != 1 {
			continue
		}
		if gap := i - lastAnom - 1; lastAnom >= 0 && gap > 0 && gap <= a.maxGap {
			for j := lastAnom + 1; j < i; j++ {
				out[j] = 1
			}
		}
		lastAnom = i
	}
	return out
}

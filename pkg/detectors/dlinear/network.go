package dlinear

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/kvisso/godlinear/pkg/detectors"
	"github.com/kvisso/godlinear/pkg/train"
)

// channelParams holds one pair of linear maps (seasonal and trend) with
// their gradient accumulators. With shared weights a single instance
// serves every channel; with individual weights each channel owns one.
type channelParams struct {
	seasonalW *mat.Dense
	trendW    *mat.Dense
	seasonalB *mat.VecDense
	trendB    *mat.VecDense

	seasonalWGrad *mat.Dense
	trendWGrad    *mat.Dense
	seasonalBGrad *mat.VecDense
	trendBGrad    *mat.VecDense
}

// network is the decomposition-linear predictor: independent linear
// projections of the seasonal and trend components, recombined by
// addition. Output length always equals input length.
type network struct {
	seqLen     int
	channels   int
	individual bool
	params     []*channelParams
}

// newNetwork builds a predictor for the given window length and channel
// count. Weights and biases are drawn uniformly from
// (-1/sqrt(seqLen), +1/sqrt(seqLen)) using the supplied rng.
func newNetwork(seqLen, channels int, individual bool, rng *rand.Rand) *network {
	count := 1
	if individual {
		count = channels
	}

	n := &network{
		seqLen:     seqLen,
		channels:   channels,
		individual: individual,
		params:     make([]*channelParams, count),
	}

	bound := 1 / math.Sqrt(float64(seqLen))
	for i := range n.params {
		n.params[i] = newChannelParams(seqLen, bound, rng)
	}
	return n
}

func newChannelParams(seqLen int, bound float64, rng *rand.Rand) *channelParams {
	uniform := func(n int) []float64 {
		data := make([]float64, n)
		for i := range data {
			data[i] = -bound + 2*bound*rng.Float64()
		}
		return data
	}

	return &channelParams{
		seasonalW:     mat.NewDense(seqLen, seqLen, uniform(seqLen*seqLen)),
		trendW:        mat.NewDense(seqLen, seqLen, uniform(seqLen*seqLen)),
		seasonalB:     mat.NewVecDense(seqLen, uniform(seqLen)),
		trendB:        mat.NewVecDense(seqLen, uniform(seqLen)),
		seasonalWGrad: mat.NewDense(seqLen, seqLen, nil),
		trendWGrad:    mat.NewDense(seqLen, seqLen, nil),
		seasonalBGrad: mat.NewVecDense(seqLen, nil),
		trendBGrad:    mat.NewVecDense(seqLen, nil),
	}
}

func (n *network) paramsFor(channel int) *channelParams {
	if n.individual {
		return n.params[channel]
	}
	return n.params[0]
}

func (n *network) checkShape(x [][]float64) error {
	if len(x) != n.seqLen {
		return fmt.Errorf("%w: window length %d, predictor expects %d",
			detectors.ErrDimension, len(x), n.seqLen)
	}
	for i := range x {
		if len(x[i]) != n.channels {
			return fmt.Errorf("%w: %d channels at timestep %d, predictor expects %d",
				detectors.ErrDimension, len(x[i]), i, n.channels)
		}
	}
	return nil
}

// Forward reconstructs a window from its decomposed components:
// out = Linear_Seasonal(seasonal) + Linear_Trend(trend), per channel.
func (n *network) Forward(seasonal, trend [][]float64) ([][]float64, error) {
	if err := n.checkShape(seasonal); err != nil {
		return nil, err
	}
	if err := n.checkShape(trend); err != nil {
		return nil, err
	}

	out := make([][]float64, n.seqLen)
	for i := range out {
		out[i] = make([]float64, n.channels)
	}

	s := mat.NewVecDense(n.seqLen, nil)
	t := mat.NewVecDense(n.seqLen, nil)
	ys := mat.NewVecDense(n.seqLen, nil)
	yt := mat.NewVecDense(n.seqLen, nil)

	for c := 0; c < n.channels; c++ {
		p := n.paramsFor(c)
		for i := 0; i < n.seqLen; i++ {
			s.SetVec(i, seasonal[i][c])
			t.SetVec(i, trend[i][c])
		}

		ys.MulVec(p.seasonalW, s)
		ys.AddVec(ys, p.seasonalB)
		yt.MulVec(p.trendW, t)
		yt.AddVec(yt, p.trendB)

		for i := 0; i < n.seqLen; i++ {
			out[i][c] = ys.AtVec(i) + yt.AtVec(i)
		}
	}
	return out, nil
}

// Backward accumulates gradients of the mean-squared reconstruction loss
// into the parameter gradient buffers. scale carries the loss derivative
// factor, 2 divided by the number of elements in the batch.
func (n *network) Backward(seasonal, trend, pred, truth [][]float64, scale float64) {
	s := mat.NewVecDense(n.seqLen, nil)
	t := mat.NewVecDense(n.seqLen, nil)
	dOut := mat.NewVecDense(n.seqLen, nil)

	for c := 0; c < n.channels; c++ {
		p := n.paramsFor(c)
		for i := 0; i < n.seqLen; i++ {
			s.SetVec(i, seasonal[i][c])
			t.SetVec(i, trend[i][c])
			dOut.SetVec(i, scale*(pred[i][c]-truth[i][c]))
		}

		p.seasonalWGrad.RankOne(p.seasonalWGrad, 1, dOut, s)
		p.trendWGrad.RankOne(p.trendWGrad, 1, dOut, t)
		p.seasonalBGrad.AddVec(p.seasonalBGrad, dOut)
		p.trendBGrad.AddVec(p.trendBGrad, dOut)
	}
}

// Params exposes the parameter tensors to an optimizer. Data and Grad
// alias the network's own storage.
func (n *network) Params() []*train.Param {
	out := make([]*train.Param, 0, 4*len(n.params))
	for i, p := range n.params {
		out = append(out,
			&train.Param{
				Name: n.paramName("linear_seasonal", i, "weight"),
				Data: p.seasonalW.RawMatrix().Data,
				Grad: p.seasonalWGrad.RawMatrix().Data,
			},
			&train.Param{
				Name: n.paramName("linear_seasonal", i, "bias"),
				Data: p.seasonalB.RawVector().Data,
				Grad: p.seasonalBGrad.RawVector().Data,
			},
			&train.Param{
				Name: n.paramName("linear_trend", i, "weight"),
				Data: p.trendW.RawMatrix().Data,
				Grad: p.trendWGrad.RawMatrix().Data,
			},
			&train.Param{
				Name: n.paramName("linear_trend", i, "bias"),
				Data: p.trendB.RawVector().Data,
				Grad: p.trendBGrad.RawVector().Data,
			},
		)
	}
	return out
}

// paramName mirrors the conventional state-dict naming: shared weights
// omit the channel index, per-channel weights include it.
func (n *network) paramName(prefix string, index int, kind string) string {
	if n.individual {
		return fmt.Sprintf("%s.%d.%s", prefix, index, kind)
	}
	return prefix + "." + kind
}

// StateDict returns a flat name-to-values copy of all parameters.
func (n *network) StateDict() map[string][]float64 {
	out := make(map[string][]float64)
	for _, p := range n.Params() {
		data := make([]float64, len(p.Data))
		copy(data, p.Data)
		out[p.Name] = data
	}
	return out
}

// InitWeight restores parameters by name from a pretrained mapping.
// Missing names and size mismatches are skipped with a warning; the
// count of successfully loaded parameters is returned.
func (n *network) InitWeight(pretrained map[string][]float64, logger *slog.Logger) int {
	params := n.Params()
	loaded := 0
	for _, p := range params {
		src, ok := pretrained[p.Name]
		if !ok {
			logger.Warn("parameter not in pretrained weights", "name", p.Name)
			continue
		}
		if len(src) != len(p.Data) {
			logger.Warn("skipping pretrained parameter with mismatched size",
				"name", p.Name, "pretrained", len(src), "actual", len(p.Data))
			continue
		}
		copy(p.Data, src)
		loaded++
	}
	logger.Info("pretrained parameters loaded", "loaded", loaded, "total", len(params))
	return loaded
}

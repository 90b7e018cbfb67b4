package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvisso/godlinear/pkg/detectors/dlinear"
)

type trainOptions struct {
	input    string
	valInput string
	output   string
	columns  []string
	noHeader bool

	window         int
	stride         int
	kernelSize     int
	individual     bool
	anomalyRatio   float64
	threshold      float64
	thresholdCoeff float64
	batchSize      int
	epochs         int
	patience       int
	learningRate   float64
	seed           int64
}

// NewTrainCommand returns the "train" command: fit a detector on a
// series and save the model.
func NewTrainCommand() *cobra.Command {
	opts := &trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a detector on a series and save the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(opts, cmd.Flags().Changed("threshold"))
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "training series (CSV or PCAP)")
	cmd.Flags().StringVar(&opts.valInput, "validation", "", "optional validation series for calibration")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "model.bin", "model output path")
	cmd.Flags().StringSliceVar(&opts.columns, "columns", nil, "CSV columns to use as channels")
	cmd.Flags().BoolVar(&opts.noHeader, "no-header", false, "CSV has no header row")

	cmd.Flags().IntVar(&opts.window, "window", 96, "loopback window length")
	cmd.Flags().IntVar(&opts.stride, "stride", 1, "sampling stride between training windows")
	cmd.Flags().IntVar(&opts.kernelSize, "kernel", 25, "moving-average kernel size (odd)")
	cmd.Flags().BoolVar(&opts.individual, "individual", false, "independent linear maps per channel")
	cmd.Flags().Float64Var(&opts.anomalyRatio, "anomaly-ratio", 1, "expected percentage of anomalous points")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "fixed threshold, skips calibration")
	cmd.Flags().Float64Var(&opts.thresholdCoeff, "threshold-coeff", 1, "multiplier on the calibrated threshold")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 32, "windows per optimizer step")
	cmd.Flags().IntVar(&opts.epochs, "epochs", 100, "maximum training epochs")
	cmd.Flags().IntVar(&opts.patience, "patience", 10, "epochs without improvement before stopping")
	cmd.Flags().Float64Var(&opts.learningRate, "lr", 1e-3, "learning rate")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "random seed")

	cobra.CheckErr(cmd.MarkFlagRequired("input"))

	return cmd
}

func runTrain(opts *trainOptions, explicitThreshold bool) error {
	series, err := readSeries(opts.input, opts.columns, opts.noHeader)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.input, err)
	}
	if err := validateSeries(series, opts.input); err != nil {
		return err
	}

	modelOpts := []dlinear.Option{
		dlinear.WithInChunkLen(opts.window),
		dlinear.WithSamplingStride(opts.stride),
		dlinear.WithKernelSize(opts.kernelSize),
		dlinear.WithIndividual(opts.individual),
		dlinear.WithAnomalyRatio(opts.anomalyRatio),
		dlinear.WithThresholdCoeff(opts.thresholdCoeff),
		dlinear.WithBatchSize(opts.batchSize),
		dlinear.WithMaxEpochs(opts.epochs),
		dlinear.WithPatience(opts.patience),
		dlinear.WithLearningRate(opts.learningRate),
		dlinear.WithSeed(opts.seed),
	}
	if explicitThreshold {
		modelOpts = append(modelOpts, dlinear.WithThreshold(opts.threshold))
	}

	detector, err := dlinear.New(modelOpts...)
	if err != nil {
		return err
	}

	slog.Info("fitting detector",
		"rows", len(series), "channels", len(series[0]), "window", opts.window)

	if opts.valInput != "" {
		valSeries, err := readSeries(opts.valInput, opts.columns, opts.noHeader)
		if err != nil {
			return fmt.Errorf("reading %s: %w", opts.valInput, err)
		}
		err = detector.FitWithValidation(series, valSeries)
		if err != nil {
			return err
		}
	} else if err := detector.Fit(series); err != nil {
		return err
	}

	data, err := detector.Save()
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}

	slog.Info("model saved", "path", opts.output, "threshold", detector.Threshold())
	return nil
}

// Package commands implements CLI command handlers for godlinear.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kvisso/godlinear/pkg/detectors"
	"github.com/kvisso/godlinear/pkg/detectors/dlinear"
	"github.com/kvisso/godlinear/pkg/io/csv"
	"github.com/kvisso/godlinear/pkg/io/pcap"
)

// SetupLogging installs a text slog handler at the requested level.
func SetupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// defaultRegistry lists the detectors the CLI can instantiate. Models
// are registered here explicitly, at startup.
func defaultRegistry() *detectors.Registry {
	r := detectors.NewRegistry()
	_ = r.Register("dlinear", func() (detectors.Detector, error) {
		return dlinear.New()
	})
	return r
}

// readSeries loads a multivariate series from a CSV file or a packet
// capture, chosen by file extension.
func readSeries(path string, columns []string, noHeader bool) ([][]float64, error) {
	switch filepath.Ext(path) {
	case ".pcap", ".pcapng":
		r, err := pcap.NewFileReader(path)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.Read()
	default:
		opts := []csv.Option{csv.WithHeader(!noHeader)}
		if len(columns) > 0 {
			opts = append(opts, csv.WithColumns(columns...))
		}
		r, err := csv.NewReader(path, opts...)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.Read()
	}
}

func validateSeries(series [][]float64, path string) error {
	if len(series) == 0 {
		return fmt.Errorf("no usable rows in %s", path)
	}
	return nil
}

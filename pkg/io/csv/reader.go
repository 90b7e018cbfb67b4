// Package csv reads multivariate time series from CSV files, one row
// per timestep and one column per channel.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Reader reads a series from a CSV file.
type Reader struct {
	file      *os.File
	reader    *csv.Reader
	hasHeader bool
	headers   []string
	columns   []string
	selected  []int
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates whether the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithColumns restricts reading to the named channels, in the given
// order. Requires a header row.
func WithColumns(names ...string) Option {
	return func(r *Reader) {
		r.columns = names
	}
}

// NewReader creates a new CSV series reader.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:      file,
		reader:    csv.NewReader(file),
		hasHeader: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	if len(r.columns) > 0 && !r.hasHeader {
		file.Close()
		return nil, errors.New("column selection requires a header row")
	}

	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			file.Close()
			return nil, err
		}
		r.headers = headers
	}

	if len(r.columns) > 0 {
		if err := r.resolveColumns(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return r, nil
}

func (r *Reader) resolveColumns() error {
	byName := make(map[string]int, len(r.headers))
	for i, h := range r.headers {
		byName[h] = i
	}

	r.selected = make([]int, len(r.columns))
	for i, name := range r.columns {
		idx, ok := byName[name]
		if !ok {
			return fmt.Errorf("column %q not found in header", name)
		}
		r.selected[i] = idx
	}
	return nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns the whole series as a 2D float slice.
func (r *Reader) Read() ([][]float64, error) {
	var series [][]float64

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row, err := r.parseRow(record)
		if err != nil {
			continue // Skip malformed rows
		}
		series = append(series, row)
	}

	return series, nil
}

// Stream returns a channel of timesteps for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	out := make(chan []float64, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				record, err := r.reader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					continue
				}

				row, err := r.parseRow(record)
				if err != nil {
					continue
				}

				select {
				case out <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// parseRow converts a CSV record into one timestep, applying the column
// selection when configured.
func (r *Reader) parseRow(record []string) ([]float64, error) {
	if len(record) == 0 {
		return nil, errors.New("empty row")
	}

	indices := r.selected
	if indices == nil {
		indices = make([]int, len(record))
		for i := range indices {
			indices[i] = i
		}
	}

	row := make([]float64, len(indices))
	for i, idx := range indices {
		if idx >= len(record) {
			return nil, fmt.Errorf("row has %d fields, need index %d", len(record), idx)
		}
		f, err := strconv.ParseFloat(record[idx], 64)
		if err != nil {
			return nil, err
		}
		row[i] = f
	}
	return row, nil
}

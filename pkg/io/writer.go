package io

import (
	"encoding/json"
	stdio "io"
)

// JSONWriter writes results as newline-delimited JSON.
type JSONWriter struct {
	enc    *json.Encoder
	closer stdio.Closer
}

// NewJSONWriter creates a writer emitting one JSON object per result.
// If w also implements io.Closer it is closed by Close.
func NewJSONWriter(w stdio.Writer) *JSONWriter {
	jw := &JSONWriter{enc: json.NewEncoder(w)}
	if c, ok := w.(stdio.Closer); ok {
		jw.closer = c
	}
	return jw
}

// Write outputs a single result.
func (w *JSONWriter) Write(result Result) error {
	return w.enc.Encode(result)
}

// WriteAll outputs multiple results.
func (w *JSONWriter) WriteAll(results []Result) error {
	for _, r := range results {
		if err := w.enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying writer if it is closable.
func (w *JSONWriter) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

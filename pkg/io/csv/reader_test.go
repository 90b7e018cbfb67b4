package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadWithHeader(t *testing.T) {
	path := writeTempCSV(t, "cpu,mem\n0.1,0.2\n0.3,0.4\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"cpu", "mem"}, r.Headers())

	series, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1, 0.2}, {0.3, 0.4}}, series)
}

func TestReadWithoutHeader(t *testing.T) {
	path := writeTempCSV(t, "1,2\n3,4\n")

	r, err := NewReader(path, WithHeader(false))
	require.NoError(t, err)
	defer r.Close()

	series, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, series, 2)
}

func TestReadSkipsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\nx,y\n3,4\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	series, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, series)
}

func TestColumnSelection(t *testing.T) {
	path := writeTempCSV(t, "ts,cpu,mem\n100,0.1,0.5\n101,0.2,0.6\n")

	r, err := NewReader(path, WithColumns("mem", "cpu"))
	require.NoError(t, err)
	defer r.Close()

	series, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0.1}, {0.6, 0.2}}, series)
}

func TestColumnSelectionErrors(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n")

	t.Run("unknown column", func(t *testing.T) {
		_, err := NewReader(path, WithColumns("missing"))
		assert.Error(t, err)
	})

	t.Run("selection without header", func(t *testing.T) {
		_, err := NewReader(path, WithHeader(false), WithColumns("a"))
		assert.Error(t, err)
	})
}

func TestStream(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,4\n5,6\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	ch, err := r.Stream(context.Background())
	require.NoError(t, err)

	var rows [][]float64
	for row := range ch {
		rows = append(rows, row)
	}
	assert.Len(t, rows, 3)
}

package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	Detector
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("stub", func() (Detector, error) {
		return stubDetector{}, nil
	}))

	t.Run("duplicate registration", func(t *testing.T) {
		err := r.Register("stub", func() (Detector, error) { return stubDetector{}, nil })
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("construct by name", func(t *testing.T) {
		d, err := r.New("stub")
		require.NoError(t, err)
		assert.NotNil(t, d)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.New("missing")
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("names sorted", func(t *testing.T) {
		require.NoError(t, r.Register("another", func() (Detector, error) {
			return stubDetector{}, nil
		}))
		assert.Equal(t, []string{"another", "stub"}, r.Names())
	})
}

package sensor_ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want Value
	}{
		{in: nil, want: nil},
		{in: true, want: true},
		{in: "open", want: "open"},
		{in: 1, want: float64(1)},
		{in: int64(-2), want: float64(-2)},
		{in: uint64(3), want: float64(3)},
		{in: float32(0.5), want: float64(0.5)},
		{in: json.Number("4"), want: float64(4)},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeRejectsContainers(t *testing.T) {
	t.Parallel()

	for _, in := range []any{map[string]any{"a": 1}, []any{1}, map[any]any{}} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalidValue)
	}
}

func TestNormalizedNumbersCompareEqual(t *testing.T) {
	t.Parallel()

	a, err := Normalize(1)
	require.NoError(t, err)
	b, err := Normalize(uint64(1))
	require.NoError(t, err)
	assert.True(t, a == b)
}

func TestNormalizeSetting(t *testing.T) {
	t.Parallel()

	v, err := NormalizeSetting("1")
	require.NoError(t, err)
	assert.Equal(t, float64(1), v)

	v, err = NormalizeSetting(" TRUE ")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = NormalizeSetting("open")
	require.NoError(t, err)
	assert.Equal(t, "open", v)

	v, err = NormalizeSetting(int64(1))
	require.NoError(t, err)
	assert.Equal(t, float64(1), v)
}

package panel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`"50000.0"`, 50000},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		var f flexInt
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f), tt.in)
		assert.Equal(t, tt.want, int64(f), tt.in)
	}
}

func TestFlexInt_RejectsNonFiniteAndOverflow(t *testing.T) {
	for _, in := range []string{`"NaN"`, `"Inf"`, `"-Inf"`, `"1e19"`, `"-1e19"`, `"9223372036854775808.0"`, `"abc"`} {
		var f flexInt
		assert.Error(t, json.Unmarshal([]byte(in), &f), in)
	}
}

func TestFlexFloat_RejectsNonFinite(t *testing.T) {
	var f flexFloat
	require.NoError(t, json.Unmarshal([]byte(`"1536.5"`), &f))
	assert.Equal(t, 1536.5, float64(f))

	for _, in := range []string{`"NaN"`, `"+Inf"`} {
		assert.Error(t, json.Unmarshal([]byte(in), &f), in)
	}
}

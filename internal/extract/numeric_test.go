package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	seps := DefaultLayout().RangeSeparators
	cases := []struct {
		name    string
		input   string
		want    float64
		raw     string
		wantErr error
	}{
		{name: "range", input: "3 - 5", want: 4.0},
		{name: "range with unit", input: "6 - 8.5 hours", want: 7.25},
		{name: "en dash range", input: "7–9 hours", want: 8.0},
		{name: "rounded mean", input: "1.333 - 2", want: 1.67},
		{name: "single", input: "3.5", want: 3.5},
		{name: "single with unit", input: "5 hours", want: 5},
		{name: "words", input: "three to five", raw: "three to five", wantErr: ErrMalformed},
		{name: "half range", input: "3 - lots", raw: "3 - lots", wantErr: ErrMalformed},
		{name: "nan", input: "NaN hours", raw: "NaN hours", wantErr: ErrMalformed},
		{name: "infinite range", input: "Inf - 5 hours", raw: "Inf - 5 hours", wantErr: ErrMalformed},
		{name: "empty", input: "  ", wantErr: ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := ParseDuration(tc.input, seps, 2)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr))
				text, _ := m.Text()
				assert.Equal(t, tc.raw, text)
				_, ok := m.Float()
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			v, ok := m.Float()
			require.True(t, ok)
			assert.InDelta(t, tc.want, v, 1e-9)
		})
	}
}

func TestParseDistance(t *testing.T) {
	t.Parallel()

	m, err := ParseDistance("17km / 10.5 miles")
	require.NoError(t, err)
	v, ok := m.Float()
	require.True(t, ok)
	assert.InDelta(t, 17.0, v, 1e-9)

	m, err = ParseDistance("about 12km")
	require.ErrorIs(t, err, ErrMalformed)
	text, ok := m.Text()
	require.True(t, ok)
	assert.Equal(t, "about 12km", text)

	for _, input := range []string{"Infinity km", "NaN km", "-Inf km"} {
		m, err = ParseDistance(input)
		require.ErrorIs(t, err, ErrMalformed, input)
		text, ok = m.Text()
		require.True(t, ok)
		assert.Equal(t, input, text)
	}

	m, err = ParseDistance("10 miles")
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, m.IsAbsent())
}

package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	cases := map[string]int64{
		"19.99": 1999,
		"10":    1000,
		"0":     0,
		" 5.5 ": 550,
		"0.01":  1,
	}
	for in, want := range cases {
		got, err := ParseCents(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseCentsRejects(t *testing.T) {
	_, err := ParseCents("")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseCents("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseCents("-1")
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ParseCents("1.999")
	assert.ErrorIs(t, err, ErrPrecision)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "19.99", Format(1999))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "45.00", Format(4500))
}

func TestParseCentsBounds(t *testing.T) {
	got, err := ParseCents("1000000000.00")
	require.NoError(t, err)
	assert.Equal(t, MaxCents, got)

	for _, in := range []string{"1000000000.01", "100000000000000000", "92233720368547758.08"} {
		got, err := ParseCents(in)
		assert.ErrorIs(t, err, ErrTooLarge, in)
		assert.Zero(t, got, in)
	}
}

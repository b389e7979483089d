package rate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticIdentity(t *testing.T) {
	p := NewStatic(nil)

	r, err := p.Rate(context.Background(), "USD", "usd")
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)
}

func TestStaticDirectAndInverse(t *testing.T) {
	p := NewStatic(map[string]float64{"SAT/MSAT": 1000})

	r, err := p.Rate(context.Background(), "SAT", "MSAT")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, r)

	r, err = p.Rate(context.Background(), "msat", "sat")
	require.NoError(t, err)
	assert.InDelta(t, 0.001, r, 1e-12)
}

func TestStaticUnsupported(t *testing.T) {
	p := NewStatic(map[string]float64{"SAT/MSAT": 1000})

	_, err := p.Rate(context.Background(), "USD", "MSAT")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStaticDropsMalformedEntries(t *testing.T) {
	p := NewStatic(map[string]float64{"bogus": 5, "USD/MSAT": -1})

	_, err := p.Rate(context.Background(), "USD", "MSAT")
	assert.ErrorIs(t, err, ErrUnsupported)
}

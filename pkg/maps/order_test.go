package maps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/assoc/pkg/maps"
)

type celsius float64

type point struct{ x, y int }

type word string

func (w *word) Compare(other *word) int {
	switch {
	case len(*w) != len(*other):
		return len(*w) - len(*other)
	case *w < *other:
		return -1
	case *w > *other:
		return 1
	default:
		return 0
	}
}

func TestOrderedAndReverse(t *testing.T) {
	t.Parallel()

	asc := maps.Ordered[int]()
	desc := maps.Reverse(asc)

	assert.Negative(t, asc(1, 2))
	assert.Positive(t, desc(1, 2))
	assert.Zero(t, desc(3, 3))
}

func TestNatural_Kinds(t *testing.T) {
	t.Parallel()

	temps, err := maps.Natural[celsius]()
	require.NoError(t, err)
	assert.Negative(t, temps(-4.5, 0))

	unsigned, err := maps.Natural[uint8]()
	require.NoError(t, err)
	assert.Positive(t, unsigned(200, 3))

	text, err := maps.Natural[string]()
	require.NoError(t, err)
	assert.Zero(t, text("go", "go"))

	_, err = maps.Natural[point]()
	require.ErrorIs(t, err, maps.ErrIncomparableKey)

	_, err = maps.Natural[[]byte]()
	require.ErrorIs(t, err, maps.ErrIncomparableKey)
}

func TestNatural_ComparableKeys(t *testing.T) {
	t.Parallel()

	byLength, err := maps.Natural[*word]()
	require.NoError(t, err)

	short, long := word("zz"), word("aaa")

	assert.Negative(t, byLength(&short, &long))
	assert.PanicsWithValue(t, maps.ErrNilKey, func() { byLength(nil, &long) })
}

func TestNatural_DynamicKeys(t *testing.T) {
	t.Parallel()

	dynamic, err := maps.Natural[any]()
	require.NoError(t, err)

	assert.Negative(t, dynamic(1, 2))
	assert.Positive(t, dynamic("b", "a"))
	assert.PanicsWithValue(t, maps.ErrNilKey, func() { dynamic(nil, 1) })
	assert.Panics(t, func() { dynamic(1, "a") })
	assert.Panics(t, func() { dynamic(point{}, point{}) })
}

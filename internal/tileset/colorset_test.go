package tileset_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/tileset"
)

func TestColorSet_SetTestPopcount(t *testing.T) {
	var cs tileset.ColorSet
	cs.Set(0)
	cs.Set(63)
	cs.Set(64)
	cs.Set(239)
	require.True(t, cs.Test(0))
	require.True(t, cs.Test(64))
	require.False(t, cs.Test(1))
	require.Equal(t, 4, cs.Popcount())
}

func TestColorSet_UnionIntersectSubset(t *testing.T) {
	var a, b tileset.ColorSet
	a.Set(1)
	a.Set(2)
	b.Set(2)
	b.Set(3)

	union := a.Union(b)
	require.Equal(t, 3, union.Popcount())

	inter := a.Intersect(b)
	require.Equal(t, 1, inter.Popcount())
	require.True(t, inter.Test(2))
	require.Equal(t, 1, a.IntersectCount(b))

	require.True(t, inter.Subset(a))
	require.True(t, inter.Subset(b))
	require.False(t, a.Subset(b))
}

func TestColorSet_EqualIsComponentWise(t *testing.T) {
	var a, b tileset.ColorSet
	a.Set(10)
	b.Set(10)
	require.True(t, a.Equal(b))
	b.Set(11)
	require.False(t, a.Equal(b))
}

package colorindex_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/colorindex"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/normalize"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

func indexedTileWithColors(index int, colors ...color.Rgba32) normalize.IndexedNormTile {
	pal := tileset.NewLocalPalette(color.RgbaToBgr(color.RgbaMagenta))
	for _, c := range colors {
		pal.Append(color.RgbaToBgr(c))
	}
	return normalize.IndexedNormTile{
		Index: index,
		Tile:  &tileset.NormalTile{Palette: pal},
	}
}

// distinctColorTiles builds n single-color tiles, each a distinct color
// once quantized to 5-bit-per-channel Bgr15 (RgbaToBgr discards the low 3
// bits of each channel), so the registry's color count is exactly n.
func distinctColorTiles(n int) []normalize.IndexedNormTile {
	tiles := make([]normalize.IndexedNormTile, n)
	for i := 0; i < n; i++ {
		r := byte((i % 32) * 8)
		g := byte(((i / 32) % 32) * 8)
		b := byte(((i / 1024) % 32) * 8)
		tiles[i] = indexedTileWithColors(i, color.Rgba32{Red: r, Green: g, Blue: b, Alpha: color.AlphaOpaque})
	}
	return tiles
}

func TestBuild_AssignsDenseIndexesInFirstSeenOrder(t *testing.T) {
	ctx := diag.NewContext()
	tiles := []normalize.IndexedNormTile{
		indexedTileWithColors(0, color.RgbaRed, color.RgbaGreen),
		indexedTileWithColors(1, color.RgbaGreen, color.RgbaBlue),
	}
	reg, err := colorindex.Build(ctx, tiles, nil, 16, "test")
	require.NoError(t, err)
	require.Equal(t, 3, len(reg.ColorToIndex))
	require.Equal(t, 0, ctx.ErrorCount())
}

func TestBuild_SeedsFromPrimaryRegistry(t *testing.T) {
	ctx := diag.NewContext()
	primary := &colorindex.Registry{
		ColorToIndex: map[color.Bgr15]int{color.RgbaToBgr(color.RgbaRed): 0},
		IndexToColor: map[int]color.Bgr15{0: color.RgbaToBgr(color.RgbaRed)},
	}
	tiles := []normalize.IndexedNormTile{
		indexedTileWithColors(0, color.RgbaRed, color.RgbaBlue),
	}
	reg, err := colorindex.Build(ctx, tiles, primary, 16, "test")
	require.NoError(t, err)
	require.Equal(t, 0, reg.ColorToIndex[color.RgbaToBgr(color.RgbaRed)])
	require.Equal(t, 1, reg.ColorToIndex[color.RgbaToBgr(color.RgbaBlue)])
}

func TestToColorSet_OneBitPerNonTransparentColor(t *testing.T) {
	ctx := diag.NewContext()
	tiles := []normalize.IndexedNormTile{
		indexedTileWithColors(0, color.RgbaRed, color.RgbaGreen),
	}
	reg, err := colorindex.Build(ctx, tiles, nil, 16, "test")
	require.NoError(t, err)
	cs := colorindex.ToColorSet(reg, &tiles[0].Tile.Palette)
	require.Equal(t, 2, cs.Popcount())
}

func TestMatchWithColorSets_DeduplicatesIdenticalSets(t *testing.T) {
	ctx := diag.NewContext()
	tiles := []normalize.IndexedNormTile{
		indexedTileWithColors(0, color.RgbaRed, color.RgbaGreen),
		indexedTileWithColors(1, color.RgbaGreen, color.RgbaRed),
		indexedTileWithColors(2, color.RgbaBlue),
	}
	reg, err := colorindex.Build(ctx, tiles, nil, 16, "test")
	require.NoError(t, err)
	indexedOut, uniqueSets := colorindex.MatchWithColorSets(reg, tiles)
	require.Len(t, indexedOut, 3)
	require.Len(t, uniqueSets, 2)
}

func TestGBAPaletteToColorSet_SetsOneBitPerNonTransparentColor(t *testing.T) {
	ctx := diag.NewContext()
	tiles := []normalize.IndexedNormTile{
		indexedTileWithColors(0, color.RgbaRed, color.RgbaGreen),
	}
	reg, err := colorindex.Build(ctx, tiles, nil, 16, "test")
	require.NoError(t, err)

	pal := tileset.GBAPalette{Size: 3}
	pal.Colors[1] = color.RgbaToBgr(color.RgbaRed)
	pal.Colors[2] = color.RgbaToBgr(color.RgbaGreen)

	cs := colorindex.GBAPaletteToColorSet(reg, pal)
	require.Equal(t, 2, cs.Popcount())
}

// TestBuild_TooManyUniqueColorsTotalIsFatal pins spec.md §4.4's
// too-many-unique-colors-total check: exceeding 15*maxPalettes distinct
// colors must return a Fatal error of kind FatalTooManyUniqueColorsTotal,
// not a Recoverable event (which is reserved for the distinct per-tile
// local-palette overflow normalize.go checks).
func TestBuild_TooManyUniqueColorsTotalIsFatal(t *testing.T) {
	ctx := diag.NewContext()
	// maxPalettes=1 allows 15 colors; ask for 16.
	tiles := distinctColorTiles(16)
	reg, err := colorindex.Build(ctx, tiles, nil, 1, "test")
	require.Nil(t, reg)
	require.Error(t, err)

	var fatal *diag.FatalError
	require.ErrorAs(t, err, &fatal)
	require.Equal(t, diag.FatalTooManyUniqueColorsTotal, fatal.Kind)
}

// TestBuild_SecondaryBudgetUsesCombinedPalettes pins the P1-vs-P1+P2
// distinction from spec.md §4.4: a secondary compile's color budget is
// checked against the combined primary+secondary palette count, so a
// registry that would overflow P1 alone must still succeed when the
// caller (a secondary compile) passes the larger NumPalettesTotal.
func TestBuild_SecondaryBudgetUsesCombinedPalettes(t *testing.T) {
	ctx := diag.NewContext()
	// 20 distinct colors: over the 15-color budget of a single palette
	// (P1=1) but within the 30-color budget of two combined (P1+P2=2).
	tiles := distinctColorTiles(20)

	_, err := colorindex.Build(ctx, tiles, nil, 1, "test")
	require.Error(t, err)

	reg, err := colorindex.Build(ctx, tiles, nil, 2, "test")
	require.NoError(t, err)
	require.Equal(t, 20, len(reg.ColorToIndex))
}

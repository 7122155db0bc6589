package bank_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/bank"
	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/colorindex"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

func TestNew_SeedsTransparentTileAtIndexZero(t *testing.T) {
	b := bank.New()
	require.Len(t, b.Tiles, 1)
	require.Equal(t, tileset.TransparentTile, b.Tiles[0])
	require.Equal(t, 0, b.TilePalette[0])
}

func TestInsert_DeduplicatesIdenticalTiles(t *testing.T) {
	b := bank.New()
	var tile tileset.GBATile
	tile.ColorIndexes[0] = 5

	idx1 := b.Insert(tile, 2)
	idx2 := b.Insert(tile, 2)
	require.Equal(t, idx1, idx2)
	require.Len(t, b.Tiles, 2) // transparent + this one
}

func TestMakeTile_RemapsLocalIndexesToPaletteSlots(t *testing.T) {
	transparentBgr := color.RgbaToBgr(color.RgbaMagenta)
	nt := &tileset.NormalTile{Palette: tileset.NewLocalPalette(transparentBgr)}
	redIdx := nt.Palette.Append(color.RgbaToBgr(color.RgbaRed))
	nt.PaletteIndexes[0] = redIdx

	pal := &tileset.GBAPalette{Size: 1}
	pal.Colors[0] = transparentBgr
	pal.Colors[1] = color.RgbaToBgr(color.RgbaGreen)
	pal.Colors[2] = color.RgbaToBgr(color.RgbaRed)
	pal.Size = 3

	gba, err := bank.MakeTile(nt, pal)
	require.NoError(t, err)
	require.Equal(t, uint8(2), gba.ColorIndexes[0])
}

func TestPaletteForColorSet_FindsContainingPalette(t *testing.T) {
	var small, big tileset.ColorSet
	small.Set(1)
	big.Set(1)
	big.Set(2)

	idx, ok := bank.PaletteForColorSet(small, []tileset.ColorSet{big})
	require.True(t, ok)
	require.Equal(t, 0, idx)
}

func TestBuild_AssignsStableIndexesAndDedupes(t *testing.T) {
	ctx := diag.NewContext()
	transparentBgr := color.RgbaToBgr(color.RgbaMagenta)

	makeNorm := func(c color.Rgba32) (*tileset.NormalTile, tileset.ColorSet) {
		nt := &tileset.NormalTile{Palette: tileset.NewLocalPalette(transparentBgr)}
		idx := nt.Palette.Append(color.RgbaToBgr(c))
		for i := range nt.PaletteIndexes {
			nt.PaletteIndexes[i] = idx
		}
		var cs tileset.ColorSet
		cs.Set(0)
		return nt, cs
	}

	nt1, cs1 := makeNorm(color.RgbaRed)
	nt2, cs2 := makeNorm(color.RgbaRed)

	indexed := []colorindex.IndexedTile{
		{Index: 0, Tile: nt1, ColorSet: cs1},
		{Index: 1, Tile: nt2, ColorSet: cs2},
	}

	solution := []tileset.ColorSet{cs1}
	pal := tileset.GBAPalette{Size: 2}
	pal.Colors[0] = transparentBgr
	pal.Colors[1] = color.RgbaToBgr(color.RgbaRed)
	palettes := []tileset.GBAPalette{pal}

	b, assignments, err := bank.Build(ctx, indexed, solution, palettes, nil, nil, 512, "test")
	require.NoError(t, err)
	require.Len(t, b.Tiles, 2) // transparent + one distinct real tile
	require.Equal(t, assignments[0].TileIndex, assignments[1].TileIndex)
}

func TestBuild_ResolvesTileAgainstReusedPrimaryPalette(t *testing.T) {
	ctx := diag.NewContext()
	transparentBgr := color.RgbaToBgr(color.RgbaMagenta)

	nt := &tileset.NormalTile{Palette: tileset.NewLocalPalette(transparentBgr)}
	idx := nt.Palette.Append(color.RgbaToBgr(color.RgbaRed))
	nt.PaletteIndexes[0] = idx
	var cs tileset.ColorSet
	cs.Set(0)

	indexed := []colorindex.IndexedTile{{Index: 0, Tile: nt, ColorSet: cs}}

	// No newly-assigned palette contains cs; it is only reused from the
	// paired primary tileset's own palette.
	primaryPal := tileset.GBAPalette{Size: 2}
	primaryPal.Colors[0] = transparentBgr
	primaryPal.Colors[1] = color.RgbaToBgr(color.RgbaRed)

	b, assignments, err := bank.Build(ctx, indexed, nil, nil, []tileset.ColorSet{cs}, []tileset.GBAPalette{primaryPal}, 512, "test")
	require.NoError(t, err)
	require.Equal(t, 0, assignments[0].PaletteIndex)
	require.Len(t, b.Tiles, 2)
}

func TestPad_GrowsPastTheTransparentSeedTile(t *testing.T) {
	b := bank.New()
	var tile tileset.GBATile
	tile.ColorIndexes[0] = 3
	b.Insert(tile, 0)
	require.Len(t, b.Tiles, 2)

	b.Pad(16)
	require.Len(t, b.Tiles, 16)
	require.Len(t, b.TilePalette, 16)
}

func TestBuild_FatalErrorWhenTileBudgetExceeded(t *testing.T) {
	ctx := diag.NewContext()
	transparentBgr := color.RgbaToBgr(color.RgbaMagenta)

	nt1 := &tileset.NormalTile{Palette: tileset.NewLocalPalette(transparentBgr)}
	idx := nt1.Palette.Append(color.RgbaToBgr(color.RgbaRed))
	nt1.PaletteIndexes[0] = idx
	var cs1 tileset.ColorSet
	cs1.Set(0)

	indexed := []colorindex.IndexedTile{{Index: 0, Tile: nt1, ColorSet: cs1}}
	solution := []tileset.ColorSet{cs1}
	pal := tileset.GBAPalette{Size: 2}
	pal.Colors[0] = transparentBgr
	pal.Colors[1] = color.RgbaToBgr(color.RgbaRed)

	_, _, err := bank.Build(ctx, indexed, solution, []tileset.GBAPalette{pal}, nil, nil, 1, "test")
	require.Error(t, err)
}

package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/colorindex"
	"github.com/aspiringporter/porytiles/internal/compiler"
	"github.com/aspiringporter/porytiles/internal/normalize"
	"github.com/aspiringporter/porytiles/internal/palette"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

func solidTile(c color.Rgba32) tileset.RawTile {
	var tile tileset.RawTile
	for i := range tile.Pixels {
		tile.Pixels[i] = c
	}
	return tile
}

// twoColorTile marks the top-left pixel distinctly from the rest, so its
// normalized palette-index pattern (and thus its deduplicated GBATile
// bitmap) is guaranteed to differ from any uniformly-solid tile, even
// though the GBA tile bank dedupes pixel patterns independently of which
// palette ends up applied to them.
func twoColorTile(corner, rest color.Rgba32) tileset.RawTile {
	var tile tileset.RawTile
	for i := range tile.Pixels {
		tile.Pixels[i] = rest
	}
	tile.Pixels[0] = corner
	return tile
}

func baseConfig() compiler.CompilerConfig {
	return compiler.CompilerConfig{
		TransparencyColor:   color.RgbaMagenta,
		AssignAlgorithm:     compiler.AlgorithmDepthFirst,
		ExploredNodeCutoff:  1_000_000,
		PruneMode:           palette.PruneNone,
		SmartPruneThreshold: palette.DefaultSmartPruneThreshold,
	}
}

func TestCompile_PrimaryOnlyDedupesAndAssignsPalettes(t *testing.T) {
	fieldmap := compiler.FieldmapConfig{
		NumTilesTotal:        64,
		NumMetatilesTotal:    1,
		NumPalettesInPrimary: 2,
		NumPalettesTotal:     2,
		NumTilesPerMetatile:  1,
	}

	decompiled := &normalize.Decompiled{
		Tiles: []tileset.RawTile{
			solidTile(color.RgbaRed),
			twoColorTile(color.RgbaGreen, color.RgbaRed),
			solidTile(color.RgbaRed), // duplicate of tile 0 after normalization
		},
	}

	out, err := compiler.Compile(fieldmap, baseConfig(), decompiled, nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Compiled)

	// Transparent seed + 2 distinct real tiles, padded to a multiple of 16.
	require.Len(t, out.Compiled.Tiles, 16)
	require.Len(t, out.Compiled.Assignments, 3)
	require.Equal(t, out.Compiled.Assignments[0].TileIndex, out.Compiled.Assignments[2].TileIndex)
	require.NotEqual(t, out.Compiled.Assignments[0].TileIndex, out.Compiled.Assignments[1].TileIndex)
	require.LessOrEqual(t, len(out.Compiled.Palettes), 2)
	require.Equal(t, 0, out.Ctx.ErrorCount())
}

func TestCompile_InvalidFieldmapConfigFailsFast(t *testing.T) {
	fieldmap := compiler.FieldmapConfig{
		NumTilesInPrimary: 100,
		NumTilesTotal:     50,
	}
	decompiled := &normalize.Decompiled{}

	_, err := compiler.Compile(fieldmap, baseConfig(), decompiled, nil, nil, nil)
	require.Error(t, err)
}

func TestCompile_SecondaryReusesPrimaryPaletteByContainment(t *testing.T) {
	redBgr := color.RgbaToBgr(color.RgbaRed)
	transparentBgr := color.RgbaToBgr(color.RgbaMagenta)

	var primaryRed tileset.ColorSet
	primaryRed.Set(0)

	primaryPal := tileset.GBAPalette{Size: 2}
	primaryPal.Colors[0] = transparentBgr
	primaryPal.Colors[1] = redBgr

	primary := &compiler.Primary{
		Registry: &colorindex.Registry{
			ColorToIndex: map[color.Bgr15]int{redBgr: 0},
			IndexToColor: map[int]color.Bgr15{0: redBgr},
		},
		Palettes:         []tileset.ColorSet{primaryRed},
		ConcretePalettes: []tileset.GBAPalette{primaryPal},
		TileIndex:        map[tileset.GBATile]int{},
		NumTilesBudget:   2,
	}

	fieldmap := compiler.FieldmapConfig{
		NumTilesInPrimary:    2,
		NumTilesTotal:        10,
		NumPalettesInPrimary: 1,
		NumPalettesTotal:     3,
	}

	decompiled := &normalize.Decompiled{
		Tiles: []tileset.RawTile{solidTile(color.RgbaRed)},
	}

	out, err := compiler.Compile(fieldmap, baseConfig(), decompiled, nil, nil, primary)
	require.NoError(t, err)
	require.Len(t, out.Compiled.Assignments, 1)

	// The tile's only color is entirely contained in the primary's own
	// palette, so it must resolve to palette index 0 (first in the
	// [primary..., assigned...] concatenation) rather than a freshly
	// assigned secondary palette.
	require.Equal(t, 0, out.Compiled.Assignments[0].PaletteIndex)
	// Its bank index is local to the secondary's own bank (1, after the
	// mandatory transparent tile at 0) offset by the primary's tile budget.
	require.Equal(t, primary.NumTilesBudget+1, out.Compiled.Assignments[0].TileIndex)
}

func TestCompile_AnimationKeyFrameProducesAnimAsset(t *testing.T) {
	fieldmap := compiler.FieldmapConfig{
		NumTilesTotal:        32,
		NumPalettesInPrimary: 1,
		NumPalettesTotal:     1,
	}

	keyTile := solidTile(color.RgbaBlue)
	frameTile := solidTile(color.RgbaBlue)

	decompiled := &normalize.Decompiled{
		Animations: []normalize.Animation{
			{
				Name: "water",
				Frames: []normalize.Frame{
					{Name: "key", Tiles: []tileset.RawTile{keyTile}},
					{Name: "f2", Tiles: []tileset.RawTile{frameTile}},
				},
			},
		},
	}

	out, err := compiler.Compile(fieldmap, baseConfig(), decompiled, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Compiled.Anims, 1)
	require.Equal(t, "water", out.Compiled.Anims[0].Name)
	require.Len(t, out.Compiled.Anims[0].KeyIndexes, 1)
	require.Len(t, out.Compiled.Anims[0].Frames, 1)
	require.Equal(t, "f2", out.Compiled.Anims[0].Frames[0].Name)
	require.Len(t, out.Compiled.Anims[0].Frames[0].Tiles, 1)
}

func TestOutput_AsPrimary_FeedsASecondaryCompileThatReusesItsPalette(t *testing.T) {
	fieldmap := compiler.FieldmapConfig{
		NumTilesInPrimary:    10,
		NumTilesTotal:        20,
		NumPalettesInPrimary: 1,
		NumPalettesTotal:     3,
	}

	primaryDecompiled := &normalize.Decompiled{
		Tiles: []tileset.RawTile{solidTile(color.RgbaRed)},
	}
	primaryOut, err := compiler.Compile(fieldmap, baseConfig(), primaryDecompiled, nil, nil, nil)
	require.NoError(t, err)

	primary := primaryOut.AsPrimary()
	require.Equal(t, len(primaryOut.Compiled.Tiles), primary.NumTilesBudget)

	secondaryDecompiled := &normalize.Decompiled{
		Tiles: []tileset.RawTile{solidTile(color.RgbaRed)}, // same color: should reuse primary's palette
	}
	secondaryOut, err := compiler.Compile(fieldmap, baseConfig(), secondaryDecompiled, nil, nil, primary)
	require.NoError(t, err)
	require.Equal(t, 0, secondaryOut.Compiled.Assignments[0].PaletteIndex)
	require.Equal(t, primary.NumTilesBudget+1, secondaryOut.Compiled.Assignments[0].TileIndex) // local index 1 (after the mandatory transparent tile at 0), offset by the primary's budget
}

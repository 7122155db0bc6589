package decompiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/decompiler"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

func soloTile(c color.Rgba32) tileset.RawTile {
	var tile tileset.RawTile
	for i := range tile.Pixels {
		tile.Pixels[i] = c
	}
	return tile
}

func TestExportLayered_DualLayerFillsMiddleWithTransparency(t *testing.T) {
	bottomTiles := make([]tileset.RawTile, 4)
	topTiles := make([]tileset.RawTile, 4)
	for i := range bottomTiles {
		bottomTiles[i] = soloTile(color.RgbaRed)
		topTiles[i] = soloTile(color.RgbaGreen)
	}
	tiles := append(append([]tileset.RawTile{}, bottomTiles...), topTiles...)

	bottom, middle, top, err := decompiler.ExportLayered(tiles, false, 1, color.RgbaMagenta)
	require.NoError(t, err)

	require.Equal(t, 16, bottom.Bounds().Dx())
	require.Equal(t, 16, bottom.Bounds().Dy())

	r, g, b, a := bottom.At(0, 0).RGBA()
	require.Equal(t, []uint32{uint32(color.RgbaRed.Red) * 0x101, uint32(color.RgbaRed.Green) * 0x101, uint32(color.RgbaRed.Blue) * 0x101, uint32(color.RgbaRed.Alpha) * 0x101}, []uint32{r, g, b, a})

	mr, mg, mb, ma := middle.At(0, 0).RGBA()
	require.Equal(t, []uint32{uint32(color.RgbaMagenta.Red) * 0x101, uint32(color.RgbaMagenta.Green) * 0x101, uint32(color.RgbaMagenta.Blue) * 0x101, uint32(color.RgbaMagenta.Alpha) * 0x101}, []uint32{mr, mg, mb, ma})

	tr, tg, tb, ta := top.At(0, 0).RGBA()
	require.Equal(t, []uint32{uint32(color.RgbaGreen.Red) * 0x101, uint32(color.RgbaGreen.Green) * 0x101, uint32(color.RgbaGreen.Blue) * 0x101, uint32(color.RgbaGreen.Alpha) * 0x101}, []uint32{tr, tg, tb, ta})
}

func TestExportLayered_TripleLayerWritesAllThreeLayers(t *testing.T) {
	tiles := make([]tileset.RawTile, 12)
	for i := 0; i < 4; i++ {
		tiles[i] = soloTile(color.RgbaRed)
	}
	for i := 4; i < 8; i++ {
		tiles[i] = soloTile(color.RgbaGreen)
	}
	for i := 8; i < 12; i++ {
		tiles[i] = soloTile(color.RgbaMagenta)
	}

	bottom, middle, top, err := decompiler.ExportLayered(tiles, true, 1, color.RgbaMagenta)
	require.NoError(t, err)

	br, _, _, _ := bottom.At(0, 0).RGBA()
	require.Equal(t, uint32(color.RgbaRed.Red)*0x101, br)
	mr, _, _, _ := middle.At(0, 0).RGBA()
	require.Equal(t, uint32(color.RgbaGreen.Red)*0x101, mr)
	tr, _, _, _ := top.At(0, 0).RGBA()
	require.Equal(t, uint32(color.RgbaMagenta.Red)*0x101, tr)
}

func TestExportLayered_RejectsMismatchedTileCount(t *testing.T) {
	_, _, _, err := decompiler.ExportLayered(make([]tileset.RawTile, 5), false, 1, color.RgbaMagenta)
	require.Error(t, err)
}

func TestExportLayered_RejectsNonPositiveWidth(t *testing.T) {
	_, _, _, err := decompiler.ExportLayered(make([]tileset.RawTile, 8), false, 0, color.RgbaMagenta)
	require.Error(t, err)
}

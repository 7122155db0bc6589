package tileset_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

func TestRawTile_GetSetPixel_BoundsChecked(t *testing.T) {
	var tile tileset.RawTile
	require.NoError(t, tile.SetPixel(3, 4, color.RgbaRed))
	got, err := tile.GetPixel(3, 4)
	require.NoError(t, err)
	require.Equal(t, color.RgbaRed, got)

	_, err = tile.GetPixel(8, 0)
	require.Error(t, err)
	require.Error(t, tile.SetPixel(-1, 0, color.RgbaRed))
}

func TestLocalPalette_AppendAndIndexOf(t *testing.T) {
	pal := tileset.NewLocalPalette(color.RgbaToBgr(color.RgbaMagenta))
	require.Equal(t, 1, pal.Size)
	require.Equal(t, -1, pal.IndexOf(color.RgbaToBgr(color.RgbaBlue)))

	idx := pal.Append(color.RgbaToBgr(color.RgbaBlue))
	require.Equal(t, 1, idx)
	require.Equal(t, 1, pal.IndexOf(color.RgbaToBgr(color.RgbaBlue)))
	require.Equal(t, 2, pal.Size)
}

func TestLocalPalette_FullAtSixteen(t *testing.T) {
	pal := tileset.NewLocalPalette(0)
	for i := 0; i < tileset.PalSize-1; i++ {
		require.False(t, pal.Full())
		pal.Append(color.Bgr15(i + 1))
	}
	require.True(t, pal.Full())
}

func TestNormalTile_Less_IsLexicographic(t *testing.T) {
	a := &tileset.NormalTile{}
	b := &tileset.NormalTile{}
	a.PaletteIndexes[5] = 1
	b.PaletteIndexes[5] = 2
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
}

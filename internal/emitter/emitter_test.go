package emitter_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/config"
	"github.com/aspiringporter/porytiles/internal/emitter"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

func TestWriteJASCPalette_WritesHeaderAndSixteenRows(t *testing.T) {
	pal := tileset.GBAPalette{Size: 3}
	pal.Colors[0] = color.RgbaToBgr(color.RgbaMagenta)
	pal.Colors[1] = color.RgbaToBgr(color.RgbaRed)
	pal.Colors[2] = color.RgbaToBgr(color.RgbaGreen)

	var buf bytes.Buffer
	require.NoError(t, emitter.WriteJASCPalette(&buf, pal))

	lines := strings.Split(buf.String(), "\n")
	// Strip a trailing blank entry left by the final separator's "\n" half.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	require.Equal(t, 19, len(lines)) // 3 header + 16 color rows
	require.Equal(t, "JASC-PAL", strings.TrimRight(lines[0], "\r"))
	require.Equal(t, "0100", strings.TrimRight(lines[1], "\r"))
	require.Equal(t, "16", strings.TrimRight(lines[2], "\r"))
	require.Equal(t, "248 0 248", strings.TrimRight(lines[3], "\r"))
	require.Equal(t, "248 0 0", strings.TrimRight(lines[4], "\r"))
	require.Equal(t, "0 248 0", strings.TrimRight(lines[5], "\r"))
	require.Equal(t, "0 0 0", strings.TrimRight(lines[6], "\r")) // unused slot
}

func TestWriteMetatileEntries_PacksBitsPerSpec(t *testing.T) {
	assignments := []tileset.Assignment{
		{TileIndex: 5, PaletteIndex: 2, HFlip: true, VFlip: false},
	}
	var buf bytes.Buffer
	require.NoError(t, emitter.WriteMetatileEntries(&buf, assignments))

	want := uint16(5) | (1 << 10) | (2 << 12)
	got := uint16(buf.Bytes()[0]) | uint16(buf.Bytes()[1])<<8
	require.Equal(t, want, got)
}

func TestWriteMetatileAttributes_RubyEmeraldTwoBytes(t *testing.T) {
	attrs := []tileset.Attributes{{Behavior: 0x12, LayerType: 3}}
	var buf bytes.Buffer
	require.NoError(t, emitter.WriteMetatileAttributes(&buf, attrs, config.AttributesRubyEmerald))
	require.Len(t, buf.Bytes(), 2)

	want := uint16(0x12) | (3 << 12)
	got := uint16(buf.Bytes()[0]) | uint16(buf.Bytes()[1])<<8
	require.Equal(t, want, got)
}

func TestWriteMetatileAttributes_FireredFourBytes(t *testing.T) {
	attrs := []tileset.Attributes{{Behavior: 0x101, TerrainType: 5, EncounterType: 2, LayerType: 1}}
	var buf bytes.Buffer
	require.NoError(t, emitter.WriteMetatileAttributes(&buf, attrs, config.AttributesFirered))
	require.Len(t, buf.Bytes(), 4)

	want := uint32(0x101) | (uint32(5) << 9) | (uint32(2) << 24) | (uint32(1) << 29)
	b := buf.Bytes()
	got := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	require.Equal(t, want, got)
}

func TestTileBankImage_ProducesCorrectlySizedPaletted(t *testing.T) {
	bank := []tileset.GBATile{{}, {}, {}}
	tilePalette := []int{0, 0, 0}
	pal := tileset.GBAPalette{Size: 1}
	pal.Colors[0] = color.RgbaToBgr(color.RgbaMagenta)

	img, err := emitter.TileBankImage(bank, tilePalette, []tileset.GBAPalette{pal}, 2)
	require.NoError(t, err)
	require.Equal(t, 16, img.Bounds().Dx()) // 2 tiles per row * 8px
	require.Equal(t, 16, img.Bounds().Dy()) // 2 rows (ceil(3/2)) * 8px
}

func TestTileBankImage_RejectsNonPositiveTilesPerRow(t *testing.T) {
	_, err := emitter.TileBankImage(nil, nil, nil, 0)
	require.Error(t, err)
}

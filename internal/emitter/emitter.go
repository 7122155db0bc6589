// Package emitter writes the compiler's persisted-state formats: the
// deduplicated tile bank as an indexed PNG, palettes as JASC-PAL text,
// and metatile entries/attributes as little-endian binary records
// (spec.md §6, bit-exact), grounded on
// original_source/1.0.0/src/emitter.cpp's emitGBAPalette and spec.md §6's
// persisted-state definitions. The compile pipeline never reads these
// formats back; decode.go in this package reads each of them back for the
// decompile subcommands.
package emitter

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	stdcolor "image/color"
	"io"
	"runtime"

	"golang.org/x/image/draw"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/config"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// paletteFileLineEnding is spec.md §6/§9's deliberately inverted
// convention: sources emit CRLF on non-Windows and LF on Windows. This
// preserves original_source's exact output bytes for compatibility with
// existing Porymap installs; flagged here since it inverts the usual
// rule.
func paletteFileLineEnding() string {
	if runtime.GOOS == "windows" {
		return "\n"
	}
	return "\r\n"
}

// WriteJASCPalette writes pal in JASC-PAL textual format: header lines
// "JASC-PAL", "0100", "16", then 16 "R G B" lines (unused slots beyond
// pal.Size are zero-filled), each separated by paletteFileLineEnding.
func WriteJASCPalette(w io.Writer, pal tileset.GBAPalette) error {
	eol := paletteFileLineEnding()
	bw := bufio.NewWriter(w)

	lines := []string{"JASC-PAL", "0100", "16"}
	for i := 0; i < tileset.PalSize; i++ {
		var c color.Rgba32
		if i < pal.Size {
			c = color.BgrToRgba(pal.Colors[i])
		}
		lines = append(lines, c.Jasc())
	}
	for _, line := range lines {
		if _, err := bw.WriteString(line + eol); err != nil {
			return fmt.Errorf("writing JASC-PAL line: %w", err)
		}
	}
	return bw.Flush()
}

// metatileEntryBytes returns the 2-byte little-endian metatile entry,
// spec.md §6: (tile_index & 0x3FF) | ((hflip&1)<<10) | ((vflip&1)<<11) |
// ((palette_index&0xF)<<12).
func metatileEntryBytes(a tileset.Assignment) [2]byte {
	var v uint16
	v |= uint16(a.TileIndex) & 0x3FF
	if a.HFlip {
		v |= 1 << 10
	}
	if a.VFlip {
		v |= 1 << 11
	}
	v |= (uint16(a.PaletteIndex) & 0xF) << 12

	var out [2]byte
	binary.LittleEndian.PutUint16(out[:], v)
	return out
}

// WriteMetatileEntries writes one 2-byte little-endian entry per
// assignment, in order.
func WriteMetatileEntries(w io.Writer, assignments []tileset.Assignment) error {
	bw := bufio.NewWriter(w)
	for _, a := range assignments {
		b := metatileEntryBytes(a)
		if _, err := bw.Write(b[:]); err != nil {
			return fmt.Errorf("writing metatile entry: %w", err)
		}
	}
	return bw.Flush()
}

// attributeBytesRubyEmerald packs the 2-byte Ruby/Emerald attribute
// record: (behavior & 0xFF) | ((layer_type & 0xF) << 12).
func attributeBytesRubyEmerald(a tileset.Attributes) [2]byte {
	v := uint16(a.Behavior&0xFF) | (uint16(a.LayerType&0xF) << 12)
	var out [2]byte
	binary.LittleEndian.PutUint16(out[:], v)
	return out
}

// attributeBytesFirered packs the 4-byte Firered attribute record:
// (behavior & 0x1FF) | ((terrain & 0x1F) << 9) | ((encounter & 0x7) <<
// 24) | ((layer & 0x3) << 29).
func attributeBytesFirered(a tileset.Attributes) [4]byte {
	v := uint32(a.Behavior&0x1FF) |
		(uint32(a.TerrainType&0x1F) << 9) |
		(uint32(a.EncounterType&0x7) << 24) |
		(uint32(a.LayerType&0x3) << 29)
	var out [4]byte
	binary.LittleEndian.PutUint32(out[:], v)
	return out
}

// WriteMetatileAttributes writes one attribute record per entry, sized
// and packed per format (2 bytes for Ruby/Emerald, 4 for Firered).
func WriteMetatileAttributes(w io.Writer, attrs []tileset.Attributes, format config.AttributesFormat) error {
	bw := bufio.NewWriter(w)
	for _, a := range attrs {
		switch format {
		case config.AttributesFirered:
			b := attributeBytesFirered(a)
			if _, err := bw.Write(b[:]); err != nil {
				return fmt.Errorf("writing metatile attribute: %w", err)
			}
		default:
			b := attributeBytesRubyEmerald(a)
			if _, err := bw.Write(b[:]); err != nil {
				return fmt.Errorf("writing metatile attribute: %w", err)
			}
		}
	}
	return bw.Flush()
}

// TileBankImage composites the deduplicated tile bank into a single
// indexed-color PNG image, tiles laid out left-to-right then
// top-to-bottom in a row tilesPerRow wide, each tile rendered against
// its own assigned hardware palette. golang.org/x/image/draw does the
// per-tile blit so the composite isn't a hand-rolled nested pixel loop.
func TileBankImage(bank []tileset.GBATile, tilePalette []int, palettes []tileset.GBAPalette, tilesPerRow int) (*image.Paletted, error) {
	if tilesPerRow <= 0 {
		return nil, fmt.Errorf("tilesPerRow must be positive")
	}
	rows := (len(bank) + tilesPerRow - 1) / tilesPerRow

	// A flat global palette covers every hardware palette's colors,
	// indexed in [paletteIndex*PalSize + slot] order so each tile's
	// original GBATile slot values still address the right color after
	// compositing onto one shared-palette image.
	globalPalette := make(stdcolor.Palette, 0, len(palettes)*tileset.PalSize)
	for _, pal := range palettes {
		for i := 0; i < tileset.PalSize; i++ {
			var c color.Rgba32
			if i < pal.Size {
				c = color.BgrToRgba(pal.Colors[i])
			}
			globalPalette = append(globalPalette, stdcolor.NRGBA{R: c.Red, G: c.Green, B: c.Blue, A: c.Alpha})
		}
	}

	dst := image.NewPaletted(image.Rect(0, 0, tilesPerRow*tileset.TileSideLength, rows*tileset.TileSideLength), globalPalette)

	for idx, tile := range bank {
		row, col := idx/tilesPerRow, idx%tilesPerRow
		paletteBase := tilePalette[idx] * tileset.PalSize

		src := image.NewPaletted(image.Rect(0, 0, tileset.TileSideLength, tileset.TileSideLength), globalPalette)
		for i, localIdx := range tile.ColorIndexes {
			src.SetColorIndex(i%tileset.TileSideLength, i/tileset.TileSideLength, uint8(paletteBase+int(localIdx)))
		}

		destRect := image.Rect(col*tileset.TileSideLength, row*tileset.TileSideLength, (col+1)*tileset.TileSideLength, (row+1)*tileset.TileSideLength)
		draw.Draw(dst, destRect, src, image.Point{}, draw.Src)
	}

	return dst, nil
}

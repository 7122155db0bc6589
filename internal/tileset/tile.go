// Package tileset defines the fixed-size value types the compilation
// pipeline operates over: raw RGBA input tiles, local and hardware
// palettes, normalized tiles, paletted GBA tiles, and the CompiledTileset
// the pipeline ultimately produces. See spec.md §3.
package tileset

import (
	"fmt"

	"github.com/aspiringporter/porytiles/internal/color"
)

// TileSideLength and TileNumPix describe the fixed 8x8 tile grid spec.md
// §3/GLOSSARY define.
const (
	TileSideLength = 8
	TileNumPix     = TileSideLength * TileSideLength
	PalSize        = 16 // slots per hardware palette, including transparency
)

// Provenance identifies where a RawTile came from, for diagnostics only
// (spec.md §3: "used solely for diagnostics").
type Provenance struct {
	Freestanding bool
	Index        int

	Metatile int
	Layer    int
	Subtile  int

	Animation string
	Frame     string
}

func (p Provenance) String() string {
	if p.Freestanding {
		return fmt.Sprintf("tile %d", p.Index)
	}
	if p.Animation != "" {
		return fmt.Sprintf("animation %q frame %q tile %d", p.Animation, p.Frame, p.Index)
	}
	return fmt.Sprintf("metatile %d layer %d subtile %d", p.Metatile, p.Layer, p.Subtile)
}

// RawTile is a fixed 8x8 grid of RGBA pixels plus provenance metadata.
type RawTile struct {
	Pixels     [TileNumPix]color.Rgba32
	Provenance Provenance
}

// GetPixel returns the pixel at (row, col), bounds-checked like the
// teacher's PSXTile.GetPixel (pkg/common/tiles.go).
func (t *RawTile) GetPixel(row, col int) (color.Rgba32, error) {
	if row < 0 || row >= TileSideLength || col < 0 || col >= TileSideLength {
		return color.Rgba32{}, fmt.Errorf("pixel coordinates (%d, %d) out of bounds", row, col)
	}
	return t.Pixels[row*TileSideLength+col], nil
}

// SetPixel sets the pixel at (row, col), bounds-checked.
func (t *RawTile) SetPixel(row, col int, v color.Rgba32) error {
	if row < 0 || row >= TileSideLength || col < 0 || col >= TileSideLength {
		return fmt.Errorf("pixel coordinates (%d, %d) out of bounds", row, col)
	}
	t.Pixels[row*TileSideLength+col] = v
	return nil
}

// LocalPalette is an ordered sequence of up to PalSize Bgr15 colors. Slot
// 0 is reserved for the transparency color; Size counts occupied slots
// including slot 0.
type LocalPalette struct {
	Colors [PalSize]color.Bgr15
	Size   int
}

// NewLocalPalette creates an empty local palette seeded with the
// transparency color at slot 0.
func NewLocalPalette(transparency color.Bgr15) LocalPalette {
	p := LocalPalette{Size: 1}
	p.Colors[0] = transparency
	return p
}

// IndexOf returns the slot holding c among slots [1, Size), or -1.
func (p *LocalPalette) IndexOf(c color.Bgr15) int {
	for i := 1; i < p.Size; i++ {
		if p.Colors[i] == c {
			return i
		}
	}
	return -1
}

// Full reports whether the palette has used all PalSize slots.
func (p *LocalPalette) Full() bool {
	return p.Size == PalSize
}

// Append adds c as a new slot, returning its index. Callers must check
// Full() first.
func (p *LocalPalette) Append(c color.Bgr15) int {
	idx := p.Size
	p.Colors[idx] = c
	p.Size++
	return idx
}

// NormalTile is a tile reduced to its canonical flip orientation: a
// 64-entry array of palette-slot indices into Palette, plus the two flip
// booleans that record which orientation of the original tile this is.
type NormalTile struct {
	PaletteIndexes [TileNumPix]int
	Palette        LocalPalette
	HFlip, VFlip   bool

	// Frames holds the parallel palette-index arrays of non-key animation
	// frames sharing this tile's Palette (spec.md §3: "Multi-frame
	// animations yield a NormalTile whose palette is shared across frames").
	Frames [][TileNumPix]int

	Provenance Provenance
}

// Transparent reports whether this tile's palette contains only the
// transparency color (palette size == 1), the short-circuit condition
// spec.md §4.3 names for Normalize.
func (t *NormalTile) Transparent() bool {
	return t.Palette.Size == 1
}

// Less implements the lexicographic-minimum ordering over the
// PaletteIndexes array that spec.md §4.3/§8 (property 2) define as the
// normal-form selection criterion.
func (t *NormalTile) Less(other *NormalTile) bool {
	for i := 0; i < TileNumPix; i++ {
		if t.PaletteIndexes[i] != other.PaletteIndexes[i] {
			return t.PaletteIndexes[i] < other.PaletteIndexes[i]
		}
	}
	return false
}

// GBATile is a tile of resolved 0..15 hardware palette indices, the final
// paletted form stored in the tile bank.
type GBATile struct {
	ColorIndexes [TileNumPix]uint8
}

// TransparentTile is the sentinel used to seed the tile bank's index 0
// (spec.md §3 invariant: "Every tile in the bank at index 0 is fully
// transparent, using palette 0.").
var TransparentTile = GBATile{}

// Package bank builds the final tile bank: it deduplicates GBATiles
// produced from each normalized tile against its assigned palette, seeds
// a mandatory transparent tile at index 0, and records one Assignment
// per input tile position (spec.md §4.7).
package bank

import (
	"fmt"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/colorindex"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// MakeTile re-maps a NormalTile's palette-local color indexes onto
// palette's slot positions, producing the GBATile that actually gets
// written to the tile bank (spec.md §4.7).
func MakeTile(nt *tileset.NormalTile, palette *tileset.GBAPalette) (tileset.GBATile, error) {
	var slotOf [tileset.PalSize]uint8
	for i := 1; i < nt.Palette.Size; i++ {
		c := nt.Palette.Colors[i]
		found := -1
		for slot := 1; slot < palette.Size; slot++ {
			if palette.Colors[slot] == c {
				found = slot
				break
			}
		}
		if found < 0 {
			return tileset.GBATile{}, fmt.Errorf("color %s not present in assigned palette", c)
		}
		slotOf[i] = uint8(found)
	}

	var gba tileset.GBATile
	for i, localIdx := range nt.PaletteIndexes {
		gba.ColorIndexes[i] = slotOf[localIdx]
	}
	return gba, nil
}

// Bank is the accumulating tile bank, keyed so identical GBATiles (same
// color indexes, regardless of which input position produced them) are
// only stored once.
type Bank struct {
	Tiles       []tileset.GBATile
	TilePalette []int
	index       map[tileset.GBATile]int
}

// New seeds a fresh Bank with the mandatory all-zero transparent tile at
// index 0, matching GBA_TILE_TRANSPARENT in the reference compiler.
func New() *Bank {
	b := &Bank{index: make(map[tileset.GBATile]int)}
	b.Tiles = append(b.Tiles, tileset.TransparentTile)
	b.TilePalette = append(b.TilePalette, 0)
	b.index[tileset.TransparentTile] = 0
	return b
}

// Insert adds tile to the bank if not already present (by value), under
// the given palette index, and returns its final bank index either way.
func (b *Bank) Insert(tile tileset.GBATile, paletteIndex int) int {
	if idx, ok := b.index[tile]; ok {
		return idx
	}
	idx := len(b.Tiles)
	b.Tiles = append(b.Tiles, tile)
	b.TilePalette = append(b.TilePalette, paletteIndex)
	b.index[tile] = idx
	return idx
}

// Pad grows the bank with filler transparent tiles, bypassing the
// by-value dedup Insert performs, until its length is a multiple of
// multiple (spec.md §4.7: "the final tile bank is padded to a multiple
// of 16 entries"). Insert itself cannot be reused here: the filler tiles
// are value-identical to the transparent tile already at index 0, so
// Insert would just return that same index forever without growing the
// bank.
func (b *Bank) Pad(multiple int) {
	for len(b.Tiles)%multiple != 0 {
		b.Tiles = append(b.Tiles, tileset.GBATile{})
		b.TilePalette = append(b.TilePalette, 0)
	}
}

// PaletteForColorSet finds which of the assigned solution palettes fully
// contains colorSet, i.e. the palette this tile's colors were assigned
// into (spec.md §4.6/§4.7).
func PaletteForColorSet(colorSet tileset.ColorSet, solution []tileset.ColorSet) (int, bool) {
	for i, p := range solution {
		if colorSet.Subset(p) {
			return i, true
		}
	}
	return -1, false
}

// BuildPalettes converts the assigner's abstract ColorSet solution into
// concrete GBAPalettes with real Bgr15 colors, slot 0 always the
// transparency color (spec.md §4.6).
func BuildPalettes(solution []tileset.ColorSet, reg *colorindex.Registry, transparency color.Rgba32) []tileset.GBAPalette {
	out := make([]tileset.GBAPalette, len(solution))
	transparentBgr := color.RgbaToBgr(transparency)
	for i, cs := range solution {
		pal := tileset.GBAPalette{Size: 1}
		pal.Colors[0] = transparentBgr
		for idx := 0; idx < tileset.MaxPalettes*tileset.PalSize; idx++ {
			if !cs.Test(idx) {
				continue
			}
			c, ok := reg.IndexToColor[idx]
			if !ok {
				panic(diag.NewInternalError("solution references unregistered color index %d", idx))
			}
			pal.Colors[pal.Size] = c
			pal.Size++
		}
		out[i] = pal
	}
	return out
}

// Build assembles the final tile list, per-tile palette assignment, and
// per-input-position Assignment records from the indexed, ColorSet-
// tagged normalized tiles and the finalized GBAPalettes. maxTiles bounds
// how large the bank may grow before reporting a fatal tile-budget
// overrun (spec.md §4.7). primaryPalettes/primaryConcretePalettes are a
// paired primary tileset's own palettes, abstract and concrete, so a
// secondary tile whose colors are entirely contained in a primary
// palette (reused rather than freshly assigned) still resolves to a
// real palette for MakeTile's remapping (spec.md §4.8's primary-then-
// assigned concatenation, applied here because MakeTile needs the
// concrete palette immediately, not just the later metatile-entry
// lookup). Both slices are nil for a primary or standalone compile.
func Build(ctx *diag.Context, indexed []colorindex.IndexedTile, solution []tileset.ColorSet, palettes []tileset.GBAPalette, primaryPalettes []tileset.ColorSet, primaryConcretePalettes []tileset.GBAPalette, maxTiles int, location string) (*Bank, []tileset.Assignment, error) {
	bank := New()
	assignments := make([]tileset.Assignment, len(indexed))

	allSets := append(append([]tileset.ColorSet(nil), primaryPalettes...), solution...)
	allPalettes := append(append([]tileset.GBAPalette(nil), primaryConcretePalettes...), palettes...)

	for _, it := range indexed {
		paletteIdx, ok := PaletteForColorSet(it.ColorSet, allSets)
		if !ok {
			return nil, nil, fmt.Errorf("%s: tile's ColorSet matched no assigned palette (internal error)", location)
		}

		gba, err := MakeTile(it.Tile, &allPalettes[paletteIdx])
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", location, err)
		}

		tileIdx := bank.Insert(gba, paletteIdx)
		if len(bank.Tiles) > maxTiles {
			return nil, nil, diag.NewFatalError(diag.FatalTooManyTiles, "%s: tile bank holds %d tiles, exceeding the budget of %d", location, len(bank.Tiles), maxTiles)
		}

		assignments[it.Index] = tileset.Assignment{
			TileIndex:    tileIdx,
			PaletteIndex: paletteIdx,
			HFlip:        it.Tile.HFlip,
			VFlip:        it.Tile.VFlip,
		}
	}

	return bank, assignments, nil
}

// Package metatile builds per-subtile metatile entries: for each
// regular normalized tile, find which palette (from the primary-then-
// assigned concatenation) contains its ColorSet and emit a reference to
// the tile bank plus orientation flips and behavioral attributes
// (spec.md §4.8).
package metatile

import (
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// Entry is one subtile's metatile record (spec.md §3's "per-metatile
// entries that reference a tile, a palette, two orientation flips, and
// behavioral attributes").
type Entry struct {
	TileIndex    int
	PaletteIndex int
	HFlip, VFlip bool
	Attributes   tileset.Attributes
}

// FindPalette locates the first palette in the concatenation
// [primaryPalettes, assignedPalettes] whose bits fully contain
// colorSet, returning its index into that concatenation.
func FindPalette(colorSet tileset.ColorSet, primaryPalettes, assignedPalettes []tileset.ColorSet) (int, bool) {
	for i, p := range primaryPalettes {
		if colorSet.Subset(p) {
			return i, true
		}
	}
	for i, p := range assignedPalettes {
		if colorSet.Subset(p) {
			return len(primaryPalettes) + i, true
		}
	}
	return -1, false
}

// BuildEntries emits one Entry per (tileIndex, colorSet, hFlip, vFlip)
// triple at its original input position, offsetting tileIndex by
// tileIndexOffset (spec.md §4.8: "secondary-bank tile indices are
// offset by the primary tile budget"). attrs supplies behavioral
// attributes per metatile index; absent indices get the zero value.
func BuildEntries(
	positions []int,
	tileIndexes []int,
	colorSets []tileset.ColorSet,
	hFlips, vFlips []bool,
	tileIndexOffset int,
	primaryPalettes, assignedPalettes []tileset.ColorSet,
	attrs map[int]tileset.Attributes,
	location string,
) ([]Entry, error) {
	entries := make([]Entry, len(positions))
	for i, pos := range positions {
		paletteIdx, ok := FindPalette(colorSets[i], primaryPalettes, assignedPalettes)
		if !ok {
			return nil, diag.NewInternalError("%s: tile at position %d matched no palette by containment", location, pos)
		}
		entries[i] = Entry{
			TileIndex:    tileIndexes[i] + tileIndexOffset,
			PaletteIndex: paletteIdx,
			HFlip:        hFlips[i],
			VFlip:        vFlips[i],
			Attributes:   attrs[pos],
		}
	}
	return entries, nil
}

// ExpandAttributesMap turns a per-metatile AttributesMap (spec.md §6: keyed
// by metatile index) into the per-position map BuildEntries' attrs
// parameter expects, by repeating each metatile's entry across every one
// of its tilesPerMetatile subtile positions.
func ExpandAttributesMap(byMetatile map[int]tileset.Attributes, tilesPerMetatile, numPositions int) map[int]tileset.Attributes {
	expanded := make(map[int]tileset.Attributes, numPositions)
	for pos := 0; pos < numPositions; pos++ {
		metatileIndex := pos / tilesPerMetatile
		if a, ok := byMetatile[metatileIndex]; ok {
			expanded[pos] = a
		}
	}
	return expanded
}

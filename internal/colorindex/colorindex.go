// Package colorindex builds the dense global color-index registry that
// the palette assigner's ColorSet bitsets are indexed against (spec.md
// §4.5), and converts per-tile palettes into ColorSets against that
// registry.
package colorindex

import (
	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/normalize"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// Registry maps every unique non-transparent color seen across a
// tileset's normalized tiles to a dense index, and back.
type Registry struct {
	ColorToIndex map[color.Bgr15]int
	IndexToColor map[int]color.Bgr15
}

// Build constructs a Registry from normalizedTiles, optionally seeded
// from a paired primary tileset's own registry (primary may be nil for
// a standalone or primary compile). Colors inherited from primary keep
// their original index, so a secondary tileset's ColorSets remain valid
// against the primary's hardware palettes (spec.md §4.8).
//
// maxPalettes is the total hardware-palette budget the registry's color
// count is checked against: NumPalettesInPrimary for a primary/standalone
// compile, NumPalettesTotal for a secondary compile (spec.md §4.4 — a
// secondary may introduce new colors within the combined P1+P2 budget,
// not just P1 alone). Exceeding 15*maxPalettes distinct colors is fatal
// (spec.md §4.4 "too-many-unique-colors-total"), not recoverable: there
// is no way to assign palettes to tiles that need more distinct colors
// than hardware slots exist, so the caller cannot continue.
func Build(ctx *diag.Context, normalizedTiles []normalize.IndexedNormTile, primary *Registry, maxPalettes int, location string) (*Registry, error) {
	reg := &Registry{
		ColorToIndex: make(map[color.Bgr15]int),
		IndexToColor: make(map[int]color.Bgr15),
	}

	nextIndex := 0
	if primary != nil {
		for c, idx := range primary.ColorToIndex {
			reg.ColorToIndex[c] = idx
			reg.IndexToColor[idx] = c
		}
		nextIndex = len(primary.ColorToIndex)
	}

	for _, indexed := range normalizedTiles {
		pal := indexed.Tile.Palette
		// slot 0 is always transparency; real colors start at 1.
		for i := 1; i < pal.Size; i++ {
			c := pal.Colors[i]
			if _, exists := reg.ColorToIndex[c]; exists {
				continue
			}
			reg.ColorToIndex[c] = nextIndex
			reg.IndexToColor[nextIndex] = c
			nextIndex++
		}
	}

	maxColors := (tileset.PalSize - 1) * maxPalettes
	if nextIndex > maxColors {
		return nil, diag.NewFatalError(diag.FatalTooManyUniqueColorsTotal,
			"%s: too many unique colors across tileset: %d (max %d)", location, nextIndex, maxColors)
	}

	return reg, nil
}

// ToColorSet converts a LocalPalette into a ColorSet against reg, one
// bit per non-transparent color (spec.md §4.5).
func ToColorSet(reg *Registry, palette *tileset.LocalPalette) tileset.ColorSet {
	var cs tileset.ColorSet
	for i := 1; i < palette.Size; i++ {
		idx, ok := reg.ColorToIndex[palette.Colors[i]]
		if !ok {
			panic(diag.NewInternalError("color %s missing from registry", palette.Colors[i]))
		}
		cs.Set(idx)
	}
	return cs
}

// GBAPaletteToColorSet converts a finalized hardware palette back into
// the abstract ColorSet a subsequent secondary compile's assigner needs
// to test containment against (compiler.Primary.Palettes), the same bit
// assignment ToColorSet produces for a LocalPalette.
func GBAPaletteToColorSet(reg *Registry, pal tileset.GBAPalette) tileset.ColorSet {
	var cs tileset.ColorSet
	for i := 1; i < pal.Size; i++ {
		if idx, ok := reg.ColorToIndex[pal.Colors[i]]; ok {
			cs.Set(idx)
		}
	}
	return cs
}

// IndexedTile pairs a normalized tile with its decompiled-order index
// and precomputed ColorSet.
type IndexedTile struct {
	Index         int
	Tile          *tileset.NormalTile
	Animated      bool
	AnimationName string
	ColorSet      tileset.ColorSet
}

// MatchWithColorSets computes a ColorSet for every normalized tile and
// returns the deduplicated set of distinct ColorSets observed, in first-
// seen order, alongside the indexed tiles annotated with their set
// (spec.md §4.5). The deduplicated list is what palette assignment
// actually searches over: many tiles can share one ColorSet.
func MatchWithColorSets(reg *Registry, normalizedTiles []normalize.IndexedNormTile) ([]IndexedTile, []tileset.ColorSet) {
	seen := make(map[tileset.ColorSet]bool)
	var uniqueSets []tileset.ColorSet
	out := make([]IndexedTile, 0, len(normalizedTiles))

	for _, indexed := range normalizedTiles {
		cs := ToColorSet(reg, &indexed.Tile.Palette)
		out = append(out, IndexedTile{
			Index:         indexed.Index,
			Tile:          indexed.Tile,
			Animated:      indexed.Animated,
			AnimationName: indexed.AnimationName,
			ColorSet:      cs,
		})
		if !seen[cs] {
			seen[cs] = true
			uniqueSets = append(uniqueSets, cs)
		}
	}

	return out, uniqueSets
}

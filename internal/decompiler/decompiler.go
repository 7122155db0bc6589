// Package decompiler reconstructs a layered RGBA tilesheet from a
// CompiledTileset's tile bank, palettes, and per-position assignments —
// the inverse of internal/bank + internal/metatile. Grounded on
// original_source/Porytiles-1.X.X/lib/src/decompiler.cpp's decompile/
// setDecompTileFields.
package decompiler

import (
	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/normalize"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// Mode selects whether a compiled tileset is being decompiled standalone
// (Primary) or alongside its paired primary's own tiles/palettes
// (Secondary), mirroring compiler.Primary's role during compilation.
type Mode int

const (
	ModePrimary Mode = iota
	ModeSecondary
)

// PairedPrimary is the subset of a paired primary's CompiledTileset the
// decompiler needs to resolve a secondary's low tile indexes.
type PairedPrimary struct {
	Tiles    []tileset.GBATile
	Palettes []tileset.GBAPalette
}

// setTilePixels renders one GBATile through palette into a RawTile,
// applying the stored flips and substituting transparency for slot 0
// (original_source's setTilePixels).
func setTilePixels(tile tileset.GBATile, palette *tileset.GBAPalette, hFlip, vFlip bool, transparency color.Rgba32) tileset.RawTile {
	var out tileset.RawTile
	for row := 0; row < tileset.TileSideLength; row++ {
		for col := 0; col < tileset.TileSideLength; col++ {
			srcRow, srcCol := row, col
			if vFlip {
				srcRow = tileset.TileSideLength - 1 - row
			}
			if hFlip {
				srcCol = tileset.TileSideLength - 1 - col
			}
			slot := tile.ColorIndexes[srcRow*tileset.TileSideLength+srcCol]
			var rgba color.Rgba32
			if slot == 0 {
				rgba = transparency
			} else {
				rgba = color.BgrToRgba(palette.Colors[slot])
			}
			out.Pixels[row*tileset.TileSideLength+col] = rgba
		}
	}
	return out
}

// resolveTile picks tiles/palettes from either compiled or primary
// depending on tileIndex/paletteIndex's validity and, in secondary mode,
// which side of numTilesInPrimary tileIndex falls on. Out-of-range
// indexes — which can occur on corrupted or hand-edited metatile
// entries, per original_source's comment about vanilla garbage entries
// hidden behind another layer — fall back to tile 0 / palette 0 and emit
// a warning rather than failing the whole decompile.
func resolveTile(ctx *diag.Context, mode Mode, compiledTiles []tileset.GBATile, compiledPalettes []tileset.GBAPalette, primary *PairedPrimary, numTilesInPrimary, numPalettesTotal int, a tileset.Assignment, transparency color.Rgba32, location string) tileset.RawTile {
	tiles, palettes := compiledTiles, compiledPalettes
	tileIndex := a.TileIndex
	if mode == ModeSecondary && primary != nil {
		if tileIndex < numTilesInPrimary {
			tiles, palettes = primary.Tiles, primary.Palettes
		} else {
			tileIndex -= numTilesInPrimary
		}
	}

	tileOutOfRange := tileIndex < 0 || tileIndex >= len(tiles)
	paletteOutOfRange := a.PaletteIndex < 0 || a.PaletteIndex >= numPalettesTotal || a.PaletteIndex >= len(palettes)

	if tileOutOfRange || paletteOutOfRange {
		if tileOutOfRange {
			ctx.Warn(diag.WarnTileIndexOutOfRange, location, "tile index %d out of range (bank holds %d tiles)", tileIndex, len(tiles))
		}
		if paletteOutOfRange {
			ctx.Warn(diag.WarnPaletteIndexOutOfRange, location, "palette index %d out of range (%d palettes total)", a.PaletteIndex, numPalettesTotal)
		}
		fallbackTiles := tiles
		if mode == ModeSecondary && primary != nil {
			fallbackTiles = primary.Tiles
		}
		if len(fallbackTiles) == 0 || len(palettes) == 0 {
			return tileset.RawTile{}
		}
		return setTilePixels(fallbackTiles[0], &palettes[0], a.HFlip, a.VFlip, transparency)
	}

	return setTilePixels(tiles[tileIndex], &palettes[a.PaletteIndex], a.HFlip, a.VFlip, transparency)
}

// Decompile reconstructs an ordered RawTile sequence, one per
// compiled.Assignments entry, in the same order the original importer
// produced them (so emitting it back through internal/importer's layered
// slicing order reproduces the original layered PNG layout, modulo any
// dual-layer inference). tilesPerMetatile is 8 for dual-layer and 12 for
// triple-layer (spec.md §3's Provenance is diagnostics-only, but its
// Metatile/Subtile split must still match the layer mode actually used).
func Decompile(ctx *diag.Context, mode Mode, compiled *tileset.CompiledTileset, primary *PairedPrimary, numTilesInPrimary, numPalettesTotal, tilesPerMetatile int, transparency color.Rgba32, location string) *normalize.Decompiled {
	out := &normalize.Decompiled{Tiles: make([]tileset.RawTile, len(compiled.Assignments))}
	for i, a := range compiled.Assignments {
		tile := resolveTile(ctx, mode, compiled.Tiles, compiled.Palettes, primary, numTilesInPrimary, numPalettesTotal, a, transparency, location)
		tile.Provenance = tileset.Provenance{Metatile: i / tilesPerMetatile, Subtile: i % tilesPerMetatile}
		out.Tiles[i] = tile
	}
	return out
}

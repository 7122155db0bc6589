package decompiler

import (
	"fmt"
	"image"
	stdcolor "image/color"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

func errInvalidExportLayout(numTiles, tilesPerMetatile, widthInMetatiles int) error {
	return fmt.Errorf("cannot lay out %d decompiled tiles as whole metatiles of %d subtiles across a width of %d metatiles", numTiles, tilesPerMetatile, widthInMetatiles)
}

const (
	metatileSideLength   = 16
	metatileTilesPerSide = metatileSideLength / tileset.TileSideLength
	subtilesPerLayer     = metatileTilesPerSide * metatileTilesPerSide
)

// writeGroup blits one 2x2 subtile group into img at the metatile
// position (metaRow, metaCol), in the same row-major within-metatile
// order internal/importer.layerTiles reads them.
func writeGroup(img *image.NRGBA, group []tileset.RawTile, metaRow, metaCol int) {
	for t, tile := range group {
		tileRow, tileCol := t/metatileTilesPerSide, t%metatileTilesPerSide
		originX := (metaCol*metatileTilesPerSide + tileCol) * tileset.TileSideLength
		originY := (metaRow*metatileTilesPerSide + tileRow) * tileset.TileSideLength
		for row := 0; row < tileset.TileSideLength; row++ {
			for col := 0; col < tileset.TileSideLength; col++ {
				px := tile.Pixels[row*tileset.TileSideLength+col]
				img.Set(originX+col, originY+row, stdcolor.NRGBA{R: px.Red, G: px.Green, B: px.Blue, A: px.Alpha})
			}
		}
	}
}

// fillGroup paints one 2x2 subtile block solid transparency, used for a
// dual-layer metatile's reconstructed middle layer.
func fillGroup(img *image.NRGBA, metaRow, metaCol int, transparency color.Rgba32) {
	c := stdcolor.NRGBA{R: transparency.Red, G: transparency.Green, B: transparency.Blue, A: transparency.Alpha}
	originX := metaCol * metatileSideLength
	originY := metaRow * metatileSideLength
	for row := 0; row < metatileSideLength; row++ {
		for col := 0; col < metatileSideLength; col++ {
			img.Set(originX+col, originY+row, c)
		}
	}
}

// ExportLayered is the decompile-side inverse of
// internal/importer.ImportLayered: given Decompile's flat, per-position
// RawTile sequence (one metatile's worth of subtiles at a time, bottom
// subtiles then middle then top, the same order ImportLayered produced
// them in) it rebuilds the three layer images a layered source tree
// stores.
//
// Which physical layer (bottom/middle/top) a dual-layer metatile
// originally dropped isn't recoverable from a compiled tileset — the
// dual-layer inference only runs at import time and its result is
// discarded once compiled — so every dual-layer metatile is
// reconstructed as bottom+top, with middle written solid transparency.
func ExportLayered(tiles []tileset.RawTile, tripleLayer bool, widthInMetatiles int, transparency color.Rgba32) (bottom, middle, top *image.NRGBA, err error) {
	tilesPerMetatile := 8
	if tripleLayer {
		tilesPerMetatile = 12
	}
	if widthInMetatiles <= 0 || len(tiles)%tilesPerMetatile != 0 {
		return nil, nil, nil, errInvalidExportLayout(len(tiles), tilesPerMetatile, widthInMetatiles)
	}
	numMetatiles := len(tiles) / tilesPerMetatile
	heightInMetatiles := (numMetatiles + widthInMetatiles - 1) / widthInMetatiles

	rect := image.Rect(0, 0, widthInMetatiles*metatileSideLength, heightInMetatiles*metatileSideLength)
	bottom = image.NewNRGBA(rect)
	middle = image.NewNRGBA(rect)
	top = image.NewNRGBA(rect)

	for m := 0; m < numMetatiles; m++ {
		metaRow, metaCol := m/widthInMetatiles, m%widthInMetatiles
		base := m * tilesPerMetatile

		if tripleLayer {
			writeGroup(bottom, tiles[base:base+subtilesPerLayer], metaRow, metaCol)
			writeGroup(middle, tiles[base+subtilesPerLayer:base+2*subtilesPerLayer], metaRow, metaCol)
			writeGroup(top, tiles[base+2*subtilesPerLayer:base+3*subtilesPerLayer], metaRow, metaCol)
			continue
		}

		writeGroup(bottom, tiles[base:base+subtilesPerLayer], metaRow, metaCol)
		fillGroup(middle, metaRow, metaCol, transparency)
		writeGroup(top, tiles[base+subtilesPerLayer:base+2*subtilesPerLayer], metaRow, metaCol)
	}

	return bottom, middle, top, nil
}

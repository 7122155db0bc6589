// Package importer decodes the on-disk PNG tilesheets and attributes CSV
// into the pipeline's DecompiledTileset and AttributesMap inputs
// (spec.md §6), grounded on original_source/src/importer.cpp's
// importRawTilesFromPng/importLayeredTilesFromPngs tile-slicing order.
package importer

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/png"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/aspiringporter/porytiles/internal/behaviors"
	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/normalize"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// metatileSideLength is the pixel width/height of one 16x16 metatile;
// metatileTilesPerSide is how many 8x8 tiles make up one side of it.
const (
	metatileSideLength   = 16
	metatileTilesPerSide = metatileSideLength / tileset.TileSideLength
)

// DecodePNG reads a PNG image, used for every tilesheet input (bottom,
// middle, top, freestanding, and animation frame PNGs alike).
func DecodePNG(r io.Reader) (image.Image, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding PNG: %w", err)
	}
	return img, nil
}

// cropTile extracts the 8x8 pixel block at (tileRow, tileCol) from img,
// converting each pixel to Rgba32, via imaging.Crop rather than hand
// walking image.Image's Bounds/At (the same crop-then-read approach
// other_examples/manifests/randomouscrap98-ardugotools uses to carve up
// a spritesheet).
func cropTile(img image.Image, tileRow, tileCol int) tileset.RawTile {
	rect := image.Rect(
		tileCol*tileset.TileSideLength, tileRow*tileset.TileSideLength,
		(tileCol+1)*tileset.TileSideLength, (tileRow+1)*tileset.TileSideLength,
	)
	cropped := imaging.Crop(img, rect)

	var tile tileset.RawTile
	for row := 0; row < tileset.TileSideLength; row++ {
		for col := 0; col < tileset.TileSideLength; col++ {
			r, g, b, a := cropped.At(col, row).RGBA()
			tile.Pixels[row*tileset.TileSideLength+col] = color.Rgba32{
				Red: uint8(r >> 8), Green: uint8(g >> 8), Blue: uint8(b >> 8), Alpha: uint8(a >> 8),
			}
		}
	}
	return tile
}

// ImportFreestanding slices img tile-wise, left-to-right top-to-bottom,
// into an unlayered DecompiledTileset — the compile-raw path's input
// (original_source/src/importer.cpp's importRawTilesFromPng; the
// compile-raw subcommand itself is grounded on
// original_source/src/tscreate.cpp).
func ImportFreestanding(img image.Image) (*normalize.Decompiled, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width%tileset.TileSideLength != 0 {
		return nil, fmt.Errorf("input PNG width %d is not divisible by %d", width, tileset.TileSideLength)
	}
	if height%tileset.TileSideLength != 0 {
		return nil, fmt.Errorf("input PNG height %d is not divisible by %d", height, tileset.TileSideLength)
	}

	widthInTiles := width / tileset.TileSideLength
	heightInTiles := height / tileset.TileSideLength

	decompiled := &normalize.Decompiled{}
	for i := 0; i < widthInTiles*heightInTiles; i++ {
		row, col := i/widthInTiles, i%widthInTiles
		tile := cropTile(img, row, col)
		tile.Provenance = tileset.Provenance{Freestanding: true, Index: i}
		decompiled.Tiles = append(decompiled.Tiles, tile)
	}
	return decompiled, nil
}

// ImportAnimationFrame slices one animation frame PNG tile-wise,
// left-to-right top-to-bottom, the same grid order ImportFreestanding
// uses, tagging each tile's provenance with animation and frame name
// instead of a freestanding index (spec.md §4.9's per-frame tile
// sequence, parallel to the key frame's tiles at the same positions).
func ImportAnimationFrame(img image.Image, animationName, frameName string) ([]tileset.RawTile, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width%tileset.TileSideLength != 0 || height%tileset.TileSideLength != 0 {
		return nil, fmt.Errorf("animation %q frame %q: PNG dimensions must be divisible by %d", animationName, frameName, tileset.TileSideLength)
	}

	widthInTiles := width / tileset.TileSideLength
	heightInTiles := height / tileset.TileSideLength

	tiles := make([]tileset.RawTile, widthInTiles*heightInTiles)
	for i := range tiles {
		row, col := i/widthInTiles, i%widthInTiles
		tile := cropTile(img, row, col)
		tile.Provenance = tileset.Provenance{Animation: animationName, Frame: frameName, Index: i}
		tiles[i] = tile
	}
	return tiles, nil
}

// layerTiles slices one layer PNG into its per-metatile 2x2 tile groups,
// in metatile row-major, then within-metatile row-major order.
func layerTiles(img image.Image, widthInMetatiles, heightInMetatiles int) [][]tileset.RawTile {
	groups := make([][]tileset.RawTile, widthInMetatiles*heightInMetatiles)
	for m := 0; m < widthInMetatiles*heightInMetatiles; m++ {
		metaRow, metaCol := m/widthInMetatiles, m%widthInMetatiles
		group := make([]tileset.RawTile, metatileTilesPerSide*metatileTilesPerSide)
		for t := 0; t < len(group); t++ {
			tileRow, tileCol := t/metatileTilesPerSide, t%metatileTilesPerSide
			group[t] = cropTile(img,
				metaRow*metatileTilesPerSide+tileRow,
				metaCol*metatileTilesPerSide+tileCol,
			)
		}
		groups[m] = group
	}
	return groups
}

// layerAllTransparent reports whether every pixel of every tile in group
// is the transparency color, the test dual-layer inference uses to
// decide which of bottom/middle/top to drop for a given metatile
// (original_source/src/errors_warnings.cpp's
// error_allThreeLayersHadNonTransparentContent names the failure case).
func layerAllTransparent(group []tileset.RawTile, transparency color.Rgba32) bool {
	for _, tile := range group {
		for _, px := range tile.Pixels {
			if px != transparency && !px.IsTransparent() {
				return false
			}
		}
	}
	return true
}

// ImportLayered slices the three layer PNGs into an ordered
// DecompiledTileset, one metatile at a time. In triple-layer mode every
// metatile contributes bottom+middle+top (12 subtiles); in dual-layer
// mode exactly one of the three must be entirely transparent per
// metatile, and it's dropped, leaving 8 subtiles — a metatile where none
// or more than one layer is transparent cannot be inferred and is
// reported as a recoverable error (spec.md §4's dual-layer toggle,
// original_source's dual-layer inference).
func ImportLayered(ctx *diag.Context, bottom, middle, top image.Image, tripleLayer bool, transparency color.Rgba32, location string) (*normalize.Decompiled, error) {
	bb, mb, tb := bottom.Bounds(), middle.Bounds(), top.Bounds()
	if bb.Dx() != mb.Dx() || bb.Dx() != tb.Dx() || bb.Dy() != mb.Dy() || bb.Dy() != tb.Dy() {
		return nil, fmt.Errorf("%s: bottom, middle, top layer PNG dimensions must match", location)
	}
	if bb.Dx()%metatileSideLength != 0 || bb.Dy()%metatileSideLength != 0 {
		return nil, fmt.Errorf("%s: layer PNG dimensions must be divisible by %d", location, metatileSideLength)
	}

	widthInMetatiles := bb.Dx() / metatileSideLength
	heightInMetatiles := bb.Dy() / metatileSideLength

	bottomGroups := layerTiles(bottom, widthInMetatiles, heightInMetatiles)
	middleGroups := layerTiles(middle, widthInMetatiles, heightInMetatiles)
	topGroups := layerTiles(top, widthInMetatiles, heightInMetatiles)

	decompiled := &normalize.Decompiled{}
	for m := range bottomGroups {
		layers := [][]tileset.RawTile{bottomGroups[m], middleGroups[m], topGroups[m]}
		layerNames := []int{0, 1, 2}

		if !tripleLayer {
			transparentCount := 0
			keep := layers
			keepNames := layerNames
			for i, group := range layers {
				if layerAllTransparent(group, transparency) {
					transparentCount++
					keep = append(append([][]tileset.RawTile(nil), layers[:i]...), layers[i+1:]...)
					keepNames = append(append([]int(nil), layerNames[:i]...), layerNames[i+1:]...)
				}
			}
			if transparentCount != 1 {
				ctx.Recoverable(diag.RecoverableDualLayerInferenceFailed, location,
					"dual-layer inference failed for metatile %d, expected exactly one fully-transparent layer but found %d", m, transparentCount)
				continue
			}
			layers, layerNames = keep, keepNames
		}

		for li, group := range layers {
			for ti, tile := range group {
				tile.Provenance = tileset.Provenance{Metatile: m, Layer: layerNames[li], Subtile: ti}
				decompiled.Tiles = append(decompiled.Tiles, tile)
			}
		}
	}

	return decompiled, nil
}

// ImportAttributesCSV parses a header + data-row CSV of
// "id,behavior,terrain_type,encounter_type,layer_type" into an
// AttributesMap keyed by metatile id, resolving the behavior column's
// symbolic name against behaviorTable (nil accepted: behaviors are then
// left at 0, with a missing-behaviors-header warning left to the
// caller). Malformed rows accumulate as recoverable errors rather than
// aborting the whole file, matching spec.md §7's "accumulate, check at
// phase boundary" propagation policy.
func ImportAttributesCSV(ctx *diag.Context, r io.Reader, behaviorTable behaviors.Table, location string) (map[int]tileset.Attributes, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return map[int]tileset.Attributes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", location, err)
	}
	wantHeader := []string{"id", "behavior", "terrain_type", "encounter_type", "layer_type"}
	if len(header) != len(wantHeader) {
		return nil, fmt.Errorf("%s: incorrect header row format", location)
	}
	for i, col := range wantHeader {
		if strings.TrimSpace(header[i]) != col {
			return nil, fmt.Errorf("%s: incorrect header row format", location)
		}
	}

	out := make(map[int]tileset.Attributes)
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			ctx.Recoverable(diag.RecoverableInvalidCsvRowFormat, location, "on line %d: %v", line, err)
			continue
		}
		if len(record) != len(wantHeader) {
			ctx.Recoverable(diag.RecoverableInvalidCsvRowFormat, location, "on line %d: provided columns did not match header", line)
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			ctx.Recoverable(diag.RecoverableInvalidCsvRowFormat, location, "on line %d: invalid id %q", line, record[0])
			continue
		}

		var attrs tileset.Attributes
		behaviorName := strings.TrimSpace(record[1])
		if behaviorTable != nil {
			id16, ok := behaviorTable.Lookup(behaviorName)
			if !ok {
				ctx.Recoverable(diag.RecoverableUnknownMetatileBehavior, location, "on line %d: unknown metatile behavior %q", line, behaviorName)
				continue
			}
			attrs.Behavior = id16
		}

		terrain, err := strconv.ParseUint(strings.TrimSpace(record[2]), 0, 8)
		if err != nil {
			ctx.Recoverable(diag.RecoverableInvalidCsvRowFormat, location, "on line %d: invalid terrain_type %q", line, record[2])
			continue
		}
		attrs.TerrainType = uint8(terrain)

		encounter, err := strconv.ParseUint(strings.TrimSpace(record[3]), 0, 8)
		if err != nil {
			ctx.Recoverable(diag.RecoverableInvalidCsvRowFormat, location, "on line %d: invalid encounter_type %q", line, record[3])
			continue
		}
		attrs.EncounterType = uint8(encounter)

		layer, err := strconv.ParseUint(strings.TrimSpace(record[4]), 0, 8)
		if err != nil {
			ctx.Recoverable(diag.RecoverableInvalidCsvRowFormat, location, "on line %d: invalid layer_type %q", line, record[4])
			continue
		}
		attrs.LayerType = uint8(layer)

		out[id] = attrs
	}

	return out, nil
}

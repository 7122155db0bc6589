// Package normalize implements the per-tile canonicalization over the
// 4-element flip group described in spec.md §4.3, turning a RawTile plus
// the configured transparency color into a NormalTile.
package normalize

import (
	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// invalidSlot is the sentinel index returned by InsertColor on failure,
// matching spec.md §4.3's "sentinel 'invalid pixel' value".
const invalidSlot = -1

// colorSeen maps each Bgr15 value to the first RGBA color that converted
// to it, letting InsertColor detect when a later RGBA collapses onto an
// already-registered Bgr15 under a different original value (spec.md
// §4.3's color-precision-loss diagnostic).
type colorSeen map[color.Bgr15]color.Rgba32

// InsertColor inserts rgba into palette, returning the slot index it now
// occupies. See spec.md §4.3 for the full rule set.
func InsertColor(ctx *diag.Context, seen colorSeen, palette *tileset.LocalPalette, transparency color.Rgba32, rgba color.Rgba32, location string) int {
	if rgba.IsTransparent() || rgba == transparency {
		return 0
	}
	if !rgba.IsOpaque() {
		ctx.Recoverable(diag.RecoverableInvalidAlphaValue, location, "invalid alpha value: %d", rgba.Alpha)
		return invalidSlot
	}

	bgr := color.RgbaToBgr(rgba)
	transparentBgr := color.RgbaToBgr(transparency)
	if bgr == transparentBgr && rgba != transparency {
		ctx.Warn(diag.WarnTransparencyCollapse, location,
			"color %s collapses to the transparency color %s after BGR15 conversion", rgba, transparency)
	}

	if first, ok := seen[bgr]; ok {
		if first != rgba {
			ctx.Warn(diag.WarnColorPrecisionLoss, location,
				"colors %s and %s both map to %s; only the first is preserved", first, rgba, bgr)
		}
	} else {
		seen[bgr] = rgba
	}

	if idx := palette.IndexOf(bgr); idx >= 1 {
		return idx
	}
	if palette.Full() {
		ctx.Recoverable(diag.RecoverableTooManyUniqueColorsInTile, location, "too many unique colors in tile")
		return invalidSlot
	}
	return palette.Append(bgr)
}

// Candidate produces one of the four flip-orientation candidates for a
// tile, reading it with rows and/or columns reversed per hFlip/vFlip and
// filling its palette in scan order via InsertColor. Diagnostics are only
// emitted when emitDiagnostics is true (spec.md §4.3: "Diagnostics are
// emitted only for the first (identity) candidate").
func Candidate(ctx *diag.Context, seen colorSeen, tile *tileset.RawTile, transparency color.Rgba32, hFlip, vFlip, emitDiagnostics bool) *tileset.NormalTile {
	sink := ctx
	if !emitDiagnostics {
		sink = diag.NewContext() // discard: silent sub-candidate pass
	}

	nt := &tileset.NormalTile{
		HFlip:      hFlip,
		VFlip:      vFlip,
		Palette:    tileset.NewLocalPalette(color.RgbaToBgr(transparency)),
		Provenance: tile.Provenance,
	}

	for row := 0; row < tileset.TileSideLength; row++ {
		for col := 0; col < tileset.TileSideLength; col++ {
			srcRow, srcCol := row, col
			if vFlip {
				srcRow = tileset.TileSideLength - 1 - row
			}
			if hFlip {
				srcCol = tileset.TileSideLength - 1 - col
			}
			px, err := tile.GetPixel(srcRow, srcCol)
			if err != nil {
				panic(diag.NewInternalError("candidate: %v", err))
			}
			idx := InsertColor(sink, seen, &nt.Palette, transparency, px, tile.Provenance.String())
			if idx == invalidSlot {
				idx = 0
			}
			nt.PaletteIndexes[row*tileset.TileSideLength+col] = idx
		}
	}
	return nt
}

// Normalize returns the lexicographically smallest of the tile's four
// flip-orientation candidates (spec.md §4.3). Diagnostics are attached to
// the identity candidate's evaluation, matching the reference semantics
// of only reporting color issues once per tile regardless of how many
// orientations get evaluated.
func Normalize(ctx *diag.Context, tile *tileset.RawTile, transparency color.Rgba32) *tileset.NormalTile {
	seen := make(colorSeen)
	identity := Candidate(ctx, seen, tile, transparency, false, false, true)

	// Short-circuit: an entirely transparent tile is trivially in normal
	// form, and re-evaluating the other three flips would be wasted work.
	if identity.Transparent() {
		return identity
	}

	seen = make(colorSeen)
	h := Candidate(ctx, seen, tile, transparency, true, false, false)
	seen = make(colorSeen)
	v := Candidate(ctx, seen, tile, transparency, false, true, false)
	seen = make(colorSeen)
	hv := Candidate(ctx, seen, tile, transparency, true, true, false)

	best := identity
	for _, cand := range []*tileset.NormalTile{h, v, hv} {
		if cand.Less(best) {
			best = cand
		}
	}
	return best
}

// IndexedNormTile pairs a normalized tile with its original position in
// the decompiled tileset (DecompiledIndex in the original source).
type IndexedNormTile struct {
	Index         int
	Tile          *tileset.NormalTile
	Animated      bool
	AnimationName string
}

// Decompiled mirrors spec.md §6's DecompiledTileset: an ordered vector of
// raw tiles plus an ordered vector of animations.
type Decompiled struct {
	Tiles      []tileset.RawTile
	Animations []Animation
}

// Animation is one named animation: a sequence of frames sharing
// dimensions, one of them the key frame.
type Animation struct {
	Name   string
	Frames []Frame
}

// Frame is one animation frame: a named, ordered sequence of tiles.
type Frame struct {
	Name  string
	Tiles []tileset.RawTile
}

// NormalizeDecompiled produces (a) (index, NormalTile) pairs for every
// animation frame's tiles followed by every regular tile, tagged so
// animated tiles can be banked first and land at stable low indexes
// (spec.md §4.3, §4.7), and (b) normalized palette-primer tiles.
func NormalizeDecompiled(ctx *diag.Context, decompiled *Decompiled, primers []tileset.RawTile, transparency color.Rgba32) ([]IndexedNormTile, []*tileset.NormalTile) {
	var out []IndexedNormTile
	index := 0

	// Key-frame tiles for every animation occupy the head of the output;
	// per spec.md §4.9 only the key frame's tiles become first-class bank
	// entries, so we normalize the key frame here and attach the other
	// frames' raw palette-index arrays onto it afterward by the anim
	// package, which re-derives them from the same palette. NormalizeDecompiled
	// itself only needs to walk the key frame of each animation; the anim
	// package is responsible for resolving non-key frames against the
	// key frame's chosen orientation.
	for _, animation := range decompiled.Animations {
		if len(animation.Frames) == 0 {
			continue
		}
		keyFrame := animation.Frames[0]
		for _, t := range keyFrame.Tiles {
			nt := Normalize(ctx, &t, transparency)
			out = append(out, IndexedNormTile{Index: index, Tile: nt, Animated: true, AnimationName: animation.Name})
			index++
		}
	}

	for _, t := range decompiled.Tiles {
		nt := Normalize(ctx, &t, transparency)
		out = append(out, IndexedNormTile{Index: index, Tile: nt, Animated: false})
		index++
	}

	primerTiles := make([]*tileset.NormalTile, 0, len(primers))
	for _, t := range primers {
		primerTiles = append(primerTiles, Normalize(ctx, &t, transparency))
	}

	return out, primerTiles
}

// Package anim implements the animation handler (spec.md §4.9): key
// frame vs. non-key frame tiles, and the cross-tileset key-tile
// invariants from spec.md §4.7 that only apply to animation key frames.
package anim

import (
	"fmt"

	"github.com/aspiringporter/porytiles/internal/bank"
	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// KeyFrameTile is one key-frame tile, already converted to a GBATile
// and inserted into the tile bank.
type KeyFrameTile struct {
	BankIndex int
	Tile      tileset.GBATile
}

// Handler accumulates the animations for one compile, checking the
// key-frame invariants from spec.md §4.7 as each key-frame tile is
// inserted.
type Handler struct {
	// primaryTileIndex, when compiling a secondary tileset, is the
	// paired primary's tile-value index: a key-frame tile found there
	// would silently be masked by the primary's own animation asset.
	primaryTileIndex map[tileset.GBATile]int
	seenKeyFrames    map[tileset.GBATile]bool
	Anims            []tileset.Anim
}

// NewHandler constructs a Handler. primaryTileIndex may be nil for a
// primary or standalone compile.
func NewHandler(primaryTileIndex map[tileset.GBATile]int) *Handler {
	return &Handler{
		primaryTileIndex: primaryTileIndex,
		seenKeyFrames:    make(map[tileset.GBATile]bool),
	}
}

// Observe validates one key-frame tile against the invariants spec.md
// §4.7 names, and marks it seen so a later duplicate is caught. It does
// not touch a bank — use it when the tile was already inserted through
// the ordinary tile-banking path and only the animation-specific checks
// remain to be applied.
func (h *Handler) Observe(tile tileset.GBATile, location string) error {
	if tile == tileset.TransparentTile {
		return diag.NewFatalError(diag.FatalKeyFrameEqualsTransparent, "%s: key-frame tile is fully transparent", location)
	}
	if h.seenKeyFrames[tile] {
		return diag.NewFatalError(diag.FatalKeyFrameDuplicate, "%s: key-frame tile duplicates an earlier key-frame tile", location)
	}
	if h.primaryTileIndex != nil {
		if _, exists := h.primaryTileIndex[tile]; exists {
			return diag.NewFatalError(diag.FatalKeyFrameMasksPrimary, "%s: key-frame tile already exists in the paired primary tileset and would be masked", location)
		}
	}
	h.seenKeyFrames[tile] = true
	return nil
}

// InsertKeyFrame validates tile via Observe, then inserts it into bk.
// See Observe for the enforced invariants.
func (h *Handler) InsertKeyFrame(bk *bank.Bank, tile tileset.GBATile, paletteIndex int, location string) (int, error) {
	if err := h.Observe(tile, location); err != nil {
		return -1, err
	}
	return bk.Insert(tile, paletteIndex), nil
}

// ResolveFrameTile converts one non-key animation frame's raw tile into
// a GBATile by resolving each pixel through the key frame's already-
// chosen local palette (same colors, same slot numbers) oriented the
// same way the key tile was normalized, then remapping those slots
// through the key tile's final assigned hardware palette. A pixel whose
// color is absent from the key palette means the frame doesn't actually
// share the key tile's color set, an authoring error in the source
// animation.
func ResolveFrameTile(raw *tileset.RawTile, keyPalette *tileset.LocalPalette, hwPalette *tileset.GBAPalette, hFlip, vFlip bool, transparency color.Rgba32) (tileset.GBATile, error) {
	var out tileset.GBATile
	for row := 0; row < tileset.TileSideLength; row++ {
		for col := 0; col < tileset.TileSideLength; col++ {
			srcRow, srcCol := row, col
			if vFlip {
				srcRow = tileset.TileSideLength - 1 - row
			}
			if hFlip {
				srcCol = tileset.TileSideLength - 1 - col
			}
			px, err := raw.GetPixel(srcRow, srcCol)
			if err != nil {
				return tileset.GBATile{}, err
			}

			var localSlot int
			if px.IsTransparent() || px == transparency {
				localSlot = 0
			} else {
				bgr := color.RgbaToBgr(px)
				localSlot = keyPalette.IndexOf(bgr)
				if localSlot < 0 {
					return tileset.GBATile{}, fmt.Errorf("frame pixel color %s not present in key frame's palette", bgr)
				}
			}

			hwSlot := 0
			if localSlot > 0 {
				c := keyPalette.Colors[localSlot]
				found := -1
				for slot := 1; slot < hwPalette.Size; slot++ {
					if hwPalette.Colors[slot] == c {
						found = slot
						break
					}
				}
				if found < 0 {
					return tileset.GBATile{}, fmt.Errorf("color %s not present in assigned hardware palette", c)
				}
				hwSlot = found
			}
			out.ColorIndexes[row*tileset.TileSideLength+col] = uint8(hwSlot)
		}
	}
	return out, nil
}

// AnimationInput is one animation's already-normalized frame tiles, with
// frame 0 understood to be the key frame. FrameNames holds each frame's
// own name (e.g. "01"), parallel to Frames; FrameNames[0] is unused.
type AnimationInput struct {
	Name       string
	FrameNames []string
	Frames     [][]tileset.GBATile // Frames[0] is the key frame
}

// Build converts frame-relative tiles into an Anim keyed by the key
// frame's final bank indices, recording every non-key frame's tiles in
// parallel for later emission as a separate asset (spec.md §4.9).
func Build(name string, keyFrameBankIndexes []int, otherFrames []AnimationInput) tileset.Anim {
	out := tileset.Anim{Name: name, KeyIndexes: keyFrameBankIndexes}
	for _, frame := range otherFrames {
		for i, tiles := range frame.Frames {
			if i == 0 {
				continue // key frame itself, already banked
			}
			out.Frames = append(out.Frames, tileset.AnimFrame{Name: frame.FrameNames[i], Tiles: tiles})
		}
	}
	return out
}

// ReferencedKeyFrames tracks which key-frame bank indexes were actually
// referenced by a regular metatile entry, so CheckUnreferenced can warn
// about ones that weren't (spec.md §4.7: "any key-frame tile never
// referenced by a regular metatile emits a key-frame-no-matching-tile
// diagnostic").
type ReferencedKeyFrames map[int]bool

// CheckUnreferenced emits WarnKeyFrameNoMatchingTile for every key-frame
// bank index in allKeyIndexes that referenced does not mark as seen.
func CheckUnreferenced(ctx *diag.Context, allKeyIndexes []int, referenced ReferencedKeyFrames, location string) {
	for _, idx := range allKeyIndexes {
		if !referenced[idx] {
			ctx.Warn(diag.WarnKeyFrameNoMatchingTile, location, "key-frame tile at bank index %d is never referenced by a regular metatile", idx)
		}
	}
}

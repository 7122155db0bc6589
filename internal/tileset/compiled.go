package tileset

import "github.com/aspiringporter/porytiles/internal/color"

// HardwarePalette accumulates which registered colors a physical palette
// will hold during assignment. At most PalSize-1 bits may be set (one
// slot reserved for transparency).
type HardwarePalette = ColorSet

// GBAPalette is a finalized hardware palette of PalSize Bgr15 colors,
// slot 0 always the transparency color.
type GBAPalette struct {
	Colors [PalSize]color.Bgr15
	Size   int
}

// Assignment links one input-tile position to its final tile-bank index,
// palette index, orientation, and behavioral attributes (spec.md §3).
type Assignment struct {
	TileIndex    int
	PaletteIndex int
	HFlip, VFlip bool
	Attributes   Attributes
}

// Attributes mirrors spec.md §6's AttributesMap entry shape.
type Attributes struct {
	Behavior      uint16
	TerrainType   uint8
	EncounterType uint8
	LayerType     uint8
}

// AnimFrame is one non-key frame's tiles, parallel to the key frame's
// tiles at the same positions (spec.md §4.9).
type AnimFrame struct {
	Name  string
	Tiles []GBATile
}

// Anim is one animation's full set of non-key frames, keyed by the tile
// positions of its key frame within the bank.
type Anim struct {
	Name       string
	KeyIndexes []int // bank indexes of this animation's key-frame tiles, in frame order
	Frames     []AnimFrame
}

// CompiledTileset is the pipeline's sole output (spec.md §3). It owns
// every structure the emitter needs and nothing more; NormalTile and
// ColorSet values used to build it are pipeline-local and discarded.
type CompiledTileset struct {
	Tiles          []GBATile
	TilePalette    []int // Tiles[i]'s primary palette index, for true-color visualization
	Palettes       []GBAPalette
	Assignments    []Assignment
	Anims          []Anim
	ColorToIndex   map[color.Bgr15]int
	IndexToColor   map[int]color.Bgr15
	TileToIndex    map[GBATile]int
	NumPalettesPrimary int // the fieldmap's NumPalettesInPrimary, set for every compile; Palettes never includes a paired primary's palettes
}

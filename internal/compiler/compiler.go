// Package compiler orchestrates the full pipeline — normalize, color
// index, color-set projection, palette assignment, tile banking,
// metatile entry construction, and animation handling — into the single
// pure `Compile` entry point spec.md §1/§6 describe as the core's public
// surface. It performs no I/O and chooses no file layout; those are the
// caller's concern (spec.md §1 Non-goals).
package compiler

import (
	"fmt"
	"sort"

	"github.com/aspiringporter/porytiles/internal/anim"
	"github.com/aspiringporter/porytiles/internal/bank"
	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/colorindex"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/metatile"
	"github.com/aspiringporter/porytiles/internal/normalize"
	"github.com/aspiringporter/porytiles/internal/palette"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// FieldmapConfig mirrors spec.md §6's FieldmapConfig input, with the
// invariant primary <= total enforced on each pair by Validate.
type FieldmapConfig struct {
	NumTilesInPrimary     int
	NumTilesTotal         int
	NumMetatilesInPrimary int
	NumMetatilesTotal     int
	NumPalettesInPrimary  int
	NumPalettesTotal      int
	NumTilesPerMetatile   int
}

// Validate checks the primary <= total invariant on every pair spec.md
// §6 names.
func (f FieldmapConfig) Validate() error {
	if f.NumTilesInPrimary > f.NumTilesTotal {
		return diag.NewFatalError(diag.FatalInvalidFieldmapConfig, "num_tiles_in_primary (%d) exceeds num_tiles_total (%d)", f.NumTilesInPrimary, f.NumTilesTotal)
	}
	if f.NumMetatilesInPrimary > f.NumMetatilesTotal {
		return diag.NewFatalError(diag.FatalInvalidFieldmapConfig, "num_metatiles_in_primary (%d) exceeds num_metatiles_total (%d)", f.NumMetatilesInPrimary, f.NumMetatilesTotal)
	}
	if f.NumPalettesInPrimary > f.NumPalettesTotal {
		return diag.NewFatalError(diag.FatalInvalidFieldmapConfig, "num_palettes_in_primary (%d) exceeds num_palettes_total (%d)", f.NumPalettesInPrimary, f.NumPalettesTotal)
	}
	return nil
}

// AssignAlgorithm selects the palette-assignment backend.
type AssignAlgorithm int

const (
	AlgorithmDepthFirst AssignAlgorithm = iota
	AlgorithmBreadthFirst
)

// CompilerConfig mirrors spec.md §6's CompilerConfig input.
type CompilerConfig struct {
	TransparencyColor color.Rgba32
	TripleLayer       bool

	AssignAlgorithm     AssignAlgorithm
	ExploredNodeCutoff  int
	PruneMode           palette.PruneMode
	PruneCount          int
	SmartPruneThreshold float64

	CacheAssign bool
	// CachedParams, when non-nil, is an assign.cache hit (internal/cache)
	// tried as the very first escalation step instead of the fields
	// above. A miss here falls through to palette.Escalate()'s matrix;
	// this CompilerConfig's own search fields are not tried in that case.
	CachedParams *palette.Params

	// WarningModes configures the severity of each diagnostic warning
	// kind for this compile (spec.md §7's "independently configurable
	// WarningMode per kind"); a kind absent from the map defaults to off.
	WarningModes map[diag.WarningKind]diag.WarningMode
}

// Primary is the paired primary tileset's published state, consumed
// read-only when compiling a secondary (spec.md §5 "Shared resources").
type Primary struct {
	Registry         *colorindex.Registry
	Palettes         []tileset.ColorSet
	ConcretePalettes []tileset.GBAPalette
	TileIndex        map[tileset.GBATile]int
	NumTilesBudget   int
}

// Output is the pipeline's result: a finished CompiledTileset plus the
// diagnostic context accumulated while building it.
type Output struct {
	Compiled *tileset.CompiledTileset
	Ctx      *diag.Context
}

// AsPrimary packages a completed primary compile's Output as the Primary
// a paired secondary's Compile call needs, so cmd/ never has to reach
// into CompiledTileset's internals itself. Every one of Compiled.Palettes
// becomes one of the Primary's palettes; Compiled.NumPalettesPrimary is
// not consulted.
func (o *Output) AsPrimary() *Primary {
	reg := &colorindex.Registry{
		ColorToIndex: o.Compiled.ColorToIndex,
		IndexToColor: o.Compiled.IndexToColor,
	}
	palettes := make([]tileset.ColorSet, len(o.Compiled.Palettes))
	for i, p := range o.Compiled.Palettes {
		palettes[i] = colorindex.GBAPaletteToColorSet(reg, p)
	}
	return &Primary{
		Registry:         reg,
		Palettes:         palettes,
		ConcretePalettes: o.Compiled.Palettes,
		TileIndex:        o.Compiled.TileToIndex,
		NumTilesBudget:   len(o.Compiled.Tiles),
	}
}

// Compile runs the full pipeline over decompiled, a tile-primer list,
// and per-metatile attributes, against fieldmap and config. primary is
// nil for a primary or standalone compile; non-nil for a secondary
// compile paired against an already-compiled primary.
func Compile(
	fieldmap FieldmapConfig,
	cfg CompilerConfig,
	decompiled *normalize.Decompiled,
	primers []tileset.RawTile,
	attrs map[int]tileset.Attributes,
	primary *Primary,
) (*Output, error) {
	if err := fieldmap.Validate(); err != nil {
		return nil, err
	}

	ctx := diag.NewContext()
	for kind, mode := range cfg.WarningModes {
		ctx.SetMode(kind, mode)
	}
	location := "compile"

	normalizedTiles, primerTiles := normalize.NormalizeDecompiled(ctx, decompiled, primers, cfg.TransparencyColor)
	if err := ctx.CheckPhaseBoundary("normalize"); err != nil {
		return nil, err
	}

	var primaryRegistry *colorindex.Registry
	var primaryPalettes []tileset.ColorSet
	var primaryConcretePalettes []tileset.GBAPalette
	// A secondary compile's color budget is the combined P1+P2 palette
	// count, not P1 alone: a secondary may legitimately introduce new
	// colors as long as the tileset stays within the total budget
	// (spec.md §4.4).
	maxPalettesForColorBudget := fieldmap.NumPalettesInPrimary
	if primary != nil {
		primaryRegistry = primary.Registry
		primaryPalettes = primary.Palettes
		primaryConcretePalettes = primary.ConcretePalettes
		maxPalettesForColorBudget = fieldmap.NumPalettesTotal
	}

	reg, err := colorindex.Build(ctx, normalizedTiles, primaryRegistry, maxPalettesForColorBudget, location)
	if err != nil {
		return nil, err
	}
	if err := ctx.CheckPhaseBoundary("color-index"); err != nil {
		return nil, err
	}

	// Palette primers seed color allocation without becoming tiles: fold
	// their colors into the registry by re-running Build with them
	// appended as zero-index-producing palette entries. Since Build only
	// reads palette colors, we synthesize primer pseudo-entries here.
	if len(primerTiles) > 0 {
		primerEntries := make([]normalize.IndexedNormTile, len(primerTiles))
		for i, t := range primerTiles {
			primerEntries[i] = normalize.IndexedNormTile{Index: -1, Tile: t}
		}
		reg, err = colorindex.Build(ctx, append(normalizedTiles, primerEntries...), primaryRegistry, maxPalettesForColorBudget, location)
		if err != nil {
			return nil, err
		}
		if err := ctx.CheckPhaseBoundary("color-index-primers"); err != nil {
			return nil, err
		}
	}

	indexed, uniqueSets := colorindex.MatchWithColorSets(reg, normalizedTiles)

	numPalettesToAssign := fieldmap.NumPalettesTotal - len(primaryPalettes)
	if primary == nil {
		numPalettesToAssign = fieldmap.NumPalettesInPrimary
	}

	sortedSets := append([]tileset.ColorSet(nil), uniqueSets...)
	sort.SliceStable(sortedSets, func(i, j int) bool {
		return sortedSets[i].Popcount() < sortedSets[j].Popcount()
	})

	solution, result := assign(ctx, location, sortedSets, numPalettesToAssign, primaryPalettes, cfg)
	switch result {
	case palette.Success:
		// fall through
	case palette.NoSolutionPossible:
		return nil, diag.NewFatalError(diag.FatalNoPossiblePaletteAssign, "no palette assignment satisfies every tile's color constraints")
	case palette.ExploreCutoffReached:
		return nil, diag.NewFatalError(diag.FatalNoPossiblePaletteAssign, "palette assignment search exhausted every escalation step without a solution")
	}

	palettes := bank.BuildPalettes(solution, reg, cfg.TransparencyColor)

	maxTiles := fieldmap.NumTilesTotal
	var tileIndexOffset int
	var primaryTileIndex map[tileset.GBATile]int
	if primary != nil {
		maxTiles = fieldmap.NumTilesTotal - fieldmap.NumTilesInPrimary
		tileIndexOffset = primary.NumTilesBudget
		primaryTileIndex = primary.TileIndex
	}

	bk, assignments, err := bank.Build(ctx, indexed, solution, palettes, primaryPalettes, primaryConcretePalettes, maxTiles, location)
	if err != nil {
		return nil, err
	}
	if err := ctx.CheckPhaseBoundary("bank"); err != nil {
		return nil, err
	}

	// Concrete palettes in the same [primary, assigned] order the
	// metatile entry builder and tile banker both search, so an
	// animation frame whose key tile reused a primary palette resolves
	// against the right colors below.
	allConcretePalettes := append(append([]tileset.GBAPalette(nil), primaryConcretePalettes...), palettes...)

	bk.Pad(16)

	animHandler := anim.NewHandler(primaryTileIndex)
	var anims []tileset.Anim
	referenced := anim.ReferencedKeyFrames{}
	var allKeyFrameIndexes []int

	{
		// Group the animated subset of indexed by animation name, in the
		// order NormalizeDecompiled emitted them, and validate each
		// key-frame tile's bank entry against spec.md §4.7's invariants.
		byName := make(map[string][]colorindex.IndexedTile)
		var order []string
		for _, it := range indexed {
			if !it.Animated {
				continue
			}
			if _, seen := byName[it.AnimationName]; !seen {
				order = append(order, it.AnimationName)
			}
			byName[it.AnimationName] = append(byName[it.AnimationName], it)
		}

		animByName := make(map[string]normalize.Animation, len(decompiled.Animations))
		for _, a := range decompiled.Animations {
			animByName[a.Name] = a
		}

		for _, name := range order {
			tiles := byName[name]
			keyIndexes := make([]int, len(tiles))
			for i, it := range tiles {
				bankIdx := assignments[it.Index].TileIndex
				gba := bk.Tiles[bankIdx]
				if err := animHandler.Observe(gba, location); err != nil {
					return nil, err
				}
				keyIndexes[i] = bankIdx
				allKeyFrameIndexes = append(allKeyFrameIndexes, bankIdx)
			}

			source := animByName[name]
			input := anim.AnimationInput{
				Name:       name,
				FrameNames: make([]string, len(source.Frames)),
				Frames:     make([][]tileset.GBATile, len(source.Frames)),
			}
			for frameIdx := 1; frameIdx < len(source.Frames); frameIdx++ {
				frame := source.Frames[frameIdx]
				frameTiles := make([]tileset.GBATile, len(tiles))
				for i, it := range tiles {
					hwPal := &allConcretePalettes[assignments[it.Index].PaletteIndex]
					resolved, err := anim.ResolveFrameTile(&frame.Tiles[i], &it.Tile.Palette, hwPal, it.Tile.HFlip, it.Tile.VFlip, cfg.TransparencyColor)
					if err != nil {
						return nil, fmt.Errorf("%s: animation %q frame %q: %w", location, name, frame.Name, err)
					}
					frameTiles[i] = resolved
				}
				input.FrameNames[frameIdx] = frame.Name
				input.Frames[frameIdx] = frameTiles
			}
			anims = append(anims, anim.Build(name, keyIndexes, []anim.AnimationInput{input}))
		}

		for _, it := range indexed {
			if it.Animated {
				continue
			}
			referenced[assignments[it.Index].TileIndex] = true
		}
		anim.CheckUnreferenced(ctx, allKeyFrameIndexes, referenced, location)
	}

	colorSets := make([]tileset.ColorSet, len(indexed))
	positions := make([]int, len(indexed))
	tileIndexes := make([]int, len(indexed))
	hFlips := make([]bool, len(indexed))
	vFlips := make([]bool, len(indexed))
	for i, it := range indexed {
		colorSets[i] = it.ColorSet
		positions[i] = it.Index
		tileIndexes[i] = assignments[it.Index].TileIndex
		hFlips[i] = it.Tile.HFlip
		vFlips[i] = it.Tile.VFlip
	}

	entries, err := metatile.BuildEntries(positions, tileIndexes, colorSets, hFlips, vFlips, tileIndexOffset, primaryPalettes, solution, attrs, location)
	if err != nil {
		return nil, err
	}

	// entries is the authoritative per-position record: it carries the
	// same tile index bank.Build produced (offset for a secondary
	// compile) plus the palette index resolved by containment search
	// against [primary, assigned] and the position's behavioral
	// attributes, neither of which bank.Build's own assignments know
	// about.
	finalAssignments := make([]tileset.Assignment, len(assignments))
	copy(finalAssignments, assignments)
	for i, pos := range positions {
		e := entries[i]
		finalAssignments[pos] = tileset.Assignment{
			TileIndex:    e.TileIndex,
			PaletteIndex: e.PaletteIndex,
			HFlip:        e.HFlip,
			VFlip:        e.VFlip,
			Attributes:   e.Attributes,
		}
	}

	compiled := &tileset.CompiledTileset{
		Tiles:              bk.Tiles,
		TilePalette:        bk.TilePalette,
		Palettes:           palettes,
		Assignments:        finalAssignments,
		Anims:              anims,
		ColorToIndex:       reg.ColorToIndex,
		IndexToColor:       reg.IndexToColor,
		TileToIndex:        make(map[tileset.GBATile]int, len(bk.Tiles)),
		NumPalettesPrimary: fieldmap.NumPalettesInPrimary,
	}
	for i, t := range bk.Tiles {
		compiled.TileToIndex[t] = i
	}

	if err := ctx.CheckPhaseBoundary("finalize"); err != nil {
		return nil, err
	}

	return &Output{Compiled: compiled, Ctx: ctx}, nil
}

// assign runs AssignDepthFirst or AssignBreadthFirst per cfg, escalating
// across palette.Escalate()'s search-parameter matrix until success or
// exhaustion (spec.md §4.6 "the caller may then escalate..."). When
// cfg.CachedParams is set, it is tried first in place of cfg's own
// fields; if the cache entry fails and a later step succeeds, a
// WarnAssignCacheOverride diagnostic records that the cached params are
// now stale.
func assign(ctx *diag.Context, location string, unassigned []tileset.ColorSet, numPalettes int, primaryPalettes []tileset.ColorSet, cfg CompilerConfig) ([]tileset.ColorSet, palette.Result) {
	usedCache := cfg.CachedParams != nil
	firstStep := palette.Params{
		NodeBudget:          cfg.ExploredNodeCutoff,
		Prune:               cfg.PruneMode,
		PruneCount:          cfg.PruneCount,
		SmartPruneThreshold: cfg.SmartPruneThreshold,
	}
	if usedCache {
		firstStep = *cfg.CachedParams
	}
	steps := append([]palette.Params{firstStep}, palette.Escalate()...)

	var lastResult palette.Result
	for i, params := range steps {
		var solution []tileset.ColorSet
		var result palette.Result
		if cfg.AssignAlgorithm == AlgorithmBreadthFirst && len(primaryPalettes) == 0 {
			solution, result = palette.AssignBreadthFirst(unassigned, numPalettes, params)
		} else {
			solution, result = palette.AssignDepthFirst(unassigned, numPalettes, primaryPalettes, params)
		}
		if result == palette.Success {
			if usedCache && i > 0 {
				ctx.Warn(diag.WarnAssignCacheOverride, location, "assign.cache entry failed; solution found at escalation step %d instead", i)
			}
			return solution, result
		}
		lastResult = result
	}
	return nil, lastResult
}

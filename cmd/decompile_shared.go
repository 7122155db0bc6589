package cmd

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aspiringporter/porytiles/internal/behaviors"
	"github.com/aspiringporter/porytiles/internal/color"
	pconfig "github.com/aspiringporter/porytiles/internal/config"
	"github.com/aspiringporter/porytiles/internal/emitter"
	"github.com/aspiringporter/porytiles/internal/fsys"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// addDecompileFlags registers the flags every decompile subcommand
// shares.
func addDecompileFlags(cmd *cobra.Command) {
	cmd.Flags().String("target", "pokeemerald", "Target decompilation project preset (pokeemerald, pokefirered, pokeruby)")
	cmd.Flags().String("transparent-color", "magenta", "CSS name or hex color to paint transparent pixels")
	cmd.Flags().String("behaviors", "", "Path to this project's metatile_behaviors.h header, for writing behavior names into attributes.csv")
	cmd.Flags().Int("metatiles-per-row", 8, "Width, in metatiles, of the reconstructed layer PNGs (metatile layout isn't stored in the compiled format, only chosen at compile time)")
}

// decompileOptions holds one decompile subcommand's parsed shared flags.
type decompileOptions struct {
	target          pconfig.Preset
	transparency    color.Rgba32
	behaviors       string
	metatilesPerRow int
}

func readDecompileFlags(cmd *cobra.Command) (*decompileOptions, error) {
	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return nil, err
	}
	transparentColorStr, err := cmd.Flags().GetString("transparent-color")
	if err != nil {
		return nil, err
	}
	transparency, err := pconfig.ParseTransparencyColor(transparentColorStr)
	if err != nil {
		return nil, err
	}
	behaviorsPath, err := cmd.Flags().GetString("behaviors")
	if err != nil {
		return nil, err
	}
	metatilesPerRow, err := cmd.Flags().GetInt("metatiles-per-row")
	if err != nil {
		return nil, err
	}
	return &decompileOptions{
		target:          pconfig.Preset(target),
		transparency:    transparency,
		behaviors:       behaviorsPath,
		metatilesPerRow: metatilesPerRow,
	}, nil
}

// loadBehaviorTableForDecompile mirrors loadBehaviorTable but without a
// missing-attributes-csv-shaped warning: a decompile always writes an
// attributes.csv, so an absent --behaviors header just means the CSV's
// behavior column falls back to numeric ids.
func loadBehaviorTableForDecompile(loc fsys.Locator, path string) (behaviors.Table, error) {
	if path == "" {
		return nil, nil
	}
	f, err := loc.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return behaviors.Parse(f)
}

// tilesPerMetatileDual and tilesPerMetatileTriple are the two subtile
// counts a metatile can have, matching
// original_source/Porytiles-1.X.X/lib/src/decompiler.cpp's
// TILES_PER_METATILE_DUAL/TILES_PER_METATILE_TRIPLE.
const (
	tilesPerMetatileDual   = 8
	tilesPerMetatileTriple = 12
)

// inferTripleLayer reproduces decompiler.cpp's decompile() layer-mode
// inference: divide the metatiles.bin entry count by each of the two
// possible subtile-per-metatile counts and see which matches
// numMetatiles, the independently-sized metatile_attributes.bin record
// count. For a positive numMetatiles at most one of the two can match.
// If neither matches (including when numMetatiles is 0), the files are
// inconsistent and decompilation cannot proceed.
func inferTripleLayer(numAssignments, numMetatiles int) (bool, error) {
	tripleMatches := numMetatiles > 0 && numAssignments == numMetatiles*tilesPerMetatileTriple
	dualMatches := numMetatiles > 0 && numAssignments == numMetatiles*tilesPerMetatileDual
	switch {
	case tripleMatches:
		return true, nil
	case dualMatches:
		return false, nil
	default:
		return false, fmt.Errorf("cannot infer layer type: %d metatile entries does not evenly divide into %d metatile attribute records as either 8 or 12 subtiles per metatile", numAssignments, numMetatiles)
	}
}

// loadCompiledDir reads back tiles.png, every NN.pal, metatiles.bin, and
// metatile_attributes.bin from dir into a CompiledTileset, plus whether
// the source was triple-layer (inferred via inferTripleLayer), the
// inverse of writeCompiledOutput/writeRawOutput. Attributes are read one
// per metatile and broadcast back across every one of that metatile's
// subtile assignments, the inverse of metatile.ExpandAttributesMap.
func loadCompiledDir(loc fsys.Locator, dir string, format pconfig.AttributesFormat) (*tileset.CompiledTileset, bool, error) {
	tilesF, err := loc.Open(filepath.Join(dir, "tiles.png"))
	if err != nil {
		return nil, false, err
	}
	defer tilesF.Close()
	img, err := png.Decode(tilesF)
	if err != nil {
		return nil, false, fmt.Errorf("decoding tiles.png: %w", err)
	}
	tiles, tilePalette, err := emitter.DecodeTileBank(img, tilesPerRow)
	if err != nil {
		return nil, false, fmt.Errorf("decoding tile bank: %w", err)
	}

	var palettes []tileset.GBAPalette
	for i := 0; ; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.pal", i))
		if !loc.Exists(path) {
			break
		}
		palF, err := loc.Open(path)
		if err != nil {
			return nil, false, err
		}
		pal, err := emitter.ReadJASCPalette(palF)
		palF.Close()
		if err != nil {
			return nil, false, fmt.Errorf("reading %d.pal: %w", i, err)
		}
		palettes = append(palettes, pal)
	}

	compiled := &tileset.CompiledTileset{
		Tiles:       tiles,
		TilePalette: tilePalette,
		Palettes:    palettes,
	}

	metatilesPath := filepath.Join(dir, "metatiles.bin")
	if !loc.Exists(metatilesPath) {
		return compiled, false, nil
	}
	metatilesF, err := loc.Open(metatilesPath)
	if err != nil {
		return nil, false, err
	}
	assignments, err := emitter.ReadMetatileEntries(metatilesF)
	metatilesF.Close()
	if err != nil {
		return nil, false, fmt.Errorf("reading metatiles.bin: %w", err)
	}

	var metatileAttrs []tileset.Attributes
	attrsPath := filepath.Join(dir, "metatile_attributes.bin")
	if loc.Exists(attrsPath) {
		attrsF, err := loc.Open(attrsPath)
		if err != nil {
			return nil, false, err
		}
		metatileAttrs, err = emitter.ReadMetatileAttributes(attrsF, format)
		attrsF.Close()
		if err != nil {
			return nil, false, fmt.Errorf("reading metatile_attributes.bin: %w", err)
		}
	}

	tripleLayer, err := inferTripleLayer(len(assignments), len(metatileAttrs))
	if err != nil {
		return nil, false, err
	}
	tilesPerMetatile := tilesPerMetatileDual
	if tripleLayer {
		tilesPerMetatile = tilesPerMetatileTriple
	}
	for i := range assignments {
		if m := i / tilesPerMetatile; m < len(metatileAttrs) {
			assignments[i].Attributes = metatileAttrs[m]
		}
	}
	compiled.Assignments = assignments

	return compiled, tripleLayer, nil
}

// writeDecompiledAttributesCsv writes one row per metatile's attributes,
// resolving each behavior id back to a symbolic name when behaviorTable
// is non-nil (the inverse of importer.ImportAttributesCSV's lookup),
// falling back to the numeric id otherwise.
func writeDecompiledAttributesCsv(loc fsys.Locator, path string, attrs []tileset.Attributes, behaviorTable behaviors.Table) error {
	f, err := loc.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "behavior", "terrain_type", "encounter_type", "layer_type"}); err != nil {
		f.Close()
		return err
	}
	for id, a := range attrs {
		behaviorCol := strconv.Itoa(int(a.Behavior))
		if behaviorTable != nil {
			if name, ok := behaviorTable.Name(a.Behavior); ok {
				behaviorCol = name
			}
		}
		row := []string{
			strconv.Itoa(id),
			behaviorCol,
			strconv.Itoa(int(a.TerrainType)),
			strconv.Itoa(int(a.EncounterType)),
			strconv.Itoa(int(a.LayerType)),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeLayeredOutput PNG-encodes bottom/middle/top into outDir, the
// inverse of loadTilesetDir's layer reads.
func writeLayeredOutput(loc fsys.Locator, outDir string, bottom, middle, top image.Image) error {
	layout := loc.Discover(outDir)
	for path, img := range map[string]image.Image{layout.Bottom: bottom, layout.Middle: middle, layout.Top: top} {
		f, err := loc.Create(path)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

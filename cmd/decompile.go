package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	pconfig "github.com/aspiringporter/porytiles/internal/config"
	"github.com/aspiringporter/porytiles/internal/decompiler"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/fsys"
	"github.com/aspiringporter/porytiles/internal/manifest"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

var decompileCmd = &cobra.Command{
	Use:   "decompile",
	Short: "Decompile a compiled tileset back into a layered RGBA tilesheet",
}

var decompilePrimaryCmd = &cobra.Command{
	Use:   "primary [input_dir] [output_dir]",
	Short: "Decompile a standalone primary tileset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readDecompileFlags(cmd)
		if err != nil {
			return err
		}
		loc := fsys.New()
		return runDecompilePrimary(loc, opts, args[0], args[1])
	},
}

var decompileSecondaryCmd = &cobra.Command{
	Use:   "secondary [primary_input_dir] [secondary_input_dir] [output_dir]",
	Short: "Decompile a secondary tileset paired against a primary",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readDecompileFlags(cmd)
		if err != nil {
			return err
		}
		loc := fsys.New()
		return runDecompileSecondary(loc, opts, args[0], args[1], args[2])
	},
}

func init() {
	for _, c := range []*cobra.Command{decompilePrimaryCmd, decompileSecondaryCmd} {
		addDecompileFlags(c)
	}
	decompileCmd.AddCommand(decompilePrimaryCmd, decompileSecondaryCmd)
	rootCmd.AddCommand(decompileCmd)
}

// metatileAttributesOf reduces the per-subtile Attributes that
// loadCompiledDir broadcast across every position of a metatile back
// down to one record per metatile, the inverse of the broadcast (every
// position within a metatile carries the same value, so the first
// position's value is representative).
func metatileAttributesOf(assignments []tileset.Assignment, tripleLayer bool) []tileset.Attributes {
	tilesPerMetatile := tilesPerMetatileDual
	if tripleLayer {
		tilesPerMetatile = tilesPerMetatileTriple
	}
	numMetatiles := (len(assignments) + tilesPerMetatile - 1) / tilesPerMetatile
	attrs := make([]tileset.Attributes, numMetatiles)
	for m := range attrs {
		attrs[m] = assignments[m*tilesPerMetatile].Attributes
	}
	return attrs
}

// writeDecompiledTileset exports decompiled's tiles as layered PNGs plus
// an attributes.csv, shared between the primary and secondary decompile
// paths.
func writeDecompiledTileset(loc fsys.Locator, opts *decompileOptions, outDir string, compiled *tileset.CompiledTileset, tripleLayer, secondary bool, tiles []tileset.RawTile) error {
	bottom, middle, top, err := decompiler.ExportLayered(tiles, tripleLayer, opts.metatilesPerRow, opts.transparency)
	if err != nil {
		return err
	}
	if err := writeLayeredOutput(loc, outDir, bottom, middle, top); err != nil {
		return err
	}

	behaviorTable, err := loadBehaviorTableForDecompile(loc, opts.behaviors)
	if err != nil {
		return err
	}
	attrs := metatileAttributesOf(compiled.Assignments, tripleLayer)
	if err := writeDecompiledAttributesCsv(loc, filepath.Join(outDir, "attributes.csv"), attrs, behaviorTable); err != nil {
		return err
	}
	return writeDecompileManifest(loc, outDir, opts.target, tripleLayer, secondary, opts.metatilesPerRow, compiled, len(attrs))
}

// writeDecompileManifest writes manifest.yaml summarizing a decompile
// run's output, the decompile counterpart of writeCompileManifest.
func writeDecompileManifest(loc fsys.Locator, outDir string, target pconfig.Preset, tripleLayer, secondary bool, metatilesPerRow int, compiled *tileset.CompiledTileset, numMetatiles int) error {
	f, err := loc.Create(filepath.Join(outDir, "manifest.yaml"))
	if err != nil {
		return err
	}
	m := manifest.Decompile{
		Target:          string(target),
		TripleLayer:     tripleLayer,
		NumTiles:        len(compiled.Tiles),
		NumPalettes:     len(compiled.Palettes),
		NumMetatiles:    numMetatiles,
		MetatilesPerRow: metatilesPerRow,
		Secondary:       secondary,
	}
	if err := manifest.Write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runDecompilePrimary(loc fsys.Locator, opts *decompileOptions, inputDir, outputDir string) error {
	ctx := diag.NewContext()
	location := "decompile primary"

	fieldmap, err := pconfig.FieldmapDefaults(opts.target)
	if err != nil {
		return err
	}
	format := pconfig.AttributesFormatFor(opts.target)

	compiled, tripleLayer, err := loadCompiledDir(loc, inputDir, format)
	if err != nil {
		return err
	}

	tilesPerMetatile := tilesPerMetatileDual
	if tripleLayer {
		tilesPerMetatile = tilesPerMetatileTriple
	}
	decompiled := decompiler.Decompile(ctx, decompiler.ModePrimary, compiled, nil, fieldmap.NumTilesInPrimary, fieldmap.NumPalettesTotal, tilesPerMetatile, opts.transparency, location)
	if err := reportDiagnostics(ctx, location); err != nil {
		return err
	}

	return writeDecompiledTileset(loc, opts, outputDir, compiled, tripleLayer, false, decompiled.Tiles)
}

func runDecompileSecondary(loc fsys.Locator, opts *decompileOptions, primaryDir, secondaryDir, outputDir string) error {
	ctx := diag.NewContext()
	location := "decompile secondary"

	fieldmap, err := pconfig.FieldmapDefaults(opts.target)
	if err != nil {
		return err
	}
	format := pconfig.AttributesFormatFor(opts.target)

	primaryCompiled, _, err := loadCompiledDir(loc, primaryDir, format)
	if err != nil {
		return err
	}
	primary := &decompiler.PairedPrimary{Tiles: primaryCompiled.Tiles, Palettes: primaryCompiled.Palettes}

	secondaryCompiled, tripleLayer, err := loadCompiledDir(loc, secondaryDir, format)
	if err != nil {
		return err
	}

	tilesPerMetatile := tilesPerMetatileDual
	if tripleLayer {
		tilesPerMetatile = tilesPerMetatileTriple
	}
	decompiled := decompiler.Decompile(ctx, decompiler.ModeSecondary, secondaryCompiled, primary, fieldmap.NumTilesInPrimary, fieldmap.NumPalettesTotal, tilesPerMetatile, opts.transparency, location)
	if err := reportDiagnostics(ctx, location); err != nil {
		return err
	}

	return writeDecompiledTileset(loc, opts, outputDir, secondaryCompiled, tripleLayer, true, decompiled.Tiles)
}

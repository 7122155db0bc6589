package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aspiringporter/porytiles/internal/compiler"
	pconfig "github.com/aspiringporter/porytiles/internal/config"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/fsys"
	"github.com/aspiringporter/porytiles/internal/importer"
	"github.com/aspiringporter/porytiles/internal/metatile"
	"github.com/aspiringporter/porytiles/internal/palette"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a source tileset into the binary format a fieldmap expects",
}

var compilePrimaryCmd = &cobra.Command{
	Use:   "primary [input_dir] [output_dir]",
	Short: "Compile a standalone primary tileset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readCompileFlags(cmd)
		if err != nil {
			return err
		}
		loc := fsys.New()
		return runCompilePrimary(loc, opts, args[0], args[1])
	},
}

var compileSecondaryCmd = &cobra.Command{
	Use:   "secondary [primary_input_dir] [secondary_input_dir] [output_dir]",
	Short: "Compile a secondary tileset paired against a primary",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readCompileFlags(cmd)
		if err != nil {
			return err
		}
		loc := fsys.New()
		return runCompileSecondary(loc, opts, args[0], args[1], args[2])
	},
}

var compileRawCmd = &cobra.Command{
	Use:   "raw [input.png] [output_dir]",
	Short: "Compile a freestanding, unlayered tilesheet (no metatile grouping)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readCompileFlags(cmd)
		if err != nil {
			return err
		}
		loc := fsys.New()
		return runCompileRaw(loc, opts, args[0], args[1])
	},
}

func init() {
	for _, c := range []*cobra.Command{compilePrimaryCmd, compileSecondaryCmd, compileRawCmd} {
		addCompileFlags(c)
	}
	compileCmd.AddCommand(compilePrimaryCmd, compileSecondaryCmd, compileRawCmd)
	rootCmd.AddCommand(compileCmd)
}

// cfgWinningParams recovers the palette.Params an assign.cache write
// should persist. CompilerConfig's own fields, rather than whichever
// escalation step actually succeeded, are the closest approximation
// available here: compiler.Output does not expose which step won, only
// compiler.assign's internal loop does.
func cfgWinningParams(cfg compiler.CompilerConfig) palette.Params {
	return palette.Params{
		NodeBudget:          cfg.ExploredNodeCutoff,
		Prune:               cfg.PruneMode,
		PruneCount:          cfg.PruneCount,
		SmartPruneThreshold: cfg.SmartPruneThreshold,
	}
}

func runCompilePrimary(loc fsys.Locator, opts *sharedOptions, inputDir, outputDir string) error {
	ctx := diag.NewContext()
	applyWarningModes(ctx, opts)
	location := "compile primary"

	fieldmap, err := pconfig.FieldmapDefaults(opts.target)
	if err != nil {
		return err
	}

	decompiled, byMetatile, err := loadTilesetDir(loc, ctx, inputDir, opts, !opts.dualLayer, location)
	if err != nil {
		return err
	}

	attrs := metatile.ExpandAttributesMap(byMetatile, fieldmap.NumTilesPerMetatile, len(decompiled.Tiles))

	cfg := compilerConfigFor(ctx, loc, opts, outputDir, !opts.dualLayer, location)

	out, err := compiler.Compile(fieldmap, cfg, decompiled, nil, attrs, nil)
	if err != nil {
		return err
	}
	if err := reportDiagnostics(out.Ctx, location); err != nil {
		return err
	}

	if err := writeCompiledOutput(loc, outputDir, pconfig.AttributesFormatFor(opts.target), fieldmap.NumTilesPerMetatile, out.Compiled); err != nil {
		return err
	}
	if err := writeCompileManifest(loc, outputDir, opts.target, !opts.dualLayer, false, fieldmap.NumTilesPerMetatile, out.Compiled); err != nil {
		return err
	}
	if opts.cacheAssign {
		if err := writeAssignCache(loc, opts, outputDir, cfgWinningParams(cfg)); err != nil {
			return err
		}
	}
	return nil
}

func runCompileSecondary(loc fsys.Locator, opts *sharedOptions, primaryDir, secondaryDir, outputDir string) error {
	ctx := diag.NewContext()
	applyWarningModes(ctx, opts)
	location := "compile secondary"

	fieldmap, err := pconfig.FieldmapDefaults(opts.target)
	if err != nil {
		return err
	}

	primaryDecompiled, primaryByMetatile, err := loadTilesetDir(loc, ctx, primaryDir, opts, !opts.dualLayer, location+" (primary)")
	if err != nil {
		return err
	}
	primaryAttrs := metatile.ExpandAttributesMap(primaryByMetatile, fieldmap.NumTilesPerMetatile, len(primaryDecompiled.Tiles))

	primaryCfg := compilerConfigFor(ctx, loc, opts, outputDir, !opts.dualLayer, location+" (primary)")
	primaryOut, err := compiler.Compile(fieldmap, primaryCfg, primaryDecompiled, nil, primaryAttrs, nil)
	if err != nil {
		return err
	}
	if err := reportDiagnostics(primaryOut.Ctx, location+" (primary)"); err != nil {
		return err
	}
	primary := primaryOut.AsPrimary()

	secondaryDecompiled, secondaryByMetatile, err := loadTilesetDir(loc, ctx, secondaryDir, opts, !opts.dualLayer, location)
	if err != nil {
		return err
	}
	secondaryAttrs := metatile.ExpandAttributesMap(secondaryByMetatile, fieldmap.NumTilesPerMetatile, len(secondaryDecompiled.Tiles))

	secondaryCfg := compilerConfigFor(ctx, loc, opts, outputDir, !opts.dualLayer, location)
	secondaryOut, err := compiler.Compile(fieldmap, secondaryCfg, secondaryDecompiled, nil, secondaryAttrs, primary)
	if err != nil {
		return err
	}
	if err := reportDiagnostics(secondaryOut.Ctx, location); err != nil {
		return err
	}

	if err := writeCompiledOutput(loc, outputDir, pconfig.AttributesFormatFor(opts.target), fieldmap.NumTilesPerMetatile, secondaryOut.Compiled); err != nil {
		return err
	}
	if err := writeCompileManifest(loc, outputDir, opts.target, !opts.dualLayer, true, fieldmap.NumTilesPerMetatile, secondaryOut.Compiled); err != nil {
		return err
	}
	if opts.cacheAssign {
		if err := writeAssignCache(loc, opts, outputDir, cfgWinningParams(secondaryCfg)); err != nil {
			return err
		}
	}
	return nil
}

func runCompileRaw(loc fsys.Locator, opts *sharedOptions, inputPath, outputDir string) error {
	ctx := diag.NewContext()
	applyWarningModes(ctx, opts)
	location := "compile raw"

	f, err := loc.Open(inputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := importer.DecodePNG(f)
	if err != nil {
		return fmt.Errorf("%s: %w", location, err)
	}
	decompiled, err := importer.ImportFreestanding(img)
	if err != nil {
		return fmt.Errorf("%s: %w", location, err)
	}

	fieldmap, err := pconfig.FieldmapDefaults(opts.target)
	if err != nil {
		return err
	}
	cfg := compilerConfigFor(ctx, loc, opts, outputDir, true, location)

	out, err := compiler.Compile(fieldmap, cfg, decompiled, nil, nil, nil)
	if err != nil {
		return err
	}
	if err := reportDiagnostics(out.Ctx, location); err != nil {
		return err
	}

	// A freestanding sheet has no metatile grouping, so only the tile bank
	// and palettes are meaningful output (original_source/src/tscreate.cpp's
	// standalone freestanding-tile tool writes no metatiles.bin either).
	return writeRawOutput(loc, outputDir, out.Compiled)
}

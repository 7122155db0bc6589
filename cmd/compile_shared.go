package cmd

import (
	"fmt"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aspiringporter/porytiles/internal/behaviors"
	"github.com/aspiringporter/porytiles/internal/cache"
	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/compiler"
	pconfig "github.com/aspiringporter/porytiles/internal/config"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/emitter"
	"github.com/aspiringporter/porytiles/internal/fsys"
	"github.com/aspiringporter/porytiles/internal/importer"
	"github.com/aspiringporter/porytiles/internal/manifest"
	"github.com/aspiringporter/porytiles/internal/metatile"
	"github.com/aspiringporter/porytiles/internal/normalize"
	"github.com/aspiringporter/porytiles/internal/palette"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// tilesPerRow matches original_source's fixed 128px tileset-image width
// (128 / 8px tiles = 16 per row, errors_warnings.cpp's
// error_layerWidthNeq128).
const tilesPerRow = 16

// addCompileFlags registers the flags every compile subcommand shares.
func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().String("target", "pokeemerald", "Target decompilation project preset (pokeemerald, pokefirered, pokeruby)")
	cmd.Flags().String("transparent-color", "magenta", "CSS name or hex color marking transparent pixels")
	cmd.Flags().Bool("dual-layer", false, "Treat layered input as dual-layer (infer and drop whichever of bottom/middle/top is empty per metatile), instead of triple-layer")
	cmd.Flags().String("behaviors", "", "Path to this project's metatile_behaviors.h header")
	cmd.Flags().String("assign-algorithm", "dfs", "Palette assignment search backend: dfs or bfs")
	cmd.Flags().Bool("cache-assign", false, "Read/write an assign.cache of the palette search's winning parameters")
	cmd.Flags().String("cache-file", "assign.cache", "Assign cache file path, relative to the output directory")
	cmd.Flags().Bool("warn-all", false, "Enable every diagnostic warning")
	cmd.Flags().Bool("error-all", false, "Promote every enabled warning to a fatal error")
}

// sharedOptions holds every compile subcommand's parsed shared flags.
type sharedOptions struct {
	target       pconfig.Preset
	transparency color.Rgba32
	dualLayer    bool
	behaviors    string
	algorithm    compiler.AssignAlgorithm
	cacheAssign  bool
	cacheFile    string
	warnAll      bool
	errorAll     bool
}

func readCompileFlags(cmd *cobra.Command) (*sharedOptions, error) {
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
	dualLayer, err := cmd.Flags().GetBool("dual-layer")
	if err != nil {
		return nil, err
	}
	behaviorsPath, err := cmd.Flags().GetString("behaviors")
	if err != nil {
		return nil, err
	}
	algoName, err := cmd.Flags().GetString("assign-algorithm")
	if err != nil {
		return nil, err
	}
	algo := compiler.AlgorithmDepthFirst
	if algoName == "bfs" {
		algo = compiler.AlgorithmBreadthFirst
	}
	cacheAssign, err := cmd.Flags().GetBool("cache-assign")
	if err != nil {
		return nil, err
	}
	cacheFile, err := cmd.Flags().GetString("cache-file")
	if err != nil {
		return nil, err
	}
	warnAll, err := cmd.Flags().GetBool("warn-all")
	if err != nil {
		return nil, err
	}
	errorAll, err := cmd.Flags().GetBool("error-all")
	if err != nil {
		return nil, err
	}
	return &sharedOptions{
		target:       pconfig.Preset(target),
		transparency: transparency,
		dualLayer:    dualLayer,
		behaviors:    behaviorsPath,
		algorithm:    algo,
		cacheAssign:  cacheAssign,
		cacheFile:    cacheFile,
		warnAll:      warnAll,
		errorAll:     errorAll,
	}, nil
}

// applyWarningModes configures ctx per --warn-all/--error-all, mirroring
// the reference compiler's -Wall/-Werror CLI flags
// (original_source/Porytiles-1.X.X/lib/include/porytiles/cli_options.h).
func applyWarningModes(ctx *diag.Context, opts *sharedOptions) {
	if opts.warnAll {
		ctx.SetAllModes(diag.ModeWarn)
	}
	if opts.errorAll {
		ctx.PromoteWarnToError()
	}
}

// warningModesFor builds the map a compiler.CompilerConfig.WarningModes
// field needs from --warn-all/--error-all, since compiler.Compile builds
// its own internal diag.Context rather than accepting the import phase's.
func warningModesFor(opts *sharedOptions) map[diag.WarningKind]diag.WarningMode {
	if !opts.warnAll {
		return nil
	}
	modes := make(map[diag.WarningKind]diag.WarningMode, len(diag.AllWarningKinds))
	mode := diag.ModeWarn
	if opts.errorAll {
		mode = diag.ModeError
	}
	for _, k := range diag.AllWarningKinds {
		modes[k] = mode
	}
	return modes
}

// baseNameNoExt strips a path down to its filename, extension removed, for
// deriving an animation frame's name from its PNG file path.
func baseNameNoExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// loadBehaviorTable parses path's header if given; otherwise, if
// attrsCsvPresent, it records WarnMissingBehaviorsHeader and returns a nil
// table (behavior columns then resolve to 0 rather than aborting the
// compile).
func loadBehaviorTable(loc fsys.Locator, ctx *diag.Context, path string, attrsCsvPresent bool, location string) (behaviors.Table, error) {
	if path == "" {
		if attrsCsvPresent {
			ctx.Warn(diag.WarnMissingBehaviorsHeader, location, "no --behaviors header given; attribute behavior columns will resolve to 0")
		}
		return nil, nil
	}
	f, err := loc.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return behaviors.Parse(f)
}

// loadTilesetDir reads one tileset source directory (primary or
// secondary) into a Decompiled tileset plus its metatile AttributesMap,
// covering layered PNGs, the attributes CSV, and any animations/
// subdirectory.
func loadTilesetDir(loc fsys.Locator, ctx *diag.Context, dir string, opts *sharedOptions, tripleLayer bool, location string) (*normalize.Decompiled, map[int]tileset.Attributes, error) {
	layout := loc.Discover(dir)

	bottomF, err := loc.Open(layout.Bottom)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", location, err)
	}
	defer bottomF.Close()
	middleF, err := loc.Open(layout.Middle)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", location, err)
	}
	defer middleF.Close()
	topF, err := loc.Open(layout.Top)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", location, err)
	}
	defer topF.Close()

	bottom, err := importer.DecodePNG(bottomF)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: bottom layer: %w", location, err)
	}
	middle, err := importer.DecodePNG(middleF)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: middle layer: %w", location, err)
	}
	top, err := importer.DecodePNG(topF)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: top layer: %w", location, err)
	}

	decompiled, err := importer.ImportLayered(ctx, bottom, middle, top, tripleLayer, opts.transparency, location)
	if err != nil {
		return nil, nil, err
	}

	attrsCsvPresent := loc.Exists(layout.AttributesCsv)
	behaviorTable, err := loadBehaviorTable(loc, ctx, opts.behaviors, attrsCsvPresent, location)
	if err != nil {
		return nil, nil, err
	}

	byMetatile := map[int]tileset.Attributes{}
	if attrsCsvPresent {
		csvF, err := loc.Open(layout.AttributesCsv)
		if err != nil {
			return nil, nil, err
		}
		byMetatile, err = importer.ImportAttributesCSV(ctx, csvF, behaviorTable, location)
		csvF.Close()
		if err != nil {
			return nil, nil, err
		}
	} else {
		ctx.Warn(diag.WarnMissingAttributesCsv, location, "no attributes.csv found; every metatile will use zero-valued attributes")
	}

	animNames, err := loc.AnimationDirs(layout.AnimsDir)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range animNames {
		animDir := filepath.Join(layout.AnimsDir, name)
		frameFiles, err := loc.AnimationFrameFiles(animDir)
		if err != nil {
			return nil, nil, err
		}
		animation := normalize.Animation{Name: name}
		for _, framePath := range frameFiles {
			frameF, err := loc.Open(framePath)
			if err != nil {
				return nil, nil, err
			}
			img, err := importer.DecodePNG(frameF)
			frameF.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("%s: animation %q: %w", location, name, err)
			}
			frameName := baseNameNoExt(framePath)
			tiles, err := importer.ImportAnimationFrame(img, name, frameName)
			if err != nil {
				return nil, nil, err
			}
			animation.Frames = append(animation.Frames, normalize.Frame{Name: frameName, Tiles: tiles})
		}
		decompiled.Animations = append(decompiled.Animations, animation)
	}

	return decompiled, byMetatile, nil
}

// compilerConfigFor assembles a CompilerConfig from shared flags, wiring
// in an assign.cache hit when cache-assign is enabled.
func compilerConfigFor(ctx *diag.Context, loc fsys.Locator, opts *sharedOptions, outDir string, tripleLayer bool, location string) compiler.CompilerConfig {
	defaults := palette.DefaultParams()
	cfg := compiler.CompilerConfig{
		TransparencyColor:   opts.transparency,
		TripleLayer:         tripleLayer,
		AssignAlgorithm:     opts.algorithm,
		ExploredNodeCutoff:  defaults.NodeBudget,
		PruneMode:           defaults.Prune,
		PruneCount:          defaults.PruneCount,
		SmartPruneThreshold: defaults.SmartPruneThreshold,
		CacheAssign:         opts.cacheAssign,
		WarningModes:        warningModesFor(opts),
	}
	if opts.cacheAssign {
		cachePath := filepath.Join(outDir, opts.cacheFile)
		exists := loc.Exists(cachePath)
		entry := cache.Load(ctx, exists, func() (io.ReadCloser, error) {
			return loc.Open(cachePath)
		}, location)
		if exists {
			cfg.AssignAlgorithm = entry.Algorithm
			params := entry.Params
			cfg.CachedParams = &params
		}
	}
	return cfg
}

// writeAssignCache persists the shared flags' algorithm and params as
// outDir's assign.cache, so a later compile can seed its first escalation
// step from the search parameters passed in (cfgWinningParams supplies
// the run's configured parameters, not those of the step that won).
func writeAssignCache(loc fsys.Locator, opts *sharedOptions, outDir string, params palette.Params) error {
	cachePath := filepath.Join(outDir, opts.cacheFile)
	f, err := loc.Create(cachePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return cache.Write(f, cache.Entry{Algorithm: opts.algorithm, Params: params})
}

// writeCompiledOutput emits tiles.png, one NN.pal per hardware palette,
// metatiles.bin, and metatile_attributes.bin into outDir. Unlike
// metatiles.bin (one entry per subtile position), metatile_attributes.bin
// holds one record per whole metatile — tilesPerMetatile subtile
// positions share a single attributes record, taken from the first
// position of each metatile (metatile.ExpandAttributesMap already
// replicated the same value across every position in that metatile, so
// any one of them reads back the metatile's attributes).
func writeCompiledOutput(loc fsys.Locator, outDir string, format pconfig.AttributesFormat, tilesPerMetatile int, compiled *tileset.CompiledTileset) error {
	img, err := emitter.TileBankImage(compiled.Tiles, compiled.TilePalette, compiled.Palettes, tilesPerRow)
	if err != nil {
		return fmt.Errorf("building tile bank image: %w", err)
	}
	tilesF, err := loc.Create(filepath.Join(outDir, "tiles.png"))
	if err != nil {
		return err
	}
	if err := png.Encode(tilesF, img); err != nil {
		tilesF.Close()
		return fmt.Errorf("writing tiles.png: %w", err)
	}
	if err := tilesF.Close(); err != nil {
		return err
	}

	for i, pal := range compiled.Palettes {
		palF, err := loc.Create(filepath.Join(outDir, fmt.Sprintf("%d.pal", i)))
		if err != nil {
			return err
		}
		if err := emitter.WriteJASCPalette(palF, pal); err != nil {
			palF.Close()
			return fmt.Errorf("writing palette %d: %w", i, err)
		}
		if err := palF.Close(); err != nil {
			return err
		}
	}

	metatilesF, err := loc.Create(filepath.Join(outDir, "metatiles.bin"))
	if err != nil {
		return err
	}
	if err := emitter.WriteMetatileEntries(metatilesF, compiled.Assignments); err != nil {
		metatilesF.Close()
		return fmt.Errorf("writing metatiles.bin: %w", err)
	}
	if err := metatilesF.Close(); err != nil {
		return err
	}

	numMetatiles := (len(compiled.Assignments) + tilesPerMetatile - 1) / tilesPerMetatile
	attrs := make([]tileset.Attributes, numMetatiles)
	for m := range attrs {
		attrs[m] = compiled.Assignments[m*tilesPerMetatile].Attributes
	}
	attrsF, err := loc.Create(filepath.Join(outDir, "metatile_attributes.bin"))
	if err != nil {
		return err
	}
	if err := emitter.WriteMetatileAttributes(attrsF, attrs, format); err != nil {
		attrsF.Close()
		return fmt.Errorf("writing metatile_attributes.bin: %w", err)
	}
	return attrsF.Close()
}

// writeCompileManifest writes manifest.yaml, a human-readable summary of
// a compile run's output sitting alongside the binary/PNG artifacts,
// grounded on the teacher's dialogues.yaml sidecar export.
func writeCompileManifest(loc fsys.Locator, outDir string, target pconfig.Preset, tripleLayer, secondary bool, tilesPerMetatile int, compiled *tileset.CompiledTileset) error {
	f, err := loc.Create(filepath.Join(outDir, "manifest.yaml"))
	if err != nil {
		return err
	}
	numMetatiles := 0
	if tilesPerMetatile > 0 {
		numMetatiles = (len(compiled.Assignments) + tilesPerMetatile - 1) / tilesPerMetatile
	}
	m := manifest.Compile{
		Target:        string(target),
		TripleLayer:   tripleLayer,
		NumTiles:      len(compiled.Tiles),
		NumPalettes:   len(compiled.Palettes),
		NumMetatiles:  numMetatiles,
		NumAnimations: len(compiled.Anims),
		Secondary:     secondary,
	}
	if err := manifest.Write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeRawOutput emits tiles.png and one NN.pal per hardware palette for
// a freestanding compile, omitting metatiles.bin/metatile_attributes.bin
// since a freestanding sheet carries no metatile grouping.
func writeRawOutput(loc fsys.Locator, outDir string, compiled *tileset.CompiledTileset) error {
	img, err := emitter.TileBankImage(compiled.Tiles, compiled.TilePalette, compiled.Palettes, tilesPerRow)
	if err != nil {
		return fmt.Errorf("building tile bank image: %w", err)
	}
	tilesF, err := loc.Create(filepath.Join(outDir, "tiles.png"))
	if err != nil {
		return err
	}
	if err := png.Encode(tilesF, img); err != nil {
		tilesF.Close()
		return fmt.Errorf("writing tiles.png: %w", err)
	}
	if err := tilesF.Close(); err != nil {
		return err
	}

	for i, pal := range compiled.Palettes {
		palF, err := loc.Create(filepath.Join(outDir, fmt.Sprintf("%d.pal", i)))
		if err != nil {
			return err
		}
		if err := emitter.WriteJASCPalette(palF, pal); err != nil {
			palF.Close()
			return fmt.Errorf("writing palette %d: %w", i, err)
		}
		if err := palF.Close(); err != nil {
			return err
		}
	}
	return nil
}

// reportDiagnostics prints nothing itself (ctx logged each diagnostic
// when it was recorded); it returns an error if ctx accumulated any
// errors, meaning the compile should be considered failed (spec.md
// §7's phase-boundary error accumulation surfaces here as the CLI's exit
// status).
func reportDiagnostics(ctx *diag.Context, location string) error {
	if ctx.ErrorCount() > 0 {
		return fmt.Errorf("%s: %d error(s) encountered, see warnings above", location, ctx.ErrorCount())
	}
	return nil
}

// Package config provides the per-target fieldmap presets, attribute
// formats, and transparency-color parsing that the cmd/ subcommands use,
// together with CLI flags, to assemble the configuration passed to
// compiler.Compile (spec.md §6 "external interfaces"). The fieldmap numbers themselves are grounded on the
// reference compiler's per-game defaults (original_source
// include/ptcontext.h's pokeemeraldDefaults/pokefireredDefaults/
// pokerubyDefaults).
package config

import (
	"fmt"

	"github.com/mazznoer/csscolorparser"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/compiler"
)

// Preset names one of the three supported decompilation projects' default
// fieldmap layouts.
type Preset string

const (
	PresetPokeemerald Preset = "pokeemerald"
	PresetPokefirered Preset = "pokefirered"
	PresetPokeruby    Preset = "pokeruby"
)

// FieldmapDefaults returns the named target's default FieldmapConfig, or
// an error if preset isn't one of the three known projects.
func FieldmapDefaults(preset Preset) (compiler.FieldmapConfig, error) {
	switch preset {
	case PresetPokeemerald:
		return compiler.FieldmapConfig{
			NumTilesInPrimary:     512,
			NumTilesTotal:         1024,
			NumMetatilesInPrimary: 512,
			NumMetatilesTotal:     1024,
			NumPalettesInPrimary:  6,
			NumPalettesTotal:      13,
			NumTilesPerMetatile:   12,
		}, nil
	case PresetPokefirered:
		return compiler.FieldmapConfig{
			NumTilesInPrimary:     640,
			NumTilesTotal:         1024,
			NumMetatilesInPrimary: 640,
			NumMetatilesTotal:     1024,
			NumPalettesInPrimary:  7,
			NumPalettesTotal:      13,
			NumTilesPerMetatile:   12,
		}, nil
	case PresetPokeruby:
		return compiler.FieldmapConfig{
			NumTilesInPrimary:     512,
			NumTilesTotal:         1024,
			NumMetatilesInPrimary: 512,
			NumMetatilesTotal:     1024,
			NumPalettesInPrimary:  6,
			NumPalettesTotal:      12,
			NumTilesPerMetatile:   12,
		}, nil
	default:
		return compiler.FieldmapConfig{}, fmt.Errorf("unknown target preset %q (want one of pokeemerald, pokefirered, pokeruby)", preset)
	}
}

// AttributesFormat selects the metatile-attributes binary layout a target
// expects from the emitter (spec.md §6): Ruby/Emerald pack into 2 bytes,
// Firered into 4.
type AttributesFormat int

const (
	AttributesRubyEmerald AttributesFormat = iota
	AttributesFirered
)

// AttributesFormatFor returns the attributes byte layout the named preset
// uses.
func AttributesFormatFor(preset Preset) AttributesFormat {
	if preset == PresetPokefirered {
		return AttributesFirered
	}
	return AttributesRubyEmerald
}

// ParseTransparencyColor accepts a CSS color name (e.g. "magenta") or a
// hex string (e.g. "#ff00ff") for the --transparent-color flag, using the
// same parser the rest of the pack reaches for rather than hand-rolling a
// hex decoder.
func ParseTransparencyColor(s string) (color.Rgba32, error) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.Rgba32{}, fmt.Errorf("invalid transparency color %q: %w", s, err)
	}
	r, g, b, a := c.RGBA255()
	return color.Rgba32{Red: r, Green: g, Blue: b, Alpha: a}, nil
}

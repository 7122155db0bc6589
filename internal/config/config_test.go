package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/config"
)

func TestFieldmapDefaults_Pokeemerald(t *testing.T) {
	fc, err := config.FieldmapDefaults(config.PresetPokeemerald)
	require.NoError(t, err)
	require.Equal(t, 512, fc.NumTilesInPrimary)
	require.Equal(t, 1024, fc.NumTilesTotal)
	require.Equal(t, 6, fc.NumPalettesInPrimary)
	require.Equal(t, 13, fc.NumPalettesTotal)
	require.Equal(t, 12, fc.NumTilesPerMetatile)
	require.NoError(t, fc.Validate())
}

func TestFieldmapDefaults_PokefireredHasWiderPrimary(t *testing.T) {
	fc, err := config.FieldmapDefaults(config.PresetPokefirered)
	require.NoError(t, err)
	require.Equal(t, 640, fc.NumTilesInPrimary)
	require.Equal(t, 7, fc.NumPalettesInPrimary)
}

func TestFieldmapDefaults_PokerubyHasFewerTotalPalettes(t *testing.T) {
	fc, err := config.FieldmapDefaults(config.PresetPokeruby)
	require.NoError(t, err)
	require.Equal(t, 12, fc.NumPalettesTotal)
}

func TestFieldmapDefaults_UnknownPresetErrors(t *testing.T) {
	_, err := config.FieldmapDefaults(config.Preset("pokeplatinum"))
	require.Error(t, err)
}

func TestAttributesFormatFor_FireredUsesFourByteFormat(t *testing.T) {
	require.Equal(t, config.AttributesFirered, config.AttributesFormatFor(config.PresetPokefirered))
	require.Equal(t, config.AttributesRubyEmerald, config.AttributesFormatFor(config.PresetPokeemerald))
	require.Equal(t, config.AttributesRubyEmerald, config.AttributesFormatFor(config.PresetPokeruby))
}

func TestParseTransparencyColor_AcceptsCssNameAndHex(t *testing.T) {
	magenta, err := config.ParseTransparencyColor("magenta")
	require.NoError(t, err)
	require.Equal(t, uint8(255), magenta.Red)
	require.Equal(t, uint8(0), magenta.Green)
	require.Equal(t, uint8(255), magenta.Blue)

	hex, err := config.ParseTransparencyColor("#ff00ff")
	require.NoError(t, err)
	require.Equal(t, magenta, hex)
}

func TestParseTransparencyColor_RejectsGarbage(t *testing.T) {
	_, err := config.ParseTransparencyColor("not-a-color")
	require.Error(t, err)
}

// Package cmd provides command-line interface functionality for
// Porytiles. Porytiles compiles layered RGBA tilesheets into the binary
// tileset format a Pokemon Game Boy Advance decompilation project's
// fieldmap expects, and can decompile that format back into a sheet.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aspiringporter/porytiles/internal/diag"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "porytiles",
	Short: "Compile and decompile Pokemon GBA decompilation tilesets",
	Long: `Porytiles - compile layered RGBA tilesheets into the tile bank,
palettes, and metatile entries a pokeemerald/pokefirered/pokeruby
fieldmap expects, and decompile that binary format back into a sheet.

Examples:
  porytiles compile primary ./primary_src ./out --target pokeemerald
  porytiles compile secondary ./primary_src ./secondary_src ./out --target pokeemerald
  porytiles compile raw ./sheet.png ./out
  porytiles decompile primary ./compiled_dir ./out --target pokeemerald
  porytiles decompile secondary ./primary_dir ./secondary_dir ./out --target pokeemerald

Use 'porytiles [command] --help' for more information about a command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		diag.SetVerboseMode(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output (show debug messages)")
}

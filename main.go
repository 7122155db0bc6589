// Porytiles compiles layered RGBA tilesheets into the tile bank,
// palettes, and metatile entries a pokeemerald/pokefirered/pokeruby
// fieldmap expects, and decompiles that binary format back into a
// sheet.
package main

import (
	"fmt"
	"os"

	"github.com/aspiringporter/porytiles/cmd"
)

// Version information (injected at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Check for version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("porytiles %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cmd.Execute()
}

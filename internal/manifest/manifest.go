// Package manifest writes a human-readable YAML summary alongside a
// compile or decompile run's binary output, mirroring the teacher's
// practice of pairing binary/PNG exports with a structured YAML
// sidecar describing what was produced.
package manifest

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Compile summarizes one compile subcommand's output.
type Compile struct {
	Target        string `yaml:"target"`
	TripleLayer   bool   `yaml:"triple_layer"`
	NumTiles      int    `yaml:"num_tiles"`
	NumPalettes   int    `yaml:"num_palettes"`
	NumMetatiles  int    `yaml:"num_metatiles"`
	NumAnimations int    `yaml:"num_animations"`
	Secondary     bool   `yaml:"secondary"`
}

// Decompile summarizes one decompile subcommand's output.
type Decompile struct {
	Target          string `yaml:"target"`
	TripleLayer     bool   `yaml:"triple_layer"`
	NumTiles        int    `yaml:"num_tiles"`
	NumPalettes     int    `yaml:"num_palettes"`
	NumMetatiles    int    `yaml:"num_metatiles"`
	MetatilesPerRow int    `yaml:"metatiles_per_row"`
	Secondary       bool   `yaml:"secondary"`
}

// Write encodes v (a Compile or Decompile summary) as indented YAML to w.
func Write(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return enc.Close()
}

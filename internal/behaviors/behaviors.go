// Package behaviors parses a decompilation project's
// "metatile_behaviors.h"-style C header into a name-to-numeric-id table,
// used to resolve the behavior names an attributes CSV refers to
// (original_source's importAttributesFromCsv takes a behaviorMap built
// this way rather than shipping a hardcoded table, since each of
// pokeemerald/pokefirered/pokeruby defines its own behavior set and
// numbering).
package behaviors

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Table maps a behavior's symbolic name (e.g. "MB_TALL_GRASS") to its
// numeric id.
type Table map[string]uint16

// Parse reads #define lines of the form `#define NAME VALUE` (VALUE may
// be decimal or 0x-prefixed hex, matching the C preprocessor constants a
// project's metatile_behaviors.h defines) and returns the resulting
// Table. Lines that aren't #define directives, and #defines whose value
// isn't an integer literal (e.g. a macro expansion), are skipped rather
// than rejected, since real headers interleave include guards and
// unrelated constants.
func Parse(r io.Reader) (Table, error) {
	table := make(Table)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[0] != "#define" {
			continue
		}
		name := fields[1]
		value, err := strconv.ParseUint(strings.TrimSuffix(fields[2], "\r"), 0, 16)
		if err != nil {
			continue
		}
		table[name] = uint16(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading behaviors header: %w", err)
	}
	return table, nil
}

// Lookup resolves name to its numeric id, reporting whether it was
// found.
func (t Table) Lookup(name string) (uint16, bool) {
	id, ok := t[name]
	return id, ok
}

// Name resolves id back to its symbolic name, for writing a decompiled
// attributes CSV's behavior column. Ambiguous ids (more than one name
// sharing a value) resolve to whichever name Go's map iteration visits
// first, which is acceptable since such aliases denote the same
// behavior either way.
func (t Table) Name(id uint16) (string, bool) {
	for name, v := range t {
		if v == id {
			return name, true
		}
	}
	return "", false
}

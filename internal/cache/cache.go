// Package cache persists the palette assigner's winning search
// parameters across runs as a flat "assign.cache" file, so a project
// that has already paid for an expensive escalation once doesn't pay
// for it again on every subsequent compile. Grounded on spec.md
// §4.6/§6's "Assignment cache: textual key=value lines with keys drawn
// from the enumerated compiler-config option names" and the escalation
// matrix documented in internal/compiler.assign.
package cache

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aspiringporter/porytiles/internal/compiler"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/palette"
)

const (
	keyAlgorithm  = "algorithm"
	keyNodeBudget = "explored_node_cutoff"
	keyPruneMode  = "prune_mode"
	keyPruneCount = "prune_count"
	keySmartPrune = "smart_prune_threshold"
)

// Entry is one cached assignment-search outcome: the algorithm plus the
// palette.Params that succeeded last time.
type Entry struct {
	Algorithm compiler.AssignAlgorithm
	Params    palette.Params
}

func algorithmName(a compiler.AssignAlgorithm) string {
	if a == compiler.AlgorithmBreadthFirst {
		return "bfs"
	}
	return "dfs"
}

func parseAlgorithmName(s string) (compiler.AssignAlgorithm, bool) {
	switch s {
	case "dfs":
		return compiler.AlgorithmDepthFirst, true
	case "bfs":
		return compiler.AlgorithmBreadthFirst, true
	default:
		return 0, false
	}
}

func pruneModeName(p palette.PruneMode) string {
	switch p {
	case palette.PruneBestN:
		return "best-n"
	case palette.PruneSmart:
		return "smart"
	default:
		return "none"
	}
}

func parsePruneModeName(s string) (palette.PruneMode, bool) {
	switch s {
	case "none":
		return palette.PruneNone, true
	case "best-n":
		return palette.PruneBestN, true
	case "smart":
		return palette.PruneSmart, true
	default:
		return 0, false
	}
}

// Write serializes e as "key=value" lines, one per CompilerConfig option
// the escalation matrix tunes.
func Write(w io.Writer, e Entry) error {
	lines := []string{
		fmt.Sprintf("%s=%s", keyAlgorithm, algorithmName(e.Algorithm)),
		fmt.Sprintf("%s=%d", keyNodeBudget, e.Params.NodeBudget),
		fmt.Sprintf("%s=%s", keyPruneMode, pruneModeName(e.Params.Prune)),
		fmt.Sprintf("%s=%d", keyPruneCount, e.Params.PruneCount),
		fmt.Sprintf("%s=%s", keySmartPrune, strconv.FormatFloat(e.Params.SmartPruneThreshold, 'g', -1, 64)),
	}
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("writing assign.cache line: %w", err)
		}
	}
	return bw.Flush()
}

// Read parses r's key=value lines into an Entry. Unrecognized or
// malformed lines emit RecoverableInvalidCsvRowFormat-style diagnostics
// via WarnInvalidAssignCache and are skipped rather than aborting the
// whole read; any key left unset keeps its zero value. An unset
// explored_node_cutoff leaves NodeBudget at 0, so compiler.assign's first
// step stops at once and escalates past it; an unset prune_mode means
// PruneNone.
func Read(ctx *diag.Context, r io.Reader, location string) Entry {
	var e Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			ctx.Warn(diag.WarnInvalidAssignCache, location, "malformed assign.cache line %q", line)
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case keyAlgorithm:
			algo, ok := parseAlgorithmName(value)
			if !ok {
				ctx.Warn(diag.WarnInvalidAssignCache, location, "unknown algorithm %q in assign.cache", value)
				continue
			}
			e.Algorithm = algo
		case keyNodeBudget:
			n, err := strconv.Atoi(value)
			if err != nil {
				ctx.Warn(diag.WarnInvalidAssignCache, location, "invalid %s %q in assign.cache", keyNodeBudget, value)
				continue
			}
			e.Params.NodeBudget = n
		case keyPruneMode:
			mode, ok := parsePruneModeName(value)
			if !ok {
				ctx.Warn(diag.WarnInvalidAssignCache, location, "unknown %s %q in assign.cache", keyPruneMode, value)
				continue
			}
			e.Params.Prune = mode
		case keyPruneCount:
			n, err := strconv.Atoi(value)
			if err != nil {
				ctx.Warn(diag.WarnInvalidAssignCache, location, "invalid %s %q in assign.cache", keyPruneCount, value)
				continue
			}
			e.Params.PruneCount = n
		case keySmartPrune:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				ctx.Warn(diag.WarnInvalidAssignCache, location, "invalid %s %q in assign.cache", keySmartPrune, value)
				continue
			}
			e.Params.SmartPruneThreshold = f
		default:
			ctx.Warn(diag.WarnInvalidAssignCache, location, "unrecognized assign.cache key %q", key)
		}
	}
	return e
}

// Load reads the cache file at path if present; if absent, it emits
// WarnMissingAssignCache and returns the zero Entry, matching the
// original's "cache_assign enabled but no assign.cache found" fallback.
func Load(ctx *diag.Context, exists bool, open func() (io.ReadCloser, error), location string) Entry {
	if !exists {
		ctx.Warn(diag.WarnMissingAssignCache, location, "cache_assign is enabled but no assign.cache was found")
		return Entry{}
	}
	f, err := open()
	if err != nil {
		ctx.Warn(diag.WarnMissingAssignCache, location, "assign.cache exists but could not be opened: %v", err)
		return Entry{}
	}
	defer f.Close()
	return Read(ctx, f, location)
}

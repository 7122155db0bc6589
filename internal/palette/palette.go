// Package palette implements the constrained bin-packing search that
// assigns every distinct tile ColorSet to one of K hardware palettes
// (spec.md §4.6), with DFS and BFS backends, branch pruning, and the
// search-parameter escalation matrix.
package palette

import (
	"sort"

	"github.com/aspiringporter/porytiles/internal/tileset"
)

// Result is the outcome of one assignment attempt.
type Result int

const (
	// Success means solution holds one ColorSet per hardware palette.
	Success Result = iota
	// NoSolutionPossible means every branch was exhausted without
	// satisfying every ColorSet's constraints.
	NoSolutionPossible
	// ExploreCutoffReached means the search aborted after visiting
	// Params.NodeBudget nodes without resolving success or failure.
	ExploreCutoffReached
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case NoSolutionPossible:
		return "no solution possible"
	case ExploreCutoffReached:
		return "explore cutoff reached"
	default:
		return "unknown"
	}
}

// PruneMode selects how a search node trims its sorted list of candidate
// hardware palettes before branching (spec.md §4.6).
type PruneMode int

const (
	// PruneNone explores every hardware palette branch.
	PruneNone PruneMode = iota
	// PruneBestN drops the last PruneCount branches after sorting and
	// explores the rest: PruneCount counts branches removed, not branches
	// kept. A PruneCount of 0, or one not below the branch count, explores
	// every branch.
	PruneBestN
	// PruneSmart keeps every branch whose intersection size with the
	// ColorSet being assigned is within SmartPruneThreshold of the best
	// branch's intersection size (the resolved Open Question: rather
	// than a fixed top-N cut, this adapts to how many palettes are
	// genuinely competitive for this particular tile).
	PruneSmart
)

// DefaultSmartPruneThreshold is the fraction of the best branch's
// intersection size that a sibling branch must meet to survive smart
// pruning.
const DefaultSmartPruneThreshold = 0.5

// Params configures one assignment attempt. Escalate builds a sequence
// of Params with progressively looser constraints (spec.md §4.6's
// "search-parameter escalation matrix").
type Params struct {
	NodeBudget          int
	Prune               PruneMode
	PruneCount          int
	SmartPruneThreshold float64
}

// DefaultParams is the first, cheapest entry in the escalation matrix.
func DefaultParams() Params {
	return Params{
		NodeBudget:          1_000_000,
		Prune:               PruneBestN,
		PruneCount:          2,
		SmartPruneThreshold: DefaultSmartPruneThreshold,
	}
}

// Escalate returns the fixed sequence of Params an assigner should retry
// with, in order, stopping at the first Success. Each step widens the
// search: first fewer prunes, then smart-prune, then an unpruned search
// with a much larger node budget, matching spec.md §4.6's guidance that
// escalation trades compile time for a better chance of finding a
// solution before giving up.
func Escalate() []Params {
	return []Params{
		DefaultParams(),
		{NodeBudget: 2_000_000, Prune: PruneBestN, PruneCount: 1, SmartPruneThreshold: DefaultSmartPruneThreshold},
		{NodeBudget: 5_000_000, Prune: PruneSmart, PruneCount: 0, SmartPruneThreshold: DefaultSmartPruneThreshold},
		{NodeBudget: 10_000_000, Prune: PruneNone, PruneCount: 0, SmartPruneThreshold: DefaultSmartPruneThreshold},
	}
}

// state is one node of the search tree. hardwarePalettes and unassigned
// are both copied on branch, matching the reference algorithm's
// copy-per-branch semantics rather than mutate-and-undo, which keeps
// backtracking trivial at the cost of allocation (spec.md §4.6, §9).
type state struct {
	hardwarePalettes []tileset.ColorSet
	unassigned       []tileset.ColorSet
}

func (s state) clone() state {
	hw := make([]tileset.ColorSet, len(s.hardwarePalettes))
	copy(hw, s.hardwarePalettes)
	un := make([]tileset.ColorSet, len(s.unassigned))
	copy(un, s.unassigned)
	return state{hardwarePalettes: hw, unassigned: un}
}

// sortCandidates orders hw by descending intersection size with
// toAssign, breaking ties by ascending popcount (spec.md §4.6's
// heuristic: prefer reusing palettes that already share colors, then
// prefer the smallest of equally-good options). Both comparisons are
// applied via a single stable sort so the relative order of the tied
// group is otherwise preserved, matching std::stable_sort in the
// reference algorithm.
func sortCandidates(hw []tileset.ColorSet, toAssign tileset.ColorSet) {
	sort.SliceStable(hw, func(i, j int) bool {
		iCount := hw[i].IntersectCount(toAssign)
		jCount := hw[j].IntersectCount(toAssign)
		if iCount == jCount {
			return hw[i].Popcount() < hw[j].Popcount()
		}
		return iCount > jCount
	})
}

// stopLimit applies the configured PruneMode to the sorted candidate
// list, returning how many leading entries to actually branch into.
func stopLimit(hw []tileset.ColorSet, toAssign tileset.ColorSet, params Params) int {
	n := len(hw)
	switch params.Prune {
	case PruneNone:
		return n
	case PruneBestN:
		if params.PruneCount <= 0 {
			return n
		}
		if params.PruneCount >= n {
			return n
		}
		return n - params.PruneCount
	case PruneSmart:
		if n == 0 {
			return 0
		}
		best := hw[0].IntersectCount(toAssign)
		if best == 0 {
			return n
		}
		threshold := params.SmartPruneThreshold
		kept := 1
		for kept < n {
			c := hw[kept].IntersectCount(toAssign)
			if float64(c) < float64(best)*threshold {
				break
			}
			kept++
		}
		return kept
	default:
		return n
	}
}

// fits reports whether toAssign can be added to palette without
// exceeding PalSize-1 usable slots (slot 0 is reserved for
// transparency).
func fits(palette, toAssign tileset.ColorSet) bool {
	return palette.Union(toAssign).Popcount() <= tileset.PalSize-1
}

// reusesPrimary reports whether toAssign's colors are entirely
// contained in one of primaryPalettes, letting a secondary tile reuse a
// palette the primary tileset already committed to (spec.md §4.8).
func reusesPrimary(toAssign tileset.ColorSet, primaryPalettes []tileset.ColorSet) (int, bool) {
	for i, p := range primaryPalettes {
		if toAssign.Subset(p) {
			return i, true
		}
	}
	return -1, false
}

// nodeCounter is threaded through recursive DFS calls as a pointer so
// every branch shares the same node budget.
type nodeCounter struct {
	explored int
	budget   int
}

// AssignDepthFirst performs a backtracking depth-first search, trying to
// place every ColorSet in unassigned into one of numPalettes hardware
// palettes such that no palette ever holds more than PalSize-1 distinct
// colors. primaryPalettes, if non-empty, are a paired primary tileset's
// already-committed palettes that a secondary tile may reuse for free
// (spec.md §4.6, §4.8).
func AssignDepthFirst(unassigned []tileset.ColorSet, numPalettes int, primaryPalettes []tileset.ColorSet, params Params) ([]tileset.ColorSet, Result) {
	initial := state{
		hardwarePalettes: make([]tileset.ColorSet, numPalettes),
		unassigned:       append([]tileset.ColorSet(nil), unassigned...),
	}
	counter := &nodeCounter{budget: params.NodeBudget}
	var solution []tileset.ColorSet
	result := assignDepthFirst(initial, &solution, primaryPalettes, params, counter)
	if result != Success {
		return nil, result
	}
	return solution, Success
}

func assignDepthFirst(s state, solution *[]tileset.ColorSet, primaryPalettes []tileset.ColorSet, params Params, counter *nodeCounter) Result {
	counter.explored++
	if counter.explored > counter.budget {
		return ExploreCutoffReached
	}

	if len(s.unassigned) == 0 {
		*solution = append(*solution, s.hardwarePalettes...)
		return Success
	}

	toAssign := s.unassigned[len(s.unassigned)-1]

	if len(primaryPalettes) > 0 {
		if _, ok := reusesPrimary(toAssign, primaryPalettes); ok {
			next := s.clone()
			next.unassigned = next.unassigned[:len(next.unassigned)-1]
			result := assignDepthFirst(next, solution, primaryPalettes, params, counter)
			if result == Success || result == ExploreCutoffReached {
				return result
			}
		}
	}

	sortCandidates(s.hardwarePalettes, toAssign)
	limit := stopLimit(s.hardwarePalettes, toAssign, params)

	for i := 0; i < limit; i++ {
		p := s.hardwarePalettes[i]
		if !fits(p, toAssign) {
			continue
		}

		next := s.clone()
		next.unassigned = next.unassigned[:len(next.unassigned)-1]
		next.hardwarePalettes[i] = next.hardwarePalettes[i].Union(toAssign)

		result := assignDepthFirst(next, solution, primaryPalettes, params, counter)
		if result == Success || result == ExploreCutoffReached {
			return result
		}
	}

	return NoSolutionPossible
}

// AssignBreadthFirst performs a breadth-first search over the same state
// space as AssignDepthFirst, using a visited-state set to avoid
// re-exploring equivalent assignments and a secondary low-priority queue
// so that zero-intersection branches are only explored once every
// branch with some intersection has been tried first (spec.md §4.6).
// Primary-palette reuse is not supported on the BFS backend, matching
// the reference implementation's restriction to primary/standalone
// compiles.
func AssignBreadthFirst(unassigned []tileset.ColorSet, numPalettes int, params Params) ([]tileset.ColorSet, Result) {
	initial := state{
		hardwarePalettes: make([]tileset.ColorSet, numPalettes),
		unassigned:       append([]tileset.ColorSet(nil), unassigned...),
	}

	type queueItem struct {
		hw  []tileset.ColorSet
		n   int // count of remaining unassigned entries
	}

	key := func(it queueItem) string {
		b := make([]byte, 0, len(it.hw)*32+8)
		for _, cs := range it.hw {
			for _, w := range cs {
				b = append(b,
					byte(w), byte(w>>8), byte(w>>16), byte(w>>24),
					byte(w>>32), byte(w>>40), byte(w>>48), byte(w>>56))
			}
		}
		b = append(b, byte(it.n), byte(it.n>>8), byte(it.n>>16), byte(it.n>>24))
		return string(b)
	}

	visited := make(map[string]bool)
	var queue, lowPriority []queueItem

	start := queueItem{hw: initial.hardwarePalettes, n: len(initial.unassigned)}
	queue = append(queue, start)
	visited[key(start)] = true

	explored := 0
	for len(queue) > 0 || len(lowPriority) > 0 {
		explored++
		if explored > params.NodeBudget {
			return nil, ExploreCutoffReached
		}

		var current queueItem
		if len(queue) > 0 {
			current, queue = queue[0], queue[1:]
		} else {
			current, lowPriority = lowPriority[0], lowPriority[1:]
		}

		if current.n == 0 {
			return current.hw, Success
		}

		toAssign := initial.unassigned[current.n-1]

		sortCandidates(current.hw, toAssign)
		limit := stopLimit(current.hw, toAssign, params)

		sawIntersection := false
		for i := 0; i < limit; i++ {
			p := current.hw[i]
			if !fits(p, toAssign) {
				continue
			}
			intersects := p.IntersectCount(toAssign) > 0
			if intersects {
				sawIntersection = true
			}

			nextHW := make([]tileset.ColorSet, len(current.hw))
			copy(nextHW, current.hw)
			nextHW[i] = nextHW[i].Union(toAssign)
			next := queueItem{hw: nextHW, n: current.n - 1}

			k := key(next)
			if visited[k] {
				continue
			}
			visited[k] = true

			if sawIntersection && !intersects {
				lowPriority = append(lowPriority, next)
			} else {
				queue = append(queue, next)
			}
		}
	}

	return nil, NoSolutionPossible
}

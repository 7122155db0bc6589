package palette_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/palette"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

func colorSet(bits ...int) tileset.ColorSet {
	var cs tileset.ColorSet
	for _, b := range bits {
		cs.Set(b)
	}
	return cs
}

func TestAssignDepthFirst_PacksDisjointSetsTogetherWhenTheyFit(t *testing.T) {
	unassigned := []tileset.ColorSet{
		colorSet(0, 1),
		colorSet(2, 3),
	}
	solution, result := palette.AssignDepthFirst(unassigned, 2, nil, palette.Params{NodeBudget: 1000, Prune: palette.PruneNone})
	require.Equal(t, palette.Success, result)
	require.Len(t, solution, 2)

	total := 0
	for _, p := range solution {
		total += p.Popcount()
	}
	require.Equal(t, 4, total)
}

func TestAssignDepthFirst_NoSolutionWhenSetsExceedCapacity(t *testing.T) {
	big := make([]int, tileset.PalSize)
	for i := range big {
		big[i] = i
	}
	unassigned := []tileset.ColorSet{colorSet(big...)}
	_, result := palette.AssignDepthFirst(unassigned, 1, nil, palette.Params{NodeBudget: 1000, Prune: palette.PruneNone})
	require.Equal(t, palette.NoSolutionPossible, result)
}

func TestAssignDepthFirst_ReusesPrimaryPaletteWhenSubset(t *testing.T) {
	primary := []tileset.ColorSet{colorSet(0, 1, 2)}
	unassigned := []tileset.ColorSet{colorSet(0, 1)}
	solution, result := palette.AssignDepthFirst(unassigned, 1, primary, palette.Params{NodeBudget: 1000, Prune: palette.PruneNone})
	require.Equal(t, palette.Success, result)
	require.Len(t, solution, 1)
	require.Equal(t, 0, solution[0].Popcount())
}

func TestAssignDepthFirst_ExploreCutoffReachedOnTinyBudget(t *testing.T) {
	unassigned := []tileset.ColorSet{colorSet(0), colorSet(1), colorSet(2)}
	_, result := palette.AssignDepthFirst(unassigned, 3, nil, palette.Params{NodeBudget: 1, Prune: palette.PruneNone})
	require.Equal(t, palette.ExploreCutoffReached, result)
}

func TestAssignBreadthFirst_FindsSolutionEquivalentToDFS(t *testing.T) {
	unassigned := []tileset.ColorSet{
		colorSet(0, 1),
		colorSet(2, 3),
	}
	solution, result := palette.AssignBreadthFirst(unassigned, 2, palette.Params{NodeBudget: 1000, Prune: palette.PruneNone})
	require.Equal(t, palette.Success, result)
	require.Len(t, solution, 2)
}

func TestEscalate_IsMonotonicallyWiderBudgets(t *testing.T) {
	steps := palette.Escalate()
	require.True(t, len(steps) >= 2)
	for i := 1; i < len(steps); i++ {
		require.GreaterOrEqual(t, steps[i].NodeBudget, steps[i-1].NodeBudget)
	}
}

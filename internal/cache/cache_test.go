package cache_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aspiringporter/porytiles/internal/cache"
	"github.com/aspiringporter/porytiles/internal/compiler"
	"github.com/aspiringporter/porytiles/internal/diag"
	"github.com/aspiringporter/porytiles/internal/palette"
)

func TestWriteThenRead_RoundTripsAnEntry(t *testing.T) {
	entry := cache.Entry{
		Algorithm: compiler.AlgorithmBreadthFirst,
		Params: palette.Params{
			NodeBudget:          2_000_000,
			Prune:               palette.PruneSmart,
			PruneCount:          0,
			SmartPruneThreshold: 0.5,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, cache.Write(&buf, entry))

	ctx := diag.NewContext()
	got := cache.Read(ctx, &buf, "assign.cache")
	require.Equal(t, 0, ctx.ErrorCount())
	require.Equal(t, entry, got)
}

func TestRead_SkipsMalformedLinesAndWarns(t *testing.T) {
	data := "algorithm=dfs\nnot-a-valid-line\nexplored_node_cutoff=500\n"
	ctx := diag.NewContext()
	ctx.SetMode(diag.WarnInvalidAssignCache, diag.ModeWarn)

	got := cache.Read(ctx, strings.NewReader(data), "assign.cache")
	require.Equal(t, compiler.AlgorithmDepthFirst, got.Algorithm)
	require.Equal(t, 500, got.Params.NodeBudget)
}

func TestRead_UnknownAlgorithmIsSkippedNotFatal(t *testing.T) {
	data := "algorithm=quantum\nexplored_node_cutoff=10\n"
	ctx := diag.NewContext()
	ctx.SetMode(diag.WarnInvalidAssignCache, diag.ModeWarn)

	got := cache.Read(ctx, strings.NewReader(data), "assign.cache")
	require.Equal(t, compiler.AlgorithmDepthFirst, got.Algorithm) // zero value, unknown skipped
	require.Equal(t, 10, got.Params.NodeBudget)
}

func TestLoad_MissingFileWarnsAndReturnsZeroEntry(t *testing.T) {
	ctx := diag.NewContext()
	ctx.SetMode(diag.WarnMissingAssignCache, diag.ModeWarn)

	got := cache.Load(ctx, false, func() (io.ReadCloser, error) { return nil, nil }, "assign.cache")
	require.Equal(t, cache.Entry{}, got)
}

func TestLoad_PresentFileReadsThrough(t *testing.T) {
	data := "algorithm=bfs\nexplored_node_cutoff=99\nprune_mode=best-n\nprune_count=2\nsmart_prune_threshold=0.25\n"
	ctx := diag.NewContext()

	got := cache.Load(ctx, true, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(data)), nil
	}, "assign.cache")

	require.Equal(t, compiler.AlgorithmBreadthFirst, got.Algorithm)
	require.Equal(t, 99, got.Params.NodeBudget)
	require.Equal(t, palette.PruneBestN, got.Params.Prune)
	require.Equal(t, 2, got.Params.PruneCount)
	require.InDelta(t, 0.25, got.Params.SmartPruneThreshold, 0.0001)
}

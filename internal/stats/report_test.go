package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"grammateus/internal/model"
)

func TestWriteRunArtifacts(t *testing.T) {
	base := t.TempDir()
	artifacts := RunArtifacts{
		Run: model.RunRecord{
			ID:           "run-1",
			CreatedAtUTC: "2026-08-29T10:00:00Z",
			Problem:      "sum_to_target",
			BestExpr:     "Add(4, 5)",
		},
		Generations: []model.GenerationRecord{
			{Generation: 1, Best: 12, Mean: 40},
			{Generation: 2, Best: 3, Mean: 22},
		},
		Best: &model.IndividualRecord{ID: "g2-i4", Expr: "Add(4, 5)"},
	}

	runDir, err := WriteRunArtifacts(base, artifacts)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "run-1"), runDir)

	for _, name := range []string{"run.json", "generations.json", "best.json"} {
		_, err := os.Stat(filepath.Join(runDir, name))
		require.NoError(t, err, "artifact %s", name)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{})
	require.Error(t, err)
}

func TestWriteRunArtifactsSkipsBestWhenAbsent(t *testing.T) {
	runDir, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{
		Run: model.RunRecord{ID: "run-failed"},
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(runDir, "best.json"))
	require.True(t, os.IsNotExist(err))
}

func TestRunIndexUpsertAndOrder(t *testing.T) {
	base := t.TempDir()

	entries := []RunIndexEntry{
		{RunID: "run-a", Problem: "even_parity", CreatedAtUTC: "2026-08-28T09:00:00Z"},
		{RunID: "run-b", Problem: "sum_to_target", CreatedAtUTC: "2026-08-29T09:00:00Z"},
	}
	for _, e := range entries {
		require.NoError(t, AppendRunIndex(base, e))
	}

	// Upsert replaces the existing entry instead of duplicating it.
	require.NoError(t, AppendRunIndex(base, RunIndexEntry{
		RunID: "run-a", Problem: "even_parity", CreatedAtUTC: "2026-08-28T09:00:00Z", BestExpr: "Xor(a, b)",
	}))

	index, err := ListRunIndex(base)
	require.NoError(t, err)
	require.Len(t, index, 2)
	require.Equal(t, "run-b", index[0].RunID)
	require.Equal(t, "run-a", index[1].RunID)
	require.Equal(t, "Xor(a, b)", index[1].BestExpr)
}

func TestAppendRunIndexRequiresRunID(t *testing.T) {
	require.Error(t, AppendRunIndex(t.TempDir(), RunIndexEntry{}))
}

func TestListRunIndexMissing(t *testing.T) {
	index, err := ListRunIndex(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, index)
}

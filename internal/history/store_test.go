package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grindloop/grind/internal/events"
	"github.com/grindloop/grind/internal/loop"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID, err := store.StartRun(ctx, "backlog.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	rec := store.Recorder(runID)
	require.NoError(t, rec.RecordIteration(ctx, &loop.IterationResult{
		Iteration:     1,
		Duration:      90 * time.Second,
		Stats:         loop.Stats{ToolCalls: 12, ToolErrors: 1},
		CommitHash:    "abc1234",
		CommitMessage: "Add parser",
		CostUSD:       0.42,
		Usage:         &events.Usage{InputTokens: 1000, OutputTokens: 250},
	}))
	require.NoError(t, rec.RecordIteration(ctx, &loop.IterationResult{
		Iteration: 2,
		Duration:  30 * time.Second,
		Error:     "agent reported failure",
	}))

	require.NoError(t, store.FinishRun(ctx, runID, loop.ExitComplete))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "backlog.yaml", runs[0].BacklogPath)
	assert.Equal(t, loop.ExitComplete.String(), runs[0].ExitStatus)
	assert.Equal(t, 2, runs[0].Iterations)
	require.NotNil(t, runs[0].FinishedAt)

	iters, err := store.RunIterations(ctx, runID)
	require.NoError(t, err)
	require.Len(t, iters, 2)

	assert.Equal(t, 1, iters[0].Iteration)
	assert.Equal(t, 90*time.Second, iters[0].Duration)
	assert.Equal(t, 12, iters[0].ToolCalls)
	assert.Equal(t, 1, iters[0].ToolErrors)
	assert.Equal(t, "abc1234", iters[0].CommitHash)
	assert.Equal(t, "Add parser", iters[0].CommitMessage)
	assert.InDelta(t, 0.42, iters[0].CostUSD, 0.0001)
	assert.Equal(t, int64(1000), iters[0].InputTokens)
	assert.Equal(t, int64(250), iters[0].OutputTokens)

	assert.Equal(t, 2, iters[1].Iteration)
	assert.Equal(t, "agent reported failure", iters[1].Error)
	assert.Empty(t, iters[1].CommitHash)
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Insert with distinct timestamps so ordering is deterministic.
	for i, started := range []time.Time{
		time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
	} {
		_, err := store.db.ExecContext(ctx,
			`INSERT INTO runs (id, backlog_path, started_at) VALUES (?, ?, ?)`,
			[]string{"run-a", "run-b"}[i], "backlog.yaml", started)
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)
}

func TestListRunsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.StartRun(ctx, "backlog.yaml")
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRunIterationsEmptyRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID, err := store.StartRun(ctx, "backlog.yaml")
	require.NoError(t, err)

	iters, err := store.RunIterations(ctx, runID)
	require.NoError(t, err)
	assert.Empty(t, iters)
}

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestRunLifecycle(t *testing.T) {
	h := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, h.RecordQueued(ctx, Run{ID: "r1", Identity: "orchestrator", Prompt: "revenue Q1", Channel: "http"}))

	run, err := h.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, run.Status)
	assert.Equal(t, "revenue Q1", run.Prompt)
	assert.False(t, run.Done())
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, h.MarkRunning(ctx, "r1"))
	run, err = h.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)

	require.NoError(t, h.MarkFinished(ctx, "r1", "reports/data_report.txt", []string{"prompt", "report"}, nil))
	run, err = h.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "reports/data_report.txt", run.Report)
	assert.Equal(t, []string{"prompt", "report"}, run.Keys)
	assert.True(t, run.Done())
	assert.NotNil(t, run.FinishedAt)
}

func TestMarkFinishedWithError(t *testing.T) {
	h := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, h.RecordQueued(ctx, Run{ID: "r2", Prompt: "p"}))
	require.NoError(t, h.MarkFinished(ctx, "r2", "", nil, errors.New("load_data: step load_into_dataframe: no such table")))

	run, err := h.GetRun(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Contains(t, run.Error, "no such table")
	assert.Empty(t, run.Keys)
}

func TestUnknownRun(t *testing.T) {
	h := openTestStore(t)
	ctx := context.Background()

	_, err := h.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(h.MarkRunning(ctx, "missing"), ErrRunNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	h := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, h.RecordQueued(ctx, Run{ID: id, Prompt: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	runs, err := h.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

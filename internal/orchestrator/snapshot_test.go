package orchestrator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	m := NewManager(nil)

	first, err := m.Create(CreateTaskRequest{Title: "Design schema", Assignee: RoleArchitect})
	require.NoError(t, err)
	second, err := m.Create(CreateTaskRequest{
		Title:     "Implement schema",
		Assignee:  RoleImplementer,
		DependsOn: []string{first.ID},
	})
	require.NoError(t, err)

	require.NoError(t, m.Start(first.ID))
	require.NoError(t, m.Complete(first.ID, TaskResult{Success: true, Result: "done", TokensUsed: 12}))

	store, err := NewSnapshotStore(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)
	require.NoError(t, store.Save(m.Snapshot()))

	loaded, err := store.Load()
	require.NoError(t, err)

	restored := NewManager(nil)
	restored.Restore(loaded)

	got, err := restored.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	done, err := restored.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "done", done.Result)

	// The second task's dependency is satisfied by the restored completed list.
	plan := restored.ExecutionPlan()
	assert.Contains(t, plan.Ready, second.ID)

	// New tasks continue the ID sequence instead of colliding.
	third, err := restored.Create(CreateTaskRequest{Title: "Review schema"})
	require.NoError(t, err)
	assert.Equal(t, "task_3", third.ID)
}

func TestSnapshotRestoreResetsInProgress(t *testing.T) {
	m := NewManager(nil)
	task, err := m.Create(CreateTaskRequest{Title: "Long running"})
	require.NoError(t, err)
	require.NoError(t, m.Start(task.ID))

	restored := NewManager(nil)
	restored.Restore(m.Snapshot())

	got, err := restored.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestSnapshotStoreMissingFile(t *testing.T) {
	store, err := NewSnapshotStore(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Queue)
	assert.Empty(t, snap.Completed)
}

package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(text) / 4 }

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager(nil)

	task, err := m.Create(CreateTaskRequest{
		Title:     "Design auth flow",
		Assignee:  RoleArchitect,
		Priority:  PriorityHigh,
		DependsOn: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, "task_1", task.ID)
	assert.Equal(t, StatusPending, task.Status)
	assert.False(t, task.CreatedAt.IsZero())

	got, err := m.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)

	_, err = m.Get("task_999")
	assert.Error(t, err)
}

func TestManagerCreateRequiresTitle(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Create(CreateTaskRequest{Title: "   "})
	assert.Error(t, err)
}

func TestManagerListInsertionOrder(t *testing.T) {
	m := NewManager(nil)
	for _, title := range []string{"first", "second", "third"} {
		_, err := m.Create(CreateTaskRequest{Title: title})
		require.NoError(t, err)
	}

	tasks := m.List()
	require.Len(t, tasks, 3)
	assert.Equal(t, "first", tasks[0].Title)
	assert.Equal(t, "third", tasks[2].Title)
}

func TestManagerUpdatePartial(t *testing.T) {
	m := NewManager(nil)
	task, err := m.Create(CreateTaskRequest{Title: "original", Assignee: RoleImplementer})
	require.NoError(t, err)

	newTitle := "revised"
	newPriority := PriorityHigh
	updated, err := m.Update(task.ID, UpdateTaskRequest{Title: &newTitle, Priority: &newPriority})
	require.NoError(t, err)
	assert.Equal(t, "revised", updated.Title)
	assert.Equal(t, PriorityHigh, updated.Priority)
	assert.Equal(t, RoleImplementer, updated.Assignee, "untouched fields survive")

	empty := " "
	_, err = m.Update(task.ID, UpdateTaskRequest{Title: &empty})
	assert.Error(t, err)
}

func TestManagerCompletedTasksAreImmutable(t *testing.T) {
	m := NewManager(nil)
	task, err := m.Create(CreateTaskRequest{Title: "done soon", Assignee: RoleTester})
	require.NoError(t, err)
	require.NoError(t, m.Start(task.ID))
	require.NoError(t, m.Complete(task.ID, TaskResult{Success: true}))

	title := "too late"
	_, err = m.Update(task.ID, UpdateTaskRequest{Title: &title})
	assert.Error(t, err)

	// Still retrievable from the completed list.
	got, err := m.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestExecutionPlanDependencyPartition(t *testing.T) {
	m := NewManager(nil)

	design, err := m.Create(CreateTaskRequest{Title: "design", Assignee: RoleArchitect})
	require.NoError(t, err)
	build, err := m.Create(CreateTaskRequest{
		Title:    "build",
		Assignee: RoleImplementer,
		DependsOn: []string{
			design.ID,
		},
	})
	require.NoError(t, err)
	unassigned, err := m.Create(CreateTaskRequest{Title: "triage"})
	require.NoError(t, err)

	plan := m.ExecutionPlan()
	assert.Equal(t, []string{design.ID}, plan.Ready)
	assert.ElementsMatch(t, []string{build.ID, unassigned.ID}, plan.Waiting)
	assert.Empty(t, plan.Blocked)

	require.NoError(t, m.Start(design.ID))
	require.NoError(t, m.Complete(design.ID, TaskResult{Success: true}))

	plan = m.ExecutionPlan()
	assert.Equal(t, []string{build.ID}, plan.Ready)
	assert.Equal(t, []string{design.ID}, plan.Completed)
}

func TestExecutionPlanFailedDependencySatisfies(t *testing.T) {
	m := NewManager(nil)
	dep, err := m.Create(CreateTaskRequest{Title: "flaky step", Assignee: RoleImplementer})
	require.NoError(t, err)
	next, err := m.Create(CreateTaskRequest{Title: "follow-up", Assignee: RoleReviewer, DependsOn: []string{dep.ID}})
	require.NoError(t, err)

	require.NoError(t, m.Start(dep.ID))
	require.NoError(t, m.Complete(dep.ID, TaskResult{Success: false, Result: "boom"}))

	plan := m.ExecutionPlan()
	assert.Contains(t, plan.Ready, next.ID, "a failed dependency still counts as finished")
	assert.Empty(t, plan.Blocked)
}

func TestExecutionPlanCancelledDependencyBlocks(t *testing.T) {
	m := NewManager(nil)
	dep, err := m.Create(CreateTaskRequest{Title: "abandoned", Assignee: RoleImplementer})
	require.NoError(t, err)
	next, err := m.Create(CreateTaskRequest{Title: "downstream", Assignee: RoleReviewer, DependsOn: []string{dep.ID}})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(dep.ID))

	plan := m.ExecutionPlan()
	assert.Equal(t, []string{next.ID}, plan.Blocked)
	assert.Empty(t, plan.Ready)
	assert.Empty(t, plan.Waiting)
}

func TestExecutionPlanUnknownDependencyWaitsForever(t *testing.T) {
	m := NewManager(nil)
	task, err := m.Create(CreateTaskRequest{Title: "orphan", Assignee: RoleTester, DependsOn: []string{"task_404"}})
	require.NoError(t, err)

	plan := m.ExecutionPlan()
	assert.Equal(t, []string{task.ID}, plan.Waiting)
	assert.Empty(t, plan.Ready)
	assert.Empty(t, plan.Blocked)
}

func TestExecutionPlanReadyOrderedByPriority(t *testing.T) {
	m := NewManager(nil)
	low, err := m.Create(CreateTaskRequest{Title: "low", Assignee: RoleTester, Priority: PriorityLow})
	require.NoError(t, err)
	high, err := m.Create(CreateTaskRequest{Title: "high", Assignee: RoleTester, Priority: PriorityHigh})
	require.NoError(t, err)
	medium, err := m.Create(CreateTaskRequest{Title: "medium", Assignee: RoleTester, Priority: PriorityMedium})
	require.NoError(t, err)

	plan := m.ExecutionPlan()
	assert.Equal(t, []string{high.ID, medium.ID, low.ID}, plan.Ready)
}

func TestManagerMetricsAggregation(t *testing.T) {
	m := NewManager(nil, WithTokenCounter(wordCounter{}))

	ok, err := m.Create(CreateTaskRequest{Title: "succeeds", Assignee: RoleImplementer})
	require.NoError(t, err)
	bad, err := m.Create(CreateTaskRequest{Title: "fails", Assignee: RoleImplementer})
	require.NoError(t, err)

	require.NoError(t, m.Start(ok.ID))
	require.NoError(t, m.Complete(ok.ID, TaskResult{
		Success:    true,
		Duration:   2 * time.Second,
		TokensUsed: 120,
		Result:     "all green",
	}))
	require.NoError(t, m.Start(bad.ID))
	require.NoError(t, m.Complete(bad.ID, TaskResult{
		Success:  false,
		Duration: 4 * time.Second,
		Result:   "compile error in handler",
	}))

	metrics := m.Metrics()
	assert.Equal(t, 2, metrics.TasksCreated)
	assert.Equal(t, 1, metrics.TasksCompleted)
	assert.Equal(t, 1, metrics.TasksFailed)
	assert.Equal(t, 3*time.Second, metrics.AverageDuration)
	assert.Greater(t, metrics.Uptime, time.Duration(0))
	// 120 reported plus the estimate for the failed task's result text.
	assert.Equal(t, 120+len("compile error in handler")/4, metrics.TokensUsed)
}

func TestManagerEventsOrderAndUnsubscribe(t *testing.T) {
	m := NewManager(nil)

	var seen []string
	unsubscribe := m.Subscribe(func(e Event) {
		seen = append(seen, e.Type)
	})

	task, err := m.Create(CreateTaskRequest{Title: "observable", Assignee: RoleImplementer})
	require.NoError(t, err)
	require.NoError(t, m.Start(task.ID))
	require.NoError(t, m.Complete(task.ID, TaskResult{Success: true}))

	assert.Equal(t, []string{EventTaskCreated, EventTaskStarted, EventTaskCompleted}, seen)

	unsubscribe()
	_, err = m.Create(CreateTaskRequest{Title: "unseen"})
	require.NoError(t, err)
	assert.Len(t, seen, 3, "no delivery after unsubscribe")
}

func TestManagerEventCarriesTaskSnapshot(t *testing.T) {
	m := NewManager(nil)

	var got Event
	m.Subscribe(func(e Event) { got = e })

	task, err := m.Create(CreateTaskRequest{Title: "snapshot", Assignee: RoleReviewer})
	require.NoError(t, err)

	require.Equal(t, task.ID, got.TaskID)
	require.NotNil(t, got.Task)
	assert.Equal(t, "snapshot", got.Task.Title)

	// Mutating the delivered snapshot must not affect manager state.
	got.Task.Title = "tampered"
	fresh, err := m.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", fresh.Title)
}

func TestManagerStartRejectsNonPending(t *testing.T) {
	m := NewManager(nil)
	task, err := m.Create(CreateTaskRequest{Title: "busy", Assignee: RoleImplementer})
	require.NoError(t, err)

	require.NoError(t, m.Start(task.ID))
	assert.Error(t, m.Start(task.ID))
}

func TestManagerCancelEmitsAndMoves(t *testing.T) {
	m := NewManager(nil)
	task, err := m.Create(CreateTaskRequest{Title: "doomed"})
	require.NoError(t, err)

	var events []string
	m.Subscribe(func(e Event) { events = append(events, e.Type) })

	require.NoError(t, m.Cancel(task.ID))
	assert.Equal(t, []string{EventTaskCancelled}, events)

	got, err := m.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Error(t, m.Cancel(task.ID), "cancel is queue-only")
}

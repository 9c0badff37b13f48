package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbcode/internal/orchestrator"
)

type stubClient struct {
	response string
	err      error
	requests []Request
}

func (s *stubClient) Complete(_ context.Context, req Request) (*Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Content: s.response, Usage: Usage{InputTokens: 10, OutputTokens: 20}}, nil
}

func (s *stubClient) Provider() string { return "stub" }

func mustRoles(t *testing.T) *RoleSet {
	t.Helper()
	roles, err := DefaultRoles()
	require.NoError(t, err)
	return roles
}

func TestPlannerCreatesTasksWithDependencies(t *testing.T) {
	client := &stubClient{response: `Here is the plan:
` + "```json" + `
[
  {"title": "Design the API", "assignee": "architect", "priority": "high", "acceptance_criteria": ["endpoints documented"]},
  {"title": "Implement handlers", "assignee": "implementer", "priority": "medium", "depends_on": [0]},
  {"title": "Write tests", "assignee": "tester", "depends_on": [1]}
]
` + "```"}

	manager := orchestrator.NewManager(nil)
	planner := NewPlanner(client, mustRoles(t), nil)

	tasks, err := planner.Plan(context.Background(), manager, "build a small REST API")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, orchestrator.RoleArchitect, tasks[0].Assignee)
	assert.Equal(t, orchestrator.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, []string{tasks[0].ID}, tasks[1].DependsOn)
	assert.Equal(t, []string{tasks[1].ID}, tasks[2].DependsOn)

	plan := manager.ExecutionPlan()
	assert.Equal(t, []string{tasks[0].ID}, plan.Ready)
}

func TestPlannerRepairsSloppyJSON(t *testing.T) {
	// Trailing comma and unquoted key, the kind of output repair exists for.
	client := &stubClient{response: `[
  {title: "Only task", "assignee": "implementer",},
]`}

	manager := orchestrator.NewManager(nil)
	planner := NewPlanner(client, mustRoles(t), nil)

	tasks, err := planner.Plan(context.Background(), manager, "one thing")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Only task", tasks[0].Title)
}

func TestPlannerRejectsForwardDependencies(t *testing.T) {
	client := &stubClient{response: `[
  {"title": "a", "assignee": "implementer", "depends_on": [1]},
  {"title": "b", "assignee": "implementer"}
]`}

	planner := NewPlanner(client, mustRoles(t), nil)
	_, err := planner.Plan(context.Background(), orchestrator.NewManager(nil), "goal")
	assert.Error(t, err)
}

func TestPlannerUnknownAssigneeLeftUnassigned(t *testing.T) {
	client := &stubClient{response: `[{"title": "odd", "assignee": "designer"}]`}

	manager := orchestrator.NewManager(nil)
	planner := NewPlanner(client, mustRoles(t), nil)

	tasks, err := planner.Plan(context.Background(), manager, "goal")
	require.NoError(t, err)
	assert.Empty(t, string(tasks[0].Assignee))

	// Unassigned tasks wait rather than run.
	plan := manager.ExecutionPlan()
	assert.Equal(t, []string{tasks[0].ID}, plan.Waiting)
}

func TestPlannerEmptyGoal(t *testing.T) {
	planner := NewPlanner(&stubClient{}, mustRoles(t), nil)
	_, err := planner.Plan(context.Background(), orchestrator.NewManager(nil), "  ")
	assert.Error(t, err)
}

func TestPlannerNoJSONInOutput(t *testing.T) {
	client := &stubClient{response: "I cannot produce a plan for that."}
	planner := NewPlanner(client, mustRoles(t), nil)
	_, err := planner.Plan(context.Background(), orchestrator.NewManager(nil), "goal")
	assert.Error(t, err)
}

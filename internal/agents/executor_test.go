package agents

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "thumbcode/internal/errors"
	"thumbcode/internal/orchestrator"
)

func newTestTask(assignee orchestrator.AgentRole) *orchestrator.AgentTask {
	return &orchestrator.AgentTask{
		ID:                 "task_1",
		Title:              "Add input validation",
		Description:        "Validate the login form fields.",
		Assignee:           assignee,
		AcceptanceCriteria: []string{"empty email rejected", "short password rejected"},
	}
}

func TestTaskExecutorSuccess(t *testing.T) {
	client := &stubClient{response: "validation added"}
	executor := NewTaskExecutor(client, mustRoles(t), nil)

	result, err := executor.Execute(context.Background(), newTestTask(orchestrator.RoleImplementer))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "validation added", result.Result)
	assert.Equal(t, 30, result.TokensUsed)
	assert.Equal(t, "implementer", result.AgentID)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.NotEmpty(t, req.System)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Add input validation")
	assert.Contains(t, req.Messages[0].Content, "empty email rejected")
}

func TestTaskExecutorPermanentErrorFailsTask(t *testing.T) {
	client := &stubClient{err: &apperrors.PermanentError{
		Err:     fmt.Errorf("invalid api key"),
		Message: "the provider rejected the credentials",
	}}
	executor := NewTaskExecutor(client, mustRoles(t), nil)

	result, err := executor.Execute(context.Background(), newTestTask(orchestrator.RoleImplementer))
	require.NoError(t, err, "provider failures surface in the result, not the error")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Result)
	assert.Len(t, client.requests, 1, "permanent errors are not retried")
}

func TestTaskExecutorRetriesTransientErrors(t *testing.T) {
	client := &flakyClient{failures: 2}
	executor := NewTaskExecutor(client, mustRoles(t), nil)
	executor.retry.BaseDelay = 0

	result, err := executor.Execute(context.Background(), newTestTask(orchestrator.RoleTester))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, client.calls)
}

func TestTaskExecutorUnknownRoleFailsTask(t *testing.T) {
	executor := NewTaskExecutor(&stubClient{response: "x"}, mustRoles(t), nil)

	result, err := executor.Execute(context.Background(), newTestTask("designer"))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Result, "designer")
}

func TestTaskExecutorEmptyResponseFailsTask(t *testing.T) {
	executor := NewTaskExecutor(&stubClient{response: "   \n"}, mustRoles(t), nil)

	result, err := executor.Execute(context.Background(), newTestTask(orchestrator.RoleReviewer))
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestTaskExecutorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &stubClient{err: ctx.Err()}
	executor := NewTaskExecutor(client, mustRoles(t), nil)

	_, err := executor.Execute(ctx, newTestTask(orchestrator.RoleImplementer))
	assert.ErrorIs(t, err, context.Canceled)
}

type flakyClient struct {
	failures int
	calls    int
}

func (f *flakyClient) Complete(_ context.Context, _ Request) (*Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &apperrors.TransientError{Err: fmt.Errorf("status 503")}
	}
	return &Response{Content: "recovered"}, nil
}

func (f *flakyClient) Provider() string { return "flaky" }

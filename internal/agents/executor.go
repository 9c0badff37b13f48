package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	apperrors "thumbcode/internal/errors"
	"thumbcode/internal/logging"
	"thumbcode/internal/observability"
	"thumbcode/internal/orchestrator"
)

const tracerName = "thumbcode/agents"

// TaskExecutor turns orchestrator tasks into model calls using the prompt
// for the task's assigned role. It satisfies orchestrator.Executor.
type TaskExecutor struct {
	client Client
	roles  *RoleSet
	retry  apperrors.RetryConfig
	logger logging.Logger
}

// NewTaskExecutor builds an executor backed by the given provider client.
func NewTaskExecutor(client Client, roles *RoleSet, logger logging.Logger) *TaskExecutor {
	return &TaskExecutor{
		client: client,
		roles:  roles,
		retry:  apperrors.DefaultRetryConfig(),
		logger: logging.OrNop(logger),
	}
}

// Execute runs one task. Model-level failures (permanent API errors, empty
// output) are reported through the TaskResult so the run continues with the
// remaining tasks; only context cancellation stops the whole run.
func (e *TaskExecutor) Execute(ctx context.Context, task *orchestrator.AgentTask) (orchestrator.TaskResult, error) {
	started := time.Now()
	result := orchestrator.TaskResult{
		TaskID:    task.ID,
		AgentID:   string(task.Assignee),
		StartedAt: started,
	}

	prompt, err := e.roles.Prompt(task.Assignee)
	if err != nil {
		result.Success = false
		result.Result = err.Error()
		result.CompletedAt = time.Now()
		return result, nil
	}

	resp, err := apperrors.RetryWithResultAndLog(ctx, e.retry, func(ctx context.Context) (*Response, error) {
		ctx, span := otel.Tracer(tracerName).Start(ctx, observability.SpanLLMComplete)
		defer span.End()

		resp, err := e.client.Complete(ctx, Request{
			System:      prompt.System,
			Messages:    []Message{{Role: RoleUser, Content: buildTaskPrompt(task, prompt)}},
			MaxTokens:   prompt.MaxTokens,
			Temperature: prompt.Temperature,
		})
		if err != nil {
			span.SetAttributes(observability.ErrorAttrs(err)...)
			return nil, err
		}
		span.SetAttributes(observability.LLMAttrs(e.client.Provider(), resp.Model,
			resp.Usage.InputTokens, resp.Usage.OutputTokens)...)
		return resp, nil
	}, e.logger)
	result.Duration = time.Since(started)
	result.CompletedAt = time.Now()

	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Success = false
		result.Result = apperrors.FormatForUser(err)
		return result, nil
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		result.Success = false
		result.Result = "model returned an empty response"
		return result, nil
	}

	result.Success = true
	result.Result = content
	result.TokensUsed = resp.Usage.InputTokens + resp.Usage.OutputTokens
	return result, nil
}

// buildTaskPrompt assembles the user message for a task: description,
// acceptance criteria, references, and the role's standing instructions.
func buildTaskPrompt(task *orchestrator.AgentTask, prompt RolePrompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", task.Description)
	}
	if len(task.AcceptanceCriteria) > 0 {
		b.WriteString("\nAcceptance criteria:\n")
		for _, criterion := range task.AcceptanceCriteria {
			fmt.Fprintf(&b, "- %s\n", criterion)
		}
	}
	if len(task.References) > 0 {
		b.WriteString("\nReferences:\n")
		for _, ref := range task.References {
			fmt.Fprintf(&b, "- %s\n", ref)
		}
	}
	if len(prompt.Instructions) > 0 {
		b.WriteString("\nInstructions:\n")
		for _, instruction := range prompt.Instructions {
			fmt.Fprintf(&b, "- %s\n", instruction)
		}
	}
	return b.String()
}

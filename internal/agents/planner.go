package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.opentelemetry.io/otel"

	"thumbcode/internal/logging"
	"thumbcode/internal/observability"
	"thumbcode/internal/orchestrator"
)

// Planner asks the architect model to decompose a goal into tasks.
type Planner struct {
	client Client
	roles  *RoleSet
	logger logging.Logger
}

// NewPlanner wires a planner to a provider client and role prompts.
func NewPlanner(client Client, roles *RoleSet, logger logging.Logger) *Planner {
	return &Planner{
		client: client,
		roles:  roles,
		logger: logging.OrNop(logger),
	}
}

// plannedTask mirrors the JSON shape the model is asked to produce. Task
// references use zero-based positions within the plan, resolved to real IDs
// when the tasks are created.
type plannedTask struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Assignee           string   `json:"assignee"`
	Priority           string   `json:"priority"`
	DependsOn          []int    `json:"depends_on"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

const planInstruction = `Decompose the goal into tasks. Respond with a JSON array only, no prose.
Each element: {"title": string, "description": string, "assignee": one of %s,
"priority": "low"|"medium"|"high", "depends_on": array of zero-based indexes
into this plan, "acceptance_criteria": array of strings}.`

// Plan asks the model for a task breakdown and creates the tasks on the
// manager, wiring up dependency IDs. It returns the created tasks in plan
// order.
func (p *Planner) Plan(ctx context.Context, manager *orchestrator.Manager, goal string) ([]*orchestrator.AgentTask, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("planning goal is empty")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, observability.SpanPlanCreate)
	defer span.End()

	prompt, err := p.roles.Prompt(orchestrator.RoleArchitect)
	if err != nil {
		return nil, err
	}

	roleNames := make([]string, 0, len(orchestrator.KnownRoles()))
	for _, role := range orchestrator.KnownRoles() {
		roleNames = append(roleNames, string(role))
	}

	resp, err := p.client.Complete(ctx, Request{
		System: prompt.System,
		Messages: []Message{
			{Role: RoleUser, Content: fmt.Sprintf(planInstruction, strings.Join(roleNames, "|")) + "\n\nGoal: " + goal},
		},
		MaxTokens:   prompt.MaxTokens,
		Temperature: prompt.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("planning completion: %w", err)
	}

	planned, err := parsePlan(resp.Content)
	if err != nil {
		return nil, err
	}

	return p.createTasks(manager, planned)
}

// parsePlan extracts the JSON task array from model output. Models wrap
// JSON in code fences or emit trailing commas often enough that the raw
// payload is repaired before giving up.
func parsePlan(content string) ([]plannedTask, error) {
	payload := extractJSONArray(content)
	if payload == "" {
		return nil, fmt.Errorf("no JSON array found in plan output")
	}

	var planned []plannedTask
	if err := json.Unmarshal([]byte(payload), &planned); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return nil, fmt.Errorf("parse plan: %w (repair also failed: %v)", err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &planned); err != nil {
			return nil, fmt.Errorf("parse repaired plan: %w", err)
		}
	}
	if len(planned) == 0 {
		return nil, fmt.Errorf("plan contained no tasks")
	}
	return planned, nil
}

// extractJSONArray pulls the outermost [...] span out of content, ignoring
// markdown fences and any prose around it.
func extractJSONArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func (p *Planner) createTasks(manager *orchestrator.Manager, planned []plannedTask) ([]*orchestrator.AgentTask, error) {
	known := make(map[orchestrator.AgentRole]bool)
	for _, role := range orchestrator.KnownRoles() {
		known[role] = true
	}

	created := make([]*orchestrator.AgentTask, 0, len(planned))
	for i, item := range planned {
		assignee := orchestrator.AgentRole(item.Assignee)
		if item.Assignee != "" && !known[assignee] {
			p.logger.Warn("plan task %d has unknown assignee %q, leaving unassigned", i, item.Assignee)
			assignee = ""
		}

		var deps []string
		for _, idx := range item.DependsOn {
			if idx < 0 || idx >= i {
				return nil, fmt.Errorf("plan task %d depends on invalid index %d", i, idx)
			}
			deps = append(deps, created[idx].ID)
		}

		task, err := manager.Create(orchestrator.CreateTaskRequest{
			Type:               "agent",
			Title:              item.Title,
			Description:        item.Description,
			Assignee:           assignee,
			Priority:           normalizePriority(item.Priority),
			DependsOn:          deps,
			AcceptanceCriteria: item.AcceptanceCriteria,
		})
		if err != nil {
			return nil, fmt.Errorf("create plan task %d: %w", i, err)
		}
		created = append(created, task)
	}

	p.logger.Info("planned %d task(s)", len(created))
	return created, nil
}

func normalizePriority(raw string) orchestrator.TaskPriority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return orchestrator.PriorityHigh
	case "low":
		return orchestrator.PriorityLow
	case "medium":
		return orchestrator.PriorityMedium
	}
	return ""
}

package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"thumbcode/internal/logging"
)

// TokenCounter estimates token usage for result text that arrives without a
// provider-reported count.
type TokenCounter interface {
	Count(text string) int
}

// Manager owns the in-memory task queue, the completed list, the result log,
// and event fan-out. All state is guarded by a single mutex; the scale is a
// single user's local session.
type Manager struct {
	logger logging.Logger
	tokens TokenCounter

	mu           sync.RWMutex
	queue        map[string]*AgentTask
	order        []string // queue insertion order
	completed    []*AgentTask
	results      []TaskResult
	taskSeq      uint64
	createdTotal int
	subscribers  []subscriber
	subSeq       int
	startTime    time.Time
}

type subscriber struct {
	id int
	fn func(Event)
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithTokenCounter wires a token estimator for results without usage counts.
func WithTokenCounter(tc TokenCounter) ManagerOption {
	return func(m *Manager) { m.tokens = tc }
}

// NewManager creates an empty task manager. Uptime is measured from here.
func NewManager(logger logging.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:    logging.OrNop(logger),
		queue:     make(map[string]*AgentTask),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create adds a task to the queue.
func (m *Manager) Create(req CreateTaskRequest) (*AgentTask, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	m.mu.Lock()
	m.taskSeq++
	m.createdTotal++
	now := time.Now()
	task := &AgentTask{
		ID:                 fmt.Sprintf("task_%d", m.taskSeq),
		Type:               req.Type,
		Title:              title,
		Description:        req.Description,
		Assignee:           req.Assignee,
		Status:             StatusPending,
		Priority:           req.Priority,
		DependsOn:          req.DependsOn,
		AcceptanceCriteria: req.AcceptanceCriteria,
		References:         req.References,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.queue[task.ID] = task
	m.order = append(m.order, task.ID)
	snapshot := copyTask(task)
	m.mu.Unlock()

	m.logger.Debug("Created task %s: %s", task.ID, task.Title)
	m.emit(EventTaskCreated, snapshot)
	return snapshot, nil
}

// Get returns a task from the queue or the completed list.
func (m *Manager) Get(id string) (*AgentTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if task, ok := m.queue[id]; ok {
		return copyTask(task), nil
	}
	for _, task := range m.completed {
		if task.ID == id {
			return copyTask(task), nil
		}
	}
	return nil, fmt.Errorf("task %s not found", id)
}

// List returns queued tasks in insertion order followed by completed tasks.
func (m *Manager) List() []*AgentTask {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]*AgentTask, 0, len(m.order)+len(m.completed))
	for _, id := range m.order {
		if task, ok := m.queue[id]; ok {
			tasks = append(tasks, copyTask(task))
		}
	}
	for _, task := range m.completed {
		tasks = append(tasks, copyTask(task))
	}
	return tasks
}

// Update applies partial updates to a queued task. Terminal tasks are immutable.
func (m *Manager) Update(id string, req UpdateTaskRequest) (*AgentTask, error) {
	m.mu.Lock()
	task, ok := m.queue[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("task %s not found in queue", id)
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			m.mu.Unlock()
			return nil, fmt.Errorf("task title cannot be empty")
		}
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Assignee != nil {
		task.Assignee = *req.Assignee
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DependsOn != nil {
		task.DependsOn = req.DependsOn
	}
	task.UpdatedAt = time.Now()
	snapshot := copyTask(task)
	m.mu.Unlock()

	m.emit(EventTaskUpdated, snapshot)
	return snapshot, nil
}

// Start marks a pending task in progress.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	task, ok := m.queue[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task %s not found in queue", id)
	}
	if task.Status != StatusPending {
		m.mu.Unlock()
		return fmt.Errorf("task %s is %s, not pending", id, task.Status)
	}
	task.Status = StatusInProgress
	task.UpdatedAt = time.Now()
	snapshot := copyTask(task)
	m.mu.Unlock()

	m.emit(EventTaskStarted, snapshot)
	return nil
}

// Complete records a result, moves the task to the completed list, and sets
// its terminal status from the result's success flag.
func (m *Manager) Complete(id string, result TaskResult) error {
	m.mu.Lock()
	task, ok := m.queue[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task %s not found in queue", id)
	}

	if result.TokensUsed == 0 && m.tokens != nil && result.Result != "" {
		result.TokensUsed = m.tokens.Count(result.Result)
	}
	result.TaskID = id

	if result.Success {
		task.Status = StatusCompleted
	} else {
		task.Status = StatusFailed
	}
	task.Result = result.Result
	task.UpdatedAt = time.Now()

	delete(m.queue, id)
	m.removeFromOrder(id)
	m.completed = append(m.completed, task)
	m.results = append(m.results, result)
	snapshot := copyTask(task)
	m.mu.Unlock()

	if result.Success {
		m.emit(EventTaskCompleted, snapshot)
	} else {
		m.emit(EventTaskFailed, snapshot)
	}
	return nil
}

// Cancel moves a queued task to the completed list with cancelled status.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	task, ok := m.queue[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task %s not found in queue", id)
	}
	task.Status = StatusCancelled
	task.UpdatedAt = time.Now()

	delete(m.queue, id)
	m.removeFromOrder(id)
	m.completed = append(m.completed, task)
	snapshot := copyTask(task)
	m.mu.Unlock()

	m.emit(EventTaskCancelled, snapshot)
	return nil
}

// ExecutionPlan partitions task IDs by dependency satisfaction. See the
// ExecutionPlan type for the contract; classification rules:
//   - ready: pending, non-empty assignee, every dependency on the completed
//     list with a non-cancelled terminal status
//   - blocked: any dependency cancelled
//   - waiting: everything else in the queue (unmet deps, no assignee, or
//     already running)
//   - completed: IDs on the completed list
func (m *Manager) ExecutionPlan() ExecutionPlan {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statusByID := make(map[string]TaskStatus, len(m.completed))
	plan := ExecutionPlan{
		Ready:     []string{},
		Waiting:   []string{},
		Blocked:   []string{},
		Completed: make([]string, 0, len(m.completed)),
	}
	for _, task := range m.completed {
		statusByID[task.ID] = task.Status
		plan.Completed = append(plan.Completed, task.ID)
	}

	for _, id := range m.order {
		task, ok := m.queue[id]
		if !ok {
			continue
		}

		blocked := false
		satisfied := true
		for _, dep := range task.DependsOn {
			status, done := statusByID[dep]
			if !done {
				// Unknown or still-queued dependency: not satisfied. A
				// dependency on a nonexistent task never becomes ready.
				satisfied = false
				continue
			}
			if status == StatusCancelled {
				blocked = true
			}
		}

		switch {
		case blocked:
			plan.Blocked = append(plan.Blocked, id)
		case satisfied && task.Assignee != "" && task.Status == StatusPending:
			plan.Ready = append(plan.Ready, id)
		default:
			plan.Waiting = append(plan.Waiting, id)
		}
	}

	sortByPriority(plan.Ready, m.queue)
	return plan
}

// Results returns a copy of the result log.
func (m *Manager) Results() []TaskResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TaskResult, len(m.results))
	copy(out, m.results)
	return out
}

// Metrics derives aggregate statistics from the result log.
func (m *Manager) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := Metrics{
		TasksCreated: m.createdTotal,
		Uptime:       time.Since(m.startTime),
	}

	var totalDuration time.Duration
	for _, result := range m.results {
		if result.Success {
			metrics.TasksCompleted++
		} else {
			metrics.TasksFailed++
		}
		metrics.TokensUsed += result.TokensUsed
		totalDuration += result.Duration
	}
	if len(m.results) > 0 {
		metrics.AverageDuration = totalDuration / time.Duration(len(m.results))
	}
	return metrics
}

// Subscribe registers an event callback and returns an unsubscribe func.
// Delivery is synchronous and in registration order; the scale (a handful of
// local listeners) does not call for queuing or backpressure.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	m.subSeq++
	id := m.subSeq
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subscribers {
			if sub.id == id {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) emit(eventType string, task *AgentTask) {
	m.mu.RLock()
	subs := make([]subscriber, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if task != nil {
		event.TaskID = task.ID
		event.Task = task
	}
	for _, sub := range subs {
		sub.fn(event)
	}
}

func (m *Manager) removeFromOrder(id string) {
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

var priorityRank = map[TaskPriority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	"":             1,
	PriorityLow:    2,
}

func sortByPriority(ids []string, queue map[string]*AgentTask) {
	sort.SliceStable(ids, func(i, j int) bool {
		return priorityRank[queue[ids[i]].Priority] < priorityRank[queue[ids[j]].Priority]
	})
}

func copyTask(task *AgentTask) *AgentTask {
	clone := *task
	clone.DependsOn = append([]string(nil), task.DependsOn...)
	clone.AcceptanceCriteria = append([]string(nil), task.AcceptanceCriteria...)
	clone.References = append([]string(nil), task.References...)
	return &clone
}

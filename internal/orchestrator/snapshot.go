package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Snapshot is the serializable state of a Manager, used by the CLI to carry
// the queue across invocations. The server keeps everything in memory.
type Snapshot struct {
	Queue     []*AgentTask `json:"queue"`
	Completed []*AgentTask `json:"completed"`
	Results   []TaskResult `json:"results"`
	TaskSeq   uint64       `json:"task_seq"`
	Created   int          `json:"created_total"`
	SavedAt   time.Time    `json:"saved_at"`
}

// Snapshot captures the manager's current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Queue:     make([]*AgentTask, 0, len(m.order)),
		Completed: make([]*AgentTask, 0, len(m.completed)),
		Results:   make([]TaskResult, len(m.results)),
		TaskSeq:   m.taskSeq,
		Created:   m.createdTotal,
		SavedAt:   time.Now(),
	}
	for _, id := range m.order {
		if task, ok := m.queue[id]; ok {
			snap.Queue = append(snap.Queue, copyTask(task))
		}
	}
	for _, task := range m.completed {
		snap.Completed = append(snap.Completed, copyTask(task))
	}
	copy(snap.Results, m.results)
	return snap
}

// Restore replaces the manager's state with a snapshot. In-progress tasks
// are reset to pending: the process that was executing them is gone.
func (m *Manager) Restore(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = make(map[string]*AgentTask, len(snap.Queue))
	m.order = m.order[:0]
	for _, task := range snap.Queue {
		restored := copyTask(task)
		if restored.Status == StatusInProgress {
			restored.Status = StatusPending
		}
		m.queue[restored.ID] = restored
		m.order = append(m.order, restored.ID)
	}

	m.completed = make([]*AgentTask, 0, len(snap.Completed))
	for _, task := range snap.Completed {
		m.completed = append(m.completed, copyTask(task))
	}

	m.results = make([]TaskResult, len(snap.Results))
	copy(m.results, snap.Results)
	m.taskSeq = snap.TaskSeq
	m.createdTotal = snap.Created
}

// SnapshotStore persists manager snapshots as a JSON file.
type SnapshotStore struct {
	path string
	mu   sync.Mutex
}

// NewSnapshotStore creates the parent directory and returns a store writing
// to path.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotStore{path: path}, nil
}

// Save writes the snapshot atomically via a temp file rename.
func (s *SnapshotStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. A missing file returns an empty snapshot.
func (s *SnapshotStore) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	return snap, nil
}

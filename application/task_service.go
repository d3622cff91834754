package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
	"a11ydash/logging"
)

// TaskService is the ephemeral task store: task id to task, task id to
// ordered result list, held purely in process memory. It is deliberately
// volatile, empty after every restart, which is what forces the
// reconciliation engine to exist.
//
// Each stored record is replaced atomically as a whole under the lock;
// callers always receive clones, so no in-place partial mutation is ever
// visible outside the store.
type TaskService struct {
	mu      sync.RWMutex
	tasks   map[string]*accessibility.Task
	results map[string][]*accessibility.Result

	runner *AuditRunner
	newID  func() string
	logger *logging.Logger
}

// NewTaskService creates an empty ephemeral store using runner for audits.
func NewTaskService(runner *AuditRunner) *TaskService {
	return &TaskService{
		tasks:   make(map[string]*accessibility.Task),
		results: make(map[string][]*accessibility.Result),
		runner:  runner,
		newID:   uuid.NewString,
		logger:  logging.Default().WithComponent("task_service"),
	}
}

// Get returns the task with the given id.
func (s *TaskService) Get(id string) (*accessibility.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", contracts.ErrNotFound, id)
	}
	return task.Clone(), nil
}

// List returns every task, sorted by name for stable rendering.
func (s *TaskService) List() []*accessibility.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*accessibility.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Name != tasks[j].Name {
			return tasks[i].Name < tasks[j].Name
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// Create validates fields, assigns a new id and stores the task with an
// empty result list. Only whitelisted fields are honored; a missing
// standard gets the default.
func (s *TaskService) Create(fields map[string]any) (*accessibility.Task, error) {
	task := &accessibility.Task{}
	task.ApplyFields(fields)

	if task.URL == "" {
		return nil, fmt.Errorf("%w: missing url", contracts.ErrValidation)
	}
	if task.Name == "" {
		return nil, fmt.Errorf("%w: missing name", contracts.ErrValidation)
	}
	if task.Standard == "" {
		task.Standard = accessibility.DefaultStandard
	}
	if !accessibility.ValidStandard(task.Standard) {
		return nil, fmt.Errorf("%w: unknown standard %q", contracts.ErrValidation, task.Standard)
	}

	task.ID = s.newID()

	s.mu.Lock()
	s.tasks[task.ID] = task.Clone()
	s.results[task.ID] = nil
	s.mu.Unlock()

	s.logger.Info("Task created", "task_id", task.ID, "url", task.URL)
	return task, nil
}

// Edit merges the whitelisted known fields into the task. Unknown keys
// are silently dropped, never errors.
func (s *TaskService) Edit(id string, fields map[string]any) (*accessibility.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", contracts.ErrNotFound, id)
	}

	updated := existing.Clone()
	updated.ApplyFields(fields)
	s.tasks[id] = updated

	return updated.Clone(), nil
}

// Remove deletes the task and its result list. Removing an absent task
// is not an error.
func (s *TaskService) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, id)
	delete(s.results, id)
}

// Run executes one audit for the task, appends the result to the task's
// list and refreshes the cached last-result summary. On engine failure
// no result is recorded and the prior summary stands.
func (s *TaskService) Run(ctx context.Context, id string) (*accessibility.Result, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, task)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The task may have been removed while the run was in flight; the
	// result is then abandoned, matching the no-cancellation contract.
	stored, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", contracts.ErrNotFound, id)
	}

	s.results[id] = append(s.results[id], result.Clone())
	updated := stored.Clone()
	updated.LastResult = result.Summary()
	s.tasks[id] = updated

	return result, nil
}

// ListResults returns the task's results, newest first.
func (s *TaskService) ListResults(id string) ([]*accessibility.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tasks[id]; !ok {
		return nil, fmt.Errorf("%w: task %s", contracts.ErrNotFound, id)
	}

	results := make([]*accessibility.Result, 0, len(s.results[id]))
	for _, result := range s.results[id] {
		results = append(results, result.Clone())
	}
	accessibility.SortResultsNewestFirst(results)
	return results, nil
}

package application

import (
	"context"
	"errors"
	"fmt"

	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
	"a11ydash/logging"
)

// TaskCard is one entry of the reconciled task list view.
type TaskCard struct {
	Task *accessibility.Task

	// Runs is the number of durable results owned by the task.
	Runs int64

	// Synthetic marks a card constructed purely from durable state
	// because the server no longer knows the task.
	Synthetic bool

	// HasStats reports whether the card can show last-run counts.
	HasStats bool

	// NoResults marks a card with neither server nor durable stats.
	NoResults bool
}

// ListView is the reconciled task list page model.
type ListView struct {
	Cards []TaskCard
}

// DetailView is the reconciled task detail page model.
type DetailView struct {
	Task *accessibility.Task

	// Known reports whether either store could supply identity fields.
	// When false the page renders a placeholder; no record is
	// synthesized until an edit or run supplies data.
	Known bool

	// Results is the full history, newest first.
	Results []*accessibility.Result

	// LastRun is the newest result, nil when there is none.
	LastRun *accessibility.Result
}

// ReconcileService aligns the ephemeral server view with the durable
// store on every page load: it merges record pairs field by field, writes
// the merged records back, shrinks durable membership after an explicit
// delete, and synthesizes view entries for tasks only the durable side
// remembers.
//
// Conflict rules: identity fields come from whichever view currently has
// data (server wins while it has any; durable wins when the server is
// blank). Derived fields, the last-result summary and the result
// history, are the union of both, with the durable store as the only
// durable source of truth for anything the server has forgotten.
// Membership is governed by the server only at explicit, user-signaled
// deletion.
type ReconcileService struct {
	tasks   *TaskService
	runner  *AuditRunner
	durable contracts.DurableStore
	logger  *logging.Logger
}

// NewReconcileService creates the reconciliation engine.
func NewReconcileService(tasks *TaskService, runner *AuditRunner, durable contracts.DurableStore) *ReconcileService {
	return &ReconcileService{
		tasks:   tasks,
		runner:  runner,
		durable: durable,
		logger:  logging.Default().WithComponent("reconcile_service"),
	}
}

// ListPage performs the list-page reconciliation protocol. The steps run
// strictly in order because later steps depend on the merged state
// written by earlier ones. justDeleted signals a just-completed delete,
// the only point at which durable membership may shrink without an
// explicit per-task delete.
//
// Persistence failures during reconciliation are logged and the step is
// skipped; a degraded pass must never corrupt or blank out a view that
// was previously good.
func (s *ReconcileService) ListPage(ctx context.Context, justDeleted bool) *ListView {
	// Step 1: extract the server-rendered record set.
	rendered := s.tasks.List()
	renderedIDs := make(map[string]bool, len(rendered))

	// Steps 2-3: merge each extracted record with its durable
	// counterpart and write the merged record back.
	merged := make(map[string]*accessibility.Task, len(rendered))
	for _, extracted := range rendered {
		renderedIDs[extracted.ID] = true

		existing, err := s.durable.GetTask(ctx, extracted.ID)
		if err != nil {
			s.logger.Reconcile("Skipping merge, durable read failed", "task_id", extracted.ID, "error", err.Error())
			merged[extracted.ID] = extracted
			continue
		}

		record := accessibility.MergeTask(extracted, existing)
		if err := s.durable.SaveTask(ctx, record); err != nil {
			s.logger.Reconcile("Skipping write-back, durable save failed", "task_id", extracted.ID, "error", err.Error())
		}
		merged[extracted.ID] = record
	}

	// Step 4: after an explicit delete the server's membership is
	// authoritative; durable tasks it no longer renders are removed,
	// cascading to their results.
	if justDeleted {
		durableTasks, err := s.durable.GetTasks(ctx)
		if err != nil {
			s.logger.Reconcile("Skipping membership shrink, durable list failed", "error", err.Error())
		} else {
			for _, task := range durableTasks {
				if renderedIDs[task.ID] {
					continue
				}
				if err := s.durable.DeleteTask(ctx, task.ID); err != nil {
					s.logger.Error("Cascade delete failed during reconciliation", "task_id", task.ID, "error", err)
					continue
				}
				s.logger.Reconcile("Removed durable task absent from server view", "task_id", task.ID)
			}
		}
	}

	view := &ListView{}
	for _, extracted := range rendered {
		view.Cards = append(view.Cards, s.buildCard(ctx, merged[extracted.ID], false))
	}

	// Step 5: synthesize cards for tasks only the durable side remembers.
	durableTasks, err := s.durable.GetTasks(ctx)
	if err != nil {
		s.logger.Reconcile("Skipping synthetic cards, durable list failed", "error", err.Error())
		return view
	}
	for _, task := range durableTasks {
		if renderedIDs[task.ID] {
			continue
		}
		view.Cards = append(view.Cards, s.buildCard(ctx, task, true))
	}

	return view
}

// buildCard is step 6 of the list protocol applied to one record: stats
// are patched in from the durable last-result summary when the server
// rendered none; a card with neither gets the explicit no-results marker.
func (s *ReconcileService) buildCard(ctx context.Context, task *accessibility.Task, synthetic bool) TaskCard {
	card := TaskCard{
		Task:      task,
		Synthetic: synthetic,
		HasStats:  task.LastResult != nil,
		NoResults: task.LastResult == nil,
	}

	runs, err := s.durable.CountResultsByTask(ctx, task.ID)
	if err != nil {
		s.logger.Reconcile("Run count unavailable", "task_id", task.ID, "error", err.Error())
	} else {
		card.Runs = runs
	}

	return card
}

// DetailPage performs the detail-page reconciliation protocol.
func (s *ReconcileService) DetailPage(ctx context.Context, id string) *DetailView {
	serverTask, err := s.tasks.Get(id)
	if err != nil && !errors.Is(err, contracts.ErrNotFound) {
		s.logger.Error("Ephemeral read failed", "task_id", id, "error", err)
	}

	durableTask, err := s.durable.GetTask(ctx, id)
	if err != nil {
		s.logger.Reconcile("Durable read failed on detail page", "task_id", id, "error", err.Error())
	}

	view := &DetailView{}
	switch {
	case serverTask != nil:
		// Server has data: its identity wins; merge and write back so
		// the durable record follows.
		record := accessibility.MergeTask(serverTask, durableTask)
		if err := s.durable.SaveTask(ctx, record); err != nil {
			s.logger.Reconcile("Skipping write-back, durable save failed", "task_id", id, "error", err.Error())
		}
		view.Task = record
		view.Known = true
	case durableTask != nil:
		// Server rendered a placeholder: patch identity from the
		// durable record.
		view.Task = durableTask
		view.Known = true
	default:
		// Neither side knows the task. Nothing is synthesized; the
		// task stays unknown until an edit or run supplies data.
		view.Task = &accessibility.Task{ID: id}
		return view
	}

	// Results: a populated server view is authoritative and never
	// downgraded. Only when the server rendered none does the durable
	// history fill in.
	var results []*accessibility.Result
	if serverTask != nil {
		if serverResults, err := s.tasks.ListResults(id); err == nil {
			results = serverResults
		}
	}
	if len(results) == 0 {
		durableResults, err := s.durable.GetResultsByTask(ctx, id)
		if err != nil {
			s.logger.Reconcile("Durable result load failed", "task_id", id, "error", err.Error())
		} else {
			accessibility.SortResultsNewestFirst(durableResults)
			results = durableResults
		}
	}

	view.Results = results
	if len(results) > 0 {
		view.LastRun = results[0]
	}
	return view
}

// RunTask is the single write path for new results: run the audit, then
// persist both the result and the task with a refreshed last-result
// summary to the durable store. The caller forces a page reload
// afterwards so the detail protocol re-runs against fresh durable state.
func (s *ReconcileService) RunTask(ctx context.Context, id string) (*accessibility.Result, error) {
	// Prefer the ephemeral path so the server's own view stays current.
	result, err := s.tasks.Run(ctx, id)
	task, _ := s.tasks.Get(id)

	if err != nil && errors.Is(err, contracts.ErrNotFound) {
		// Server amnesia: run from the durable record alone.
		durableTask, derr := s.durable.GetTask(ctx, id)
		if derr != nil {
			return nil, derr
		}
		if durableTask == nil {
			return nil, fmt.Errorf("%w: task %s", contracts.ErrNotFound, id)
		}
		task = durableTask
		result, err = s.runner.Run(ctx, durableTask)
	}
	if err != nil {
		// Engine failure: nothing is persisted, the prior last-result
		// summary stands.
		return nil, err
	}

	if err := s.durable.SaveResult(ctx, result); err != nil {
		return nil, err
	}
	if task == nil {
		// Task vanished mid-run; rebuild identity from the snapshot so
		// the durable record still gets its refreshed summary.
		task = &accessibility.Task{ID: id, Name: result.Name, URL: result.URL, Standard: result.Standard}
	}
	task.LastResult = result.Summary()
	if err := s.durable.SaveTask(ctx, task); err != nil {
		return nil, err
	}

	return result, nil
}

// EditPrefill returns the record the edit form is pre-populated from:
// the durable record when present, the server's otherwise, and nil when
// the task is unknown to both (the form then renders a placeholder).
func (s *ReconcileService) EditPrefill(ctx context.Context, id string) *accessibility.Task {
	if task, err := s.durable.GetTask(ctx, id); err == nil && task != nil {
		return task
	} else if err != nil {
		s.logger.Reconcile("Durable read failed on edit prefill", "task_id", id, "error", err.Error())
	}
	if task, err := s.tasks.Get(id); err == nil {
		return task
	}
	return nil
}

// ApplyEdit writes the submitted fields to the durable store first,
// creating the record if absent, and only then forwards the edit to the
// ephemeral store, so an edit is never lost even if the server silently
// drops it. Tolerates ephemeral absence.
func (s *ReconcileService) ApplyEdit(ctx context.Context, id string, fields map[string]any) (*accessibility.Task, error) {
	base := s.EditPrefill(ctx, id)
	if base == nil {
		base = &accessibility.Task{ID: id, Standard: accessibility.DefaultStandard}
	}

	base.ApplyFields(fields)
	if base.Standard == "" {
		base.Standard = accessibility.DefaultStandard
	}

	if err := s.durable.SaveTask(ctx, base); err != nil {
		return nil, err
	}

	if _, err := s.tasks.Edit(id, fields); err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return nil, err
	}

	return base, nil
}

// CreateTask creates a task in the ephemeral store and mirrors it into
// the durable store so the record survives the next restart.
func (s *ReconcileService) CreateTask(ctx context.Context, fields map[string]any) (*accessibility.Task, error) {
	task, err := s.tasks.Create(fields)
	if err != nil {
		return nil, err
	}
	if err := s.durable.SaveTask(ctx, task); err != nil {
		s.logger.Reconcile("Durable mirror of created task failed", "task_id", task.ID, "error", err.Error())
	}
	return task, nil
}

// DeletePrefill returns the record used to patch the delete-confirmation
// display when the server shows placeholders.
func (s *ReconcileService) DeletePrefill(ctx context.Context, id string) *accessibility.Task {
	return s.EditPrefill(ctx, id)
}

// DeleteTask removes the task from the ephemeral store, idempotently.
// The durable cascade is the list-page protocol's job: the handler
// redirects with the just-deleted marker and the next ListPage call
// shrinks durable membership to match the server.
func (s *ReconcileService) DeleteTask(id string) {
	s.tasks.Remove(id)
	s.logger.Info("Task deleted from server store", "task_id", id)
}

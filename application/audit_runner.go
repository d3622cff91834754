// Package application holds the dashboard's services: the ephemeral task
// store, the audit runner, the reconciliation engine and export/import.
package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
	"a11ydash/logging"
)

// AuditRunner invokes the external accessibility-test engine with
// task-derived options and normalizes its output into a result record.
// It holds no state of its own; persistence is the caller's job.
type AuditRunner struct {
	engine contracts.AuditEngine
	newID  func() string
	now    func() time.Time
	logger *logging.Logger
}

// NewAuditRunner creates a runner around the given engine.
func NewAuditRunner(engine contracts.AuditEngine) *AuditRunner {
	return &AuditRunner{
		engine: engine,
		newID:  uuid.NewString,
		now:    time.Now,
		logger: logging.Default().WithComponent("audit_runner"),
	}
}

// Run executes one audit for the task and returns the normalized result.
// The engine is invoked exactly once; on failure the engine's error is
// surfaced unmodified and nothing is persisted anywhere. Retrying is the
// caller's decision.
func (r *AuditRunner) Run(ctx context.Context, task *accessibility.Task) (*accessibility.Result, error) {
	opts := BuildEngineOptions(task)

	r.logger.Info("Running audit", "task_id", task.ID, "url", task.URL)

	engineResult, err := r.engine.Run(ctx, task.URL, opts)
	if err != nil {
		r.logger.Error("Audit failed", "task_id", task.ID, "url", task.URL, "error", err)
		return nil, err
	}

	result := accessibility.NewResult(r.newID(), task, r.now(), engineResult.Issues)

	r.logger.Info("Audit completed",
		"task_id", task.ID,
		"result_id", result.ID,
		"errors", result.Count.Error,
		"warnings", result.Count.Warning,
		"notices", result.Count.Notice)

	return result, nil
}

// BuildEngineOptions maps task fields to engine options. Only non-empty,
// non-default fields are forwarded: absence means "use the engine
// default", not "use an empty value".
func BuildEngineOptions(task *accessibility.Task) *contracts.EngineOptions {
	opts := &contracts.EngineOptions{}
	if task.Standard != "" {
		opts.Standard = task.Standard
	}
	if task.Timeout > 0 {
		opts.Timeout = task.Timeout
	}
	if task.Wait > 0 {
		opts.Wait = task.Wait
	}
	if len(task.Actions) > 0 {
		opts.Actions = append([]string(nil), task.Actions...)
	}
	if task.Username != "" {
		opts.Username = task.Username
	}
	if task.Password != "" {
		opts.Password = task.Password
	}
	if len(task.Headers) > 0 {
		opts.Headers = make(map[string]string, len(task.Headers))
		for k, v := range task.Headers {
			opts.Headers[k] = v
		}
	}
	if task.HideElements != "" {
		opts.HideElements = task.HideElements
	}
	if len(task.Ignore) > 0 {
		opts.Ignore = append([]string(nil), task.Ignore...)
	}
	return opts
}

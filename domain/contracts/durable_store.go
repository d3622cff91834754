package contracts

import (
	"context"

	"a11ydash/domain/accessibility"
)

// DurableStore is the persistent side of the dual-persistence model: two
// independently keyed tables (tasks, results) that survive process
// restarts. It is the only durable source of truth for anything the
// ephemeral store has forgotten.
//
// Saves are whole-record upserts, last write wins; no field-level merging
// happens at this layer. Reads never fail on absence: a missing task is
// reported as a nil record, not an error.
type DurableStore interface {
	// SaveTask inserts or fully overwrites the task record with the same id.
	SaveTask(ctx context.Context, task *accessibility.Task) error

	// GetTask returns the task record, or nil if no record has that id.
	GetTask(ctx context.Context, id string) (*accessibility.Task, error)

	// GetTasks returns every task record. Order is insignificant.
	GetTasks(ctx context.Context) ([]*accessibility.Task, error)

	// DeleteTask removes the task record and every result record whose
	// task field matches, as a single all-or-nothing transaction.
	DeleteTask(ctx context.Context, id string) error

	// SaveResult inserts or fully overwrites the result record with the same id.
	SaveResult(ctx context.Context, result *accessibility.Result) error

	// GetResultsByTask returns every result owned by taskID. Ordering is
	// the caller's concern.
	GetResultsByTask(ctx context.Context, taskID string) ([]*accessibility.Result, error)

	// CountResultsByTask returns the number of results owned by taskID.
	CountResultsByTask(ctx context.Context, taskID string) (int64, error)

	// GetResults returns every result record, for export.
	GetResults(ctx context.Context) ([]*accessibility.Result, error)
}

package contracts

import "errors"

// Error taxonomy shared across stores, the runner and the web layer.
// Failures are wrapped with fmt.Errorf("%w: ...") and classified with
// errors.Is so the original detail is never lost.
var (
	// ErrValidation occurs when a task is created with missing or
	// malformed required fields.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound occurs when an operation names an unknown task id.
	// The ephemeral store loses everything on restart, so callers treat
	// this as an expected condition rather than a failure.
	ErrNotFound = errors.New("not found")

	// ErrEngine occurs when an audit engine invocation fails (network,
	// engine timeout, invalid target).
	ErrEngine = errors.New("engine failed")

	// ErrTransaction occurs when a multi-record durable write or delete
	// could not complete atomically.
	ErrTransaction = errors.New("transaction failed")

	// ErrSerialization occurs when an import document is malformed at
	// the document level.
	ErrSerialization = errors.New("malformed document")
)

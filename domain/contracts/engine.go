package contracts

import (
	"context"

	"a11ydash/domain/accessibility"
)

// EngineOptions carries the per-run overrides forwarded to the audit
// engine. Zero values mean "use the engine default", never "use an empty
// value"; the runner only populates fields the task actually sets.
type EngineOptions struct {
	Standard     accessibility.Standard `json:"standard,omitempty"`
	Timeout      int64                  `json:"timeout,omitempty"` // milliseconds
	Wait         int64                  `json:"wait,omitempty"`    // milliseconds
	Actions      []string               `json:"actions,omitempty"`
	Username     string                 `json:"username,omitempty"`
	Password     string                 `json:"password,omitempty"`
	Headers      map[string]string      `json:"headers,omitempty"`
	HideElements string                 `json:"hideElements,omitempty"`
	Ignore       []string               `json:"ignore,omitempty"`
}

// EngineResult is the raw output of one engine invocation.
type EngineResult struct {
	Issues []accessibility.Issue `json:"issues"`
}

// AuditEngine is the external accessibility-testing collaborator: a
// headless-browser rule engine treated as a black box. Run suspends the
// caller until the engine returns or fails; failures surface unmodified
// and retrying is the caller's decision.
type AuditEngine interface {
	Run(ctx context.Context, url string, opts *EngineOptions) (*EngineResult, error)
}

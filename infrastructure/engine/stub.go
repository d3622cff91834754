package engine

import (
	"context"
	"fmt"

	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
)

// StubEngine is a canned-response audit engine. It backs ENGINE_MODE=stub
// for machines without Chrome, and doubles as a test collaborator.
type StubEngine struct {
	// Issues is returned from every run, after ignore filtering.
	Issues []accessibility.Issue

	// Err, when set, fails every run.
	Err error

	// Calls records the URLs run against the stub, in order.
	Calls []string

	// LastOptions records the options of the most recent run.
	LastOptions *contracts.EngineOptions
}

// NewStubEngine creates a stub engine returning the given issues.
func NewStubEngine(issues ...accessibility.Issue) *StubEngine {
	return &StubEngine{Issues: issues}
}

// Run implements contracts.AuditEngine.
func (e *StubEngine) Run(ctx context.Context, url string, opts *contracts.EngineOptions) (*contracts.EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrEngine, err)
	}

	e.Calls = append(e.Calls, url)
	e.LastOptions = opts

	if e.Err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrEngine, e.Err)
	}

	var ignore []string
	if opts != nil {
		ignore = opts.Ignore
	}
	issues := filterIgnored(append([]accessibility.Issue(nil), e.Issues...), ignore)
	return &contracts.EngineResult{Issues: issues}, nil
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
)

// MockDurableStore implements DurableStore for testing
type MockDurableStore struct {
	mock.Mock
}

func (m *MockDurableStore) SaveTask(ctx context.Context, task *accessibility.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockDurableStore) GetTask(ctx context.Context, id string) (*accessibility.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accessibility.Task), args.Error(1)
}

func (m *MockDurableStore) GetTasks(ctx context.Context) ([]*accessibility.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accessibility.Task), args.Error(1)
}

func (m *MockDurableStore) DeleteTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDurableStore) SaveResult(ctx context.Context, result *accessibility.Result) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockDurableStore) GetResultsByTask(ctx context.Context, taskID string) ([]*accessibility.Result, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accessibility.Result), args.Error(1)
}

func (m *MockDurableStore) CountResultsByTask(ctx context.Context, taskID string) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDurableStore) GetResults(ctx context.Context) ([]*accessibility.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accessibility.Result), args.Error(1)
}

// MockAuditEngine implements AuditEngine for testing
type MockAuditEngine struct {
	mock.Mock
}

func (m *MockAuditEngine) Run(ctx context.Context, url string, opts *contracts.EngineOptions) (*contracts.EngineResult, error) {
	args := m.Called(ctx, url, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.EngineResult), args.Error(1)
}

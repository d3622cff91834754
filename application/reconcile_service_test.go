package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
	"a11ydash/test/mocks"
)

func newTestReconcileService(engine contracts.AuditEngine, durable contracts.DurableStore) (*ReconcileService, *TaskService) {
	runner := NewAuditRunner(engine)
	tasks := NewTaskService(runner)
	return NewReconcileService(tasks, runner, durable), tasks
}

func TestReconcileService_ListPage_EmptyServer_SynthesizesDurableCards(t *testing.T) {
	// Arrange - the server store is empty (fresh restart), the durable
	// store remembers one task with a cached last-result summary.
	durableTask := &accessibility.Task{
		ID:       "task-1",
		Name:     "Home page",
		URL:      "https://example.com/",
		Standard: accessibility.StandardWCAG2AA,
		LastResult: &accessibility.ResultSummary{
			ID:    "result-1",
			Date:  time.Now(),
			Count: accessibility.Count{Error: 2, Warning: 1, Notice: 0},
		},
	}
	durable := &mocks.MockDurableStore{}
	durable.On("GetTasks", mock.Anything).Return([]*accessibility.Task{durableTask}, nil)
	durable.On("CountResultsByTask", mock.Anything, "task-1").Return(int64(3), nil)
	service, _ := newTestReconcileService(&mocks.MockAuditEngine{}, durable)

	// Act
	view := service.ListPage(context.Background(), false)

	// Assert - exactly one synthesized card carrying the durable stats.
	require.Len(t, view.Cards, 1)
	card := view.Cards[0]
	assert.True(t, card.Synthetic)
	assert.True(t, card.HasStats)
	assert.False(t, card.NoResults)
	assert.Equal(t, "Home page", card.Task.Name)
	assert.Equal(t, accessibility.Count{Error: 2, Warning: 1}, card.Task.LastResult.Count)
	assert.Equal(t, int64(3), card.Runs)
	durable.AssertNotCalled(t, "SaveTask", mock.Anything, mock.Anything)
}

func TestReconcileService_ListPage_MergeWritesBackAndPreservesDurableFields(t *testing.T) {
	// Arrange - the server renders the task without stats; the durable
	// record still holds configuration and a last-result summary.
	durableTask := &accessibility.Task{
		ID:         "task-1",
		Name:       "Home page",
		URL:        "https://example.com/",
		Standard:   accessibility.StandardWCAG2AA,
		Ignore:     []string{"rule-a"},
		Timeout:    45000,
		LastResult: &accessibility.ResultSummary{ID: "result-1", Count: accessibility.Count{Error: 5}},
	}
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, mock.AnythingOfType("string")).Return(durableTask, nil)
	durable.On("GetTasks", mock.Anything).Return([]*accessibility.Task{}, nil)
	durable.On("CountResultsByTask", mock.Anything, mock.AnythingOfType("string")).Return(int64(1), nil)

	var written *accessibility.Task
	durable.On("SaveTask", mock.Anything, mock.AnythingOfType("*accessibility.Task")).
		Run(func(args mock.Arguments) { written = args.Get(1).(*accessibility.Task) }).
		Return(nil)

	service, tasks := newTestReconcileService(&mocks.MockAuditEngine{}, durable)
	_, err := tasks.Create(map[string]any{"name": "Home page", "url": "https://example.com/"})
	require.NoError(t, err)

	// Act
	view := service.ListPage(context.Background(), false)

	// Assert - the merged record was written back with the durable
	// configuration and summary intact, and the card shows the stats.
	require.NotNil(t, written)
	assert.Equal(t, []string{"rule-a"}, written.Ignore)
	assert.Equal(t, int64(45000), written.Timeout)
	require.NotNil(t, written.LastResult)
	assert.Equal(t, "result-1", written.LastResult.ID)

	require.Len(t, view.Cards, 1)
	assert.False(t, view.Cards[0].Synthetic)
	assert.True(t, view.Cards[0].HasStats)
}

func TestReconcileService_ListPage_JustDeleted_ShrinksDurableMembership(t *testing.T) {
	// Arrange - the server renders only task A; the durable store still
	// holds A and B. The just-deleted marker is set.
	taskB := &accessibility.Task{ID: "task-b", Name: "Gone", URL: "https://example.com/b", Standard: accessibility.StandardWCAG2AA}
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)
	durable.On("SaveTask", mock.Anything, mock.Anything).Return(nil)
	durable.On("CountResultsByTask", mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)
	durable.On("DeleteTask", mock.Anything, "task-b").Return(nil)

	service, tasks := newTestReconcileService(&mocks.MockAuditEngine{}, durable)
	taskA, err := tasks.Create(map[string]any{"name": "Kept", "url": "https://example.com/a"})
	require.NoError(t, err)

	// The shrink pass sees A and B; the synthesis pass runs after the
	// delete and sees only A.
	durable.On("GetTasks", mock.Anything).Return([]*accessibility.Task{
		{ID: taskA.ID, Name: "Kept", URL: "https://example.com/a", Standard: accessibility.StandardWCAG2AA},
		taskB,
	}, nil).Once()
	durable.On("GetTasks", mock.Anything).Return([]*accessibility.Task{
		{ID: taskA.ID, Name: "Kept", URL: "https://example.com/a", Standard: accessibility.StandardWCAG2AA},
	}, nil).Once()

	// Act
	view := service.ListPage(context.Background(), true)

	// Assert - B was cascade-deleted and no card was synthesized for it.
	durable.AssertCalled(t, "DeleteTask", mock.Anything, "task-b")
	require.Len(t, view.Cards, 1)
	assert.Equal(t, taskA.ID, view.Cards[0].Task.ID)
}

func TestReconcileService_ListPage_NoDeleteMarker_DurableMembershipUntouched(t *testing.T) {
	// Arrange - same divergence as above but without the marker: B must
	// survive and appear as a synthetic card.
	taskB := &accessibility.Task{ID: "task-b", Name: "Remembered", URL: "https://example.com/b", Standard: accessibility.StandardWCAG2AA}
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)
	durable.On("SaveTask", mock.Anything, mock.Anything).Return(nil)
	durable.On("CountResultsByTask", mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil)

	service, tasks := newTestReconcileService(&mocks.MockAuditEngine{}, durable)
	taskA, err := tasks.Create(map[string]any{"name": "Kept", "url": "https://example.com/a"})
	require.NoError(t, err)

	durable.On("GetTasks", mock.Anything).Return([]*accessibility.Task{
		{ID: taskA.ID, Name: "Kept", URL: "https://example.com/a", Standard: accessibility.StandardWCAG2AA},
		taskB,
	}, nil)

	// Act
	view := service.ListPage(context.Background(), false)

	// Assert
	durable.AssertNotCalled(t, "DeleteTask", mock.Anything, mock.Anything)
	require.Len(t, view.Cards, 2)
	assert.False(t, view.Cards[0].Synthetic)
	assert.True(t, view.Cards[1].Synthetic)
	assert.Equal(t, "task-b", view.Cards[1].Task.ID)
}

func TestReconcileService_ListPage_DurableReadFailure_ViewStillRenders(t *testing.T) {
	// Arrange - every durable call fails; reconciliation degrades to the
	// server view instead of blanking it out.
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, mock.AnythingOfType("string")).Return(nil, assert.AnError)
	durable.On("GetTasks", mock.Anything).Return(nil, assert.AnError)
	durable.On("CountResultsByTask", mock.Anything, mock.AnythingOfType("string")).Return(int64(0), assert.AnError)

	service, tasks := newTestReconcileService(&mocks.MockAuditEngine{}, durable)
	_, err := tasks.Create(map[string]any{"name": "Home page", "url": "https://example.com/"})
	require.NoError(t, err)

	// Act
	view := service.ListPage(context.Background(), false)

	// Assert
	require.Len(t, view.Cards, 1)
	assert.Equal(t, "Home page", view.Cards[0].Task.Name)
}

func TestReconcileService_DetailPage_ServerIdentityWins(t *testing.T) {
	// Arrange - both stores know the task under different names; the
	// server currently has data, so its identity wins and is written back.
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, mock.AnythingOfType("string")).Return(&accessibility.Task{
		ID: "ignored", Name: "Stale name", URL: "https://example.com/old", Standard: accessibility.StandardWCAG2A,
		Ignore: []string{"rule-a"},
	}, nil)
	durable.On("SaveTask", mock.Anything, mock.Anything).Return(nil)
	durable.On("GetResultsByTask", mock.Anything, mock.AnythingOfType("string")).Return([]*accessibility.Result{}, nil)

	service, tasks := newTestReconcileService(&mocks.MockAuditEngine{}, durable)
	task, err := tasks.Create(map[string]any{"name": "Fresh name", "url": "https://example.com/new"})
	require.NoError(t, err)

	// Act
	view := service.DetailPage(context.Background(), task.ID)

	// Assert
	assert.True(t, view.Known)
	assert.Equal(t, "Fresh name", view.Task.Name)
	assert.Equal(t, "https://example.com/new", view.Task.URL)
	assert.Equal(t, []string{"rule-a"}, view.Task.Ignore)
	durable.AssertCalled(t, "SaveTask", mock.Anything, mock.Anything)
}

func TestReconcileService_DetailPage_DurableOnly_PatchesIdentity(t *testing.T) {
	// Arrange - the server has forgotten the task entirely.
	older := &accessibility.Result{ID: "result-1", Task: "task-1", Date: time.Now().Add(-time.Hour)}
	newer := &accessibility.Result{ID: "result-2", Task: "task-1", Date: time.Now()}
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, "task-1").Return(&accessibility.Task{
		ID: "task-1", Name: "Home page", URL: "https://example.com/", Standard: accessibility.StandardWCAG2AA,
	}, nil)
	durable.On("GetResultsByTask", mock.Anything, "task-1").Return([]*accessibility.Result{older, newer}, nil)

	service, _ := newTestReconcileService(&mocks.MockAuditEngine{}, durable)

	// Act
	view := service.DetailPage(context.Background(), "task-1")

	// Assert - identity patched from durable, history newest first, no
	// write-back since the server contributed nothing.
	assert.True(t, view.Known)
	assert.Equal(t, "Home page", view.Task.Name)
	require.Len(t, view.Results, 2)
	assert.Equal(t, "result-2", view.Results[0].ID)
	assert.Equal(t, "result-2", view.LastRun.ID)
	durable.AssertNotCalled(t, "SaveTask", mock.Anything, mock.Anything)
}

func TestReconcileService_DetailPage_UnknownEverywhere_NothingSynthesized(t *testing.T) {
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, "ghost").Return(nil, nil)

	service, _ := newTestReconcileService(&mocks.MockAuditEngine{}, durable)

	view := service.DetailPage(context.Background(), "ghost")

	assert.False(t, view.Known)
	assert.Equal(t, "ghost", view.Task.ID)
	assert.Empty(t, view.Results)
	assert.Nil(t, view.LastRun)
	durable.AssertNotCalled(t, "SaveTask", mock.Anything, mock.Anything)
}

func TestReconcileService_RunTask_PersistsResultAndSummary(t *testing.T) {
	// Arrange
	engine := &mocks.MockAuditEngine{}
	engine.On("Run", mock.Anything, "https://example.com/", mock.Anything).Return(&contracts.EngineResult{
		Issues: []accessibility.Issue{{Code: "a", Type: accessibility.IssueError}},
	}, nil)

	durable := &mocks.MockDurableStore{}
	var savedResult *accessibility.Result
	var savedTask *accessibility.Task
	durable.On("SaveResult", mock.Anything, mock.AnythingOfType("*accessibility.Result")).
		Run(func(args mock.Arguments) { savedResult = args.Get(1).(*accessibility.Result) }).
		Return(nil)
	durable.On("SaveTask", mock.Anything, mock.AnythingOfType("*accessibility.Task")).
		Run(func(args mock.Arguments) { savedTask = args.Get(1).(*accessibility.Task) }).
		Return(nil)

	service, tasks := newTestReconcileService(engine, durable)
	task, err := tasks.Create(map[string]any{"name": "Home page", "url": "https://example.com/"})
	require.NoError(t, err)

	// Act
	result, err := service.RunTask(context.Background(), task.ID)

	// Assert - both the result record and the refreshed task summary
	// reached the durable store.
	require.NoError(t, err)
	require.NotNil(t, savedResult)
	assert.Equal(t, result.ID, savedResult.ID)
	assert.Equal(t, accessibility.Count{Error: 1}, savedResult.Count)
	require.NotNil(t, savedTask)
	require.NotNil(t, savedTask.LastResult)
	assert.Equal(t, result.ID, savedTask.LastResult.ID)
}

func TestReconcileService_RunTask_ServerAmnesia_FallsBackToDurableRecord(t *testing.T) {
	// Arrange - the server store is empty; only the durable record exists.
	engine := &mocks.MockAuditEngine{}
	engine.On("Run", mock.Anything, "https://example.com/", mock.Anything).Return(&contracts.EngineResult{}, nil)

	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, "task-1").Return(&accessibility.Task{
		ID: "task-1", Name: "Home page", URL: "https://example.com/", Standard: accessibility.StandardWCAG2AA,
	}, nil)
	durable.On("SaveResult", mock.Anything, mock.Anything).Return(nil)
	durable.On("SaveTask", mock.Anything, mock.Anything).Return(nil)

	service, _ := newTestReconcileService(engine, durable)

	// Act
	result, err := service.RunTask(context.Background(), "task-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "task-1", result.Task)
	engine.AssertExpectations(t)
	durable.AssertCalled(t, "SaveResult", mock.Anything, mock.Anything)
}

func TestReconcileService_RunTask_UnknownEverywhere_NotFound(t *testing.T) {
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, "ghost").Return(nil, nil)

	service, _ := newTestReconcileService(&mocks.MockAuditEngine{}, durable)

	_, err := service.RunTask(context.Background(), "ghost")

	assert.ErrorIs(t, err, contracts.ErrNotFound)
	durable.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)
}

func TestReconcileService_RunTask_EngineFailure_NothingPersisted(t *testing.T) {
	engine := &mocks.MockAuditEngine{}
	engine.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)

	durable := &mocks.MockDurableStore{}
	service, tasks := newTestReconcileService(engine, durable)
	task, err := tasks.Create(map[string]any{"name": "Home page", "url": "https://example.com/"})
	require.NoError(t, err)

	_, err = service.RunTask(context.Background(), task.ID)

	require.Error(t, err)
	durable.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)
	durable.AssertNotCalled(t, "SaveTask", mock.Anything, mock.Anything)
}

func TestReconcileService_ApplyEdit_WritesDurablyEvenWhenServerForgot(t *testing.T) {
	// Arrange - the task exists only durably; the edit must still stick.
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, "task-1").Return(&accessibility.Task{
		ID: "task-1", Name: "Old name", URL: "https://example.com/", Standard: accessibility.StandardWCAG2AA,
	}, nil)
	var saved *accessibility.Task
	durable.On("SaveTask", mock.Anything, mock.AnythingOfType("*accessibility.Task")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*accessibility.Task) }).
		Return(nil)

	service, _ := newTestReconcileService(&mocks.MockAuditEngine{}, durable)

	// Act
	updated, err := service.ApplyEdit(context.Background(), "task-1", map[string]any{"name": "New name"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "New name", updated.Name)
	require.NotNil(t, saved)
	assert.Equal(t, "New name", saved.Name)
	assert.Equal(t, "https://example.com/", saved.URL)
}

func TestReconcileService_ApplyEdit_UnknownTask_CreatesDurableRecord(t *testing.T) {
	durable := &mocks.MockDurableStore{}
	durable.On("GetTask", mock.Anything, "fresh").Return(nil, nil)
	var saved *accessibility.Task
	durable.On("SaveTask", mock.Anything, mock.AnythingOfType("*accessibility.Task")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*accessibility.Task) }).
		Return(nil)

	service, _ := newTestReconcileService(&mocks.MockAuditEngine{}, durable)

	_, err := service.ApplyEdit(context.Background(), "fresh", map[string]any{
		"name": "Restored", "url": "https://example.com/",
	})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "fresh", saved.ID)
	assert.Equal(t, "Restored", saved.Name)
	assert.Equal(t, accessibility.DefaultStandard, saved.Standard)
}

func TestReconcileService_CreateTask_MirrorsIntoDurableStore(t *testing.T) {
	durable := &mocks.MockDurableStore{}
	var saved *accessibility.Task
	durable.On("SaveTask", mock.Anything, mock.AnythingOfType("*accessibility.Task")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*accessibility.Task) }).
		Return(nil)

	service, tasks := newTestReconcileService(&mocks.MockAuditEngine{}, durable)

	task, err := service.CreateTask(context.Background(), map[string]any{
		"name": "Home page", "url": "https://example.com/",
	})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, task.ID, saved.ID)

	stored, err := tasks.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Home page", stored.Name)
}

func TestReconcileService_DeleteTask_OnlyTouchesServerStore(t *testing.T) {
	durable := &mocks.MockDurableStore{}
	service, tasks := newTestReconcileService(&mocks.MockAuditEngine{}, durable)
	durable.On("SaveTask", mock.Anything, mock.Anything).Return(nil)
	task, err := service.CreateTask(context.Background(), map[string]any{
		"name": "Home page", "url": "https://example.com/",
	})
	require.NoError(t, err)

	service.DeleteTask(task.ID)

	_, err = tasks.Get(task.ID)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
	durable.AssertNotCalled(t, "DeleteTask", mock.Anything, mock.Anything)
}

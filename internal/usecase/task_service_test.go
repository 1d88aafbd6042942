package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

func newTaskService(repo *MockTaskRepository) (*TaskService, *TaskStore) {
	store := NewTaskStore()
	svc := NewTaskService(repo, store, nil)
	svc.Now = clock
	return svc, store
}

func sampleTasks() []entity.Task {
	return []entity.Task{
		{ID: "t1", LeadID: "l1", Title: "Call back", Priority: entity.PriorityHigh, Status: entity.TaskTodo},
		{ID: "t2", Title: "Send deck", Priority: entity.PriorityLow, Status: entity.TaskDone},
		{ID: "t3", LeadID: "l1", Title: "Follow up", Priority: entity.PriorityMedium, Status: entity.TaskTodo},
	}
}

func TestTaskBuckets(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("ListAll", mock.Anything).Return(sampleTasks(), nil)
	svc, store := newTaskService(repo)

	require.NoError(t, svc.LoadAll(context.Background()))

	b := store.Buckets()
	assert.Len(t, b.Todo, 2)
	assert.Len(t, b.Done, 1)
	assert.Equal(t, "t2", b.Done[0].ID)
}

func TestToggleStatusFlipsTodoAndDone(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("ListAll", mock.Anything).Return(sampleTasks(), nil)
	done := entity.TaskDone
	repo.On("Update", mock.Anything, "t1", entity.TaskPatch{Status: &done}).
		Return(&entity.Task{ID: "t1", LeadID: "l1", Title: "Call back", Priority: entity.PriorityHigh, Status: entity.TaskDone}, nil)
	svc, store := newTaskService(repo)
	require.NoError(t, svc.LoadAll(context.Background()))

	task, err := svc.ToggleStatus(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, entity.TaskDone, task.Status)
	got, _ := store.Get("t1")
	assert.Equal(t, entity.TaskDone, got.Status)
	assert.Len(t, store.Buckets().Done, 2)
}

func TestTasksForLeadLoadsOnce(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("ListByLead", mock.Anything, "l1").Return([]entity.Task{sampleTasks()[0]}, nil).Once()
	svc, _ := newTaskService(repo)

	first, err := svc.TasksForLead(context.Background(), "l1")
	require.NoError(t, err)
	second, err := svc.TasksForLead(context.Background(), "l1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "ListByLead", 1)
}

func TestCreateTaskDefaultsAndSwap(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("ListByLead", mock.Anything, "l1").Return([]entity.Task{}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(task entity.Task) bool {
		return strings.HasPrefix(task.ID, entity.PlaceholderPrefix) &&
			task.Priority == entity.PriorityMedium && task.Status == entity.TaskTodo && task.LeadID == "l1"
	})).Return(&entity.Task{ID: "t9", LeadID: "l1", Title: "Demo", Priority: entity.PriorityMedium, Status: entity.TaskTodo}, nil)
	svc, store := newTaskService(repo)
	_, err := svc.TasksForLead(context.Background(), "l1")
	require.NoError(t, err)

	task, err := svc.Create(context.Background(), CreateTaskInput{LeadID: "l1", Title: " Demo "})

	require.NoError(t, err)
	assert.Equal(t, "t9", task.ID)
	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, "t9", all[0].ID)
	forLead, _ := store.ForLead("l1")
	require.Len(t, forLead, 1)
	assert.Equal(t, "t9", forLead[0].ID)
}

func TestCreateTaskKeepsRowWhenPlaceholderWasReloadedAway(t *testing.T) {
	repo := new(MockTaskRepository)
	svc, store := newTaskService(repo)
	repo.On("Create", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { store.Reset() }).
		Return(&entity.Task{ID: "t9", Title: "Demo", Priority: entity.PriorityMedium, Status: entity.TaskTodo}, nil)

	_, err := svc.Create(context.Background(), CreateTaskInput{Title: "Demo"})

	require.NoError(t, err)
	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, "t9", all[0].ID)
}

func TestCollapseLeadReloadsOnNextExpansion(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("ListAll", mock.Anything).Return(sampleTasks(), nil)
	repo.On("ListByLead", mock.Anything, "l1").Return([]entity.Task{sampleTasks()[0]}, nil)
	repo.On("Delete", mock.Anything, "t2").Return(errors.New("forbidden"))
	svc, store := newTaskService(repo)
	require.NoError(t, svc.LoadAll(context.Background()))
	_, err := svc.TasksForLead(context.Background(), "l1")
	require.NoError(t, err)

	svc.CollapseLead("l1")

	assert.Empty(t, store.CachedLeads())
	require.Error(t, svc.Delete(context.Background(), "t2"))
	repo.AssertNumberOfCalls(t, "ListByLead", 1)

	_, err = svc.TasksForLead(context.Background(), "l1")
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ListByLead", 2)
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	svc, _ := newTaskService(new(MockTaskRepository))

	_, err := svc.Create(context.Background(), CreateTaskInput{Title: "  "})

	assert.True(t, IsDomainError(err))
}

func TestDeleteTaskFailureReloadsAllLists(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("ListAll", mock.Anything).Return(sampleTasks(), nil)
	repo.On("ListByLead", mock.Anything, "l1").Return([]entity.Task{sampleTasks()[0], sampleTasks()[2]}, nil)
	repo.On("Delete", mock.Anything, "t3").Return(errors.New("forbidden"))
	svc, store := newTaskService(repo)
	require.NoError(t, svc.LoadAll(context.Background()))
	_, err := svc.TasksForLead(context.Background(), "l1")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "t3")

	require.Error(t, err)
	_, ok := store.Get("t3")
	assert.True(t, ok)
	forLead, _ := store.ForLead("l1")
	assert.Len(t, forLead, 2)
	assert.Equal(t, "forbidden", store.Error())
	repo.AssertNumberOfCalls(t, "ListAll", 2)
	repo.AssertNumberOfCalls(t, "ListByLead", 2)
}

func TestTaskMutationsOnUnknownID(t *testing.T) {
	svc, _ := newTaskService(new(MockTaskRepository))

	_, err := svc.ToggleStatus(context.Background(), "nope")

	assert.True(t, IsNotFound(err))
}

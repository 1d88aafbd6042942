package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

type TaskService struct {
	Repo  entity.TaskRepositoryInterface
	Store *TaskStore
	Now   func() time.Time

	coord *Coordinator
}

func NewTaskService(repo entity.TaskRepositoryInterface, store *TaskStore, recorder MetricsRecorder) *TaskService {
	s := &TaskService{
		Repo:  repo,
		Store: store,
		Now:   time.Now,
	}
	s.coord = NewCoordinator("tasks", s.reload, store.SetError, recorder)
	return s
}

// LoadAll replaces the global task list.
func (s *TaskService) LoadAll(ctx context.Context) error {
	s.Store.BeginLoad()

	tasks, err := s.Repo.ListAll(ctx)
	if err != nil {
		s.Store.Fail(err.Error())
		return &TechnicalError{Code: "LOAD_FAILED", Message: "could not load tasks: " + err.Error(), Err: err}
	}
	s.Store.ReplaceAll(tasks)

	log.Printf("📥 [TASKS] Loaded %d tasks", len(tasks))
	return nil
}

// TasksForLead returns the lead's tasks, loading them on first expansion.
func (s *TaskService) TasksForLead(ctx context.Context, leadID string) ([]entity.Task, error) {
	if tasks, ok := s.Store.ForLead(leadID); ok {
		return tasks, nil
	}
	if err := s.loadLead(ctx, leadID); err != nil {
		return nil, err
	}
	tasks, _ := s.Store.ForLead(leadID)
	return tasks, nil
}

// CollapseLead drops the lead's cached list so later reloads skip it.
func (s *TaskService) CollapseLead(leadID string) {
	s.Store.Collapse(leadID)
}

func (s *TaskService) loadLead(ctx context.Context, leadID string) error {
	tasks, err := s.Repo.ListByLead(ctx, leadID)
	if err != nil {
		return &TechnicalError{Code: "LOAD_FAILED", Message: "could not load tasks for lead " + leadID + ": " + err.Error(), Err: err}
	}
	s.Store.ReplaceLead(leadID, tasks)
	return nil
}

// reload refreshes the global list and every expanded lead list.
func (s *TaskService) reload(ctx context.Context) error {
	errs := []error{s.LoadAll(ctx)}
	for _, leadID := range s.Store.CachedLeads() {
		errs = append(errs, s.loadLead(ctx, leadID))
	}
	return errors.Join(errs...)
}

func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*entity.Task, error) {
	if err := validationFailure(ValidateCreateTaskInput(input)); err != nil {
		return nil, err
	}

	task := entity.Task{
		ID:          entity.PlaceholderPrefix + uuid.New().String(),
		LeadID:      strings.TrimSpace(input.LeadID),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      input.Status,
		DueDate:     input.DueDate,
		CreatedAt:   s.Now(),
	}
	if task.Priority == 0 {
		task.Priority = entity.PriorityMedium
	}
	if task.Status == 0 {
		task.Status = entity.TaskTodo
	}

	var created entity.Task
	err := s.coord.Execute(ctx, Mutation{
		Name:  "create task",
		Apply: func() { s.Store.Insert(task) },
		Commit: func(ctx context.Context) error {
			stored, err := s.Repo.Create(ctx, task)
			if err != nil {
				return err
			}
			created = *stored
			// A reload may have dropped the placeholder meanwhile.
			if !s.Store.Swap(task.ID, created) {
				if _, ok := s.Store.Get(created.ID); !ok {
					s.Store.Insert(created)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *TaskService) Edit(ctx context.Context, id string, patch entity.TaskPatch) (*entity.Task, error) {
	if err := validationFailure(ValidateTaskPatch(patch)); err != nil {
		return nil, err
	}
	if _, err := s.committed(id); err != nil {
		return nil, err
	}

	var updated entity.Task
	err := s.coord.Execute(ctx, Mutation{
		Name:  "edit task",
		Apply: func() { s.Store.Update(id, patch.Apply) },
		Commit: func(ctx context.Context) error {
			stored, err := s.Repo.Update(ctx, id, patch)
			if err != nil {
				return err
			}
			updated = *stored
			s.Store.Swap(id, updated)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ToggleStatus flips Todo and Done.
func (s *TaskService) ToggleStatus(ctx context.Context, id string) (*entity.Task, error) {
	task, err := s.committed(id)
	if err != nil {
		return nil, err
	}
	next := task.Status.Toggled()
	return s.Edit(ctx, id, entity.TaskPatch{Status: &next})
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	if _, err := s.committed(id); err != nil {
		return err
	}

	return s.coord.Execute(ctx, Mutation{
		Name:  "delete task",
		Apply: func() { s.Store.Remove(id) },
		Commit: func(ctx context.Context) error {
			return s.Repo.Delete(ctx, id)
		},
	})
}

func (s *TaskService) committed(id string) (entity.Task, error) {
	task, ok := s.Store.Get(id)
	if !ok {
		return entity.Task{}, &DomainError{Code: "TASK_NOT_FOUND", Message: "task not found: " + id, Err: entity.ErrTaskNotFound}
	}
	if strings.HasPrefix(task.ID, entity.PlaceholderPrefix) {
		return entity.Task{}, &DomainError{Code: "TASK_PENDING", Message: "task is still being saved"}
	}
	return task, nil
}

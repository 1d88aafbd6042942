package usecase

import (
	"sync"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

// TaskBuckets splits a task list by status for the board view.
type TaskBuckets struct {
	Todo []entity.Task `json:"todo"`
	Done []entity.Task `json:"done"`
}

type TasksView struct {
	Tasks   []entity.Task `json:"tasks"`
	Buckets TaskBuckets   `json:"buckets"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

// TaskStore keeps the global task list and the per-lead lists that have been expanded.
// Every list is ordered newest first.
type TaskStore struct {
	mu      sync.RWMutex
	all     []entity.Task
	byLead  map[string][]entity.Task
	loading bool
	err     string
}

func NewTaskStore() *TaskStore {
	return &TaskStore{byLead: make(map[string][]entity.Task)}
}

func cloneTask(t entity.Task) entity.Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

func cloneTasks(tasks []entity.Task) []entity.Task {
	out := make([]entity.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, cloneTask(t))
	}
	return out
}

func (s *TaskStore) BeginLoad() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *TaskStore) ReplaceAll(tasks []entity.Task) {
	out := cloneTasks(tasks)

	s.mu.Lock()
	s.all = out
	s.loading = false
	s.mu.Unlock()
}

func (s *TaskStore) Fail(msg string) {
	s.mu.Lock()
	s.all = nil
	s.loading = false
	s.err = msg
	s.mu.Unlock()
}

// ReplaceLead caches the task list of one lead.
func (s *TaskStore) ReplaceLead(leadID string, tasks []entity.Task) {
	out := cloneTasks(tasks)

	s.mu.Lock()
	s.byLead[leadID] = out
	s.mu.Unlock()
}

// ForLead returns the cached list for a lead and whether it was loaded.
func (s *TaskStore) ForLead(leadID string) ([]entity.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks, ok := s.byLead[leadID]
	if !ok {
		return nil, false
	}
	return cloneTasks(tasks), true
}

// CachedLeads lists the leads whose task list is currently expanded.
func (s *TaskStore) CachedLeads() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byLead))
	for id := range s.byLead {
		ids = append(ids, id)
	}
	return ids
}

// Collapse forgets the cached list of a lead; the next expansion loads it again.
func (s *TaskStore) Collapse(leadID string) {
	s.mu.Lock()
	delete(s.byLead, leadID)
	s.mu.Unlock()
}

// Insert puts a task at the head of the global list and of its lead's list if cached.
func (s *TaskStore) Insert(t entity.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.all = append([]entity.Task{cloneTask(t)}, s.all...)
	if t.LeadID == "" {
		return
	}
	if tasks, ok := s.byLead[t.LeadID]; ok {
		s.byLead[t.LeadID] = append([]entity.Task{cloneTask(t)}, tasks...)
	}
}

// Update applies fn to every copy of the task. It reports whether any was found.
func (s *TaskStore) Update(id string, fn func(*entity.Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.all {
		if s.all[i].ID == id {
			fn(&s.all[i])
			found = true
		}
	}
	for _, tasks := range s.byLead {
		for i := range tasks {
			if tasks[i].ID == id {
				fn(&tasks[i])
				found = true
			}
		}
	}
	return found
}

// Swap replaces the task oldID in place with t wherever it appears. It reports
// whether oldID was found.
func (s *TaskStore) Swap(oldID string, t entity.Task) bool {
	return s.Update(oldID, func(cur *entity.Task) { *cur = cloneTask(t) })
}

// Remove drops the task from every list.
func (s *TaskStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.all = removeTask(s.all, id)
	for leadID, tasks := range s.byLead {
		s.byLead[leadID] = removeTask(tasks, id)
	}
}

func removeTask(tasks []entity.Task, id string) []entity.Task {
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return kept
}

// Get looks the task up in the global list first, then in the cached lead lists.
func (s *TaskStore) Get(id string) (entity.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.all {
		if t.ID == id {
			return cloneTask(t), true
		}
	}
	for _, tasks := range s.byLead {
		for _, t := range tasks {
			if t.ID == id {
				return cloneTask(t), true
			}
		}
	}
	return entity.Task{}, false
}

func (s *TaskStore) All() []entity.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.all)
}

func (s *TaskStore) Buckets() TaskBuckets {
	return bucketize(s.All())
}

func bucketize(tasks []entity.Task) TaskBuckets {
	b := TaskBuckets{Todo: []entity.Task{}, Done: []entity.Task{}}
	for _, t := range tasks {
		if t.Status == entity.TaskDone {
			b.Done = append(b.Done, t)
		} else {
			b.Todo = append(b.Todo, t)
		}
	}
	return b
}

func (s *TaskStore) View() TasksView {
	tasks := s.All()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return TasksView{Tasks: tasks, Buckets: bucketize(tasks), Loading: s.loading, Error: s.err}
}

func (s *TaskStore) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *TaskStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *TaskStore) DismissError() {
	s.SetError("")
}

// Reset empties every list, as on sign-out.
func (s *TaskStore) Reset() {
	s.mu.Lock()
	s.all = nil
	s.byLead = make(map[string][]entity.Task)
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

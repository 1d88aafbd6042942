package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/usecase"
)

type TaskHandler struct {
	Tasks *usecase.TaskService
}

func NewTaskHandler(tasks *usecase.TaskService) *TaskHandler {
	return &TaskHandler{Tasks: tasks}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tasks.Store.View())
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}
	h.create(w, r, input)
}

// ListForLead expands a lead's tasks, loading them on first use.
func (h *TaskHandler) ListForLead(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.TasksForLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CollapseLead closes a lead's expansion; the next GET loads it again.
func (h *TaskHandler) CollapseLead(w http.ResponseWriter, r *http.Request) {
	h.Tasks.CollapseLead(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) CreateForLead(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")
	h.create(w, r, input)
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request, input usecase.CreateTaskInput) {
	task, err := h.Tasks.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch entity.TaskPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	task, err := h.Tasks.Edit(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tasks.ToggleStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/usecase"
)

const defaultPreviewLimit = 5

type LeadHandler struct {
	Leads *usecase.LeadService
}

func NewLeadHandler(leads *usecase.LeadService) *LeadHandler {
	return &LeadHandler{Leads: leads}
}

// List answers GET /leads?q=
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Leads.Store.View(r.URL.Query().Get("q")))
}

func (h *LeadHandler) Preview(w http.ResponseWriter, r *http.Request) {
	limit := defaultPreviewLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.Leads.Store.Preview(limit))
}

func (h *LeadHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Leads.Store.ByStage())
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	lead, err := h.Leads.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch entity.LeadPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	if err := h.Leads.Edit(r.Context(), id, patch); err != nil {
		writeError(w, err)
		return
	}
	h.writeLead(w, id)
}

type ChangeStageRequest struct {
	Stage entity.Stage `json:"stage"`
}

func (h *LeadHandler) ChangeStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ChangeStageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Leads.ChangeStage(r.Context(), id, req.Stage); err != nil {
		writeError(w, err)
		return
	}
	h.writeLead(w, id)
}

func (h *LeadHandler) Touch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Leads.Touch(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.writeLead(w, id)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Leads.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reload is the retry action of the error banner.
func (h *LeadHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.Leads.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Leads.Store.View(""))
}

func (h *LeadHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.Leads.Store.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeadHandler) writeLead(w http.ResponseWriter, id string) {
	lead, ok := h.Leads.Store.Get(id)
	if !ok {
		// A concurrent reload may have dropped it.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

package handlers

import (
	"net/http"

	"github.com/ali-azain/GlassFlow-CRM/internal/usecase"
)

type SelectionHandler struct {
	Selection *usecase.Selection
	Leads     *usecase.LeadStore
}

func NewSelectionHandler(selection *usecase.Selection, leads *usecase.LeadStore) *SelectionHandler {
	return &SelectionHandler{Selection: selection, Leads: leads}
}

type SelectionResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func (h *SelectionHandler) current() SelectionResponse {
	ids := h.Selection.IDs()
	return SelectionResponse{IDs: ids, Count: len(ids)}
}

func (h *SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.current())
}

type ToggleRequest struct {
	ID string `json:"id"`
}

func (h *SelectionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "id is required")
		return
	}

	h.Selection.Toggle(req.ID)
	writeJSON(w, http.StatusOK, h.current())
}

// ToggleAll selects or clears the leads visible under the same filter as GET /leads.
func (h *SelectionHandler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	h.Selection.ToggleAll(h.Leads.Filter(r.URL.Query().Get("q")))
	writeJSON(w, http.StatusOK, h.current())
}

func (h *SelectionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.Selection.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type BulkDeleteResponse struct {
	Requested int `json:"requested"`
}

func (h *SelectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	n, err := h.Selection.BulkDelete(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkDeleteResponse{Requested: n})
}

func (h *SelectionHandler) SaveList(w http.ResponseWriter, r *http.Request) {
	if err := h.Selection.SaveAsList(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ali-azain/GlassFlow-CRM/internal/usecase"
)

const maxUploadBytes = 10 << 20

type ImportHandler struct {
	Imports *usecase.ImportRegistry
}

func NewImportHandler(imports *usecase.ImportRegistry) *ImportHandler {
	return &ImportHandler{Imports: imports}
}

// Upload opens an import session from the multipart field "file".
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "MISSING_FILE", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	session, err := h.Imports.Create(header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		// Not registered; the snapshot carries the message for the wizard.
		writeJSON(w, statusFor(err), session.Snapshot())
		return
	}
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func statusFor(err error) int {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		return domainStatus(de)
	}
	return http.StatusBadGateway
}

func (h *ImportHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.Imports.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

type MappingRequest struct {
	Mapping map[string]string `json:"mapping"`
}

func (h *ImportHandler) SetMapping(w http.ResponseWriter, r *http.Request) {
	session, err := h.Imports.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req MappingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := session.SetMapping(req.Mapping); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// Run starts the import in the background; poll GET /imports/{id} for progress.
func (h *ImportHandler) Run(w http.ResponseWriter, r *http.Request) {
	session, err := h.Imports.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session.Snapshot())
}

func (h *ImportHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Imports.Cancel(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

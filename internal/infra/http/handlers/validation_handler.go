package handlers

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

type EmailChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// ValidationHandler lets the create-lead form check an address before submitting.
type ValidationHandler struct {
	Repo EmailChecker
}

func NewValidationHandler(repo EmailChecker) *ValidationHandler {
	return &ValidationHandler{Repo: repo}
}

type ValidateEmailRequest struct {
	Email string `json:"email"`
}

func (h *ValidationHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var input ValidateEmailRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		writeErrorResponse(w, http.StatusBadRequest, "MISSING_FIELDS", "email is required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "email is invalid")
		return
	}

	exists, err := h.Repo.EmailExists(r.Context(), email)
	if err != nil {
		writeErrorResponse(w, http.StatusBadGateway, "DATABASE_ERROR", "could not check the address")
		return
	}
	if exists {
		writeErrorResponse(w, http.StatusConflict, "EMAIL_ALREADY_EXISTS", entity.ErrEmailAlreadyExists.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

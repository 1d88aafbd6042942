package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/usecase"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeError maps use case errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var de *usecase.DomainError
	var te *usecase.TechnicalError

	switch {
	case errors.Is(err, entity.ErrEmailAlreadyExists):
		writeErrorResponse(w, http.StatusConflict, "EMAIL_ALREADY_EXISTS", entity.ErrEmailAlreadyExists.Error())
	case errors.As(err, &de):
		writeErrorResponse(w, domainStatus(de), de.Code, de.Message)
	case errors.As(err, &te):
		writeErrorResponse(w, http.StatusBadGateway, te.Code, te.Message)
	default:
		log.Printf("❌ [HTTP] unexpected error: %v", err)
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func domainStatus(de *usecase.DomainError) int {
	switch {
	case errors.Is(de, entity.ErrLeadNotFound), errors.Is(de, entity.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(de, entity.ErrNotAuthenticated), errors.Is(de, entity.ErrAuthRejected):
		return http.StatusUnauthorized
	}
	switch de.Code {
	case "IMPORT_NOT_FOUND":
		return http.StatusNotFound
	case "NOT_IMPLEMENTED":
		return http.StatusNotImplemented
	case "WRONG_IMPORT_PHASE", "MAPPING_INCOMPLETE", "LEAD_PENDING", "TASK_PENDING":
		return http.StatusConflict
	case "INVALID_FILE", "CSV_PARSE_ERROR":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

package usecase

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type CreateLeadInput struct {
	Name    string  `json:"name"`
	Company string  `json:"company"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Value   float64 `json:"value"`
}

type CreateTaskInput struct {
	LeadID      string            `json:"lead_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    entity.Priority   `json:"priority"`
	Status      entity.TaskStatus `json:"status"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
}

func ValidateCreateLeadInput(input CreateLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Name) == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	}
	if strings.TrimSpace(input.Company) == "" {
		errors = append(errors, ValidationError{"company", "is required"})
	}
	errors = append(errors, validateEmail(input.Email)...)
	errors = append(errors, validateValue(input.Value)...)

	return errors
}

func ValidateLeadPatch(patch entity.LeadPatch) []ValidationError {
	var errors []ValidationError

	if patch.Empty() {
		errors = append(errors, ValidationError{"patch", "must change at least one field"})
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		errors = append(errors, ValidationError{"name", "must not be empty"})
	}
	if patch.Company != nil && strings.TrimSpace(*patch.Company) == "" {
		errors = append(errors, ValidationError{"company", "must not be empty"})
	}
	if patch.Email != nil {
		errors = append(errors, validateEmail(*patch.Email)...)
	}
	if patch.Value != nil {
		errors = append(errors, validateValue(*patch.Value)...)
	}
	if patch.Stage != nil && !patch.Stage.Valid() {
		errors = append(errors, ValidationError{"stage", "is not a pipeline stage"})
	}

	return errors
}

func ValidateCreateTaskInput(input CreateTaskInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Title) == "" {
		errors = append(errors, ValidationError{"title", "is required"})
	} else if len(input.Title) > 200 {
		errors = append(errors, ValidationError{"title", "must not exceed 200 characters"})
	}

	return errors
}

func ValidateTaskPatch(patch entity.TaskPatch) []ValidationError {
	var errors []ValidationError

	if patch.Empty() {
		errors = append(errors, ValidationError{"patch", "must change at least one field"})
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		errors = append(errors, ValidationError{"title", "must not be empty"})
	}

	return errors
}

func ValidateCredentials(email, password string) []ValidationError {
	var errors []ValidationError

	errors = append(errors, validateEmail(email)...)
	if password == "" {
		errors = append(errors, ValidationError{"password", "is required"})
	} else if len(password) < 6 {
		errors = append(errors, ValidationError{"password", "must have at least 6 characters"})
	}

	return errors
}

func validateEmail(email string) []ValidationError {
	email = strings.TrimSpace(email)
	if email == "" {
		return []ValidationError{{"email", "is required"}}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return []ValidationError{{"email", "is invalid"}}
	}
	return nil
}

func validateValue(v float64) []ValidationError {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return []ValidationError{{"value", "must be a non-negative number"}}
	}
	return nil
}

// validationFailure folds validation errors into a single DomainError.
func validationFailure(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed: " + strings.Join(parts, ", "),
	}
}

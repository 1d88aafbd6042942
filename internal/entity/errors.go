package entity

import "errors"

var (
	ErrLeadNotFound       = errors.New("lead not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrUnknownStage       = errors.New("unknown stage")
	ErrUnknownPriority    = errors.New("unknown priority")
	ErrUnknownTaskStatus  = errors.New("unknown task status")
	ErrEmailAlreadyExists = errors.New("a lead with this email already exists")
	ErrNotAuthenticated   = errors.New("not signed in")
	ErrAuthRejected       = errors.New("credentials rejected")
)

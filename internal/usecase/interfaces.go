package usecase

import (
	"context"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/queue"
)

// BatchInserter commits one import batch as a single remote insert.
type BatchInserter interface {
	InsertBatch(ctx context.Context, leads []entity.NewLead) error
}

type EventPublisher interface {
	PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error
}

// SessionSource exposes the signed-in session, if any.
type SessionSource interface {
	Current() *entity.Session
}

// Authenticator is the hosted auth capability.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error)
	SignUp(ctx context.Context, email, password, redirectTo string) (*entity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*entity.Session, error)
}

type MetricsRecorder interface {
	RecordRollback(scope, mutation string)
	RecordImportBatch(status string, rows int)
}

type noopRecorder struct{}

func (noopRecorder) RecordRollback(string, string) {}
func (noopRecorder) RecordImportBatch(string, int) {}

func recipient(sessions SessionSource) string {
	if sessions == nil {
		return ""
	}
	if s := sessions.Current(); s != nil {
		return s.User.Email
	}
	return ""
}

package worker

import (
	"context"
	"log"
	"time"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

type SessionRefresher interface {
	Current() *entity.Session
	Refresh(ctx context.Context) error
}

// SessionRefreshWorker renews the access token shortly before it lapses.
type SessionRefreshWorker struct {
	auth         SessionRefresher
	refreshAhead time.Duration
	tickInterval time.Duration
	now          func() time.Time
}

func NewSessionRefreshWorker(auth SessionRefresher) *SessionRefreshWorker {
	return &SessionRefreshWorker{
		auth:         auth,
		refreshAhead: 5 * time.Minute,
		tickInterval: 1 * time.Minute,
		now:          time.Now,
	}
}

func (w *SessionRefreshWorker) Start(ctx context.Context) {
	log.Println("🕒 Session refresh worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.refreshIfDue(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Session refresh worker stopped")
			return
		case <-ticker.C:
			w.refreshIfDue(ctx)
		}
	}
}

// refreshIfDue reports whether a refresh was attempted.
func (w *SessionRefreshWorker) refreshIfDue(ctx context.Context) bool {
	session := w.auth.Current()
	if session == nil || !session.ExpiresWithin(w.refreshAhead, w.now()) {
		return false
	}

	if err := w.auth.Refresh(ctx); err != nil {
		log.Printf("❌ Session refresh failed: %v", err)
		return true
	}
	log.Printf("🔄 Session refreshed for %s", session.User.Email)
	return true
}

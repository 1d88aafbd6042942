package usecase

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/queue"
)

type importEntry struct {
	session *ImportSession
	cancel  context.CancelFunc
}

// DefaultImportRetention is how long a finished session stays pollable.
const DefaultImportRetention = 30 * time.Second

// ImportRegistry keeps the live import sessions so the HTTP layer can drive them by id.
// A run happens in the background; callers poll the snapshot. Finished sessions are
// dropped after Retention, cancelled ones at once.
type ImportRegistry struct {
	Inserter  BatchInserter
	Leads     *LeadService
	Events    EventPublisher
	Sessions  SessionSource
	Now       func() time.Time
	Retention time.Duration

	recorder MetricsRecorder
	mu       sync.Mutex
	entries  map[string]*importEntry
	wg       sync.WaitGroup
}

func NewImportRegistry(inserter BatchInserter, leads *LeadService, events EventPublisher, sessions SessionSource, recorder MetricsRecorder) *ImportRegistry {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &ImportRegistry{
		Inserter:  inserter,
		Leads:     leads,
		Events:    events,
		Sessions:  sessions,
		Now:       time.Now,
		Retention: DefaultImportRetention,
		recorder:  recorder,
		entries:   make(map[string]*importEntry),
	}
}

// Create opens a session and feeds it the uploaded file. A rejected file is not
// registered; the returned session only carries the message for the caller.
func (r *ImportRegistry) Create(fileName, contentType string, body io.Reader) (*ImportSession, error) {
	session := NewImportSession()
	session.Now = r.Now

	if err := session.Upload(fileName, contentType, body); err != nil {
		return session, err
	}

	r.mu.Lock()
	r.entries[session.ID] = &importEntry{session: session}
	r.mu.Unlock()

	log.Printf("📄 [IMPORT] %s: %s parsed, %d rows", session.ID, fileName, session.Snapshot().Rows)
	return session, nil
}

func (r *ImportRegistry) Get(id string) (*ImportSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, &DomainError{Code: "IMPORT_NOT_FOUND", Message: "import not found: " + id}
	}
	return entry.session, nil
}

// Run starts the import and returns once the session is in Importing.
func (r *ImportRegistry) Run(ctx context.Context, id string) (*ImportSession, error) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil, &DomainError{Code: "IMPORT_NOT_FOUND", Message: "import not found: " + id}
	}
	if err := entry.session.Start(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	var owner *entity.Session
	if r.Sessions != nil {
		owner = r.Sessions.Current()
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	entry.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()
		r.execute(runCtx, entry.session, owner)
		r.expire(entry)
	}()

	return entry.session, nil
}

func (r *ImportRegistry) execute(ctx context.Context, session *ImportSession, owner *entity.Session) {
	var inserter BatchInserter = &recordingInserter{next: r.Inserter, recorder: r.recorder}
	if owner != nil {
		inserter = &ownedInserter{next: inserter, sessions: r.Sessions, userID: owner.User.ID}
	}
	runErr := session.Execute(ctx, inserter)
	snap := session.Snapshot()
	after := context.WithoutCancel(ctx)

	event := queue.LeadEvent{
		Type:       queue.EventImportCompleted,
		Imported:   snap.Committed,
		Total:      snap.Rows,
		Recipient:  ownerEmail(owner),
		OccurredAt: r.Now(),
	}
	if runErr != nil {
		log.Printf("❌ [IMPORT] %s halted after %d/%d rows: %v", session.ID, snap.Committed, snap.Rows, runErr)
		event.Type = queue.EventImportFailed
		event.Error = snap.Error
	} else {
		log.Printf("✅ [IMPORT] %s finished, %d rows", session.ID, snap.Committed)
	}

	// Committed batches stay even when a later one fails, so the collection is reloaded either way.
	if snap.Committed > 0 && r.Leads != nil {
		if err := r.Leads.Load(after); err != nil {
			log.Printf("⚠️ [IMPORT] reload after import: %v", err)
		}
	}

	if r.Events != nil {
		if err := r.Events.PublishLeadEvent(after, event); err != nil {
			log.Printf("⚠️ [IMPORT] %s event not published: %v", event.Type, err)
		}
	}
}

func (r *ImportRegistry) expire(entry *importEntry) {
	if r.Retention <= 0 {
		r.remove(entry)
		return
	}
	time.AfterFunc(r.Retention, func() { r.remove(entry) })
}

func (r *ImportRegistry) remove(entry *importEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[entry.session.ID] == entry {
		delete(r.entries, entry.session.ID)
	}
}

// Cancel discards the session, stopping a running import before its next batch.
func (r *ImportRegistry) Cancel(id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if !ok {
		return &DomainError{Code: "IMPORT_NOT_FOUND", Message: "import not found: " + id}
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	return nil
}

// Reset discards every session, as on sign-out.
func (r *ImportRegistry) Reset() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*importEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		if entry.cancel != nil {
			entry.cancel()
		}
	}
}

// Wait blocks until every background import has returned.
func (r *ImportRegistry) Wait() {
	r.wg.Wait()
}

type recordingInserter struct {
	next     BatchInserter
	recorder MetricsRecorder
}

func (i *recordingInserter) InsertBatch(ctx context.Context, leads []entity.NewLead) error {
	if err := i.next.InsertBatch(ctx, leads); err != nil {
		i.recorder.RecordImportBatch("error", len(leads))
		return err
	}
	i.recorder.RecordImportBatch("success", len(leads))
	return nil
}

// ownedInserter refuses a batch once the signed-in user is no longer the one who
// started the import, so rows never land under another user's identity.
type ownedInserter struct {
	next     BatchInserter
	sessions SessionSource
	userID   string
}

func (i *ownedInserter) InsertBatch(ctx context.Context, leads []entity.NewLead) error {
	current := i.sessions.Current()
	if current == nil || current.User.ID != i.userID {
		return &DomainError{Code: "SESSION_CHANGED", Message: "signed-in user changed during import", Err: entity.ErrNotAuthenticated}
	}
	return i.next.InsertBatch(ctx, leads)
}

func ownerEmail(owner *entity.Session) string {
	if owner == nil {
		return ""
	}
	return owner.User.Email
}

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/queue"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) List(ctx context.Context) ([]entity.LeadRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LeadRow), args.Error(1)
}

func (m *MockLeadRepository) Insert(ctx context.Context, lead entity.NewLead) (*entity.LeadRow, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeadRow), args.Error(1)
}

func (m *MockLeadRepository) InsertBatch(ctx context.Context, leads []entity.NewLead) error {
	args := m.Called(ctx, leads)
	return args.Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, id string, patch entity.LeadPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) ListAll(ctx context.Context) ([]entity.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Task), args.Error(1)
}

func (m *MockTaskRepository) ListByLead(ctx context.Context, leadID string) ([]entity.Task, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Task), args.Error(1)
}

func (m *MockTaskRepository) Create(ctx context.Context, t entity.Task) (*entity.Task, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, id string, patch entity.TaskPatch) (*entity.Task, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockAuthenticator) SignUp(ctx context.Context, email, password, redirectTo string) (*entity.Session, error) {
	args := m.Called(ctx, email, password, redirectTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockAuthenticator) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (*entity.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// batchRecorder keeps every batch it was handed.
type batchRecorder struct {
	mu      sync.Mutex
	batches [][]entity.NewLead
	failOn  int
	err     error
}

func (b *batchRecorder) InsertBatch(_ context.Context, leads []entity.NewLead) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batches = append(b.batches, leads)
	if b.failOn > 0 && len(b.batches) == b.failOn {
		return b.err
	}
	return nil
}

func (b *batchRecorder) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

type fakeRecorder struct {
	mu        sync.Mutex
	rollbacks []string
	batches   map[string]int
}

func (r *fakeRecorder) RecordRollback(scope, mutation string) {
	r.mu.Lock()
	r.rollbacks = append(r.rollbacks, scope+"/"+mutation)
	r.mu.Unlock()
}

func (r *fakeRecorder) RecordImportBatch(status string, rows int) {
	r.mu.Lock()
	if r.batches == nil {
		r.batches = make(map[string]int)
	}
	r.batches[status] += rows
	r.mu.Unlock()
}

type staticSessions struct {
	session *entity.Session
}

func (s staticSessions) Current() *entity.Session { return s.session }

func leadRow(id, name string, stage entity.Stage, value float64) entity.LeadRow {
	at := fixedNow.Add(-time.Hour)
	return entity.LeadRow{
		ID:             id,
		Name:           name,
		Company:        name + " Inc",
		Email:          id + "@example.com",
		Value:          value,
		Stage:          stage,
		LastActivityAt: &at,
	}
}

package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/queue"
)

// LeadService drives every lead write through the Coordinator against the Lead Store.
type LeadService struct {
	Repo     entity.LeadRepositoryInterface
	Store    *LeadStore
	Events   EventPublisher
	Sessions SessionSource
	Now      func() time.Time

	coord *Coordinator
}

func NewLeadService(
	repo entity.LeadRepositoryInterface,
	store *LeadStore,
	events EventPublisher,
	sessions SessionSource,
	recorder MetricsRecorder,
) *LeadService {
	s := &LeadService{
		Repo:     repo,
		Store:    store,
		Events:   events,
		Sessions: sessions,
		Now:      time.Now,
	}
	s.coord = NewCoordinator("leads", s.Load, store.SetError, recorder)
	return s
}

// Load replaces the collection with the store's rows, most recent activity first.
func (s *LeadService) Load(ctx context.Context) error {
	s.Store.BeginLoad()

	rows, err := s.Repo.List(ctx)
	if err != nil {
		s.Store.Fail(err.Error())
		return &TechnicalError{Code: "LOAD_FAILED", Message: "could not load leads: " + err.Error(), Err: err}
	}

	now := s.Now()
	leads := make([]entity.Lead, 0, len(rows))
	for _, row := range rows {
		leads = append(leads, entity.ToViewModel(row, now))
	}
	s.Store.Replace(leads)

	log.Printf("📥 [LEADS] Loaded %d leads", len(leads))
	return nil
}

// Create shows a placeholder immediately and swaps in the stored row once the insert returns.
func (s *LeadService) Create(ctx context.Context, input CreateLeadInput) (*entity.Lead, error) {
	if err := validationFailure(ValidateCreateLeadInput(input)); err != nil {
		return nil, err
	}

	now := s.Now()
	email := strings.TrimSpace(input.Email)
	avatar := entity.AvatarURL(nil, email, "")

	payload := entity.NewLead{
		Name:           strings.TrimSpace(input.Name),
		Company:        strings.TrimSpace(input.Company),
		Email:          email,
		Value:          input.Value,
		Stage:          entity.StageNew,
		Tags:           []string{},
		AvatarURL:      &avatar,
		LastActivityAt: now,
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		payload.Phone = &phone
	}

	placeholder := entity.Lead{
		ID:             entity.PlaceholderPrefix + uuid.New().String(),
		Name:           payload.Name,
		Company:        payload.Company,
		Email:          payload.Email,
		Value:          payload.Value,
		Stage:          payload.Stage,
		Tags:           []string{},
		LastActivity:   entity.JustNow,
		LastActivityAt: now,
		Avatar:         avatar,
	}
	if payload.Phone != nil {
		placeholder.Phone = *payload.Phone
	}

	var created entity.Lead
	err := s.coord.Execute(ctx, Mutation{
		Name:  "create lead",
		Apply: func() { s.Store.Prepend(placeholder) },
		Commit: func(ctx context.Context) error {
			row, err := s.Repo.Insert(ctx, payload)
			if err != nil {
				return err
			}
			created = entity.ToViewModel(*row, s.Now())
			// A reload may have dropped the placeholder meanwhile.
			if !s.Store.Swap(placeholder.ID, created) {
				s.Store.Prepend(created)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, queue.LeadEvent{
		Type:     queue.EventLeadCreated,
		LeadID:   created.ID,
		LeadName: created.Name,
		Company:  created.Company,
		Stage:    created.Stage.String(),
		Value:    created.Value,
	})
	return &created, nil
}

// ChangeStage moves a lead to another column and touches its activity time.
func (s *LeadService) ChangeStage(ctx context.Context, id string, stage entity.Stage) error {
	if !stage.Valid() {
		return &DomainError{Code: "INVALID_STAGE", Message: "stage is not a pipeline stage", Err: entity.ErrUnknownStage}
	}
	lead, err := s.committed(id)
	if err != nil {
		return err
	}

	now := s.Now()
	err = s.coord.Execute(ctx, Mutation{
		Name: "change stage",
		Apply: func() {
			s.Store.Update(id, func(l *entity.Lead) {
				l.Stage = stage
				l.LastActivity = entity.JustNow
				l.LastActivityAt = now
			})
		},
		Commit: func(ctx context.Context) error {
			return s.Repo.Update(ctx, id, entity.LeadPatch{Stage: &stage, LastActivityAt: &now})
		},
	})
	if err != nil {
		return err
	}

	if lead.Stage != stage {
		s.publish(ctx, queue.LeadEvent{
			Type:      queue.EventLeadStageChanged,
			LeadID:    id,
			LeadName:  lead.Name,
			Company:   lead.Company,
			Stage:     stage.String(),
			FromStage: lead.Stage.String(),
			Value:     lead.Value,
		})
	}
	return nil
}

// Edit applies a partial update to one lead.
func (s *LeadService) Edit(ctx context.Context, id string, patch entity.LeadPatch) error {
	if err := validationFailure(ValidateLeadPatch(patch)); err != nil {
		return err
	}
	if _, err := s.committed(id); err != nil {
		return err
	}

	return s.coord.Execute(ctx, Mutation{
		Name:  "edit lead",
		Apply: func() { s.Store.Update(id, patch.Apply) },
		Commit: func(ctx context.Context) error {
			return s.Repo.Update(ctx, id, patch)
		},
	})
}

// Touch bumps the lead's last activity to now.
func (s *LeadService) Touch(ctx context.Context, id string) error {
	now := s.Now()
	return s.Edit(ctx, id, entity.LeadPatch{LastActivityAt: &now})
}

func (s *LeadService) Delete(ctx context.Context, id string) error {
	if _, err := s.committed(id); err != nil {
		return err
	}

	return s.coord.Execute(ctx, Mutation{
		Name:  "delete lead",
		Apply: func() { s.Store.Remove(id) },
		Commit: func(ctx context.Context) error {
			return s.Repo.Delete(ctx, id)
		},
	})
}

// DeleteMany removes every id locally and issues one remote delete per id.
// Partial failure is repaired by a single reload; nothing is rolled back remotely.
func (s *LeadService) DeleteMany(ctx context.Context, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	var targets []string
	for _, id := range ids {
		if _, dup := seen[id]; dup || strings.HasPrefix(id, entity.PlaceholderPrefix) {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		return nil
	}

	commits := make([]func(ctx context.Context) error, 0, len(targets))
	for _, id := range targets {
		commits = append(commits, func(ctx context.Context) error {
			return s.Repo.Delete(ctx, id)
		})
	}

	return s.coord.ExecuteAll(ctx, "bulk delete", func() { s.Store.Remove(targets...) }, commits)
}

// committed returns the lead if it exists and already has its durable id.
func (s *LeadService) committed(id string) (entity.Lead, error) {
	lead, ok := s.Store.Get(id)
	if !ok {
		return entity.Lead{}, &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead not found: " + id, Err: entity.ErrLeadNotFound}
	}
	if lead.Placeholder() {
		return entity.Lead{}, &DomainError{Code: "LEAD_PENDING", Message: "lead is still being saved"}
	}
	return lead, nil
}

func (s *LeadService) publish(ctx context.Context, event queue.LeadEvent) {
	if s.Events == nil {
		return
	}
	event.Recipient = recipient(s.Sessions)
	event.OccurredAt = s.Now()

	if err := s.Events.PublishLeadEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("⚠️ [LEADS] %s committed but event not published: %v", event.Type, err)
	}
}

// IsNotFound reports whether err means the lead or task does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, entity.ErrLeadNotFound) || errors.Is(err, entity.ErrTaskNotFound)
}

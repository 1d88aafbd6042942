package entity

import (
	"context"
	"strings"
	"time"
)

// Lead is the in-memory view of a `leads` row.
type Lead struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Company        string    `json:"company"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Value          float64   `json:"value"`
	Stage          Stage     `json:"stage"`
	Tags           []string  `json:"tags"`
	LastActivity   string    `json:"last_activity"`
	LastActivityAt time.Time `json:"last_activity_at"`
	Avatar         string    `json:"avatar"`
}

// Placeholder reports whether the lead is an optimistic entry still waiting for its durable id.
func (l Lead) Placeholder() bool {
	return strings.HasPrefix(l.ID, PlaceholderPrefix)
}

// PlaceholderPrefix marks ids assigned locally before the remote store answers.
const PlaceholderPrefix = "tmp-"

// LeadRow mirrors the `leads` relation. Nullable columns are pointers.
type LeadRow struct {
	ID             string
	Name           string
	Company        string
	Email          string
	Phone          *string
	Value          float64
	Stage          Stage
	Tags           []string
	Notes          *string
	AvatarURL      *string
	LastActivityAt *time.Time
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
}

// NewLead is the insert payload for `leads`; id and timestamps are assigned by the store.
type NewLead struct {
	Name           string
	Company        string
	Email          string
	Phone          *string
	Value          float64
	Stage          Stage
	Tags           []string
	AvatarURL      *string
	LastActivityAt time.Time
}

// LeadPatch is a partial update of one lead; nil fields are left untouched.
type LeadPatch struct {
	Name           *string    `json:"name,omitempty"`
	Company        *string    `json:"company,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	Value          *float64   `json:"value,omitempty"`
	Stage          *Stage     `json:"stage,omitempty"`
	Tags           *[]string  `json:"tags,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
}

func (p LeadPatch) Empty() bool {
	return p.Name == nil && p.Company == nil && p.Email == nil && p.Phone == nil &&
		p.Value == nil && p.Stage == nil && p.Tags == nil && p.LastActivityAt == nil
}

// Apply copies the set fields onto the view model.
func (p LeadPatch) Apply(l *Lead) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Company != nil {
		l.Company = *p.Company
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.Value != nil {
		l.Value = *p.Value
	}
	if p.Stage != nil {
		l.Stage = *p.Stage
	}
	if p.Tags != nil {
		l.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.LastActivityAt != nil {
		l.LastActivityAt = *p.LastActivityAt
		l.LastActivity = JustNow
	}
}

type LeadRepositoryInterface interface {
	List(ctx context.Context) ([]LeadRow, error)
	Insert(ctx context.Context, lead NewLead) (*LeadRow, error)
	InsertBatch(ctx context.Context, leads []NewLead) error
	Update(ctx context.Context, id string, patch LeadPatch) error
	Delete(ctx context.Context, id string) error
}

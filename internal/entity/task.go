package entity

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type Priority uint8

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return ""
	}
}

func ParsePriority(raw string) (Priority, error) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if strings.EqualFold(strings.TrimSpace(raw), p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, raw)
}

func (p Priority) MarshalText() ([]byte, error) {
	if p.String() == "" {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPriority, p)
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Priority) Value() (driver.Value, error) {
	if p.String() == "" {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPriority, p)
	}
	return p.String(), nil
}

func (p *Priority) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return p.UnmarshalText([]byte(v))
	case []byte:
		return p.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrUnknownPriority, src)
	}
}

// TaskStatus only ever flips between Todo and Done.
type TaskStatus uint8

const (
	TaskTodo TaskStatus = iota + 1
	TaskDone
)

func (s TaskStatus) String() string {
	switch s {
	case TaskTodo:
		return "Todo"
	case TaskDone:
		return "Done"
	default:
		return ""
	}
}

// Toggled returns the other status.
func (s TaskStatus) Toggled() TaskStatus {
	if s == TaskDone {
		return TaskTodo
	}
	return TaskDone
}

func ParseTaskStatus(raw string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "todo":
		return TaskTodo, nil
	case "done":
		return TaskDone, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTaskStatus, raw)
}

func (s TaskStatus) MarshalText() ([]byte, error) {
	if s.String() == "" {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTaskStatus, s)
	}
	return []byte(s.String()), nil
}

func (s *TaskStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s TaskStatus) Value() (driver.Value, error) {
	if s.String() == "" {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTaskStatus, s)
	}
	return s.String(), nil
}

func (s *TaskStatus) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrUnknownTaskStatus, src)
	}
}

// Task references at most one lead; the reference is weak and never cascades.
type Task struct {
	ID          string     `json:"id"`
	LeadID      string     `json:"lead_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
}

// Apply copies the set fields of the patch onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Status == nil && p.DueDate == nil
}

type TaskRepositoryInterface interface {
	ListAll(ctx context.Context) ([]Task, error)
	ListByLead(ctx context.Context, leadID string) ([]Task, error)
	Create(ctx context.Context, t Task) (*Task, error)
	Update(ctx context.Context, id string, patch TaskPatch) (*Task, error)
	Delete(ctx context.Context, id string) error
}

// TaskRow mirrors the `tasks` relation. Nullable columns are pointers.
type TaskRow struct {
	ID          string
	LeadID      *string
	Title       string
	Description *string
	Priority    Priority
	Status      TaskStatus
	DueDate     *time.Time
	CreatedAt   *time.Time
}

func TaskFromRow(row TaskRow) Task {
	t := Task{
		ID:       row.ID,
		Title:    row.Title,
		Priority: row.Priority,
		Status:   row.Status,
		DueDate:  row.DueDate,
	}
	if row.LeadID != nil {
		t.LeadID = *row.LeadID
	}
	if row.Description != nil {
		t.Description = *row.Description
	}
	if row.CreatedAt != nil {
		t.CreatedAt = *row.CreatedAt
	}
	return t
}

// Row is the inverse of TaskFromRow; empty optional strings become NULL.
func (t Task) Row() TaskRow {
	row := TaskRow{
		ID:          t.ID,
		LeadID:      nullString(t.LeadID),
		Title:       t.Title,
		Description: nullString(t.Description),
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
	}
	if !t.CreatedAt.IsZero() {
		c := t.CreatedAt
		row.CreatedAt = &c
	}
	return row
}

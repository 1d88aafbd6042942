package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

// Selection is the set of lead ids ticked in the list view. It is independent of
// the lead collection; ids of leads that disappear simply stay until cleared.
type Selection struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	Leads *LeadService
}

func NewSelection(leads *LeadService) *Selection {
	return &Selection{ids: make(map[string]struct{}), Leads: leads}
}

func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// ToggleAll selects every visible lead, or clears the selection when all of them
// are already selected. An empty visible set changes nothing.
func (s *Selection) ToggleAll(visible []entity.Lead) {
	if len(visible) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := true
	for _, l := range visible {
		if _, ok := s.ids[l.ID]; !ok {
			all = false
			break
		}
	}
	if all {
		s.ids = make(map[string]struct{})
		return
	}
	for _, l := range visible {
		s.ids[l.ID] = struct{}{}
	}
}

func (s *Selection) Clear() {
	s.mu.Lock()
	s.ids = make(map[string]struct{})
	s.mu.Unlock()
}

func (s *Selection) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected ids in a stable order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BulkDelete deletes every selected lead. The selection is cleared whatever the outcome.
func (s *Selection) BulkDelete(ctx context.Context) (int, error) {
	ids := s.IDs()
	s.Clear()
	if len(ids) == 0 {
		return 0, nil
	}
	return len(ids), s.Leads.DeleteMany(ctx, ids)
}

// SaveAsList is not available yet.
func (s *Selection) SaveAsList(context.Context) error {
	return ErrNotImplemented
}

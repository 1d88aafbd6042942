package usecase

import (
	"strings"
	"sync"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

// PipelineColumn is one stage of the board with its derived aggregates.
type PipelineColumn struct {
	Stage      entity.Stage  `json:"stage"`
	Title      string        `json:"title"`
	Count      int           `json:"count"`
	TotalValue float64       `json:"total_value"`
	Leads      []entity.Lead `json:"leads"`
}

// LeadsView is what the presentation layer renders for the leads list.
type LeadsView struct {
	Leads   []entity.Lead `json:"leads"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

// LeadStore holds the one authoritative-as-known ordered collection of leads.
// Projections are computed on every read and never stored.
type LeadStore struct {
	mu      sync.RWMutex
	leads   []entity.Lead
	loading bool
	err     string
}

func NewLeadStore() *LeadStore {
	return &LeadStore{}
}

func cloneLead(l entity.Lead) entity.Lead {
	l.Tags = append([]string{}, l.Tags...)
	return l
}

// Replace swaps in a freshly loaded collection. Duplicate ids keep the first position
// and the last value.
func (s *LeadStore) Replace(leads []entity.Lead) {
	out := make([]entity.Lead, 0, len(leads))
	pos := make(map[string]int, len(leads))
	for _, l := range leads {
		if i, ok := pos[l.ID]; ok {
			out[i] = cloneLead(l)
			continue
		}
		pos[l.ID] = len(out)
		out = append(out, cloneLead(l))
	}

	s.mu.Lock()
	s.leads = out
	s.loading = false
	s.mu.Unlock()
}

// Fail records a load failure; views see an empty collection until the next load.
func (s *LeadStore) Fail(msg string) {
	s.mu.Lock()
	s.leads = nil
	s.loading = false
	s.err = msg
	s.mu.Unlock()
}

func (s *LeadStore) BeginLoad() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// Prepend puts a lead at the head of the collection, replacing any entry with the same id.
func (s *LeadStore) Prepend(l entity.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads = removeLead(s.leads, l.ID)
	s.leads = append([]entity.Lead{cloneLead(l)}, s.leads...)
}

// Update applies fn to the lead with the given id. It reports whether the id was found.
func (s *LeadStore) Update(id string, fn func(*entity.Lead)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.leads {
		if s.leads[i].ID == id {
			fn(&s.leads[i])
			return true
		}
	}
	return false
}

// Swap replaces the entry oldID in place with l, dropping any other copy of l.ID.
func (s *LeadStore) Swap(oldID string, l entity.Lead) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.leads {
		if s.leads[i].ID == oldID {
			s.leads[i] = cloneLead(l)
			for j := len(s.leads) - 1; j >= 0; j-- {
				if j != i && s.leads[j].ID == l.ID {
					s.leads = append(s.leads[:j], s.leads[j+1:]...)
				}
			}
			return true
		}
	}
	return false
}

// Remove drops the given ids and returns how many were present.
func (s *LeadStore) Remove(ids ...string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.leads[:0]
	removed := 0
	for _, l := range s.leads {
		if _, ok := drop[l.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	s.leads = kept
	return removed
}

func removeLead(leads []entity.Lead, id string) []entity.Lead {
	for i := range leads {
		if leads[i].ID == id {
			return append(leads[:i], leads[i+1:]...)
		}
	}
	return leads
}

func (s *LeadStore) Get(id string) (entity.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.leads {
		if l.ID == id {
			return cloneLead(l), true
		}
	}
	return entity.Lead{}, false
}

func (s *LeadStore) All() []entity.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, cloneLead(l))
	}
	return out
}

func (s *LeadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads)
}

// Filter matches term case-insensitively as a substring of name or company.
// An empty term matches everything.
func (s *LeadStore) Filter(term string) []entity.Lead {
	needle := strings.ToLower(term)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if strings.Contains(strings.ToLower(l.Name), needle) || strings.Contains(strings.ToLower(l.Company), needle) {
			out = append(out, cloneLead(l))
		}
	}
	return out
}

// ByStage groups the collection into one column per stage, in board order.
func (s *LeadStore) ByStage() []PipelineColumn {
	columns := make([]PipelineColumn, len(entity.Stages))
	index := make(map[entity.Stage]int, len(entity.Stages))
	for i, stage := range entity.Stages {
		columns[i] = PipelineColumn{Stage: stage, Title: stage.String(), Leads: []entity.Lead{}}
		index[stage] = i
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.leads {
		i, ok := index[l.Stage]
		if !ok {
			continue
		}
		columns[i].Leads = append(columns[i].Leads, cloneLead(l))
		columns[i].Count++
		columns[i].TotalValue += l.Value
	}
	return columns
}

// Preview returns at most n leads from the head of the collection.
func (s *LeadStore) Preview(n int) []entity.Lead {
	all := s.All()
	if n < 0 {
		n = 0
	}
	if n < len(all) {
		return all[:n]
	}
	return all
}

func (s *LeadStore) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *LeadStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *LeadStore) DismissError() {
	s.SetError("")
}

func (s *LeadStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// View returns the filtered collection with the load state.
func (s *LeadStore) View(term string) LeadsView {
	leads := s.Filter(term)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return LeadsView{Leads: leads, Loading: s.loading, Error: s.err}
}

// Reset empties the store, as on sign-out.
func (s *LeadStore) Reset() {
	s.mu.Lock()
	s.leads = nil
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

func seededStore() *LeadStore {
	s := NewLeadStore()
	s.Replace([]entity.Lead{
		{ID: "1", Name: "Sarah Chen", Company: "Nexus AI", Stage: entity.StageProposal, Value: 45000},
		{ID: "2", Name: "Marcus Johnson", Company: "Bloom", Stage: entity.StageNew, Value: 8000},
		{ID: "3", Name: "Elena Rodriguez", Company: "Vertex", Stage: entity.StageProposal, Value: 5000},
		{ID: "4", Name: "David Kim", Company: "Nexus Labs", Stage: entity.StageWon, Value: 12000},
	})
	return s
}

func TestReplaceDeduplicatesKeepingFirstPosition(t *testing.T) {
	s := NewLeadStore()
	s.Replace([]entity.Lead{
		{ID: "a", Name: "first"},
		{ID: "b", Name: "b"},
		{ID: "a", Name: "second"},
	})

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "second", all[0].Name)
}

func TestFilterMatchesNameOrCompany(t *testing.T) {
	s := seededStore()

	ids := func(leads []entity.Lead) []string {
		out := []string{}
		for _, l := range leads {
			out = append(out, l.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "4"}, ids(s.Filter("NEXUS")))
	assert.Equal(t, []string{"2"}, ids(s.Filter("marcus")))
	assert.Len(t, s.Filter(""), 4)

	none := s.Filter("zzz")
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestByStageAggregates(t *testing.T) {
	columns := seededStore().ByStage()

	require.Len(t, columns, len(entity.Stages))
	for i, stage := range entity.Stages {
		assert.Equal(t, stage, columns[i].Stage)
	}

	proposal := columns[3]
	assert.Equal(t, "Proposal", proposal.Title)
	assert.Equal(t, 2, proposal.Count)
	assert.Equal(t, 50000.0, proposal.TotalValue)

	contacted := columns[1]
	assert.Equal(t, 0, contacted.Count)
	assert.NotNil(t, contacted.Leads)
}

func TestPreviewTruncates(t *testing.T) {
	s := seededStore()

	assert.Len(t, s.Preview(2), 2)
	assert.Len(t, s.Preview(10), 4)
	assert.Empty(t, s.Preview(-1))
}

func TestSwapReplacesInPlace(t *testing.T) {
	s := seededStore()
	s.Prepend(entity.Lead{ID: "tmp-1", Name: "Pending"})

	ok := s.Swap("tmp-1", entity.Lead{ID: "9", Name: "Stored"})

	require.True(t, ok)
	all := s.All()
	assert.Equal(t, "9", all[0].ID)
	_, found := s.Get("tmp-1")
	assert.False(t, found)
	assert.False(t, s.Swap("tmp-1", entity.Lead{ID: "10"}))
}

func TestReturnedLeadsAreCopies(t *testing.T) {
	s := NewLeadStore()
	s.Replace([]entity.Lead{{ID: "1", Tags: []string{"vip"}}})

	got, _ := s.Get("1")
	got.Tags[0] = "changed"

	again, _ := s.Get("1")
	assert.Equal(t, "vip", again.Tags[0])
}

func TestRemoveCountsPresentIDs(t *testing.T) {
	s := seededStore()

	assert.Equal(t, 2, s.Remove("1", "3", "missing"))
	assert.Equal(t, 2, s.Len())
}

func TestViewCarriesErrorAndReset(t *testing.T) {
	s := seededStore()
	s.SetError("boom")

	view := s.View("sarah")
	assert.Len(t, view.Leads, 1)
	assert.Equal(t, "boom", view.Error)

	s.DismissError()
	assert.Equal(t, "", s.Error())

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

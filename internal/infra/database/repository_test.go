package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

func ptr[T any](v T) *T { return &v }

func TestBuildLeadUpdateOnlySetFields(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stage := entity.StageWon

	query, args := buildLeadUpdate("lead-1", entity.LeadPatch{
		Stage:          &stage,
		LastActivityAt: &at,
	})

	assert.Equal(t, "UPDATE leads SET stage = $1, last_activity_at = $2, updated_at = NOW() WHERE id = $3", query)
	require.Len(t, args, 3)
	assert.Equal(t, entity.StageWon, args[0])
	assert.Equal(t, at, args[1])
	assert.Equal(t, "lead-1", args[2])
}

func TestBuildLeadUpdateClearsPhone(t *testing.T) {
	query, args := buildLeadUpdate("lead-1", entity.LeadPatch{Phone: ptr("")})

	assert.Contains(t, query, "phone = $1")
	assert.Equal(t, sql.NullString{}, args[0])
}

func TestBuildLeadUpdateEmptyPatch(t *testing.T) {
	query, args := buildLeadUpdate("lead-1", entity.LeadPatch{})

	assert.Empty(t, query)
	assert.Nil(t, args)
}

func TestBuildBatchInsertPlaceholders(t *testing.T) {
	leads := []entity.NewLead{
		{Name: "A", Company: "Acme", Email: "a@acme.io", Stage: entity.StageNew},
		{Name: "B", Company: "Beta", Email: "b@beta.io", Stage: entity.StageContacted, Phone: ptr("555")},
	}

	query, args := buildBatchInsert(leads)

	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6, $7, $8, $9), ($10, $11, $12, $13, $14, $15, $16, $17, $18)")
	require.Len(t, args, 18)
	assert.Equal(t, "B", args[9])
	assert.Equal(t, entity.StageContacted, args[14])
}

func TestBuildTaskUpdateReturnsRow(t *testing.T) {
	status := entity.TaskDone

	query, args := buildTaskUpdate("task-1", entity.TaskPatch{Status: &status})

	assert.Equal(t, "UPDATE tasks SET status = $1 WHERE id = $2 RETURNING "+taskColumns, query)
	assert.Equal(t, []any{entity.TaskDone, "task-1"}, args)
}

func TestTranslateUniqueViolation(t *testing.T) {
	err := translate(&pq.Error{Code: "23505"})
	assert.ErrorIs(t, err, entity.ErrEmailAlreadyExists)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
	assert.NoError(t, translate(nil))
}

func TestJWTClaimsCarryUserAndRole(t *testing.T) {
	raw, err := jwtClaims(&entity.Session{User: entity.User{ID: "user-1", Email: "me@example.com"}})
	require.NoError(t, err)

	var claims map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &claims))
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "authenticated", claims["role"])
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

const leadColumns = `id, name, company, email, phone, value, stage, tags, notes, avatar_url, last_activity_at, created_at, updated_at`

type LeadRepository struct {
	Store *Store
}

func NewLeadRepository(store *Store) *LeadRepository {
	return &LeadRepository{Store: store}
}

// List returns every visible lead, most recent activity first.
func (r *LeadRepository) List(ctx context.Context) ([]entity.LeadRow, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY last_activity_at DESC NULLS LAST, created_at DESC`

	var out []entity.LeadRow
	err := r.Store.WithTx(ctx, func(q Querier) error {
		rows, err := q.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			row, err := scanLead(rows)
			if err != nil {
				return err
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(s scanner) (entity.LeadRow, error) {
	var row entity.LeadRow
	var tags pq.StringArray
	err := s.Scan(
		&row.ID,
		&row.Name,
		&row.Company,
		&row.Email,
		&row.Phone,
		&row.Value,
		&row.Stage,
		&tags,
		&row.Notes,
		&row.AvatarURL,
		&row.LastActivityAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	row.Tags = []string(tags)
	if row.Tags == nil {
		row.Tags = []string{}
	}
	return row, err
}

func (r *LeadRepository) Insert(ctx context.Context, lead entity.NewLead) (*entity.LeadRow, error) {
	query := `
		INSERT INTO leads (name, company, email, phone, value, stage, tags, avatar_url, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + leadColumns

	var row entity.LeadRow
	err := r.Store.WithTx(ctx, func(q Querier) error {
		var err error
		row, err = scanLead(q.QueryRowContext(ctx, query, insertArgs(lead)...))
		return err
	})
	if err != nil {
		err = translate(err)
		if !errors.Is(err, entity.ErrEmailAlreadyExists) {
			log.Printf("❌ [DB] insert lead: %v", err)
		}
		return nil, err
	}
	return &row, nil
}

func insertArgs(lead entity.NewLead) []any {
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		lead.Name,
		lead.Company,
		lead.Email,
		lead.Phone,
		lead.Value,
		lead.Stage,
		pq.Array(tags),
		lead.AvatarURL,
		lead.LastActivityAt,
	}
}

// InsertBatch writes all leads in one statement; either every row lands or none.
func (r *LeadRepository) InsertBatch(ctx context.Context, leads []entity.NewLead) error {
	if len(leads) == 0 {
		return nil
	}
	query, args := buildBatchInsert(leads)

	err := r.Store.WithTx(ctx, func(q Querier) error {
		_, err := q.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return translate(err)
	}
	return nil
}

func buildBatchInsert(leads []entity.NewLead) (string, []any) {
	const cols = 9
	var b strings.Builder
	b.WriteString(`INSERT INTO leads (name, company, email, phone, value, stage, tags, avatar_url, last_activity_at) VALUES `)

	args := make([]any, 0, len(leads)*cols)
	for i, lead := range leads {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*cols+c+1)
		}
		b.WriteString(")")
		args = append(args, insertArgs(lead)...)
	}
	return b.String(), args
}

func (r *LeadRepository) Update(ctx context.Context, id string, patch entity.LeadPatch) error {
	query, args := buildLeadUpdate(id, patch)
	if query == "" {
		return nil
	}

	var affected int64
	err := r.Store.WithTx(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

// buildLeadUpdate renders an UPDATE touching only the set fields of patch.
// It returns an empty query when the patch is empty.
func buildLeadUpdate(id string, patch entity.LeadPatch) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Company != nil {
		add("company", *patch.Company)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Phone != nil {
		add("phone", nullable(*patch.Phone))
	}
	if patch.Value != nil {
		add("value", *patch.Value)
	}
	if patch.Stage != nil {
		add("stage", *patch.Stage)
	}
	if patch.Tags != nil {
		add("tags", pq.Array(*patch.Tags))
	}
	if patch.LastActivityAt != nil {
		add("last_activity_at", *patch.LastActivityAt)
	}
	if len(sets) == 0 {
		return "", nil
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE leads SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	var affected int64
	err := r.Store.WithTx(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// EmailExists reports whether a visible lead already uses email, ignoring case.
func (r *LeadRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.Store.WithTx(ctx, func(q Querier) error {
		return q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM leads WHERE lower(email) = lower($1))`,
			strings.TrimSpace(email),
		).Scan(&exists)
	})
	return exists, err
}

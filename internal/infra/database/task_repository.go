package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

const taskColumns = `id, lead_id, title, description, priority, status, due_date, created_at`

type TaskRepository struct {
	Store *Store
}

func NewTaskRepository(store *Store) *TaskRepository {
	return &TaskRepository{Store: store}
}

func scanTask(s scanner) (entity.Task, error) {
	var row entity.TaskRow
	err := s.Scan(
		&row.ID,
		&row.LeadID,
		&row.Title,
		&row.Description,
		&row.Priority,
		&row.Status,
		&row.DueDate,
		&row.CreatedAt,
	)
	return entity.TaskFromRow(row), err
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]entity.Task, error) {
	var out []entity.Task
	err := r.Store.WithTx(ctx, func(q Querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	return out, err
}

func (r *TaskRepository) ListAll(ctx context.Context) ([]entity.Task, error) {
	tasks, err := r.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) ListByLead(ctx context.Context, leadID string) ([]entity.Task, error) {
	tasks, err := r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE lead_id = $1 ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for lead %s: %w", leadID, err)
	}
	return tasks, nil
}

// Create inserts the task; id and created_at come from the database.
func (r *TaskRepository) Create(ctx context.Context, t entity.Task) (*entity.Task, error) {
	row := t.Row()
	query := `
		INSERT INTO tasks (lead_id, title, description, priority, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + taskColumns

	var created entity.Task
	err := r.Store.WithTx(ctx, func(q Querier) error {
		var err error
		created, err = scanTask(q.QueryRowContext(ctx, query,
			row.LeadID,
			row.Title,
			row.Description,
			row.Priority,
			row.Status,
			row.DueDate,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &created, nil
}

func (r *TaskRepository) Update(ctx context.Context, id string, patch entity.TaskPatch) (*entity.Task, error) {
	query, args := buildTaskUpdate(id, patch)
	if query == "" {
		return nil, errors.New("empty task patch")
	}

	var updated entity.Task
	err := r.Store.WithTx(ctx, func(q Querier) error {
		var err error
		updated, err = scanTask(q.QueryRowContext(ctx, query, args...))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return &updated, nil
}

func buildTaskUpdate(id string, patch entity.TaskPatch) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", nullable(*patch.Description))
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.DueDate != nil {
		add("due_date", *patch.DueDate)
	}
	if len(sets) == 0 {
		return "", nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), taskColumns)
	return query, args
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	var affected int64
	err := r.Store.WithTx(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if affected == 0 {
		return entity.ErrTaskNotFound
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

type SessionSource interface {
	Current() *entity.Session
}

// Store runs statements on behalf of the signed-in user. With RLS on, every call is
// a transaction that carries the user's JWT claims and the `authenticated` role, the
// same context PostgREST gives row-level security policies.
type Store struct {
	DB       *sql.DB
	Sessions SessionSource
	RLS      bool
}

func NewStore(db *sql.DB, sessions SessionSource, rls bool) *Store {
	return &Store{DB: db, Sessions: sessions, RLS: rls}
}

// Querier is the subset of *sql.Tx the repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if s.RLS {
		if err := s.assumeUser(ctx, tx); err != nil {
			return err
		}
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) assumeUser(ctx context.Context, tx *sql.Tx) error {
	var session *entity.Session
	if s.Sessions != nil {
		session = s.Sessions.Current()
	}
	if session == nil {
		return entity.ErrNotAuthenticated
	}

	claims, err := jwtClaims(session)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `SELECT set_config('request.jwt.claims', $1, true)`, claims); err != nil {
		return fmt.Errorf("set claims: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SET LOCAL ROLE authenticated`); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

func jwtClaims(session *entity.Session) (string, error) {
	b, err := json.Marshal(map[string]string{
		"sub":   session.User.ID,
		"email": session.User.Email,
		"role":  "authenticated",
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Ping checks the pool; used by the health check.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

const uniqueViolation = "23505"

// translate maps driver errors onto domain sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return entity.ErrEmailAlreadyExists
	}
	return err
}

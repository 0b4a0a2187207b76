// Package journal records charge attempts made by the dev payment gateway.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("conflict")
)

type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
)

// Attempt is one call to the payment gateway.
type Attempt struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference,omitempty"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository keeps attempts in memory, or in Postgres when built with
// NewPGRepository.
type Repository struct {
	Attempts []*Attempt

	mu  sync.RWMutex
	ids map[string]struct{}
	db  *sql.DB
}

func NewRepository() *Repository {
	return &Repository{
		Attempts: make([]*Attempt, 0),
		ids:      make(map[string]struct{}),
	}
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const schema = `
CREATE SCHEMA IF NOT EXISTS checkout;
CREATE TABLE IF NOT EXISTS checkout.charge_attempts (
    attempt_id  uuid PRIMARY KEY,
    reference   text NOT NULL DEFAULT '',
    amount      numeric NOT NULL,
    currency    char(3) NOT NULL,
    status      text NOT NULL,
    message     text NOT NULL DEFAULT '',
    created_at  timestamptz NOT NULL DEFAULT now()
);
ALTER TABLE checkout.charge_attempts ALTER COLUMN amount TYPE numeric;
CREATE INDEX IF NOT EXISTS charge_attempts_reference_idx ON checkout.charge_attempts(reference);
`

// Migrate creates the journal table. It is a no-op for the memory backend.
func (r *Repository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating journal: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, a *Attempt) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.ids[a.ID]; ok {
			return fmt.Errorf("attempt %s exists: %w", a.ID, ErrConflict)
		}
		r.Attempts = append(r.Attempts, a)
		r.ids[a.ID] = struct{}{}
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO checkout.charge_attempts(attempt_id, reference, amount, currency, status, message, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, a.ID, a.Reference, a.Amount, a.Currency, string(a.Status), a.Message, a.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("attempt %s exists: %w", a.ID, ErrConflict)
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (*Attempt, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, a := range r.Attempts {
			if a.ID == id {
				return a, nil
			}
		}
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT attempt_id, reference, amount, currency, status, message, created_at FROM checkout.charge_attempts WHERE attempt_id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// List returns attempts for reference, newest first. An empty reference
// lists everything.
func (r *Repository) List(ctx context.Context, reference string) ([]*Attempt, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		var out []*Attempt
		for _, a := range r.Attempts {
			if reference == "" || a.Reference == reference {
				out = append(out, a)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT attempt_id, reference, amount, currency, status, message, created_at
          FROM checkout.charge_attempts
         WHERE $1 = '' OR reference = $1
         ORDER BY created_at DESC
    `, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*Attempt, error) {
	var a Attempt
	var status string
	if err := s.Scan(&a.ID, &a.Reference, &a.Amount, &a.Currency, &status, &a.Message, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	return false
}

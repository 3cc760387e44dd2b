// Package store provides Postgres-backed persistence for doctor records.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seguimed/cmpscrape/internal/registry"
)

const (
	createDoctorsSQL = `
CREATE TABLE IF NOT EXISTS doctors (
	cmp TEXT PRIMARY KEY,
	status TEXT NOT NULL
)`

	createSpecialtiesSQL = `
CREATE TABLE IF NOT EXISTS doctor_specialties (
	id BIGSERIAL PRIMARY KEY,
	cmp TEXT NOT NULL REFERENCES doctors(cmp) ON DELETE CASCADE,
	name TEXT NOT NULL,
	UNIQUE (cmp, name)
)`

	upsertDoctorSQL = `
INSERT INTO doctors (cmp, status)
VALUES ($1, $2)
ON CONFLICT (cmp) DO UPDATE SET status = EXCLUDED.status`

	insertSpecialtySQL = `
INSERT INTO doctor_specialties (cmp, name)
VALUES ($1, $2)
ON CONFLICT (cmp, name) DO NOTHING`
)

// pgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Store persists doctor records and their specialties.
type Store struct {
	pool pgxPool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for tests).
func NewWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the doctor and specialty tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createDoctorsSQL); err != nil {
		return fmt.Errorf("create doctors table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, createSpecialtiesSQL); err != nil {
		return fmt.Errorf("create doctor_specialties table: %w", err)
	}
	return nil
}

// SaveDoctor upserts the doctor row and inserts its specialties in a single
// transaction. Status is last-write-wins; specialties are additive-only and
// deduplicated by the (cmp, name) unique constraint.
func (s *Store) SaveDoctor(ctx context.Context, doc registry.Doctor) error {
	if doc.CMP == "" {
		return errors.New("doctor cmp is required")
	}
	if doc.Status == "" {
		return errors.New("doctor status is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save doctor: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertDoctorSQL, doc.CMP, doc.Status); err != nil {
		return fmt.Errorf("upsert doctor %s: %w", doc.CMP, err)
	}
	for _, name := range doc.Specialties {
		if name == "" {
			continue
		}
		if _, err := tx.Exec(ctx, insertSpecialtySQL, doc.CMP, name); err != nil {
			return fmt.Errorf("insert specialty %q for %s: %w", name, doc.CMP, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save doctor %s: %w", doc.CMP, err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

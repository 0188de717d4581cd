// Package db contains the per-tenant relational schema: Go structs and
// database/sql queries for every entity in spec.md §3.
//
// Queries are written by hand against MySQL (github.com/go-sql-driver/mysql),
// following the teacher's pkg/cbox/share/sql/sql.go idiom: a thin struct
// wrapping *sql.DB/*sql.Tx, no ORM, explicit SQL strings.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Pool is a tenant (or root) database connection pool.
type Pool struct {
	DB *sql.DB
}

// Open opens a MySQL connection pool for the given DSN.
func Open(dsn string) (*Pool, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return &Pool{DB: sqlDB}, nil
}

// Close closes the pool's underlying connections.
func (p *Pool) Close() error { return p.DB.Close() }

// Ping verifies the connection is reachable, used by the pool cache to
// detect a rotated/incorrect credential before handing the pool to a caller.
func (p *Pool) Ping(ctx context.Context) error { return p.DB.PingContext(ctx) }

// Querier is satisfied by both *sql.DB and *sql.Tx, letting query helper
// functions run against either a pool or an in-flight transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic (a panic is re-raised after the rollback).
func (p *Pool) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// NewID generates a new random entity identifier.
func NewID() uuid.UUID { return uuid.New() }

// NullString converts an optional string pointer to sql.NullString.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr converts a sql.NullString back into an optional string pointer.
func StringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// NullUUID converts an optional UUID pointer to sql.NullString (UUIDs are
// stored as CHAR(36) for portability across MySQL-compatible engines).
func NullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

// UUIDPtr parses a nullable UUID column back into a *uuid.UUID.
func UUIDPtr(v sql.NullString) (*uuid.UUID, error) {
	if !v.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(v.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

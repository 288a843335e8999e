package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"anketa-network/follow"
	"anketa-network/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite implementation of the identity directory, relationship store,
// quota ledger and notification log.
type Store struct {
	db         *sql.DB
	dailyLimit int
	now        func() time.Time
}

// New wraps an open, migrated database. Quota records created lazily start at dailyLimit.
func New(db *sql.DB, dailyLimit int) *Store {
	if dailyLimit <= 0 {
		dailyLimit = models.DefaultDailyLimit
	}
	return &Store{db: db, dailyLimit: dailyLimit, now: time.Now}
}

// SetClock replaces the time source used for quota bookkeeping.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Update runs fn inside a write transaction. The connection string selects
// BEGIN IMMEDIATE, so concurrent units of work are serialised on the write lock.
func (s *Store) Update(ctx context.Context, fn func(follow.RelationshipStore, follow.QuotaLedger) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	u := &unit{q: tx, dailyLimit: s.dailyLimit, now: s.now}
	if err := fn(u, u); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		log.Printf("Error committing unit of work: %v", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// View runs fn against the pool without a transaction. Quota reads may still
// create a missing record.
func (s *Store) View(ctx context.Context, fn func(follow.RelationshipStore, follow.QuotaLedger) error) error {
	u := &unit{q: s.db, dailyLimit: s.dailyLimit, now: s.now}
	return fn(u, u)
}

// unit implements follow.RelationshipStore and follow.QuotaLedger over one querier.
type unit struct {
	q          querier
	dailyLimit int
	now        func() time.Time
}

var (
	_ follow.Backend           = (*Store)(nil)
	_ follow.RelationshipStore = (*unit)(nil)
	_ follow.QuotaLedger       = (*unit)(nil)
)

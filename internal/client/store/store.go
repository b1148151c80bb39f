// Package store opens the local SQLite database of the client and hands out
// repositories bound either to the pool or to a transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/casefile/internal/client/migrations"
	"github.com/dmitrijs2005/casefile/internal/client/repositories/beneficiaries"
	"github.com/dmitrijs2005/casefile/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/casefile/internal/client/repositories/notes"
	"github.com/dmitrijs2005/casefile/internal/client/repositories/questions"
	"github.com/dmitrijs2005/casefile/internal/dbx"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	Metadata      metadata.Repository
	Beneficiaries beneficiaries.Repository
	Questions     questions.Repository
	Notes         notes.Repository
}

func NewRepositories(db dbx.DBTX) *Repositories {
	return &Repositories{
		Metadata:      metadata.NewSQLiteRepository(db),
		Beneficiaries: beneficiaries.NewSQLiteRepository(db),
		Questions:     questions.NewSQLiteRepository(db),
		Notes:         notes.NewSQLiteRepository(db),
	}
}

type Store struct {
	db    *sql.DB
	repos *Repositories
}

// Open opens (creating if needed) the database at dsn and applies pending
// migrations. SQLite allows one writer, so the pool holds a single
// connection and every statement is serialised through it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, repos: NewRepositories(db)}
}

func (s *Store) DB() *sql.DB { return s.db }

// Repos returns repositories that run each statement on its own.
func (s *Store) Repos() *Repositories { return s.repos }

// InTx runs fn with repositories bound to one transaction. Nothing fn wrote
// is kept if it returns an error.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewRepositories(tx))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

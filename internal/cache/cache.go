// Package cache is the session-local SQLite store that mirrors the remote
// collections. It is rebuilt from the remote on every pull and holds pending
// documents until they are pushed.
package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/docsync/internal/cache/migrations"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/assignments"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/clients"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/documents"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/metadata"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/users"
	"github.com/dmitrijs2005/docsync/internal/dbx"
)

// Manager hands out repositories bound to the cache database or to a
// transaction on it.
type Manager struct {
	db *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate cache: %w", err)
	}
	return nil
}

// Open creates the cache database at dsn and migrates it. A session uses a
// single connection: an in-memory database lives exactly as long as that
// connection.
func Open(ctx context.Context, dsn string) (*Manager, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Manager{db: db}, nil
}

func (m *Manager) DB() *sql.DB { return m.db }

func (m *Manager) Close() error { return m.db.Close() }

// WithTx runs fn in a cache transaction.
func (m *Manager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, m.db, nil, fn)
}

func (m *Manager) Documents(db dbx.DBTX) documents.Repository {
	return documents.NewSQLiteRepository(db)
}

func (m *Manager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *Manager) Clients(db dbx.DBTX) clients.Repository {
	return clients.NewSQLiteRepository(db)
}

func (m *Manager) Assignments(db dbx.DBTX) assignments.Repository {
	return assignments.NewSQLiteRepository(db)
}

func (m *Manager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// Package pgstore implements remote.Store on PostgreSQL. A collection is a
// row in collections holding the header, and its data rows live in
// collection_rows ordered by position. Position 2 is the first data row, so
// indices match the spreadsheet-style addressing of the other backends.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/docsync/internal/dbx"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/remote/pgstore/migrations"
)

type Store struct {
	db *sql.DB
}

var _ remote.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping remote database: %w", err)
	}
	return New(db), nil
}

var newGooseProvider = func(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	p, err := newGooseProvider(s.db)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate remote database: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func header(ctx context.Context, db dbx.DBTX, collection string, lock bool) ([]string, error) {
	q := `SELECT header FROM collections WHERE name = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	var raw []byte
	err := db.QueryRowContext(ctx, q, collection).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", collection, remote.ErrCollectionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	var h []string
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode header of %s: %w", collection, err)
	}
	return h, nil
}

func (s *Store) Header(ctx context.Context, collection string) ([]string, error) {
	return header(ctx, s.db, collection, false)
}

func (s *Store) ReadAll(ctx context.Context, collection string) (*remote.Table, error) {
	h, err := header(ctx, s.db, collection, false)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM collection_rows WHERE collection = $1 ORDER BY position`, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	t := &remote.Table{Header: h}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		var cells []string
		if err := json.Unmarshal(raw, &cells); err != nil {
			return nil, fmt.Errorf("decode row of %s: %w", collection, err)
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (s *Store) FindRow(ctx context.Context, collection, column, value string) (*remote.Row, error) {
	t, err := s.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return remote.FindInTable(t, column, value)
}

func (s *Store) AppendRows(ctx context.Context, collection string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := header(ctx, tx, collection, true); err != nil {
			return err
		}

		var last int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 1) FROM collection_rows WHERE collection = $1`, collection).Scan(&last)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		for i, r := range rows {
			cells, err := json.Marshal(r)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO collection_rows (collection, position, cells) VALUES ($1, $2, $3)`,
				collection, last+i+1, cells)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) BatchUpdateCells(ctx context.Context, collection string, cells []remote.CellUpdate) error {
	if len(cells) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := header(ctx, tx, collection, true); err != nil {
			return err
		}

		byRow := make(map[int][]remote.CellUpdate)
		var order []int
		for _, c := range cells {
			if c.Col < 1 {
				return fmt.Errorf("column %d: %w", c.Col, remote.ErrColumnNotFound)
			}
			if _, seen := byRow[c.Row]; !seen {
				order = append(order, c.Row)
			}
			byRow[c.Row] = append(byRow[c.Row], c)
		}

		for _, pos := range order {
			var raw []byte
			err := tx.QueryRowContext(ctx,
				`SELECT cells FROM collection_rows WHERE collection = $1 AND position = $2`,
				collection, pos).Scan(&raw)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("row %d: %w", pos, remote.ErrRowNotFound)
			}
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}

			var values []string
			if err := json.Unmarshal(raw, &values); err != nil {
				return fmt.Errorf("decode row %d of %s: %w", pos, collection, err)
			}
			for _, c := range byRow[pos] {
				for len(values) < c.Col {
					values = append(values, "")
				}
				values[c.Col-1] = c.Value
			}
			updated, err := json.Marshal(values)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE collection_rows SET cells = $3 WHERE collection = $1 AND position = $2`,
				collection, pos, updated)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) CreateCollection(ctx context.Context, name string, h []string) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, header) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, name, raw)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", name, remote.ErrCollectionExists)
	}
	return nil
}

func (s *Store) WriteHeader(ctx context.Context, collection string, h []string) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE collections SET header = $2 WHERE name = $1`, collection, raw)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", collection, remote.ErrCollectionNotFound)
	}
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, collection string, index int) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := header(ctx, tx, collection, true); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM collection_rows WHERE collection = $1 AND position = $2`, collection, index)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("row %d: %w", index, remote.ErrRowNotFound)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE collection_rows SET position = position - 1 WHERE collection = $1 AND position > $2`,
			collection, index)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

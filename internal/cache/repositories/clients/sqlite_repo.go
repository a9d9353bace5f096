package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/cache/repositories"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/dbx"
	"github.com/dmitrijs2005/docsync/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, cs []models.Client) (int, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM clients`); err != nil {
		return 0, fmt.Errorf("clear clients: %w", err)
	}
	skipped := 0
	for _, c := range cs {
		res, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO clients (id, name, type) VALUES (?, ?, ?)`,
			c.ID, c.Name, repositories.Nullable(c.Type))
		if err != nil {
			return 0, fmt.Errorf("insert client %s: %w", c.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			skipped++
		}
	}
	return skipped, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Client) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO clients (id, name, type) VALUES (?, ?, ?)`,
		c.ID, c.Name, repositories.Nullable(c.Type))
	if err != nil {
		return fmt.Errorf("insert client %s: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) one(ctx context.Context, where string, arg any) (*models.Client, error) {
	var c models.Client
	var typ sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, name, type FROM clients WHERE `+where+` ORDER BY rowid LIMIT 1`, arg).
		Scan(&c.ID, &c.Name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	c.Type = repositories.String(typ)
	return &c, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Client, error) {
	return r.one(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) FindByName(ctx context.Context, name string) (*models.Client, error) {
	return r.one(ctx, `TRIM(name) = ? COLLATE NOCASE`, strings.TrimSpace(name))
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]models.Client, error) {
	q := `SELECT c.id, c.name, c.type FROM clients c`
	var conds []string
	var args []any
	if f.Collaborator != "" {
		q += ` JOIN collaborator_client cc ON cc.client_id = c.id`
		conds = append(conds, `cc.collaborator_username = ?`)
		args = append(args, f.Collaborator)
	}
	if f.Type != "" {
		conds = append(conds, `c.type = ?`)
		args = append(args, f.Type)
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}

	rows, err := r.db.QueryContext(ctx, q+` ORDER BY c.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		var typ sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.Type = repositories.String(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Types(ctx context.Context, collaborator string) ([]string, error) {
	q := `SELECT DISTINCT c.type FROM clients c`
	var args []any
	if collaborator != "" {
		q += ` JOIN collaborator_client cc ON cc.client_id = c.id WHERE cc.collaborator_username = ? AND`
		args = append(args, collaborator)
	} else {
		q += ` WHERE`
	}
	rows, err := r.db.QueryContext(ctx, q+` c.type IS NOT NULL AND c.type <> '' ORDER BY c.type`, args...)
	if err != nil {
		return nil, fmt.Errorf("list client types: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan client type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

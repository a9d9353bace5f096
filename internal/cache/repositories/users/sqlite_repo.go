package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *SQLiteRepository) insert(ctx context.Context, verb string, u *models.User) (sql.Result, error) {
	return r.db.ExecContext(ctx, verb+` INTO users (username, password_hash, display_name, role, last_sync_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, repositories.Nullable(u.PasswordHash), repositories.Nullable(u.DisplayName),
		string(u.Role), repositories.Nullable(u.LastSyncAt))
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, us []models.User) (int, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return 0, fmt.Errorf("clear users: %w", err)
	}
	skipped := 0
	for i := range us {
		res, err := r.insert(ctx, "INSERT OR IGNORE", &us[i])
		if err != nil {
			return 0, fmt.Errorf("insert user %s: %w", us[i].Username, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			skipped++
		}
	}
	return skipped, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, u *models.User) error {
	if _, err := r.insert(ctx, "INSERT", u); err != nil {
		return fmt.Errorf("insert user %s: %w", u.Username, err)
	}
	return nil
}

func scan(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var hash, display, lastSync sql.NullString
	var role string
	if err := row.Scan(&u.Username, &hash, &display, &role, &lastSync); err != nil {
		return u, err
	}
	u.PasswordHash = repositories.String(hash)
	u.DisplayName = repositories.String(display)
	u.Role = models.Role(role)
	u.LastSyncAt = repositories.String(lastSync)
	return u, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, username string) (*models.User, error) {
	u, err := scan(r.db.QueryRowContext(ctx, `SELECT username, password_hash, display_name, role, last_sync_at
		FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &u, nil
}

func (r *SQLiteRepository) List(ctx context.Context, role models.Role) ([]models.User, error) {
	q := `SELECT username, password_hash, display_name, role, last_sync_at FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role = ?`
		args = append(args, string(role))
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY username`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetLastSync(ctx context.Context, username, at string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_sync_at = ? WHERE username = ?`, at, username)
	if err != nil {
		return fmt.Errorf("set last sync of %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

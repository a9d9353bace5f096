package assignments

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docsync/internal/dbx"
	"github.com/dmitrijs2005/docsync/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, as []models.Assignment) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM collaborator_client`); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	for _, a := range as {
		if _, err := r.Add(ctx, a.Collaborator, a.ClientID); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) Add(ctx context.Context, collaborator, clientID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO collaborator_client (collaborator_username, client_id)
		VALUES (?, ?)`, collaborator, clientID)
	if err != nil {
		return false, fmt.Errorf("assign %s to %s: %w", clientID, collaborator, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign %s to %s: %w", clientID, collaborator, err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, collaborator string, clientIDs []string) (int64, error) {
	in, inArgs := dbx.In(clientIDs)
	args := append([]any{collaborator}, inArgs...)
	res, err := r.db.ExecContext(ctx, `DELETE FROM collaborator_client
		WHERE collaborator_username = ? AND client_id IN (`+in+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("unassign from %s: %w", collaborator, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ClientIDs(ctx context.Context, collaborator string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT client_id FROM collaborator_client
		WHERE collaborator_username = ? ORDER BY client_id`, collaborator)
	if err != nil {
		return nil, fmt.Errorf("list assignments of %s: %w", collaborator, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

package documents

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

const columns = `d.id, d.collaborator_username, d.client_id, d.client_name, d.registered_at,
	d.criterion, d.content, d.quantity, d.status, d.validated_at, d.validated_by,
	d.validation_notes, d.sync_state`

func (r *SQLiteRepository) insert(ctx context.Context, verb string, d *models.Document) (sql.Result, error) {
	return r.db.ExecContext(ctx, verb+` INTO documents (
			id, collaborator_username, client_id, client_name, registered_at, criterion,
			content, quantity, status, validated_at, validated_by, validation_notes, sync_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Owner,
		repositories.Nullable(d.ClientID), repositories.Nullable(d.ClientName),
		repositories.Nullable(d.RegisteredAt), repositories.Nullable(string(d.Criterion)),
		repositories.Nullable(d.Content), d.Quantity, repositories.Nullable(string(d.Status)),
		repositories.Nullable(d.ValidatedAt), repositories.Nullable(d.ValidatedBy),
		repositories.Nullable(d.ValidationNotes), string(d.SyncState),
	)
}

func (r *SQLiteRepository) Insert(ctx context.Context, d *models.Document) error {
	if _, err := r.insert(ctx, "INSERT", d); err != nil {
		return fmt.Errorf("insert document %s: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIgnore(ctx context.Context, d *models.Document) (bool, error) {
	res, err := r.insert(ctx, "INSERT OR IGNORE", d)
	if err != nil {
		return false, fmt.Errorf("insert document %s: %w", d.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert document %s: %w", d.ID, err)
	}
	return n == 1, nil
}

func scan(rows interface{ Scan(...any) error }) (models.Document, error) {
	var (
		d                                       models.Document
		clientID, clientName, registeredAt      sql.NullString
		criterion, content, status, validatedAt sql.NullString
		validatedBy, notes                      sql.NullString
		syncState                               string
	)
	err := rows.Scan(&d.ID, &d.Owner, &clientID, &clientName, &registeredAt, &criterion,
		&content, &d.Quantity, &status, &validatedAt, &validatedBy, &notes, &syncState)
	if err != nil {
		return d, err
	}
	d.ClientID = repositories.String(clientID)
	d.ClientName = repositories.String(clientName)
	d.RegisteredAt = repositories.String(registeredAt)
	d.Criterion = models.Criterion(repositories.String(criterion))
	d.Content = repositories.String(content)
	d.Status = models.Status(repositories.String(status))
	d.ValidatedAt = repositories.String(validatedAt)
	d.ValidatedBy = repositories.String(validatedBy)
	d.ValidationNotes = repositories.String(notes)
	d.SyncState = models.SyncState(syncState)
	return d, nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]models.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM documents d WHERE d.id = ?`, id)
	d, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &d, nil
}

// where renders f and extra as a WHERE clause over documents d joined to
// clients c.
func (f Filter) where(extra ...string) (string, []any) {
	conds := append([]string(nil), extra...)
	var args []any
	add := func(cond string, v any) {
		conds = append(conds, cond)
		args = append(args, v)
	}
	if f.Owner != "" {
		add("d.collaborator_username = ?", f.Owner)
	}
	if f.ClientID != "" {
		add("d.client_id = ?", f.ClientID)
	}
	if f.ClientName != "" {
		add("d.client_name = ? COLLATE NOCASE", f.ClientName)
	}
	if f.ClientType != "" {
		add("c.type = ?", f.ClientType)
	}
	if f.Status != "" {
		add("d.status = ?", string(f.Status))
	}
	if f.SyncState != "" {
		add("d.sync_state = ?", string(f.SyncState))
	}
	if f.Since != "" {
		add("d.registered_at >= ?", f.Since)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]models.Document, error) {
	where, args := f.where()
	return r.query(ctx, `SELECT `+columns+` FROM documents d
		LEFT JOIN clients c ON c.id = d.client_id`+where+` ORDER BY d.rowid`, args...)
}

func (r *SQLiteRepository) ListPending(ctx context.Context, owner string) ([]models.Document, error) {
	return r.query(ctx, `SELECT `+columns+` FROM documents d
		WHERE d.collaborator_username = ? AND d.sync_state = 'pending' ORDER BY d.rowid`, owner)
}

func (r *SQLiteRepository) PendingByIDs(ctx context.Context, owner string, ids []string) ([]models.Document, error) {
	in, inArgs := dbx.In(ids)
	args := append([]any{owner}, inArgs...)
	return r.query(ctx, `SELECT `+columns+` FROM documents d
		WHERE d.collaborator_username = ? AND d.sync_state = 'pending' AND d.id IN (`+in+`)
		ORDER BY d.rowid`, args...)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, owner string, ids []string) (int64, error) {
	in, inArgs := dbx.In(ids)
	args := append([]any{owner}, inArgs...)
	res, err := r.db.ExecContext(ctx, `UPDATE documents SET sync_state = 'synced'
		WHERE collaborator_username = ? AND sync_state = 'pending' AND id IN (`+in+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("mark synced: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ApplyValidation(ctx context.Context, id string, v Validation) error {
	res, err := r.db.ExecContext(ctx, `UPDATE documents
		SET status = ?, validated_at = ?, validated_by = ?, validation_notes = ?, sync_state = 'synced'
		WHERE id = ?`,
		string(v.Status), repositories.Nullable(v.ValidatedAt), repositories.Nullable(v.ValidatedBy),
		repositories.Nullable(v.Notes), id)
	if err != nil {
		return fmt.Errorf("apply validation to %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply validation to %s: %w", id, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context, owner string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents
		WHERE collaborator_username = ? AND sync_state = 'pending'`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) StatusCounts(ctx context.Context, f Filter) (map[models.Status]int, error) {
	where, args := f.where()
	rows, err := r.db.QueryContext(ctx, `SELECT COALESCE(d.status, ''), COUNT(*) FROM documents d
		LEFT JOIN clients c ON c.id = d.client_id`+where+` GROUP BY 1`, args...)
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Status]int)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[models.Status(s)] = n
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountByPeriod(ctx context.Context, f Filter, layout string) ([]PeriodCount, error) {
	where, args := f.where("d.registered_at IS NOT NULL")
	rows, err := r.db.QueryContext(ctx, `SELECT strftime(?, d.registered_at) AS period, COUNT(*)
		FROM documents d LEFT JOIN clients c ON c.id = d.client_id`+where+`
		GROUP BY period HAVING period IS NOT NULL ORDER BY MIN(d.registered_at)`,
		append([]any{layout}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("count by period: %w", err)
	}
	defer rows.Close()

	var out []PeriodCount
	for rows.Next() {
		var p PeriodCount
		if err := rows.Scan(&p.Period, &p.Count); err != nil {
			return nil, fmt.Errorf("scan period count: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CriterionCounts(ctx context.Context, f Filter) (map[models.Criterion]CriterionCount, error) {
	where, args := f.where()
	rows, err := r.db.QueryContext(ctx, `SELECT COALESCE(d.criterion, ''), COUNT(*),
			COALESCE(SUM(CASE WHEN d.status = ? THEN 1 ELSE 0 END), 0)
		FROM documents d LEFT JOIN clients c ON c.id = d.client_id`+where+` GROUP BY 1`,
		append([]any{string(models.StatusValidated)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("count criteria: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Criterion]CriterionCount)
	for rows.Next() {
		var crit string
		var c CriterionCount
		if err := rows.Scan(&crit, &c.Total, &c.Validated); err != nil {
			return nil, fmt.Errorf("scan criterion count: %w", err)
		}
		out[models.Criterion(crit)] = c
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountByOwner(ctx context.Context, status models.Status) (map[string]int, error) {
	q := `SELECT collaborator_username, COUNT(*) FROM documents`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	rows, err := r.db.QueryContext(ctx, q+` GROUP BY collaborator_username`, args...)
	if err != nil {
		return nil, fmt.Errorf("count by owner: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var owner string
		var n int
		if err := rows.Scan(&owner, &n); err != nil {
			return nil, fmt.Errorf("scan owner count: %w", err)
		}
		out[owner] = n
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int, error) {
	var pending int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE sync_state = 'pending'`).Scan(&pending); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}
	return pending, nil
}

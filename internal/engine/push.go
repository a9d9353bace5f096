package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

// PushResult reports a selective push. Unsaved is true while the owner
// still has pending documents, including ones created during the push.
type PushResult struct {
	Pushed           []string
	RemainingPending int
	Unsaved          bool
	Warnings         []string
}

// PushSelected appends the owner's pending documents among ids to the
// owner's remote collection and marks exactly those as synced. Ids that are
// unknown, synced already or owned by someone else are ignored. Nothing is
// marked when the remote append fails. The owner must be a known
// collaborator; its stored username names the collection.
func (e *Engine) PushSelected(ctx context.Context, owner string, ids []string) (*PushResult, error) {
	u, err := resolveCollaborator(ctx, e.cache.Users(e.cache.DB()), owner)
	if err != nil {
		return nil, err
	}
	owner = u.Username
	res := &PushResult{}
	docs := e.cache.Documents(e.cache.DB())

	var pending []models.Document
	if len(ids) > 0 {
		pending, err = docs.PendingByIDs(ctx, owner, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
	}
	if len(pending) == 0 {
		return e.finishPush(ctx, owner, res)
	}

	collection := e.DocumentsCollection(owner)
	log := e.log.With("owner", owner, "collection", collection)

	header, err := remote.EnsureCollection(ctx, e.remote, collection, schema.Documents.Columns())
	if err != nil {
		log.Error(ctx, "prepare collection", "error", err)
		return nil, fmt.Errorf("%w: prepare %s: %w", common.ErrRemoteWrite, collection, err)
	}
	if _, ok := schema.ColumnIndex(header, schema.ColID); !ok {
		return nil, fmt.Errorf("%w: %s has no %s column", common.ErrRemoteWrite, collection, schema.ColID)
	}
	if missing := schema.Missing(header, schema.Documents.Columns()); len(missing) > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s lacks columns %s, values left out", collection, strings.Join(missing, ", ")))
	}

	rows := make([][]string, len(pending))
	pushed := make([]string, len(pending))
	for i, d := range pending {
		rows[i] = schema.Documents.Encode(d, header)
		pushed[i] = d.ID
	}
	if err := e.remote.AppendRows(ctx, collection, rows); err != nil {
		log.Error(ctx, "append documents", "error", err)
		return nil, fmt.Errorf("%w: append to %s: %w", common.ErrRemoteWrite, collection, err)
	}

	if _, err := docs.MarkSynced(ctx, owner, pushed); err != nil {
		log.Error(ctx, "mark synced after remote append", "error", err, "ids", pushed)
		return nil, fmt.Errorf("%w: %d documents appended remotely but still pending locally: %w",
			common.ErrInconsistentRecord, len(pushed), err)
	}
	e.reads.Invalidate()
	res.Pushed = pushed
	log.Info(ctx, "documents pushed", "count", len(pushed))

	if w := e.touchLastSync(ctx, owner); w != "" {
		res.Warnings = append(res.Warnings, w)
	}
	for _, w := range res.Warnings {
		log.Warn(ctx, w)
	}
	return e.finishPush(ctx, owner, res)
}

func (e *Engine) finishPush(ctx context.Context, owner string, res *PushResult) (*PushResult, error) {
	n, err := e.cache.Documents(e.cache.DB()).CountPending(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	res.RemainingPending = n
	res.Unsaved = n > 0
	return res, nil
}

// touchLastSync stamps last_sync_at for owner in both stores. Failures are
// returned as a warning.
func (e *Engine) touchLastSync(ctx context.Context, owner string) string {
	at := e.now().Format(models.TimestampLayout)

	var warning string
	if err := e.updateUserCell(ctx, owner, schema.ColLastSyncAt, at); err != nil {
		warning = fmt.Sprintf("update %s of %s remotely: %v", schema.ColLastSyncAt, owner, err)
	}

	err := e.cache.Users(e.cache.DB()).SetLastSync(ctx, owner, at)
	if err != nil && !errors.Is(err, common.ErrorNotFound) && warning == "" {
		warning = fmt.Sprintf("update %s of %s locally: %v", schema.ColLastSyncAt, owner, err)
	}
	return warning
}

func (e *Engine) updateUserCell(ctx context.Context, username, column, value string) error {
	header, err := e.remote.Header(ctx, schema.UsersCollection)
	if err != nil {
		return err
	}
	col, ok := schema.ColumnIndex(header, column)
	if !ok {
		return fmt.Errorf("%s: %w", column, remote.ErrColumnNotFound)
	}
	row, err := e.remote.FindRow(ctx, schema.UsersCollection, schema.ColUsername, username)
	if err != nil {
		return err
	}
	return e.remote.BatchUpdateCells(ctx, schema.UsersCollection, []remote.CellUpdate{{Row: row.Index, Col: col, Value: value}})
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/cache/repositories/documents"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

// Validate records a reviewer outcome for document id. The remote row is
// updated first in a single batch; the cache mirrors it only after the
// remote write succeeded. Columns a legacy collection lacks are skipped.
func (e *Engine) Validate(ctx context.Context, id string, status models.Status, actor, notes string) error {
	id = strings.TrimSpace(id)
	status = models.ParseStatus(string(status))
	if !models.IsKnownStatus(status) {
		return fmt.Errorf("%w: unknown status %q", common.ErrorValidation, status)
	}

	docs := e.cache.Documents(e.cache.DB())
	d, err := docs.Get(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: document %s is not in the local cache", common.ErrInconsistentRecord, id)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	collection := e.DocumentsCollection(d.Owner)
	log := e.log.With("id", id, "collection", collection)

	header, err := e.remote.Header(ctx, collection)
	if err != nil {
		return locateError(collection, id, err)
	}
	row, err := e.remote.FindRow(ctx, collection, schema.ColID, id)
	if err != nil {
		return locateError(collection, id, err)
	}

	v := documents.Validation{
		Status:      status,
		ValidatedAt: e.now().Format(models.TimestampLayout),
		ValidatedBy: strings.TrimSpace(actor),
		Notes:       strings.TrimSpace(notes),
	}
	fields := []struct{ column, value string }{
		{schema.ColStatus, string(v.Status)},
		{schema.ColValidatedAt, v.ValidatedAt},
		{schema.ColValidatedBy, v.ValidatedBy},
		{schema.ColValidationNote, v.Notes},
	}
	var cells []remote.CellUpdate
	for _, f := range fields {
		col, ok := schema.ColumnIndex(header, f.column)
		if !ok {
			log.Warn(ctx, "column missing, value not written", "column", f.column)
			continue
		}
		cells = append(cells, remote.CellUpdate{Row: row.Index, Col: col, Value: f.value})
	}
	if len(cells) == 0 {
		return fmt.Errorf("%w: %s has none of the validation columns", common.ErrRemoteWrite, collection)
	}

	if err := e.remote.BatchUpdateCells(ctx, collection, cells); err != nil {
		log.Error(ctx, "update validation cells", "error", err)
		return fmt.Errorf("%w: update %s row %d: %w", common.ErrRemoteWrite, collection, row.Index, err)
	}

	if err := docs.ApplyValidation(ctx, id, v); err != nil {
		log.Error(ctx, "mirror validation locally", "error", err)
		return fmt.Errorf("%w: remote updated, local mirror failed: %w", common.ErrInconsistentRecord, err)
	}
	e.reads.Invalidate()

	log.Info(ctx, "document validated", "status", v.Status, "by", v.ValidatedBy)
	return nil
}

// locateError classifies a failure to find a document row remotely.
func locateError(collection, id string, err error) error {
	switch {
	case errors.Is(err, remote.ErrCollectionNotFound),
		errors.Is(err, remote.ErrRowNotFound),
		errors.Is(err, remote.ErrColumnNotFound):
		return fmt.Errorf("%w: document %s not found in %s: %w", common.ErrInconsistentRecord, id, collection, err)
	default:
		return fmt.Errorf("%w: locate %s in %s: %w", common.ErrRemoteUnavailable, id, collection, err)
	}
}

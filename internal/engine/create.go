package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
)

// CreateResult reports a staged document. Unsaved is always true: the
// document exists only in the cache until it is pushed.
type CreateResult struct {
	ID      string
	Unsaved bool
}

// CreateLocal stages a new document in the cache as pending. The owner must
// be a known collaborator. The client is resolved by id when one is given
// and by name otherwise, and must be assigned to the owner. New documents
// start as Registered; final statuses are only reachable through Validate.
func (e *Engine) CreateLocal(ctx context.Context, d models.Document) (*CreateResult, error) {
	d.Content = strings.TrimSpace(d.Content)
	if strings.TrimSpace(d.Owner) == "" {
		return nil, fmt.Errorf("%w: owner is required", common.ErrorValidation)
	}
	if d.Content == "" {
		return nil, fmt.Errorf("%w: content is required", common.ErrorValidation)
	}
	if d.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", common.ErrorValidation)
	}
	switch d.Status = models.ParseStatus(string(d.Status)); d.Status {
	case "", models.StatusRegistered:
	default:
		return nil, fmt.Errorf("%w: new documents start as %s, not %q",
			common.ErrorValidation, models.StatusRegistered, d.Status)
	}

	db := e.cache.DB()
	u, err := resolveCollaborator(ctx, e.cache.Users(db), d.Owner)
	if err != nil {
		return nil, err
	}
	d.Owner = u.Username

	c, err := resolveClient(ctx, e.cache.Clients(db), d.ClientID, d.ClientName)
	if err != nil {
		return nil, err
	}
	if err := checkAssigned(ctx, e.cache.Assignments(db), d.Owner, c); err != nil {
		return nil, err
	}
	d.ClientID, d.ClientName = c.ID, c.Name
	d.Criterion = models.ParseCriterion(string(d.Criterion))

	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		d.ID = e.newID()
	}
	if d.Quantity == 0 {
		d.Quantity = 1
	}
	d.Status = models.StatusRegistered
	if d.RegisteredAt == "" {
		d.RegisteredAt = e.now().Format(models.DateLayout)
	}
	d.ValidatedAt, d.ValidatedBy, d.ValidationNotes = "", "", ""
	d.SyncState = models.SyncPending

	docs := e.cache.Documents(db)
	switch _, err := docs.Get(ctx, d.ID); {
	case err == nil:
		return nil, fmt.Errorf("document %s: %w", d.ID, common.ErrorAlreadyExists)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if err := docs.Insert(ctx, &d); err != nil {
		return nil, fmt.Errorf("%w: store document: %w", common.ErrorInternal, err)
	}
	e.reads.Invalidate()

	e.log.Info(ctx, "document staged", "id", d.ID, "owner", d.Owner, "client", d.ClientID)
	return &CreateResult{ID: d.ID, Unsaved: true}, nil
}

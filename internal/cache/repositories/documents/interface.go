package documents

import (
	"context"

	"github.com/dmitrijs2005/docsync/internal/models"
)

// Filter narrows List and StatusCounts. Zero fields match everything.
type Filter struct {
	Owner      string
	ClientID   string
	ClientName string
	ClientType string
	Status     models.Status
	SyncState  models.SyncState
	// Since keeps documents registered on or after this date (DateLayout).
	Since string
}

// PeriodCount is the number of documents registered in one period.
type PeriodCount struct {
	Period string
	Count  int
}

// CriterionCount tallies the documents filed under one criterion.
type CriterionCount struct {
	Total     int
	Validated int
}

// Validation is the reviewer outcome mirrored into the cache.
type Validation struct {
	Status      models.Status
	ValidatedAt string
	ValidatedBy string
	Notes       string
}

type Repository interface {
	// Insert stores d as-is. Duplicate ids fail.
	Insert(ctx context.Context, d *models.Document) error
	// InsertIgnore stores d unless its id is taken and reports whether it did.
	InsertIgnore(ctx context.Context, d *models.Document) (bool, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, f Filter) ([]models.Document, error)
	// ListPending returns the owner's pending documents in creation order.
	ListPending(ctx context.Context, owner string) ([]models.Document, error)
	// PendingByIDs returns the owner's pending documents among ids, in creation order.
	PendingByIDs(ctx context.Context, owner string, ids []string) ([]models.Document, error)
	MarkSynced(ctx context.Context, owner string, ids []string) (int64, error)
	ApplyValidation(ctx context.Context, id string, v Validation) error
	CountPending(ctx context.Context, owner string) (int, error)
	StatusCounts(ctx context.Context, f Filter) (map[models.Status]int, error)
	// CountByPeriod groups matching documents by their registration date
	// rendered with the strftime layout, oldest period first. Documents
	// without a parsable date are left out.
	CountByPeriod(ctx context.Context, f Filter, layout string) ([]PeriodCount, error)
	// CriterionCounts counts matching documents and validated ones per criterion.
	CriterionCounts(ctx context.Context, f Filter) (map[models.Criterion]CriterionCount, error)
	// CountByOwner counts documents per owner, restricted to status when set.
	CountByOwner(ctx context.Context, status models.Status) (map[string]int, error)
	// DeleteAll clears the table and returns how many pending rows were dropped.
	DeleteAll(ctx context.Context) (int, error)
}

// Package assignments stores collaborator-to-client links in the local cache.
package assignments

import (
	"context"

	"github.com/dmitrijs2005/docsync/internal/models"
)

type Repository interface {
	// ReplaceAll swaps the table contents; repeated pairs collapse into one.
	ReplaceAll(ctx context.Context, as []models.Assignment) error
	// Add inserts the pair unless present and reports whether it was new.
	Add(ctx context.Context, collaborator, clientID string) (bool, error)
	Remove(ctx context.Context, collaborator string, clientIDs []string) (int64, error)
	ClientIDs(ctx context.Context, collaborator string) ([]string, error)
}

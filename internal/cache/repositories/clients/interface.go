// Package clients mirrors the remote clients collection in the local cache.
package clients

import (
	"context"

	"github.com/dmitrijs2005/docsync/internal/models"
)

// Filter narrows List. Collaborator restricts to clients assigned to that
// collaborator.
type Filter struct {
	Collaborator string
	Type         string
}

type Repository interface {
	// ReplaceAll swaps the table contents and returns how many rows were
	// dropped as duplicates of an earlier id.
	ReplaceAll(ctx context.Context, cs []models.Client) (int, error)
	Insert(ctx context.Context, c *models.Client) error
	Get(ctx context.Context, id string) (*models.Client, error)
	// FindByName matches case-insensitively, ignoring surrounding spaces.
	FindByName(ctx context.Context, name string) (*models.Client, error)
	List(ctx context.Context, f Filter) ([]models.Client, error)
	Types(ctx context.Context, collaborator string) ([]string, error)
}

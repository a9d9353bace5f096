// Package users mirrors the remote users collection in the local cache.
package users

import (
	"context"

	"github.com/dmitrijs2005/docsync/internal/models"
)

type Repository interface {
	// ReplaceAll swaps the table contents for us. Later duplicates of a
	// username are dropped; the number dropped is returned.
	ReplaceAll(ctx context.Context, us []models.User) (int, error)
	Insert(ctx context.Context, u *models.User) error
	Get(ctx context.Context, username string) (*models.User, error)
	// List returns users ordered by username, optionally restricted to role.
	List(ctx context.Context, role models.Role) ([]models.User, error)
	SetLastSync(ctx context.Context, username, at string) error
}

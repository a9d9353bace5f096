package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/cache/repositories/assignments"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/clients"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/users"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
)

// clientIndex resolves client references against clients read during a pull,
// before they reach the cache.
type clientIndex struct {
	byID   map[string]models.Client
	byName map[string]models.Client
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func newClientIndex(cs []models.Client) *clientIndex {
	ix := &clientIndex{
		byID:   make(map[string]models.Client, len(cs)),
		byName: make(map[string]models.Client, len(cs)),
	}
	for _, c := range cs {
		if _, ok := ix.byID[c.ID]; !ok {
			ix.byID[c.ID] = c
		}
		if _, ok := ix.byName[nameKey(c.Name)]; !ok {
			ix.byName[nameKey(c.Name)] = c
		}
	}
	return ix
}

// resolve follows the reference order: id when present, otherwise the name.
func (ix *clientIndex) resolve(id, name string) (models.Client, bool) {
	if id != "" {
		c, ok := ix.byID[id]
		return c, ok
	}
	if name == "" {
		return models.Client{}, false
	}
	c, ok := ix.byName[nameKey(name)]
	return c, ok
}

// resolveClient applies the same order against the cache.
func resolveClient(ctx context.Context, repo clients.Repository, id, name string) (*models.Client, error) {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)

	var c *models.Client
	var err error
	switch {
	case id != "":
		c, err = repo.Get(ctx, id)
	case name != "":
		c, err = repo.FindByName(ctx, name)
	default:
		return nil, fmt.Errorf("%w: no client given", common.ErrReferenceResolution)
	}

	if errors.Is(err, common.ErrorNotFound) {
		ref := id
		if ref == "" {
			ref = name
		}
		return nil, fmt.Errorf("%w: unknown client %q", common.ErrReferenceResolution, ref)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// resolveCollaborator returns the cached user behind username, matched
// case-insensitively. Only collaborators own documents.
func resolveCollaborator(ctx context.Context, repo users.Repository, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: owner is required", common.ErrorValidation)
	}
	u, err := repo.Get(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: unknown collaborator %q", common.ErrReferenceResolution, username)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if u.Role != models.RoleCollaborator {
		return nil, fmt.Errorf("%w: %q is %s, not a collaborator", common.ErrReferenceResolution, u.Username, u.Role)
	}
	return u, nil
}

// checkAssigned rejects clients the collaborator is not assigned to.
func checkAssigned(ctx context.Context, repo assignments.Repository, collaborator string, c *models.Client) error {
	ids, err := repo.ClientIDs(ctx, collaborator)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	for _, id := range ids {
		if id == c.ID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not assigned to client %q", common.ErrReferenceResolution, collaborator, c.Name)
}

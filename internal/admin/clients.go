package admin

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

// AddClient registers a client under a new id. Names are unique ignoring
// case in both stores.
func (m *Manager) AddClient(ctx context.Context, name, typ string) (*models.Client, error) {
	name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
	if name == "" {
		return nil, fmt.Errorf("%w: client name is required", common.ErrorValidation)
	}

	repo := m.cache.Clients(m.cache.DB())
	switch _, err := repo.FindByName(ctx, name); {
	case err == nil:
		return nil, fmt.Errorf("client %q: %w", name, common.ErrorAlreadyExists)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	exists, err := m.remoteHas(ctx, schema.ClientsCollection, schema.ColName, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("client %q: %w", name, common.ErrorAlreadyExists)
	}

	c := &models.Client{ID: m.newID(), Name: name, Type: typ}
	if err := repo.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	m.invalidate()

	header, err := remote.EnsureCollection(ctx, m.remote, schema.ClientsCollection, schema.Clients.Columns())
	if err == nil {
		err = m.remote.AppendRows(ctx, schema.ClientsCollection, [][]string{schema.Clients.Encode(*c, header)})
	}
	if err != nil {
		m.log.Error(ctx, "append client", "client", c.ID, "error", err)
		return c, fmt.Errorf("%w: client %s stored locally only: %w", common.ErrRemoteWrite, c.Name, err)
	}

	m.log.Info(ctx, "client added", "client", c.ID, "name", c.Name)
	return c, nil
}

// Package admin runs the administrative writes that touch both stores:
// collaborator-to-client assignments, new clients and users, and the
// provisioning of the central collections.
//
// Each operation mutates the cache first and the remote store second. A
// remote failure is reported but the local change is kept; the next pull
// reconciles the two.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/docsync/internal/cache"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/logging"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

// Invalidator drops cached read results after a mutation.
type Invalidator interface {
	Invalidate()
}

type Manager struct {
	remote     remote.Store
	cache      *cache.Manager
	log        logging.Logger
	reads      Invalidator
	newID      func() string
	docsPrefix string
}

type Option func(*Manager)

func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func WithDocsPrefix(prefix string) Option {
	return func(m *Manager) { m.docsPrefix = prefix }
}

func New(store remote.Store, c *cache.Manager, log logging.Logger, reads Invalidator, opts ...Option) *Manager {
	m := &Manager{
		remote:     store,
		cache:      c,
		log:        log,
		reads:      reads,
		newID:      uuid.NewString,
		docsPrefix: "docs_",
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) invalidate() {
	if m.reads != nil {
		m.reads.Invalidate()
	}
}

// remoteHas reports whether collection holds a row whose column matches
// value, ignoring case and surrounding spaces. A missing collection holds
// nothing.
func (m *Manager) remoteHas(ctx context.Context, collection, column, value string) (bool, error) {
	t, err := m.remote.ReadAll(ctx, collection)
	if errors.Is(err, remote.ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", common.ErrRemoteUnavailable, collection, err)
	}
	for _, row := range t.Rows {
		if common.SameName(schema.Align(t.Header, row, []string{column})[column], value) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCentralCollections creates the users, clients and assignment
// collections that do not exist yet and returns the names it created.
func (m *Manager) EnsureCentralCollections(ctx context.Context) ([]string, error) {
	central := []struct {
		name    string
		columns []string
	}{
		{schema.UsersCollection, schema.Users.Columns()},
		{schema.ClientsCollection, schema.Clients.Columns()},
		{schema.AssignmentsCollection, schema.Assignments.Columns()},
	}

	var created []string
	for _, c := range central {
		_, err := m.remote.Header(ctx, c.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, remote.ErrCollectionNotFound) {
			return created, fmt.Errorf("%w: %s: %w", common.ErrRemoteUnavailable, c.name, err)
		}
		if err := m.remote.CreateCollection(ctx, c.name, c.columns); err != nil && !errors.Is(err, remote.ErrCollectionExists) {
			return created, fmt.Errorf("%w: create %s: %w", common.ErrRemoteWrite, c.name, err)
		}
		m.log.Info(ctx, "collection created", "collection", c.name)
		created = append(created, c.name)
	}
	return created, nil
}

func trimAll(vals []string) []string {
	out := make([]string, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

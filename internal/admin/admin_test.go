package admin

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docsync/internal/cache"
	"github.com/dmitrijs2005/docsync/internal/engine"
	"github.com/dmitrijs2005/docsync/internal/logging"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/remote/memstore"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

// flakyStore fails selected writes.
type flakyStore struct {
	*memstore.Store
	appendErr  error
	deleteErrs map[int]error
	appends    int
	deletes    []int
}

func (s *flakyStore) AppendRows(ctx context.Context, c string, rows [][]string) error {
	s.appends++
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Store.AppendRows(ctx, c, rows)
}

func (s *flakyStore) DeleteRow(ctx context.Context, c string, index int) error {
	s.deletes = append(s.deletes, index)
	if err := s.deleteErrs[index]; err != nil {
		return err
	}
	return s.Store.DeleteRow(ctx, c, index)
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

type fixture struct {
	ctx   context.Context
	store *flakyStore
	cache *cache.Manager
	reads *countingInvalidator
	adm   *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s := &flakyStore{Store: memstore.New(), deleteErrs: map[int]error{}}
	s.Seed(schema.UsersCollection, schema.Users.Columns(),
		[]string{"admin", "x", "Admin", "Admin", ""},
		[]string{"alice", "x", "Alice", "Collaborator", ""},
	)
	s.Seed(schema.ClientsCollection, schema.Clients.Columns(),
		[]string{"c1", "Acme", "Industry"},
		[]string{"c2", "Globex", "Retail"},
		[]string{"c3", "Initech", "Retail"},
	)
	s.Seed(schema.AssignmentsCollection, schema.Assignments.Columns(),
		[]string{"alice", "c1", "Acme"},
		[]string{"bob", "c2", "Globex"},
		[]string{"ALICE", "", "initech"},
	)

	m, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	eng := engine.New(s, m, logging.NewNop())
	_, err = eng.Pull(ctx, models.Identity{Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	seq := 0
	reads := &countingInvalidator{}
	adm := New(s, m, logging.NewNop(), reads,
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }))
	return &fixture{ctx: ctx, store: s, cache: m, reads: reads, adm: adm}
}

func (f *fixture) localClientIDs(t *testing.T, collaborator string) []string {
	t.Helper()
	ids, err := f.cache.Assignments(f.cache.DB()).ClientIDs(f.ctx, collaborator)
	require.NoError(t, err)
	return ids
}

func (f *fixture) remoteAssignments(t *testing.T) [][]string {
	t.Helper()
	tbl, err := f.store.Store.ReadAll(f.ctx, schema.AssignmentsCollection)
	require.NoError(t, err)
	return tbl.Rows
}

func TestEnsureCentralCollections(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	s.Seed(schema.UsersCollection, schema.Users.Columns())
	adm := New(s, nil, logging.NewNop(), nil)

	created, err := adm.EnsureCentralCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{schema.ClientsCollection, schema.AssignmentsCollection}, created)

	h, err := s.Header(ctx, schema.AssignmentsCollection)
	require.NoError(t, err)
	assert.Equal(t, schema.Assignments.Columns(), h)

	created, err = adm.EnsureCentralCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)
}

var _ remote.Store = (*flakyStore)(nil)

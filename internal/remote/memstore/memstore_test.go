package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docsync/internal/remote"
)

func TestStore_CreateAppendRead(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.ReadAll(ctx, "docs_alice")
	require.ErrorIs(t, err, remote.ErrCollectionNotFound)

	require.NoError(t, s.CreateCollection(ctx, "docs_alice", []string{"id", "content"}))
	require.ErrorIs(t, s.CreateCollection(ctx, "docs_alice", []string{"id"}), remote.ErrCollectionExists)

	require.NoError(t, s.AppendRows(ctx, "docs_alice", [][]string{{"1", "a"}, {"2", "b"}}))

	tbl, err := s.ReadAll(ctx, "docs_alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "content"}, tbl.Header)
	assert.Equal(t, [][]string{{"1", "a"}, {"2", "b"}}, tbl.Rows)

	h, err := s.Header(ctx, "docs_alice")
	require.NoError(t, err)
	assert.Equal(t, tbl.Header, h)
}

func TestStore_ReadAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed("c", []string{"id"}, []string{"1"})

	tbl, err := s.ReadAll(ctx, "c")
	require.NoError(t, err)
	tbl.Rows[0][0] = "mutated"

	again, err := s.ReadAll(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "1", again.Rows[0][0])
}

func TestStore_FindUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed("c", []string{"id", "status"}, []string{"1", "Registered"}, []string{"2"}, []string{"3", "Registered"})

	r, err := s.FindRow(ctx, "c", "id", "2")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Index)

	require.NoError(t, s.BatchUpdateCells(ctx, "c", []remote.CellUpdate{{Row: 3, Col: 2, Value: "Validated"}}))
	r, err = s.FindRow(ctx, "c", "status", "Validated")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "Validated"}, r.Values)

	err = s.BatchUpdateCells(ctx, "c", []remote.CellUpdate{{Row: 2, Col: 2, Value: "x"}, {Row: 9, Col: 1, Value: "y"}})
	require.ErrorIs(t, err, remote.ErrRowNotFound)
	r, err = s.FindRow(ctx, "c", "id", "1")
	require.NoError(t, err)
	assert.Equal(t, "Registered", r.Values[1], "batch is all-or-nothing")

	require.NoError(t, s.DeleteRow(ctx, "c", 2))
	tbl, err := s.ReadAll(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 2)
	assert.Equal(t, "2", tbl.Rows[0][0])

	require.ErrorIs(t, s.DeleteRow(ctx, "c", 1), remote.ErrRowNotFound)
	require.ErrorIs(t, s.DeleteRow(ctx, "c", 10), remote.ErrRowNotFound)
}

func TestStore_WriteHeader(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.ErrorIs(t, s.WriteHeader(ctx, "docs_bob", []string{"id"}), remote.ErrCollectionNotFound)

	s.Seed("docs_bob", nil)
	require.NoError(t, s.WriteHeader(ctx, "docs_bob", []string{"id", "content"}))
	h, err := s.Header(ctx, "docs_bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "content"}, h)
}

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

func stage(t *testing.T, f *fixture, owner, client, content string) string {
	t.Helper()
	res, err := f.eng.CreateLocal(f.ctx, models.Document{Owner: owner, ClientName: client, Content: content})
	require.NoError(t, err)
	return res.ID
}

func TestPushSelected_EmptySelectionIsNoop(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "alice", "Acme", "http://a/new")

	for _, ids := range [][]string{nil, {}, {"nope"}, {"d1"}} {
		res, err := f.eng.PushSelected(f.ctx, "alice", ids)
		require.NoError(t, err)
		assert.Empty(t, res.Pushed)
		assert.True(t, res.Unsaved)
		assert.Equal(t, 1, res.RemainingPending)
	}
	assert.Empty(t, f.store.Calls())
	assert.Equal(t, models.SyncPending, f.doc(t, id).SyncState)
}

func TestPushSelected_PushesOnlySelected(t *testing.T) {
	f := pulled(t)
	first := stage(t, f, "alice", "Acme", "http://a/4")
	second := stage(t, f, "alice", "Acme", "http://a/5")
	before := len(f.remoteRows(t, "docs_alice").Rows)

	res, err := f.eng.PushSelected(f.ctx, "alice", []string{first})
	require.NoError(t, err)
	assert.Equal(t, []string{first}, res.Pushed)
	assert.Equal(t, 1, res.RemainingPending)
	assert.True(t, res.Unsaved)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, models.SyncSynced, f.doc(t, first).SyncState)
	assert.Equal(t, models.SyncPending, f.doc(t, second).SyncState)
	assert.Equal(t, models.SyncSynced, f.doc(t, "d1").SyncState)

	tbl := f.remoteRows(t, "docs_alice")
	require.Len(t, tbl.Rows, before+1)
	got := schema.Documents.Decode(tbl.Header, tbl.Rows[before])
	assert.Equal(t, first, got.ID)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, "c1", got.ClientID)
	assert.Equal(t, "http://a/4", got.Content)

	res, err = f.eng.PushSelected(f.ctx, "alice", []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, []string{second}, res.Pushed)
	assert.False(t, res.Unsaved)
	assert.Len(t, f.remoteRows(t, "docs_alice").Rows, before+2)
}

func TestPushSelected_IgnoresOtherOwners(t *testing.T) {
	f := pulled(t)
	bobs := stage(t, f, "bob", "Globex", "http://b/1")

	res, err := f.eng.PushSelected(f.ctx, "alice", []string{bobs})
	require.NoError(t, err)
	assert.Empty(t, res.Pushed)
	assert.Empty(t, f.store.Calls())
	assert.Equal(t, models.SyncPending, f.doc(t, bobs).SyncState)
}

func TestPushSelected_CanonicalizesOwner(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "alice", "Acme", "http://a/4")
	before := len(f.remoteRows(t, "docs_alice").Rows)

	res, err := f.eng.PushSelected(f.ctx, " ALICE ", []string{id})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, res.Pushed)
	assert.NotContains(t, f.store.Calls(), "CreateCollection docs_ALICE")
	assert.Len(t, f.remoteRows(t, "docs_alice").Rows, before+1)

	_, err = f.eng.Pull(f.ctx, aliceID)
	require.NoError(t, err)
	d := f.doc(t, id)
	assert.Equal(t, "alice", d.Owner)
	assert.Equal(t, models.SyncSynced, d.SyncState)
}

func TestPushSelected_RejectsNonCollaborators(t *testing.T) {
	for _, owner := range []string{"", "mallory", "admin", "acme"} {
		t.Run(owner, func(t *testing.T) {
			f := pulled(t)
			_, err := f.eng.PushSelected(f.ctx, owner, []string{"d1"})
			require.Error(t, err)
			assert.Empty(t, f.store.Calls())
		})
	}
}

func TestPushSelected_CreatesMissingCollection(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "bob", "Globex", "http://b/1")

	res, err := f.eng.PushSelected(f.ctx, "bob", []string{id})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, res.Pushed)
	assert.Contains(t, f.store.Calls(), "CreateCollection docs_bob")

	tbl := f.remoteRows(t, "docs_bob")
	assert.Equal(t, schema.Documents.Columns(), tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, id, tbl.Rows[0][0])
}

func TestPushSelected_FillsBlankCollectionHeader(t *testing.T) {
	f := pulled(t)
	f.store.Seed("docs_bob", nil)
	id := stage(t, f, "bob", "Globex", "http://b/1")

	res, err := f.eng.PushSelected(f.ctx, "bob", []string{id})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, res.Pushed)
	assert.Contains(t, f.store.Calls(), "WriteHeader docs_bob")

	tbl := f.remoteRows(t, "docs_bob")
	assert.Equal(t, schema.Documents.Columns(), tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, id, tbl.Rows[0][0])
}

func TestPushSelected_AppendFailureLeavesPending(t *testing.T) {
	f := pulled(t)
	a := stage(t, f, "alice", "Acme", "http://a/4")
	b := stage(t, f, "alice", "Acme", "http://a/5")
	f.store.failOn("AppendRows docs_alice", errors.New("timeout"))

	_, err := f.eng.PushSelected(f.ctx, "alice", []string{a, b})
	require.ErrorIs(t, err, common.ErrRemoteWrite)

	for _, id := range []string{a, b} {
		assert.Equal(t, models.SyncPending, f.doc(t, id).SyncState)
	}
	unsaved, err := f.eng.HasUnsaved(f.ctx, "alice")
	require.NoError(t, err)
	assert.True(t, unsaved)
}

func TestPushSelected_CreateFailureIsRemoteWrite(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "bob", "Globex", "http://b/1")
	f.store.failOn("CreateCollection docs_bob", errors.New("forbidden"))

	_, err := f.eng.PushSelected(f.ctx, "bob", []string{id})
	require.ErrorIs(t, err, common.ErrRemoteWrite)
	assert.Equal(t, models.SyncPending, f.doc(t, id).SyncState)
}

func TestPushSelected_ProjectsOntoLegacyHeader(t *testing.T) {
	f := pulled(t)
	f.store.Seed("docs_bob", []string{"id", "legacy_flag", "content", "client_id"})
	id := stage(t, f, "bob", "Globex", "http://b/1")

	res, err := f.eng.PushSelected(f.ctx, "bob", []string{id})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)

	tbl := f.remoteRows(t, "docs_bob")
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{id, "", "http://b/1", "c2"}, tbl.Rows[0])
}

func TestPushSelected_UpdatesLastSync(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "alice", "Acme", "http://a/4")

	_, err := f.eng.PushSelected(f.ctx, "alice", []string{id})
	require.NoError(t, err)

	u, err := f.cache.Users(f.cache.DB()).Get(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14 10:30:00", u.LastSyncAt)

	row, err := f.store.Store.FindRow(f.ctx, schema.UsersCollection, schema.ColUsername, "alice")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14 10:30:00", row.Values[4])
}

func TestPushSelected_LastSyncFailureIsAWarning(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "alice", "Acme", "http://a/4")
	f.store.failOn("BatchUpdateCells users", errors.New("locked"))

	res, err := f.eng.PushSelected(f.ctx, "alice", []string{id})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, res.Pushed)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "locked")
}

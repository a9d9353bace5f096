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

func TestValidate_MirrorsRemoteFields(t *testing.T) {
	f := pulled(t)

	require.NoError(t, f.eng.Validate(f.ctx, "d2", models.StatusInvalid, "admin", " broken link "))
	assert.Equal(t, []string{"Header docs_alice", "FindRow docs_alice", "BatchUpdateCells docs_alice"}, f.store.Calls())

	tbl := f.remoteRows(t, "docs_alice")
	remoteDoc := schema.Documents.Decode(tbl.Header, tbl.Rows[1])
	local := f.doc(t, "d2")

	assert.Equal(t, models.StatusInvalid, local.Status)
	assert.Equal(t, "2025-03-14 10:30:00", local.ValidatedAt)
	assert.Equal(t, "admin", local.ValidatedBy)
	assert.Equal(t, "broken link", local.ValidationNotes)
	assert.Equal(t, models.SyncSynced, local.SyncState)

	assert.Equal(t, local.Status, remoteDoc.Status)
	assert.Equal(t, local.ValidatedAt, remoteDoc.ValidatedAt)
	assert.Equal(t, local.ValidatedBy, remoteDoc.ValidatedBy)
	assert.Equal(t, local.ValidationNotes, remoteDoc.ValidationNotes)
	assert.Equal(t, "http://a/2", remoteDoc.Content)
}

func TestValidate_PushedDocument(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "alice", "Acme", "http://a/4")
	_, err := f.eng.PushSelected(f.ctx, "alice", []string{id})
	require.NoError(t, err)

	require.NoError(t, f.eng.Validate(f.ctx, id, "validado", "admin", ""))
	assert.Equal(t, models.StatusValidated, f.doc(t, id).Status)
}

func TestValidate_UnknownLocallyMakesNoRemoteCall(t *testing.T) {
	f := pulled(t)

	err := f.eng.Validate(f.ctx, "ghost", models.StatusValidated, "admin", "")
	require.ErrorIs(t, err, common.ErrInconsistentRecord)
	assert.Empty(t, f.store.Calls())
}

func TestValidate_UnknownStatus(t *testing.T) {
	f := pulled(t)

	err := f.eng.Validate(f.ctx, "d1", "Approved-ish", "admin", "")
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, f.store.Calls())
}

func TestValidate_PendingDocumentIsMissingRemotely(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "alice", "Acme", "http://a/4")

	err := f.eng.Validate(f.ctx, id, models.StatusValidated, "admin", "")
	require.ErrorIs(t, err, common.ErrInconsistentRecord)

	d := f.doc(t, id)
	assert.Equal(t, models.StatusRegistered, d.Status)
	assert.Equal(t, models.SyncPending, d.SyncState)
}

func TestValidate_MissingCollection(t *testing.T) {
	f := pulled(t)
	id := stage(t, f, "bob", "Globex", "http://b/1")

	err := f.eng.Validate(f.ctx, id, models.StatusValidated, "admin", "")
	require.ErrorIs(t, err, common.ErrInconsistentRecord)
}

func TestValidate_RemoteFailures(t *testing.T) {
	tests := []struct {
		name    string
		failOn  string
		wantErr error
	}{
		{"header unreachable", "Header docs_alice", common.ErrRemoteUnavailable},
		{"lookup unreachable", "FindRow docs_alice", common.ErrRemoteUnavailable},
		{"update rejected", "BatchUpdateCells docs_alice", common.ErrRemoteWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := pulled(t)
			f.store.failOn(tt.failOn, errors.New("backend error"))

			err := f.eng.Validate(f.ctx, "d2", models.StatusValidated, "admin", "")
			require.ErrorIs(t, err, tt.wantErr)

			d := f.doc(t, "d2")
			assert.Equal(t, models.StatusRegistered, d.Status)
			assert.Empty(t, d.ValidatedBy)
		})
	}
}

func TestValidate_SkipsColumnsMissingFromLegacyLayout(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("docs_alice", []string{"id", "collaborator_username", "client_id", "content", "status", "validated_by"},
		[]string{"old1", "alice", "c1", "http://old", "Enviado", ""},
	)
	_, err := f.eng.Pull(f.ctx, adminID)
	require.NoError(t, err)

	require.NoError(t, f.eng.Validate(f.ctx, "old1", models.StatusValidated, "admin", "fine"))

	tbl := f.remoteRows(t, "docs_alice")
	assert.Equal(t, []string{"old1", "alice", "c1", "http://old", "Validated", "admin"}, tbl.Rows[0])

	d := f.doc(t, "old1")
	assert.Equal(t, models.StatusValidated, d.Status)
	assert.Equal(t, "fine", d.ValidationNotes)
}

func TestValidate_NoWritableColumn(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("docs_alice", []string{"id", "collaborator_username", "content"},
		[]string{"old1", "alice", "http://old"},
	)
	_, err := f.eng.Pull(f.ctx, adminID)
	require.NoError(t, err)

	err = f.eng.Validate(f.ctx, "old1", models.StatusValidated, "admin", "")
	require.ErrorIs(t, err, common.ErrRemoteWrite)
	assert.Equal(t, models.SyncSynced, f.doc(t, "old1").SyncState)
	assert.Empty(t, f.doc(t, "old1").ValidatedBy)
}

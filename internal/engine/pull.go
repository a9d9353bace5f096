package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/docsync/internal/cache/repositories/metadata"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/dbx"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

// PullResult summarizes a full reload.
type PullResult struct {
	Documents          int
	Collections        int
	SkippedCollections []string
	BackfilledIDs      int
	UnresolvedClients  int
	// DiscardedPending counts local documents that had not been pushed and
	// were dropped by the reload.
	DiscardedPending int
	Warnings         []string
}

func (r *PullResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// backfillNamespace seeds the ids given to legacy rows that never had one.
var backfillNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("docsync/backfill"))

// stableID derives an id from where a row lives and what it holds, so
// repeated pulls of an unchanged row produce the same id.
func stableID(collection string, index int, values []string) string {
	var b strings.Builder
	b.WriteString(collection)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(index))
	for _, v := range values {
		b.WriteByte(0)
		b.WriteString(strings.TrimSpace(v))
	}
	return uuid.NewSHA1(backfillNamespace, []byte(b.String())).String()
}

// idWriteBack is a pending write of generated ids to one collection.
type idWriteBack struct {
	collection string
	cells      []remote.CellUpdate
}

// snapshot is everything a pull read from the remote store.
type snapshot struct {
	users       []models.User
	clients     []models.Client
	assignments []models.Assignment
	documents   []models.Document
	writeBacks  []idWriteBack
}

// Pull replaces the cache with the remote state visible to id. Every remote
// read happens before the cache is touched, and the replacement runs in one
// transaction: a failed pull leaves the previous cache in place.
func (e *Engine) Pull(ctx context.Context, id models.Identity) (*PullResult, error) {
	res := &PullResult{}
	log := e.log.With("user", id.Username, "role", id.Role)

	snap, err := e.readSnapshot(ctx, id, res)
	if err != nil {
		log.Error(ctx, "pull failed", "error", err)
		return nil, err
	}

	err = e.cache.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		discarded, err := e.cache.Documents(tx).DeleteAll(ctx)
		if err != nil {
			return err
		}
		res.DiscardedPending = discarded

		skipped, err := e.cache.Users(tx).ReplaceAll(ctx, snap.users)
		if err != nil {
			return err
		}
		if skipped > 0 {
			res.warn("%d duplicate users ignored", skipped)
		}
		if _, err := e.cache.Clients(tx).ReplaceAll(ctx, snap.clients); err != nil {
			return err
		}
		if err := e.cache.Assignments(tx).ReplaceAll(ctx, snap.assignments); err != nil {
			return err
		}

		docs := e.cache.Documents(tx)
		for i := range snap.documents {
			if _, err := docs.InsertIgnore(ctx, &snap.documents[i]); err != nil {
				return err
			}
		}

		meta := e.cache.Metadata(tx)
		if err := meta.SetTime(ctx, metadata.KeyLastPullAt, e.now()); err != nil {
			return err
		}
		return meta.Set(ctx, metadata.KeyPullIdentity, id.Username)
	})
	if err != nil {
		log.Error(ctx, "replace cache", "error", err)
		return nil, fmt.Errorf("%w: replace cache: %w", common.ErrorInternal, err)
	}
	e.reads.Invalidate()
	res.Documents = len(snap.documents)

	if res.DiscardedPending > 0 {
		res.warn("%d unsaved local documents discarded", res.DiscardedPending)
	}

	for _, wb := range snap.writeBacks {
		if err := e.remote.BatchUpdateCells(ctx, wb.collection, wb.cells); err != nil {
			res.warn("write generated ids to %s: %v", wb.collection, err)
			continue
		}
		log.Info(ctx, "generated ids written back", "collection", wb.collection, "count", len(wb.cells))
	}

	for _, w := range res.Warnings {
		log.Warn(ctx, w)
	}
	log.Info(ctx, "pull finished",
		"documents", res.Documents,
		"collections", res.Collections,
		"skipped", len(res.SkippedCollections),
	)
	return res, nil
}

func (e *Engine) readSnapshot(ctx context.Context, id models.Identity, res *PullResult) (*snapshot, error) {
	snap := &snapshot{}

	usersTable, err := e.readCentral(ctx, schema.UsersCollection, res)
	if err != nil {
		return nil, err
	}
	clientsTable, err := e.readCentral(ctx, schema.ClientsCollection, res)
	if err != nil {
		return nil, err
	}
	assignTable, err := e.readCentral(ctx, schema.AssignmentsCollection, res)
	if err != nil {
		return nil, err
	}

	for _, row := range usersTable.Rows {
		u := schema.Users.Decode(usersTable.Header, row)
		if u.Username == "" {
			continue
		}
		snap.users = append(snap.users, u)
	}

	var clientIDs []remote.CellUpdate
	idCol, hasIDCol := schema.ColumnIndex(clientsTable.Header, schema.ColID)
	for i, row := range clientsTable.Rows {
		c := schema.Clients.Decode(clientsTable.Header, row)
		if c.Name == "" {
			if c.ID != "" {
				res.warn("%s row %d: client %s has no name, skipped", schema.ClientsCollection, clientsTable.RowIndex(i), c.ID)
			}
			continue
		}
		if c.ID == "" {
			c.ID = stableID(schema.ClientsCollection, clientsTable.RowIndex(i), row)
			res.BackfilledIDs++
			if hasIDCol {
				clientIDs = append(clientIDs, remote.CellUpdate{Row: clientsTable.RowIndex(i), Col: idCol, Value: c.ID})
			}
		}
		snap.clients = append(snap.clients, c)
	}
	if e.backfillIDs && len(clientIDs) > 0 {
		snap.writeBacks = append(snap.writeBacks, idWriteBack{schema.ClientsCollection, clientIDs})
	}
	ix := newClientIndex(snap.clients)

	for i, row := range assignTable.Rows {
		a := schema.Assignments.Decode(assignTable.Header, row)
		if a.Collaborator == "" {
			continue
		}
		c, ok := ix.resolve(a.ClientID, a.ClientName)
		if !ok {
			res.warn("%s row %d: client %q not found, assignment skipped",
				schema.AssignmentsCollection, assignTable.RowIndex(i), firstNonEmpty(a.ClientID, a.ClientName))
			continue
		}
		a.ClientID, a.ClientName = c.ID, c.Name
		snap.assignments = append(snap.assignments, a)
	}

	seen := make(map[string]struct{})
	for _, owner := range e.owners(id, snap.users) {
		collection := e.DocumentsCollection(owner)
		t, err := e.remote.ReadAll(ctx, collection)
		switch {
		case errors.Is(err, remote.ErrCollectionNotFound):
			res.warn("%s does not exist yet, no documents for %s", collection, owner)
			continue
		case err != nil:
			res.SkippedCollections = append(res.SkippedCollections, collection)
			res.warn("%s skipped: %v", collection, err)
			continue
		}
		res.Collections++
		e.decodeDocuments(collection, owner, t, ix, seen, snap, res)
	}
	return snap, nil
}

func (e *Engine) decodeDocuments(collection, owner string, t *remote.Table, ix *clientIndex,
	seen map[string]struct{}, snap *snapshot, res *PullResult) {
	var ids []remote.CellUpdate
	idCol, hasIDCol := schema.ColumnIndex(t.Header, schema.ColID)

	for i, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		d := schema.Documents.Decode(t.Header, row)
		index := t.RowIndex(i)

		if d.ID == "" {
			d.ID = stableID(collection, index, row)
			res.BackfilledIDs++
			if hasIDCol {
				ids = append(ids, remote.CellUpdate{Row: index, Col: idCol, Value: d.ID})
			}
		}
		if _, dup := seen[d.ID]; dup {
			res.warn("%s row %d: duplicate id %s ignored", collection, index, d.ID)
			continue
		}
		seen[d.ID] = struct{}{}

		if d.Owner != "" && !common.SameName(d.Owner, owner) {
			res.warn("%s row %d: owner %q replaced by %q", collection, index, d.Owner, owner)
		}
		d.Owner = owner

		switch c, ok := ix.resolve(d.ClientID, d.ClientName); {
		case ok:
			d.ClientID, d.ClientName = c.ID, c.Name
		case d.ClientID == "" && d.ClientName != "":
			res.UnresolvedClients++
			res.warn("%s row %d: client %q not found", collection, index, d.ClientName)
		}

		if d.Status == "" {
			d.Status = models.StatusRegistered
		}
		d.SyncState = models.SyncSynced
		snap.documents = append(snap.documents, d)
	}

	if e.backfillIDs && len(ids) > 0 {
		snap.writeBacks = append(snap.writeBacks, idWriteBack{collection, ids})
	}
}

// readCentral reads a collection every pull depends on. A collection that
// does not exist yet reads as empty; any other failure aborts the pull.
func (e *Engine) readCentral(ctx context.Context, collection string, res *PullResult) (*remote.Table, error) {
	t, err := e.remote.ReadAll(ctx, collection)
	if errors.Is(err, remote.ErrCollectionNotFound) {
		res.warn("%s does not exist, treated as empty", collection)
		return &remote.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrRemoteUnavailable, collection, err)
	}
	return t, nil
}

// owners lists whose document collections a pull loads for id.
func (e *Engine) owners(id models.Identity, us []models.User) []string {
	if id.Role == models.RoleCollaborator {
		return []string{id.Username}
	}
	var out []string
	for _, u := range us {
		if u.Role == models.RoleCollaborator {
			out = append(out, u.Username)
		}
	}
	return out
}

func blankRow(row []string) bool {
	for _, v := range row {
		if !schema.IsBlank(v) {
			return false
		}
	}
	return true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

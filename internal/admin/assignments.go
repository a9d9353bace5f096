package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/dbx"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

type AssignResult struct {
	// Added lists the client ids that were not assigned before.
	Added           []string
	AlreadyAssigned int
}

type UnassignResult struct {
	RemovedLocal  int64
	RemovedRemote int
}

// Assign links collaborator to clientIDs. Pairs that already exist locally
// are left alone, so only new pairs are appended remotely.
func (m *Manager) Assign(ctx context.Context, collaborator string, clientIDs []string) (*AssignResult, error) {
	collaborator = strings.TrimSpace(collaborator)
	if collaborator == "" {
		return nil, fmt.Errorf("%w: collaborator is required", common.ErrorValidation)
	}
	ids := trimAll(clientIDs)
	res := &AssignResult{}
	if len(ids) == 0 {
		return res, nil
	}

	clientRepo := m.cache.Clients(m.cache.DB())
	byID := make(map[string]models.Client, len(ids))
	for _, id := range ids {
		c, err := clientRepo.Get(ctx, id)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown client %q", common.ErrReferenceResolution, id)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		byID[id] = *c
	}

	err := m.cache.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.cache.Assignments(tx)
		for _, id := range ids {
			added, err := repo.Add(ctx, collaborator, id)
			if err != nil {
				return err
			}
			if added {
				res.Added = append(res.Added, id)
			} else {
				res.AlreadyAssigned++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: store assignments: %w", common.ErrorInternal, err)
	}
	m.invalidate()

	if len(res.Added) == 0 {
		return res, nil
	}

	log := m.log.With("collaborator", collaborator, "collection", schema.AssignmentsCollection)
	header, err := remote.EnsureCollection(ctx, m.remote, schema.AssignmentsCollection, schema.Assignments.Columns())
	if err != nil {
		log.Error(ctx, "prepare collection", "error", err)
		return res, fmt.Errorf("%w: prepare %s: %w", common.ErrRemoteWrite, schema.AssignmentsCollection, err)
	}
	rows := make([][]string, len(res.Added))
	for i, id := range res.Added {
		rows[i] = schema.Assignments.Encode(models.Assignment{
			Collaborator: collaborator,
			ClientID:     id,
			ClientName:   byID[id].Name,
		}, header)
	}
	if err := m.remote.AppendRows(ctx, schema.AssignmentsCollection, rows); err != nil {
		log.Error(ctx, "append assignments", "error", err, "count", len(rows))
		return res, fmt.Errorf("%w: append to %s: %w", common.ErrRemoteWrite, schema.AssignmentsCollection, err)
	}

	log.Info(ctx, "clients assigned", "count", len(res.Added))
	return res, nil
}

// Unassign removes the links between collaborator and clientIDs from both
// stores. Remote rows are matched by client id, or by client name on legacy
// rows without one, and deleted from the bottom up so earlier deletes do not
// shift the rows still to go. Failed remote deletes are reported together;
// the local removal stands.
func (m *Manager) Unassign(ctx context.Context, collaborator string, clientIDs []string) (*UnassignResult, error) {
	collaborator = strings.TrimSpace(collaborator)
	if collaborator == "" {
		return nil, fmt.Errorf("%w: collaborator is required", common.ErrorValidation)
	}
	ids := trimAll(clientIDs)
	res := &UnassignResult{}
	if len(ids) == 0 {
		return res, nil
	}

	wantID := make(map[string]struct{}, len(ids))
	wantName := make(map[string]struct{}, len(ids))
	clientRepo := m.cache.Clients(m.cache.DB())
	for _, id := range ids {
		wantID[id] = struct{}{}
		if c, err := clientRepo.Get(ctx, id); err == nil {
			wantName[strings.ToLower(strings.TrimSpace(c.Name))] = struct{}{}
		}
	}

	n, err := m.cache.Assignments(m.cache.DB()).Remove(ctx, collaborator, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: remove assignments: %w", common.ErrorInternal, err)
	}
	res.RemovedLocal = n
	m.invalidate()

	log := m.log.With("collaborator", collaborator, "collection", schema.AssignmentsCollection)
	t, err := m.remote.ReadAll(ctx, schema.AssignmentsCollection)
	if errors.Is(err, remote.ErrCollectionNotFound) {
		return res, nil
	}
	if err != nil {
		log.Error(ctx, "read assignments", "error", err)
		return res, fmt.Errorf("%w: read %s: %w", common.ErrRemoteWrite, schema.AssignmentsCollection, err)
	}

	var rows []int
	for i, row := range t.Rows {
		a := schema.Assignments.Decode(t.Header, row)
		if !common.SameName(a.Collaborator, collaborator) {
			continue
		}
		_, byID := wantID[a.ClientID]
		_, byName := wantName[strings.ToLower(a.ClientName)]
		if byID || (a.ClientID == "" && byName) {
			rows = append(rows, t.RowIndex(i))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rows)))

	var errs []error
	for _, idx := range rows {
		if err := m.remote.DeleteRow(ctx, schema.AssignmentsCollection, idx); err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", idx, err))
			continue
		}
		res.RemovedRemote++
	}
	if len(errs) > 0 {
		log.Error(ctx, "delete assignments", "failed", len(errs), "deleted", res.RemovedRemote)
		return res, fmt.Errorf("%w: %d of %d rows not deleted from %s: %w",
			common.ErrRemoteWrite, len(errs), len(rows), schema.AssignmentsCollection, errors.Join(errs...))
	}

	log.Info(ctx, "clients unassigned", "local", res.RemovedLocal, "remote", res.RemovedRemote)
	return res, nil
}

package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/docsync/internal/cache/repositories/clients"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/documents"
	"github.com/dmitrijs2005/docsync/internal/cache/repositories/metadata"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/readcache"
)

type (
	DocumentFilter = documents.Filter
	ClientFilter   = clients.Filter
)

// Score is a collaborator's standing on the validation ranking.
type Score struct {
	Collaborator string
	DisplayName  string
	Validated    int
	Points       int
	// Share is the percentage of all validated documents.
	Share float64
}

const pointsPerValidated = 10

func wrapRead(err error) error {
	return fmt.Errorf("%w: %w", common.ErrorInternal, err)
}

func (e *Engine) ListPending(ctx context.Context, owner string) ([]models.Document, error) {
	ds, err := e.cache.Documents(e.cache.DB()).ListPending(ctx, strings.TrimSpace(owner))
	if err != nil {
		return nil, wrapRead(err)
	}
	return ds, nil
}

// HasUnsaved reports whether owner has documents that were never pushed.
func (e *Engine) HasUnsaved(ctx context.Context, owner string) (bool, error) {
	n, err := e.cache.Documents(e.cache.DB()).CountPending(ctx, strings.TrimSpace(owner))
	if err != nil {
		return false, wrapRead(err)
	}
	return n > 0, nil
}

func (e *Engine) ListDocuments(ctx context.Context, f DocumentFilter) ([]models.Document, error) {
	ds, err := e.cache.Documents(e.cache.DB()).List(ctx, f)
	if err != nil {
		return nil, wrapRead(err)
	}
	return ds, nil
}

// StatusCounts counts matching documents per status.
func (e *Engine) StatusCounts(ctx context.Context, f DocumentFilter) (map[models.Status]int, error) {
	key := fmt.Sprintf("status:%+v", f)
	m, err := readcache.Get(e.reads, key, func() (map[models.Status]int, error) {
		return e.cache.Documents(e.cache.DB()).StatusCounts(ctx, f)
	})
	if err != nil {
		return nil, wrapRead(err)
	}
	return cloneCounts(m), nil
}

// CollaboratorScores ranks every collaborator by validated documents, best
// first. Collaborators without validated documents are listed with zero.
func (e *Engine) CollaboratorScores(ctx context.Context) ([]Score, error) {
	scores, err := readcache.Get(e.reads, "scores", func() ([]Score, error) {
		return e.loadScores(ctx)
	})
	if err != nil {
		return nil, wrapRead(err)
	}
	return append([]Score(nil), scores...), nil
}

func (e *Engine) loadScores(ctx context.Context) ([]Score, error) {
	us, err := e.cache.Users(e.cache.DB()).List(ctx, models.RoleCollaborator)
	if err != nil {
		return nil, err
	}
	validated, err := e.cache.Documents(e.cache.DB()).CountByOwner(ctx, models.StatusValidated)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range validated {
		total += n
	}

	scores := make([]Score, 0, len(us))
	for _, u := range us {
		n := validated[u.Username]
		s := Score{
			Collaborator: u.Username,
			DisplayName:  u.DisplayName,
			Validated:    n,
			Points:       n * pointsPerValidated,
		}
		if s.DisplayName == "" {
			s.DisplayName = u.Username
		}
		if total > 0 {
			s.Share = float64(n) / float64(total) * 100
		}
		scores = append(scores, s)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Points != scores[j].Points {
			return scores[i].Points > scores[j].Points
		}
		return scores[i].Collaborator < scores[j].Collaborator
	})
	return scores, nil
}

func (e *Engine) ListClients(ctx context.Context, f ClientFilter) ([]models.Client, error) {
	key := fmt.Sprintf("clients:%+v", f)
	cs, err := readcache.Get(e.reads, key, func() ([]models.Client, error) {
		return e.cache.Clients(e.cache.DB()).List(ctx, f)
	})
	if err != nil {
		return nil, wrapRead(err)
	}
	return append([]models.Client(nil), cs...), nil
}

// ListClientTypes returns the distinct client types, restricted to the
// collaborator's clients when one is given.
func (e *Engine) ListClientTypes(ctx context.Context, collaborator string) ([]string, error) {
	ts, err := e.cache.Clients(e.cache.DB()).Types(ctx, strings.TrimSpace(collaborator))
	if err != nil {
		return nil, wrapRead(err)
	}
	return ts, nil
}

func (e *Engine) ListCollaborators(ctx context.Context) ([]models.User, error) {
	us, err := e.cache.Users(e.cache.DB()).List(ctx, models.RoleCollaborator)
	if err != nil {
		return nil, wrapRead(err)
	}
	return us, nil
}

func (e *Engine) ListUsers(ctx context.Context) ([]models.User, error) {
	us, err := e.cache.Users(e.cache.DB()).List(ctx, "")
	if err != nil {
		return nil, wrapRead(err)
	}
	return us, nil
}

// LastPull returns when the cache was last rebuilt and whether it ever was.
func (e *Engine) LastPull(ctx context.Context) (time.Time, bool, error) {
	t, ok, err := e.cache.Metadata(e.cache.DB()).GetTime(ctx, metadata.KeyLastPullAt)
	if err != nil {
		return time.Time{}, false, wrapRead(err)
	}
	return t, ok, nil
}

func cloneCounts(m map[models.Status]int) map[models.Status]int {
	out := make(map[models.Status]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

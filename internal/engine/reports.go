package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/cache/repositories/documents"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/readcache"
)

// Grain is the bucket size of a period report.
type Grain string

const (
	GrainDay   Grain = "D"
	GrainWeek  Grain = "W"
	GrainMonth Grain = "M"
)

// strftime layouts; weeks start on Monday.
var grainLayouts = map[Grain]string{
	GrainDay:   "%Y-%m-%d",
	GrainWeek:  "%Y-%W",
	GrainMonth: "%Y-%m",
}

// ParseGrain accepts D, W or M in any case. An empty string means weekly.
func ParseGrain(s string) (Grain, error) {
	g := Grain(strings.ToUpper(strings.TrimSpace(s)))
	if g == "" {
		return GrainWeek, nil
	}
	if _, ok := grainLayouts[g]; !ok {
		return "", fmt.Errorf("%w: unknown period %q, want D, W or M", common.ErrorValidation, s)
	}
	return g, nil
}

type PeriodCount = documents.PeriodCount

// CriterionCoverage reports how many of a client's documents were filed
// under a criterion and how many of those were validated.
type CriterionCoverage struct {
	Criterion models.Criterion
	Total     int
	Validated int
}

// ClientAnalysis measures a client's validated documents against the
// publication target.
type ClientAnalysis struct {
	Client    string
	Target    int
	Published int
	// Pending is how many more validated documents the target needs.
	Pending  int
	Criteria map[models.Criterion]int
}

// ValidatedByPeriod counts the client's validated documents per period of
// registration, oldest first.
func (e *Engine) ValidatedByPeriod(ctx context.Context, client string, g Grain) ([]PeriodCount, error) {
	layout, ok := grainLayouts[g]
	if !ok {
		return nil, fmt.Errorf("%w: unknown period %q", common.ErrorValidation, g)
	}
	f := DocumentFilter{ClientName: strings.TrimSpace(client), Status: models.StatusValidated}
	if f.ClientName == "" {
		return nil, fmt.Errorf("%w: client is required", common.ErrorValidation)
	}

	key := fmt.Sprintf("periods:%s:%+v", g, f)
	ps, err := readcache.Get(e.reads, key, func() ([]PeriodCount, error) {
		return e.cache.Documents(e.cache.DB()).CountByPeriod(ctx, f, layout)
	})
	if err != nil {
		return nil, wrapRead(err)
	}
	return append([]PeriodCount(nil), ps...), nil
}

// CriteriaForClient lists every known criterion for the client, restricted
// to one collaborator's documents when collaborator is set.
func (e *Engine) CriteriaForClient(ctx context.Context, client, collaborator string) ([]CriterionCoverage, error) {
	counts, err := e.criterionCounts(ctx, client, collaborator)
	if err != nil {
		return nil, err
	}
	out := make([]CriterionCoverage, 0, len(models.Criteria()))
	for _, c := range models.Criteria() {
		n := counts[c]
		out = append(out, CriterionCoverage{Criterion: c, Total: n.Total, Validated: n.Validated})
	}
	return out, nil
}

// AnalyzeClient compares the client's validated documents with the
// publication target. Documents under unknown criteria count as published
// but are not broken down.
func (e *Engine) AnalyzeClient(ctx context.Context, client, collaborator string) (*ClientAnalysis, error) {
	counts, err := e.criterionCounts(ctx, client, collaborator)
	if err != nil {
		return nil, err
	}
	a := &ClientAnalysis{
		Client:   strings.TrimSpace(client),
		Target:   e.target,
		Criteria: make(map[models.Criterion]int),
	}
	for crit, n := range counts {
		a.Published += n.Validated
		if isKnownCriterion(crit) {
			a.Criteria[crit] = n.Total
		}
	}
	a.Pending = max(0, a.Target-a.Published)
	return a, nil
}

func (e *Engine) criterionCounts(ctx context.Context, client, collaborator string) (map[models.Criterion]documents.CriterionCount, error) {
	f := DocumentFilter{ClientName: strings.TrimSpace(client), Owner: strings.TrimSpace(collaborator)}
	if f.ClientName == "" {
		return nil, fmt.Errorf("%w: client is required", common.ErrorValidation)
	}
	key := fmt.Sprintf("criteria:%+v", f)
	m, err := readcache.Get(e.reads, key, func() (map[models.Criterion]documents.CriterionCount, error) {
		return e.cache.Documents(e.cache.DB()).CriterionCounts(ctx, f)
	})
	if err != nil {
		return nil, wrapRead(err)
	}
	return m, nil
}

func isKnownCriterion(c models.Criterion) bool {
	for _, k := range models.Criteria() {
		if k == c {
			return true
		}
	}
	return false
}

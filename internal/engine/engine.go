// Package engine keeps the local cache and the remote store in step.
//
// The remote store is authoritative. Pull rebuilds the cache from it,
// CreateLocal stages documents as pending, PushSelected appends chosen
// pending documents to the owner's remote collection and Validate writes a
// reviewer outcome remotely before mirroring it locally. Reads are served
// from the cache.
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/docsync/internal/cache"
	"github.com/dmitrijs2005/docsync/internal/logging"
	"github.com/dmitrijs2005/docsync/internal/readcache"
	"github.com/dmitrijs2005/docsync/internal/remote"
)

const (
	DefaultDocsPrefix        = "docs_"
	DefaultPublicationTarget = 100
)

type Engine struct {
	remote remote.Store
	cache  *cache.Manager
	log    logging.Logger
	reads  *readcache.Cache

	now         func() time.Time
	newID       func() string
	docsPrefix  string
	backfillIDs bool
	target      int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func WithDocsPrefix(prefix string) Option {
	return func(e *Engine) { e.docsPrefix = prefix }
}

// WithIDBackfill controls whether ids generated for id-less legacy rows are
// written back to the remote store during a pull.
func WithIDBackfill(enabled bool) Option {
	return func(e *Engine) { e.backfillIDs = enabled }
}

// WithPublicationTarget sets how many validated documents AnalyzeClient
// expects per client.
func WithPublicationTarget(n int) Option {
	return func(e *Engine) { e.target = n }
}

func WithReadCache(c *readcache.Cache) Option {
	return func(e *Engine) { e.reads = c }
}

func New(store remote.Store, c *cache.Manager, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		remote:      store,
		cache:       c,
		log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
		docsPrefix:  DefaultDocsPrefix,
		backfillIDs: true,
		target:      DefaultPublicationTarget,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// DocumentsCollection names owner's remote document collection.
func (e *Engine) DocumentsCollection(owner string) string {
	return remote.DocumentsCollection(e.docsPrefix, owner)
}

// Invalidate drops cached report results. Collaborators that change the
// cache outside the engine call it.
func (e *Engine) Invalidate() {
	e.reads.Invalidate()
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/docsync/internal/admin"
	"github.com/dmitrijs2005/docsync/internal/auth"
	"github.com/dmitrijs2005/docsync/internal/cache"
	"github.com/dmitrijs2005/docsync/internal/config"
	"github.com/dmitrijs2005/docsync/internal/engine"
	"github.com/dmitrijs2005/docsync/internal/logging"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/readcache"
	"github.com/dmitrijs2005/docsync/internal/remote"
)

// App holds one session: a remote backend, its cache and the signed-in
// identity.
type App struct {
	cfg    *config.Config
	log    logging.Logger
	remote remote.Store
	cache  *cache.Manager
	engine *engine.Engine
	admin  *admin.Manager
	auth   *auth.Authenticator

	identity   *models.Identity
	exitWarned bool

	reader *bufio.Reader
	out    io.Writer

	closeRemote func() error
}

// NewApp opens the configured backend and a fresh cache.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	store, closeRemote, err := openRemote(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.RemoteBackend, err)
	}
	c, err := cache.Open(ctx, cfg.CacheDSN)
	if err != nil {
		_ = closeRemote()
		return nil, err
	}
	a := newApp(cfg, log, store, c, in, out)
	a.closeRemote = closeRemote
	return a, nil
}

func newApp(cfg *config.Config, log logging.Logger, store remote.Store, c *cache.Manager, in io.Reader, out io.Writer) *App {
	eng := engine.New(store, c, log.With("component", "engine"),
		engine.WithDocsPrefix(cfg.DocsCollectionPrefix),
		engine.WithIDBackfill(cfg.BackfillRemoteIDs),
		engine.WithPublicationTarget(cfg.PublicationTarget),
		engine.WithReadCache(readcache.New(cfg.ReadCacheSize, cfg.ReadCacheTTL)),
	)
	return &App{
		cfg:    cfg,
		log:    log,
		remote: store,
		cache:  c,
		engine: eng,
		admin: admin.New(store, c, log.With("component", "admin"), eng,
			admin.WithDocsPrefix(cfg.DocsCollectionPrefix)),
		auth:        auth.NewAuthenticator(store, log.With("component", "auth")),
		reader:      bufio.NewReader(in),
		out:         out,
		closeRemote: func() error { return nil },
	}
}

func (a *App) Close() error {
	cerr := a.cache.Close()
	if err := a.closeRemote(); err != nil {
		return err
	}
	return cerr
}

func (a *App) isLoggedIn() bool { return a.identity != nil }

func (a *App) isAdmin() bool {
	return a.identity != nil && a.identity.Role == models.RoleAdmin
}

func (a *App) getStatus() string {
	if a.identity == nil {
		return ""
	}
	return fmt.Sprintf("(%s %s)", a.identity.Username, a.identity.Role)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/logging"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

// Authenticator checks credentials against the remote users collection. It
// runs before the first pull, so it never consults the cache.
type Authenticator struct {
	remote remote.Store
	log    logging.Logger
}

func NewAuthenticator(store remote.Store, log logging.Logger) *Authenticator {
	return &Authenticator{remote: store, log: log}
}

// Login returns the identity of username. Unknown users and wrong passwords
// fail alike with common.ErrorUnauthorized.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	t, err := a.remote.ReadAll(ctx, schema.UsersCollection)
	if errors.Is(err, remote.ErrCollectionNotFound) {
		return nil, fmt.Errorf("%w: no users registered", common.ErrorUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read users: %w", common.ErrRemoteUnavailable, err)
	}

	for _, row := range t.Rows {
		u := schema.Users.Decode(t.Header, row)
		if !common.SameName(u.Username, username) {
			continue
		}
		if !CheckPassword(u.PasswordHash, password) {
			break
		}
		if !u.Role.Valid() {
			a.log.Warn(ctx, "user has unknown role", "user", u.Username, "role", u.Role)
			return nil, fmt.Errorf("%w: role %q", common.ErrorUnauthorized, u.Role)
		}
		if IsLegacyHash(u.PasswordHash) {
			a.log.Warn(ctx, "user still has a legacy password hash", "user", u.Username)
		}
		id := models.NewIdentity(u)
		a.log.Info(ctx, "login", "user", id.Username, "role", id.Role)
		return &id, nil
	}

	a.log.Warn(ctx, "login rejected", "user", username)
	return nil, fmt.Errorf("%w: invalid username or password", common.ErrorUnauthorized)
}

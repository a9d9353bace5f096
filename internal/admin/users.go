package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/auth"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

type NewUser struct {
	Username    string
	Password    string
	DisplayName string
	Role        models.Role
}

// AddUser registers a user remotely and in the cache. Collaborators also get
// their document collection, so their first push finds it in place.
func (m *Manager) AddUser(ctx context.Context, nu NewUser) (*models.User, error) {
	nu.Username = strings.TrimSpace(nu.Username)
	nu.DisplayName = strings.TrimSpace(nu.DisplayName)
	nu.Role = models.ParseRole(string(nu.Role))
	switch {
	case nu.Username == "":
		return nil, fmt.Errorf("%w: username is required", common.ErrorValidation)
	case nu.Password == "":
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	case !nu.Role.Valid():
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, nu.Role)
	}

	exists, err := m.remoteHas(ctx, schema.UsersCollection, schema.ColUsername, nu.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("user %q: %w", nu.Username, common.ErrorAlreadyExists)
	}

	hash, err := auth.HashPassword(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrorInternal, err)
	}
	u := &models.User{
		Username:     nu.Username,
		PasswordHash: hash,
		DisplayName:  nu.DisplayName,
		Role:         nu.Role,
	}
	log := m.log.With("user", u.Username, "role", u.Role)

	header, err := remote.EnsureCollection(ctx, m.remote, schema.UsersCollection, schema.Users.Columns())
	if err == nil {
		err = m.remote.AppendRows(ctx, schema.UsersCollection, [][]string{schema.Users.Encode(*u, header)})
	}
	if err != nil {
		log.Error(ctx, "append user", "error", err)
		return nil, fmt.Errorf("%w: append user %s: %w", common.ErrRemoteWrite, u.Username, err)
	}

	if err := m.cache.Users(m.cache.DB()).Insert(ctx, u); err != nil {
		log.Warn(ctx, "user not cached until next pull", "error", err)
	}
	m.invalidate()

	if u.Role == models.RoleCollaborator {
		collection := remote.DocumentsCollection(m.docsPrefix, u.Username)
		if _, err := remote.EnsureCollection(ctx, m.remote, collection, schema.Documents.Columns()); err != nil {
			log.Error(ctx, "provision documents collection", "collection", collection, "error", err)
			return u, fmt.Errorf("%w: create %s: %w", common.ErrRemoteWrite, collection, err)
		}
	}

	log.Info(ctx, "user added")
	return u, nil
}

// EnsureDefaultAdmin adds an Admin named username unless a user by that name
// already exists. It reports whether the user was created.
func (m *Manager) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := m.AddUser(ctx, NewUser{
		Username:    username,
		Password:    password,
		DisplayName: "Default administrator",
		Role:        models.RoleAdmin,
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

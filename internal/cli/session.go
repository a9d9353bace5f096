package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docsync/internal/auth"
	"github.com/dmitrijs2005/docsync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials, checks them against the remote users
// collection and, when a session secret is configured, saves a signed
// session token for later runs.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.auth.Login(ctx, username, string(password))
	if err != nil {
		return err
	}
	a.identity = id
	a.exitWarned = false
	a.printf("Signed in as %s (%s)\n", id.DisplayName, id.Role)

	if a.cfg.SessionSecret == "" {
		return nil
	}
	token, err := auth.IssueToken(*id, []byte(a.cfg.SessionSecret), a.cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("issue session token: %w", err)
	}
	if err := auth.SaveToken(a.cfg.SessionFile, token); err != nil {
		a.log.Warn(ctx, "session not saved", "error", err)
	}
	return nil
}

// resume restores the identity from a saved session token. It reports false
// when there is no usable session.
func (a *App) resume(ctx context.Context) bool {
	if a.cfg.SessionSecret == "" {
		return false
	}
	token, err := auth.LoadToken(a.cfg.SessionFile)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			a.log.Warn(ctx, "session unreadable", "error", err)
		}
		return false
	}
	id, err := auth.ParseToken(token, []byte(a.cfg.SessionSecret))
	if err != nil {
		a.log.Info(ctx, "session discarded", "reason", err)
		return false
	}
	a.identity = id
	return true
}

// Logout forgets the identity and the saved session. Unsaved documents are
// lost with the cache, so the caller warns first.
func (a *App) Logout(ctx context.Context) error {
	a.identity = nil
	return auth.RemoveToken(a.cfg.SessionFile)
}

// ensureLogin resumes a saved session or prompts until a login succeeds.
// Remote failures end the attempt.
func (a *App) ensureLogin(ctx context.Context) error {
	if a.resume(ctx) {
		a.printf("Welcome back, %s\n", a.identity.DisplayName)
		return nil
	}
	for attempt := 0; attempt < 3; attempt++ {
		err := a.Login(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrorUnauthorized) {
			return err
		}
		a.printf("Login failed: %v\n", err)
	}
	return common.ErrorUnauthorized
}

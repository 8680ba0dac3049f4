package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/timeline/internal/client/api"
)

// getSimpleText, getPassword and getConfirmation are indirections used to
// facilitate testing.
var (
	getSimpleText   = GetSimpleText
	getPassword     = GetPassword
	getMultiline    = GetMultiline
	getConfirmation = GetConfirmation
)

// Register prompts for the account fields and creates the account on the
// server. The role defaults to client.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	role, err := getSimpleText(a.reader, "Role: client or lawyer (default client)", a.out)
	if err != nil {
		return err
	}
	if role == "" {
		role = "client"
	}

	u, err := a.auth.Register(ctx, api.RegisterInput{Name: name, Email: email, Password: password, Role: strings.ToLower(role)})
	if err != nil {
		a.notify(ctx, err)
		return err
	}
	a.success("Registered %s, you can log in now", u.Email)
	return nil
}

// Login prompts for credentials. When the server is unreachable the saved
// session of the same account is accepted and the app works offline.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	sess, offline, err := a.auth.Login(ctx, email, password)
	if err != nil {
		a.notify(ctx, err)
		return err
	}

	a.setSession(sess)
	if offline {
		a.setMode(ModeOffline)
		a.success("Logged in offline as %s", sess.Name)
	} else {
		a.setMode(ModeOnline)
		a.success("Logged in as %s (%s)", sess.Name, sess.Role)
	}
	return nil
}

// Logout forgets the session and the local copy of the timeline.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		a.notify(ctx, err)
		return err
	}
	a.setSession(nil)
	a.success("Logged out")
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/timeline/internal/client/api"
	"github.com/dmitrijs2005/timeline/internal/client/localstore"
	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/cryptox"
	"github.com/dmitrijs2005/timeline/internal/logging"
)

// AuthService signs the user in online or, with a session saved by an
// earlier online login, offline.
type AuthService struct {
	client Client
	store  *localstore.Store
	hasher cryptox.PasswordHasher
	logger logging.Logger
}

func NewAuthService(c Client, store *localstore.Store, hasher cryptox.PasswordHasher, l logging.Logger) *AuthService {
	a := &AuthService{client: c, store: store, hasher: hasher, logger: l.With("module", "auth")}
	c.OnTokensRefreshed(a.saveTokens)
	return a
}

func (a *AuthService) saveTokens(access, refresh string) {
	ctx := context.Background()
	sess, err := a.store.LoadSession(ctx)
	if err != nil {
		return
	}
	sess.AccessToken, sess.RefreshToken = access, refresh
	if err := a.store.SaveSession(ctx, sess); err != nil {
		a.logger.Warn(ctx, "saving refreshed tokens failed", "error", err)
	}
}

func (a *AuthService) Register(ctx context.Context, in api.RegisterInput) (*api.User, error) {
	u, err := a.client.Register(ctx, in)
	if isUnavailable(err) {
		return nil, ErrOffline
	}
	return u, err
}

// Login authenticates against the server and remembers the session with a
// local password hash. When the server is unreachable the saved session is
// checked instead and offline is true.
func (a *AuthService) Login(ctx context.Context, email, password string) (sess *models.Session, offline bool, err error) {
	res, err := a.client.Login(ctx, email, password)
	if isUnavailable(err) {
		sess, err := a.offlineLogin(ctx, email, password)
		return sess, true, err
	}
	if err != nil {
		return nil, false, err
	}

	hash, err := a.hasher.Hash([]byte(password))
	if err != nil {
		return nil, false, fmt.Errorf("password hash error: %w", err)
	}

	prev, err := a.store.LoadSession(ctx)
	if err == nil && prev.UserID != res.User.ID {
		// Another account's timeline must not leak into this one.
		if err := a.store.Clear(ctx); err != nil {
			return nil, false, err
		}
	}

	sess = &models.Session{
		UserID:       res.User.ID,
		Name:         res.User.Name,
		Email:        res.User.Email,
		Role:         res.User.Role,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		PasswordHash: hash,
	}
	if err := a.store.SaveSession(ctx, sess); err != nil {
		return nil, false, fmt.Errorf("offline data saving error: %w", err)
	}

	a.logger.Info(ctx, "logged in", "user_id", sess.UserID)
	return sess, false, nil
}

func (a *AuthService) offlineLogin(ctx context.Context, email, password string) (*models.Session, error) {
	sess, err := a.store.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrLocalDataNotAvailable
		}
		return nil, err
	}

	if !strings.EqualFold(strings.TrimSpace(email), sess.Email) {
		return nil, common.Unauthorized("no match")
	}
	ok, err := cryptox.Verify(sess.PasswordHash, []byte(password))
	if err != nil || !ok {
		return nil, common.Unauthorized("no match")
	}

	a.client.SetTokens(sess.AccessToken, sess.RefreshToken)
	a.logger.Info(ctx, "logged in offline", "user_id", sess.UserID)
	return sess, nil
}

// RestoreSession resumes the saved session, if any.
func (a *AuthService) RestoreSession(ctx context.Context) (*models.Session, error) {
	sess, err := a.store.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	a.client.SetTokens(sess.AccessToken, sess.RefreshToken)
	return sess, nil
}

// Logout forgets the session and every locally stored record.
func (a *AuthService) Logout(ctx context.Context) error {
	a.client.SetTokens("", "")
	return a.store.Clear(ctx)
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Package services holds the terminal client's use cases. They talk to the
// server through Client when it is reachable and keep a local copy of the
// caller's timeline in localstore for offline use.
package services

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/timeline/internal/client/api"
	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
)

var (
	// ErrOffline reports an operation that needs the server while it is
	// unreachable.
	ErrOffline = errors.New("server is unreachable; try again when online")

	// ErrLocalDataNotAvailable reports an offline login without a saved
	// session.
	ErrLocalDataNotAvailable = errors.New("no saved session; log in once while online")

	ErrNotLoggedIn = common.Unauthorized("not logged in")
)

// Client is the subset of api.Client the services use.
type Client interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, in api.RegisterInput) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	SetTokens(access, refresh string)
	OnTokensRefreshed(fn func(access, refresh string))

	ListEvents(ctx context.Context, userID string) ([]*models.Event, error)
	CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	ListMedia(ctx context.Context, eventID string) ([]*models.Media, error)
	GetMedia(ctx context.Context, id string) (*models.Media, error)
	UploadMedia(ctx context.Context, eventID string, mediaType models.MediaType, filename, contentType string, body io.Reader) (*models.Media, error)
	AddMediaLink(ctx context.Context, in api.LinkInput) (*models.Media, error)
	DeleteMedia(ctx context.Context, ref models.MediaRef) error

	Export(ctx context.Context, req api.ExportRequest) (*api.ExportFile, error)
}

func isUnavailable(err error) bool {
	return errors.Is(err, api.ErrUnavailable)
}

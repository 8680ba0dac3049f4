package services

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/timeline/internal/client/api"
	"github.com/dmitrijs2005/timeline/internal/client/localstore"
	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/stretchr/testify/require"
)

// fakeClient implements Client with overridable behaviour. Unset functions
// report the server as unreachable.
type fakeClient struct {
	mu sync.Mutex

	access, refresh string
	onRefresh       func(access, refresh string)

	pingFn         func(ctx context.Context) error
	registerFn     func(ctx context.Context, in api.RegisterInput) (*api.User, error)
	loginFn        func(ctx context.Context, email, password string) (*api.LoginResult, error)
	listEventsFn   func(ctx context.Context, userID string) ([]*models.Event, error)
	createEventFn  func(ctx context.Context, in models.EventInput) (*models.Event, error)
	getEventFn     func(ctx context.Context, id string) (*models.Event, error)
	updateEventFn  func(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error)
	deleteEventFn  func(ctx context.Context, id string) error
	listMediaFn    func(ctx context.Context, eventID string) ([]*models.Media, error)
	getMediaFn     func(ctx context.Context, id string) (*models.Media, error)
	uploadMediaFn  func(ctx context.Context, eventID string, t models.MediaType, filename, contentType string, body io.Reader) (*models.Media, error)
	addMediaLinkFn func(ctx context.Context, in api.LinkInput) (*models.Media, error)
	deleteMediaFn  func(ctx context.Context, ref models.MediaRef) error
	exportFn       func(ctx context.Context, req api.ExportRequest) (*api.ExportFile, error)
}

func (f *fakeClient) SetTokens(access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = access, refresh
}

func (f *fakeClient) tokens() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, f.refresh
}

func (f *fakeClient) OnTokensRefreshed(fn func(access, refresh string)) { f.onRefresh = fn }

func (f *fakeClient) Ping(ctx context.Context) error {
	if f.pingFn == nil {
		return api.ErrUnavailable
	}
	return f.pingFn(ctx)
}

func (f *fakeClient) Register(ctx context.Context, in api.RegisterInput) (*api.User, error) {
	if f.registerFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.registerFn(ctx, in)
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*api.LoginResult, error) {
	if f.loginFn == nil {
		return nil, api.ErrUnavailable
	}
	res, err := f.loginFn(ctx, email, password)
	if err == nil {
		f.SetTokens(res.AccessToken, res.RefreshToken)
	}
	return res, err
}

func (f *fakeClient) ListEvents(ctx context.Context, userID string) ([]*models.Event, error) {
	if f.listEventsFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.listEventsFn(ctx, userID)
}

func (f *fakeClient) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	if f.createEventFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.createEventFn(ctx, in)
}

func (f *fakeClient) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if f.getEventFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.getEventFn(ctx, id)
}

func (f *fakeClient) UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error) {
	if f.updateEventFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.updateEventFn(ctx, id, upd)
}

func (f *fakeClient) DeleteEvent(ctx context.Context, id string) error {
	if f.deleteEventFn == nil {
		return api.ErrUnavailable
	}
	return f.deleteEventFn(ctx, id)
}

func (f *fakeClient) ListMedia(ctx context.Context, eventID string) ([]*models.Media, error) {
	if f.listMediaFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.listMediaFn(ctx, eventID)
}

func (f *fakeClient) GetMedia(ctx context.Context, id string) (*models.Media, error) {
	if f.getMediaFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.getMediaFn(ctx, id)
}

func (f *fakeClient) UploadMedia(ctx context.Context, eventID string, t models.MediaType, filename, contentType string, body io.Reader) (*models.Media, error) {
	if f.uploadMediaFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.uploadMediaFn(ctx, eventID, t, filename, contentType, body)
}

func (f *fakeClient) AddMediaLink(ctx context.Context, in api.LinkInput) (*models.Media, error) {
	if f.addMediaLinkFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.addMediaLinkFn(ctx, in)
}

func (f *fakeClient) DeleteMedia(ctx context.Context, ref models.MediaRef) error {
	if f.deleteMediaFn == nil {
		return api.ErrUnavailable
	}
	return f.deleteMediaFn(ctx, ref)
}

func (f *fakeClient) Export(ctx context.Context, req api.ExportRequest) (*api.ExportFile, error) {
	if f.exportFn == nil {
		return nil, api.ErrUnavailable
	}
	return f.exportFn(ctx, req)
}

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(context.Background(), filepath.Join(t.TempDir(), "timeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTimeline(t *testing.T, online bool) (*TimelineService, *fakeClient, *localstore.Store) {
	t.Helper()
	fc := &fakeClient{}
	store := openStore(t)
	svc := NewTimelineService(fc, store, logging.Nop(), t.TempDir())
	svc.SetOnline(online)
	return svc, fc, store
}

func eventInput(s string) models.EventInput {
	return models.EventInput{Title: "title " + s, Description: "desc " + s, Date: s}
}

func notFound(string) error { return common.NotFound("not found") }

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/dmitrijs2005/timeline/internal/server/auth"
	"github.com/dmitrijs2005/timeline/internal/server/config"
	"github.com/dmitrijs2005/timeline/internal/server/export"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/server/services"
)

var errNotMocked = errors.New("not mocked")

type mockUsers struct {
	RegisterFn func(ctx context.Context, in services.RegisterInput) (*models.User, error)
	LoginFn    func(ctx context.Context, email, password string) (*services.LoginResult, error)
	RefreshFn  func(ctx context.Context, token string) (*services.TokenPair, error)
	IdentityFn func(ctx context.Context, userID string) (*models.Identity, error)
}

func (m *mockUsers) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if m.RegisterFn == nil {
		return nil, errNotMocked
	}
	return m.RegisterFn(ctx, in)
}

func (m *mockUsers) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if m.LoginFn == nil {
		return nil, errNotMocked
	}
	return m.LoginFn(ctx, email, password)
}

func (m *mockUsers) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	if m.RefreshFn == nil {
		return nil, errNotMocked
	}
	return m.RefreshFn(ctx, token)
}

func (m *mockUsers) Identity(ctx context.Context, userID string) (*models.Identity, error) {
	if m.IdentityFn == nil {
		return nil, errNotMocked
	}
	return m.IdentityFn(ctx, userID)
}

type mockEvents struct {
	ListFn   func(ctx context.Context, caller *models.Identity, userID string) ([]*models.Event, error)
	CreateFn func(ctx context.Context, caller *models.Identity, in services.EventInput) (*models.Event, error)
	GetFn    func(ctx context.Context, caller *models.Identity, id string) (*models.Event, error)
	UpdateFn func(ctx context.Context, caller *models.Identity, id string, in services.EventUpdate) (*models.Event, error)
	DeleteFn func(ctx context.Context, caller *models.Identity, id string) error
}

func (m *mockEvents) List(ctx context.Context, caller *models.Identity, userID string) ([]*models.Event, error) {
	if m.ListFn == nil {
		return nil, errNotMocked
	}
	return m.ListFn(ctx, caller, userID)
}

func (m *mockEvents) Create(ctx context.Context, caller *models.Identity, in services.EventInput) (*models.Event, error) {
	if m.CreateFn == nil {
		return nil, errNotMocked
	}
	return m.CreateFn(ctx, caller, in)
}

func (m *mockEvents) Get(ctx context.Context, caller *models.Identity, id string) (*models.Event, error) {
	if m.GetFn == nil {
		return nil, errNotMocked
	}
	return m.GetFn(ctx, caller, id)
}

func (m *mockEvents) Update(ctx context.Context, caller *models.Identity, id string, in services.EventUpdate) (*models.Event, error) {
	if m.UpdateFn == nil {
		return nil, errNotMocked
	}
	return m.UpdateFn(ctx, caller, id, in)
}

func (m *mockEvents) Delete(ctx context.Context, caller *models.Identity, id string) error {
	if m.DeleteFn == nil {
		return errNotMocked
	}
	return m.DeleteFn(ctx, caller, id)
}

type mockMedia struct {
	ListFn    func(ctx context.Context, caller *models.Identity, eventID string) ([]*models.Media, error)
	GetFn     func(ctx context.Context, caller *models.Identity, id string) (*models.Media, error)
	UploadFn  func(ctx context.Context, caller *models.Identity, in services.UploadInput) (*models.Media, error)
	AddLinkFn func(ctx context.Context, caller *models.Identity, in services.LinkInput) (*models.Media, error)
	DeleteFn  func(ctx context.Context, caller *models.Identity, id string) error
}

func (m *mockMedia) ListByEvent(ctx context.Context, caller *models.Identity, eventID string) ([]*models.Media, error) {
	if m.ListFn == nil {
		return nil, errNotMocked
	}
	return m.ListFn(ctx, caller, eventID)
}

func (m *mockMedia) Get(ctx context.Context, caller *models.Identity, id string) (*models.Media, error) {
	if m.GetFn == nil {
		return nil, errNotMocked
	}
	return m.GetFn(ctx, caller, id)
}

func (m *mockMedia) Upload(ctx context.Context, caller *models.Identity, in services.UploadInput) (*models.Media, error) {
	if m.UploadFn == nil {
		return nil, errNotMocked
	}
	return m.UploadFn(ctx, caller, in)
}

func (m *mockMedia) AddLink(ctx context.Context, caller *models.Identity, in services.LinkInput) (*models.Media, error) {
	if m.AddLinkFn == nil {
		return nil, errNotMocked
	}
	return m.AddLinkFn(ctx, caller, in)
}

func (m *mockMedia) Delete(ctx context.Context, caller *models.Identity, id string) error {
	if m.DeleteFn == nil {
		return errNotMocked
	}
	return m.DeleteFn(ctx, caller, id)
}

type mockExport struct {
	ExportFn func(ctx context.Context, caller *models.Identity, in services.ExportSettings) (*export.Document, error)
}

func (m *mockExport) Export(ctx context.Context, caller *models.Identity, in services.ExportSettings) (*export.Document, error) {
	if m.ExportFn == nil {
		return nil, errNotMocked
	}
	return m.ExportFn(ctx, caller, in)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

const testSecret = "test-secret"

var (
	alice  = &models.Identity{ID: "11111111-1111-1111-1111-111111111111", Name: "Alice", Email: "alice@example.com", Role: models.RoleClient}
	lawyer = &models.Identity{ID: "33333333-3333-3333-3333-333333333333", Name: "Larry", Email: "larry@law.example", Role: models.RoleLawyer}
)

type testEnv struct {
	users  *mockUsers
	events *mockEvents
	media  *mockMedia
	export *mockExport
	cfg    *config.Config
}

func newTestEnv() *testEnv {
	return &testEnv{
		users:  &mockUsers{},
		events: &mockEvents{},
		media:  &mockMedia{},
		export: &mockExport{},
		cfg: &config.Config{
			EndpointAddrHTTP:            "127.0.0.1:0",
			SecretKey:                   testSecret,
			AccessTokenValidityDuration: time.Minute,
			Environment:                 config.EnvDevelopment,
			MaxUploadSize:               1024,
		},
	}
}

func (e *testEnv) server() *Server {
	return NewHTTPServer(e.cfg, logging.Nop(), Services{
		Users:  e.users,
		Events: e.events,
		Media:  e.media,
		Export: e.export,
		DB:     pingerFunc(func(context.Context) error { return nil }),
	})
}

func (e *testEnv) handler() http.Handler {
	return e.server().Routes()
}

func tokenFor(t *testing.T, id *models.Identity) string {
	t.Helper()
	tok, err := auth.GenerateToken(id, []byte(testSecret), time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	return tok
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

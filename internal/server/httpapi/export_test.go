package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/server/config"
	"github.com/dmitrijs2005/timeline/internal/server/export"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_StreamsDocument(t *testing.T) {
	env := newTestEnv()
	var got services.ExportSettings
	env.export.ExportFn = func(ctx context.Context, caller *models.Identity, in services.ExportSettings) (*export.Document, error) {
		got = in
		return &export.Document{Filename: "our-story-pdf-2024-07-04.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
	}

	rec := do(env.handler(), authed(t, alice, http.MethodPost, "/api/export", `{"format":"pdf","title":"Our Story","includeImages":true}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ExportSettings{Title: "Our Story", Format: "pdf", IncludeImages: true}, got)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="our-story-pdf-2024-07-04.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestExport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		err        error
		wantStatus int
		wantBody   errorResponse
	}{
		{name: "no events", err: common.NotFound("no events to export"), wantStatus: http.StatusNotFound, wantBody: errorResponse{Error: "no events to export"}},
		{name: "bad format", err: common.Validation(`format must be "pdf" or "docx"`), wantStatus: http.StatusBadRequest, wantBody: errorResponse{Error: `format must be "pdf" or "docx"`}},
		{
			name:       "fetch failure in development",
			env:        config.EnvDevelopment,
			err:        common.Internal(errors.New("connection reset"), "error fetching events"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   errorResponse{Error: "error fetching events", Detail: "error fetching events: connection reset"},
		},
		{
			name:       "fetch failure in production",
			env:        config.EnvProduction,
			err:        common.Internal(errors.New("connection reset"), "error fetching events"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   errorResponse{Error: "error fetching events"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			if tt.env != "" {
				env.cfg.Environment = tt.env
			}
			env.export.ExportFn = func(ctx context.Context, caller *models.Identity, in services.ExportSettings) (*export.Document, error) {
				return nil, tt.err
			}

			rec := do(env.handler(), authed(t, alice, http.MethodPost, "/api/export", `{"format":"pdf"}`))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestExport_RequiresAuth(t *testing.T) {
	env := newTestEnv()
	rec := do(env.handler(), httptest.NewRequest(http.MethodPost, "/api/export", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv()
	srv := env.server()

	rec := do(srv.Routes(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	srv.svc.DB = pingerFunc(func(context.Context) error { return errors.New("down") })
	rec = do(srv.Routes(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoversFromPanics(t *testing.T) {
	env := newTestEnv()
	env.events.ListFn = func(ctx context.Context, caller *models.Identity, userID string) ([]*models.Event, error) {
		panic("boom")
	}

	rec := do(env.handler(), authed(t, alice, http.MethodGet, "/api/events", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

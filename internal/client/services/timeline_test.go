package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/timeline/internal/client/api"
	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteEvent(id, title, date string) *models.Event {
	d, _ := time.Parse(common.DateLayout, date)
	return &models.Event{ID: id, UserID: "u1", Title: title, Description: "d", Date: d}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCreateEvent_Validation(t *testing.T) {
	svc, _, _ := newTimeline(t, false)
	ctx := context.Background()

	cases := []models.EventInput{
		{Title: " ", Description: "d", Date: "2024-01-01"},
		{Title: "t", Description: "", Date: "2024-01-01"},
		{Title: "t", Description: "d", Date: "01/02/2024"},
	}
	for _, in := range cases {
		_, err := svc.CreateEvent(ctx, in)
		assert.Equal(t, common.KindValidation, common.KindOf(err), "%+v", in)
	}
}

func TestCreateEvent_OnlineMirrors(t *testing.T) {
	svc, fc, store := newTimeline(t, true)
	ctx := context.Background()

	fc.createEventFn = func(_ context.Context, in models.EventInput) (*models.Event, error) {
		assert.Equal(t, "2024-02-03", in.Date)
		assert.Equal(t, "title", in.Title)
		return remoteEvent("srv-1", in.Title, in.Date), nil
	}

	e, err := svc.CreateEvent(ctx, models.EventInput{Title: " title ", Description: "d", Date: "2024-02-03T22:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", e.ID)

	local, err := store.Events().Get(ctx, "srv-1")
	require.NoError(t, err)
	assert.False(t, local.Pending)
}

func TestCreateEvent_FallsBackOffline(t *testing.T) {
	svc, _, store := newTimeline(t, true)
	ctx := context.Background()

	e, err := svc.CreateEvent(ctx, eventInput("2023-05-06"))
	require.NoError(t, err)
	assert.True(t, e.Pending)
	assert.False(t, svc.Online())

	pending, err := store.Events().ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCreateEvent_ServerRejection(t *testing.T) {
	svc, fc, store := newTimeline(t, true)
	fc.createEventFn = func(context.Context, models.EventInput) (*models.Event, error) {
		return nil, common.Validation("title is required")
	}

	_, err := svc.CreateEvent(context.Background(), eventInput("2023-05-06"))
	assert.Equal(t, "title is required", common.MessageOf(err))

	all, err := store.Events().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListEvents_MirrorsAndPrunes(t *testing.T) {
	svc, fc, store := newTimeline(t, true)
	ctx := context.Background()

	require.NoError(t, store.Events().Upsert(ctx, remoteEvent("gone", "deleted elsewhere", "2020-01-01")))
	_, err := store.Events().Create(ctx, &models.Event{Title: "offline", Description: "d", Date: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), Pending: true})
	require.NoError(t, err)

	fc.listEventsFn = func(_ context.Context, userID string) ([]*models.Event, error) {
		assert.Empty(t, userID)
		return []*models.Event{remoteEvent("b", "second", "2022-01-01"), remoteEvent("a", "first", "2021-01-01")}, nil
	}

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "offline", events[0].Title)
	assert.Equal(t, "first", events[1].Title)
	assert.Equal(t, "second", events[2].Title)
}

func TestListEvents_OfflineUsesLocal(t *testing.T) {
	svc, fc, store := newTimeline(t, false)
	ctx := context.Background()
	fc.listEventsFn = func(context.Context, string) ([]*models.Event, error) {
		t.Fatal("server must not be called offline")
		return nil, nil
	}
	require.NoError(t, store.Events().Upsert(ctx, remoteEvent("a", "first", "2021-01-01")))

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestClientEvents(t *testing.T) {
	svc, fc, store := newTimeline(t, true)
	ctx := context.Background()
	fc.listEventsFn = func(_ context.Context, userID string) ([]*models.Event, error) {
		assert.Equal(t, "client-1", userID)
		return []*models.Event{remoteEvent("x", "theirs", "2021-01-01")}, nil
	}

	events, err := svc.ClientEvents(ctx, "client-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	local, err := store.Events().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, local)

	_, err = svc.ClientEvents(ctx, "")
	assert.Equal(t, common.KindValidation, common.KindOf(err))
}

func TestGetEvent_RefreshesMedia(t *testing.T) {
	svc, fc, store := newTimeline(t, true)
	ctx := context.Background()

	require.NoError(t, store.Events().Upsert(ctx, remoteEvent("e1", "old", "2021-01-01")))
	stale, err := store.Media().UpsertRemote(ctx, &models.Media{RemoteID: "stale", EventID: "e1", Type: models.MediaImage, Filename: "old.png"})
	require.NoError(t, err)
	_, err = store.Media().Create(ctx, &models.Media{EventID: "e1", Type: models.MediaDocument, Filename: "pending.pdf", LocalPath: "/tmp/pending.pdf"})
	require.NoError(t, err)
	_, err = store.Comments().Create(ctx, &models.Comment{EventID: "e1", Content: "ask lawyer", IsQuestion: true})
	require.NoError(t, err)

	fc.getEventFn = func(context.Context, string) (*models.Event, error) { return remoteEvent("e1", "new", "2021-01-01"), nil }
	fc.listMediaFn = func(context.Context, string) ([]*models.Media, error) {
		return []*models.Media{{RemoteID: "m1", EventID: "e1", Type: models.MediaImage, Filename: "new.png"}}, nil
	}

	e, comments, err := svc.GetEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "new", e.Title)
	require.Len(t, e.Media, 2)
	assert.Equal(t, "pending.pdf", e.Media[0].Filename)
	assert.Equal(t, "new.png", e.Media[1].Filename)
	require.Len(t, comments, 1)
	assert.True(t, comments[0].IsQuestion)

	_, err = store.Media().Get(ctx, stale.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetEvent_RemovedOnServer(t *testing.T) {
	svc, fc, store := newTimeline(t, true)
	ctx := context.Background()
	require.NoError(t, store.Events().Upsert(ctx, remoteEvent("e1", "t", "2021-01-01")))
	fc.getEventFn = func(_ context.Context, id string) (*models.Event, error) { return nil, notFound(id) }

	_, _, err := svc.GetEvent(ctx, "e1")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	_, err = store.Events().Get(ctx, "e1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetEvent_ForeignEvent(t *testing.T) {
	svc, fc, _ := newTimeline(t, true)
	fc.getEventFn = func(context.Context, string) (*models.Event, error) { return remoteEvent("x", "client event", "2021-01-01"), nil }
	fc.listMediaFn = func(context.Context, string) ([]*models.Media, error) { return []*models.Media{}, nil }

	e, comments, err := svc.GetEvent(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "client event", e.Title)
	assert.Empty(t, comments)
}

func TestUpdateEvent(t *testing.T) {
	svc, fc, store := newTimeline(t, false)
	ctx := context.Background()

	pending, err := svc.CreateEvent(ctx, eventInput("2020-01-01"))
	require.NoError(t, err)

	title := "renamed"
	updated, err := svc.UpdateEvent(ctx, pending.ID, models.EventUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	blank := "  "
	_, err = svc.UpdateEvent(ctx, pending.ID, models.EventUpdate{Description: &blank})
	assert.Equal(t, common.KindValidation, common.KindOf(err))

	require.NoError(t, store.Events().Upsert(ctx, remoteEvent("srv", "synced", "2020-01-01")))
	_, err = svc.UpdateEvent(ctx, "srv", models.EventUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrOffline)

	svc.SetOnline(true)
	fc.updateEventFn = func(_ context.Context, id string, upd models.EventUpdate) (*models.Event, error) {
		return remoteEvent(id, *upd.Title, "2020-01-01"), nil
	}
	updated, err = svc.UpdateEvent(ctx, "srv", models.EventUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	local, err := store.Events().Get(ctx, "srv")
	require.NoError(t, err)
	assert.Equal(t, "renamed", local.Title)
}

func TestDeleteEvent(t *testing.T) {
	svc, fc, store := newTimeline(t, false)
	ctx := context.Background()

	pending, err := svc.CreateEvent(ctx, eventInput("2020-01-01"))
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, pending.ID, "note", false)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteEvent(ctx, pending.ID))

	comments, err := store.Comments().ListByEvent(ctx, pending.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	require.NoError(t, store.Events().Upsert(ctx, remoteEvent("srv", "synced", "2020-01-01")))
	assert.ErrorIs(t, svc.DeleteEvent(ctx, "srv"), ErrOffline)

	svc.SetOnline(true)
	var deleted string
	fc.deleteEventFn = func(_ context.Context, id string) error { deleted = id; return nil }
	require.NoError(t, svc.DeleteEvent(ctx, "srv"))
	assert.Equal(t, "srv", deleted)

	_, err = store.Events().Get(ctx, "srv")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAttachFile_PendingWhenOffline(t *testing.T) {
	svc, _, _ := newTimeline(t, false)
	ctx := context.Background()
	e, err := svc.CreateEvent(ctx, eventInput("2020-01-01"))
	require.NoError(t, err)

	path := writeFile(t, "photo.png", "\x89PNG\r\n\x1a\n")
	m, err := svc.AttachFile(ctx, e.ID, path, "")
	require.NoError(t, err)
	assert.Equal(t, models.MediaImage, m.Type)
	assert.Equal(t, "photo.png", m.Filename)
	assert.Equal(t, path, m.LocalPath)
	assert.IsType(t, models.Pending{}, m.Ref())

	_, err = svc.AttachFile(ctx, e.ID, filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.Equal(t, common.KindValidation, common.KindOf(err))

	_, err = svc.AttachFile(ctx, e.ID, path, "video")
	assert.Equal(t, common.KindValidation, common.KindOf(err))
}

func TestAttachFile_UploadsWhenOnline(t *testing.T) {
	svc, fc, store := newTimeline(t, true)
	ctx := context.Background()
	require.NoError(t, store.Events().Upsert(ctx, remoteEvent("e1", "t", "2020-01-01")))

	fc.uploadMediaFn = func(_ context.Context, eventID string, mt models.MediaType, filename, ct string, body io.Reader) (*models.Media, error) {
		data, _ := io.ReadAll(body)
		assert.Equal(t, "letter body", string(data))
		assert.Equal(t, models.MediaDocument, mt)
		return &models.Media{RemoteID: "m1", EventID: eventID, Type: mt, Filename: filename, ContentType: ct}, nil
	}

	m, err := svc.AttachFile(ctx, "e1", writeFile(t, "letter.txt", "letter body"), "")
	require.NoError(t, err)
	assert.Equal(t, models.Persisted{ID: "m1"}, m.Ref())
	assert.NotEmpty(t, m.ID)
}

func TestAttachLink(t *testing.T) {
	svc, fc, store := newTimeline(t, true)
	ctx := context.Background()
	require.NoError(t, store.Events().Upsert(ctx, remoteEvent("e1", "t", "2020-01-01")))

	_, err := svc.AttachLink(ctx, "e1", "", "a.png", "https://x")
	assert.Equal(t, common.KindValidation, common.KindOf(err))

	fc.addMediaLinkFn = func(_ context.Context, in api.LinkInput) (*models.Media, error) {
		return &models.Media{RemoteID: "m2", EventID: in.EventID, Type: models.MediaType(in.Type), Filename: in.Filename, URL: in.URL}, nil
	}
	m, err := svc.AttachLink(ctx, "e1", models.MediaImage, "a.png", "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "m2", m.RemoteID)
}

func TestDetachMedia(t *testing.T) {
	svc, fc, store := newTimeline(t, false)
	ctx := context.Background()

	pending, err := store.Media().Create(ctx, &models.Media{EventID: "e1", Type: models.MediaImage, Filename: "p.png"})
	require.NoError(t, err)
	require.NoError(t, svc.DetachMedia(ctx, pending.ID))

	uploaded, err := store.Media().UpsertRemote(ctx, &models.Media{RemoteID: "m1", EventID: "e1", Type: models.MediaImage, Filename: "u.png"})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DetachMedia(ctx, uploaded.ID), ErrOffline)

	svc.SetOnline(true)
	var got models.MediaRef
	fc.deleteMediaFn = func(_ context.Context, ref models.MediaRef) error { got = ref; return nil }
	require.NoError(t, svc.DetachMedia(ctx, uploaded.ID))
	assert.Equal(t, models.Persisted{ID: "m1"}, got)

	_, err = store.Media().Get(ctx, uploaded.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestComments(t *testing.T) {
	svc, _, _ := newTimeline(t, false)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, "missing", "hi", false)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	e, err := svc.CreateEvent(ctx, eventInput("2020-01-01"))
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, e.ID, "  ", false)
	assert.Equal(t, common.KindValidation, common.KindOf(err))

	c, err := svc.AddComment(ctx, e.ID, "Why this date?", true)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteComment(ctx, c.ID))
}

func TestExport_WritesFile(t *testing.T) {
	svc, fc, _ := newTimeline(t, false)
	ctx := context.Background()

	_, err := svc.Export(ctx, api.ExportRequest{Format: "pdf"})
	assert.ErrorIs(t, err, ErrOffline)

	svc.SetOnline(true)
	fc.exportFn = func(context.Context, api.ExportRequest) (*api.ExportFile, error) {
		return &api.ExportFile{Filename: "story-pdf-2024-01-01.pdf", Data: []byte("%PDF-")}, nil
	}

	first, err := svc.Export(ctx, api.ExportRequest{Format: "pdf"})
	require.NoError(t, err)
	second, err := svc.Export(ctx, api.ExportRequest{Format: "pdf"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data))
}

func TestExport_NoEvents(t *testing.T) {
	svc, fc, _ := newTimeline(t, true)
	fc.exportFn = func(context.Context, api.ExportRequest) (*api.ExportFile, error) {
		return nil, common.NotFound("no events to export")
	}
	_, err := svc.Export(context.Background(), api.ExportRequest{Format: "docx"})
	assert.Equal(t, "no events to export", common.MessageOf(err))
}

func TestDownload(t *testing.T) {
	blob := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "file-bytes")
	}))
	defer blob.Close()

	svc, fc, store := newTimeline(t, true)
	ctx := context.Background()

	pending, err := store.Media().Create(ctx, &models.Media{EventID: "e1", Type: models.MediaImage, Filename: "p.png"})
	require.NoError(t, err)
	_, err = svc.Download(ctx, pending.ID)
	assert.Equal(t, common.KindValidation, common.KindOf(err))

	m, err := store.Media().UpsertRemote(ctx, &models.Media{RemoteID: "m1", EventID: "e1", Type: models.MediaImage, Filename: "photo.png"})
	require.NoError(t, err)
	fc.getMediaFn = func(_ context.Context, id string) (*models.Media, error) {
		assert.Equal(t, "m1", id)
		return &models.Media{RemoteID: id, URL: blob.URL + "/signed"}, nil
	}

	path, err := svc.Download(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file-bytes", string(data))
}

func TestSync_PushesPendingEventsAndMedia(t *testing.T) {
	svc, fc, store := newTimeline(t, false)
	ctx := context.Background()

	e, err := svc.CreateEvent(ctx, eventInput("2020-01-01"))
	require.NoError(t, err)
	path := writeFile(t, "note.txt", "hello")
	_, err = svc.AttachFile(ctx, e.ID, path, models.MediaDocument)
	require.NoError(t, err)
	_, err = svc.AttachLink(ctx, e.ID, models.MediaImage, "pic.jpg", "https://example.com/pic.jpg")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, e.ID, "keep me", false)
	require.NoError(t, err)

	_, err = svc.Sync(ctx)
	assert.ErrorIs(t, err, ErrOffline)

	svc.SetOnline(true)
	fc.createEventFn = func(_ context.Context, in models.EventInput) (*models.Event, error) {
		return remoteEvent("srv-1", in.Title, in.Date), nil
	}
	fc.uploadMediaFn = func(_ context.Context, eventID string, mt models.MediaType, filename, ct string, body io.Reader) (*models.Media, error) {
		assert.Equal(t, "srv-1", eventID)
		return &models.Media{RemoteID: "m-file", EventID: eventID, Type: mt, Filename: filename}, nil
	}
	fc.addMediaLinkFn = func(_ context.Context, in api.LinkInput) (*models.Media, error) {
		assert.Equal(t, "srv-1", in.EventID)
		return &models.Media{RemoteID: "m-link", EventID: in.EventID, URL: in.URL}, nil
	}

	report, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Events: 1, Media: 2}, report)

	got, comments, err := svc.assemble(ctx, "srv-1")
	require.NoError(t, err)
	assert.False(t, got.Pending)
	require.Len(t, got.Media, 2)
	for _, m := range got.Media {
		assert.IsType(t, models.Persisted{}, m.Ref())
	}
	assert.Len(t, comments, 1)

	pending, err := store.Media().ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSync_CollectsFailures(t *testing.T) {
	svc, fc, store := newTimeline(t, false)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, eventInput("2020-01-01"))
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, eventInput("2021-01-01"))
	require.NoError(t, err)

	svc.SetOnline(true)
	fc.createEventFn = func(_ context.Context, in models.EventInput) (*models.Event, error) {
		if in.Date == "2020-01-01" {
			return nil, common.Validation("bad event")
		}
		return remoteEvent("srv-2", in.Title, in.Date), nil
	}

	report, err := svc.Sync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad event")
	assert.Equal(t, 1, report.Events)

	pending, err := store.Events().ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSync_StopsWhenServerDrops(t *testing.T) {
	svc, _, _ := newTimeline(t, false)
	ctx := context.Background()
	_, err := svc.CreateEvent(ctx, eventInput("2020-01-01"))
	require.NoError(t, err)

	svc.SetOnline(true)
	_, err = svc.Sync(ctx)
	assert.True(t, errors.Is(err, ErrOffline))
	assert.False(t, svc.Online())
}

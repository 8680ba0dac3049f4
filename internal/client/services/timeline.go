package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/timeline/internal/client/api"
	"github.com/dmitrijs2005/timeline/internal/client/localstore"
	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/filex"
	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/dmitrijs2005/timeline/internal/netx"
	"github.com/dmitrijs2005/timeline/internal/timex"
)

// TimelineService manages events, attachments and comments. While online
// server results are mirrored into the local store; while offline new events
// and attachments are kept locally as pending until Sync.
type TimelineService struct {
	client      Client
	store       *localstore.Store
	logger      logging.Logger
	downloadDir string
	httpClient  *http.Client

	online atomic.Bool
}

func NewTimelineService(c Client, store *localstore.Store, l logging.Logger, downloadDir string) *TimelineService {
	return &TimelineService{
		client:      c,
		store:       store,
		logger:      l.With("module", "timeline"),
		downloadDir: downloadDir,
		httpClient:  http.DefaultClient,
	}
}

func (s *TimelineService) SetOnline(v bool) { s.online.Store(v) }
func (s *TimelineService) Online() bool     { return s.online.Load() }

// remote classifies err from a server call, switching to offline mode on
// transport failures.
func (s *TimelineService) remote(err error) error {
	if isUnavailable(err) {
		s.SetOnline(false)
		return ErrOffline
	}
	return err
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", common.Validation("%s is required", field)
	}
	return v, nil
}

func validateInput(in models.EventInput) (models.EventInput, error) {
	var err error
	if in.Title, err = requireText("title", in.Title); err != nil {
		return in, err
	}
	if in.Description, err = requireText("description", in.Description); err != nil {
		return in, err
	}
	d, err := timex.ParseDate(in.Date)
	if err != nil {
		return in, common.Validation("invalid date %q: use YYYY-MM-DD", strings.TrimSpace(in.Date))
	}
	in.Date = d.Format(common.DateLayout)
	return in, nil
}

// ListEvents returns the caller's events by date. When online the local copy
// is refreshed from the server first; synced events the server no longer has
// are dropped.
func (s *TimelineService) ListEvents(ctx context.Context) ([]*models.Event, error) {
	if s.Online() {
		if err := s.mirrorEvents(ctx); err != nil {
			if !errors.Is(err, ErrOffline) {
				return nil, err
			}
			s.logger.Warn(ctx, "listing from local store", "error", err)
		}
	}
	return s.store.Events().List(ctx)
}

func (s *TimelineService) mirrorEvents(ctx context.Context) error {
	remote, err := s.client.ListEvents(ctx, "")
	if err != nil {
		return s.remote(err)
	}

	seen := make(map[string]struct{}, len(remote))
	for _, e := range remote {
		seen[e.ID] = struct{}{}
		if err := s.store.Events().Upsert(ctx, e); err != nil {
			return err
		}
	}

	local, err := s.store.Events().List(ctx)
	if err != nil {
		return err
	}
	for _, e := range local {
		if _, ok := seen[e.ID]; ok || e.Pending {
			continue
		}
		if err := s.store.Events().Delete(ctx, e.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}
	return nil
}

// ClientEvents lists the events of another user. Only lawyers may do this
// and the result is not stored locally.
func (s *TimelineService) ClientEvents(ctx context.Context, userID string) ([]*models.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.Validation("user id is required")
	}
	if !s.Online() {
		return nil, ErrOffline
	}
	events, err := s.client.ListEvents(ctx, userID)
	if err != nil {
		return nil, s.remote(err)
	}
	return events, nil
}

// GetEvent returns the event with its attachments and private comments.
func (s *TimelineService) GetEvent(ctx context.Context, id string) (*models.Event, []*models.Comment, error) {
	e, err := s.store.Events().Get(ctx, id)
	if errors.Is(err, common.ErrorNotFound) && s.Online() {
		// Not one of ours; a lawyer may still read it.
		return s.fetchForeignEvent(ctx, id)
	}
	if err != nil {
		return nil, nil, err
	}

	if !e.Pending && s.Online() {
		if err := s.refreshEvent(ctx, e); err != nil {
			switch {
			case errors.Is(err, ErrOffline):
			case common.KindOf(err) == common.KindNotFound:
				_ = s.store.Events().Delete(ctx, id)
				return nil, nil, common.NotFound("event not found")
			default:
				return nil, nil, err
			}
		}
	}

	return s.assemble(ctx, id)
}

func (s *TimelineService) fetchForeignEvent(ctx context.Context, id string) (*models.Event, []*models.Comment, error) {
	e, err := s.client.GetEvent(ctx, id)
	if err != nil {
		return nil, nil, s.remote(err)
	}
	media, err := s.client.ListMedia(ctx, id)
	if err != nil {
		return nil, nil, s.remote(err)
	}
	e.Media = media
	return e, []*models.Comment{}, nil
}

func (s *TimelineService) refreshEvent(ctx context.Context, e *models.Event) error {
	remote, err := s.client.GetEvent(ctx, e.ID)
	if err != nil {
		return s.remote(err)
	}
	if err := s.store.Events().Upsert(ctx, remote); err != nil {
		return err
	}

	media, err := s.client.ListMedia(ctx, e.ID)
	if err != nil {
		return s.remote(err)
	}
	seen := make(map[string]struct{}, len(media))
	for _, m := range media {
		seen[m.RemoteID] = struct{}{}
		if _, err := s.store.Media().UpsertRemote(ctx, m); err != nil {
			return err
		}
	}

	local, err := s.store.Media().ListByEvent(ctx, e.ID)
	if err != nil {
		return err
	}
	for _, m := range local {
		if _, ok := seen[m.RemoteID]; ok || m.RemoteID == "" {
			continue
		}
		if err := s.store.Media().Delete(ctx, m.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}
	return nil
}

func (s *TimelineService) assemble(ctx context.Context, id string) (*models.Event, []*models.Comment, error) {
	e, err := s.store.Events().Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if e.Media, err = s.store.Media().ListByEvent(ctx, id); err != nil {
		return nil, nil, err
	}
	comments, err := s.store.Comments().ListByEvent(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return e, comments, nil
}

// CreateEvent saves a new event on the server, or locally as pending when
// the server is unreachable.
func (s *TimelineService) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	in, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	if s.Online() {
		remote, err := s.client.CreateEvent(ctx, in)
		if err == nil {
			if err := s.store.Events().Upsert(ctx, remote); err != nil {
				return nil, err
			}
			return remote, nil
		}
		if err = s.remote(err); !errors.Is(err, ErrOffline) {
			return nil, err
		}
	}

	d, _ := timex.ParseDate(in.Date)
	e, err := s.store.Events().Create(ctx, &models.Event{
		Title:       in.Title,
		Description: in.Description,
		Date:        d,
		Pending:     true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "event saved locally", "event_id", e.ID)
	return e, nil
}

func applyUpdate(e *models.Event, upd models.EventUpdate) error {
	var err error
	if upd.Title != nil {
		if e.Title, err = requireText("title", *upd.Title); err != nil {
			return err
		}
	}
	if upd.Description != nil {
		if e.Description, err = requireText("description", *upd.Description); err != nil {
			return err
		}
	}
	if upd.Date != nil {
		d, err := timex.ParseDate(*upd.Date)
		if err != nil {
			return common.Validation("invalid date %q: use YYYY-MM-DD", strings.TrimSpace(*upd.Date))
		}
		e.Date = d
	}
	return nil
}

// UpdateEvent edits an event. Pending events change locally; synced ones
// need the server.
func (s *TimelineService) UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error) {
	e, err := s.store.Events().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.Pending {
		if err := applyUpdate(e, upd); err != nil {
			return nil, err
		}
		if err := s.store.Events().Update(ctx, e); err != nil {
			return nil, err
		}
		return e, nil
	}

	if !s.Online() {
		return nil, ErrOffline
	}
	remote, err := s.client.UpdateEvent(ctx, id, upd)
	if err != nil {
		return nil, s.remote(err)
	}
	if err := s.store.Events().Upsert(ctx, remote); err != nil {
		return nil, err
	}
	return remote, nil
}

// DeleteEvent removes an event with its attachments and comments.
func (s *TimelineService) DeleteEvent(ctx context.Context, id string) error {
	e, err := s.store.Events().Get(ctx, id)
	if err != nil {
		return err
	}

	if !e.Pending {
		if !s.Online() {
			return ErrOffline
		}
		if err := s.client.DeleteEvent(ctx, id); err != nil && common.KindOf(err) != common.KindNotFound {
			return s.remote(err)
		}
	}

	err = s.store.Events().Delete(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}

func inferType(contentType string) models.MediaType {
	if strings.HasPrefix(contentType, "image/") {
		return models.MediaImage
	}
	return models.MediaDocument
}

func detectContentType(f *os.File) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name()))); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return "application/octet-stream", nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// AttachFile adds the file at path to event eventID. An empty mediaType is
// inferred from the file's content type. The file is uploaded right away
// when possible, otherwise it stays pending until Sync.
func (s *TimelineService) AttachFile(ctx context.Context, eventID, path string, mediaType models.MediaType) (*models.Media, error) {
	if mediaType != "" && !mediaType.Valid() {
		return nil, common.Validation("media type must be %q or %q", models.MediaImage, models.MediaDocument)
	}
	e, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, common.Validation("cannot open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, common.Validation("%s is a directory", path)
	}
	contentType, err := detectContentType(f)
	if err != nil {
		return nil, err
	}
	if mediaType == "" {
		mediaType = inferType(contentType)
	}

	if !e.Pending && s.Online() {
		m, err := s.client.UploadMedia(ctx, e.ID, mediaType, filepath.Base(abs), contentType, f)
		if err == nil {
			return s.store.Media().UpsertRemote(ctx, m)
		}
		if err = s.remote(err); !errors.Is(err, ErrOffline) {
			return nil, err
		}
	}

	return s.store.Media().Create(ctx, &models.Media{
		EventID:     e.ID,
		Type:        mediaType,
		Filename:    filepath.Base(abs),
		LocalPath:   abs,
		ContentType: contentType,
		Size:        info.Size(),
	})
}

// AttachLink references an externally hosted file.
func (s *TimelineService) AttachLink(ctx context.Context, eventID string, mediaType models.MediaType, filename, url string) (*models.Media, error) {
	if !mediaType.Valid() {
		return nil, common.Validation("media type must be %q or %q", models.MediaImage, models.MediaDocument)
	}
	filename, err := requireText("filename", filename)
	if err != nil {
		return nil, err
	}
	url, err = requireText("url", url)
	if err != nil {
		return nil, err
	}
	e, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if !e.Pending && s.Online() {
		m, err := s.client.AddMediaLink(ctx, api.LinkInput{EventID: e.ID, Type: string(mediaType), Filename: filename, URL: url})
		if err == nil {
			return s.store.Media().UpsertRemote(ctx, m)
		}
		if err = s.remote(err); !errors.Is(err, ErrOffline) {
			return nil, err
		}
	}

	return s.store.Media().Create(ctx, &models.Media{
		EventID:  e.ID,
		Type:     mediaType,
		Filename: filename,
		URL:      url,
	})
}

// DetachMedia removes an attachment by its local id. Pending attachments are
// dropped locally; uploaded ones are deleted on the server first.
func (s *TimelineService) DetachMedia(ctx context.Context, mediaID string) error {
	m, err := s.store.Media().Get(ctx, mediaID)
	if err != nil {
		return err
	}

	if ref, ok := m.Ref().(models.Persisted); ok {
		if !s.Online() {
			return ErrOffline
		}
		if err := s.client.DeleteMedia(ctx, ref); err != nil && common.KindOf(err) != common.KindNotFound {
			return s.remote(err)
		}
	}
	return s.store.Media().Delete(ctx, m.ID)
}

// AddComment stores a private note or question on an event. Comments never
// leave this machine.
func (s *TimelineService) AddComment(ctx context.Context, eventID, content string, question bool) (*models.Comment, error) {
	content, err := requireText("comment", content)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Events().Get(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.Comments().Create(ctx, &models.Comment{EventID: eventID, Content: content, IsQuestion: question})
}

func (s *TimelineService) DeleteComment(ctx context.Context, id string) error {
	return s.store.Comments().Delete(ctx, id)
}

// Export renders the timeline on the server and saves it under the download
// directory, returning the file path.
func (s *TimelineService) Export(ctx context.Context, req api.ExportRequest) (string, error) {
	if !s.Online() {
		return "", ErrOffline
	}
	file, err := s.client.Export(ctx, req)
	if err != nil {
		return "", s.remote(err)
	}

	path, err := filex.EnsureParentDir(filepath.Join(s.downloadDir, filepath.Base(file.Filename)))
	if err != nil {
		return "", err
	}
	path = filex.UniquePath(path)
	if err := os.WriteFile(path, file.Data, 0o600); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}
	return path, nil
}

// Download saves an uploaded attachment under the download directory using a
// fresh link from the server.
func (s *TimelineService) Download(ctx context.Context, mediaID string) (string, error) {
	m, err := s.store.Media().Get(ctx, mediaID)
	if err != nil {
		return "", err
	}
	ref, ok := m.Ref().(models.Persisted)
	if !ok {
		return "", common.Validation("media %s has not been uploaded yet", m.Ref())
	}
	if !s.Online() {
		return "", ErrOffline
	}

	remote, err := s.client.GetMedia(ctx, ref.ID)
	if err != nil {
		return "", s.remote(err)
	}

	path, err := filex.EnsureParentDir(filepath.Join(s.downloadDir, filepath.Base(m.Filename)))
	if err != nil {
		return "", err
	}
	path = filex.UniquePath(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := netx.Download(ctx, s.httpClient, remote.URL, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

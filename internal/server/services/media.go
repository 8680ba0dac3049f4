package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/dmitrijs2005/timeline/internal/server/config"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timeline/internal/server/storage"
)

// PresignTTL is how long a download link handed to clients stays valid.
const PresignTTL = 15 * time.Minute

// UploadInput describes a file attached to an event. An empty Type is
// derived from ContentType. Size may be -1 when unknown.
type UploadInput struct {
	EventID     string
	Type        models.MediaType
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// LinkInput attaches an externally hosted file by URL.
type LinkInput struct {
	EventID  string
	Type     models.MediaType
	Filename string
	URL      string
}

type MediaService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	events        *EventService
	blobs         storage.BlobStore
	log           logging.Logger
	maxUploadSize int64
}

func NewMediaService(db *sql.DB, m repomanager.RepositoryManager, events *EventService, blobs storage.BlobStore, cfg *config.Config, log logging.Logger) *MediaService {
	return &MediaService{
		db:            db,
		repomanager:   m,
		events:        events,
		blobs:         blobs,
		log:           log.With("module", "media"),
		maxUploadSize: cfg.MaxUploadSize,
	}
}

// withDownloadURL swaps the stored object key for a presigned link.
func (s *MediaService) withDownloadURL(ctx context.Context, m *models.Media) error {
	if m.StorageKey == "" {
		return nil
	}
	u, err := s.blobs.PresignGet(ctx, m.StorageKey, PresignTTL)
	if err != nil {
		return common.Internal(err, "error signing media url")
	}
	m.URL = u
	return nil
}

// ListByEvent returns the attachments of an event readable by the caller.
func (s *MediaService) ListByEvent(ctx context.Context, caller *models.Identity, eventID string) ([]*models.Media, error) {
	event, err := s.events.load(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}

	items, err := s.repomanager.Media(s.db).ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, common.Internal(err, "error listing media")
	}
	for _, m := range items {
		if err := s.withDownloadURL(ctx, m); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// load fetches a media item together with its parent event, applying the
// read rule of the event.
func (s *MediaService) load(ctx context.Context, caller *models.Identity, id string) (*models.Media, *models.Event, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, nil, err
	}
	if err := checkID(id, "media"); err != nil {
		return nil, nil, err
	}

	m, err := s.repomanager.Media(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.NotFound("media not found")
		}
		return nil, nil, common.Internal(err, "error loading media")
	}

	event, err := s.events.load(ctx, caller, m.EventID)
	if err != nil {
		return nil, nil, err
	}
	return m, event, nil
}

// Get returns one attachment with a fresh download link.
func (s *MediaService) Get(ctx context.Context, caller *models.Identity, id string) (*models.Media, error) {
	m, _, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.withDownloadURL(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func resolveType(t models.MediaType, contentType string) (models.MediaType, error) {
	if t == "" {
		return models.MediaTypeFromContentType(contentType), nil
	}
	if !t.Valid() {
		return "", common.Validation("media type must be %q or %q", models.MediaImage, models.MediaDocument)
	}
	return t, nil
}

// Upload stores a file in object storage and attaches it to an event owned
// by the caller.
func (s *MediaService) Upload(ctx context.Context, caller *models.Identity, in UploadInput) (*models.Media, error) {
	event, err := s.events.loadOwned(ctx, caller, in.EventID)
	if err != nil {
		return nil, err
	}

	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, common.Validation("filename is required")
	}
	if in.Body == nil {
		return nil, common.Validation("file is required")
	}
	if s.maxUploadSize > 0 && in.Size > s.maxUploadSize {
		return nil, common.Validation("file exceeds the %d byte limit", s.maxUploadSize)
	}
	typ, err := resolveType(in.Type, in.ContentType)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(event.UserID, event.ID, filename)
	if err := s.blobs.Put(ctx, key, in.ContentType, in.Body, in.Size); err != nil {
		return nil, common.Internal(err, "error storing file")
	}

	m, err := s.repomanager.Media(s.db).Create(ctx, &models.Media{
		EventID:     event.ID,
		Type:        typ,
		Filename:    filename,
		StorageKey:  key,
		ContentType: in.ContentType,
		Size:        in.Size,
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.Warn(ctx, "orphaned media object", "key", key, "error", delErr)
		}
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("event not found")
		}
		return nil, common.Internal(err, "error creating media")
	}

	s.log.Info(ctx, "media uploaded", "media_id", m.ID, "event_id", event.ID, "size", in.Size)

	if err := s.withDownloadURL(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// AddLink attaches an externally hosted file to an event owned by the caller.
func (s *MediaService) AddLink(ctx context.Context, caller *models.Identity, in LinkInput) (*models.Media, error) {
	event, err := s.events.loadOwned(ctx, caller, in.EventID)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, common.Validation("url must be an absolute http(s) URL")
	}
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		filename = pathBase(u.Path)
	}
	typ, err := resolveType(in.Type, "")
	if err != nil {
		return nil, err
	}

	m, err := s.repomanager.Media(s.db).Create(ctx, &models.Media{
		EventID:  event.ID,
		Type:     typ,
		Filename: filename,
		URL:      u.String(),
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("event not found")
		}
		return nil, common.Internal(err, "error creating media")
	}
	return m, nil
}

func pathBase(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "file"
	}
	return p
}

// Delete detaches an attachment from its event and removes the stored object.
func (s *MediaService) Delete(ctx context.Context, caller *models.Identity, id string) error {
	m, event, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if !canWrite(caller, event.UserID) {
		return common.Forbidden("only the owner can modify this event")
	}

	if err := s.repomanager.Media(s.db).Delete(ctx, m.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("media not found")
		}
		return common.Internal(err, "error deleting media")
	}

	if m.StorageKey != "" {
		if err := s.blobs.Delete(ctx, m.StorageKey); err != nil {
			s.log.Warn(ctx, "orphaned media object", "key", m.StorageKey, "error", err)
		}
	}
	return nil
}

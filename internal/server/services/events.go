package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timeline/internal/server/storage"
	"github.com/dmitrijs2005/timeline/internal/timex"
)

// EventInput is the payload of event creation. Date is YYYY-MM-DD or RFC 3339.
type EventInput struct {
	Title       string
	Description string
	Date        string
}

// EventUpdate carries a partial update; nil fields are kept.
type EventUpdate struct {
	Title       *string
	Description *string
	Date        *string
}

type EventService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore
	log         logging.Logger
}

func NewEventService(db *sql.DB, m repomanager.RepositoryManager, blobs storage.BlobStore, log logging.Logger) *EventService {
	return &EventService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		log:         log.With("module", "events"),
	}
}

func requiredText(v, field string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", common.Validation("%s is required", field)
	}
	return v, nil
}

func parseEventDate(s string) (time.Time, error) {
	d, err := timex.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, common.Validation("invalid date %q: use YYYY-MM-DD", s)
	}
	return d, nil
}

// List returns the events of userID in ascending date order. An empty
// userID means the caller's own timeline; other users' timelines are
// readable by lawyers only.
func (s *EventService) List(ctx context.Context, caller *models.Identity, userID string) ([]*models.Event, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if userID == "" {
		userID = caller.ID
	} else if err := checkID(userID, "user"); err != nil {
		return nil, err
	}
	if !canRead(caller, userID) {
		return nil, common.Forbidden("not allowed to read this timeline")
	}

	events, err := s.repomanager.Events(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, common.Internal(err, "error listing events")
	}
	return events, nil
}

// Create adds an event owned by the caller.
func (s *EventService) Create(ctx context.Context, caller *models.Identity, in EventInput) (*models.Event, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	title, err := requiredText(in.Title, "title")
	if err != nil {
		return nil, err
	}
	description, err := requiredText(in.Description, "description")
	if err != nil {
		return nil, err
	}
	date, err := parseEventDate(in.Date)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		UserID:      caller.ID,
		Title:       title,
		Description: description,
		Date:        date,
	}

	event, err = s.repomanager.Events(s.db).Create(ctx, event)
	if err != nil {
		return nil, common.Internal(err, "error creating event")
	}

	s.log.Info(ctx, "event created", "event_id", event.ID, "user_id", caller.ID)
	return event, nil
}

// load fetches an event and applies the read rule.
func (s *EventService) load(ctx context.Context, caller *models.Identity, id string) (*models.Event, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if err := checkID(id, "event"); err != nil {
		return nil, err
	}

	event, err := s.repomanager.Events(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("event not found")
		}
		return nil, common.Internal(err, "error loading event")
	}

	if !canRead(caller, event.UserID) {
		return nil, common.Forbidden("not allowed to access this event")
	}
	return event, nil
}

// loadOwned fetches an event the caller may modify.
func (s *EventService) loadOwned(ctx context.Context, caller *models.Identity, id string) (*models.Event, error) {
	event, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !canWrite(caller, event.UserID) {
		return nil, common.Forbidden("only the owner can modify this event")
	}
	return event, nil
}

// Get returns a single event readable by the caller.
func (s *EventService) Get(ctx context.Context, caller *models.Identity, id string) (*models.Event, error) {
	return s.load(ctx, caller, id)
}

// Update applies a partial update to an event owned by the caller.
func (s *EventService) Update(ctx context.Context, caller *models.Identity, id string, in EventUpdate) (*models.Event, error) {
	event, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if event.Title, err = requiredText(*in.Title, "title"); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		if event.Description, err = requiredText(*in.Description, "description"); err != nil {
			return nil, err
		}
	}
	if in.Date != nil {
		if event.Date, err = parseEventDate(*in.Date); err != nil {
			return nil, err
		}
	}

	if err := s.repomanager.Events(s.db).Update(ctx, event); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("event not found")
		}
		return nil, common.Internal(err, "error updating event")
	}
	return event, nil
}

// Delete removes an event owned by the caller together with its media
// records and stored objects.
func (s *EventService) Delete(ctx context.Context, caller *models.Identity, id string) error {
	event, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return err
	}

	media, err := s.repomanager.Media(s.db).ListByEvent(ctx, event.ID)
	if err != nil {
		return common.Internal(err, "error listing event media")
	}

	if err := s.repomanager.Events(s.db).Delete(ctx, event.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("event not found")
		}
		return common.Internal(err, "error deleting event")
	}

	for _, m := range media {
		if m.StorageKey == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, m.StorageKey); err != nil {
			s.log.Warn(ctx, "orphaned media object", "key", m.StorageKey, "error", err)
		}
	}

	s.log.Info(ctx, "event deleted", "event_id", event.ID, "media", len(media))
	return nil
}

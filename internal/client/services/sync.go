package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/timeline/internal/client/api"
	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
)

// SyncReport counts what Sync pushed.
type SyncReport struct {
	Events int
	Media  int
}

// Sync pushes pending events, then pending attachments whose event is known
// to the server. It keeps going past individual failures and returns them
// joined.
func (s *TimelineService) Sync(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	if !s.Online() {
		return report, ErrOffline
	}

	events, err := s.store.Events().ListPending(ctx)
	if err != nil {
		return report, err
	}

	var errs []error
	for _, e := range events {
		remote, err := s.client.CreateEvent(ctx, models.EventInput{
			Title:       e.Title,
			Description: e.Description,
			Date:        e.Date.Format(common.DateLayout),
		})
		if err != nil {
			if err = s.remote(err); errors.Is(err, ErrOffline) {
				return report, err
			}
			errs = append(errs, fmt.Errorf("event %q: %w", e.Title, err))
			continue
		}
		if err := s.store.PromoteEvent(ctx, e.ID, remote); err != nil {
			return report, err
		}
		report.Events++
	}

	media, err := s.store.Media().ListPending(ctx)
	if err != nil {
		return report, err
	}
	for _, m := range media {
		e, err := s.store.Events().Get(ctx, m.EventID)
		if err != nil || e.Pending {
			continue
		}

		remote, err := s.pushMedia(ctx, m)
		if err != nil {
			if err = s.remote(err); errors.Is(err, ErrOffline) {
				return report, err
			}
			errs = append(errs, fmt.Errorf("media %q: %w", m.Filename, err))
			continue
		}
		if err := s.store.Media().MarkUploaded(ctx, m.ID, remote.RemoteID, remote.URL); err != nil {
			return report, err
		}
		report.Media++
	}

	s.logger.Info(ctx, "sync finished", "events", report.Events, "media", report.Media, "failed", len(errs))
	return report, errors.Join(errs...)
}

func (s *TimelineService) pushMedia(ctx context.Context, m *models.Media) (*models.Media, error) {
	if m.LocalPath == "" {
		return s.client.AddMediaLink(ctx, api.LinkInput{EventID: m.EventID, Type: string(m.Type), Filename: m.Filename, URL: m.URL})
	}

	f, err := os.Open(m.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", m.LocalPath, err)
	}
	defer f.Close()
	return s.client.UploadMedia(ctx, m.EventID, m.Type, m.Filename, m.ContentType, f)
}

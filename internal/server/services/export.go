package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/dmitrijs2005/timeline/internal/server/export"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/repomanager"
)

// ExportSettings are the caller's choices for a document export.
type ExportSettings struct {
	Title            string
	Format           string
	IncludeImages    bool
	IncludeDocuments bool
}

// nowFunc stamps export filenames.
var nowFunc = time.Now

type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *ExportService {
	return &ExportService{db: db, repomanager: m, log: log.With("module", "export")}
}

// Export renders every event of the caller, oldest first. Media are fetched
// one event at a time; any failure aborts the export.
func (s *ExportService) Export(ctx context.Context, caller *models.Identity, in ExportSettings) (*export.Document, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	format, err := export.ParseFormat(in.Format)
	if err != nil {
		return nil, common.Validation("format must be %q or %q", export.FormatPDF, export.FormatDOCX)
	}

	events, err := s.repomanager.Events(s.db).ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, common.Internal(err, "error fetching events")
	}
	if len(events) == 0 {
		return nil, common.NotFound("no events to export")
	}

	mediaRepo := s.repomanager.Media(s.db)
	media := make(map[string][]*models.Media, len(events))
	for _, e := range events {
		items, err := mediaRepo.ListByEvent(ctx, e.ID)
		if err != nil {
			return nil, common.Internal(err, "error fetching media")
		}
		media[e.ID] = items
	}

	tl := export.Build(in.Title, events, media, export.Options{
		IncludeImages:    in.IncludeImages,
		IncludeDocuments: in.IncludeDocuments,
	})

	doc, err := export.Render(tl, format, nowFunc())
	if err != nil {
		return nil, common.Internal(err, "error rendering document")
	}

	s.log.Info(ctx, "timeline exported", "user_id", caller.ID, "format", string(format), "events", len(events), "bytes", len(doc.Data))
	return doc, nil
}

package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/timeline/internal/server/services"
)

func (s *Server) exportTimeline(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.svc.Export.Export(r.Context(), caller(r), services.ExportSettings{
		Title:            req.Title,
		Format:           req.Format,
		IncludeImages:    req.IncludeImages,
		IncludeDocuments: req.IncludeDocuments,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		s.logger.Warn(r.Context(), "export write failed", "error", err)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.svc.DB != nil {
		if err := s.svc.DB.PingContext(r.Context()); err != nil {
			s.logger.Error(r.Context(), "health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

package httpapi

import (
	"errors"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/server/services"
)

// multipartOverhead is allowed on top of the file size limit for the form
// fields and part headers.
const multipartOverhead = 1 << 20

func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if id := q.Get("id"); id != "" {
		m, err := s.svc.Media.Get(r.Context(), caller(r), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toMediaResponse(m))
		return
	}

	eventID := q.Get("eventId")
	if eventID == "" {
		s.writeError(w, r, common.Validation("id or eventId is required"))
		return
	}

	items, err := s.svc.Media.ListByEvent(r.Context(), caller(r), eventID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]mediaResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMediaResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// createMedia accepts either a multipart upload or a JSON reference to an
// externally hosted file.
func (s *Server) createMedia(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		s.uploadMedia(w, r)
		return
	}

	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	m, err := s.svc.Media.AddLink(r.Context(), caller(r), services.LinkInput{
		EventID:  req.EventID,
		Type:     models.MediaType(req.Type),
		Filename: req.Filename,
		URL:      req.URL,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMediaResponse(m))
}

func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, common.Validation("file exceeds the %d byte limit", s.maxUploadSize))
			return
		}
		s.writeError(w, r, common.Validation("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, common.Validation("file is required"))
		return
	}
	defer file.Close()

	m, err := s.svc.Media.Upload(r.Context(), caller(r), services.UploadInput{
		EventID:     r.FormValue("eventId"),
		Type:        models.MediaType(r.FormValue("type")),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMediaResponse(m))
}

func (s *Server) deleteMedia(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, r, common.Validation("id is required"))
		return
	}
	if err := s.svc.Media.Delete(r.Context(), caller(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/timeline/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events.List(r.Context(), caller(r), r.URL.Query().Get("userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	event, err := s.svc.Events.Create(r.Context(), caller(r), services.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.svc.Events.Get(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	event, err := s.svc.Events.Update(r.Context(), caller(r), chi.URLParam(r, "id"), services.EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Events.Delete(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/service"
)

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var in service.SendMessageInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := s.chat.SendMessage(r.Context(), principalFrom(r.Context()).UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) markMessageRead(w http.ResponseWriter, r *http.Request) {
	msg, err := s.chat.MarkRead(r.Context(), chi.URLParam(r, "id"), principalFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) listConversation(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chat.ListConversation(r.Context(), principalFrom(r.Context()),
		chi.URLParam(r, "studentId"), chi.URLParam(r, "counselorId"), pagination(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// === Notifications ===

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.notifications.List(r.Context(), principalFrom(r.Context()).UserID, pagination(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), principalFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := decode(r, &n); err != nil {
		s.writeError(w, r, err)
		return
	}
	n.ID = ""
	n.IsRead = false
	n.ReadAt = nil
	created, err := s.notifications.Create(r.Context(), &n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// === Applications ===

func (s *Server) createApplication(w http.ResponseWriter, r *http.Request) {
	var in service.CreateApplicationInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	app, err := s.applications.Create(r.Context(), principalFrom(r.Context()).UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateStatusInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	app, err := s.applications.UpdateStatus(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

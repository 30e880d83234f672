package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/export"
	"github.com/lazypower/revise/internal/metrics"
	"github.com/lazypower/revise/internal/schedule"
)

// fail maps domain errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, agenda.ErrUnknownUser):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, agenda.ErrEmptyTopic),
		errors.Is(err, agenda.ErrEmptyStartDate),
		errors.Is(err, schedule.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Stack().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users := s.svc.Users()
	if users == nil {
		users = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.StartDate == "" {
		s.fail(w, r, agenda.ErrEmptyStartDate)
		return
	}

	dates, err := schedule.Compute(req.StartDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start_date": req.StartDate,
		"dates":      dates,
	})
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	var (
		items []agenda.Item
		err   error
	)
	if all {
		items, err = s.svc.All(r.Context(), userID)
	} else {
		items, err = s.svc.Agenda(r.Context(), userID)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"count":   len(items),
		"items":   items,
	})
}

func (s *Server) handleAddTopic(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		Topic     string `json:"topic"`
		StartDate string `json:"start_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	added, err := s.svc.AddTopic(r.Context(), userID, req.Topic, req.StartDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.TopicAdded()

	upcoming, err := s.svc.Agenda(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"added":  added,
		"agenda": upcoming,
	})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	item := agenda.Item{
		Topic: strings.TrimSpace(r.URL.Query().Get("topic")),
		Date:  strings.TrimSpace(r.URL.Query().Get("date")),
	}
	if item.Topic == "" || item.Date == "" {
		writeError(w, http.StatusBadRequest, "topic and date required")
		return
	}

	removed, err := s.svc.Remove(r.Context(), userID, item)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.ItemsRemoved(removed)

	upcoming, err := s.svc.Agenda(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
		"agenda":  upcoming,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := s.svc.Clear(r.Context(), userID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	items, err := s.svc.Agenda(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "revise-" + userID + ".ics",
	}))
	if err := export.WriteICS(w, userID, items, s.now()); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("write ics")
	}
}

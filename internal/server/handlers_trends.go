package server

import (
	"net/http"
	"strconv"

	"github.com/claude/spotter/internal/trends"
)

func (s *Server) calendar() trends.Calendar {
	return trends.Calendar{First: s.training.FirstWeekday(), Location: s.training.Location()}
}

func (s *Server) handleWeeklyVolume(w http.ResponseWriter, r *http.Request) {
	weeks := trends.DefaultWeeks
	if v := r.URL.Query().Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > trends.MaxWeeks {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weeks must be between 1 and 52"})
			return
		}
		weeks = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, trends.WeeklyVolume(s.gw, s.calendar(), s.now(), weeks))
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, trends.Consistency(s.gw, s.calendar(), s.now()))
}

func (s *Server) handleE1RM(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := trends.E1RM(s.gw, exercise, r.URL.Query().Get("formula"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

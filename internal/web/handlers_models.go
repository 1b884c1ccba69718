package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

const healthTimeout = 2 * time.Second

// handleHealth reports liveness and whether the store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  core.MapError(err).Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListModels returns every registered model, sorted by group.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.ListModels())
}

// handleGetModel returns one model descriptor.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	desc, err := s.service.GetModel(chi.URLParam(r, "uid"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, desc)
}

type statusResponse struct {
	Imports core.ImportLimiterStatus `json:"imports"`
	Models  int                      `json:"models"`
}

// handleStatus reports import slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, statusResponse{
		Imports: s.service.LimiterStatus(),
		Models:  core.ModelCount(),
	})
}

package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

// templateBodyLimit bounds template request bodies.
const templateBodyLimit = 1 << 20

// handleListTemplates returns all mapping templates for a model.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	desc, err := s.service.GetModel(chi.URLParam(r, "uid"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	templates, err := s.service.ListTemplates(r.Context(), desc.UID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, templates)
}

// handleCreateTemplate saves a named mapping for a model.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string             `json:"name"`
		Mapping *core.FieldMapping `json:"mapping"`
	}
	if err := decodeJSON(w, r, templateBodyLimit, &req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	tpl, err := s.service.CreateTemplate(ctx, chi.URLParam(r, "uid"), req.Name, req.Mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, tpl)
}

// handleMatchTemplates finds templates whose source fields overlap the
// given field names.
func (s *Server) handleMatchTemplates(w http.ResponseWriter, r *http.Request) {
	desc, err := s.service.GetModel(chi.URLParam(r, "uid"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		Fields []string `json:"fields"`
	}
	if err := decodeJSON(w, r, templateBodyLimit, &req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if len(req.Fields) == 0 {
		s.respondError(w, r, errNoFieldsToFind)
		return
	}

	matches, err := s.service.MatchTemplates(r.Context(), desc.UID, req.Fields)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, matches)
}

// handleGetTemplate returns a single template by ID.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.service.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tpl)
}

// handleDeleteTemplate deletes a template.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DeleteTemplate(ctx, chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

// maxAuditLimit caps the limit query parameter.
const maxAuditLimit = 1000

// handleAuditLog returns recent audit entries, newest first.
// Query parameters: model, action, limit.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.AuditFilter{
		Model:  q.Get("model"),
		Action: core.AuditAction(q.Get("action")),
		Limit:  parseIntParam(r, "limit", core.DefaultAuditLimit),
	}
	if filter.Limit > maxAuditLimit {
		filter.Limit = maxAuditLimit
	}

	entries, err := s.service.GetAuditLog(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

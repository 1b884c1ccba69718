package web

// errors.go maps errors to HTTP responses in one place.
//
// Every error response is JSON:
//
//	{"error": "...", "message": "...", "action": "...", "code": "DB001"}
//
// For client errors (4xx) "error" is the error's own text, so an import that
// stopped on a store failure reports the store's message unchanged. For
// server errors it is the user message from core.MapError and the technical
// error is only logged.

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/ContentImport/internal/core"
	"github.com/JonMunkholm/ContentImport/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	errNoFile         = errors.New("no file provided")
	errInvalidForm    = errors.New("file too large or invalid form")
	errInvalidBody    = errors.New("invalid request body")
	errUnknownFormat  = errors.New("format must be json, yaml or csv")
	errNoFieldsToFind = errors.New("fields are required")
)

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var (
		parseErr   *core.ParseError
		validErr   *core.ValidationError
		importErr  *core.ImportError
		persistErr *core.PersistenceError
	)
	switch {
	case errors.As(err, &parseErr), errors.As(err, &validErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownSourceField), errors.Is(err, core.ErrUnknownTargetField):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownModel), errors.Is(err, core.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.As(err, &importErr), errors.As(err, &persistErr), errors.Is(err, core.ErrTemplateExists):
		return http.StatusConflict
	case errors.Is(err, errNoFile), errors.Is(err, errInvalidForm),
		errors.Is(err, errInvalidBody), errors.Is(err, errUnknownFormat),
		errors.Is(err, errNoFieldsToFind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err with the request ID and writes the JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusFor(err))
}

func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		resp.Error = userMsg.Message
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		w.Header().Set("X-Request-Id", reqID)
	}
	writeJSON(w, r, status, resp)
}

package web

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

// parseResponse is what the review step needs to build a mapping.
type parseResponse struct {
	Phase     core.ImportPhase      `json:"phase"`
	FileName  string                `json:"fileName"`
	Format    core.Format           `json:"format"`
	Kind      string                `json:"kind"`
	Count     int                   `json:"count"`
	Fields    []string              `json:"fields"`
	Source    core.Source           `json:"source"`
	Warnings  []core.ParseWarning   `json:"warnings"`
	Model     *core.ModelDescriptor `json:"model,omitempty"`
	Mapping   *core.FieldMapping    `json:"mapping,omitempty"`
	Templates []core.TemplateMatch  `json:"templates,omitempty"`
}

// handleParse decodes an uploaded file and, when a model is named, proposes
// a mapping for it and lists matching templates.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidForm, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	src, err := core.Parse(r.Context(), data, header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := parseResponse{
		Phase:    core.PhaseMappingReview,
		FileName: header.Filename,
		Format:   src.Format,
		Kind:     sourceKind(src),
		Count:    src.Len(),
		Fields:   sampleFields(src),
		Source:   src,
		Warnings: src.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []core.ParseWarning{}
	}

	if uid := strings.TrimSpace(r.FormValue("model")); uid != "" {
		desc, err := s.service.GetModel(uid)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		resp.Model = &desc
		if desc.Kind == core.CollectionType {
			resp.Mapping = core.ProposeDefaultMapping(src, desc.Fields)
			matches, err := s.service.MatchTemplates(r.Context(), desc.UID, resp.Fields)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			resp.Templates = matches
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// handleProposeMapping returns the default mapping of a source onto a model.
func (s *Server) handleProposeMapping(w http.ResponseWriter, r *http.Request) {
	desc, err := s.service.GetModel(chi.URLParam(r, "uid"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		Source core.Source `json:"source"`
	}
	if err := decodeJSON(w, r, s.cfg.Import.MaxFileSize, &req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	writeJSON(w, r, http.StatusOK, core.ProposeDefaultMapping(req.Source, desc.Fields))
}

// handleImport submits an ImportRequest. A batch that stops on a store
// error answers 409 with the store's message; records before it are kept.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req core.ImportRequest
	if err := decodeJSON(w, r, s.cfg.Import.MaxFileSize, &req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.ImportData(ctx, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleDeleteAll removes every entry of a model.
func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	n, err := s.service.DeleteAllData(ctx, chi.URLParam(r, "uid"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"deleted": n})
}

var exportContentTypes = map[core.Format]string{
	core.FormatJSON: "application/json",
	core.FormatYAML: "application/yaml",
	core.FormatCSV:  "text/csv; charset=utf-8",
}

// handleExport streams every entry of a model as a file download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	format := core.FormatJSON
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		if f == "yml" {
			f = string(core.FormatYAML)
		}
		format = core.Format(f)
	}
	contentType, ok := exportContentTypes[format]
	if !ok {
		s.respondError(w, r, errUnknownFormat)
		return
	}

	data, err := s.service.Export(r.Context(), uid, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName(uid, format)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// exportFileName turns "api::article.article" into "article.json".
func exportFileName(uid string, format core.Format) string {
	name := uid
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "export"
	}
	return name + "." + string(format)
}

func sourceKind(src core.Source) string {
	if src.Collection {
		return "collection"
	}
	return "single"
}

func sampleFields(src core.Source) []string {
	sample, ok := src.Sample()
	if !ok {
		return []string{}
	}
	return sample.Keys()
}

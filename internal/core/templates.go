package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemplateMatchThreshold is the minimum header overlap for a template to be
// offered for a source.
const TemplateMatchThreshold = 0.7

// MappingTemplate is a named, saved field mapping for one model.
type MappingTemplate struct {
	ID           string        `json:"id"`
	Model        string        `json:"model"`
	Name         string        `json:"name"`
	Mapping      *FieldMapping `json:"mapping"`
	SourceFields []string      `json:"sourceFields"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// TemplateMatch represents a template that matches a source's fields.
type TemplateMatch struct {
	Template   MappingTemplate `json:"template"`
	MatchScore float64         `json:"matchScore"`
}

// Apply copies the template's targets onto m for the source fields m knows.
// It returns how many fields were set. Targets the model no longer has are
// skipped.
func (t MappingTemplate) Apply(m *FieldMapping) int {
	applied := 0
	for _, src := range t.Mapping.Fields() {
		dst, _ := t.Mapping.Target(src)
		if err := m.Set(src, dst); err == nil {
			applied++
		}
	}
	return applied
}

// CreateTemplate saves a mapping under a name for a model.
func (s *Service) CreateTemplate(ctx context.Context, model, name string, mapping *FieldMapping) (*MappingTemplate, error) {
	if strings.TrimSpace(name) == "" {
		return nil, newValidationError("template name is required")
	}
	desc, err := Lookup(model)
	if err != nil {
		return nil, err
	}
	if mapping == nil || mapping.Len() == 0 {
		return nil, newValidationError("template mapping is empty")
	}
	if err := mapping.ValidateTargets(desc.Fields); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tpl := MappingTemplate{
		ID:           uuid.NewString(),
		Model:        model,
		Name:         strings.TrimSpace(name),
		Mapping:      mapping.Clone(),
		SourceFields: mapping.Fields(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	saved, err := s.backend.SaveTemplate(ctx, tpl)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	s.audit(ctx, AuditLogParams{
		Action: ActionTemplateCreate,
		Model:  model,
		Reason: saved.Name,
	})
	return &saved, nil
}

// GetTemplate retrieves a template by ID.
func (s *Service) GetTemplate(ctx context.Context, id string) (*MappingTemplate, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, newValidationError(fmt.Sprintf("invalid template ID %q", id))
	}
	tpl, err := s.backend.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListTemplates returns all templates for a model.
func (s *Service) ListTemplates(ctx context.Context, model string) ([]MappingTemplate, error) {
	templates, err := s.backend.ListTemplates(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	tpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	s.audit(ctx, AuditLogParams{
		Action: ActionTemplateDelete,
		Model:  tpl.Model,
		Reason: tpl.Name,
	})
	return nil
}

// MatchTemplates finds templates whose source fields overlap fields.
// Results are sorted by score, best first.
func (s *Service) MatchTemplates(ctx context.Context, model string, fields []string) ([]TemplateMatch, error) {
	templates, err := s.ListTemplates(ctx, model)
	if err != nil {
		return nil, err
	}

	matches := make([]TemplateMatch, 0)
	for _, t := range templates {
		score := matchTemplateFields(fields, t.SourceFields)
		if score >= TemplateMatchThreshold {
			matches = append(matches, TemplateMatch{
				Template:   t,
				MatchScore: score,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	return matches, nil
}

// matchTemplateFields calculates the share of template fields present in
// the source, ignoring case and surrounding space.
func matchTemplateFields(sourceFields, templateFields []string) float64 {
	if len(templateFields) == 0 {
		return 0
	}

	present := make(map[string]bool, len(sourceFields))
	for _, f := range sourceFields {
		present[strings.ToLower(strings.TrimSpace(f))] = true
	}

	matched := 0
	for _, f := range templateFields {
		if present[strings.ToLower(strings.TrimSpace(f))] {
			matched++
		}
	}

	return float64(matched) / float64(len(templateFields))
}

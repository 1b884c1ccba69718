package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

// Memory is an in-process backend. It is used by tests and by the CLI when
// DB_DRIVER=memory. Data does not survive the process.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string][]core.Entry // model -> entries in creation order
	templates map[string]core.MappingTemplate
	audit     []core.AuditEntry
	now       func() time.Time
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[string][]core.Entry),
		templates: make(map[string]core.MappingTemplate),
		now:       time.Now,
	}
}

func (m *Memory) Create(_ context.Context, model string, data core.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	e := core.Entry{
		ID:        uuid.NewString(),
		Model:     model,
		Data:      data.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.entries[model] = append(m.entries[model], e)
	return e.ID, nil
}

func (m *Memory) UpsertSingle(_ context.Context, model string, data core.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := SingletonID(model)
	now := m.now().UTC()
	for i, e := range m.entries[model] {
		if e.ID == id {
			m.entries[model][i].Data = data.Clone()
			m.entries[model][i].UpdatedAt = now
			return id, nil
		}
	}
	m.entries[model] = append(m.entries[model], core.Entry{
		ID:        id,
		Model:     model,
		Data:      data.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	return id, nil
}

func (m *Memory) FindAll(_ context.Context, model string) ([]core.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Entry, len(m.entries[model]))
	copy(out, m.entries[model])
	return out, nil
}

func (m *Memory) DeleteByIDs(_ context.Context, model string, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := m.entries[model][:0]
	var deleted int64
	for _, e := range m.entries[model] {
		if drop[e.ID] {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries[model] = kept
	return deleted, nil
}

func (m *Memory) SaveTemplate(_ context.Context, tpl core.MappingTemplate) (core.MappingTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.templates {
		if existing.Model == tpl.Model && existing.Name == tpl.Name && existing.ID != tpl.ID {
			return core.MappingTemplate{}, errDuplicateTemplate(tpl.Name)
		}
	}
	tpl.Mapping = tpl.Mapping.Clone()
	m.templates[tpl.ID] = tpl
	return tpl, nil
}

func (m *Memory) ListTemplates(_ context.Context, model string) ([]core.MappingTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.MappingTemplate, 0)
	for _, tpl := range m.templates {
		if tpl.Model == model {
			out = append(out, tpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetTemplate(_ context.Context, id string) (core.MappingTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tpl, ok := m.templates[id]
	if !ok {
		return core.MappingTemplate{}, core.ErrTemplateNotFound
	}
	return tpl, nil
}

func (m *Memory) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[id]; !ok {
		return core.ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *Memory) InsertAudit(_ context.Context, entry core.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) ListAudit(_ context.Context, filter core.AuditFilter) ([]core.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.AuditEntry, 0)
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if filter.Model != "" && e.Model != filter.Model {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}

package core

import (
	"context"
	"time"
)

// ModelKind distinguishes models holding many entries from models holding one.
type ModelKind string

const (
	CollectionType ModelKind = "collectionType"
	SingleType     ModelKind = "singleType"
)

// ModelDescriptor describes a content model records can be imported into.
type ModelDescriptor struct {
	UID    string    `json:"uid" yaml:"uid"`
	Kind   ModelKind `json:"kind" yaml:"kind"`
	Label  string    `json:"label" yaml:"label"`
	Group  string    `json:"group" yaml:"group"`
	Fields []string  `json:"fields" yaml:"fields"`
}

// Entry is one persisted record of a model.
type Entry struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Data      Record    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists content entries.
type Store interface {
	// Create persists one entry of a collection model and returns its ID.
	Create(ctx context.Context, model string, data Record) (string, error)

	// UpsertSingle creates or replaces the only entry of a single-type model.
	UpsertSingle(ctx context.Context, model string, data Record) (string, error)

	// FindAll returns every entry of a model in creation order.
	FindAll(ctx context.Context, model string) ([]Entry, error)

	// DeleteByIDs deletes the given entries and returns how many were removed.
	DeleteByIDs(ctx context.Context, model string, ids []string) (int64, error)
}

// TemplateStore persists mapping templates.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, tpl MappingTemplate) (MappingTemplate, error)
	ListTemplates(ctx context.Context, model string) ([]MappingTemplate, error)
	GetTemplate(ctx context.Context, id string) (MappingTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// AuditStore persists audit entries.
type AuditStore interface {
	InsertAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// Backend is a complete persistence layer.
type Backend interface {
	Store
	TemplateStore
	AuditStore

	Ping(ctx context.Context) error
	Close()
}

// ImportPhase is the stage of an import session.
type ImportPhase string

const (
	PhaseIdle          ImportPhase = "idle"
	PhaseParsing       ImportPhase = "parsing"
	PhaseMappingReview ImportPhase = "mapping_review"
	PhaseSubmitting    ImportPhase = "submitting"
	PhaseSucceeded     ImportPhase = "succeeded"
	PhaseFailed        ImportPhase = "failed"
)

// ImportRequest is one submission of parsed content to a model.
// Mapping nil means field names pass through unchanged.
type ImportRequest struct {
	TargetModel string        `json:"targetModel"`
	Source      Source        `json:"source"`
	Mapping     *FieldMapping `json:"mapping,omitempty"`
	Kind        ModelKind     `json:"kind,omitempty"`
}

// ImportResult describes a completed import.
type ImportResult struct {
	ImportID    string        `json:"importId"`
	TargetModel string        `json:"targetModel"`
	Kind        ModelKind     `json:"kind"`
	Imported    int           `json:"imported"`
	IDs         []string      `json:"ids"`
	Duration    time.Duration `json:"durationNs"`
}

// EventType names an import lifecycle event.
type EventType string

const (
	EventImportCompleted EventType = "import.completed"
	EventImportFailed    EventType = "import.failed"
	EventContentDeleted  EventType = "content.deleted"
)

// Event is published after an import or delete-all finishes.
type Event struct {
	Type       EventType   `json:"type"`
	ImportID   string      `json:"importId,omitempty"`
	Model      string      `json:"model"`
	Phase      ImportPhase `json:"phase,omitempty"`
	Count      int         `json:"count"`
	FailedAt   *int        `json:"failedAt,omitempty"`
	Error      string      `json:"error,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Publisher delivers events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

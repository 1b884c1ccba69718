package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ContentImport/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionImport         AuditAction = "import"
	ActionImportFailed   AuditAction = "import_failed"
	ActionDeleteAll      AuditAction = "delete_all"
	ActionTemplateCreate AuditAction = "template_create"
	ActionTemplateDelete AuditAction = "template_delete"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// DefaultAuditLimit caps audit queries that do not set a limit.
const DefaultAuditLimit = 100

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	Model        string        `json:"model"`
	Actor        string        `json:"actor,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	ImportID     string        `json:"importId,omitempty"`
	RowsAffected int           `json:"rowsAffected"`
	FailedIndex  *int          `json:"failedIndex,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action       AuditAction
	Model        string
	ImportID     string
	RowsAffected int
	FailedIndex  *int
	Reason       string
}

// AuditFilter contains filtering options for querying audit logs.
// Entries are returned newest first.
type AuditFilter struct {
	Model  string
	Action AuditAction
	Limit  int
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionImport, ActionImportFailed:
		return SeverityHigh
	case ActionDeleteAll:
		return SeverityCritical
	case ActionTemplateCreate, ActionTemplateDelete:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// LogAudit records an audit entry. Request metadata (actor, IP address,
// user agent) is taken from ctx.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) (*AuditEntry, error) {
	entry := AuditEntry{
		ID:           uuid.NewString(),
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		Model:        params.Model,
		Actor:        GetActorFromContext(ctx),
		IPAddress:    GetIPAddressFromContext(ctx),
		UserAgent:    GetUserAgentFromContext(ctx),
		ImportID:     params.ImportID,
		RowsAffected: params.RowsAffected,
		FailedIndex:  params.FailedIndex,
		Reason:       params.Reason,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.backend.InsertAudit(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// audit is LogAudit for callers that must not fail on audit errors.
func (s *Service) audit(ctx context.Context, params AuditLogParams) {
	if _, err := s.LogAudit(ctx, params); err != nil {
		logging.FromContext(ctx).Warn("audit log write failed",
			"action", params.Action,
			"model", params.Model,
			"error", err,
		)
	}
}

// GetAuditLog retrieves audit log entries, newest first.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditLimit
	}
	return s.backend.ListAudit(ctx, filter)
}

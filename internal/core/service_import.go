package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ContentImport/internal/logging"
)

// validate checks the request preconditions that need no lookup.
func (req ImportRequest) validate() error {
	var problems []string
	if strings.TrimSpace(req.TargetModel) == "" {
		problems = append(problems, "no target model selected")
	}
	if req.Source.IsZero() {
		problems = append(problems, "no source loaded")
	}
	if len(problems) > 0 {
		return newValidationError(problems...)
	}
	return nil
}

// ImportData persists the records of req.Source into req.TargetModel.
//
// For collection models every record is mapped and created in order, one
// at a time; the first store error stops the batch and is returned as an
// *ImportError. Records created before the failure are kept. For single-type
// models the source's only record is upserted as is and the mapping is not
// applied.
//
// Once a slot is acquired the work is detached from ctx cancellation, so a
// client disconnect does not abandon a half-written batch.
func (s *Service) ImportData(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	desc, err := Lookup(req.TargetModel)
	if err != nil {
		return nil, err
	}

	kind := req.Kind
	if kind == "" {
		kind = desc.Kind
	}
	if kind == CollectionType {
		if err := req.Mapping.ValidateTargets(desc.Fields); err != nil {
			return nil, err
		}
	} else if req.Source.Len() != 1 {
		return nil, newValidationError(fmt.Sprintf("single-type model %s accepts exactly one record, source has %d", desc.UID, req.Source.Len()))
	}

	importID := uuid.NewString()
	release, err := s.limiter.Acquire(ctx, importID, desc.UID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	logger := logging.WithFields(ctx, "import_id", importID, "model", desc.UID, "kind", kind)
	logger.Info("import started", "records", req.Source.Len(), "mapped", req.Mapping != nil)

	start := s.now()
	result := &ImportResult{
		ImportID:    importID,
		TargetModel: desc.UID,
		Kind:        kind,
		IDs:         make([]string, 0, req.Source.Len()),
	}

	if kind == CollectionType {
		err = s.importCollection(ctx, desc.UID, req, result)
	} else {
		err = s.importSingle(ctx, desc.UID, req, result)
	}
	result.Imported = len(result.IDs)
	result.Duration = s.now().Sub(start)

	if err != nil {
		s.recordFailure(ctx, importID, desc.UID, result.Imported, err)
		logger.Error("import failed", "imported", result.Imported, "error", err)
		return nil, err
	}

	s.audit(ctx, AuditLogParams{
		Action:       ActionImport,
		Model:        desc.UID,
		ImportID:     importID,
		RowsAffected: result.Imported,
	})
	s.publish(ctx, Event{
		Type:     EventImportCompleted,
		ImportID: importID,
		Model:    desc.UID,
		Phase:    PhaseSucceeded,
		Count:    result.Imported,
	})
	logger.Info("import completed", "imported", result.Imported, "duration_ms", result.Duration.Milliseconds())

	return result, nil
}

func (s *Service) importCollection(ctx context.Context, model string, req ImportRequest, result *ImportResult) error {
	for i, rec := range req.Source.Batch() {
		data := ApplyMapping(rec, req.Mapping)
		id, err := s.backend.Create(ctx, model, data)
		if err != nil {
			return &ImportError{
				Model: model,
				Index: i,
				Err:   &PersistenceError{Op: "create", Model: model, Err: err},
			}
		}
		result.IDs = append(result.IDs, id)
	}
	return nil
}

func (s *Service) importSingle(ctx context.Context, model string, req ImportRequest, result *ImportResult) error {
	rec, err := req.Source.Single()
	if err != nil {
		return newValidationError(err.Error())
	}
	id, err := s.backend.UpsertSingle(ctx, model, rec)
	if err != nil {
		return &PersistenceError{Op: "upsert", Model: model, Err: err}
	}
	result.IDs = append(result.IDs, id)
	return nil
}

func (s *Service) recordFailure(ctx context.Context, importID, model string, imported int, err error) {
	var failedAt *int
	var importErr *ImportError
	if errors.As(err, &importErr) {
		idx := importErr.Index
		failedAt = &idx
	}

	s.audit(ctx, AuditLogParams{
		Action:       ActionImportFailed,
		Model:        model,
		ImportID:     importID,
		RowsAffected: imported,
		FailedIndex:  failedAt,
		Reason:       err.Error(),
	})
	s.publish(ctx, Event{
		Type:     EventImportFailed,
		ImportID: importID,
		Model:    model,
		Phase:    PhaseFailed,
		Count:    imported,
		FailedAt: failedAt,
		Error:    err.Error(),
	})
}

package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/ContentImport/internal/logging"
)

// DeleteAllData removes every entry of a model and returns how many entries
// existed before the deletion. The operation is bounded by the configured
// delete timeout. On failure no count is returned.
func (s *Service) DeleteAllData(ctx context.Context, uid string) (int, error) {
	desc, err := Lookup(uid)
	if err != nil {
		return 0, err
	}

	deleteCtx, cancel := context.WithTimeout(ctx, s.cfg.DeleteTimeout)
	defer cancel()

	entries, err := s.backend.FindAll(deleteCtx, desc.UID)
	if err != nil {
		return 0, &PersistenceError{Op: "find", Model: desc.UID, Err: err}
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	if len(ids) > 0 {
		if _, err := s.backend.DeleteByIDs(deleteCtx, desc.UID, ids); err != nil {
			return 0, &PersistenceError{Op: "delete", Model: desc.UID, Err: err}
		}
	}

	s.audit(ctx, AuditLogParams{
		Action:       ActionDeleteAll,
		Model:        desc.UID,
		RowsAffected: len(ids),
	})
	s.publish(ctx, Event{
		Type:  EventContentDeleted,
		Model: desc.UID,
		Count: len(ids),
	})
	logging.FromContext(ctx).Info("model emptied", "model", desc.UID, "deleted", len(ids))

	return len(ids), nil
}

// CountEntries returns the number of entries stored for a model.
func (s *Service) CountEntries(ctx context.Context, uid string) (int, error) {
	desc, err := Lookup(uid)
	if err != nil {
		return 0, err
	}
	entries, err := s.backend.FindAll(ctx, desc.UID)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", desc.UID, err)
	}
	return len(entries), nil
}

// Package store implements core.Backend on PostgreSQL, MySQL, and memory.
//
// Entries of every model share one table keyed by a UUID and the model UID.
// Record data is stored as JSON text so field order survives a round trip.
// Single-type models keep their entry under a UUID derived from the model
// UID, which makes upserts idempotent.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// singletonNamespace scopes the deterministic IDs of single-type entries.
var singletonNamespace = uuid.MustParse("6f1c7c1e-3f7e-4d55-9a34-2b8f0e1d5a90")

// SingletonID returns the entry ID used for a single-type model.
func SingletonID(model string) string {
	return uuid.NewSHA1(singletonNamespace, []byte(model)).String()
}

// Open connects the backend selected by cfg.Driver and ensures its tables.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Backend, error) {
	switch cfg.Driver {
	case "postgres", "":
		return OpenPostgres(ctx, cfg)
	case "mysql":
		return OpenMySQL(ctx, cfg)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

func errDuplicateTemplate(name string) error {
	return fmt.Errorf("template '%s' %w for this model", name, core.ErrTemplateExists)
}

func encodeRecord(rec core.Record) (string, error) {
	b, err := rec.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(b), nil
}

func decodeRecord(data []byte) (core.Record, error) {
	var rec core.Record
	if err := rec.UnmarshalJSON(data); err != nil {
		return core.Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func encodeTemplate(tpl core.MappingTemplate) (mapping, fields string, err error) {
	m, err := tpl.Mapping.MarshalJSON()
	if err != nil {
		return "", "", fmt.Errorf("encode mapping: %w", err)
	}
	f, err := jsonAPI.Marshal(tpl.SourceFields)
	if err != nil {
		return "", "", fmt.Errorf("encode source fields: %w", err)
	}
	return string(m), string(f), nil
}

func decodeTemplate(tpl *core.MappingTemplate, mapping, fields []byte) error {
	tpl.Mapping = &core.FieldMapping{}
	if err := tpl.Mapping.UnmarshalJSON(mapping); err != nil {
		return err
	}
	if err := jsonAPI.Unmarshal(fields, &tpl.SourceFields); err != nil {
		return fmt.Errorf("decode source fields: %w", err)
	}
	return nil
}

var (
	_ core.Backend = (*Memory)(nil)
	_ core.Backend = (*Postgres)(nil)
	_ core.Backend = (*MySQL)(nil)
)

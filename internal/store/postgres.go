package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// Postgres implements core.Backend on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool configured from cfg, pings it, and ensures
// the schema exists.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s, err := NewPostgres(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool and ensures the schema exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Data columns are json, not jsonb, so key order is kept.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS content_entries (
  seq        bigserial   PRIMARY KEY,
  id         uuid        NOT NULL UNIQUE,
  model      text        NOT NULL,
  data       json        NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS content_entries_model_idx ON content_entries (model, seq);

CREATE TABLE IF NOT EXISTS mapping_templates (
  id            uuid        PRIMARY KEY,
  model         text        NOT NULL,
  name          text        NOT NULL,
  mapping       json        NOT NULL,
  source_fields json        NOT NULL,
  created_at    timestamptz NOT NULL DEFAULT now(),
  updated_at    timestamptz NOT NULL DEFAULT now(),
  CONSTRAINT mapping_templates_model_name_unique UNIQUE (model, name)
);

CREATE TABLE IF NOT EXISTS import_audit_log (
  id            uuid        PRIMARY KEY,
  action        text        NOT NULL,
  severity      text        NOT NULL,
  model         text        NOT NULL,
  actor         text        NOT NULL DEFAULT '',
  ip_address    text        NOT NULL DEFAULT '',
  user_agent    text        NOT NULL DEFAULT '',
  import_id     text        NOT NULL DEFAULT '',
  rows_affected integer     NOT NULL DEFAULT 0,
  failed_index  integer,
  reason        text        NOT NULL DEFAULT '',
  created_at    timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS import_audit_log_model_idx ON import_audit_log (model, created_at DESC);
`

func (s *Postgres) Create(ctx context.Context, model string, data core.Record) (string, error) {
	body, err := encodeRecord(data)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO content_entries (id, model, data) VALUES ($1, $2, $3)`,
		id, model, body)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Postgres) UpsertSingle(ctx context.Context, model string, data core.Record) (string, error) {
	body, err := encodeRecord(data)
	if err != nil {
		return "", err
	}
	id := SingletonID(model)
	_, err = s.pool.Exec(ctx, `
INSERT INTO content_entries (id, model, data) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		id, model, body)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Postgres) FindAll(ctx context.Context, model string) ([]core.Entry, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id::text, model, data::text, created_at, updated_at
FROM content_entries WHERE model = $1 ORDER BY seq`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]core.Entry, 0)
	for rows.Next() {
		var (
			e    core.Entry
			data string
		)
		if err := rows.Scan(&e.ID, &e.Model, &data, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if e.Data, err = decodeRecord([]byte(data)); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Postgres) DeleteByIDs(ctx context.Context, model string, ids []string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM content_entries WHERE model = $1 AND id = ANY($2::uuid[])`,
		model, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Postgres) SaveTemplate(ctx context.Context, tpl core.MappingTemplate) (core.MappingTemplate, error) {
	mapping, fields, err := encodeTemplate(tpl)
	if err != nil {
		return core.MappingTemplate{}, err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO mapping_templates (id, model, name, mapping, source_fields, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, mapping = EXCLUDED.mapping,
  source_fields = EXCLUDED.source_fields, updated_at = EXCLUDED.updated_at`,
		tpl.ID, tpl.Model, tpl.Name, mapping, fields, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return core.MappingTemplate{}, errDuplicateTemplate(tpl.Name)
		}
		return core.MappingTemplate{}, err
	}
	return tpl, nil
}

const templateColumns = `id::text, model, name, mapping::text, source_fields::text, created_at, updated_at`

func scanTemplate(row pgx.Row) (core.MappingTemplate, error) {
	var (
		tpl             core.MappingTemplate
		mapping, fields string
	)
	if err := row.Scan(&tpl.ID, &tpl.Model, &tpl.Name, &mapping, &fields, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return core.MappingTemplate{}, err
	}
	if err := decodeTemplate(&tpl, []byte(mapping), []byte(fields)); err != nil {
		return core.MappingTemplate{}, fmt.Errorf("template %s: %w", tpl.ID, err)
	}
	return tpl, nil
}

func (s *Postgres) ListTemplates(ctx context.Context, model string) ([]core.MappingTemplate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM mapping_templates WHERE model = $1 ORDER BY name`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.MappingTemplate, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *Postgres) GetTemplate(ctx context.Context, id string) (core.MappingTemplate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM mapping_templates WHERE id = $1`, id)
	tpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.MappingTemplate{}, core.ErrTemplateNotFound
	}
	return tpl, err
}

func (s *Postgres) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mapping_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrTemplateNotFound
	}
	return nil
}

func (s *Postgres) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO import_audit_log
  (id, action, severity, model, actor, ip_address, user_agent, import_id, rows_affected, failed_index, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, string(e.Action), string(e.Severity), e.Model, e.Actor, e.IPAddress, e.UserAgent,
		e.ImportID, e.RowsAffected, e.FailedIndex, e.Reason, e.CreatedAt)
	return err
}

func (s *Postgres) ListAudit(ctx context.Context, filter core.AuditFilter) ([]core.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id::text, action, severity, model, actor, ip_address, user_agent, import_id,
       rows_affected, failed_index, reason, created_at
FROM import_audit_log
WHERE ($1 = '' OR model = $1) AND ($2 = '' OR action = $2)
ORDER BY created_at DESC
LIMIT $3`, filter.Model, string(filter.Action), filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.AuditEntry, 0)
	for rows.Next() {
		var (
			e         core.AuditEntry
			action    string
			severity  string
			failedIdx *int32
			createdAt time.Time
		)
		if err := rows.Scan(&e.ID, &action, &severity, &e.Model, &e.Actor, &e.IPAddress, &e.UserAgent,
			&e.ImportID, &e.RowsAffected, &failedIdx, &e.Reason, &createdAt); err != nil {
			return nil, err
		}
		e.Action = core.AuditAction(action)
		e.Severity = core.AuditSeverity(severity)
		e.CreatedAt = createdAt
		if failedIdx != nil {
			idx := int(*failedIdx)
			e.FailedIndex = &idx
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) Close() {
	s.pool.Close()
}

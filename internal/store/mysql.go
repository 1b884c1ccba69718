package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
)

// mysqlDuplicateEntry is the server error number for duplicate keys.
const mysqlDuplicateEntry = 1062

// MySQL implements core.Backend on database/sql with go-sql-driver/mysql.
type MySQL struct {
	db *sql.DB
}

// OpenMySQL connects using a go-sql-driver DSN
// ("user:pass@tcp(host:3306)/db"), pings, and ensures the schema exists.
func OpenMySQL(ctx context.Context, cfg config.DatabaseConfig) (*MySQL, error) {
	dsn, err := mysql.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.MultiStatements = false
	if dsn.Params == nil {
		dsn.Params = make(map[string]string)
	}
	if _, ok := dsn.Params["charset"]; !ok {
		dsn.Params["charset"] = "utf8mb4"
	}

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s, err := NewMySQL(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQL wraps an open database and ensures the schema exists.
func NewMySQL(ctx context.Context, db *sql.DB) (*MySQL, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	for _, ddl := range mysqlSchema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return &MySQL{db: db}, nil
}

// Data columns are LONGTEXT because the JSON type reorders keys.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS content_entries (
  seq        BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
  id         CHAR(36)    NOT NULL,
  model      VARCHAR(255) NOT NULL,
  data       LONGTEXT    NOT NULL,
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL,
  UNIQUE KEY content_entries_id (id),
  KEY content_entries_model_idx (model, seq)
) DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS mapping_templates (
  id            CHAR(36)     NOT NULL PRIMARY KEY,
  model         VARCHAR(255) NOT NULL,
  name          VARCHAR(255) NOT NULL,
  mapping       LONGTEXT     NOT NULL,
  source_fields LONGTEXT     NOT NULL,
  created_at    DATETIME(6)  NOT NULL,
  updated_at    DATETIME(6)  NOT NULL,
  UNIQUE KEY mapping_templates_model_name_unique (model, name)
) DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS import_audit_log (
  id            CHAR(36)     NOT NULL PRIMARY KEY,
  action        VARCHAR(64)  NOT NULL,
  severity      VARCHAR(16)  NOT NULL,
  model         VARCHAR(255) NOT NULL,
  actor         VARCHAR(255) NOT NULL DEFAULT '',
  ip_address    VARCHAR(64)  NOT NULL DEFAULT '',
  user_agent    TEXT         NOT NULL,
  import_id     VARCHAR(36)  NOT NULL DEFAULT '',
  rows_affected INT          NOT NULL DEFAULT 0,
  failed_index  INT          NULL,
  reason        TEXT         NOT NULL,
  created_at    DATETIME(6)  NOT NULL,
  KEY import_audit_log_model_idx (model, created_at)
) DEFAULT CHARSET=utf8mb4`,
}

func (s *MySQL) Create(ctx context.Context, model string, data core.Record) (string, error) {
	body, err := encodeRecord(data)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO content_entries (id, model, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, model, body, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *MySQL) UpsertSingle(ctx context.Context, model string, data core.Record) (string, error) {
	body, err := encodeRecord(data)
	if err != nil {
		return "", err
	}
	id := SingletonID(model)
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO content_entries (id, model, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)`,
		id, model, body, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *MySQL) FindAll(ctx context.Context, model string) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, model, data, created_at, updated_at
FROM content_entries WHERE model = ? ORDER BY seq`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]core.Entry, 0)
	for rows.Next() {
		var (
			e    core.Entry
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.Model, &data, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if e.Data, err = decodeRecord(data); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *MySQL) DeleteByIDs(ctx context.Context, model string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, model)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM content_entries WHERE model = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *MySQL) SaveTemplate(ctx context.Context, tpl core.MappingTemplate) (core.MappingTemplate, error) {
	mapping, fields, err := encodeTemplate(tpl)
	if err != nil {
		return core.MappingTemplate{}, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO mapping_templates (id, model, name, mapping, source_fields, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE name = VALUES(name), mapping = VALUES(mapping),
  source_fields = VALUES(source_fields), updated_at = VALUES(updated_at)`,
		tpl.ID, tpl.Model, tpl.Name, mapping, fields, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return core.MappingTemplate{}, errDuplicateTemplate(tpl.Name)
		}
		return core.MappingTemplate{}, err
	}
	return tpl, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMySQLTemplate(row rowScanner) (core.MappingTemplate, error) {
	var (
		tpl             core.MappingTemplate
		mapping, fields []byte
	)
	if err := row.Scan(&tpl.ID, &tpl.Model, &tpl.Name, &mapping, &fields, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return core.MappingTemplate{}, err
	}
	if err := decodeTemplate(&tpl, mapping, fields); err != nil {
		return core.MappingTemplate{}, fmt.Errorf("template %s: %w", tpl.ID, err)
	}
	return tpl, nil
}

func (s *MySQL) ListTemplates(ctx context.Context, model string) ([]core.MappingTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, model, name, mapping, source_fields, created_at, updated_at
FROM mapping_templates WHERE model = ? ORDER BY name`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.MappingTemplate, 0)
	for rows.Next() {
		tpl, err := scanMySQLTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *MySQL) GetTemplate(ctx context.Context, id string) (core.MappingTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, model, name, mapping, source_fields, created_at, updated_at
FROM mapping_templates WHERE id = ?`, id)
	tpl, err := scanMySQLTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MappingTemplate{}, core.ErrTemplateNotFound
	}
	return tpl, err
}

func (s *MySQL) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mapping_templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrTemplateNotFound
	}
	return nil
}

func (s *MySQL) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	var failedIdx sql.NullInt32
	if e.FailedIndex != nil {
		failedIdx = sql.NullInt32{Int32: int32(*e.FailedIndex), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO import_audit_log
  (id, action, severity, model, actor, ip_address, user_agent, import_id, rows_affected, failed_index, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Action), string(e.Severity), e.Model, e.Actor, e.IPAddress, e.UserAgent,
		e.ImportID, e.RowsAffected, failedIdx, e.Reason, e.CreatedAt)
	return err
}

func (s *MySQL) ListAudit(ctx context.Context, filter core.AuditFilter) ([]core.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, action, severity, model, actor, ip_address, user_agent, import_id,
       rows_affected, failed_index, reason, created_at
FROM import_audit_log
WHERE (? = '' OR model = ?) AND (? = '' OR action = ?)
ORDER BY created_at DESC
LIMIT ?`, filter.Model, filter.Model, string(filter.Action), string(filter.Action), filter.Limit)
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
			failedIdx sql.NullInt32
		)
		if err := rows.Scan(&e.ID, &action, &severity, &e.Model, &e.Actor, &e.IPAddress, &e.UserAgent,
			&e.ImportID, &e.RowsAffected, &failedIdx, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = core.AuditAction(action)
		e.Severity = core.AuditSeverity(severity)
		if failedIdx.Valid {
			idx := int(failedIdx.Int32)
			e.FailedIndex = &idx
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *MySQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQL) Close() {
	s.db.Close()
}

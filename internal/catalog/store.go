// File path: internal/catalog/store.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nicodishanthj/copybase/internal/copybook"
	"github.com/nicodishanthj/copybase/internal/service"
)

// Store wraps a pooled sqlx.DB connection to the parse-run catalog. The
// catalog records run metadata and schema layouts only; decoded record
// content is never persisted.
type Store struct {
	db *sqlx.DB
}

// Run is one recorded parse run.
type Run struct {
	ID             int64     `db:"id" json:"id"`
	Copybook       string    `db:"copybook" json:"copybook"`
	Fingerprint    string    `db:"fingerprint" json:"fingerprint"`
	RecordLength   int       `db:"record_length" json:"record_length"`
	FieldsParsed   int       `db:"fields_parsed" json:"fields_parsed"`
	RulesExtracted int       `db:"rules_extracted" json:"rules_extracted"`
	RecordsDecoded int       `db:"records_decoded" json:"records_decoded"`
	ErrorCount     int       `db:"error_count" json:"error_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SchemaField is one persisted field layout row belonging to a run.
type SchemaField struct {
	RunID      int64  `db:"run_id" json:"run_id"`
	Level      int    `db:"level" json:"level"`
	Name       string `db:"name" json:"name"`
	Pic        string `db:"pic" json:"pic,omitempty"`
	Usage      string `db:"usage" json:"usage,omitempty"`
	Occurs     int    `db:"occurs" json:"occurs,omitempty"`
	Redefines  string `db:"redefines" json:"redefines,omitempty"`
	ByteOffset int    `db:"byte_offset" json:"byte_offset"`
	ByteLength int    `db:"byte_length" json:"byte_length"`
	Ordinal    int    `db:"ordinal" json:"ordinal"`
}

// Open constructs a Store backed by the SQLite database at the provided
// path, migrating the schema on first use.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("catalog path required")
	}
	cfg.applyDefaults()
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`PRAGMA journal_mode = WAL;`,
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS runs (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                copybook TEXT NOT NULL,
                fingerprint TEXT NOT NULL,
                record_length INTEGER NOT NULL,
                fields_parsed INTEGER NOT NULL,
                rules_extracted INTEGER NOT NULL,
                records_decoded INTEGER NOT NULL,
                error_count INTEGER NOT NULL,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS schema_fields (
                run_id INTEGER NOT NULL,
                ordinal INTEGER NOT NULL,
                level INTEGER NOT NULL,
                name TEXT NOT NULL,
                pic TEXT,
                usage TEXT,
                occurs INTEGER NOT NULL DEFAULT 0,
                redefines TEXT,
                byte_offset INTEGER NOT NULL,
                byte_length INTEGER NOT NULL,
                PRIMARY KEY (run_id, ordinal),
                FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
        );`,
	`CREATE INDEX IF NOT EXISTS idx_runs_copybook ON runs(copybook, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_schema_fields_run ON schema_fields(run_id);`,
}

// RecordRun persists the outcome of one parse run together with the field
// layout of its schema.
func (s *Store) RecordRun(ctx context.Context, name, fingerprint string, schema *copybook.Schema, meta service.Metadata) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("catalog store not initialised")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin run insert: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs(copybook, fingerprint, record_length, fields_parsed, rules_extracted, records_decoded, error_count)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, fingerprint, meta.RecordLength, meta.FieldsParsed, meta.RulesExtracted, meta.RecordsDecoded, meta.ErrorsEncountered)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("run id: %w", err)
	}
	if schema != nil && schema.Root != nil {
		ordinal := 0
		var walkErr error
		schema.Root.Walk(func(field *copybook.Field) {
			if walkErr != nil || field.Level == 0 {
				return
			}
			ordinal++
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_fields(run_id, ordinal, level, name, pic, usage, occurs, redefines, byte_offset, byte_length)
                                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, ordinal, field.Level, field.Name, field.Pic, string(field.Usage), field.Occurs, field.Redefines, field.ByteOff, field.ByteLen); err != nil {
				walkErr = fmt.Errorf("insert schema field %s: %w", field.Name, err)
			}
		})
		if walkErr != nil {
			tx.Rollback()
			return 0, walkErr
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns recent parse runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	runs := []Run{}
	if err := s.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}

// FieldsForRun returns the persisted field layout of one run in declaration
// order.
func (s *Store) FieldsForRun(ctx context.Context, runID int64) ([]SchemaField, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	fields := []SchemaField{}
	if err := s.db.SelectContext(ctx, &fields, `SELECT * FROM schema_fields WHERE run_id = ? ORDER BY ordinal`, runID); err != nil {
		return nil, fmt.Errorf("select schema fields: %w", err)
	}
	return fields, nil
}

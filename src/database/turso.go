package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	perrors "promptforge/src/errors"
	"promptforge/src/logger"
	"promptforge/src/templates"
)

// TursoDB is a template backend on a local libSQL database. Each row keeps
// the full JSON record alongside the columns used for ordering.
type TursoDB struct {
	db  *sql.DB
	tx  *TxManager
	log *logger.Logger
}

var _ templates.Backend = (*TursoDB)(nil)

// NewTursoDB opens (creating if needed) the database at dbPath
func NewTursoDB(dbPath string, log *logger.Logger) (*TursoDB, error) {
	if log == nil {
		log = logger.Nop()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	tdb := &TursoDB{db: db, tx: NewTxManager(db), log: log}
	if err := tdb.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Debug("opened template database", "path", dbPath)

	return tdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (t *TursoDB) initSchema() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS templates (
		template_id TEXT PRIMARY KEY,
		schema_version INTEGER NOT NULL,
		name TEXT NOT NULL,
		mode TEXT NOT NULL,
		created_date TEXT NOT NULL,
		record TEXT NOT NULL
	)`
	if _, err := t.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create templates table: %w", err)
	}

	indexSQL := `CREATE INDEX IF NOT EXISTS idx_templates_created ON templates(created_date)`
	if _, err := t.db.Exec(indexSQL); err != nil {
		return fmt.Errorf("failed to create created_date index: %w", err)
	}

	return nil
}

// Put inserts or replaces a template record
func (t *TursoDB) Put(tmpl *templates.Template) error {
	record, err := templates.EncodeRecord(tmpl)
	if err != nil {
		return err
	}

	upsertSQL := `
	INSERT INTO templates (template_id, schema_version, name, mode, created_date, record)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(template_id) DO UPDATE SET
		schema_version = excluded.schema_version,
		name = excluded.name,
		mode = excluded.mode,
		record = excluded.record
	`

	return t.tx.ExecuteInWriteTransaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(upsertSQL, tmpl.TemplateID, tmpl.SchemaVersion, tmpl.Name,
			string(tmpl.Mode), tmpl.CreatedDate.UTC().Format(time.RFC3339Nano), string(record))
		if err != nil {
			return fmt.Errorf("failed to store template: %w", err)
		}
		return nil
	})
}

// Get loads a single record
func (t *TursoDB) Get(id string) (*templates.Template, error) {
	var record string
	err := t.tx.ExecuteInReadTransaction(context.Background(), func(tx *sql.Tx) error {
		return tx.QueryRow(`SELECT record FROM templates WHERE template_id = ?`, id).Scan(&record)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &perrors.NotFoundError{TemplateID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query template: %w", err)
	}
	return templates.DecodeRecord([]byte(record))
}

// List returns every readable record; rows that fail to decode are logged
// and skipped.
func (t *TursoDB) List() ([]*templates.Template, error) {
	var records []struct {
		id     string
		record string
	}

	err := t.tx.ExecuteInReadTransaction(context.Background(), func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT template_id, record FROM templates ORDER BY created_date DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r struct {
				id     string
				record string
			}
			if err := rows.Scan(&r.id, &r.record); err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	out := make([]*templates.Template, 0, len(records))
	for _, r := range records {
		tmpl, err := templates.DecodeRecord([]byte(r.record))
		if err != nil {
			t.log.Warn("skipping unreadable template", "template_id", r.id, "error", err)
			continue
		}
		out = append(out, tmpl)
	}
	return out, nil
}

// Remove deletes a record, reporting NotFoundError if no row matched
func (t *TursoDB) Remove(id string) error {
	var affected int64
	err := t.tx.ExecuteInWriteTransaction(context.Background(), func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM templates WHERE template_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete template: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return &perrors.NotFoundError{TemplateID: id}
	}
	return nil
}

// Close closes the database connection
func (t *TursoDB) Close() error {
	return t.db.Close()
}

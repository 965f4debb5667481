package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/karakuri/shirabe/internal/models"
)

// SQLiteStore implements Store on a SQLite database. Snapshots are normalized
// into per-key document and passage tables; Save replaces a key's rows in one
// transaction, so a crashed write never leaves a half-replaced snapshot.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		project_hash TEXT NOT NULL,
		last_updated TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		key TEXT NOT NULL,
		id TEXT NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		source_path TEXT,
		metadata TEXT,
		created_at TIMESTAMP,
		PRIMARY KEY (key, id)
	);

	CREATE TABLE IF NOT EXISTS embedded_passages (
		key TEXT NOT NULL,
		passage_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		sequence_index INTEGER NOT NULL,
		vector TEXT NOT NULL,
		PRIMARY KEY (key, passage_id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_key ON documents(key);
	CREATE INDEX IF NOT EXISTS idx_passages_key ON embedded_passages(key);
	`
	_, err := db.Exec(schema)
	return err
}

// Save replaces the snapshot rows for key in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, key string, idx *models.Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		"DELETE FROM snapshots WHERE key = ?",
		"DELETE FROM documents WHERE key = ?",
		"DELETE FROM embedded_passages WHERE key = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, key); err != nil {
			return fmt.Errorf("clear prior snapshot: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (key, project_hash, last_updated) VALUES (?, ?, ?)",
		key, idx.ProjectHash, idx.LastUpdated.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert snapshot row: %w", err)
	}

	for _, doc := range idx.Documents {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (key, id, title, content, source_path, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			key, doc.ID, doc.Title, doc.Content, doc.SourcePath, string(metadataJSON),
			doc.CreatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	}

	for _, p := range idx.EmbeddedPassages {
		vectorJSON, err := json.Marshal(p.Vector)
		if err != nil {
			return fmt.Errorf("marshal vector: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO embedded_passages (key, passage_id, document_id, content, sequence_index, vector)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			key, p.PassageID, p.DocumentID, p.Content, p.SequenceIndex, string(vectorJSON),
		); err != nil {
			return fmt.Errorf("insert passage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reassembles the snapshot for key, preserving insertion order via rowid.
// Returns (nil, nil) when no snapshot exists for key.
func (s *SQLiteStore) Load(ctx context.Context, key string) (*models.Index, error) {
	var idx models.Index
	var lastUpdated string
	err := s.db.QueryRowContext(ctx,
		"SELECT project_hash, last_updated FROM snapshots WHERE key = ?", key,
	).Scan(&idx.ProjectHash, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot row: %w", err)
	}
	if idx.LastUpdated, err = time.Parse(time.RFC3339Nano, lastUpdated); err != nil {
		return nil, fmt.Errorf("parse last_updated: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, source_path, metadata, created_at
		 FROM documents WHERE key = ? ORDER BY rowid`, key)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()
	idx.Documents = make([]models.Document, 0)
	for rows.Next() {
		var doc models.Document
		var metadataJSON, createdAt string
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.SourcePath, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if metadataJSON != "" && metadataJSON != "null" {
			if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		idx.Documents = append(idx.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	prows, err := s.db.QueryContext(ctx,
		`SELECT passage_id, document_id, content, sequence_index, vector
		 FROM embedded_passages WHERE key = ? ORDER BY rowid`, key)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	defer prows.Close()
	idx.EmbeddedPassages = make([]models.EmbeddedPassage, 0)
	for prows.Next() {
		var p models.EmbeddedPassage
		var vectorJSON string
		if err := prows.Scan(&p.PassageID, &p.DocumentID, &p.Content, &p.SequenceIndex, &vectorJSON); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		if err := json.Unmarshal([]byte(vectorJSON), &p.Vector); err != nil {
			return nil, fmt.Errorf("unmarshal vector: %w", err)
		}
		idx.EmbeddedPassages = append(idx.EmbeddedPassages, p)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}

	return &idx, nil
}

// Exists reports whether a snapshot row exists for key.
func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM snapshots WHERE key = ?", key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes all rows for key; absent keys are a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range []string{
		"DELETE FROM snapshots WHERE key = ?",
		"DELETE FROM documents WHERE key = ?",
		"DELETE FROM embedded_passages WHERE key = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, key); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
	}
	return tx.Commit()
}

// Size returns the stored byte size of the snapshot's content and vectors,
// 0 when absent.
func (s *SQLiteStore) Size(ctx context.Context, key string) (int64, error) {
	var docBytes, passageBytes sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT SUM(LENGTH(content) + LENGTH(COALESCE(metadata, ''))) FROM documents WHERE key = ?", key,
	).Scan(&docBytes)
	if err != nil {
		return 0, err
	}
	err = s.db.QueryRowContext(ctx,
		"SELECT SUM(LENGTH(content) + LENGTH(vector)) FROM embedded_passages WHERE key = ?", key,
	).Scan(&passageBytes)
	if err != nil {
		return 0, err
	}
	return docBytes.Int64 + passageBytes.Int64, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shubh-37/music-brief-analyzer/internal/datastore"
)

// SQLiteDocumentRepository is the single-file backend for local runs
type SQLiteDocumentRepository struct {
	db *sql.DB
}

var _ datastore.Backend = (*SQLiteDocumentRepository)(nil)

func NewSQLiteDocumentRepository(dbPath string) (*SQLiteDocumentRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	repo := &SQLiteDocumentRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteDocumentRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		table_name TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (table_name, id)
	);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate sqlite store: %w", err)
	}
	return nil
}

func (r *SQLiteDocumentRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteDocumentRepository) Save(ctx context.Context, table, id string, data []byte) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (table_name, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (table_name, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, table, id, string(data), now, now)
	if err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}
	return id, nil
}

func (r *SQLiteDocumentRepository) Load(ctx context.Context, table, id string) ([]byte, bool, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE table_name = ? AND id = ?`, table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load document: %w", err)
	}
	return []byte(data), true, nil
}

func (r *SQLiteDocumentRepository) Search(ctx context.Context, table string, limit int) ([]datastore.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE table_name = ? LIMIT ?`, table, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var items []datastore.Item
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		items = append(items, datastore.Item{ID: id, Data: []byte(data)})
	}
	return items, rows.Err()
}

func (r *SQLiteDocumentRepository) Delete(ctx context.Context, table, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE table_name = ? AND id = ?`, table, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (r *SQLiteDocumentRepository) Count(ctx context.Context, table string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE table_name = ?`, table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shubh-37/music-brief-analyzer/internal/datastore"
)

// DocumentRepository stores datastore documents in Postgres
type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ datastore.Backend = (*DocumentRepository)(nil)

// Save inserts a new document, or replaces the data of an existing one
func (r *DocumentRepository) Save(ctx context.Context, table, id string, data []byte) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}

	query := `
		INSERT INTO documents (table_name, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (table_name, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.Pool.Exec(ctx, query, table, id, data); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	return id, nil
}

// Load retrieves a document by id
func (r *DocumentRepository) Load(ctx context.Context, table, id string) ([]byte, bool, error) {
	query := `SELECT data FROM documents WHERE table_name = $1 AND id = $2`

	var data []byte
	err := r.db.Pool.QueryRow(ctx, query, table, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load document: %w", err)
	}

	return data, true, nil
}

// Search lists up to limit documents of a table
func (r *DocumentRepository) Search(ctx context.Context, table string, limit int) ([]datastore.Item, error) {
	query := `
		SELECT id::text, data
		FROM documents
		WHERE table_name = $1
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, table, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var items []datastore.Item
	for rows.Next() {
		var item datastore.Item
		var data []byte
		if err := rows.Scan(&item.ID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		item.Data = data
		items = append(items, item)
	}

	return items, rows.Err()
}

// Delete deletes a document by id. Deleting a missing document is not an error.
func (r *DocumentRepository) Delete(ctx context.Context, table, id string) error {
	query := `DELETE FROM documents WHERE table_name = $1 AND id = $2`

	if _, err := r.db.Pool.Exec(ctx, query, table, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// Count returns total number of documents in a table
func (r *DocumentRepository) Count(ctx context.Context, table string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents WHERE table_name = $1`

	if err := r.db.Pool.QueryRow(ctx, query, table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	return count, nil
}

package database

import (
	"context"
	"fmt"
	"log"
)

// CreateTables creates the documents table shared by every collection
func (db *DB) CreateTables(ctx context.Context) error {
	log.Println("Creating database tables...")

	documentsTable := `
	CREATE TABLE IF NOT EXISTS documents (
		table_name VARCHAR(100) NOT NULL,
		id UUID NOT NULL DEFAULT gen_random_uuid(),
		data JSONB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (table_name, id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_table ON documents(table_name);
	`

	if _, err := db.Pool.Exec(ctx, documentsTable); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	log.Println("✅ All tables created successfully")
	return nil
}

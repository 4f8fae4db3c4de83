package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These enable efficient full-text search over message content; no query
// in this module uses them.
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_messages_content_gin
		ON messages USING gin(to_tsvector('english', content))`)
	if err != nil {
		return fmt.Errorf("failed to create messages content GIN index: %w", err)
	}
	return nil
}

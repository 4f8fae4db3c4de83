// Package database provides a disposable *sql.DB for integration tests
// against pkg/store and pkg/vectorstore, backed by a testcontainers
// PostgreSQL instance (or CI_DATABASE_URL in CI) with pkg/database's
// embedded migrations applied.
package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roleplay/memoryruntime/pkg/database"
	"github.com/roleplay/memoryruntime/test/util"
)

// NewTestClient returns a migrated *sql.DB pointed at a disposable
// PostgreSQL instance. The connection is closed by t.Cleanup when the test
// ends. Tests that need isolation should wrap operations in a transaction
// they roll back, since the underlying container/schema is shared across
// the test binary.
func NewTestClient(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	connStr := util.GetBaseConnectionString(t)
	db, err := database.NewClientFromDSN(ctx, connStr)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

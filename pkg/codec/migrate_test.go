package codec_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roleplay/memoryruntime/pkg/codec"
	testdb "github.com/roleplay/memoryruntime/test/database"
)

// migrateProbeV1/V2 model a table whose struct shape evolves across two
// releases: v2 adds a column v1 never declared and renames nothing else,
// so Migrate's add-missing-column path runs against a live table instead
// of a fixture.
type migrateProbeV1 struct {
	ID        string    `db:"id,pk"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (migrateProbeV1) TableName() string { return "migrate_probe" }

type migrateProbeV2 struct {
	ID        string    `db:"id,pk"`
	Name      string    `db:"name"`
	Priority  int64     `db:"priority"`
	CreatedAt time.Time `db:"created_at"`
}

func (migrateProbeV2) TableName() string { return "migrate_probe" }

type migrateProbeV3 struct {
	ID        string    `db:"id,pk"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (migrateProbeV3) TableName() string { return "migrate_probe" }

func (migrateProbeV3) DroppedColumns() []string { return []string{"priority"} }

// migrateProbeRetyped reinterprets created_at (TIMESTAMPTZ live) as a plain
// string column, to exercise Migrate's type-mismatch-refusal path.
type migrateProbeRetyped struct {
	ID        string `db:"id,pk"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

func (migrateProbeRetyped) TableName() string { return "migrate_probe" }

func TestMigrateAddsMissingColumn(t *testing.T) {
	db := testdb.NewTestClient(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS migrate_probe")
	require.NoError(t, err)
	ddl, err := codec.DDL(migrateProbeV1{})
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, ddl)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.ExecContext(context.Background(), "DROP TABLE IF EXISTS migrate_probe") })
	_, err = db.ExecContext(ctx, "INSERT INTO migrate_probe (id, name, created_at) VALUES ('probe-1', 'existing row', now())")
	require.NoError(t, err)

	report, err := codec.Migrate(ctx, db, migrateProbeV2{})
	require.NoError(t, err)
	assert.Equal(t, []string{"priority"}, report.Added)
	assert.Empty(t, report.TypeMismatches)

	var priority int64
	require.NoError(t, db.QueryRowContext(ctx, "SELECT priority FROM migrate_probe LIMIT 1").Scan(&priority))
}

func TestMigrateRefusesTypeChangeAndReportsIt(t *testing.T) {
	db := testdb.NewTestClient(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS migrate_probe")
	require.NoError(t, err)
	ddl, err := codec.DDL(migrateProbeV1{})
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, ddl)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.ExecContext(context.Background(), "DROP TABLE IF EXISTS migrate_probe") })

	report, err := codec.Migrate(ctx, db, migrateProbeRetyped{})
	require.NoError(t, err)
	require.Len(t, report.TypeMismatches, 1)
	assert.Contains(t, report.TypeMismatches[0], "created_at")

	var dataType string
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT data_type FROM information_schema.columns WHERE table_name = 'migrate_probe' AND column_name = 'created_at'").
		Scan(&dataType))
	assert.Equal(t, "timestamp with time zone", dataType, "a refused mismatch must not alter the live column")
}

func TestMigrateDropsOptedInColumn(t *testing.T) {
	db := testdb.NewTestClient(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS migrate_probe")
	require.NoError(t, err)
	ddl, err := codec.DDL(migrateProbeV1{})
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, ddl)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.ExecContext(context.Background(), "DROP TABLE IF EXISTS migrate_probe") })

	_, err = codec.Migrate(ctx, db, migrateProbeV2{})
	require.NoError(t, err)

	report, err := codec.Migrate(ctx, db, migrateProbeV3{})
	require.NoError(t, err)
	assert.Equal(t, []string{"priority"}, report.Dropped)

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.columns WHERE table_name = 'migrate_probe' AND column_name = 'priority'").
		Scan(&count))
	assert.Equal(t, 0, count)
}

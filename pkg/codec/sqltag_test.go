package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID        string    `db:"id,pk"`
	Name      string    `db:"name"`
	Count     int64     `db:"count"`
	Weight    float64   `db:"weight"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	Internal  string    `db:"-"`
	Untagged  string
}

func (widget) TableName() string { return "widgets" }

func TestColumnsSkipsUntaggedAndDashFields(t *testing.T) {
	cols := Columns(widget{})
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "name", "count", "weight", "active", "created_at"}, names)
}

func TestColumnsMarksPrimaryKey(t *testing.T) {
	cols := Columns(widget{})
	assert.True(t, cols[0].PrimaryKey)
	for _, c := range cols[1:] {
		assert.False(t, c.PrimaryKey, "column %s should not be marked pk", c.Name)
	}
}

func TestPrimaryKey(t *testing.T) {
	pk, err := PrimaryKey(widget{})
	require.NoError(t, err)
	assert.Equal(t, "id", pk)
}

type noKey struct {
	Name string `db:"name"`
}

func (noKey) TableName() string { return "no_keys" }

func TestPrimaryKeyErrorsWithoutPKTag(t *testing.T) {
	_, err := PrimaryKey(noKey{})
	require.Error(t, err)
}

func TestDDLRendersCreateTableWithPrimaryKey(t *testing.T) {
	ddl, err := DDL(widget{})
	require.NoError(t, err)
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS widgets (")
	assert.Contains(t, ddl, "id TEXT PRIMARY KEY")
	assert.Contains(t, ddl, "count BIGINT")
	assert.Contains(t, ddl, "weight DOUBLE PRECISION")
	assert.Contains(t, ddl, "active BOOLEAN")
	assert.Contains(t, ddl, "created_at TIMESTAMPTZ")
}

func TestDDLErrorsForNonTabler(t *testing.T) {
	_, err := DDL(struct{ X int }{})
	require.Error(t, err)
}

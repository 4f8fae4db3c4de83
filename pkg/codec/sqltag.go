// Package codec implements the tool-call and relational codecs described in
// spec §4.1 (C1). Rather than the generated ent.Client the teacher relies
// on, structs in pkg/models carry `db:"column"` tags that this package
// reads via reflection to drive DDL generation and the pkg/store Criteria
// engine — the same "schema drives storage" idea as ent/schema, implemented
// without code generation.
package codec

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Tabler is implemented by every pkg/models type; it names the relational
// table the struct is persisted to.
type Tabler interface {
	TableName() string
}

// Column describes one mapped struct field.
type Column struct {
	Name       string // SQL column name
	FieldIndex int    // index into reflect.Value.Field
	GoType     reflect.Type
	PrimaryKey bool
	OmitEmpty  bool
}

// Columns reflects over v (a struct or pointer to struct) and returns its
// mapped columns in field-declaration order, which is also the order
// placeholders are assigned when building parameterized SQL (spec §4.1).
func Columns(v any) []Column {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	cols := make([]Column, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		col := Column{Name: parts[0], FieldIndex: i, GoType: f.Type}
		for _, mod := range parts[1:] {
			switch mod {
			case "pk":
				col.PrimaryKey = true
			case "omitempty":
				col.OmitEmpty = true
			}
		}
		cols = append(cols, col)
	}
	return cols
}

// PrimaryKey returns the name of v's primary-key column.
func PrimaryKey(v any) (string, error) {
	for _, c := range Columns(v) {
		if c.PrimaryKey {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("codec: %T has no db:\"...,pk\" field", v)
}

// sqlType maps a Go field type to a PostgreSQL column type for DDL
// generation. Unrecognized types fall back to TEXT rather than failing,
// since a handful of exotic field types are easier to widen later than to
// block migration generation on.
func sqlType(t reflect.Type) string {
	switch {
	case t == reflect.TypeOf(time.Time{}):
		return "TIMESTAMPTZ"
	case t.Kind() == reflect.Bool:
		return "BOOLEAN"
	case t.Kind() == reflect.Int || t.Kind() == reflect.Int64 || t.Kind() == reflect.Int32:
		return "BIGINT"
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// DDL renders a CREATE TABLE IF NOT EXISTS statement for v, inferring
// column types from struct field types. pkg/database/migrations owns the
// hand-written schema; within this module DDL is called only by tests.
func DDL(v any) (string, error) {
	t, ok := v.(Tabler)
	if !ok {
		return "", fmt.Errorf("codec: %T does not implement Tabler", v)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.TableName())
	cols := Columns(v)
	lines := make([]string, 0, len(cols))
	for _, c := range cols {
		line := fmt.Sprintf("  %s %s", c.Name, sqlType(c.GoType))
		if c.PrimaryKey {
			line += " PRIMARY KEY"
		}
		lines = append(lines, line)
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	return b.String(), nil
}

// defaultValue renders a type-appropriate SQL default literal for a Go
// field type, used by Migrate when adding a missing column (spec §4.1:
// "adds missing columns with type-appropriate defaults").
func defaultValue(t reflect.Type) string {
	switch {
	case t == reflect.TypeOf(time.Time{}):
		return "now()"
	case t.Kind() == reflect.Bool:
		return "false"
	case t.Kind() == reflect.Int, t.Kind() == reflect.Int64, t.Kind() == reflect.Int32,
		t.Kind() == reflect.Float32, t.Kind() == reflect.Float64:
		return "0"
	default:
		return "''"
	}
}

// pgDataType is sqlType's column type rendered the way Postgres reports it
// back in information_schema.columns.data_type, so Migrate can compare a
// struct field's intended type against what's actually live without a
// second, divergent type table.
func pgDataType(sqlCol string) string {
	switch sqlCol {
	case "TIMESTAMPTZ":
		return "timestamp with time zone"
	case "BOOLEAN":
		return "boolean"
	case "BIGINT":
		return "bigint"
	case "DOUBLE PRECISION":
		return "double precision"
	default:
		return "text"
	}
}

// Dropper is optionally implemented by a pkg/models type to opt in to
// having columns it no longer declares dropped by Migrate (spec §4.1:
// "optionally drops columns if a per-type opt-in is set"). Types that
// don't implement it keep every live column untouched, even orphaned ones.
type Dropper interface {
	DroppedColumns() []string
}

// MigrationReport summarizes what Migrate did and what it refused to do.
type MigrationReport struct {
	Added          []string
	Dropped        []string
	TypeMismatches []string // "column: want X, have Y" — reported, never auto-fixed
}

// Migrate reconciles v's live table against its current struct shape (spec
// §4.1's SQL object codec migrator): it adds columns the struct declares
// that the table doesn't have yet, drops columns the table has that the
// struct no longer declares IF v implements Dropper and names them, and
// refuses to change a live column's type on mismatch, reporting it instead.
// Per-table update triggers are disabled for the duration of the bulk
// ALTER TABLE statement (spec §6: "per-table triggers are disabled for the
// duration of bulk alters") and re-enabled immediately after, whether or
// not the migration succeeded.
func Migrate(ctx context.Context, db *sql.DB, v any) (MigrationReport, error) {
	t, ok := v.(Tabler)
	if !ok {
		return MigrationReport{}, fmt.Errorf("codec: %T does not implement Tabler", v)
	}
	table := t.TableName()

	live, err := liveColumns(ctx, db, table)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("codec: migrate %s: inspect live columns: %w", table, err)
	}

	var report MigrationReport
	var alters []string

	for _, c := range Columns(v) {
		wantType := sqlType(c.GoType)
		haveType, exists := live[c.Name]
		switch {
		case !exists:
			alters = append(alters, fmt.Sprintf("ADD COLUMN IF NOT EXISTS %s %s NOT NULL DEFAULT %s",
				c.Name, wantType, defaultValue(c.GoType)))
			report.Added = append(report.Added, c.Name)
		case !strings.EqualFold(haveType, pgDataType(wantType)):
			report.TypeMismatches = append(report.TypeMismatches,
				fmt.Sprintf("%s: want %s, have %s", c.Name, pgDataType(wantType), haveType))
		}
	}

	if dropper, ok := v.(Dropper); ok {
		for _, name := range dropper.DroppedColumns() {
			if _, exists := live[name]; exists {
				alters = append(alters, fmt.Sprintf("DROP COLUMN IF EXISTS %s", name))
				report.Dropped = append(report.Dropped, name)
			}
		}
	}

	if len(alters) == 0 {
		return report, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("codec: migrate %s: begin: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DISABLE TRIGGER USER", table)); err != nil {
		return report, fmt.Errorf("codec: migrate %s: disable triggers: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s %s", table, strings.Join(alters, ", "))); err != nil {
		return report, fmt.Errorf("codec: migrate %s: alter: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ENABLE TRIGGER USER", table)); err != nil {
		return report, fmt.Errorf("codec: migrate %s: enable triggers: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("codec: migrate %s: commit: %w", table, err)
	}
	return report, nil
}

func liveColumns(ctx context.Context, db *sql.DB, table string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = $1`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		cols[name] = dataType
	}
	return cols, rows.Err()
}

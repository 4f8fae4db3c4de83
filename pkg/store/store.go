package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/roleplay/memoryruntime/pkg/codec"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting every Store
// method run unmodified inside or outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store executes Criteria-driven CRUD against PostgreSQL using ent's
// dialect/sql builder for parameterized statement construction and
// database/sql (backed by the pgx driver registered in pkg/database) for
// execution.
type Store struct {
	db execer
	tx *sql.Tx // non-nil only for a Store returned by WithTx
}

// New wraps an already-open *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithTx opens a transaction, runs fn against a Store scoped to it, and
// commits on success or rolls back on any error — the "one transaction
// around the Message+Log write" boundary spec §5 requires of C9's request
// isolation, and §4.4 step 5's "commit the enclosing transaction" for C7.
func (s *Store) WithTx(ctx context.Context, fn func(txStore *Store) error) error {
	root, ok := s.db.(*sql.DB)
	if !ok {
		return fmt.Errorf("store: WithTx called on an already-scoped transaction Store")
	}
	tx, err := root.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	if err := fn(&Store{db: tx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// MigrateSchema reconciles each of tables' live columns against its current
// Go struct shape via codec.Migrate (spec §4.1's SQL object codec
// migrator): add-missing/drop-opted-in/refuse-type-change, online against
// the connected database. This runs after pkg/database's golang-migrate
// step at startup — golang-migrate owns the versioned schema history, this
// is the drift-reconciliation pass spec C2 names as "online schema
// migration" alongside it, mirroring pkg/agent.Preload's find-or-create-
// then-reconcile shape applied to table columns instead of config rows.
// Type mismatches are logged, never auto-corrected (spec §4.1: "refuses to
// change column types but reports mismatches").
func (s *Store) MigrateSchema(ctx context.Context, tables ...codec.Tabler) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return fmt.Errorf("store: MigrateSchema requires a root *sql.DB, not a transaction-scoped Store")
	}
	for _, t := range tables {
		report, err := codec.Migrate(ctx, db, t)
		if err != nil {
			return fmt.Errorf("store: migrate %T: %w", t, err)
		}
		for _, mismatch := range report.TypeMismatches {
			slog.Warn("store: schema drift refused (type change not auto-applied)",
				"table", t.TableName(), "mismatch", mismatch)
		}
		if len(report.Added) > 0 || len(report.Dropped) > 0 {
			slog.Info("store: reconciled schema drift",
				"table", t.TableName(), "added", report.Added, "dropped", report.Dropped)
		}
	}
	return nil
}

// Create inserts v (a pointer to a pkg/models struct) and returns the
// generated error, if any.
func (s *Store) Create(ctx context.Context, v codec.Tabler) error {
	cols := codec.Columns(v)
	rv := reflect.ValueOf(v).Elem()

	builder := entsql.Dialect("postgres").Insert(v.TableName())
	names := make([]string, 0, len(cols))
	values := make([]any, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
		values = append(values, rv.Field(c.FieldIndex).Interface())
	}
	builder.Columns(names...).Values(values...)

	query, args := builder.Query()
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", v.TableName(), err)
	}
	return nil
}

// Update applies the non-primary-key fields of v to every row matching
// criteria on v's table.
func (s *Store) Update(ctx context.Context, v codec.Tabler, criteria *Criteria) error {
	cols := codec.Columns(v)
	rv := reflect.ValueOf(v).Elem()

	builder := entsql.Dialect("postgres").Update(v.TableName())
	for _, c := range cols {
		if c.PrimaryKey {
			continue
		}
		builder.Set(c.Name, rv.Field(c.FieldIndex).Interface())
	}
	if pred := buildPredicate(criteria); pred != nil {
		builder.Where(pred)
	}

	query, args := builder.Query()
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", v.TableName(), err)
	}
	return nil
}

// AnnotateMemorySummary writes the memory_summary audit payload (spec
// §4.5.6 step 5) and sets is_in_memory onto the message identified by id,
// satisfying pkg/memory.MessageAnnotator without pkg/memory needing to
// import the full Criteria/codec machinery.
func (s *Store) AnnotateMemorySummary(ctx context.Context, id, summaryJSON string) error {
	builder := entsql.Dialect("postgres").Update("messages").
		Set("summary", summaryJSON).
		Set("is_in_memory", true).
		Where(entsql.EQ("id", id))
	query, args := builder.Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: annotate memory summary: %w", err)
	}
	return nil
}

// DeleteByCriteria deletes every row of table matching criteria.
func (s *Store) DeleteByCriteria(ctx context.Context, table string, criteria *Criteria) error {
	builder := entsql.Dialect("postgres").Delete(table)
	if pred := buildPredicate(criteria); pred != nil {
		builder.Where(pred)
	}
	query, args := builder.Query()
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: delete from %s: %w", table, err)
	}
	return nil
}

// FindByCriteria populates dst, a pointer to a slice of a pkg/models
// struct, with every row matching criteria.
func (s *Store) FindByCriteria(ctx context.Context, dst any, table string, criteria *Criteria) error {
	sliceVal := reflect.ValueOf(dst).Elem()
	elemType := sliceVal.Type().Elem()
	zero := reflect.New(elemType).Interface()
	cols := codec.Columns(zero)

	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}

	builder := entsql.Dialect("postgres").Select(names...).From(entsql.Table(table))
	if pred := buildPredicate(criteria); pred != nil {
		builder.Where(pred)
	}
	applyCriteriaShape(builder, criteria, table)

	query, args := builder.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: find by criteria on %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		rowVal := reflect.New(elemType)
		if err := scanInto(rows, cols, rowVal); err != nil {
			return fmt.Errorf("store: scan %s row: %w", table, err)
		}
		sliceVal.Set(reflect.Append(sliceVal, rowVal.Elem()))
	}
	return rows.Err()
}

// ErrNotFound is returned by FindOneByCriteria when no row matches.
var ErrNotFound = fmt.Errorf("store: no matching row")

// FindOneByCriteria populates dst (a pointer to a pkg/models struct) with
// the first row matching criteria, or returns ErrNotFound.
func (s *Store) FindOneByCriteria(ctx context.Context, dst any, table string, criteria *Criteria) error {
	one := criteria.WithLimit(1)
	listType := reflect.SliceOf(reflect.TypeOf(dst).Elem())
	list := reflect.New(listType)
	if err := s.FindByCriteria(ctx, list.Interface(), table, one); err != nil {
		return err
	}
	sliceVal := list.Elem()
	if sliceVal.Len() == 0 {
		return ErrNotFound
	}
	reflect.ValueOf(dst).Elem().Set(sliceVal.Index(0))
	return nil
}

func buildPredicate(criteria *Criteria) *entsql.Predicate {
	if criteria == nil || (len(criteria.Conditions) == 0 && criteria.Similarity == nil) {
		return nil
	}
	preds := make([]*entsql.Predicate, 0, len(criteria.Conditions)+1)
	for _, cond := range criteria.Conditions {
		preds = append(preds, predicateFor(cond))
	}
	if criteria.Similarity != nil {
		preds = append(preds, similarityPredicate(*criteria.Similarity))
	}
	if len(preds) == 1 {
		return preds[0]
	}
	return entsql.And(preds...)
}

func predicateFor(c Condition) *entsql.Predicate {
	switch c.Op {
	case OpEQ:
		return entsql.EQ(c.Column, c.Value)
	case OpNEQ:
		return entsql.NEQ(c.Column, c.Value)
	case OpGT:
		return entsql.GT(c.Column, c.Value)
	case OpGTE:
		return entsql.GTE(c.Column, c.Value)
	case OpLT:
		return entsql.LT(c.Column, c.Value)
	case OpLTE:
		return entsql.LTE(c.Column, c.Value)
	case OpIN:
		return entsql.In(c.Column, toArgs(c.Value)...)
	case OpLike:
		return entsql.Like(c.Column, fmt.Sprintf("%v", c.Value))
	default:
		return entsql.EQ(c.Column, c.Value)
	}
}

func toArgs(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// similarityPredicate renders `1 - (alias <=> vector) >= threshold` using
// pgvector's cosine-distance operator `<=>`.
func similarityPredicate(sim Similarity) *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		b.WriteString("(1 - (")
		b.Ident(sim.Alias)
		b.WriteString(" <=> ")
		b.Arg(vectorLiteral(sim.Vector))
		b.WriteString(")) >= ")
		b.Arg(sim.Threshold)
	})
}

func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func applyCriteriaShape(builder *entsql.Selector, criteria *Criteria, _ string) {
	if criteria == nil {
		return
	}
	if criteria.Similarity != nil {
		builder.OrderExpr(entsql.P(func(b *entsql.Builder) {
			b.WriteString("(")
			b.Ident(criteria.Similarity.Alias)
			b.WriteString(" <=> ")
			b.Arg(vectorLiteral(criteria.Similarity.Vector))
			b.WriteString(") ASC")
		}))
	}
	for _, ord := range criteria.OrderBy {
		if ord.Desc {
			builder.OrderBy(entsql.Desc(ord.Column))
		} else {
			builder.OrderBy(entsql.Asc(ord.Column))
		}
	}
	if criteria.Limit != nil {
		builder.Limit(*criteria.Limit)
	}
	if criteria.Offset != nil {
		builder.Offset(*criteria.Offset)
	}
}

// scanInto scans the current row into rowVal (a *reflect.Value pointer to a
// pkg/models struct), converting between SQL-scannable pointers and the
// struct's Go-typed fields.
func scanInto(rows *sql.Rows, cols []codec.Column, rowVal reflect.Value) error {
	elem := rowVal.Elem()
	dests := make([]any, len(cols))
	raw := make([]any, len(cols))
	for i, c := range cols {
		switch {
		case c.GoType == reflect.TypeOf(time.Time{}):
			raw[i] = new(time.Time)
		case c.GoType.Kind() == reflect.Bool:
			raw[i] = new(bool)
		case c.GoType.Kind() == reflect.Int || c.GoType.Kind() == reflect.Int64:
			raw[i] = new(int64)
		case c.GoType.Kind() == reflect.Float32 || c.GoType.Kind() == reflect.Float64:
			raw[i] = new(float64)
		default:
			raw[i] = new(string)
		}
		dests[i] = raw[i]
	}
	if err := rows.Scan(dests...); err != nil {
		return err
	}
	for i, c := range cols {
		field := elem.Field(c.FieldIndex)
		switch p := raw[i].(type) {
		case *time.Time:
			field.Set(reflect.ValueOf(*p))
		case *bool:
			field.SetBool(*p)
		case *int64:
			field.SetInt(*p)
		case *float64:
			field.SetFloat(*p)
		case *string:
			field.SetString(*p)
		}
	}
	return nil
}

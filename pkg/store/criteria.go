// Package store implements the relational store (C2, spec §4.2) on top of
// ent's standalone dialect/sql query builder — the one piece of
// entgo.io/ent the teacher imports that is not generated code, which lets
// this system keep using the real ent dependency without ever running
// `go generate`.
package store

import "fmt"

// Operator is a comparison operator usable in a Condition.
type Operator string

const (
	OpEQ   Operator = "="
	OpNEQ  Operator = "!="
	OpGT   Operator = ">"
	OpGTE  Operator = ">="
	OpLT   Operator = "<"
	OpLTE  Operator = "<="
	OpIN   Operator = "IN"
	OpLike Operator = "LIKE"
)

// Condition is one typed filter term in a Criteria.
type Condition struct {
	Column string
	Op     Operator
	Value  any
}

// OrderTerm is one column in an ORDER BY clause.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Similarity adds a `1 − cosine(embedding, Vector) ≥ Threshold` predicate,
// ordering results by similarity descending, over the column named Alias
// (spec §4.2 Criteria.similarity).
type Similarity struct {
	Alias     string
	Vector    []float32
	Threshold float64
}

// Criteria is an accumulator of typed conditions, optional ordering,
// optional limit/offset, and an optional similarity search, exactly as
// described in spec §4.2. Queries built from a Criteria are parameterized;
// placeholders are assigned in argument-insertion order.
type Criteria struct {
	Conditions []Condition
	OrderBy    []OrderTerm
	Limit      *int
	Offset     *int
	Similarity *Similarity
}

// Where appends a condition and returns the receiver for chaining.
func (c *Criteria) Where(column string, op Operator, value any) *Criteria {
	c.Conditions = append(c.Conditions, Condition{Column: column, Op: op, Value: value})
	return c
}

// Order appends an ordering term.
func (c *Criteria) Order(column string, desc bool) *Criteria {
	c.OrderBy = append(c.OrderBy, OrderTerm{Column: column, Desc: desc})
	return c
}

// WithLimit sets the row limit.
func (c *Criteria) WithLimit(n int) *Criteria {
	c.Limit = &n
	return c
}

// WithOffset sets the row offset.
func (c *Criteria) WithOffset(n int) *Criteria {
	c.Offset = &n
	return c
}

// WithSimilarity attaches a vector-similarity predicate and sort.
func (c *Criteria) WithSimilarity(alias string, vector []float32, threshold float64) *Criteria {
	c.Similarity = &Similarity{Alias: alias, Vector: vector, Threshold: threshold}
	return c
}

// NewCriteria returns an empty Criteria for table-agnostic construction at
// call sites.
func NewCriteria() *Criteria {
	return &Criteria{}
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Column, c.Op, c.Value)
}

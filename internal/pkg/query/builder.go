// Package query builds parameterized Cloud Spanner SELECT and DELETE
// statements.
package query

import (
	"fmt"
	"strings"

	"cloud.google.com/go/spanner"
)

// Direction represents ORDER BY direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Builder constructs SQL SELECT queries for Cloud Spanner.
// Every method returns a new Builder, so a base query can be shared.
// Parameter names are generated (@p0, @p1, ...) in condition order.
type Builder struct {
	table        string
	selectCols   []string
	whereClauses []Condition
	orderBy      []order
	limitVal     int64
	delete       bool
}

type order struct {
	column    string
	direction Direction
}

// From creates a new Builder for the specified table.
func From(table string) *Builder {
	return &Builder{table: table}
}

// Select appends columns to retrieve. Without columns the query selects *.
func (b *Builder) Select(columns ...string) *Builder {
	nb := b.clone()
	nb.selectCols = append(nb.selectCols, columns...)
	return nb
}

// Where adds a WHERE condition. Conditions are combined with AND.
func (b *Builder) Where(condition Condition) *Builder {
	nb := b.clone()
	nb.whereClauses = append(nb.whereClauses, condition)
	return nb
}

// OrderBy appends a sort key.
func (b *Builder) OrderBy(column string, direction Direction) *Builder {
	nb := b.clone()
	nb.orderBy = append(nb.orderBy, order{column: column, direction: direction})
	return nb
}

// Limit sets the maximum number of rows to return.
func (b *Builder) Limit(limit int64) *Builder {
	nb := b.clone()
	nb.limitVal = limit
	return nb
}

// Count returns a COUNT(*) query with the same table and conditions.
func (b *Builder) Count() *Builder {
	nb := b.clone()
	nb.selectCols = []string{"COUNT(*)"}
	nb.orderBy = nil
	nb.limitVal = 0
	return nb
}

// Delete turns the query into a DML DELETE with the same table and
// conditions. Spanner rejects a DELETE without WHERE.
func (b *Builder) Delete() *Builder {
	nb := b.clone()
	nb.delete = true
	nb.selectCols = nil
	nb.orderBy = nil
	nb.limitVal = 0
	return nb
}

// Build constructs the final spanner.Statement with SQL and parameters.
func (b *Builder) Build() spanner.Statement {
	var sql strings.Builder
	params := make(map[string]interface{})

	if b.delete {
		sql.WriteString("DELETE FROM ")
	} else {
		sql.WriteString("SELECT ")
		if len(b.selectCols) == 0 {
			sql.WriteString("*")
		} else {
			sql.WriteString(strings.Join(b.selectCols, ", "))
		}
		sql.WriteString(" FROM ")
	}
	sql.WriteString(b.table)

	if len(b.whereClauses) > 0 {
		sql.WriteString(" WHERE ")
		parts := make([]string, 0, len(b.whereClauses))
		paramIndex := 0
		for _, condition := range b.whereClauses {
			fragment, condParams := condition.SQL(paramIndex)
			parts = append(parts, fragment)
			for k, v := range condParams {
				params[k] = v
			}
			paramIndex += len(condParams)
		}
		sql.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		keys := make([]string, 0, len(b.orderBy))
		for _, o := range b.orderBy {
			dir := "ASC"
			if o.direction == Desc {
				dir = "DESC"
			}
			keys = append(keys, o.column+" "+dir)
		}
		sql.WriteString(strings.Join(keys, ", "))
	}

	if b.limitVal > 0 {
		sql.WriteString(" LIMIT @limit")
		params["limit"] = b.limitVal
	}

	return spanner.Statement{
		SQL:    sql.String(),
		Params: params,
	}
}

func (b *Builder) clone() *Builder {
	nb := &Builder{
		table:        b.table,
		selectCols:   make([]string, len(b.selectCols)),
		whereClauses: make([]Condition, len(b.whereClauses)),
		orderBy:      make([]order, len(b.orderBy)),
		limitVal:     b.limitVal,
		delete:       b.delete,
	}
	copy(nb.selectCols, b.selectCols)
	copy(nb.whereClauses, b.whereClauses)
	copy(nb.orderBy, b.orderBy)
	return nb
}

// String returns a human-readable representation for debugging.
func (b *Builder) String() string {
	stmt := b.Build()
	return fmt.Sprintf("SQL: %s\nParams: %v", stmt.SQL, stmt.Params)
}

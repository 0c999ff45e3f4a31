// Package querybuilder renders the SQL shapes the run archive issues:
// tag-driven inserts and filtered, ordered selects. Placeholders are
// positional ($1..$n) as lib/pq expects.
package querybuilder

import (
	"fmt"
	"strings"
)

// Condition is one WHERE predicate with its bound argument.
type Condition struct {
	column string
	value  any
}

// Eq matches rows whose column equals value.
func Eq(column string, value any) Condition {
	return Condition{column: column, value: value}
}

// SelectBuilder accumulates the pieces of one SELECT statement. Conditions
// are combined with AND.
type SelectBuilder struct {
	columns []string
	table   string
	wheres  []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.wheres = append(b.wheres, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

// Limit caps the result rows. Zero or negative leaves the query unbounded.
func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}

	var buf strings.Builder
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(b.columns, ", "))
	buf.WriteString(" FROM ")
	buf.WriteString(b.table)

	args := make([]any, 0, len(b.wheres))
	for i, cond := range b.wheres {
		if i == 0 {
			buf.WriteString(" WHERE ")
		} else {
			buf.WriteString(" AND ")
		}
		args = append(args, cond.value)
		fmt.Fprintf(&buf, "%s = $%d", cond.column, len(args))
	}

	if len(b.orderBy) > 0 {
		buf.WriteString(" ORDER BY ")
		buf.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		fmt.Fprintf(&buf, " LIMIT %d", b.limit)
	}

	return buf.String(), args, nil
}

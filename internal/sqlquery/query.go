// Package sqlquery implements the guest-facing SQL query builder: typed
// Select/Insert/Update/Delete builders, a filter algebra, join specification,
// and an entity descriptor contract. Builders compile to a Query carrying
// parameterised SQL and a portable wire value vector; execution against a
// real database is a separate capability (internal/sqlexec).
package sqlquery

import (
	"fmt"
	"strings"

	"github.com/sandhost/capahost/internal/wire"
)

// Query is the compiled form every builder produces: SQL text with
// left-to-right $1..$n placeholders, and the parameter vector in the same
// order.
type Query struct {
	SQL    string
	Params []wire.Value
}

// CountPlaceholders returns the highest $N placeholder index referenced in
// sql, which equals the placeholder count when they run $1..$n without gaps.
// Used by tests to assert the universal invariant that every compiled Query
// has countPlaceholders(sql) == len(params).
func CountPlaceholders(sql string) int {
	max := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] != '$' {
			continue
		}
		j := i + 1
		for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
			j++
		}
		if j > i+1 {
			var n int
			fmt.Sscanf(sql[i+1:j], "%d", &n)
			if n > max {
				max = n
			}
		}
	}
	return max
}

// quotedColumn formats a double-quoted "table"."column" reference.
func quotedColumn(table, column string) string {
	return fmt.Sprintf(`"%s"."%s"`, table, column)
}

// placeholders returns n comma-joined `?` markers, e.g. placeholders(3) == "?,?,?".
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ",")
}

// renumberDollar rewrites every `?` in sql to sequential $N placeholders,
// starting at startAt, and returns the sql plus the next free index. This is
// the manual counterpart to squirrel.Dollar's placeholder rewriting, for a
// fragment assembled outside a squirrel builder. No builder in this package
// calls it: Select.Build numbers its LIMIT/OFFSET placeholders directly from
// the parameter count.
func renumberDollar(sql string, startAt int) (string, int) {
	var b strings.Builder
	n := startAt
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' {
			b.WriteString(fmt.Sprintf("$%d", n))
			n++
			continue
		}
		b.WriteByte(sql[i])
	}
	return b.String(), n
}

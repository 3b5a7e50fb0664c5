package sqlquery

import (
	"fmt"
	"strings"

	"github.com/sandhost/capahost/internal/wire"
)

// Filter is a tagged predicate tree. Leaves carry an optional table
// qualifier, a column, and value(s); combinators compose leaves and other
// combinators. A nil table qualifier on a leaf resolves against whatever
// default table the enclosing builder (or Join) supplies at render time.
type Filter interface {
	// render compiles the filter against defaultTable, returning a SQL
	// fragment with `?` placeholders and the parameter values in
	// left-to-right encounter order.
	render(defaultTable string) (string, []wire.Value)

	// On re-qualifies a comparison leaf's table. Combinators and ColEq
	// pass through unchanged, matching the original ORM's behaviour.
	On(table string) Filter
}

type leafKind int

const (
	leafEq leafKind = iota
	leafGt
	leafLt
	leafLte
	leafLike
)

type comparisonLeaf struct {
	kind  leafKind
	table *string
	col   string
	val   wire.Value
}

func (f comparisonLeaf) render(defaultTable string) (string, []wire.Value) {
	tbl := defaultTable
	if f.table != nil {
		tbl = *f.table
	}
	op := map[leafKind]string{leafEq: "=", leafGt: ">", leafLt: "<", leafLte: "<=", leafLike: "LIKE"}[f.kind]
	return fmt.Sprintf("%s %s ?", quotedColumn(tbl, f.col), op), []wire.Value{f.val}
}

func (f comparisonLeaf) On(table string) Filter {
	f.table = &table
	return f
}

// Eq creates an equality filter (column = value).
func Eq(col string, val wire.Value) Filter { return comparisonLeaf{kind: leafEq, col: col, val: val} }

// Gt creates a greater-than filter (column > value).
func Gt(col string, val wire.Value) Filter { return comparisonLeaf{kind: leafGt, col: col, val: val} }

// Lt creates a less-than filter (column < value).
func Lt(col string, val wire.Value) Filter { return comparisonLeaf{kind: leafLt, col: col, val: val} }

// Lte creates a less-than-or-equal filter (column <= value).
func Lte(col string, val wire.Value) Filter { return comparisonLeaf{kind: leafLte, col: col, val: val} }

// Like creates a pattern-match filter (column LIKE pattern).
func Like(col, pattern string) Filter {
	return comparisonLeaf{kind: leafLike, col: col, val: wire.Str(pattern)}
}

type inLeaf struct {
	table *string
	col   string
	vals  []wire.Value
}

func (f inLeaf) render(defaultTable string) (string, []wire.Value) {
	tbl := defaultTable
	if f.table != nil {
		tbl = *f.table
	}
	if len(f.vals) == 0 {
		// Degenerate but well-formed: IN (NULL) can never match, and still
		// carries a single parameter slot so callers relying on
		// len(params) >= 1 are never surprised by an empty IN.
		return fmt.Sprintf("%s IN (?)", quotedColumn(tbl, f.col)), []wire.Value{wire.Nil(wire.TagStr)}
	}
	return fmt.Sprintf("%s IN (%s)", quotedColumn(tbl, f.col), placeholders(len(f.vals))), f.vals
}

func (f inLeaf) On(table string) Filter { f.table = &table; return f }

// In creates an IN filter (column IN (values)).
func In(col string, vals ...wire.Value) Filter { return inLeaf{col: col, vals: vals} }

type nullLeaf struct {
	table *string
	col   string
	not   bool
}

func (f nullLeaf) render(defaultTable string) (string, []wire.Value) {
	tbl := defaultTable
	if f.table != nil {
		tbl = *f.table
	}
	if f.not {
		return quotedColumn(tbl, f.col) + " IS NOT NULL", nil
	}
	return quotedColumn(tbl, f.col) + " IS NULL", nil
}

func (f nullLeaf) On(table string) Filter { f.table = &table; return f }

// IsNull creates an IS NULL filter.
func IsNull(col string) Filter { return nullLeaf{col: col} }

// IsNotNull creates an IS NOT NULL filter.
func IsNotNull(col string) Filter { return nullLeaf{col: col, not: true} }

// colEq compares two columns across tables for equality: table1.col1 = table2.col2.
type colEq struct {
	table1, col1, table2, col2 string
}

func (f colEq) render(string) (string, []wire.Value) {
	return quotedColumn(f.table1, f.col1) + " = " + quotedColumn(f.table2, f.col2), nil
}

// On is a no-op for ColEq: both sides already carry explicit table names.
func (f colEq) On(string) Filter { return f }

// ColEq compares two columns for equality across tables.
func ColEq(table1, col1, table2, col2 string) Filter {
	return colEq{table1: table1, col1: col1, table2: table2, col2: col2}
}

type combinator struct {
	op       string // "AND" or "OR"
	empty    string // "TRUE" or "FALSE"
	children []Filter
}

func (f combinator) render(defaultTable string) (string, []wire.Value) {
	if len(f.children) == 0 {
		return f.empty, nil
	}
	parts := make([]string, len(f.children))
	var params []wire.Value
	for i, c := range f.children {
		frag, p := c.render(defaultTable)
		parts[i] = "(" + frag + ")"
		params = append(params, p...)
	}
	return strings.Join(parts, " "+f.op+" "), params
}

// On passes through unchanged: combinators do not recursively re-qualify
// their children, matching the original ORM's `.on()` semantics.
func (f combinator) On(string) Filter { return f }

// And combines filters with logical AND. An empty And folds to TRUE.
func And(filters ...Filter) Filter { return combinator{op: "AND", empty: "TRUE", children: filters} }

// Or combines filters with logical OR. An empty Or folds to FALSE.
func Or(filters ...Filter) Filter { return combinator{op: "OR", empty: "FALSE", children: filters} }

type notFilter struct {
	inner Filter
}

func (f notFilter) render(defaultTable string) (string, []wire.Value) {
	frag, params := f.inner.render(defaultTable)
	return "NOT (" + frag + ")", params
}

// On passes through unchanged, matching And/Or.
func (f notFilter) On(string) Filter { return f }

// Not negates a filter. Not of Not is unspecified (not normalised).
func Not(f Filter) Filter { return notFilter{inner: f} }

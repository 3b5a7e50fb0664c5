package sqlquery

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/sandhost/capahost/internal/logger"
	"github.com/sandhost/capahost/internal/wire"
)

// aliasedColumn is one ColumnAs("t.c", "alias") registration.
type aliasedColumn struct {
	alias, srcTable, srcColumn string
}

// SelectBuilder builds a parameterised SELECT query.
type SelectBuilder struct {
	table   string
	columns []string
	aliases []aliasedColumn
	filters []Filter
	joins   []Join
	order   []orderSpec
	limit   *uint64
	offset  *uint64
}

type orderSpec struct {
	column string
	desc   bool
}

// Select creates a SELECT builder targeting table.
func Select(table string) *SelectBuilder {
	return &SelectBuilder{table: table}
}

// Columns sets the columns to project. If neither Columns nor ColumnAs is
// called, the builder defaults to SELECT *.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// ColumnAs projects an aliased column from a joined table. source must be
// "table.column".
func (b *SelectBuilder) ColumnAs(source, alias string) *SelectBuilder {
	tbl, col, ok := splitTableColumn(source)
	if !ok {
		panic(fmt.Sprintf(`sqlquery: ColumnAs source must be "table.column", got %q`, source))
	}
	b.aliases = append(b.aliases, aliasedColumn{alias: alias, srcTable: tbl, srcColumn: col})
	return b
}

func splitTableColumn(source string) (table, column string, ok bool) {
	for i := 0; i < len(source); i++ {
		if source[i] == '.' {
			return source[:i], source[i+1:], true
		}
	}
	return "", "", false
}

// Where adds a WHERE filter. Multiple calls combine with AND in
// filter-insertion order.
func (b *SelectBuilder) Where(f Filter) *SelectBuilder {
	b.filters = append(b.filters, f)
	return b
}

// Join adds a join clause, rendered in insertion order after FROM.
func (b *SelectBuilder) Join(j Join) *SelectBuilder {
	b.joins = append(b.joins, j)
	return b
}

// OrderBy adds an ORDER BY clause; dir of true means descending.
func (b *SelectBuilder) OrderBy(column string, desc bool) *SelectBuilder {
	b.order = append(b.order, orderSpec{column: column, desc: desc})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n uint64) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip.
func (b *SelectBuilder) Offset(n uint64) *SelectBuilder {
	b.offset = &n
	return b
}

// Build compiles the SELECT query.
//
// squirrel assembles the projection/FROM/JOIN/WHERE skeleton (its Dollar
// placeholder format renumbers every `?` left to right); LIMIT/OFFSET are
// appended by hand afterwards because squirrel's own Limit/Offset render
// literal numbers rather than placeholders, which the rendering contract
// requires.
func (b *SelectBuilder) Build() (Query, error) {
	var projection []string
	if len(b.columns) == 0 && len(b.aliases) == 0 {
		projection = []string{"*"}
	} else {
		for _, c := range b.columns {
			projection = append(projection, quotedColumn(b.table, c))
		}
		for _, a := range b.aliases {
			projection = append(projection, fmt.Sprintf("%s AS %q", quotedColumn(a.srcTable, a.srcColumn), a.alias))
		}
	}

	stmt := sq.Select(strings.Join(projection, ",")).From(quoteIdent(b.table))

	var params []wire.Value
	for _, j := range b.joins {
		frag, p := j.On.render(j.Table)
		stmt = stmt.JoinClause(fmt.Sprintf("%s %s ON %s", j.Kind.sql(), quoteIdent(j.Table), frag), rawArgs(p)...)
		params = append(params, p...)
	}
	for _, f := range b.filters {
		frag, p := f.render(b.table)
		stmt = stmt.Where(sq.Expr(frag, rawArgs(p)...))
		params = append(params, p...)
	}
	for _, o := range b.order {
		dir := "ASC"
		if o.desc {
			dir = "DESC"
		}
		stmt = stmt.OrderBy(fmt.Sprintf("%s %s", quotedColumn(b.table, o.column), dir))
	}

	sql, _, err := stmt.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return Query{}, fmt.Errorf("sqlquery: build select: %w", err)
	}

	if b.limit != nil {
		sql += fmt.Sprintf(" LIMIT $%d", len(params)+1)
		params = append(params, wire.Uint64(*b.limit))
	}
	if b.offset != nil {
		sql += fmt.Sprintf(" OFFSET $%d", len(params)+1)
		params = append(params, wire.Uint64(*b.offset))
	}

	logger.SQL().Debug().Str("table", b.table).Str("sql", sql).Int("param_count", len(params)).Msg("SelectBuilder generated SQL")

	return Query{SQL: sql, Params: params}, nil
}

// FromEntity defaults the projection to entity's declared columns qualified
// by its table, matching the "default projection" rendering rule.
func (b *SelectBuilder) FromEntity(e Entity) *SelectBuilder {
	return b.Columns(e.Columns()...)
}

func quoteIdent(ident string) string {
	return fmt.Sprintf("%q", ident)
}

// rawArgs converts wire values to the raw interface{} slice squirrel
// expects when assembling a Sqlizer fragment. The returned args are used
// only so squirrel's ToSql() succeeds structurally; the authoritative
// parameter vector is the wire.Value slice tracked alongside each call.
func rawArgs(vals []wire.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v.RawValue()
	}
	return out
}

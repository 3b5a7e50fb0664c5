package sqlquery

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sandhost/capahost/internal/logger"
	"github.com/sandhost/capahost/internal/wire"
)

// UpdateBuilder builds a parameterised UPDATE query.
type UpdateBuilder struct {
	table   string
	columns []string
	values  []wire.Value
	filters []Filter
}

// Update creates an UPDATE builder targeting table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set adds a `column = value` assignment in call order.
func (b *UpdateBuilder) Set(column string, value wire.Value) *UpdateBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// SetIf is a no-op when present is false, otherwise behaves like Set.
func (b *UpdateBuilder) SetIf(column string, value wire.Value, present bool) *UpdateBuilder {
	if !present {
		return b
	}
	return b.Set(column, value)
}

// Where adds a WHERE filter, combined with AND in insertion order.
func (b *UpdateBuilder) Where(f Filter) *UpdateBuilder {
	b.filters = append(b.filters, f)
	return b
}

// Build compiles the UPDATE query.
func (b *UpdateBuilder) Build() (Query, error) {
	stmt := sq.Update(quoteIdent(b.table))
	for i, col := range b.columns {
		stmt = stmt.Set(quoteIdent(col), b.values[i].RawValue())
	}

	var params []wire.Value
	params = append(params, b.values...)
	for _, f := range b.filters {
		frag, p := f.render(b.table)
		stmt = stmt.Where(sq.Expr(frag, rawArgs(p)...))
		params = append(params, p...)
	}

	sql, _, err := stmt.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return Query{}, fmt.Errorf("sqlquery: build update: %w", err)
	}

	logger.SQL().Debug().Str("table", b.table).Str("sql", sql).Msg("UpdateBuilder generated SQL")

	return Query{SQL: sql, Params: params}, nil
}

package sqlquery

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sandhost/capahost/internal/logger"
	"github.com/sandhost/capahost/internal/wire"
)

// DeleteBuilder builds a parameterised DELETE query.
type DeleteBuilder struct {
	table   string
	filters []Filter
}

// Delete creates a DELETE builder targeting table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where adds a WHERE filter, combined with AND in insertion order. With no
// filters, Build deletes all rows in the table.
func (b *DeleteBuilder) Where(f Filter) *DeleteBuilder {
	b.filters = append(b.filters, f)
	return b
}

// Build compiles the DELETE query.
func (b *DeleteBuilder) Build() (Query, error) {
	stmt := sq.Delete(quoteIdent(b.table))

	var params []wire.Value
	for _, f := range b.filters {
		frag, p := f.render(b.table)
		stmt = stmt.Where(sq.Expr(frag, rawArgs(p)...))
		params = append(params, p...)
	}

	sql, _, err := stmt.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return Query{}, fmt.Errorf("sqlquery: build delete: %w", err)
	}

	logger.SQL().Debug().Str("table", b.table).Str("sql", sql).Msg("DeleteBuilder generated SQL")

	return Query{SQL: sql, Params: params}, nil
}

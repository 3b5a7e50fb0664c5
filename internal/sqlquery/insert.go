package sqlquery

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sandhost/capahost/internal/logger"
	"github.com/sandhost/capahost/internal/wire"
)

// InsertBuilder builds a parameterised INSERT query.
type InsertBuilder struct {
	table   string
	columns []string
	values  []wire.Value
}

// Insert creates an INSERT builder targeting table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Set adds one (column, value) pair in call order.
func (b *InsertBuilder) Set(column string, value wire.Value) *InsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// FromEntity walks entity's declared columns in field order, pulling each
// value from values (expected to be produced by the caller's own
// ToValues-equivalent in the same order as entity.Columns()).
func (b *InsertBuilder) FromEntity(e Entity, values ToValues) *InsertBuilder {
	byColumn := make(map[string]wire.Value, len(values))
	for _, f := range values {
		byColumn[f.Column] = f.Value
	}
	for _, col := range e.Columns() {
		b.Set(col, byColumn[col])
	}
	return b
}

// Build compiles the INSERT query.
func (b *InsertBuilder) Build() (Query, error) {
	quotedColumns := make([]string, len(b.columns))
	for i, c := range b.columns {
		quotedColumns[i] = quoteIdent(c)
	}
	stmt := sq.Insert(quoteIdent(b.table)).Columns(quotedColumns...).Values(rawArgs(b.values)...)

	sql, _, err := stmt.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return Query{}, fmt.Errorf("sqlquery: build insert: %w", err)
	}

	logger.SQL().Debug().Str("table", b.table).Str("sql", sql).Msg("InsertBuilder generated SQL")

	return Query{SQL: sql, Params: b.values}, nil
}

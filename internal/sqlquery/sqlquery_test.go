package sqlquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandhost/capahost/internal/wire"
)

type usersEntity struct{}

func (usersEntity) Table() string     { return "users" }
func (usersEntity) Columns() []string { return []string{"id", "name", "active"} }

type itemsEntity struct{}

func (itemsEntity) Table() string     { return "items" }
func (itemsEntity) Columns() []string { return []string{"id", "name", "count"} }

func TestSelectFilterOrderLimitOffset(t *testing.T) {
	q, err := Select("users").
		FromEntity(usersEntity{}).
		Where(Eq("active", wire.Bool(true))).
		Where(Gt("id", wire.Int32(100))).
		OrderBy("name", false).
		Limit(10).
		Offset(5).
		Build()
	require.NoError(t, err)

	assert.Contains(t, q.SQL, `SELECT "users"."id","users"."name","users"."active" FROM "users"`)
	assert.Contains(t, q.SQL, `WHERE "users"."active" = $1 AND "users"."id" > $2`)
	assert.Contains(t, q.SQL, `ORDER BY "users"."name" ASC`)
	assert.Contains(t, q.SQL, `LIMIT $3 OFFSET $4`)

	require.Len(t, q.Params, 4)
	assert.Equal(t, wire.Bool(true), q.Params[0])
	assert.Equal(t, wire.Int32(100), q.Params[1])
	assert.Equal(t, wire.Uint64(10), q.Params[2])
	assert.Equal(t, wire.Uint64(5), q.Params[3])

	assert.Equal(t, CountPlaceholders(q.SQL), len(q.Params))
}

func TestInsertFromEntity(t *testing.T) {
	values := ToValues{
		{Column: "id", Value: wire.Int64(1)},
		{Column: "name", Value: wire.Str("test")},
		{Column: "count", Value: wire.Int32(10)},
	}
	q, err := Insert("items").FromEntity(itemsEntity{}, values).Build()
	require.NoError(t, err)

	assert.Contains(t, q.SQL, `INSERT INTO "items" ("id","name","count") VALUES ($1,$2,$3)`)
	require.Len(t, q.Params, 3)
	assert.Equal(t, wire.Int64(1), q.Params[0])
	assert.Equal(t, wire.Str("test"), q.Params[1])
	assert.Equal(t, wire.Int32(10), q.Params[2])
}

func TestFilterInEmptyIsWellFormed(t *testing.T) {
	q, err := Select("users").Where(In("id")).Build()
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `"users"."id" IN ($1)`)
	assert.GreaterOrEqual(t, len(q.Params), 1)
}

func TestRowDecodeMissingColumn(t *testing.T) {
	row := wire.NewRow("0", wire.Field{Column: "id", Value: wire.Int64(1)})
	err := FromRow(usersEntity{}, row, func(column string, v wire.Value) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "name"`)
}

func TestFilterOnRequalifiesLeafNotCombinator(t *testing.T) {
	leaf := Eq("id", wire.Int32(1))
	frag, _ := leaf.render("default")
	qualified := leaf.On("other")
	qfrag, _ := qualified.render("default")
	assert.NotEqual(t, frag, qfrag)
	assert.Contains(t, qfrag, `"other"."id"`)

	combined := And(Eq("a", wire.Int32(1)), Eq("b", wire.Int32(2)))
	beforeFrag, _ := combined.render("t")
	afterFrag, _ := combined.On("other").render("t")
	assert.Equal(t, beforeFrag, afterFrag)
}

func TestEmptyAndOrFoldToConstants(t *testing.T) {
	frag, params := And().render("t")
	assert.Equal(t, "TRUE", frag)
	assert.Empty(t, params)

	frag, params = Or().render("t")
	assert.Equal(t, "FALSE", frag)
	assert.Empty(t, params)
}

func TestJoinOnResolvesAgainstJoinedTable(t *testing.T) {
	j := InnerJoin("orders", ColEq("orders", "user_id", "users", "id"))
	q, err := Select("users").FromEntity(usersEntity{}).Join(j).Build()
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `INNER JOIN "orders" ON "orders"."user_id" = "users"."id"`)

	q, err = Select("users").Join(InnerJoin("orders", Eq("user_id", wire.Int32(7)))).Build()
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `INNER JOIN "orders" ON "orders"."user_id" = $1`)
}

func TestEntityRoundTrip(t *testing.T) {
	row := wire.NewRow("0",
		wire.Field{Column: "id", Value: wire.Int32(1)},
		wire.Field{Column: "name", Value: wire.Str("alice")},
		wire.Field{Column: "active", Value: wire.Bool(true)},
	)

	var id int32
	var name string
	var active bool
	err := FromRow(usersEntity{}, row, func(column string, v wire.Value) error {
		switch column {
		case "id":
			var err error
			id, err = FetchInt32(column, v)
			return err
		case "name":
			var err error
			name, err = FetchStr(column, v)
			return err
		case "active":
			var err error
			active, err = FetchBool(column, v)
			return err
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), id)
	assert.Equal(t, "alice", name)
	assert.True(t, active)
}

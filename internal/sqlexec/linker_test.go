package sqlexec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandhost/capahost/internal/wire"
)

func TestDecodeQueryRoundTripsSQLAndParams(t *testing.T) {
	req := queryRequest{
		SQL:    `SELECT * FROM "users" WHERE "users"."id" = $1`,
		Params: []wire.Value{wire.Int32(42)},
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	q, err := decodeQuery(data)
	require.NoError(t, err)
	assert.Equal(t, req.SQL, q.SQL)
	require.Len(t, q.Params, 1)
	v, ok := q.Params[0].AsInt32()
	require.True(t, ok)
	assert.Equal(t, int32(42), v)
}

func TestDecodeQueryRejectsMalformedJSON(t *testing.T) {
	_, err := decodeQuery(json.RawMessage(`{not json`))
	assert.Error(t, err)
}

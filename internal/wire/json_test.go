package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueJSONRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)
	cases := []Value{
		Bool(true),
		Int32(42),
		Int64(-9000000000),
		Uint32(7),
		Uint64(9000000000),
		Float(1.5),
		Double(2.25),
		Str("hello"),
		Binary([]byte{0x00, 0x01, 0xff}),
		Date(ts),
		Time(ts),
		Timestamp(ts),
		Nil(TagStr),
		Nil(TagBinary),
	}

	for _, v := range cases {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var decoded Value
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, v.Equal(decoded), "round trip mismatch for tag %s: %+v vs %+v", v.Tag, v, decoded)
	}
}

func TestValueJSONBinaryIsBase64Encoded(t *testing.T) {
	data, err := json.Marshal(Binary([]byte("abc")))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":"YWJj"`)
}

func TestRowJSONRoundTrip(t *testing.T) {
	row := NewRow("0", Field{Column: "id", Value: Int32(1)}, Field{Column: "name", Value: Str("ada")})
	data, err := json.Marshal(row)
	require.NoError(t, err)

	var decoded Row
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, row.Index, decoded.Index)
	require.Len(t, decoded.Fields, 2)
	v, ok := decoded.Get("name")
	require.True(t, ok)
	s, ok := v.AsStr()
	require.True(t, ok)
	assert.Equal(t, "ada", s)
}

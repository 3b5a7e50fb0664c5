package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqualsItself(t *testing.T) {
	cases := []Value{
		Bool(true),
		Int32(100),
		Int64(-1),
		Uint32(7),
		Uint64(9),
		Float(1.5),
		Double(2.25),
		Str("hello"),
		Binary([]byte{1, 2, 3}),
	}
	for _, v := range cases {
		assert.True(t, v.Equal(v), "value should equal itself: %+v", v)
	}
}

func TestValueNullDistinctFromEmpty(t *testing.T) {
	assert.False(t, Str("").Equal(Nil(TagStr)))
	assert.True(t, Nil(TagStr).Null)
	assert.False(t, Str("").Null)
}

func TestParseTimestampRFC3339(t *testing.T) {
	ts, err := ParseTimestamp("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())
}

func TestParseTimestampNaive(t *testing.T) {
	ts, err := ParseTimestamp("2024-01-02 03:04:05")
	require.NoError(t, err)
	assert.Equal(t, time.January, ts.Month())
}

func TestParseTimestampNaiveFraction(t *testing.T) {
	ts, err := ParseTimestamp("2024-01-02 03:04:05.250")
	require.NoError(t, err)
	assert.Equal(t, 3, ts.Hour())
}

func TestParseTimestampUnsupported(t *testing.T) {
	_, err := ParseTimestamp("not-a-timestamp")
	assert.Error(t, err)
}

func TestTimestampCanonicalisesToRFC3339(t *testing.T) {
	ts, err := ParseTimestamp("2024-01-02 03:04:05")
	require.NoError(t, err)
	v1 := Timestamp(ts)
	v2, err := ParseTimestamp(FormatTimestamp(ts))
	require.NoError(t, err)
	assert.True(t, v1.Equal(Timestamp(v2)))
}

func TestRowGetCaseSensitive(t *testing.T) {
	row := NewRow("0", Field{Column: "Name", Value: Str("a")})
	_, ok := row.Get("name")
	assert.False(t, ok)
	v, ok := row.Get("Name")
	require.True(t, ok)
	s, _ := v.AsStr()
	assert.Equal(t, "a", s)
}

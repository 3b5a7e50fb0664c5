// Package wire implements WireValue and Row: the tagged, nullable scalar
// representation that crosses the sandbox boundary, and the named-field
// result row built from it.
package wire

import (
	"time"

	"github.com/sandhost/capahost/internal/capability"
)

// Tag identifies a WireValue's variant.
type Tag int

const (
	TagBool Tag = iota
	TagInt32
	TagInt64
	TagUint32
	TagUint64
	TagFloat
	TagDouble
	TagStr
	TagBinary
	TagDate
	TagTime
	TagTimestamp
)

func (t Tag) String() string {
	switch t {
	case TagBool:
		return "bool"
	case TagInt32:
		return "i32"
	case TagInt64:
		return "i64"
	case TagUint32:
		return "u32"
	case TagUint64:
		return "u64"
	case TagFloat:
		return "f32"
	case TagDouble:
		return "f64"
	case TagStr:
		return "str"
	case TagBinary:
		return "bytes"
	case TagDate:
		return "date"
	case TagTime:
		return "time"
	case TagTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value is a tagged, always-nullable scalar. Null is encoded per-variant
// (Null is true, Tag still identifies the variant) rather than as a
// separate variant, so a null value still carries its declared semantic
// type.
type Value struct {
	Tag  Tag
	Null bool

	boolV   bool
	i32V    int32
	i64V    int64
	u32V    uint32
	u64V    uint64
	f32V    float32
	f64V    float64
	strV    string
	bytesV  []byte
	timeV   time.Time // used for Date, Time, Timestamp
}

func Bool(v bool) Value      { return Value{Tag: TagBool, boolV: v} }
func Int32(v int32) Value    { return Value{Tag: TagInt32, i32V: v} }
func Int64(v int64) Value    { return Value{Tag: TagInt64, i64V: v} }
func Uint32(v uint32) Value  { return Value{Tag: TagUint32, u32V: v} }
func Uint64(v uint64) Value  { return Value{Tag: TagUint64, u64V: v} }
func Float(v float32) Value  { return Value{Tag: TagFloat, f32V: v} }
func Double(v float64) Value { return Value{Tag: TagDouble, f64V: v} }
func Str(v string) Value     { return Value{Tag: TagStr, strV: v} }
func Binary(v []byte) Value  { return Value{Tag: TagBinary, bytesV: v} }
func Date(v time.Time) Value { return Value{Tag: TagDate, timeV: v} }
func Time(v time.Time) Value { return Value{Tag: TagTime, timeV: v} }
func Timestamp(v time.Time) Value { return Value{Tag: TagTimestamp, timeV: v} }

// Nil returns the null representation of the given variant.
func Nil(tag Tag) Value { return Value{Tag: tag, Null: true} }

func (v Value) AsBool() (bool, bool)       { return v.boolV, v.Tag == TagBool && !v.Null }
func (v Value) AsInt32() (int32, bool)     { return v.i32V, v.Tag == TagInt32 && !v.Null }
func (v Value) AsInt64() (int64, bool)     { return v.i64V, v.Tag == TagInt64 && !v.Null }
func (v Value) AsUint32() (uint32, bool)   { return v.u32V, v.Tag == TagUint32 && !v.Null }
func (v Value) AsUint64() (uint64, bool)   { return v.u64V, v.Tag == TagUint64 && !v.Null }
func (v Value) AsFloat() (float32, bool)   { return v.f32V, v.Tag == TagFloat && !v.Null }
func (v Value) AsDouble() (float64, bool)  { return v.f64V, v.Tag == TagDouble && !v.Null }
func (v Value) AsStr() (string, bool)      { return v.strV, v.Tag == TagStr && !v.Null }
func (v Value) AsBinary() ([]byte, bool)   { return v.bytesV, v.Tag == TagBinary && !v.Null }
func (v Value) AsTime() (time.Time, bool) {
	ok := (v.Tag == TagDate || v.Tag == TagTime || v.Tag == TagTimestamp) && !v.Null
	return v.timeV, ok
}

// RawValue returns the Go-native value carried by v, for callers that only
// need to interrogate it generically (e.g. the SQL builder's value slice).
func (v Value) RawValue() any {
	if v.Null {
		return nil
	}
	switch v.Tag {
	case TagBool:
		return v.boolV
	case TagInt32:
		return v.i32V
	case TagInt64:
		return v.i64V
	case TagUint32:
		return v.u32V
	case TagUint64:
		return v.u64V
	case TagFloat:
		return v.f32V
	case TagDouble:
		return v.f64V
	case TagStr:
		return v.strV
	case TagBinary:
		return v.bytesV
	case TagDate, TagTime:
		return v.timeV
	case TagTimestamp:
		return FormatTimestamp(v.timeV)
	default:
		return nil
	}
}

// FormatTimestamp renders t as RFC3339, the canonical wire form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a wire timestamp: RFC3339 first, falling back to a
// naive "YYYY-MM-DD HH:MM:SS[.fraction]" form interpreted as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	const naiveLayout = "2006-01-02 15:04:05"
	for _, layout := range []string{naiveLayout + ".999999999", naiveLayout} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, capability.UnsupportedTimestamp(raw)
}

// Equal reports whether v and other carry the same tag, null-ness, and
// value, treating Timestamp equality modulo RFC3339 canonicalisation.
func (v Value) Equal(other Value) bool {
	if v.Tag != other.Tag || v.Null != other.Null {
		return false
	}
	if v.Null {
		return true
	}
	switch v.Tag {
	case TagTimestamp:
		return FormatTimestamp(v.timeV) == FormatTimestamp(other.timeV)
	case TagDate, TagTime:
		return v.timeV.Equal(other.timeV)
	case TagBinary:
		return string(v.bytesV) == string(other.bytesV)
	default:
		return v.RawValue() == other.RawValue()
	}
}

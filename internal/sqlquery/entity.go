package sqlquery

import (
	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/wire"
)

// Entity is implemented by a static descriptor of a database-backed type.
// Generated by hand per type (the original ORM's macro-generated entity! pattern
// has no Go equivalent; a Go entity descriptor is a small hand-written
// value, the idiomatic substitute for a declarative macro).
type Entity interface {
	// Table is the entity's backing table name.
	Table() string
	// Columns is the entity's declared columns in field order.
	Columns() []string
}

// FromRow reads each of entity's declared columns by name from row and
// invokes fetch for each present column, in declaration order. fetch
// receives the column name and its wire value; it is typically a closure
// that assigns to a field of the caller's concrete struct.
//
// Fails with MissingColumn if a declared column is absent from row, or
// whatever error fetch returns (expected to be TypeMismatch) if the stored
// tag does not match the field's declared type.
func FromRow(entity Entity, row wire.Row, fetch func(column string, v wire.Value) error) error {
	for _, col := range entity.Columns() {
		v, ok := row.Get(col)
		if !ok {
			return capability.MissingColumn(col)
		}
		if err := fetch(col, v); err != nil {
			return err
		}
	}
	return nil
}

// FetchBool extracts a non-null bool from v or returns TypeMismatch.
func FetchBool(column string, v wire.Value) (bool, error) {
	b, ok := v.AsBool()
	if !ok {
		return false, capability.TypeMismatch(column, "bool", v.Tag.String())
	}
	return b, nil
}

// FetchInt32 extracts a non-null int32 from v or returns TypeMismatch.
func FetchInt32(column string, v wire.Value) (int32, error) {
	n, ok := v.AsInt32()
	if !ok {
		return 0, capability.TypeMismatch(column, "i32", v.Tag.String())
	}
	return n, nil
}

// FetchInt64 extracts a non-null int64 from v or returns TypeMismatch.
func FetchInt64(column string, v wire.Value) (int64, error) {
	n, ok := v.AsInt64()
	if !ok {
		return 0, capability.TypeMismatch(column, "i64", v.Tag.String())
	}
	return n, nil
}

// FetchStr extracts a non-null string from v or returns TypeMismatch.
func FetchStr(column string, v wire.Value) (string, error) {
	s, ok := v.AsStr()
	if !ok {
		return "", capability.TypeMismatch(column, "str", v.Tag.String())
	}
	return s, nil
}

// FetchOptionalStr extracts an optional string: a null-tagged value yields
// ("", false, nil); any other value delegates to FetchStr.
func FetchOptionalStr(column string, v wire.Value) (string, bool, error) {
	if v.Null {
		return "", false, nil
	}
	s, err := FetchStr(column, v)
	return s, err == nil, err
}

// FetchTimestamp extracts a non-null RFC3339/naive timestamp from v.
func FetchTimestamp(column string, v wire.Value) (wire.Value, error) {
	if _, ok := v.AsTime(); !ok {
		return wire.Value{}, capability.TypeMismatch(column, "timestamp", v.Tag.String())
	}
	return v, nil
}

// ToValues renders an entity's current field values as (column, value)
// pairs in declaration order, the mirror of FromRow. Callers build this
// from their own struct's fields; it is supplied here only as the pairing
// type used by InsertBuilder.FromEntity.
type ToValues []wire.Field

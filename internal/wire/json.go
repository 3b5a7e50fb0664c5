package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// jsonValue is Value's wire-transfer shape: a tag name, a null flag, and a
// single native-JSON payload whose interpretation depends on the tag.
// Binary is base64 (json's native []byte encoding); Date/Time/Timestamp are
// RFC3339.
type jsonValue struct {
	Tag   string          `json:"tag"`
	Null  bool            `json:"null,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

func tagName(t Tag) (string, error) {
	switch t {
	case TagBool, TagInt32, TagInt64, TagUint32, TagUint64, TagFloat, TagDouble, TagStr, TagBinary, TagDate, TagTime, TagTimestamp:
		return t.String(), nil
	default:
		return "", fmt.Errorf("wire: unknown tag %d", t)
	}
}

func tagFromName(name string) (Tag, error) {
	for _, t := range []Tag{TagBool, TagInt32, TagInt64, TagUint32, TagUint64, TagFloat, TagDouble, TagStr, TagBinary, TagDate, TagTime, TagTimestamp} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("wire: unknown tag name %q", name)
}

// MarshalJSON encodes v as its tagged wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	name, err := tagName(v.Tag)
	if err != nil {
		return nil, err
	}
	out := jsonValue{Tag: name, Null: v.Null}
	if !v.Null {
		var raw any
		switch v.Tag {
		case TagDate, TagTime:
			raw = v.timeV.UTC().Format("2006-01-02T15:04:05Z07:00")
		case TagTimestamp:
			raw = FormatTimestamp(v.timeV)
		default:
			raw = v.RawValue()
		}
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		out.Value = encoded
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes v from its tagged wire form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in jsonValue
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	tag, err := tagFromName(in.Tag)
	if err != nil {
		return err
	}
	if in.Null || len(in.Value) == 0 {
		*v = Nil(tag)
		return nil
	}

	switch tag {
	case TagBool:
		var b bool
		if err := json.Unmarshal(in.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case TagInt32:
		var n int32
		if err := json.Unmarshal(in.Value, &n); err != nil {
			return err
		}
		*v = Int32(n)
	case TagInt64:
		var n int64
		if err := json.Unmarshal(in.Value, &n); err != nil {
			return err
		}
		*v = Int64(n)
	case TagUint32:
		var n uint32
		if err := json.Unmarshal(in.Value, &n); err != nil {
			return err
		}
		*v = Uint32(n)
	case TagUint64:
		var n uint64
		if err := json.Unmarshal(in.Value, &n); err != nil {
			return err
		}
		*v = Uint64(n)
	case TagFloat:
		var f float32
		if err := json.Unmarshal(in.Value, &f); err != nil {
			return err
		}
		*v = Float(f)
	case TagDouble:
		var f float64
		if err := json.Unmarshal(in.Value, &f); err != nil {
			return err
		}
		*v = Double(f)
	case TagStr:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return err
		}
		*v = Str(s)
	case TagBinary:
		var encoded string
		if err := json.Unmarshal(in.Value, &encoded); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("wire: invalid base64 binary value: %w", err)
		}
		*v = Binary(decoded)
	case TagDate, TagTime:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return err
		}
		t, err := ParseTimestamp(s)
		if err != nil {
			return err
		}
		if tag == TagDate {
			*v = Date(t)
		} else {
			*v = Time(t)
		}
	case TagTimestamp:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return err
		}
		t, err := ParseTimestamp(s)
		if err != nil {
			return err
		}
		*v = Timestamp(t)
	}
	return nil
}

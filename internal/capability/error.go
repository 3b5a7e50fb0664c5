// Package capability defines the shared pattern used by every host capability:
// a context type, a linker step, and a per-store view, plus the error taxonomy
// that carries domain failures back across the sandbox boundary.
package capability

import "fmt"

// Kind identifies a capability error's place in the taxonomy (see SPEC_FULL.md §7).
type Kind string

const (
	KindMissingColumn        Kind = "MISSING_COLUMN"
	KindTypeMismatch         Kind = "TYPE_MISMATCH"
	KindUnsupportedTimestamp Kind = "UNSUPPORTED_TIMESTAMP"
	KindMissingConfig        Kind = "MISSING_CONFIG"
	KindUnsupportedValue     Kind = "UNSUPPORTED_VALUE"
	KindConnectionTimeout    Kind = "CONNECTION_TIMEOUT"
	KindConnectionRefused    Kind = "CONNECTION_REFUSED"
	KindHTTPRequestURIInvalid Kind = "HTTP_REQUEST_URI_INVALID"
	KindInternalError        Kind = "INTERNAL_ERROR"
	KindBroadcastLag         Kind = "BROADCAST_LAG"
	KindChannelFull          Kind = "CHANNEL_FULL"
	KindMaxConnections       Kind = "MAX_CONNECTIONS"
	KindResourceTableMisuse  Kind = "RESOURCE_TABLE_MISUSE"
)

// Error is the structured error type returned by capability host functions.
//
// It plays the role the teacher's internal/errors.AppError plays for HTTP
// handlers: Kind replaces Code, Detail replaces Details, and Traps replaces
// StatusCode since a capability has no HTTP status of its own — it either
// surfaces to the guest as a typed result or traps the guest's store.
type Error struct {
	Kind   Kind
	Message string
	Detail string
	Traps  bool
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s - %s", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a capability Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Traps: kind == KindResourceTableMisuse}
}

// Wrap creates a capability Error carrying an underlying error as Detail.
func Wrap(kind Kind, message string, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{Kind: kind, Message: message, Detail: detail, Traps: kind == KindResourceTableMisuse}
}

func MissingColumn(name string) *Error {
	return New(KindMissingColumn, fmt.Sprintf("missing column %q", name))
}

func TypeMismatch(name, expected, got string) *Error {
	return New(KindTypeMismatch, fmt.Sprintf("column %q: expected %s, got %s", name, expected, got))
}

func UnsupportedTimestamp(raw string) *Error {
	return New(KindUnsupportedTimestamp, fmt.Sprintf("unsupported timestamp format: %q", raw))
}

func MissingConfig(key string) *Error {
	return New(KindMissingConfig, fmt.Sprintf("missing config key %q", key))
}

func UnsupportedValue(detail string) *Error {
	return New(KindUnsupportedValue, "unsupported value in query build: "+detail)
}

func ConnectionTimeout(err error) *Error {
	return Wrap(KindConnectionTimeout, "connection timed out", err)
}

func ConnectionRefused(err error) *Error {
	return Wrap(KindConnectionRefused, "connection refused", err)
}

func HTTPRequestURIInvalid(err error) *Error {
	return Wrap(KindHTTPRequestURIInvalid, "invalid request URI", err)
}

func InternalError(err error) *Error {
	return Wrap(KindInternalError, "internal capability error", err)
}

func ResourceTableMisuse(detail string) *Error {
	e := New(KindResourceTableMisuse, "resource table misuse: "+detail)
	e.Traps = true
	return e
}

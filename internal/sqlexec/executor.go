// Package sqlexec executes compiled sqlquery.Query values against a real
// Postgres database and decodes the results back into wire rows. The query
// builder (internal/sqlquery) only ever produces SQL text and a parameter
// vector; this package is the "external collaborator" that actually talks
// to the database, grounded on the teacher's connection-pool and
// configuration-validation conventions.
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/config"
	"github.com/sandhost/capahost/internal/logger"
	"github.com/sandhost/capahost/internal/sqlquery"
	"github.com/sandhost/capahost/internal/wire"
)

var (
	hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-.]{0,253}[a-zA-Z0-9])?$`)
	identRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
)

// validateConfig rejects connection parameters that could otherwise be used
// to smuggle options into the lib/pq key=value connection string.
func validateConfig(cfg config.SQLConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("sql host cannot be empty")
	}
	if net.ParseIP(cfg.Host) == nil && !hostnameRegex.MatchString(cfg.Host) {
		return fmt.Errorf("invalid sql host: %s", cfg.Host)
	}

	if cfg.Port == "" {
		return fmt.Errorf("sql port cannot be empty")
	}
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid sql port: %s", cfg.Port)
	}

	if cfg.User == "" || !identRegex.MatchString(cfg.User) {
		return fmt.Errorf("invalid sql user: %s", cfg.User)
	}
	if cfg.DBName == "" || !identRegex.MatchString(cfg.DBName) {
		return fmt.Errorf("invalid sql database name: %s", cfg.DBName)
	}

	if cfg.SSLMode != "" {
		valid := false
		for _, mode := range validSSLModes {
			if cfg.SSLMode == mode {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid sql ssl mode: %s", cfg.SSLMode)
		}
	}

	return nil
}

// Executor runs compiled queries against a pooled Postgres connection.
type Executor struct {
	db *sql.DB
}

// New opens a pooled Postgres connection and verifies it with a ping.
// Connection pool sizing mirrors the teacher's API database layer: 25
// max open, 5 max idle, 5 minute max lifetime, 1 minute max idle time.
func New(ctx context.Context, cfg config.SQLConfig) (*Executor, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, capability.Wrap(capability.KindMissingConfig, "invalid sql configuration", err)
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, capability.InternalError(fmt.Errorf("open sql connection: %w", err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, capability.ConnectionRefused(err)
	}

	logger.SQL().Info().Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("connected to sql database")
	return &Executor{db: db}, nil
}

// NewFromDB wraps an already-open *sql.DB, for tests that supply a sqlmock
// or other fake driver connection.
func NewFromDB(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Close closes the underlying connection pool.
func (e *Executor) Close() error {
	return e.db.Close()
}

// Query runs a read query and decodes every row into wire values, column
// types decided from the driver's reported column metadata.
func (e *Executor) Query(ctx context.Context, q sqlquery.Query) ([]wire.Row, error) {
	rows, err := e.db.QueryContext(ctx, q.SQL, rawParams(q.Params)...)
	if err != nil {
		return nil, translateExecError(err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, capability.InternalError(err)
	}
	columns, err := rows.Columns()
	if err != nil {
		return nil, capability.InternalError(err)
	}

	var result []wire.Row
	index := 0
	for rows.Next() {
		scanTargets := make([]any, len(columns))
		for i := range scanTargets {
			scanTargets[i] = new(any)
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, capability.InternalError(err)
		}

		fields := make([]wire.Field, len(columns))
		for i, col := range columns {
			raw := *(scanTargets[i].(*any))
			fields[i] = wire.Field{Column: col, Value: toWireValue(columnTypes[i].DatabaseTypeName(), raw)}
		}
		result = append(result, wire.NewRow(strconv.Itoa(index), fields...))
		index++
	}
	if err := rows.Err(); err != nil {
		return nil, capability.InternalError(err)
	}

	return result, nil
}

// Exec runs a write query (INSERT/UPDATE/DELETE) and returns the number of
// affected rows.
func (e *Executor) Exec(ctx context.Context, q sqlquery.Query) (int64, error) {
	res, err := e.db.ExecContext(ctx, q.SQL, rawParams(q.Params)...)
	if err != nil {
		return 0, translateExecError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, capability.InternalError(err)
	}
	return n, nil
}

func rawParams(vals []wire.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v.RawValue()
	}
	return out
}

// toWireValue tags a driver-returned Go value using Postgres's reported
// column type, since a bare Go type switch cannot distinguish, say, a text
// column from a bytea column (lib/pq returns both as []byte).
func toWireValue(pgType string, raw any) wire.Value {
	if raw == nil {
		return wire.Nil(tagForPGType(pgType))
	}

	switch strings.ToUpper(pgType) {
	case "BOOL":
		if b, ok := raw.(bool); ok {
			return wire.Bool(b)
		}
	case "INT2", "INT4":
		return wire.Int32(int32(toInt64(raw)))
	case "INT8":
		return wire.Int64(toInt64(raw))
	case "FLOAT4":
		return wire.Float(float32(toFloat64(raw)))
	case "FLOAT8", "NUMERIC":
		return wire.Double(toFloat64(raw))
	case "BYTEA":
		return wire.Binary(toBytes(raw))
	case "DATE":
		return wire.Date(toTime(raw))
	case "TIME", "TIMETZ":
		return wire.Time(toTime(raw))
	case "TIMESTAMP", "TIMESTAMPTZ":
		return wire.Timestamp(toTime(raw))
	}
	return wire.Str(toStr(raw))
}

func tagForPGType(pgType string) wire.Tag {
	switch strings.ToUpper(pgType) {
	case "BOOL":
		return wire.TagBool
	case "INT2", "INT4":
		return wire.TagInt32
	case "INT8":
		return wire.TagInt64
	case "FLOAT4":
		return wire.TagFloat
	case "FLOAT8", "NUMERIC":
		return wire.TagDouble
	case "BYTEA":
		return wire.TagBinary
	case "DATE":
		return wire.TagDate
	case "TIME", "TIMETZ":
		return wire.TagTime
	case "TIMESTAMP", "TIMESTAMPTZ":
		return wire.TagTimestamp
	default:
		return wire.TagStr
	}
}

func toInt64(raw any) int64 {
	switch v := raw.(type) {
	case int64:
		return v
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func toFloat64(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func toBytes(raw any) []byte {
	switch v := raw.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

func toStr(raw any) string {
	switch v := raw.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toTime(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case []byte:
		t, _ := wire.ParseTimestamp(string(v))
		return t
	case string:
		t, _ := wire.ParseTimestamp(v)
		return t
	default:
		return time.Time{}
	}
}

func translateExecError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "context deadline exceeded"):
		return capability.ConnectionTimeout(err)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "broken pipe"):
		return capability.ConnectionRefused(err)
	default:
		return capability.InternalError(err)
	}
}

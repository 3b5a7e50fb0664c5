package sqlexec

import (
	"context"
	"encoding/json"

	"github.com/tetratelabs/wazero"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/sqlquery"
	"github.com/sandhost/capahost/internal/wire"
)

// Linker exports the SQL execution capability's operations as host
// functions bound to executor: sql_query runs a read query and returns its
// rows, sql_exec runs a write query and returns the affected row count. The
// guest is expected to have already compiled its query (internal/sqlquery's
// builder DSL mirrors the host's so a guest component can reproduce it in
// its own language) into the SQL-text-plus-parameter-vector shape carried
// by queryRequest.
func Linker(executor *Executor) capability.Linker {
	return func(_ context.Context, _ wazero.Runtime, builder wazero.HostModuleBuilder, view *capability.View) error {
		capability.ExportJSON(builder, "sql_query", view, func(ctx context.Context, _ *capability.View, req json.RawMessage) (json.RawMessage, error) {
			q, err := decodeQuery(req)
			if err != nil {
				return nil, err
			}
			rows, err := executor.Query(ctx, q)
			if err != nil {
				return nil, err
			}
			return json.Marshal(queryResponse{Rows: rows})
		})

		capability.ExportJSON(builder, "sql_exec", view, func(ctx context.Context, _ *capability.View, req json.RawMessage) (json.RawMessage, error) {
			q, err := decodeQuery(req)
			if err != nil {
				return nil, err
			}
			affected, err := executor.Exec(ctx, q)
			if err != nil {
				return nil, err
			}
			return json.Marshal(execResponse{RowsAffected: affected})
		})

		return nil
	}
}

func decodeQuery(req json.RawMessage) (sqlquery.Query, error) {
	var in queryRequest
	if err := json.Unmarshal(req, &in); err != nil {
		return sqlquery.Query{}, capability.InternalError(err)
	}
	return sqlquery.Query{SQL: in.SQL, Params: in.Params}, nil
}

type queryRequest struct {
	SQL    string       `json:"sql"`
	Params []wire.Value `json:"params"`
}

type queryResponse struct {
	Rows []wire.Row `json:"rows"`
}

type execResponse struct {
	RowsAffected int64 `json:"rows_affected"`
}

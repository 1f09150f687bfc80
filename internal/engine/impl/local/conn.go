package local

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/duckdb/duckdb-go/v2"
)

type Conn struct {
	conn    *sql.Conn
	release func()
}

func (conn *Conn) Ping(ctx context.Context) error {
	return conn.conn.PingContext(ctx)
}

func (conn *Conn) Query(ctx context.Context, query string) (*engine.Result, error) {
	var t0 = time.Now()

	rows, err := conn.conn.QueryContext(ctx, query)

	if err != nil {
		return nil, executionError(err)
	}

	defer rows.Close()

	columns, err := rows.Columns()

	if err != nil {
		return nil, executionError(err)
	}

	var res = &engine.Result{
		Columns: engine.UniqueColumns(columns),
		Rows:    []engine.Row{},
	}

	for rows.Next() {
		var (
			values = make([]any, len(columns))
			dest   = make([]any, len(columns))
		)

		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, executionError(err)
		}

		res.Rows = append(res.Rows, engine.NewRow(res.Columns, values))
	}

	if err := rows.Err(); err != nil {
		return nil, executionError(err)
	}

	res.Metadata.Rows = uint64(len(res.Rows))
	res.Metadata.Elapsed = time.Since(t0)
	return res, nil
}

func (conn *Conn) Close() error {
	defer conn.release()
	return conn.conn.Close()
}

func executionError(err error) *engine.ExecutionError {
	var duckErr *duckdb.Error

	if errors.As(err, &duckErr) {
		return engine.NewExecutionError(EngineName, errorCode(duckErr.Type), err)
	}

	return engine.NewExecutionError(EngineName, "", err)
}

func errorCode(t duckdb.ErrorType) string {
	switch t {
	case duckdb.ErrorTypeParser:
		return "parser"
	case duckdb.ErrorTypeCatalog:
		return "catalog"
	case duckdb.ErrorTypeBinder:
		return "binder"
	case duckdb.ErrorTypeConversion:
		return "conversion"
	case duckdb.ErrorTypeConstraint:
		return "constraint"
	case duckdb.ErrorTypeInvalidInput:
		return "invalid_input"
	case duckdb.ErrorTypeConnection:
		return "connection"
	default:
		return ""
	}
}

package remote

import (
	"context"
	"reflect"
	"time"

	chproto "github.com/ClickHouse/ch-go/proto"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ClickHouse/clickhouse-go/v2/lib/proto"
	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/jackc/puddle/v2"
	"github.com/samber/lo"
)

type Conn struct {
	res *puddle.Resource[driver.Conn]
}

func (conn *Conn) Ping(ctx context.Context) error {
	return conn.res.Value().Ping(ctx)
}

func (conn *Conn) Query(ctx context.Context, query string) (*engine.Result, error) {
	var (
		t0 = time.Now()
		md engine.QueryMetadata
	)

	rows, err := conn.res.Value().Query(
		clickhouse.Context(
			ctx,
			clickhouse.WithProgress(progressHandler(&md)),
			clickhouse.WithLogs(logHandler(&md)),
		),
		query,
	)

	if err != nil {
		return nil, executionError(err)
	}

	defer rows.Close()

	var (
		columnTypes = rows.ColumnTypes()
		res         = &engine.Result{
			Columns: engine.UniqueColumns(rows.Columns()),
			Rows:    []engine.Row{},
		}
	)

	for rows.Next() {
		var dest = make([]any, len(columnTypes))

		for i, ct := range columnTypes {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, executionError(err)
		}

		var values = lo.Map(dest, func(ptr any, _ int) any {
			return reflect.ValueOf(ptr).Elem().Interface()
		})

		res.Rows = append(res.Rows, engine.NewRow(res.Columns, values))
	}

	if err := rows.Err(); err != nil {
		return nil, executionError(err)
	}

	if md.Elapsed == 0 {
		md.Elapsed = time.Since(t0)
	}

	res.Metadata = md
	return res, nil
}

// Close returns the underlying connection to the pool.
func (conn *Conn) Close() error {
	conn.res.Release()
	return nil
}

func executionError(err error) *engine.ExecutionError {
	ex, ok := lo.ErrorsAs[*proto.Exception](err)

	if !ok {
		return engine.NewExecutionError(EngineName, "", err)
	}

	return &engine.ExecutionError{
		Engine:  EngineName,
		Code:    exceptionCode(ex.Code),
		Message: ex.Message,
		Err:     err,
	}
}

func exceptionCode(code int32) string {
	if code == 0 {
		return ""
	}

	return chproto.Error(code).String()
}

package anonymize

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/duckdb/duckdb-go/v2"
)

type scalarFunc struct {
	config   duckdb.ScalarFuncConfig
	executor duckdb.ScalarFuncExecutor
}

func (f *scalarFunc) Config() duckdb.ScalarFuncConfig {
	return f.config
}

func (f *scalarFunc) Executor() duckdb.ScalarFuncExecutor {
	return f.executor
}

// RegisterDuckDB registers the extension functions in the catalog of the
// instance conn belongs to. They are visible from every connection of that
// instance.
func (ext *Extension) RegisterDuckDB(ctx context.Context, conn *sql.Conn) error {
	varchar, err := duckdb.NewTypeInfo(duckdb.TYPE_VARCHAR)

	if err != nil {
		return err
	}

	bigint, err := duckdb.NewTypeInfo(duckdb.TYPE_BIGINT)

	if err != nil {
		return err
	}

	if err := duckdb.RegisterScalarUDF(conn, "anonymize", &scalarFunc{
		config: duckdb.ScalarFuncConfig{
			InputTypeInfos: []duckdb.TypeInfo{varchar},
			ResultTypeInfo: varchar,
		},
		executor: duckdb.ScalarFuncExecutor{
			RowExecutor: func(values []driver.Value) (any, error) {
				name, err := stringArg(values)

				if err != nil {
					return nil, err
				}

				return Anonymize(name), nil
			},
		},
	}); err != nil {
		return fmt.Errorf("failed to register anonymize: %w", err)
	}

	if err := duckdb.RegisterScalarUDFSet(
		conn,
		"anonymize_email",
		&scalarFunc{
			config: duckdb.ScalarFuncConfig{
				InputTypeInfos: []duckdb.TypeInfo{varchar},
				ResultTypeInfo: varchar,
			},
			executor: duckdb.ScalarFuncExecutor{
				RowExecutor: func(values []driver.Value) (any, error) {
					email, err := stringArg(values[:1])

					if err != nil {
						return nil, err
					}

					return ext.AnonymizeEmail(email)
				},
			},
		},
		&scalarFunc{
			config: duckdb.ScalarFuncConfig{
				InputTypeInfos: []duckdb.TypeInfo{varchar, bigint},
				ResultTypeInfo: varchar,
			},
			executor: duckdb.ScalarFuncExecutor{
				RowExecutor: func(values []driver.Value) (any, error) {
					email, err := stringArg(values[:1])

					if err != nil {
						return nil, err
					}

					seed, ok := values[1].(int64)

					if !ok {
						return nil, fmt.Errorf("unexpected seed type %T", values[1])
					}

					return AnonymizeEmailSeed(email, seed)
				},
			},
		},
	); err != nil {
		return fmt.Errorf("failed to register anonymize_email: %w", err)
	}

	if err := duckdb.RegisterTableUDF(conn, "generate_data", duckdb.RowTableFunction{
		Config: duckdb.TableFunctionConfig{
			Arguments:      []duckdb.TypeInfo{bigint},
			NamedArguments: map[string]duckdb.TypeInfo{"seed": bigint},
		},
		BindArguments: func(named map[string]any, args ...any) (duckdb.RowTableSource, error) {
			return ext.bindGenerateData(varchar, named, args)
		},
	}); err != nil {
		return fmt.Errorf("failed to register generate_data: %w", err)
	}

	return nil
}

// bindGenerateData starts a name stream per bind, so a seed yields the same
// rows on every evaluation.
func (ext *Extension) bindGenerateData(varchar duckdb.TypeInfo, named map[string]any, args []any) (duckdb.RowTableSource, error) {
	if len(args) != 1 || args[0] == nil {
		return nil, ErrNullEntries
	}

	entries, ok := args[0].(int64)

	if !ok {
		return nil, fmt.Errorf("unexpected argument type %T", args[0])
	}

	if entries <= 0 {
		return nil, ErrNoEntries
	}

	var seed = ext.conf.Seed

	if v, found := named["seed"]; found && v != nil {
		if seed, ok = v.(int64); !ok {
			return nil, fmt.Errorf("unexpected seed type %T", v)
		}
	}

	return &generateDataSource{
		gen:     NewNameGenerator(seed),
		varchar: varchar,
		entries: entries,
	}, nil
}

type generateDataSource struct {
	gen       *NameGenerator
	varchar   duckdb.TypeInfo
	entries   int64
	generated int64
}

func (src *generateDataSource) ColumnInfos() []duckdb.ColumnInfo {
	return []duckdb.ColumnInfo{{Name: "name", T: src.varchar}}
}

func (src *generateDataSource) Cardinality() *duckdb.CardinalityInfo {
	return &duckdb.CardinalityInfo{
		Cardinality: uint(src.entries),
		Exact:       true,
	}
}

func (src *generateDataSource) Init() {}

func (src *generateDataSource) FillRow(row duckdb.Row) (bool, error) {
	if src.generated >= src.entries {
		return false, nil
	}

	src.generated++
	return true, row.SetRowValue(0, src.gen.Next())
}

func stringArg(values []driver.Value) (string, error) {
	if len(values) != 1 {
		return "", fmt.Errorf("expected 1 argument, got %d", len(values))
	}

	s, ok := values[0].(string)

	if !ok {
		return "", fmt.Errorf("unexpected argument type %T", values[0])
	}

	return s, nil
}

package local

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/agnosticeng/anonymize/internal/extension/anonymize"
)

type namedExtension string

func (ext namedExtension) Name() string { return string(ext) }

func setupEngine(t *testing.T, conf LocalEngineConfig) (*LocalEngine, engine.Conn, func()) {
	ctx := context.Background()

	eng, err := NewLocalEngine(ctx, conf)
	if err != nil {
		t.Fatalf("NewLocalEngine failed: %v", err)
	}

	conn, err := eng.Conn(ctx)
	if err != nil {
		eng.Close()
		t.Fatalf("Conn failed: %v", err)
	}

	return eng, conn, func() {
		conn.Close()
		eng.Close()
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		settings map[string]any
		expected string
	}{
		{"memory sentinel", Memory, nil, ""},
		{"empty", "", nil, ""},
		{"file", "/tmp/x.db", nil, "/tmp/x.db"},
		{"settings sorted and normalized", "/tmp/x.db", map[string]any{"Threads": 2, "accessMode": "READ_WRITE"}, "/tmp/x.db?access_mode=READ_WRITE&threads=2"},
		{"memory with settings", Memory, map[string]any{"threads": 1}, "?threads=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.path, tt.settings); got != tt.expected {
				t.Errorf("DSN(%q, %v) = %q, want %q", tt.path, tt.settings, got, tt.expected)
			}
		})
	}
}

func TestLocalEngineQuery(t *testing.T) {
	_, conn, cleanup := setupEngine(t, LocalEngineConfig{Path: Memory})
	defer cleanup()

	res, err := conn.Query(context.Background(), "SELECT 42::INTEGER AS answer, 'x' AS label, true AS ok, NULL::VARCHAR AS nothing")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if !reflect.DeepEqual(res.Columns, []string{"answer", "label", "ok", "nothing"}) {
		t.Errorf("Unexpected columns: %v", res.Columns)
	}

	expected := []engine.Row{{"answer": int32(42), "label": "x", "ok": true, "nothing": nil}}
	if !reflect.DeepEqual(res.Rows, expected) {
		t.Errorf("Expected %v, got %v", expected, res.Rows)
	}

	if res.Metadata.Rows != 1 {
		t.Errorf("Expected metadata rows 1, got %d", res.Metadata.Rows)
	}
}

func TestLocalEngineEmptyResult(t *testing.T) {
	_, conn, cleanup := setupEngine(t, LocalEngineConfig{})
	defer cleanup()

	res, err := conn.Query(context.Background(), "CREATE TABLE t (id INTEGER)")
	if err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if res.Rows == nil {
		t.Error("Rows must be non-nil for statements without data")
	}

	res, err = conn.Query(context.Background(), "SELECT id FROM t")
	if err != nil {
		t.Fatalf("SELECT failed: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("Expected no rows, got %v", res.Rows)
	}
	if !reflect.DeepEqual(res.Columns, []string{"id"}) {
		t.Errorf("Expected columns even without rows, got %v", res.Columns)
	}
}

func TestLocalEngineRowOrder(t *testing.T) {
	_, conn, cleanup := setupEngine(t, LocalEngineConfig{})
	defer cleanup()

	res, err := conn.Query(context.Background(), "SELECT i FROM range(5) t(i) ORDER BY i")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(res.Rows) != 5 {
		t.Fatalf("Expected 5 rows, got %d", len(res.Rows))
	}
	for i, row := range res.Rows {
		if row["i"] != int64(i) {
			t.Errorf("Row %d: expected %d, got %v", i, i, row["i"])
		}
	}
}

func TestLocalEngineDuplicateColumns(t *testing.T) {
	_, conn, cleanup := setupEngine(t, LocalEngineConfig{})
	defer cleanup()

	res, err := conn.Query(context.Background(), "SELECT 1 AS a, 2 AS a")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if !reflect.DeepEqual(res.Columns, []string{"a", "a_1"}) {
		t.Errorf("Unexpected columns: %v", res.Columns)
	}
	if len(res.Rows[0]) != 2 {
		t.Errorf("Expected both values to be kept, got %v", res.Rows[0])
	}
}

func TestLocalEngineExecutionErrors(t *testing.T) {
	_, conn, cleanup := setupEngine(t, LocalEngineConfig{})
	defer cleanup()

	tests := []struct {
		name  string
		query string
	}{
		{"syntax error", "SELEC 1"},
		{"unknown function", "SELECT anonymize('Sam') as value"},
		{"unknown table", "SELECT * FROM missing_table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := conn.Query(context.Background(), tt.query)
			if res != nil {
				t.Errorf("Expected nil result, got %v", res)
			}
			if !errors.Is(err, engine.ErrExecution) {
				t.Fatalf("Expected execution error, got %v", err)
			}

			var execErr *engine.ExecutionError
			if !errors.As(err, &execErr) || execErr.Engine != EngineName || execErr.Message == "" {
				t.Errorf("Unexpected execution error: %+v", execErr)
			}
		})
	}
}

func TestLocalEngineExtension(t *testing.T) {
	eng, conn, cleanup := setupEngine(t, LocalEngineConfig{
		Extensions: []engine.Extension{anonymize.New(anonymize.Config{Seed: 1})},
	})
	defer cleanup()

	res, err := conn.Query(context.Background(), "SELECT anonymize('Sam') as value;")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	expected := []engine.Row{{"value": "Anonymize Sam 🐥"}}
	if !reflect.DeepEqual(res.Rows, expected) {
		t.Errorf("Expected %v, got %v", expected, res.Rows)
	}

	// functions live in the instance catalog, not in one connection
	other, err := eng.Conn(context.Background())
	if err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	defer other.Close()

	if _, err := other.Query(context.Background(), "SELECT anonymize('Ann')"); err != nil {
		t.Errorf("Extension must be visible from other connections: %v", err)
	}
}

func TestLocalEngineUnsupportedExtension(t *testing.T) {
	_, err := NewLocalEngine(context.Background(), LocalEngineConfig{
		Extensions: []engine.Extension{namedExtension("clickhouse_only")},
	})
	if err == nil {
		t.Error("Expected error for an extension without DuckDB support")
	}
}

func TestLocalEngineFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	_, conn, cleanup := setupEngine(t, LocalEngineConfig{Path: path})
	if _, err := conn.Query(context.Background(), "CREATE TABLE users AS SELECT 'Sam' AS name"); err != nil {
		cleanup()
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	cleanup()

	_, conn, cleanup = setupEngine(t, LocalEngineConfig{Path: path})
	defer cleanup()

	res, err := conn.Query(context.Background(), "SELECT name FROM users")
	if err != nil {
		t.Fatalf("SELECT failed: %v", err)
	}
	if !reflect.DeepEqual(res.Rows, []engine.Row{{"name": "Sam"}}) {
		t.Errorf("Unexpected rows after reopen: %v", res.Rows)
	}
}

func TestLocalEngineInvalidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "test.db")

	if _, err := NewLocalEngine(context.Background(), LocalEngineConfig{Path: path}); err == nil {
		t.Error("Expected error when the parent directory does not exist")
	}
}

func TestLocalEngineSettings(t *testing.T) {
	_, conn, cleanup := setupEngine(t, LocalEngineConfig{Settings: map[string]any{"Threads": 1}})
	defer cleanup()

	res, err := conn.Query(context.Background(), "SELECT current_setting('threads') AS threads")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if fmt.Sprint(res.Rows[0]["threads"]) != "1" {
		t.Errorf("Expected threads=1, got %v", res.Rows[0]["threads"])
	}
}

func TestLocalEngineMaxOpenConns(t *testing.T) {
	ctx := context.Background()
	eng, conn, cleanup := setupEngine(t, LocalEngineConfig{Path: Memory, MaxOpenConns: 1})
	defer cleanup()

	if _, err := eng.Conn(ctx); !errors.Is(err, engine.ErrConnExhausted) {
		t.Fatalf("Expected ErrConnExhausted, got %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	conn.Close()

	other, err := eng.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn after release failed: %v", err)
	}
	defer other.Close()

	if _, err := eng.Conn(ctx); !errors.Is(err, engine.ErrConnExhausted) {
		t.Errorf("A double Close must not free a second slot, got %v", err)
	}
}

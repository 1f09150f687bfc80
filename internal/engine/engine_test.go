package engine

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestUniqueColumns(t *testing.T) {
	tests := []struct {
		name     string
		columns  []string
		expected []string
	}{
		{"no duplicates", []string{"a", "b"}, []string{"a", "b"}},
		{"one duplicate", []string{"a", "a"}, []string{"a", "a_1"}},
		{"three times", []string{"a", "b", "a", "a"}, []string{"a", "b", "a_1", "a_2"}},
		{"suffix already taken", []string{"a", "a", "a_1"}, []string{"a", "a_2", "a_1"}},
		{"empty", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UniqueColumns(tt.columns)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("UniqueColumns(%v) = %v, want %v", tt.columns, got, tt.expected)
			}
		})
	}
}

func TestNewRow(t *testing.T) {
	row := NewRow([]string{"value", "n"}, []any{"x", int64(1)})

	if len(row) != 2 || row["value"] != "x" || row["n"] != int64(1) {
		t.Errorf("Unexpected row: %v", row)
	}
}

func TestExecutionErrorMatching(t *testing.T) {
	cause := errors.New("Parser Error: syntax error at or near \"SELEC\"")
	err := fmt.Errorf("query failed: %w", NewExecutionError("duckdb", "parser", cause))

	if !errors.Is(err, ErrExecution) {
		t.Error("Expected error to match ErrExecution")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}
	if errors.Is(err, ErrHandleClosed) {
		t.Error("Execution error must not match ErrHandleClosed")
	}

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatal("Expected errors.As to find *ExecutionError")
	}
	if execErr.Engine != "duckdb" || execErr.Code != "parser" {
		t.Errorf("Unexpected execution error fields: %+v", execErr)
	}
	if execErr.Message != cause.Error() {
		t.Errorf("Expected message %q, got %q", cause.Error(), execErr.Message)
	}
}

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/agnosticeng/anonymize/internal/engine"
)

func sampleResult() *engine.Result {
	return &engine.Result{
		Columns: []string{"name", "n", "missing"},
		Rows: []engine.Row{
			{"name": "Sam", "n": int64(1), "missing": nil},
			{"name": "Ann", "n": int64(22), "missing": nil},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"", Table, false},
		{"table", Table, false},
		{"JSON", JSON, false},
		{"yaml", YAML, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer

	if err := Write(&buf, Table, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("Expected 7 lines, got %d:\n%s", len(lines), buf.String())
	}

	header := lines[1]
	for _, col := range []string{"name", "n", "missing"} {
		if !strings.Contains(header, " "+col+" ") {
			t.Errorf("Header must keep column %q as written, got %q", col, header)
		}
	}
	if strings.Index(header, "name") > strings.Index(header, "missing") {
		t.Errorf("Header must keep column order, got %q", header)
	}

	for i, want := range [][]string{{"Sam", "1", "NULL"}, {"Ann", "22", "NULL"}} {
		for _, cell := range want {
			if !strings.Contains(lines[3+i], " "+cell+" ") {
				t.Errorf("Row %d: expected cell %q in %q", i, cell, lines[3+i])
			}
		}
	}

	for _, i := range []int{0, 2, 5} {
		if !strings.HasPrefix(lines[i], "+-") {
			t.Errorf("Line %d: expected a separator, got %q", i, lines[i])
		}
	}
	if !strings.HasPrefix(lines[len(lines)-1], "2 rows") {
		t.Errorf("Expected a row count footer, got %q", lines[len(lines)-1])
	}
}

func TestWriteTableMultilineCell(t *testing.T) {
	var buf bytes.Buffer

	res := &engine.Result{
		Columns: []string{"v"},
		Rows:    []engine.Row{{"v": "a\nb"}},
	}
	if err := Write(&buf, Table, res); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "| a b |") {
		t.Errorf("Expected newlines to be flattened, got %q", buf.String())
	}
}

func TestWriteTableNoColumns(t *testing.T) {
	var buf bytes.Buffer

	if err := Write(&buf, Table, &engine.Result{Rows: []engine.Row{}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.String() != "0 rows\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer

	if err := Write(&buf, JSON, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	expected := "[\n  {\"name\": \"Sam\", \"n\": 1, \"missing\": null},\n  {\"name\": \"Ann\", \"n\": 22, \"missing\": null}\n]\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}

	buf.Reset()
	if err := Write(&buf, JSON, &engine.Result{Columns: []string{"x"}, Rows: []engine.Row{}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("Expected an empty array, got %q", buf.String())
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer

	if err := Write(&buf, YAML, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	expected := "- name: Sam\n  n: 1\n  missing: null\n- name: Ann\n  n: 22\n  missing: null\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestFormatValue(t *testing.T) {
	if FormatValue(nil) != "NULL" {
		t.Error("nil must render as NULL")
	}
	if FormatValue([]byte{0xca, 0xfe}) != "cafe" {
		t.Error("bytes must render as hex")
	}
	if FormatValue(3.5) != "3.5" {
		t.Error("Unexpected float rendering")
	}
}

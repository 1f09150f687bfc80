package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseKeyValues(t *testing.T) {
	m := ParseKeyValues([]string{"name=Sam", "empty=", "flag", "expr=a=b"}, "=")

	expected := map[string]interface{}{
		"name":  "Sam",
		"empty": "",
		"flag":  "",
		"expr":  "a=b",
	}

	if len(m) != len(expected) {
		t.Fatalf("Expected %d entries, got %d: %v", len(expected), len(m), m)
	}
	for k, v := range expected {
		if m[k] != v {
			t.Errorf("Key %q: expected %q, got %q", k, v, m[k])
		}
	}
}

func TestRenderQuery(t *testing.T) {
	q, err := RenderQuery("SELECT anonymize('{{ .name }}') as {{ .alias | default \"value\" }};", map[string]interface{}{
		"name": "Sam",
	})
	if err != nil {
		t.Fatalf("RenderQuery failed: %v", err)
	}

	if q != "SELECT anonymize('Sam') as value;" {
		t.Errorf("Unexpected rendered query: %q", q)
	}
}

func TestRenderQueryParseError(t *testing.T) {
	if _, err := RenderQuery("SELECT {{ .name ", nil); err == nil {
		t.Error("Expected parse error for unterminated action")
	}
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "one.sql"), []byte("SELECT {{ .n }}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := LoadTemplates(dir)
	if err != nil {
		t.Fatalf("LoadTemplates failed: %v", err)
	}

	if tmpl.Lookup("notes.txt") != nil {
		t.Error("Non SQL files must not be loaded")
	}

	q, err := RenderTemplate(tmpl, "one.sql", map[string]interface{}{"n": 42})
	if err != nil {
		t.Fatalf("RenderTemplate failed: %v", err)
	}
	if q != "SELECT 42" {
		t.Errorf("Unexpected rendered template: %q", q)
	}
}

func TestLoadTemplatesErrors(t *testing.T) {
	if _, err := LoadTemplates(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}

	if _, err := LoadTemplates(t.TempDir()); err == nil {
		t.Error("Expected error for directory without templates")
	}

	file := filepath.Join(t.TempDir(), "file.sql")
	if err := os.WriteFile(file, []byte("SELECT 1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplates(file); err == nil {
		t.Error("Expected error when path is a file")
	}
}

func TestNormalizeSettings(t *testing.T) {
	m := NormalizeSettings(map[string]any{
		"MaxMemory":   "1GB",
		"threads":     4,
		"accessMode":  "READ_ONLY",
		"max_threads": 2,
	})

	expected := map[string]any{
		"max_memory":  "1GB",
		"threads":     4,
		"access_mode": "READ_ONLY",
		"max_threads": 2,
	}

	for k, v := range expected {
		if m[k] != v {
			t.Errorf("Key %q: expected %v, got %v", k, v, m[k])
		}
	}
}

package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agnosticeng/anonymize/internal/utils"
)

func TestSortedTemplates(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"b.sql", "a.sql", "c.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT '{{ .X }}'"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	tmpl, err := utils.LoadTemplates(dir)
	if err != nil {
		t.Fatalf("LoadTemplates failed: %v", err)
	}

	var names []string
	for _, t := range SortedTemplates(tmpl) {
		names = append(names, t.Name())
	}

	if len(names) != 3 || names[0] != "a.sql" || names[1] != "b.sql" || names[2] != "c.sql" {
		t.Errorf("Unexpected order %v", names)
	}
}

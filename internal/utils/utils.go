package utils

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/iancoleman/strcase"
)

func ParseKeyValues(kvs []string, separator string) map[string]interface{} {
	var m = make(map[string]interface{})

	for _, kv := range kvs {
		var k, v, _ = strings.Cut(kv, separator)
		m[k] = v
	}

	return m
}

func NewTemplate(name string) *template.Template {
	return template.New(name).Option("missingkey=default").Funcs(sprig.TxtFuncMap())
}

func RenderTemplate(tmpl *template.Template, name string, vars map[string]interface{}) (string, error) {
	var buf bytes.Buffer

	if err := tmpl.ExecuteTemplate(&buf, name, vars); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// RenderQuery renders a single query text as a template.
func RenderQuery(query string, vars map[string]interface{}) (string, error) {
	tmpl, err := NewTemplate("query").Parse(query)

	if err != nil {
		return "", err
	}

	return RenderTemplate(tmpl, "query", vars)
}

// LoadTemplates parses every *.sql file of dir, each template being named
// after its file.
func LoadTemplates(dir string) (*template.Template, error) {
	stat, err := os.Stat(dir)

	if err != nil {
		return nil, err
	}

	if !stat.IsDir() {
		return nil, fmt.Errorf("path must point to a directory of SQL template files")
	}

	var (
		fsys = os.DirFS(dir)
		tmpl = NewTemplate("queries")
	)

	files, err := fs.Glob(fsys, "*.sql")

	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no SQL template found in %s", dir)
	}

	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)

		if err != nil {
			return nil, err
		}

		if _, err := tmpl.New(filepath.Base(file)).Parse(string(content)); err != nil {
			return nil, err
		}
	}

	return tmpl, nil
}

// NormalizeSettings converts setting keys to snake_case, the form both
// DuckDB and ClickHouse expect.
func NormalizeSettings(settings map[string]any) map[string]any {
	var m = make(map[string]any, len(settings))

	for k, v := range settings {
		m[strcase.ToSnake(k)] = v
	}

	return m
}

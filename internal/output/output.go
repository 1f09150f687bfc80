package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	Table Format = "table"
	JSON  Format = "json"
	YAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", Table:
		return Table, nil
	case JSON, YAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Write renders res to w, keeping the column order of the result.
func Write(w io.Writer, format Format, res *engine.Result) error {
	switch format {
	case Table, "":
		return writeTable(w, res)
	case JSON:
		return writeJSON(w, res)
	case YAML:
		return writeYAML(w, res)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func writeTable(w io.Writer, res *engine.Result) error {
	if len(res.Columns) == 0 {
		_, err := fmt.Fprintf(w, "%d rows\n", len(res.Rows))
		return err
	}

	var tw = table.NewWriter()

	tw.SetStyle(table.StyleDefault)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(toTableRow(res.Columns))

	var cells = make([]string, len(res.Columns))

	for _, row := range res.Rows {
		for i, col := range res.Columns {
			cells[i] = cellReplacer.Replace(FormatValue(row[col]))
		}

		tw.AppendRow(toTableRow(cells))
	}

	_, err := fmt.Fprintf(w, "%s\n%d rows (%s)\n", tw.Render(), len(res.Rows), res.Metadata.Elapsed)
	return err
}

var cellReplacer = strings.NewReplacer("\n", " ", "\t", " ")

func toTableRow(values []string) table.Row {
	var row = make(table.Row, len(values))

	for i, v := range values {
		row[i] = v
	}

	return row
}

func writeJSON(w io.Writer, res *engine.Result) error {
	var buf bytes.Buffer

	buf.WriteString("[")

	for i, row := range res.Rows {
		if i > 0 {
			buf.WriteString(",")
		}

		buf.WriteString("\n  {")

		for j, col := range res.Columns {
			if j > 0 {
				buf.WriteString(", ")
			}

			k, err := json.Marshal(col)

			if err != nil {
				return err
			}

			v, err := json.Marshal(row[col])

			if err != nil {
				return fmt.Errorf("column %s: %w", col, err)
			}

			buf.Write(k)
			buf.WriteString(": ")
			buf.Write(v)
		}

		buf.WriteString("}")
	}

	if len(res.Rows) > 0 {
		buf.WriteString("\n")
	}

	buf.WriteString("]\n")

	_, err := buf.WriteTo(w)
	return err
}

func writeYAML(w io.Writer, res *engine.Result) error {
	var doc = &yaml.Node{Kind: yaml.SequenceNode}

	for _, row := range res.Rows {
		var m = &yaml.Node{Kind: yaml.MappingNode}

		for _, col := range res.Columns {
			var v yaml.Node

			if err := v.Encode(row[col]); err != nil {
				return fmt.Errorf("column %s: %w", col, err)
			}

			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col}, &v)
		}

		doc.Content = append(doc.Content, m)
	}

	if len(doc.Content) == 0 {
		doc.Style = yaml.FlowStyle
	}

	var enc = yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return err
	}

	return enc.Close()
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/datapyn/datapyn/internal/crosslang"
	"github.com/datapyn/datapyn/internal/script"
	"github.com/datapyn/datapyn/internal/table"
)

// renderTable writes a result table in the requested format.
func renderTable(w io.Writer, t *table.Table, format string) error {
	switch format {
	case "json":
		return renderTableJSON(w, t)
	case "csv":
		return renderTableCSV(w, t)
	case "md", "markdown":
		return renderTableMarkdown(w, t)
	default:
		return renderTablePretty(w, t)
	}
}

func renderTablePretty(w io.Writer, t *table.Table) error {
	if t.NumRows() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	tw := prettytable.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(prettytable.StyleLight)

	header := make(prettytable.Row, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	tw.AppendHeader(header)

	for _, row := range t.Rows {
		out := make(prettytable.Row, len(row))
		for i, val := range row {
			out[i] = formatValue(val)
		}
		tw.AppendRow(out)
	}

	tw.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", t.NumRows())
	return nil
}

func renderTableJSON(w io.Writer, t *table.Table) error {
	records := make([]map[string]any, 0, t.NumRows())
	for _, row := range t.Rows {
		record := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			record[col] = row[i]
		}
		records = append(records, record)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func renderTableCSV(w io.Writer, t *table.Table) error {
	_, _ = fmt.Fprintln(w, strings.Join(t.Columns, ","))
	for _, row := range t.Rows {
		values := make([]string, len(row))
		for i, val := range row {
			values[i] = escapeCSV(formatValue(val))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderTableMarkdown(w io.Writer, t *table.Table) error {
	if t.NumRows() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(t.Columns, " | "))
	seps := make([]string, len(t.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range t.Rows {
		values := make([]string, len(row))
		for i, val := range row {
			values[i] = formatValue(val)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

// renderResult writes one execution result: captured stdout first, then
// the last value. Result tables render as tables; everything else as its
// script representation.
func renderResult(w io.Writer, res *crosslang.Result, format string) error {
	if res.Stdout != "" {
		_, _ = fmt.Fprint(w, res.Stdout)
	}

	if !res.HasLastValue() {
		return nil
	}
	if t, ok := res.LastValue.(*table.Table); ok {
		return renderTable(w, t, format)
	}

	// JSON output serializes scalar and container values structurally;
	// values with no JSON shape fall through to their script form.
	if format == "json" {
		if gv, err := script.ToGo(res.LastValue); err == nil {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(gv)
		}
	}

	_, _ = fmt.Fprintln(w, res.LastValue.String())
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
